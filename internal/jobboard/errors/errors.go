package errors

import (
	"fmt"
)

var (
	ErrNotFound     = fmt.Errorf("not found")
	ErrInvalidInput = fmt.Errorf("invalid input")
	ErrAccessDenied = fmt.Errorf("access denied")

	ErrDuplicateApplication = fmt.Errorf("duplicate application")
	ErrJobUnavailable       = fmt.Errorf("job unavailable")
	ErrJobHasApplications   = fmt.Errorf("job has applications")

	ErrDuplicateEmail     = fmt.Errorf("duplicate email")
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")

	ErrQueueFull = fmt.Errorf("notification queue full")
)

// JobHasApplicationsError blocks a job deletion and reports how many
// applications are still attached to it.
type JobHasApplicationsError struct {
	Count int64
}

func (e *JobHasApplicationsError) Error() string {
	return fmt.Sprintf("%s: %d blocking", ErrJobHasApplications, e.Count)
}

func (e *JobHasApplicationsError) Unwrap() error {
	return ErrJobHasApplications
}
