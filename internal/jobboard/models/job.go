package models

import (
	"time"

	"github.com/google/uuid"
)

// Job is a posting owned by exactly one employer.
type Job struct {
	ID             uuid.UUID
	EmployerID     uuid.UUID
	Title          string
	Description    string
	Location       string
	EmploymentType string
	SalaryMin      int
	SalaryMax      int
	// IsActive gates public visibility and new applications.
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// JobUpdate represents the fields that can be updated for a Job.
// Pointer types are used to allow partial updates.
type JobUpdate struct {
	ID             uuid.UUID
	Title          *string
	Description    *string
	Location       *string
	EmploymentType *string
	SalaryMin      *int
	SalaryMax      *int
	IsActive       *bool
}

// JobFilter narrows the public job listing.
type JobFilter struct {
	Keyword  string
	Location string
	Limit    int
	Offset   int
}

// EmployerJob is a job together with the number of applications it holds.
type EmployerJob struct {
	Job
	ApplicationCount int64
}
