package errors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJobHasApplicationsError(t *testing.T) {
	err := fmt.Errorf("delete job: %w", &JobHasApplicationsError{Count: 3})

	assert.ErrorIs(t, err, ErrJobHasApplications)

	var blocking *JobHasApplicationsError
	if assert.True(t, errors.As(err, &blocking)) {
		assert.Equal(t, int64(3), blocking.Count)
	}
	assert.Contains(t, err.Error(), "3 blocking")
}
