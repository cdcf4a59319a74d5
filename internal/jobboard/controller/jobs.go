package controller

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxTitleLen       = 200
	maxDescriptionLen = 10000
	maxEmploymentLen  = 50

	defaultListLimit = 20
	maxListLimit     = 100
)

// JobService is the job directory: it owns postings and their visibility.
type JobService struct {
	repo   JobRepository
	logger *zap.Logger
	now    func() time.Time
}

// NewJobService constructs a JobService with a repository and a logger.
func NewJobService(repo JobRepository, logger *zap.Logger) *JobService {
	return &JobService{
		repo:   repo,
		logger: logger.Named("job_service"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// CreateJob publishes a new active job owned by employerID.
func (s *JobService) CreateJob(ctx context.Context, employerID uuid.UUID, job *models.Job) (*models.Job, error) {
	if employerID == uuid.Nil {
		return nil, fmt.Errorf("%w: employer is required", e.ErrInvalidInput)
	}
	job.Title = strings.TrimSpace(job.Title)
	if err := validateJob(job); err != nil {
		return nil, err
	}

	now := s.now()
	job.ID = uuid.New()
	job.EmployerID = employerID
	job.IsActive = true
	job.CreatedAt = now
	job.UpdatedAt = now
	if err := s.repo.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("failed to create job: %w", err)
	}

	s.logger.Info("Job created",
		zap.String("job_id", job.ID.String()),
		zap.String("employer_id", employerID.String()),
	)
	return job, nil
}

// GetJob fetches a job. Inactive jobs are visible to their owner only.
func (s *JobService) GetJob(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Job, error) {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if !job.IsActive && !ownsJob(job, actor) {
		return nil, e.ErrNotFound
	}
	return job, nil
}

// ListActiveJobs returns the public listing.
func (s *JobService) ListActiveJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error) {
	switch {
	case filter.Limit <= 0:
		filter.Limit = defaultListLimit
	case filter.Limit > maxListLimit:
		filter.Limit = maxListLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	jobs, err := s.repo.ListActiveJobs(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list jobs: %w", err)
	}
	return jobs, nil
}

// ListEmployerJobs returns every job of the employer, active or not.
func (s *JobService) ListEmployerJobs(ctx context.Context, employerID uuid.UUID) ([]models.EmployerJob, error) {
	jobs, err := s.repo.ListEmployerJobs(ctx, employerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employer jobs: %w", err)
	}
	return jobs, nil
}

// UpdateJob applies a partial update on behalf of the owning employer.
// Deactivation is allowed whatever applications the job holds.
func (s *JobService) UpdateJob(ctx context.Context, update *models.JobUpdate, employerID uuid.UUID) (*models.Job, error) {
	if update.ID == uuid.Nil {
		return nil, fmt.Errorf("%w: invalid job ID", e.ErrInvalidInput)
	}

	current, err := s.repo.GetJob(ctx, update.ID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}
	if current.EmployerID != employerID {
		return nil, e.ErrNotFound
	}

	if update.Title != nil {
		trimmed := strings.TrimSpace(*update.Title)
		update.Title = &trimmed
	}
	if err := validateJob(mergeJob(*current, update)); err != nil {
		return nil, err
	}

	if err := s.repo.UpdateJob(ctx, update); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to update job: %w", err)
	}

	updated, err := s.repo.GetJob(ctx, update.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to reload job: %w", err)
	}
	if update.IsActive != nil && !*update.IsActive {
		s.logger.Info("Job deactivated", zap.String("job_id", update.ID.String()))
	}
	return updated, nil
}

// DeleteJob hard-deletes a job owned by employerID. A job that still
// holds applications is refused with *errors.JobHasApplicationsError.
func (s *JobService) DeleteJob(ctx context.Context, id, employerID uuid.UUID) error {
	job, err := s.repo.GetJob(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get job for deletion: %w", err)
	}
	if job.EmployerID != employerID {
		return e.ErrNotFound
	}

	if err := s.repo.DeleteJob(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) || errors.Is(err, e.ErrJobHasApplications) {
			return err
		}
		return fmt.Errorf("failed to delete job: %w", err)
	}

	s.logger.Info("Job deleted", zap.String("job_id", id.String()))
	return nil
}

func ownsJob(job *models.Job, actor models.Actor) bool {
	return actor.Role == models.RoleEmployer && actor.ID != uuid.Nil && job.EmployerID == actor.ID
}

func mergeJob(job models.Job, update *models.JobUpdate) *models.Job {
	if update.Title != nil {
		job.Title = *update.Title
	}
	if update.Description != nil {
		job.Description = *update.Description
	}
	if update.Location != nil {
		job.Location = *update.Location
	}
	if update.EmploymentType != nil {
		job.EmploymentType = *update.EmploymentType
	}
	if update.SalaryMin != nil {
		job.SalaryMin = *update.SalaryMin
	}
	if update.SalaryMax != nil {
		job.SalaryMax = *update.SalaryMax
	}
	if update.IsActive != nil {
		job.IsActive = *update.IsActive
	}
	return &job
}

func validateJob(job *models.Job) error {
	switch {
	case job.Title == "" || len(job.Title) > maxTitleLen:
		return fmt.Errorf("%w: invalid title", e.ErrInvalidInput)
	case len(job.Description) > maxDescriptionLen:
		return fmt.Errorf("%w: description too long", e.ErrInvalidInput)
	case len(job.Location) > maxLocationLen:
		return fmt.Errorf("%w: location too long", e.ErrInvalidInput)
	case len(job.EmploymentType) > maxEmploymentLen:
		return fmt.Errorf("%w: employment type too long", e.ErrInvalidInput)
	case job.SalaryMin < 0 || job.SalaryMax < 0:
		return fmt.Errorf("%w: negative salary", e.ErrInvalidInput)
	case job.SalaryMax > 0 && job.SalaryMin > job.SalaryMax:
		return fmt.Errorf("%w: salary_min exceeds salary_max", e.ErrInvalidInput)
	}
	return nil
}
