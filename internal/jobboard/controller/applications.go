package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/metrics"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	maxCoverLetterLen = 5000
	maxPhoneLen       = 32
	maxLocationLen    = 255
	maxFilenameLen    = 255
	maxResumeURLLen   = 1024

	defaultNotifyTimeout = 5 * time.Second
)

// ApplicationService is the application ledger. It owns application
// records and decides who may create, read, transition and delete them.
type ApplicationService struct {
	repo          ApplicationRepository
	notifier      Notifier
	logger        *zap.Logger
	now           func() time.Time
	notifyTimeout time.Duration
	inflight      sync.WaitGroup
}

// NewApplicationService constructs an ApplicationService with a repository,
// a notification sink, and a logger.
func NewApplicationService(repo ApplicationRepository, notifier Notifier, logger *zap.Logger) *ApplicationService {
	return &ApplicationService{
		repo:          repo,
		notifier:      notifier,
		logger:        logger.Named("application_service"),
		now:           func() time.Time { return time.Now().UTC() },
		notifyTimeout: defaultNotifyTimeout,
	}
}

// SetNotifyTimeout bounds each notification dispatch.
func (s *ApplicationService) SetNotifyTimeout(d time.Duration) {
	if d > 0 {
		s.notifyTimeout = d
	}
}

// Apply records a new application of employeeID to jobID. The duplicate
// check runs before the job availability check.
func (s *ApplicationService) Apply(ctx context.Context, jobID, employeeID uuid.UUID, attachments models.Attachments) (*models.Application, error) {
	if jobID == uuid.Nil || employeeID == uuid.Nil {
		return nil, fmt.Errorf("%w: job and employee are required", e.ErrInvalidInput)
	}
	if err := validateAttachments(attachments); err != nil {
		return nil, err
	}

	exists, err := s.repo.ApplicationExists(ctx, jobID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing application: %w", err)
	}
	if exists {
		return nil, e.ErrDuplicateApplication
	}

	job, err := s.repo.GetJob(ctx, jobID)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, fmt.Errorf("%w: job does not exist", e.ErrJobUnavailable)
		}
		return nil, fmt.Errorf("failed to load job: %w", err)
	}
	if !job.IsActive {
		return nil, fmt.Errorf("%w: job is not accepting applications", e.ErrJobUnavailable)
	}

	now := s.now()
	app := &models.Application{
		ID:          uuid.New(),
		JobID:       jobID,
		EmployeeID:  employeeID,
		Status:      models.StatusApplied,
		Attachments: attachments,
		AppliedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateApplication(ctx, app); err != nil {
		if errors.Is(err, e.ErrDuplicateApplication) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	metrics.RecordApplicationCreated()
	s.logger.Info("Application submitted",
		zap.String("application_id", app.ID.String()),
		zap.String("job_id", jobID.String()),
	)
	return app, nil
}

// UpdateStatus moves an application to status on behalf of actor.
// It returns false without an error when the application does not exist
// or the actor may not touch it; the two cases are not distinguished.
func (s *ApplicationService) UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, actor models.Actor) (bool, error) {
	if !status.Valid() {
		return false, fmt.Errorf("%w: unknown status %q", e.ErrInvalidInput, status)
	}

	view, err := s.repo.GetApplicationView(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			s.logRefused("status update", id, actor, err)
			return false, nil
		}
		return false, fmt.Errorf("failed to load application: %w", err)
	}
	if err := authorize(view, actor); err != nil {
		s.logRefused("status update", id, actor, err)
		return false, nil
	}

	updatedAt := s.now()
	if updatedAt.Before(view.UpdatedAt) {
		updatedAt = view.UpdatedAt
	}
	err = s.repo.UpdateApplication(ctx, &models.ApplicationUpdate{
		ID:        id,
		Status:    &status,
		UpdatedAt: &updatedAt,
	})
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			s.logRefused("status update", id, actor, err)
			return false, nil
		}
		return false, fmt.Errorf("failed to update application status: %w", err)
	}
	metrics.RecordStatusTransition(string(status))

	if actor.Role == models.RoleEmployer && status.Notifiable() {
		s.dispatch(&models.StatusNotification{
			ApplicationID: id,
			Status:        status,
			JobTitle:      view.JobTitle,
			EmployerName:  view.EmployerName,
			EmployeeEmail: view.EmployeeEmail,
			EmployeeName:  view.EmployeeName,
			OccurredAt:    updatedAt,
		})
	}
	return true, nil
}

// ListByEmployee returns the employee's applications, newest first, with
// per-status counts over the whole set.
func (s *ApplicationService) ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.ApplicationView, models.ApplicationStats, error) {
	var stats models.ApplicationStats
	views, err := s.repo.ListApplicationsByEmployee(ctx, employeeID)
	if err != nil {
		return nil, stats, fmt.Errorf("failed to list employee applications: %w", err)
	}
	for i := range views {
		stats.Add(views[i].Status)
	}
	return views, stats, nil
}

// ListByEmployer returns applications to the employer's jobs, newest first.
// Rows resolving to another employer are dropped even though the query
// already scopes by owner.
func (s *ApplicationService) ListByEmployer(ctx context.Context, employerID uuid.UUID) ([]models.ApplicationView, error) {
	views, err := s.repo.ListApplicationsByEmployer(ctx, employerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list employer applications: %w", err)
	}

	owned := views[:0]
	for _, v := range views {
		if v.EmployerID != employerID {
			s.logger.Warn("Dropping application owned by another employer",
				zap.String("application_id", v.ID.String()),
				zap.String("employer_id", employerID.String()),
				zap.String("owner_id", v.EmployerID.String()),
			)
			continue
		}
		owned = append(owned, v)
	}
	return owned, nil
}

// GetApplication fetches an application by ID without any access check.
func (s *ApplicationService) GetApplication(ctx context.Context, id uuid.UUID) (*models.ApplicationView, error) {
	view, err := s.repo.GetApplicationView(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get application: %w", err)
	}
	return view, nil
}

// GetApplicationForActor fetches an application the actor is allowed to
// see. Denial is reported as ErrNotFound.
func (s *ApplicationService) GetApplicationForActor(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.ApplicationView, error) {
	view, err := s.GetApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := authorize(view, actor); err != nil {
		s.logRefused("read", id, actor, err)
		return nil, e.ErrNotFound
	}
	return view, nil
}

// Delete removes an application on behalf of the employer owning its job.
// Like UpdateStatus it reports missing and foreign applications as false.
func (s *ApplicationService) Delete(ctx context.Context, id, employerID uuid.UUID) (bool, error) {
	actor := models.Actor{ID: employerID, Role: models.RoleEmployer}

	view, err := s.repo.GetApplicationView(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			s.logRefused("delete", id, actor, err)
			return false, nil
		}
		return false, fmt.Errorf("failed to load application: %w", err)
	}
	if err := authorize(view, actor); err != nil {
		s.logRefused("delete", id, actor, err)
		return false, nil
	}

	if err := s.repo.DeleteApplication(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete application: %w", err)
	}

	s.logger.Info("Application deleted",
		zap.String("application_id", id.String()),
		zap.String("employer_id", employerID.String()),
	)
	return true, nil
}

// Drain blocks until every notification dispatch started so far has finished.
func (s *ApplicationService) Drain() {
	s.inflight.Wait()
}

func (s *ApplicationService) dispatch(n *models.StatusNotification) {
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		defer func() {
			if r := recover(); r != nil {
				metrics.RecordNotification("failed")
				s.logger.Error("Notification sink panicked",
					zap.Any("panic", r),
					zap.String("application_id", n.ApplicationID.String()),
				)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), s.notifyTimeout)
		defer cancel()

		if err := s.notifier.Notify(ctx, n); err != nil {
			metrics.RecordNotification("failed")
			s.logger.Error("Failed to deliver status notification",
				zap.Error(err),
				zap.String("application_id", n.ApplicationID.String()),
				zap.String("status", string(n.Status)),
			)
			return
		}
		metrics.RecordNotification("dispatched")
	}()
}

func (s *ApplicationService) logRefused(op string, id uuid.UUID, actor models.Actor, reason error) {
	s.logger.Debug("Application operation refused",
		zap.String("operation", op),
		zap.String("application_id", id.String()),
		zap.String("actor_id", actor.ID.String()),
		zap.String("actor_role", string(actor.Role)),
		zap.Error(reason),
	)
}

// authorize applies the ownership rule to the persisted record: employers
// act on applications to their own jobs, employees on their own applications.
func authorize(view *models.ApplicationView, actor models.Actor) error {
	if actor.ID == uuid.Nil {
		return fmt.Errorf("%w: anonymous actor", e.ErrAccessDenied)
	}
	switch actor.Role {
	case models.RoleEmployer:
		if view.EmployerID != actor.ID {
			return fmt.Errorf("%w: job belongs to another employer", e.ErrAccessDenied)
		}
	case models.RoleEmployee:
		if view.EmployeeID != actor.ID {
			return fmt.Errorf("%w: application belongs to another employee", e.ErrAccessDenied)
		}
	default:
		return fmt.Errorf("%w: unknown role %q", e.ErrAccessDenied, actor.Role)
	}
	return nil
}

func validateAttachments(a models.Attachments) error {
	switch {
	case a.ResumeSize < 0:
		return fmt.Errorf("%w: negative resume size", e.ErrInvalidInput)
	case len(a.ResumeFilename) > maxFilenameLen:
		return fmt.Errorf("%w: resume filename too long", e.ErrInvalidInput)
	case len(a.ResumeURL) > maxResumeURLLen:
		return fmt.Errorf("%w: resume url too long", e.ErrInvalidInput)
	case len(a.CoverLetter) > maxCoverLetterLen:
		return fmt.Errorf("%w: cover letter too long", e.ErrInvalidInput)
	case len(a.Phone) > maxPhoneLen:
		return fmt.Errorf("%w: phone too long", e.ErrInvalidInput)
	case len(a.Location) > maxLocationLen:
		return fmt.Errorf("%w: location too long", e.ErrInvalidInput)
	}
	return nil
}
