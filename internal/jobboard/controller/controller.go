// Package controller implements the core business logic (service layer)
// of the job board: the application ledger, the job directory and the
// identity service, orchestrating repository operations and notifications.
package controller

import (
	"context"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
)

// Notifier delivers status change notifications on a best-effort basis.
type Notifier interface {
	Notify(ctx context.Context, n *models.StatusNotification) error
}

// ApplicationRepository defines the storage the ledger needs.
type ApplicationRepository interface {
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	ApplicationExists(ctx context.Context, jobID, employeeID uuid.UUID) (bool, error)
	CreateApplication(ctx context.Context, app *models.Application) error
	GetApplicationView(ctx context.Context, id uuid.UUID) (*models.ApplicationView, error)
	ListApplicationsByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.ApplicationView, error)
	ListApplicationsByEmployer(ctx context.Context, employerID uuid.UUID) ([]models.ApplicationView, error)
	UpdateApplication(ctx context.Context, update *models.ApplicationUpdate) error
	DeleteApplication(ctx context.Context, id uuid.UUID) error
}

// JobRepository defines the storage interface for Job objects.
type JobRepository interface {
	CreateJob(ctx context.Context, job *models.Job) error
	GetJob(ctx context.Context, id uuid.UUID) (*models.Job, error)
	UpdateJob(ctx context.Context, update *models.JobUpdate) error
	DeleteJob(ctx context.Context, id uuid.UUID) error
	ListActiveJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error)
	ListEmployerJobs(ctx context.Context, employerID uuid.UUID) ([]models.EmployerJob, error)
}

// UserRepository defines the storage interface for User objects.
type UserRepository interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) error
}

// TokenIssuer issues identity tokens for authenticated users.
type TokenIssuer interface {
	Issue(user *models.User) (string, error)
}
