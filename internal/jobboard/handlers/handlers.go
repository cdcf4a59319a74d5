package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/auth"
	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ApplicationController is the application ledger as seen by the transport.
type ApplicationController interface {
	Apply(ctx context.Context, jobID, employeeID uuid.UUID, attachments models.Attachments) (*models.Application, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.Status, actor models.Actor) (bool, error)
	ListByEmployee(ctx context.Context, employeeID uuid.UUID) ([]models.ApplicationView, models.ApplicationStats, error)
	ListByEmployer(ctx context.Context, employerID uuid.UUID) ([]models.ApplicationView, error)
	GetApplicationForActor(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.ApplicationView, error)
	Delete(ctx context.Context, id, employerID uuid.UUID) (bool, error)
}

// JobController is the job directory as seen by the transport.
type JobController interface {
	CreateJob(ctx context.Context, employerID uuid.UUID, job *models.Job) (*models.Job, error)
	GetJob(ctx context.Context, id uuid.UUID, actor models.Actor) (*models.Job, error)
	ListActiveJobs(ctx context.Context, filter models.JobFilter) ([]models.Job, error)
	ListEmployerJobs(ctx context.Context, employerID uuid.UUID) ([]models.EmployerJob, error)
	UpdateJob(ctx context.Context, update *models.JobUpdate, employerID uuid.UUID) (*models.Job, error)
	DeleteJob(ctx context.Context, id, employerID uuid.UUID) error
}

// IdentityController registers and authenticates users.
type IdentityController interface {
	Register(ctx context.Context, email, password, name string, role models.Role) (*models.User, error)
	Login(ctx context.Context, email, password string) (string, *models.User, error)
	GetUser(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Routes is implemented by every handler group mounted on the gateway mux.
type Routes interface {
	Register(mux *runtime.ServeMux) error
}

// base carries what every handler needs to decode requests and render
// responses through the gateway marshalers.
type base struct {
	mux    *runtime.ServeMux
	logger *zap.Logger
}

func (b *base) decode(r *http.Request, v interface{}) error {
	inbound, _ := runtime.MarshalerForRequest(b.mux, r)
	if err := inbound.NewDecoder(r.Body).Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return status.Error(codes.InvalidArgument, "request body required")
		}
		return status.Errorf(codes.InvalidArgument, "malformed request body: %v", err)
	}
	return nil
}

func (b *base) respond(w http.ResponseWriter, r *http.Request, code int, v interface{}) {
	_, outbound := runtime.MarshalerForRequest(b.mux, r)
	body, err := outbound.Marshal(v)
	if err != nil {
		b.logger.Error("Failed to encode response", zap.Error(err))
		b.fail(w, r, status.Error(codes.Internal, "failed to encode response"))
		return
	}
	w.Header().Set("Content-Type", outbound.ContentType(v))
	w.WriteHeader(code)
	if _, err := w.Write(body); err != nil {
		b.logger.Debug("Failed to write response", zap.Error(err))
	}
}

// fail renders err as a gateway error response.
func (b *base) fail(w http.ResponseWriter, r *http.Request, err error) {
	_, outbound := runtime.MarshalerForRequest(b.mux, r)
	runtime.HTTPError(r.Context(), b.mux, outbound, w, r, b.mapServiceError(err))
}

// mapServiceError maps domain or repository errors to appropriate gRPC status codes.
func (b *base) mapServiceError(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, e.ErrNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrDuplicateApplication), errors.Is(err, e.ErrDuplicateEmail):
		return status.Error(codes.AlreadyExists, err.Error())
	case errors.Is(err, e.ErrInvalidInput):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, e.ErrJobUnavailable):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, e.ErrJobHasApplications):
		return status.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, e.ErrInvalidCredentials):
		return status.Error(codes.Unauthenticated, err.Error())
	case errors.Is(err, e.ErrAccessDenied):
		return status.Error(codes.PermissionDenied, err.Error())
	default:
		b.logger.Error("Internal server error", zap.Error(err))
		return status.Error(codes.Internal, "internal server error")
	}
}

// requireActor returns the authenticated actor, checking its role when
// roles are given.
func requireActor(ctx context.Context, roles ...models.Role) (models.Actor, error) {
	actor, ok := auth.ActorFromContext(ctx)
	if !ok {
		return models.Actor{}, status.Error(codes.Unauthenticated, "authentication required")
	}
	if len(roles) == 0 {
		return actor, nil
	}
	for _, role := range roles {
		if actor.Role == role {
			return actor, nil
		}
	}
	return models.Actor{}, status.Errorf(codes.PermissionDenied, "%s role cannot perform this operation", actor.Role)
}

func parseID(params map[string]string, name, what string) (uuid.UUID, error) {
	id, err := uuid.Parse(params[name])
	if err != nil {
		return uuid.Nil, status.Errorf(codes.InvalidArgument, "invalid %s ID", what)
	}
	return id, nil
}
