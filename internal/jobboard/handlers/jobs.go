package handlers

import (
	"errors"
	"net/http"
	"strconv"

	e "github.com/gartstein/jobboard/internal/jobboard/errors"
	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// JobHandler serves the job directory.
type JobHandler struct {
	base
	service JobController
}

// NewJobHandler constructs a new JobHandler with the given service and logger.
func NewJobHandler(service JobController, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		base:    base{logger: logger.Named("job_handler")},
		service: service,
	}
}

// Register mounts the job routes on mux.
func (h *JobHandler) Register(mux *runtime.ServeMux) error {
	h.mux = mux
	routes := []struct {
		method, pattern string
		fn              runtime.HandlerFunc
	}{
		{http.MethodGet, "/v1/jobs", h.ListJobs},
		{http.MethodPost, "/v1/jobs", h.CreateJob},
		{http.MethodGet, "/v1/jobs/{id}", h.GetJob},
		{http.MethodPatch, "/v1/jobs/{id}", h.UpdateJob},
		{http.MethodDelete, "/v1/jobs/{id}", h.DeleteJob},
		{http.MethodGet, "/v1/employer/jobs", h.ListEmployerJobs},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.fn); err != nil {
			return err
		}
	}
	return nil
}

// ListJobs returns the public listing of active jobs.
func (h *JobHandler) ListJobs(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	q := r.URL.Query()
	filter := models.JobFilter{
		Keyword:  q.Get("q"),
		Location: q.Get("location"),
	}
	var err error
	if filter.Limit, err = intParam(q.Get("limit")); err != nil {
		h.fail(w, r, status.Error(codes.InvalidArgument, "invalid limit"))
		return
	}
	if filter.Offset, err = intParam(q.Get("offset")); err != nil {
		h.fail(w, r, status.Error(codes.InvalidArgument, "invalid offset"))
		return
	}

	jobs, err := h.service.ListActiveJobs(r.Context(), filter)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, jobsToResponse(jobs))
}

// CreateJob publishes a job for the calling employer.
func (h *JobHandler) CreateJob(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req jobRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	created, err := h.service.CreateJob(r.Context(), actor.ID, requestToJob(&req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, jobToResponse(created))
}

// GetJob fetches a job; anonymous callers are allowed.
func (h *JobHandler) GetJob(w http.ResponseWriter, r *http.Request, params map[string]string) {
	id, err := parseID(params, "id", "job")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	actor, _ := requireActor(r.Context())

	job, err := h.service.GetJob(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, jobToResponse(job))
}

// UpdateJob applies a partial update to the caller's job.
func (h *JobHandler) UpdateJob(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := parseID(params, "id", "job")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req jobRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	updated, err := h.service.UpdateJob(r.Context(), requestToJobUpdate(&req, id), actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, jobToResponse(updated))
}

// DeleteJob removes the caller's job unless applications still reference it.
func (h *JobHandler) DeleteJob(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := parseID(params, "id", "job")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	err = h.service.DeleteJob(r.Context(), id, actor.ID)
	var blocked *e.JobHasApplicationsError
	switch {
	case errors.As(err, &blocked):
		h.respond(w, r, http.StatusConflict, jobConflictResponse{
			Code:                 int(codes.FailedPrecondition),
			Message:              "job has applications; deactivate it instead",
			BlockingApplications: blocked.Count,
		})
	case err != nil:
		h.fail(w, r, err)
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// ListEmployerJobs returns every job of the calling employer with application counts.
func (h *JobHandler) ListEmployerJobs(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployer)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	jobs, err := h.service.ListEmployerJobs(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, employerJobsToResponse(jobs))
}

func intParam(raw string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
