package handlers

import (
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const notFoundOrDenied = "application not found or access denied"

// ApplicationHandler serves the application ledger.
type ApplicationHandler struct {
	base
	service ApplicationController
}

// NewApplicationHandler constructs a new ApplicationHandler with the given service and logger.
func NewApplicationHandler(service ApplicationController, logger *zap.Logger) *ApplicationHandler {
	return &ApplicationHandler{
		base:    base{logger: logger.Named("application_handler")},
		service: service,
	}
}

// Register mounts the application routes on mux.
func (h *ApplicationHandler) Register(mux *runtime.ServeMux) error {
	h.mux = mux
	routes := []struct {
		method, pattern string
		fn              runtime.HandlerFunc
	}{
		{http.MethodPost, "/v1/jobs/{id}/applications", h.Apply},
		{http.MethodGet, "/v1/employee/applications", h.ListEmployeeApplications},
		{http.MethodGet, "/v1/employer/applications", h.ListEmployerApplications},
		{http.MethodGet, "/v1/applications/{id}", h.GetApplication},
		{http.MethodPatch, "/v1/applications/{id}/status", h.UpdateStatus},
		{http.MethodDelete, "/v1/applications/{id}", h.DeleteApplication},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.fn); err != nil {
			return err
		}
	}
	return nil
}

// Apply submits the calling employee's application to a job.
func (h *ApplicationHandler) Apply(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployee)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	jobID, err := parseID(params, "id", "job")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req applyRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	app, err := h.service.Apply(r.Context(), jobID, actor.ID, requestToAttachments(&req))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, applicationToResponse(app))
}

// ListEmployeeApplications returns the caller's applications with status counts.
func (h *ApplicationHandler) ListEmployeeApplications(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployee)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	views, stats, err := h.service.ListByEmployee(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	resp := viewsToResponse(views)
	resp.Stats = &stats
	h.respond(w, r, http.StatusOK, resp)
}

// ListEmployerApplications returns applications to the caller's jobs.
func (h *ApplicationHandler) ListEmployerApplications(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployer)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	views, err := h.service.ListByEmployer(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, viewsToResponse(views))
}

// GetApplication returns an application visible to the caller.
func (h *ApplicationHandler) GetApplication(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := parseID(params, "id", "application")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	view, err := h.service.GetApplicationForActor(r.Context(), id, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, viewToResponse(view))
}

// UpdateStatus moves an application to a new status.
func (h *ApplicationHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployer, models.RoleEmployee)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := parseID(params, "id", "application")
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var req statusRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	newStatus := models.Status(req.Status)
	if !newStatus.Valid() {
		h.fail(w, r, status.Errorf(codes.InvalidArgument, "unknown status %q", req.Status))
		return
	}

	ok, err := h.service.UpdateStatus(r.Context(), id, newStatus, actor)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, status.Error(codes.NotFound, notFoundOrDenied))
		return
	}
	h.respond(w, r, http.StatusOK, statusResponse{Updated: true})
}

// DeleteApplication removes an application on behalf of the owning employer.
func (h *ApplicationHandler) DeleteApplication(w http.ResponseWriter, r *http.Request, params map[string]string) {
	actor, err := requireActor(r.Context(), models.RoleEmployer)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	id, err := parseID(params, "id", "application")
	if err != nil {
		h.fail(w, r, err)
		return
	}

	ok, err := h.service.Delete(r.Context(), id, actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if !ok {
		h.fail(w, r, status.Error(codes.NotFound, notFoundOrDenied))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
