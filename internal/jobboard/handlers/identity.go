package handlers

import (
	"net/http"

	"github.com/gartstein/jobboard/internal/jobboard/models"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// IdentityHandler serves registration, login and the current user.
type IdentityHandler struct {
	base
	service IdentityController
	limiter func(http.Handler) http.Handler
}

// NewIdentityHandler constructs an IdentityHandler. limiter, when not nil,
// wraps the login endpoint.
func NewIdentityHandler(service IdentityController, limiter func(http.Handler) http.Handler, logger *zap.Logger) *IdentityHandler {
	return &IdentityHandler{
		base:    base{logger: logger.Named("identity_handler")},
		service: service,
		limiter: limiter,
	}
}

// Register mounts the identity routes on mux.
func (h *IdentityHandler) Register(mux *runtime.ServeMux) error {
	h.mux = mux

	var login http.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h.Login(w, r, nil)
	})
	if h.limiter != nil {
		login = h.limiter(login)
	}

	if err := mux.HandlePath(http.MethodPost, "/v1/auth/register", h.SignUp); err != nil {
		return err
	}
	err := mux.HandlePath(http.MethodPost, "/v1/auth/login", func(w http.ResponseWriter, r *http.Request, _ map[string]string) {
		login.ServeHTTP(w, r)
	})
	if err != nil {
		return err
	}
	return mux.HandlePath(http.MethodGet, "/v1/me", h.Me)
}

// SignUp registers a new employer or employee.
func (h *IdentityHandler) SignUp(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req registerRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.service.Register(r.Context(), req.Email, req.Password, req.Name, models.Role(req.Role))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusCreated, userToResponse(user))
}

// Login exchanges credentials for a bearer token.
func (h *IdentityHandler) Login(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	var req loginRequest
	if err := h.decode(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}

	token, user, err := h.service.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, loginResponse{Token: token, User: userToResponse(user)})
}

// Me returns the authenticated user.
func (h *IdentityHandler) Me(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	actor, err := requireActor(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	user, err := h.service.GetUser(r.Context(), actor.ID)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.respond(w, r, http.StatusOK, userToResponse(user))
}
