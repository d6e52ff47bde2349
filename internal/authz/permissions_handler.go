package authz

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/havencrm/havencrm/internal/platform/httpx"
)

// PermissionsHandler exposes the administrative API over the three override
// collections. Every route is super_admin-gated by MountRoutes.
type PermissionsHandler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
	guard    Middleware
}

// NewPermissionsHandler builds a PermissionsHandler instance.
func NewPermissionsHandler(logger *slog.Logger, service *Service, guard Middleware) *PermissionsHandler {
	return &PermissionsHandler{
		logger:   logger,
		service:  service,
		validate: validator.New(),
		guard:    guard,
	}
}

// MountRoutes registers the permission administration routes.
func (h *PermissionsHandler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireSuperAdmin)
		r.Get("/roles/{role}", h.getRoleSet)
		r.Put("/roles/{role}", h.putRoleSet)
		r.Get("/agencies/{agencyID}", h.getAgencySet)
		r.Put("/agencies/{agencyID}", h.putAgencySet)
		r.Delete("/agencies/{agencyID}", h.deleteAgencySet)
		r.Get("/users/{userID}", h.getUserSet)
		r.Put("/users/{userID}", h.putUserSet)
		r.Delete("/users/{userID}", h.deleteUserSet)
	})
}

type matrixPayload struct {
	Matrix json.RawMessage `json:"matrix" validate:"required"`
}

type matrixResponse struct {
	Matrix Matrix `json:"matrix"`
}

func (h *PermissionsHandler) decodeMatrix(w http.ResponseWriter, r *http.Request) (Matrix, bool) {
	var payload matrixPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return nil, false
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "matrix is required")
		return nil, false
	}
	matrix, err := DecodeMatrix(payload.Matrix)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return nil, false
	}
	return matrix, true
}

func (h *PermissionsHandler) pathRole(w http.ResponseWriter, r *http.Request) (Role, bool) {
	role, err := ParseRole(chi.URLParam(r, "role"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return "", false
	}
	if role == RoleSuperAdmin {
		// super_admin never consults a stored matrix.
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "super_admin has no permission set")
		return "", false
	}
	return role, true
}

func (h *PermissionsHandler) getRoleSet(w http.ResponseWriter, r *http.Request) {
	role, ok := h.pathRole(w, r)
	if !ok {
		return
	}
	matrix, found, err := h.service.RolePermissionSet(r.Context(), role)
	if err != nil {
		h.serverError(w, "get role set", err)
		return
	}
	if !found {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no permission set for role")
		return
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{Matrix: matrix})
}

func (h *PermissionsHandler) putRoleSet(w http.ResponseWriter, r *http.Request) {
	role, ok := h.pathRole(w, r)
	if !ok {
		return
	}
	matrix, ok := h.decodeMatrix(w, r)
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.SetRolePermissionSet(r.Context(), actor, role, matrix); err != nil {
		h.serverError(w, "put role set", err)
		return
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{Matrix: matrix})
}

func (h *PermissionsHandler) getAgencySet(w http.ResponseWriter, r *http.Request) {
	tenant := TenantID(chi.URLParam(r, "agencyID"))
	matrix, found, err := h.service.AgencyPermissionSet(r.Context(), tenant)
	if err != nil {
		h.serverError(w, "get agency set", err)
		return
	}
	if !found {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no permission set for agency")
		return
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{Matrix: matrix})
}

func (h *PermissionsHandler) putAgencySet(w http.ResponseWriter, r *http.Request) {
	tenant := TenantID(chi.URLParam(r, "agencyID"))
	matrix, ok := h.decodeMatrix(w, r)
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.SetAgencyPermissionSet(r.Context(), actor, tenant, matrix); err != nil {
		h.serverError(w, "put agency set", err)
		return
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{Matrix: matrix})
}

func (h *PermissionsHandler) deleteAgencySet(w http.ResponseWriter, r *http.Request) {
	tenant := TenantID(chi.URLParam(r, "agencyID"))
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.DeleteAgencyPermissionSet(r.Context(), actor, tenant); err != nil {
		if errors.Is(err, ErrOverrideNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no permission set for agency")
			return
		}
		h.serverError(w, "delete agency set", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionsHandler) getUserSet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	matrix, found, err := h.service.UserPermissionSet(r.Context(), userID)
	if err != nil {
		h.serverError(w, "get user set", err)
		return
	}
	if !found {
		httpx.Problem(w, http.StatusNotFound, "Not Found", "no permission set for user")
		return
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{Matrix: matrix})
}

func (h *PermissionsHandler) putUserSet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	matrix, ok := h.decodeMatrix(w, r)
	if !ok {
		return
	}
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.SetUserPermissionSet(r.Context(), actor, userID, matrix); err != nil {
		h.serverError(w, "put user set", err)
		return
	}
	httpx.JSON(w, http.StatusOK, matrixResponse{Matrix: matrix})
}

func (h *PermissionsHandler) deleteUserSet(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userID")
	actor, _ := ActorFromContext(r.Context())
	if err := h.service.DeleteUserPermissionSet(r.Context(), actor, userID); err != nil {
		if errors.Is(err, ErrOverrideNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "no permission set for user")
			return
		}
		h.serverError(w, "delete user set", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *PermissionsHandler) serverError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
