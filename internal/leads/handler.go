package leads

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/havencrm/havencrm/internal/authz"
	"github.com/havencrm/havencrm/internal/platform/httpx"
	"github.com/havencrm/havencrm/internal/shared"
)

// Handler serves the lead routes. Module-level access is enforced by the
// authz guard on each route; single-document operations additionally run the
// tenant isolation guard and the entry-level evaluator on the loaded lead.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	validate *validator.Validate
	guard    authz.Middleware
}

// NewHandler builds a lead handler.
func NewHandler(logger *slog.Logger, repo Repository, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, repo: repo, validate: validator.New(), guard: guard}
}

// MountRoutes registers lead routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Require(authz.ModuleLeads, authz.ActionView)).Get("/", h.list)
	r.With(h.guard.Require(authz.ModuleLeads, authz.ActionCreate)).Post("/", h.create)
	r.With(h.guard.Require(authz.ModuleLeads, authz.ActionView)).Get("/{leadID}", h.get)
	r.With(h.guard.Require(authz.ModuleLeads, authz.ActionEdit)).Put("/{leadID}", h.update)
	r.With(h.guard.Require(authz.ModuleLeads, authz.ActionDelete)).Delete("/{leadID}", h.delete)
	r.With(h.guard.RequireSuperAdmin).Put("/{leadID}/permissions", h.setPermissions)
}

type leadPayload struct {
	Name       string `json:"name" validate:"required"`
	Email      string `json:"email" validate:"omitempty,email"`
	Phone      string `json:"phone"`
	Source     string `json:"source"`
	Status     string `json:"status" validate:"omitempty,oneof=new contacted qualified converted lost"`
	Message    string `json:"message"`
	AssignedTo string `json:"assigned_to"`
	// AgencyID is honoured for super_admin only; everyone else creates leads
	// in their own tenant.
	AgencyID string `json:"agency_id"`
	// EntryPermissions seeds the per-document overrides at creation time.
	EntryPermissions json.RawMessage `json:"entry_permissions"`
}

type leadResponse struct {
	ID         string `json:"id"`
	AgencyID   string `json:"agency_id"`
	Name       string `json:"name"`
	Email      string `json:"email,omitempty"`
	Phone      string `json:"phone,omitempty"`
	Source     string `json:"source,omitempty"`
	Status     string `json:"status"`
	Message    string `json:"message,omitempty"`
	AssignedTo string `json:"assigned_to,omitempty"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

func toResponse(lead *Lead) leadResponse {
	return leadResponse{
		ID:         lead.ID.String(),
		AgencyID:   string(lead.AgencyID.ID),
		Name:       lead.Name,
		Email:      lead.Email,
		Phone:      lead.Phone,
		Source:     lead.Source,
		Status:     string(lead.Status),
		Message:    lead.Message,
		AssignedTo: lead.AssignedTo,
		CreatedAt:  lead.CreatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
		UpdatedAt:  lead.UpdatedAt.UTC().Format("2006-01-02T15:04:05Z07:00"),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.ActorFromContext(r.Context())

	tenant := actor.TenantID
	if actor.Role == authz.RoleSuperAdmin {
		tenant = ""
	} else if tenant == "" {
		// Tenant-scoped documents require a tenant-bound actor.
		d := authz.Denied(authz.ReasonActorHasNoTenant)
		httpx.Deny(w, http.StatusForbidden, string(d.Reason), d.Context)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	pagination := shared.NewPagination(page, perPage, 0)

	result, total, err := h.repo.List(r.Context(), tenant, pagination)
	if err != nil {
		h.serverError(w, "list leads", err)
		return
	}
	pagination = shared.NewPagination(pagination.Page, pagination.PerPage, total)

	items := make([]leadResponse, 0, len(result))
	for i := range result {
		items = append(items, toResponse(&result[i]))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"leads": items,
		"pagination": map[string]int{
			"page":        pagination.Page,
			"per_page":    pagination.PerPage,
			"total":       pagination.Total,
			"total_pages": pagination.TotalPages,
		},
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor, _ := authz.ActorFromContext(r.Context())

	var payload leadPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	tenant := actor.TenantID
	if actor.Role == authz.RoleSuperAdmin && payload.AgencyID != "" {
		tenant = authz.TenantID(payload.AgencyID)
	}
	if tenant == "" {
		d := authz.Denied(authz.ReasonActorHasNoTenant)
		httpx.Deny(w, http.StatusForbidden, string(d.Reason), d.Context)
		return
	}

	perms, err := authz.DecodeEntryPermissions(payload.EntryPermissions)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	status := StatusNew
	if payload.Status != "" {
		status = Status(payload.Status)
	}
	lead := &Lead{
		ID:          uuid.New(),
		AgencyID:    authz.TenantOf(tenant),
		Name:        payload.Name,
		Email:       payload.Email,
		Phone:       payload.Phone,
		Source:      payload.Source,
		Status:      status,
		Message:     payload.Message,
		AssignedTo:  payload.AssignedTo,
		Permissions: perms,
	}
	if err := h.repo.Create(r.Context(), lead); err != nil {
		h.serverError(w, "create lead", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(lead))
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadGuarded(w, r, authz.ActionView)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(lead))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadGuarded(w, r, authz.ActionEdit)
	if !ok {
		return
	}

	var payload leadPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	lead.Name = payload.Name
	lead.Email = payload.Email
	lead.Phone = payload.Phone
	lead.Source = payload.Source
	lead.Message = payload.Message
	lead.AssignedTo = payload.AssignedTo
	if payload.Status != "" {
		lead.Status = Status(payload.Status)
	}
	if err := h.repo.Update(r.Context(), lead); err != nil {
		h.serverError(w, "update lead", err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(lead))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	lead, ok := h.loadGuarded(w, r, authz.ActionDelete)
	if !ok {
		return
	}
	if err := h.repo.Delete(r.Context(), lead.ID); err != nil {
		h.serverError(w, "delete lead", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) setPermissions(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	var payload struct {
		EntryPermissions json.RawMessage `json:"entry_permissions" validate:"required"`
	}
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "entry_permissions is required")
		return
	}
	perms, err := authz.DecodeEntryPermissions(payload.EntryPermissions)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	if err := h.repo.SetEntryPermissions(r.Context(), id, perms); err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "lead not found")
			return
		}
		h.serverError(w, "set lead permissions", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadGuarded loads the target lead and applies the per-document checks that
// follow a module-gate allow: tenant isolation first, then the entry-level
// override for the actor's role.
func (h *Handler) loadGuarded(w http.ResponseWriter, r *http.Request, action authz.Action) (*Lead, bool) {
	id, ok := h.pathID(w, r)
	if !ok {
		return nil, false
	}
	lead, err := h.repo.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", "lead not found")
			return nil, false
		}
		h.serverError(w, "load lead", err)
		return nil, false
	}

	actor, _ := authz.ActorFromContext(r.Context())
	if d := authz.CheckTenantIsolation(lead, actor); !d.Allow {
		httpx.Deny(w, http.StatusForbidden, string(d.Reason), d.Context)
		return nil, false
	}
	if d := authz.EvaluateEntry(lead, actor, action); !d.Allow {
		httpx.Deny(w, http.StatusForbidden, string(d.Reason), d.Context)
		return nil, false
	}
	return lead, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "leadID"))
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid lead id")
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) serverError(w http.ResponseWriter, op string, err error) {
	if h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
}
