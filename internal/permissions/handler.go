package permissions

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/weighops/weighops/internal/authz"
	"github.com/weighops/weighops/internal/platform/httpx"
	"github.com/weighops/weighops/internal/shared"
)

// Handler exposes the permission catalog over HTTP.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	authorize *authz.Authorizer
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, service *Service, authorize *authz.Authorizer) *Handler {
	return &Handler{logger: logger, service: service, authorize: authorize, validator: validator.New()}
}

// MountRoutes registers permission routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("permission.view"))
		r.Get("/", h.list)
		r.Get("/{code}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("permission.edit"))
		r.Post("/", h.create)
		r.Put("/{code}", h.update)
		r.Delete("/{code}", h.deactivate)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	if category := r.URL.Query().Get("category"); category != "" {
		perms, err := h.service.ListByCategory(r.Context(), category)
		if err != nil {
			h.respondErr(w, err)
			return
		}
		httpx.JSON(w, http.StatusOK, perms)
		return
	}
	activeOnly := r.URL.Query().Get("active") == "true"
	perms, err := h.service.List(r.Context(), activeOnly)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perms)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	perm, err := h.service.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

type permissionForm struct {
	// 0x7C is '|', which the policy name grammar reserves as its separator.
	Code        string `json:"code" validate:"required,excludes=0x7C"`
	Name        string `json:"name" validate:"required"`
	Category    string `json:"category" validate:"required"`
	Description string `json:"description"`
	IsActive    *bool  `json:"is_active"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var form permissionForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	perm, err := h.service.Create(r.Context(), form.Code, form.Name, form.Category, form.Description)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, perm)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var form permissionForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	form.Code = chi.URLParam(r, "code")
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	isActive := true
	if form.IsActive != nil {
		isActive = *form.IsActive
	}
	perm, err := h.service.Update(r.Context(), form.Code, form.Name, form.Category, form.Description, isActive)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, perm)
}

func (h *Handler) deactivate(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Deactivate(r.Context(), chi.URLParam(r, "code")); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, authz.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, httpx.ErrValidation)
	default:
		h.logger.Error("permissions handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
