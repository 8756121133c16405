package stations

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/weighops/weighops/internal/authz"
	"github.com/weighops/weighops/internal/platform/httpx"
	"github.com/weighops/weighops/internal/shared"
)

// Handler exposes station management over HTTP.
type Handler struct {
	logger    *slog.Logger
	repo      *Repository
	authorize *authz.Authorizer
	validator *validator.Validate
}

// NewHandler constructs a Handler.
func NewHandler(logger *slog.Logger, repo *Repository, authorize *authz.Authorizer) *Handler {
	return &Handler{logger: logger, repo: repo, authorize: authorize, validator: validator.New()}
}

// MountRoutes registers station routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("station.view"))
		r.Get("/", h.list)
		r.Get("/{id}", h.get)
		r.Get("/{id}/departments", h.departments)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("station.edit"))
		r.Post("/", h.create)
		r.Put("/{id}", h.update)
		r.Post("/{id}/departments", h.addDepartment)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	id := shared.IdentityFromContext(r.Context())
	orgID, err := uuid.Parse(id.OrgID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "caller has no organization")
		return
	}
	out, err := h.repo.ListByOrg(r.Context(), orgID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	station, err := h.repo.Get(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, station)
}

func (h *Handler) departments(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	out, err := h.repo.Departments(r.Context(), id)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type stationForm struct {
	Code     string `json:"code" validate:"required,min=2,max=12"`
	Name     string `json:"name" validate:"required,min=2"`
	Location string `json:"location"`
	IsActive *bool  `json:"is_active"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	orgID, err := uuid.Parse(identity.OrgID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "caller has no organization")
		return
	}
	var form stationForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	station, err := h.repo.Create(r.Context(), orgID, form.Code, form.Name, form.Location)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, station)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var form stationForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	isActive := true
	if form.IsActive != nil {
		isActive = *form.IsActive
	}
	station, err := h.repo.Update(r.Context(), id, form.Name, form.Location, isActive)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, station)
}

type departmentForm struct {
	Name string `json:"name" validate:"required,min=2"`
}

func (h *Handler) addDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var form departmentForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	dept, err := h.repo.AddDepartment(r.Context(), id, form.Name)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, dept)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, httpx.ErrValidation):
		httpx.RespondError(w, httpx.ErrValidation)
	default:
		h.logger.Error("stations handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
