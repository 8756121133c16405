package shifts

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/weighops/weighops/internal/authz"
	"github.com/weighops/weighops/internal/platform/httpx"
	"github.com/weighops/weighops/internal/shared"
)

// Handler exposes shift and driver management over HTTP.
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

// MountRoutes registers shift routes. Opening and closing a shift is a
// distinct permission from inspecting one.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("shift.view"))
		r.Get("/stations/{stationID}/current", h.current)
		r.Get("/stations/{stationID}/history", h.history)
		r.Get("/{id}/drivers", h.roster)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("shift.manage"))
		r.Post("/stations/{stationID}/open", h.open)
		r.Post("/{id}/close", h.close)
		r.Post("/{id}/drivers", h.assign)
		r.Delete("/{id}/drivers/{driverID}", h.unassign)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("driver.view"))
		r.Get("/drivers", h.drivers)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.authorize.Require("driver.edit"))
		r.Post("/drivers", h.registerDriver)
		r.Put("/drivers/{driverID}", h.updateDriver)
	})
}

type openForm struct {
	Notes string `json:"notes" validate:"max=500"`
}

func (h *Handler) open(w http.ResponseWriter, r *http.Request) {
	stationID, err := uuid.Parse(chi.URLParam(r, "stationID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	openedBy, err := uuid.Parse(identity.UserID)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	var form openForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	shift, err := h.service.Open(r.Context(), stationID, openedBy, form.Notes)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, shift)
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	identity := shared.IdentityFromContext(r.Context())
	closedBy, err := uuid.Parse(identity.UserID)
	if err != nil {
		httpx.RespondError(w, httpx.ErrUnauthorized)
		return
	}
	shift, err := h.service.Close(r.Context(), id, closedBy)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) current(w http.ResponseWriter, r *http.Request) {
	stationID, err := uuid.Parse(chi.URLParam(r, "stationID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	shift, err := h.service.Current(r.Context(), stationID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, shift)
}

func (h *Handler) history(w http.ResponseWriter, r *http.Request) {
	stationID, err := uuid.Parse(chi.URLParam(r, "stationID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	p := shared.NewPagination(page, perPage, 0)
	out, err := h.service.History(r.Context(), stationID, p)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type assignForm struct {
	DriverID string `json:"driver_id" validate:"required,uuid"`
}

func (h *Handler) assign(w http.ResponseWriter, r *http.Request) {
	shiftID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var form assignForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	driverID, _ := uuid.Parse(form.DriverID)
	assignment, err := h.service.AssignDriver(r.Context(), shiftID, driverID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, assignment)
}

func (h *Handler) unassign(w http.ResponseWriter, r *http.Request) {
	shiftID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	driverID, err := uuid.Parse(chi.URLParam(r, "driverID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	if err := h.service.UnassignDriver(r.Context(), shiftID, driverID); err != nil {
		h.respondErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) roster(w http.ResponseWriter, r *http.Request) {
	shiftID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	out, err := h.service.Roster(r.Context(), shiftID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

type driverForm struct {
	Name     string `json:"name" validate:"required,min=2"`
	License  string `json:"license" validate:"required,min=3"`
	Phone    string `json:"phone"`
	IsActive *bool  `json:"is_active"`
}

func (h *Handler) registerDriver(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	orgID, err := uuid.Parse(identity.OrgID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "caller has no organization")
		return
	}
	var form driverForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	driver, err := h.service.RegisterDriver(r.Context(), orgID, form.Name, form.License, form.Phone)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, driver)
}

func (h *Handler) updateDriver(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "driverID"))
	if err != nil {
		httpx.RespondError(w, httpx.ErrNotFound)
		return
	}
	var form driverForm
	if err := httpx.DecodeJSON(r, &form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(form); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	isActive := true
	if form.IsActive != nil {
		isActive = *form.IsActive
	}
	driver, err := h.service.UpdateDriver(r.Context(), id, form.Name, form.License, form.Phone, isActive)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, driver)
}

func (h *Handler) drivers(w http.ResponseWriter, r *http.Request) {
	identity := shared.IdentityFromContext(r.Context())
	orgID, err := uuid.Parse(identity.OrgID)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "caller has no organization")
		return
	}
	out, err := h.service.Drivers(r.Context(), orgID)
	if err != nil {
		h.respondErr(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondErr(w http.ResponseWriter, err error) {
	switch {
	case IsConflict(err):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrNotFound):
		httpx.RespondError(w, httpx.ErrNotFound)
	case errors.Is(err, shared.ErrDuplicate):
		httpx.RespondError(w, httpx.ErrDuplicate)
	case errors.Is(err, httpx.ErrValidation):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("shifts handler", slog.Any("error", err))
		httpx.RespondError(w, err)
	}
}
