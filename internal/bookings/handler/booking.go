package handler

import (
	"net/http"

	"eventa/internal/bookings/service"
	"eventa/internal/bookings/validator"
	"eventa/pkg/auth"
	apperrors "eventa/pkg/errors"
	httputil "eventa/pkg/http"
	"eventa/pkg/logger"
	"eventa/pkg/middleware"
	"eventa/pkg/model"

	"github.com/julienschmidt/httprouter"
)

type BookingHandler struct {
	service     service.BookingService
	validator   *validator.BookingValidator
	guard       *middleware.Guard
	defaultDays int
	log         *logger.Logger
}

func NewBookingHandler(
	service service.BookingService,
	validator *validator.BookingValidator,
	guard *middleware.Guard,
	defaultDays int,
	log *logger.Logger,
) *BookingHandler {
	return &BookingHandler{
		service:     service,
		validator:   validator,
		guard:       guard,
		defaultDays: defaultDays,
		log:         log,
	}
}

func (h *BookingHandler) Admit(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req model.BookingRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.writeError(w, "Admit", err)
		return
	}

	admission, err := h.service.Admit(r.Context(), identity(r), &req)
	if err != nil {
		h.writeError(w, "Admit", err)
		return
	}

	if err := httputil.WriteCreated(w, admission); err != nil {
		h.log.Error("failed to write created response", "handler", "Admit", "operation", "WriteCreated", "error", err)
	}
}

func (h *BookingHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	bookings, err := h.service.ListMine(r.Context(), identity(r))
	if err != nil {
		h.writeError(w, "ListMine", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMine", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	booking, err := h.service.GetByID(r.Context(), identity(r), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "GetByID", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Transition(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	var update model.BookingStatusUpdate
	if err := httputil.DecodeJSON(r, &update); err != nil {
		h.writeError(w, "Transition", err)
		return
	}

	booking, err := h.service.Transition(r.Context(), identity(r), ps.ByName("id"), &update)
	if err != nil {
		h.writeError(w, "Transition", err)
		return
	}

	if err := httputil.WriteSuccess(w, booking); err != nil {
		h.log.Error("failed to write success response", "handler", "Transition", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) ListByEvent(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	bookings, err := h.service.ListByEvent(r.Context(), ps.ByName("id"))
	if err != nil {
		h.writeError(w, "ListByEvent", err)
		return
	}

	if err := httputil.WriteSuccess(w, bookings); err != nil {
		h.log.Error("failed to write success response", "handler", "ListByEvent", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Remind(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, err := h.deadlineDays(r)
	if err != nil {
		h.writeError(w, "Remind", err)
		return
	}

	results, err := h.service.Remind(r.Context(), days)
	if err != nil {
		h.writeError(w, "Remind", err)
		return
	}

	if err := httputil.WriteSuccess(w, results); err != nil {
		h.log.Error("failed to write success response", "handler", "Remind", "operation", "WriteSuccess", "error", err)
	}
}

func (h *BookingHandler) Purge(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	days, err := h.deadlineDays(r)
	if err != nil {
		h.writeError(w, "Purge", err)
		return
	}

	results, err := h.service.PurgeStale(r.Context(), days)
	if err != nil {
		h.writeError(w, "Purge", err)
		return
	}

	if err := httputil.WriteSuccess(w, results); err != nil {
		h.log.Error("failed to write success response", "handler", "Purge", "operation", "WriteSuccess", "error", err)
	}
}

// deadlineDays reads the optional {"days": n} override; an empty body
// selects the configured deadline.
func (h *BookingHandler) deadlineDays(r *http.Request) (int, error) {
	var req model.DeadlineRequest
	present, err := httputil.DecodeOptionalJSON(r, &req)
	if err != nil {
		return 0, err
	}
	if !present || req.Days == nil {
		return h.defaultDays, nil
	}
	if err := h.validator.ValidateDeadline(&req); err != nil {
		return 0, apperrors.Validation("Invalid deadline", validator.Details(err))
	}
	return *req.Days, nil
}

func (h *BookingHandler) writeError(w http.ResponseWriter, handler string, err error) {
	if writeErr := httputil.WriteError(w, err); writeErr != nil {
		h.log.Error("failed to write error response", "handler", handler, "operation", "WriteError", "error", writeErr)
	}
}

func identity(r *http.Request) auth.Identity {
	id, _ := auth.IdentityFrom(r.Context())
	return id
}

func (h *BookingHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/bookings", h.guard.Role(h.Admit, model.RoleCustomer))
	router.GET("/api/v1/bookings", h.guard.Role(h.ListMine, model.RoleCustomer))
	router.GET("/api/v1/bookings/id/:id", h.guard.Authenticated(h.GetByID))
	router.PATCH("/api/v1/bookings/id/:id", h.guard.Authenticated(h.Transition))
	router.GET("/api/v1/events/id/:id/bookings", h.guard.Role(h.ListByEvent, model.RoleAdmin))
	router.POST("/api/v1/internal/bookings/reminders", h.guard.Role(h.Remind, model.RoleAdmin))
	router.POST("/api/v1/internal/bookings/purge", h.guard.Role(h.Purge, model.RoleAdmin))
}
