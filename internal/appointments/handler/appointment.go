package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"clinic/internal/appointments/service"
	"clinic/pkg/auth"
	apperrors "clinic/pkg/errors"
	httputil "clinic/pkg/http"
	"clinic/pkg/logger"
	"clinic/pkg/middleware"
	"clinic/pkg/model"
)

type AppointmentHandler struct {
	service service.AppointmentService
	log     *logger.Logger
}

func NewAppointmentHandler(service service.AppointmentService, log *logger.Logger) *AppointmentHandler {
	return &AppointmentHandler{
		service: service,
		log:     log,
	}
}

func (h *AppointmentHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var a model.Appointment
	if err := json.NewDecoder(r.Body).Decode(&a); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &a); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, a); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *AppointmentHandler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "Cancel", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := h.service.Cancel(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Cancel", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

type statusUpdateRequest struct {
	Status model.AppointmentStatus `json:"status"`
}

func (h *AppointmentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "UpdateStatus", "operation", "WriteJSON", "error", err)
		}
		return
	}

	var req statusUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "UpdateStatus", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UpdateStatus", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *AppointmentHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "GetByID", "operation", "WriteJSON", "error", err)
		}
		return
	}

	a, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, a); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput(err.Error())); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	appointments, totalCount, err := h.service.ListMine(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, appointments, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

func (h *AppointmentHandler) ListForDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorID"))
	dateStr := r.URL.Query().Get("date")

	day, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'date' query parameter must be YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListForDoctor", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	appointments, err := h.service.ListForDoctor(r.Context(), doctorID, day)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListForDoctor", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appointments); err != nil {
		h.log.Error("failed to write success response", "handler", "ListForDoctor", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) ListUpcomingForDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorID"))

	days := 0
	if daysStr := r.URL.Query().Get("days"); daysStr != "" {
		var err error
		days, err = strconv.Atoi(daysStr)
		if err != nil {
			if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'days' query parameter must be an integer")); writeErr != nil {
				h.log.Error("failed to write error response", "handler", "ListUpcomingForDoctor", "operation", "WriteError", "error", writeErr)
			}
			return
		}
	}

	appointments, err := h.service.ListUpcomingForDoctor(r.Context(), doctorID, days)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListUpcomingForDoctor", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, appointments); err != nil {
		h.log.Error("failed to write success response", "handler", "ListUpcomingForDoctor", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AppointmentHandler) RegisterRoutes(router *httprouter.Router) {
	doctorSide := []auth.Role{auth.RoleDoctor, auth.RoleAdmin}

	router.POST("/api/v1/appointments", middleware.RequireRole(h.Create, auth.RolePatient))
	router.GET("/api/v1/appointments/mine", middleware.RequireRole(h.ListMine, auth.RolePatient))
	router.GET("/api/v1/appointments/id/:id", h.GetByID)
	router.POST("/api/v1/appointments/id/:id/cancel", middleware.RequireRole(h.Cancel, auth.RolePatient, auth.RoleAdmin))
	router.PATCH("/api/v1/appointments/id/:id/status", middleware.RequireRole(h.UpdateStatus, doctorSide...))
	router.GET("/api/v1/appointments/doctor/:doctorID", middleware.RequireRole(h.ListForDoctor, doctorSide...))
	router.GET("/api/v1/appointments/doctor/:doctorID/upcoming", middleware.RequireRole(h.ListUpcomingForDoctor, doctorSide...))
}
