package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"clinic/internal/availability"
	apperrors "clinic/pkg/errors"
	httputil "clinic/pkg/http"
	"clinic/pkg/logger"
)

type AvailabilityHandler struct {
	service availability.Service
	log     *logger.Logger
}

func NewAvailabilityHandler(service availability.Service, log *logger.Logger) *AvailabilityHandler {
	return &AvailabilityHandler{
		service: service,
		log:     log,
	}
}

func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorID"))
	dateStr := r.URL.Query().Get("date")

	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'date' query parameter must be YYYY-MM-DD")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Slots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	slots, err := h.service.Slots(r.Context(), doctorID, date)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Slots", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, slots); err != nil {
		h.log.Error("failed to write success response", "handler", "Slots", "operation", "WriteSuccess", "error", err)
	}
}

type checkResponse struct {
	Available bool `json:"available"`
}

func (h *AvailabilityHandler) Check(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorID"))
	atStr := r.URL.Query().Get("date_time")

	at, err := time.Parse(time.RFC3339, atStr)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'date_time' query parameter must be RFC 3339")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	available, err := h.service.IsAvailable(r.Context(), doctorID, at)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Check", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, checkResponse{Available: available}); err != nil {
		h.log.Error("failed to write success response", "handler", "Check", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) Month(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorID"))
	query := r.URL.Query()

	year, err := strconv.Atoi(query.Get("year"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'year' query parameter must be an integer")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Month", "operation", "WriteError", "error", writeErr)
		}
		return
	}
	month, err := strconv.Atoi(query.Get("month"))
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput("'month' query parameter must be an integer")); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Month", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	days, err := h.service.MonthAvailability(r.Context(), doctorID, year, time.Month(month))
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Month", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, days); err != nil {
		h.log.Error("failed to write success response", "handler", "Month", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AvailabilityHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/availability/doctor/:doctorID/slots", h.Slots)
	router.GET("/api/v1/availability/doctor/:doctorID/check", h.Check)
	router.GET("/api/v1/availability/doctor/:doctorID/month", h.Month)
}
