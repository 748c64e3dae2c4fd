package handler

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"clinic/internal/waitlist/service"
	"clinic/pkg/auth"
	httputil "clinic/pkg/http"
	"clinic/pkg/logger"
	"clinic/pkg/middleware"
)

type WaitlistHandler struct {
	service service.WaitlistService
	log     *logger.Logger
}

func NewWaitlistHandler(service service.WaitlistService, log *logger.Logger) *WaitlistHandler {
	return &WaitlistHandler{
		service: service,
		log:     log,
	}
}

type joinResponse struct {
	Joined bool   `json:"joined"`
	ID     string `json:"id,omitempty"`
}

func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorID"))

	entry, err := h.service.Join(r.Context(), doctorID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Join", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	// A nil entry means the patient was already waiting; still a success.
	resp := joinResponse{Joined: true}
	if entry != nil {
		resp.ID = entry.ID
	}
	if err := httputil.WriteSuccess(w, resp); err != nil {
		h.log.Error("failed to write success response", "handler", "Join", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WaitlistHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	entries, err := h.service.ListMine(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "ListMine", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WaitlistHandler) PendingForDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorID"))

	entries, err := h.service.PendingForDoctor(r.Context(), doctorID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "PendingForDoctor", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, entries); err != nil {
		h.log.Error("failed to write success response", "handler", "PendingForDoctor", "operation", "WriteSuccess", "error", err)
	}
}

func (h *WaitlistHandler) RegisterRoutes(router *httprouter.Router) {
	router.POST("/api/v1/waitlist/doctor/:doctorID", middleware.RequireRole(h.Join, auth.RolePatient))
	router.GET("/api/v1/waitlist/mine", middleware.RequireRole(h.ListMine, auth.RolePatient))
	router.GET("/api/v1/waitlist/doctor/:doctorID/pending", middleware.RequireRole(h.PendingForDoctor, auth.RoleDoctor, auth.RoleAdmin))
}
