package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	"clinic/internal/schedules/service"
	"clinic/pkg/auth"
	httputil "clinic/pkg/http"
	"clinic/pkg/logger"
	"clinic/pkg/middleware"
	"clinic/pkg/model"
)

type TemplateHandler struct {
	service service.TemplateService
	log     *logger.Logger
}

func NewTemplateHandler(service service.TemplateService, log *logger.Logger) *TemplateHandler {
	return &TemplateHandler{
		service: service,
		log:     log,
	}
}

func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var t model.ScheduleTemplate
	if err := json.NewDecoder(r.Body).Decode(&t); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Create", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Create(r.Context(), &t); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Create", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, t); err != nil {
		h.log.Error("failed to write created response", "handler", "Create", "operation", "WriteCreated", "error", err)
	}
}

func (h *TemplateHandler) GetByID(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "GetByID", "operation", "WriteJSON", "error", err)
		}
		return
	}

	t, err := h.service.GetByID(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "GetByID", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, t); err != nil {
		h.log.Error("failed to write success response", "handler", "GetByID", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TemplateHandler) ListByDoctor(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	doctorID := strings.TrimSpace(ps.ByName("doctorID"))
	if doctorID == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Doctor ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "ListByDoctor", "operation", "WriteJSON", "error", err)
		}
		return
	}

	templates, err := h.service.ListByDoctor(r.Context(), doctorID)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListByDoctor", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, templates); err != nil {
		h.log.Error("failed to write success response", "handler", "ListByDoctor", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "Update", "operation", "WriteJSON", "error", err)
		}
		return
	}

	var updates model.ScheduleTemplateUpdate
	if err := json.NewDecoder(r.Body).Decode(&updates); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Update", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := h.service.Update(r.Context(), id, &updates); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Update", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *TemplateHandler) Toggle(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "Toggle", "operation", "WriteJSON", "error", err)
		}
		return
	}

	t, err := h.service.Toggle(r.Context(), id)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Toggle", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, t); err != nil {
		h.log.Error("failed to write success response", "handler", "Toggle", "operation", "WriteSuccess", "error", err)
	}
}

func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "Delete", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Delete", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *TemplateHandler) BulkGenerate(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req service.BulkGenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if writeErr := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "Invalid request body",
		}); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "BulkGenerate", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	created, err := h.service.BulkGenerate(r.Context(), &req)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "BulkGenerate", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteCreated(w, created); err != nil {
		h.log.Error("failed to write created response", "handler", "BulkGenerate", "operation", "WriteCreated", "error", err)
	}
}

func (h *TemplateHandler) RegisterRoutes(router *httprouter.Router) {
	manage := []auth.Role{auth.RoleDoctor, auth.RoleAdmin}

	router.POST("/api/v1/schedules", middleware.RequireRole(h.Create, manage...))
	router.POST("/api/v1/schedules/bulk", middleware.RequireRole(h.BulkGenerate, manage...))
	router.GET("/api/v1/schedules/doctor/:doctorID", h.ListByDoctor)
	router.GET("/api/v1/schedules/id/:id", h.GetByID)
	router.PATCH("/api/v1/schedules/id/:id", middleware.RequireRole(h.Update, manage...))
	router.POST("/api/v1/schedules/id/:id/toggle", middleware.RequireRole(h.Toggle, manage...))
	router.DELETE("/api/v1/schedules/id/:id", middleware.RequireRole(h.Delete, manage...))
}
