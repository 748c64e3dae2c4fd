package handler

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	"clinic/internal/notify/service"
	apperrors "clinic/pkg/errors"
	httputil "clinic/pkg/http"
	"clinic/pkg/logger"
)

type NotificationHandler struct {
	service service.NotificationService
	log     *logger.Logger
}

func NewNotificationHandler(service service.NotificationService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		service: service,
		log:     log,
	}
}

func (h *NotificationHandler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	limit, offset, err := httputil.ExtractLimitOffset(r)
	if err != nil {
		if writeErr := httputil.WriteError(w, apperrors.InvalidInput(err.Error())); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	notifications, totalCount, err := h.service.ListForUser(r.Context(), limit, offset)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "ListMine", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WritePaginated(w, notifications, totalCount, limit, offset); err != nil {
		h.log.Error("failed to write paginated response", "handler", "ListMine", "operation", "WritePaginated", "error", err)
	}
}

type unreadCountResponse struct {
	Count int64 `json:"count"`
}

func (h *NotificationHandler) UnreadCount(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	count, err := h.service.UnreadCount(r.Context())
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "UnreadCount", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, unreadCountResponse{Count: count}); err != nil {
		h.log.Error("failed to write success response", "handler", "UnreadCount", "operation", "WriteSuccess", "error", err)
	}
}

func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	id := ps.ByName("id")
	if id == "" {
		if err := httputil.WriteJSON(w, http.StatusBadRequest, httputil.ErrorResponse{
			Error: "ID parameter is required",
		}); err != nil {
			h.log.Error("failed to write bad request response", "handler", "MarkRead", "operation", "WriteJSON", "error", err)
		}
		return
	}

	if err := h.service.MarkRead(r.Context(), id); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "MarkRead", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	httputil.WriteNoContent(w)
}

func (h *NotificationHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/api/v1/notifications", h.ListMine)
	router.GET("/api/v1/notifications/unread-count", h.UnreadCount)
	router.POST("/api/v1/notifications/id/:id/read", h.MarkRead)
}
