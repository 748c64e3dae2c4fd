package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"
	"go.mongodb.org/mongo-driver/mongo"

	httputil "clinic/pkg/http"
	"clinic/pkg/logger"
)

// BrokerChecker reports whether the event broker connection is usable.
// Nil checkers are allowed for deployments that run without Kafka.
type BrokerChecker interface {
	Healthy() bool
}

type HealthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database,omitempty"`
	Broker   string `json:"broker,omitempty"`
}

type HealthHandler struct {
	mongoClient *mongo.Client
	broker      BrokerChecker
	log         *logger.Logger
}

func NewHealthHandler(mongoClient *mongo.Client, broker BrokerChecker, log *logger.Logger) *HealthHandler {
	return &HealthHandler{
		mongoClient: mongoClient,
		broker:      broker,
		log:         log,
	}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	if err := httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status: "ok",
	}); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Health", "operation", "WriteJSON", "error", err)
	}
}

// Ready gates traffic on the database. A degraded broker is reported but
// does not fail readiness: bookings still work, events just queue up lost.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := HealthResponse{Status: "ready", Database: "ok"}
	if h.broker != nil {
		resp.Broker = "ok"
		if !h.broker.Healthy() {
			resp.Broker = "degraded"
		}
	}

	if err := h.mongoClient.Ping(ctx, nil); err != nil {
		h.log.Error("Database health check failed",
			"error", err,
			"path", r.URL.Path,
		)
		resp.Status = "unavailable"
		resp.Database = "error"
		if writeErr := httputil.WriteJSON(w, http.StatusServiceUnavailable, resp); writeErr != nil {
			h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteJSON(w, http.StatusOK, resp); err != nil {
		h.log.Error("failed to write JSON response", "handler", "Ready", "operation", "WriteJSON", "error", err)
	}
}

func (h *HealthHandler) RegisterRoutes(router *httprouter.Router) {
	router.GET("/health", h.Health)
	router.GET("/ready", h.Ready)
}
