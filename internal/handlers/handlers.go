package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"facility-checklist/internal/auth"
	"facility-checklist/internal/hub"
	"facility-checklist/internal/models"
	"facility-checklist/internal/storage"
)

// EventPublisher hands inspection change events to whatever applies them:
// JetStream when NATS is configured, the in-process processor otherwise.
type EventPublisher interface {
	PublishInspectionEvent(ctx context.Context, ev *models.InspectionEvent) error
}

type Handler struct {
	storage *storage.Storage
	events  EventPublisher
	hub     *hub.Hub
	tokens  *auth.TokenManager
	log     *zap.Logger
	now     func() time.Time
}

func New(store *storage.Storage, events EventPublisher, liveHub *hub.Hub, tokens *auth.TokenManager, log *zap.Logger) *Handler {
	return &Handler{
		storage: store,
		events:  events,
		hub:     liveHub,
		tokens:  tokens,
		log:     log,
		now:     time.Now,
	}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/health", h.Health)
	r.Get("/ws", h.LiveUpdates)

	r.Group(func(r chi.Router) {
		r.Use(h.tokens.Middleware)

		r.Get("/inspections", h.ListInspections)
		r.Get("/inspections/{id}", h.GetInspection)
		r.Post("/inspection", h.CreateInspection)
		r.Put("/inspection/{id}", h.UpdateInspection)
		r.Delete("/inspection/{id}", h.DeleteInspection)

		r.Get("/audit", h.ListAudit)
	})
}

// Health reports whether the database answers
// @Summary Health check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := h.storage.Ping(ctx); err != nil {
		h.log.Warn("health: database ping failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]any{"detail": detail})
}
