package handlers

import (
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"facility-checklist/internal/storage"
)

// ListAudit returns the most recent applied inspection changes
// @Summary List audit entries
// @Tags audit
// @Produce json
// @Param limit query int false "Maximum entries (default 100, max 500)"
// @Success 200 {object} map[string][]models.AuditEntry
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /audit [get]
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit := storage.DefaultAuditLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			respondError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	entries, err := h.storage.ListAudit(r.Context(), limit)
	if err != nil {
		h.log.Error("list audit", zap.Error(err))
		respondError(w, http.StatusInternalServerError, detailInternal)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"entries": entries})
}
