package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"facility-checklist/internal/auth"
	"facility-checklist/internal/models"
	"facility-checklist/internal/storage"
)

const (
	detailNotFound = "Inspection not found"
	detailInternal = "internal server error"
)

// InspectionResult is the body of successful create, update and delete responses.
type InspectionResult struct {
	Status string             `json:"status"`
	ID     int64              `json:"id"`
	Record *models.Inspection `json:"record"`
}

// ListInspections returns every inspection record
// @Summary List inspections
// @Tags inspections
// @Produce json
// @Success 200 {object} map[string][]models.Inspection
// @Failure 401 {object} map[string]string
// @Security BearerAuth
// @Router /inspections [get]
func (h *Handler) ListInspections(w http.ResponseWriter, r *http.Request) {
	records, err := h.storage.ListInspections(r.Context())
	if err != nil {
		h.log.Error("list inspections", zap.Error(err))
		respondError(w, http.StatusInternalServerError, detailInternal)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"inspections": records})
}

// GetInspection returns one inspection record
// @Summary Get inspection
// @Tags inspections
// @Produce json
// @Param id path int true "Inspection ID"
// @Success 200 {object} models.Inspection
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /inspections/{id} [get]
func (h *Handler) GetInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	rec, err := h.storage.GetInspection(r.Context(), id)
	if err != nil {
		h.storageError(w, "get inspection", err)
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// CreateInspection stores a new inspection record
// @Summary Create inspection
// @Tags inspections
// @Accept json
// @Produce json
// @Param inspection body models.InspectionInput true "Inspection"
// @Success 201 {object} InspectionResult
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /inspection [post]
func (h *Handler) CreateInspection(w http.ResponseWriter, r *http.Request) {
	in, ok := h.bindInspection(w, r)
	if !ok {
		return
	}
	actor, _ := auth.UsernameFromContext(r.Context())

	rec, err := h.storage.CreateInspection(r.Context(), in, actor)
	if err != nil {
		h.storageError(w, "create inspection", err)
		return
	}

	h.log.Info("Inspection created", zap.Int64("id", rec.ID), zap.String("actor", actor))
	h.publish(r, models.ActionCreated, rec, actor)
	respondJSON(w, http.StatusCreated, InspectionResult{Status: "added", ID: rec.ID, Record: rec})
}

// UpdateInspection replaces the editable fields of an inspection record
// @Summary Update inspection
// @Tags inspections
// @Accept json
// @Produce json
// @Param id path int true "Inspection ID"
// @Param inspection body models.InspectionInput true "Inspection"
// @Success 200 {object} InspectionResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /inspection/{id} [put]
func (h *Handler) UpdateInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	in, ok := h.bindInspection(w, r)
	if !ok {
		return
	}
	actor, _ := auth.UsernameFromContext(r.Context())

	rec, err := h.storage.UpdateInspection(r.Context(), id, in, actor)
	if err != nil {
		h.storageError(w, "update inspection", err)
		return
	}

	h.log.Info("Inspection updated", zap.Int64("id", rec.ID), zap.String("actor", actor))
	h.publish(r, models.ActionUpdated, rec, actor)
	respondJSON(w, http.StatusOK, InspectionResult{Status: "updated", ID: rec.ID, Record: rec})
}

// DeleteInspection removes an inspection record
// @Summary Delete inspection
// @Tags inspections
// @Produce json
// @Param id path int true "Inspection ID"
// @Success 200 {object} InspectionResult
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /inspection/{id} [delete]
func (h *Handler) DeleteInspection(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	actor, _ := auth.UsernameFromContext(r.Context())

	rec, err := h.storage.DeleteInspection(r.Context(), id)
	if err != nil {
		h.storageError(w, "delete inspection", err)
		return
	}

	h.log.Info("Inspection deleted", zap.Int64("id", rec.ID), zap.String("actor", actor))
	h.publish(r, models.ActionDeleted, rec, actor)
	respondJSON(w, http.StatusOK, InspectionResult{Status: "deleted", ID: rec.ID, Record: rec})
}

func (h *Handler) bindInspection(w http.ResponseWriter, r *http.Request) (models.InspectionInput, bool) {
	var in models.InspectionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
		return in, false
	}

	in.Normalize()
	if err := in.Validate(h.now()); err != nil {
		var verr *models.ValidationError
		if errors.As(err, &verr) {
			respondJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"detail": verr.Error(),
				"errors": verr.Errors,
			})
			return in, false
		}
		respondError(w, http.StatusUnprocessableEntity, err.Error())
		return in, false
	}
	return in, true
}

// publish emits the change event. The write is already committed, so a failed
// publish is logged and the request still succeeds.
func (h *Handler) publish(r *http.Request, action string, rec *models.Inspection, actor string) {
	if h.events == nil {
		return
	}
	snapshot, err := json.Marshal(rec)
	if err != nil {
		h.log.Error("marshal inspection snapshot", zap.Error(err))
		return
	}

	ev := &models.InspectionEvent{
		V:            1,
		ID:           uuid.NewString(),
		TS:           h.now().UnixMilli(),
		Action:       action,
		InspectionID: rec.ID,
		Actor:        actor,
		Snapshot:     snapshot,
	}
	if err := h.events.PublishInspectionEvent(r.Context(), ev); err != nil {
		h.log.Warn("publish inspection event",
			zap.String("action", action),
			zap.Int64("inspection_id", rec.ID),
			zap.Error(err))
	}
}

func (h *Handler) storageError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		respondError(w, http.StatusNotFound, detailNotFound)
	case errors.Is(err, storage.ErrDuplicate):
		respondError(w, http.StatusConflict, "Inspection already exists")
	default:
		h.log.Error(op, zap.Error(err))
		respondError(w, http.StatusInternalServerError, detailInternal)
	}
}

func parseID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "Invalid inspection id")
		return 0, false
	}
	return id, true
}
