package incidentapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/afrigov/sentinel/internal/incident"
	"github.com/afrigov/sentinel/internal/triage"
)

func (a *API) handleListIncidents(w http.ResponseWriter, r *http.Request) {
	limit := defaultIncidentLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			http.Error(w, `{"error":"invalid limit"}`, http.StatusBadRequest)
			return
		}
		limit = min(n, maxIncidentLimit)
	}

	incidents, err := a.svc.ListIncidents(r.Context(), limit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list incidents")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if incidents == nil {
		incidents = []*incident.Incident{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":     len(incidents),
		"incidents": incidents,
	})
}

type statusRequest struct {
	Status string `json:"status" validate:"required"`
	// Note is accepted from legacy clients and logged, nothing more.
	Note string `json:"note"`
}

func (a *API) handleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(attribute.String("sentinel.incident.id", id))

	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}
	if err := a.validate.Struct(&req); err != nil {
		http.Error(w, `{"error":"status is required"}`, http.StatusUnprocessableEntity)
		return
	}

	if err := a.svc.UpdateStatus(r.Context(), id, req.Status); err != nil {
		if errors.Is(err, triage.ErrNotFound) {
			http.Error(w, `{"error":"incident not found"}`, http.StatusNotFound)
			return
		}
		a.logger.Error(r.Context(), err, "failed to update incident status", "id", id)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	if req.Note != "" {
		a.logger.Info(r.Context(), "status update note", "id", id, "note", req.Note)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"success":     true,
		"incident_id": id,
		"new_status":  req.Status,
	})
}
