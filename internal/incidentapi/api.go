// Package incidentapi exposes the citizen-facing HTTP API: incident intake,
// listing, status updates, and the aggregate dashboard views.
package incidentapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/linnemanlabs/go-core/log"
	"github.com/linnemanlabs/go-core/version"
	"github.com/linnemanlabs/go-core/xerrors"

	"github.com/afrigov/sentinel/internal/incident"
	"github.com/afrigov/sentinel/internal/triage"
)

const (
	defaultIncidentLimit = 100
	maxIncidentLimit     = 500
	escalationLimit      = 50
)

// TriageService defines the business operations incidentapi needs.
type TriageService interface {
	ReportIncident(ctx context.Context, in triage.ReportInput) (*triage.ReportResult, error)
	UpdateStatus(ctx context.Context, id, status string) error
	ListIncidents(ctx context.Context, limit int) ([]*incident.Incident, error)
	Stats(ctx context.Context) (*incident.Stats, error)
	Escalations(ctx context.Context, limit int) ([]*incident.Escalation, error)
	Dashboard(ctx context.Context) (*triage.DashboardSummary, error)
	Health(ctx context.Context) (string, error)
}

// API holds dependencies for HTTP handlers.
type API struct {
	logger   log.Logger
	svc      TriageService
	validate *validator.Validate
}

// New creates a new API handler.
func New(logger log.Logger, svc TriageService) *API {
	if logger == nil {
		logger = log.Nop()
	}
	if svc == nil {
		panic(xerrors.New("triage service is required"))
	}
	return &API{
		logger:   logger,
		svc:      svc,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// RegisterRoutes attaches API endpoints to the router. statusAuth, when
// non-nil, guards the status-update endpoint.
func (a *API) RegisterRoutes(r chi.Router, statusAuth func(http.Handler) http.Handler) {
	r.Get("/", a.handleRoot)
	r.Get("/health", a.handleHealth)
	r.Post("/report-incident", a.handleReportIncident)
	r.Get("/incidents", a.handleListIncidents)
	r.Get("/stats", a.handleStats)
	r.Get("/escalations", a.handleEscalations)
	r.Get("/dashboard/summary", a.handleDashboard)

	if statusAuth != nil {
		r.With(statusAuth).Patch("/incidents/{id}/status", a.handleUpdateStatus)
	} else {
		r.Patch("/incidents/{id}/status", a.handleUpdateStatus)
	}
}

func (a *API) handleRoot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"service": "AfriGov Sentinel",
		"status":  "ok",
		"version": version.Get().Version,
		"endpoints": []string{
			"POST /report-incident",
			"GET /incidents",
			"GET /stats",
			"GET /escalations",
			"GET /dashboard/summary",
			"PATCH /incidents/{id}/status",
			"GET /health",
		},
	})
}

func (a *API) handleHealth(w http.ResponseWriter, r *http.Request) {
	version, err := a.svc.Health(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "unhealthy",
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":        "healthy",
		"elasticsearch": version,
	})
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	summary, err := a.svc.Dashboard(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to build dashboard summary")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	stats, err := a.svc.Stats(r.Context())
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to compute stats")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (a *API) handleEscalations(w http.ResponseWriter, r *http.Request) {
	escalations, err := a.svc.Escalations(r.Context(), escalationLimit)
	if err != nil {
		a.logger.Error(r.Context(), err, "failed to list escalations")
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}
	if escalations == nil {
		escalations = []*incident.Escalation{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":       len(escalations),
		"escalations": escalations,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
