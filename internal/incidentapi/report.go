package incidentapi

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/afrigov/sentinel/internal/incident"
	"github.com/afrigov/sentinel/internal/triage"
)

// reportRequest is the citizen-submitted incident payload.
type reportRequest struct {
	Description  string   `json:"description" validate:"required,min=10"`
	Service      string   `json:"service" validate:"required"`
	Category     string   `json:"category" validate:"required"`
	Severity     int      `json:"severity" validate:"required,min=1,max=5"`
	City         string   `json:"city" validate:"required"`
	Region       string   `json:"region"`
	ReporterType string   `json:"reporter_type"`
	Lat          *float64 `json:"lat" validate:"omitempty,latitude"`
	Lon          *float64 `json:"lon" validate:"omitempty,longitude"`
}

type analysisResponse struct {
	RiskScore     float64           `json:"risk_score"`
	Decision      string            `json:"decision"`
	DecisionLabel string            `json:"decision_label"`
	Explanation   string            `json:"explanation"`
	ActionPlan    []string          `json:"action_plan"`
	Contact       map[string]string `json:"contact,omitempty"`
	SimilarFound  int               `json:"similar_incidents_found"`
	Context       map[string]any    `json:"context,omitempty"`
}

type reportResponse struct {
	IncidentID string           `json:"incident_id"`
	Status     string           `json:"status"`
	Analysis   analysisResponse `json:"analysis"`
}

func (a *API) handleReportIncident(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid payload"}`, http.StatusBadRequest)
		return
	}

	if err := a.validate.Struct(&req); err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error":  "validation failed",
			"fields": validationFields(err),
		})
		return
	}

	span := trace.SpanFromContext(r.Context())
	span.SetAttributes(
		attribute.String("sentinel.incident.service", req.Service),
		attribute.Int("sentinel.incident.severity", req.Severity),
	)

	res, err := a.svc.ReportIncident(r.Context(), triage.ReportInput{
		Description:  req.Description,
		Service:      req.Service,
		Category:     req.Category,
		Severity:     req.Severity,
		City:         req.City,
		Region:       req.Region,
		ReporterType: req.ReporterType,
		Lat:          req.Lat,
		Lon:          req.Lon,
	})
	if err != nil {
		a.logger.Error(r.Context(), err, "incident intake failed", "service", req.Service)
		http.Error(w, `{"error":"internal error"}`, http.StatusInternalServerError)
		return
	}

	span.SetAttributes(
		attribute.String("sentinel.incident.id", res.IncidentID),
		attribute.String("sentinel.decision", res.Analysis.Decision),
	)

	writeJSON(w, http.StatusOK, reportResponse{
		IncidentID: res.IncidentID,
		Status:     "Analysed",
		Analysis: analysisResponse{
			RiskScore:     res.Analysis.RiskScore,
			Decision:      res.Analysis.Decision,
			DecisionLabel: incident.DecisionLabel(res.Analysis.Decision),
			Explanation:   res.Analysis.Explanation,
			ActionPlan:    res.Analysis.ActionPlan,
			Contact:       res.Analysis.Contact,
			SimilarFound:  res.SimilarCount,
			Context:       res.Analysis.Context,
		},
	})
}

// validationFields flattens validator errors into "field: rule" strings.
func validationFields(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}
	out := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		out = append(out, strings.ToLower(fe.Field())+": "+fe.Tag())
	}
	return out
}
