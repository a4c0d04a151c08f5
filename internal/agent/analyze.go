package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/linnemanlabs/go-core/log"

	"github.com/afrigov/sentinel/internal/incident"
)

// Converser is the transport boundary to the hosted agent.
type Converser interface {
	Converse(ctx context.Context, input string) (string, error)
}

// Orchestrator builds the analysis prompt, parses and repairs the agent's
// reply, and applies the severity fallback on any failure.
type Orchestrator struct {
	client Converser
	logger log.Logger
}

// NewOrchestrator creates an orchestrator around the given converse client.
func NewOrchestrator(client Converser, logger log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.Nop()
	}
	return &Orchestrator{client: client, logger: logger}
}

// decisionPayload is the JSON decision object the agent is instructed to emit.
type decisionPayload struct {
	RiskScore   *float64          `json:"risk_score"`
	Decision    string            `json:"decision"`
	Explanation string            `json:"explanation"`
	ActionPlan  []string          `json:"action_plan"`
	Contact     map[string]string `json:"contact"`
	Context     map[string]any    `json:"context"`
}

// Analyze produces a risk analysis for the incident. It never returns an
// error: transport failures, bad statuses, and unparseable replies all degrade
// to the deterministic severity fallback.
func (o *Orchestrator) Analyze(ctx context.Context, inc *incident.Incident, similar []*incident.Incident) *incident.Analysis {
	L := o.logger.With("incident_id", inc.ID, "severity", inc.Severity)

	raw, err := o.client.Converse(ctx, buildPrompt(inc))
	if err != nil {
		L.Warn(ctx, "agent call failed, using severity fallback", "error", err)
		return incident.FallbackDecision(inc.Severity)
	}

	var payload decisionPayload
	if err := json.Unmarshal([]byte(extractJSON(raw)), &payload); err != nil {
		L.Warn(ctx, "agent reply not parseable, using severity fallback",
			"error", err,
			"reply", truncateForLog([]byte(raw)),
		)
		return incident.FallbackDecision(inc.Severity)
	}

	a := &incident.Analysis{
		RiskScore:   2.0,
		Decision:    incident.DecisionStandard,
		Explanation: payload.Explanation,
		ActionPlan:  []string{},
		Contact:     payload.Contact,
		Context:     map[string]any{},
	}
	if payload.RiskScore != nil {
		a.RiskScore = *payload.RiskScore
	}
	if payload.Decision != "" {
		a.Decision = payload.Decision
	}
	if payload.ActionPlan != nil {
		a.ActionPlan = payload.ActionPlan
	}
	if payload.Context != nil {
		a.Context = payload.Context
	}

	L.Info(ctx, "agent analysis complete",
		"decision", a.Decision,
		"risk_score", a.RiskScore,
		"similar_incidents", len(similar),
	)
	return a
}

// buildPrompt renders the natural-language analysis request for one incident.
func buildPrompt(inc *incident.Incident) string {
	return fmt.Sprintf(`Analyse cet incident :
Description: %s
Service: %s
Catégorie: %s
Sévérité: %d/5
Ville: %s
Région: %s
Priorité: %s
Signalé par: %s

Suis tes 3 étapes obligatoires (Search, ES|QL, Décision) et retourne uniquement le JSON de décision.`,
		inc.Description,
		inc.Service,
		inc.Category,
		inc.Severity,
		inc.City,
		inc.Region,
		inc.Priority,
		inc.ReporterType,
	)
}
