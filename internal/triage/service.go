package triage

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/linnemanlabs/go-core/log"
	"github.com/oklog/ulid/v2"

	"github.com/afrigov/sentinel/internal/incident"
)

// similarLimit bounds the similar-incident context passed to the agent.
const similarLimit = 5

// Analyzer produces a risk analysis for an incident. Implementations must
// never fail; degraded paths return a fallback analysis instead.
type Analyzer interface {
	Analyze(ctx context.Context, inc *incident.Incident, similar []*incident.Incident) *incident.Analysis
}

// Notifier delivers a critical alert. The boolean reports delivery; a non-nil
// error explains a failed attempt. Disabled dispatchers return (false, nil).
type Notifier interface {
	SendCriticalAlert(ctx context.Context, inc *incident.Incident, a *incident.Analysis) (bool, error)
}

// Outcome records whether a best-effort step was attempted and how it went.
type Outcome struct {
	Attempted bool
	Err       error
}

// OK reports an attempted step that succeeded.
func (o Outcome) OK() bool { return o.Attempted && o.Err == nil }

// ReportInput is a validated incident report.
type ReportInput struct {
	Description  string
	Service      string
	Category     string
	Severity     int
	City         string
	Region       string
	ReporterType string
	Lat          *float64
	Lon          *float64
}

// ReportResult is the outcome of one triage run: the stored incident, its
// analysis, and the per-step outcomes of the best-effort side effects.
type ReportResult struct {
	IncidentID   string
	Analysis     *incident.Analysis
	SimilarCount int
	Escalated    bool
	Notified     bool

	SimilarLookup Outcome
	DecisionLog   Outcome
	EscalationLog Outcome
	Notification  Outcome
}

// Service coordinates the incident lifecycle: persist, enrich with similar
// incidents, analyze, log the decision, and escalate critical cases.
type Service struct {
	store    Store
	analyzer Analyzer
	notifier Notifier
	logger   log.Logger
	metrics  *Metrics
}

// NewService creates a triage service. notifier and metrics may be nil.
func NewService(store Store, analyzer Analyzer, notifier Notifier, logger log.Logger, metrics *Metrics) *Service {
	if logger == nil {
		logger = log.Nop()
	}
	return &Service{
		store:    store,
		analyzer: analyzer,
		notifier: notifier,
		logger:   logger,
		metrics:  metrics,
	}
}

// ReportIncident runs the full triage workflow for one report. Incident
// persistence is the only hard failure; every later step degrades or is
// logged without blocking the returned decision.
func (s *Service) ReportIncident(ctx context.Context, in ReportInput) (*ReportResult, error) {
	start := time.Now()

	inc := s.buildIncident(in)
	L := s.logger.With("incident_id", inc.ID, "service", inc.Service, "severity", inc.Severity)

	if err := s.store.IndexIncident(ctx, inc); err != nil {
		return nil, fmt.Errorf("index incident: %w", err)
	}

	res := &ReportResult{IncidentID: inc.ID}

	similar, err := s.store.SimilarIncidents(ctx, inc.Description, inc.Category, inc.City, similarLimit)
	res.SimilarLookup = Outcome{Attempted: true, Err: err}
	if err != nil {
		L.Warn(ctx, "similar-incident lookup failed, continuing without context", "error", err)
		similar = nil
	}
	res.SimilarCount = len(similar)

	analysis := s.analyzer.Analyze(ctx, inc, similar)
	res.Analysis = analysis

	decision := &incident.Decision{
		ID:           ulid.Make().String(),
		IncidentID:   inc.ID,
		RiskScore:    analysis.RiskScore,
		Decision:     analysis.Decision,
		Explanation:  analysis.Explanation,
		ActionPlan:   analysis.ActionPlan,
		Contact:      analysis.Contact,
		SimilarCount: len(similar),
		CreatedAt:    time.Now().UTC(),
	}
	err = s.store.LogDecision(ctx, decision)
	res.DecisionLog = Outcome{Attempted: true, Err: err}
	if err != nil {
		L.Warn(ctx, "could not log decision", "error", err)
	}

	if analysis.Decision == incident.DecisionCritical {
		s.escalate(ctx, L, inc, analysis, res)
	}

	s.metrics.ObserveReport(analysis.Decision, time.Since(start).Seconds())

	L.Info(ctx, "triage complete",
		"decision", analysis.Decision,
		"risk_score", analysis.RiskScore,
		"similar_incidents", len(similar),
		"escalated", res.Escalated,
		"notified", res.Notified,
	)
	return res, nil
}

func (s *Service) escalate(ctx context.Context, L log.Logger, inc *incident.Incident, a *incident.Analysis, res *ReportResult) {
	esc := &incident.Escalation{
		ID:          ulid.Make().String(),
		IncidentID:  inc.ID,
		Decision:    a.Decision,
		RiskScore:   a.RiskScore,
		Service:     inc.Service,
		Region:      inc.Region,
		City:        inc.City,
		Description: inc.Description,
		CreatedAt:   time.Now().UTC(),
		Resolved:    false,
	}
	err := s.store.LogEscalation(ctx, esc)
	res.EscalationLog = Outcome{Attempted: true, Err: err}
	if err != nil {
		L.Warn(ctx, "could not log escalation", "error", err)
	} else {
		res.Escalated = true
	}
	s.metrics.IncEscalation()

	if s.notifier == nil {
		return
	}
	delivered, err := s.notifier.SendCriticalAlert(ctx, inc, a)
	res.Notification = Outcome{Attempted: true, Err: err}
	res.Notified = delivered
	switch {
	case err != nil:
		L.Warn(ctx, "critical alert delivery failed", "error", err)
		s.metrics.IncNotification("failed")
	case delivered:
		s.metrics.IncNotification("delivered")
	default:
		s.metrics.IncNotification("skipped")
	}
}

// UpdateStatus sets the incident's status. A status denoting resolution also
// resolves every unresolved escalation referencing the incident. Returns
// ErrNotFound when the id is unknown; no writes happen in that case.
func (s *Service) UpdateStatus(ctx context.Context, id, status string) error {
	_, ok, err := s.store.GetIncident(ctx, id)
	if err != nil {
		return fmt.Errorf("find incident: %w", err)
	}
	if !ok {
		return ErrNotFound
	}

	if err := s.store.UpdateIncidentStatus(ctx, id, status); err != nil {
		return fmt.Errorf("update status: %w", err)
	}

	if incident.IsResolvedStatus(status) {
		n, err := s.store.ResolveEscalations(ctx, id, time.Now().UTC())
		if err != nil {
			return fmt.Errorf("resolve escalations: %w", err)
		}
		if n > 0 {
			s.logger.Info(ctx, "escalations resolved", "incident_id", id, "count", n)
		}
	}
	return nil
}

// ListIncidents returns the most recent incidents, newest first.
func (s *Service) ListIncidents(ctx context.Context, limit int) ([]*incident.Incident, error) {
	return s.store.ListIncidents(ctx, limit)
}

// Stats returns the aggregate view over all incidents.
func (s *Service) Stats(ctx context.Context) (*incident.Stats, error) {
	return s.store.Stats(ctx)
}

// Escalations returns unresolved escalations, newest first, capped at limit.
func (s *Service) Escalations(ctx context.Context, limit int) ([]*incident.Escalation, error) {
	return s.store.UnresolvedEscalations(ctx, limit)
}

// DashboardSummary is the stats view merged with open-case counters.
type DashboardSummary struct {
	*incident.Stats
	UnresolvedCritical int `json:"unresolved_critical"`
	PendingEscalations int `json:"pending_escalations"`
}

// Dashboard returns stats merged with unresolved-critical and
// pending-escalation counts.
func (s *Service) Dashboard(ctx context.Context) (*DashboardSummary, error) {
	stats, err := s.store.Stats(ctx)
	if err != nil {
		return nil, err
	}
	critical, err := s.store.CountUnresolvedCritical(ctx)
	if err != nil {
		return nil, err
	}
	pending, err := s.store.CountPendingEscalations(ctx)
	if err != nil {
		return nil, err
	}
	return &DashboardSummary{
		Stats:              stats,
		UnresolvedCritical: critical,
		PendingEscalations: pending,
	}, nil
}

// Health checks store connectivity and returns its version string.
func (s *Service) Health(ctx context.Context) (string, error) {
	return s.store.Ping(ctx)
}

func (s *Service) buildIncident(in ReportInput) *incident.Incident {
	reporter := in.ReporterType
	if reporter == "" {
		reporter = "Citoyen"
	}
	inc := &incident.Incident{
		ID:           NewIncidentID(),
		Description:  in.Description,
		Service:      in.Service,
		Category:     in.Category,
		Severity:     in.Severity,
		Status:       incident.StatusOpen,
		CreatedAt:    time.Now().UTC(),
		City:         in.City,
		Region:       in.Region,
		ReporterType: reporter,
		Priority:     incident.PriorityFor(in.Severity),
		SLAHours:     incident.SLAHoursFor(in.Severity),
		AssignedTo:   incident.OwnerFor(in.Service),
	}
	if in.Lat != nil && in.Lon != nil {
		inc.Location = &incident.GeoPoint{Lat: *in.Lat, Lon: *in.Lon}
	}
	return inc
}

// NewIncidentID generates an incident identifier: a fixed prefix followed by
// 8 random uppercase hex characters.
func NewIncidentID() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b) // crypto/rand.Read never fails on supported platforms
	return "INC-" + strings.ToUpper(hex.EncodeToString(b))
}
