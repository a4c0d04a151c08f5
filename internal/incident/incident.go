// Package incident holds the Sentinel domain model: reported incidents, agent
// analyses, logged decisions, escalation records, and the deterministic tables
// (priority, SLA, fallback) derived from severity.
package incident

import "time"

// Status values for an incident lifecycle. Status is caller-settable free text
// at the API boundary; these are the canonical values. The French values used
// by the original mobile clients remain accepted.
const (
	StatusOpen      = "Open"
	StatusPending   = "Pending"
	StatusEscalated = "Escalated"
	StatusResolved  = "Resolved"
)

// resolvedStatuses are the status values that denote resolution and close out
// any pending escalations for the incident.
var resolvedStatuses = map[string]bool{
	StatusResolved: true,
	"Résolu":       true,
}

// openStatuses are the values counted as still-open for dashboard purposes.
var openStatuses = map[string]bool{
	StatusOpen:      true,
	StatusEscalated: true,
	"En cours":      true,
	"Escaladé":      true,
}

// IsResolvedStatus reports whether a status value denotes resolution.
func IsResolvedStatus(s string) bool { return resolvedStatuses[s] }

// IsOpenStatus reports whether a status value counts as still open.
func IsOpenStatus(s string) bool { return openStatuses[s] }

// Decision codes returned by the AI agent or the fallback policy, ordered by
// increasing urgency.
const (
	DecisionMonitor  = "MONITOR"
	DecisionStandard = "STANDARD_PROCESSING"
	DecisionUrgent   = "URGENT_ACTION"

	// DecisionCritical is the top escalation tier; it triggers an escalation
	// record and the notification dispatcher.
	DecisionCritical = "CRITICAL_ESCALATION"
)

// decisionLabels maps decision codes to human-readable labels.
var decisionLabels = map[string]string{
	DecisionCritical: "\U0001f534 Escalade critique : intervention immédiate",
	DecisionUrgent:   "\U0001f7e0 Action urgente : dans les 24h",
	DecisionStandard: "\U0001f7e1 Traitement standard",
	DecisionMonitor:  "\U0001f7e2 Surveillance passive",
}

// DecisionLabel returns the human-readable label for a decision code. Unknown
// codes are returned as-is.
func DecisionLabel(code string) string {
	if l, ok := decisionLabels[code]; ok {
		return l
	}
	return code
}

// GeoPoint is an optional lat/lon pair on an incident.
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Incident is a citizen-reported service or infrastructure problem. Created at
// ingestion, mutated only via status transitions, never deleted.
type Incident struct {
	ID           string    `json:"incident_id"`
	Description  string    `json:"description"`
	Service      string    `json:"service"`
	Category     string    `json:"category"`
	Severity     int       `json:"severity"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	City         string    `json:"city"`
	Region       string    `json:"region"`
	Location     *GeoPoint `json:"location,omitempty"`
	ReporterType string    `json:"reporter_type"`
	Priority     string    `json:"priority"`
	SLAHours     int       `json:"sla_hours"`
	AssignedTo   string    `json:"assigned_to"`
}

// Analysis is the triage outcome for one incident: a risk score and a
// categorical action level, with supporting explanation and action plan.
type Analysis struct {
	RiskScore   float64           `json:"risk_score"`
	Decision    string            `json:"decision"`
	Explanation string            `json:"explanation"`
	ActionPlan  []string          `json:"action_plan"`
	Contact     map[string]string `json:"contact,omitempty"`
	Context     map[string]any    `json:"context,omitempty"`
}

// Decision is the persisted record of an analysis, owned by exactly one
// incident. Immutable once created; appended, never updated.
type Decision struct {
	ID           string            `json:"-"`
	IncidentID   string            `json:"incident_id"`
	RiskScore    float64           `json:"risk_score"`
	Decision     string            `json:"decision"`
	Explanation  string            `json:"explanation"`
	ActionPlan   []string          `json:"action_plan"`
	Contact      map[string]string `json:"contact,omitempty"`
	SimilarCount int               `json:"similar_incidents_count"`
	CreatedAt    time.Time         `json:"created_at"`
}

// Escalation is a denormalized projection of an incident and its critical
// decision, pending resolution.
type Escalation struct {
	ID          string     `json:"-"`
	IncidentID  string     `json:"incident_id"`
	Decision    string     `json:"decision"`
	RiskScore   float64    `json:"risk_score"`
	Service     string     `json:"service"`
	Region      string     `json:"region"`
	City        string     `json:"city"`
	Description string     `json:"description"`
	CreatedAt   time.Time  `json:"created_at"`
	Resolved    bool       `json:"resolved"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Stats is the aggregate view over all incidents.
type Stats struct {
	TotalIncidents int            `json:"total_incidents"`
	ByCategory     map[string]int `json:"by_category"`
	BySeverity     map[string]int `json:"by_severity"`
	ByRegion       map[string]int `json:"by_region"`
	AvgSeverity    float64        `json:"avg_severity"`
}

var priorityTable = map[int]string{
	1: "P5",
	2: "P4",
	3: "P3",
	4: "P2",
	5: "P1",
}

var slaTable = map[int]int{
	1: 72,
	2: 48,
	3: 24,
	4: 8,
	5: 2,
}

// PriorityFor maps severity to a priority class. Unmapped severities get P5.
func PriorityFor(severity int) string {
	if p, ok := priorityTable[severity]; ok {
		return p
	}
	return "P5"
}

// SLAHoursFor maps severity to a target resolution window in hours. Unmapped
// severities get 72h.
func SLAHoursFor(severity int) int {
	if h, ok := slaTable[severity]; ok {
		return h
	}
	return 72
}

// OwnerFor derives the assigned owner from the reported service.
func OwnerFor(service string) string {
	return "Responsable " + service
}
