package triage

import (
	"context"
	"errors"
	"time"

	"github.com/afrigov/sentinel/internal/incident"
)

// ErrNotFound is returned when an incident id does not exist in the store.
var ErrNotFound = errors.New("incident not found")

// Store is the persistence interface for incidents, decisions, and
// escalations. Implementations forward fully-formed query specs to the
// underlying document store and do not validate domain semantics.
type Store interface {
	IndexIncident(ctx context.Context, inc *incident.Incident) error
	GetIncident(ctx context.Context, id string) (*incident.Incident, bool, error)
	UpdateIncidentStatus(ctx context.Context, id, status string) error

	// SimilarIncidents full-text matches on description, boosted by matching
	// category and city.
	SimilarIncidents(ctx context.Context, description, category, city string, limit int) ([]*incident.Incident, error)
	ListIncidents(ctx context.Context, limit int) ([]*incident.Incident, error)

	LogDecision(ctx context.Context, d *incident.Decision) error

	LogEscalation(ctx context.Context, e *incident.Escalation) error
	UnresolvedEscalations(ctx context.Context, limit int) ([]*incident.Escalation, error)
	// ResolveEscalations marks every unresolved escalation referencing the
	// incident as resolved at the given time and returns how many it touched.
	ResolveEscalations(ctx context.Context, incidentID string, at time.Time) (int, error)

	Stats(ctx context.Context) (*incident.Stats, error)
	CountUnresolvedCritical(ctx context.Context) (int, error)
	CountPendingEscalations(ctx context.Context) (int, error)

	// Ping checks connectivity and returns the store's version string.
	Ping(ctx context.Context) (string, error)
}
