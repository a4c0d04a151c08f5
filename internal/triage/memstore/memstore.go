// Package memstore provides an in-memory implementation of triage.Store.
// Search scoring approximates the document store: token overlap on the
// description, boosted by matching category and city.
package memstore

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/afrigov/sentinel/internal/incident"
)

// Store holds incidents, decisions, and escalations in memory. Suitable for
// dev/testing when no document store is configured.
type Store struct {
	mu          sync.RWMutex
	incidents   map[string]*incident.Incident
	order       []string // incident ids in insertion order
	decisions   []*incident.Decision
	escalations []*incident.Escalation
}

// New initializes a new in-memory Store.
func New() *Store {
	return &Store{
		incidents: make(map[string]*incident.Incident),
	}
}

// IndexIncident stores a copy of the incident.
func (s *Store) IndexIncident(_ context.Context, inc *incident.Incident) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *inc
	if _, exists := s.incidents[inc.ID]; !exists {
		s.order = append(s.order, inc.ID)
	}
	s.incidents[inc.ID] = &cp
	return nil
}

// GetIncident retrieves an incident by id. Returns a copy.
func (s *Store) GetIncident(_ context.Context, id string) (*incident.Incident, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil, false, nil
	}
	cp := *inc
	return &cp, true, nil
}

// UpdateIncidentStatus sets the status field of a stored incident.
func (s *Store) UpdateIncidentStatus(_ context.Context, id, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inc, ok := s.incidents[id]
	if !ok {
		return nil // caller checks existence first
	}
	inc.Status = status
	return nil
}

// SimilarIncidents scores stored incidents by description token overlap, with
// a boost for matching category and city, and returns the top matches.
func (s *Store) SimilarIncidents(_ context.Context, description, category, city string, limit int) ([]*incident.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	terms := tokenize(description)

	type scored struct {
		inc   *incident.Incident
		score float64
	}
	var matches []scored
	for _, inc := range s.incidents {
		score := 0.0
		doc := tokenize(inc.Description)
		for t := range terms {
			if doc[t] {
				score++
			}
		}
		if score == 0 {
			continue
		}
		if inc.Category == category {
			score *= 1.5
		}
		if inc.City == city {
			score *= 1.5
		}
		matches = append(matches, scored{inc, score})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	out := make([]*incident.Incident, 0, len(matches))
	for _, m := range matches {
		cp := *m.inc
		out = append(out, &cp)
	}
	return out, nil
}

// ListIncidents returns incidents newest first.
func (s *Store) ListIncidents(_ context.Context, limit int) ([]*incident.Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*incident.Incident, 0, len(s.order))
	for _, id := range s.order {
		cp := *s.incidents[id]
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// LogDecision appends a copy of the decision record.
func (s *Store) LogDecision(_ context.Context, d *incident.Decision) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *d
	s.decisions = append(s.decisions, &cp)
	return nil
}

// Decisions returns all logged decisions, for tests.
func (s *Store) Decisions() []*incident.Decision {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*incident.Decision, 0, len(s.decisions))
	for _, d := range s.decisions {
		cp := *d
		out = append(out, &cp)
	}
	return out
}

// LogEscalation appends a copy of the escalation record.
func (s *Store) LogEscalation(_ context.Context, e *incident.Escalation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *e
	s.escalations = append(s.escalations, &cp)
	return nil
}

// UnresolvedEscalations returns unresolved escalations newest first.
func (s *Store) UnresolvedEscalations(_ context.Context, limit int) ([]*incident.Escalation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*incident.Escalation
	for _, e := range s.escalations {
		if e.Resolved {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ResolveEscalations marks every unresolved escalation for the incident as
// resolved at the given time.
func (s *Store) ResolveEscalations(_ context.Context, incidentID string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, e := range s.escalations {
		if e.IncidentID != incidentID || e.Resolved {
			continue
		}
		e.Resolved = true
		t := at
		e.ResolvedAt = &t
		n++
	}
	return n, nil
}

// Escalations returns all escalation records, for tests.
func (s *Store) Escalations() []*incident.Escalation {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*incident.Escalation, 0, len(s.escalations))
	for _, e := range s.escalations {
		cp := *e
		out = append(out, &cp)
	}
	return out
}

// Stats aggregates counts and the severity average over all incidents.
func (s *Store) Stats(_ context.Context) (*incident.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := &incident.Stats{
		TotalIncidents: len(s.incidents),
		ByCategory:     make(map[string]int),
		BySeverity:     make(map[string]int),
		ByRegion:       make(map[string]int),
	}
	sum := 0
	for _, inc := range s.incidents {
		st.ByCategory[inc.Category]++
		st.BySeverity[strconv.Itoa(inc.Severity)]++
		st.ByRegion[inc.Region]++
		sum += inc.Severity
	}
	if st.TotalIncidents > 0 {
		avg := float64(sum) / float64(st.TotalIncidents)
		st.AvgSeverity = float64(int(avg*100+0.5)) / 100
	}
	return st, nil
}

// CountUnresolvedCritical counts severity-5 incidents still in an open status.
func (s *Store) CountUnresolvedCritical(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, inc := range s.incidents {
		if inc.Severity == 5 && incident.IsOpenStatus(inc.Status) {
			n++
		}
	}
	return n, nil
}

// CountPendingEscalations counts unresolved escalation records.
func (s *Store) CountPendingEscalations(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := 0
	for _, e := range s.escalations {
		if !e.Resolved {
			n++
		}
	}
	return n, nil
}

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(_ context.Context) (string, error) {
	return "memstore", nil
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, t := range strings.Fields(strings.ToLower(s)) {
		out[t] = true
	}
	return out
}
