package esstore

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/afrigov/sentinel/internal/incident"
)

// IndexIncident persists an incident document keyed by its incident id.
func (s *Store) IndexIncident(ctx context.Context, inc *incident.Incident) error {
	_, err := s.put(ctx, indexIncidents, inc.ID, inc)
	return err
}

// GetIncident fetches an incident by id.
func (s *Store) GetIncident(ctx context.Context, id string) (*incident.Incident, bool, error) {
	src, ok, err := s.getDoc(ctx, indexIncidents, id)
	if err != nil || !ok {
		return nil, false, err
	}
	var inc incident.Incident
	if err := json.Unmarshal(src, &inc); err != nil {
		return nil, false, &StoreError{Op: "get", Index: indexIncidents, Err: fmt.Errorf("decode source: %w", err)}
	}
	return &inc, true, nil
}

// UpdateIncidentStatus sets the status field on a stored incident.
func (s *Store) UpdateIncidentStatus(ctx context.Context, id, status string) error {
	return s.update(ctx, indexIncidents, id, map[string]any{"status": status})
}

// SimilarIncidents full-text matches on description, with a should-boost on
// matching category and city.
func (s *Store) SimilarIncidents(ctx context.Context, description, category, city string, limit int) ([]*incident.Incident, error) {
	spec := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"match": map[string]any{"description": description}},
				},
				"should": []any{
					map[string]any{"term": map[string]any{"category": category}},
					map[string]any{"term": map[string]any{"city": city}},
				},
				"boost": 1.5,
			},
		},
		"size": limit,
	}
	res, err := s.search(ctx, indexIncidents, spec)
	if err != nil {
		return nil, err
	}
	return decodeIncidents(res)
}

// ListIncidents returns incidents newest first.
func (s *Store) ListIncidents(ctx context.Context, limit int) ([]*incident.Incident, error) {
	spec := map[string]any{
		"query": map[string]any{"match_all": map[string]any{}},
		"sort":  []any{map[string]any{"created_at": map[string]any{"order": "desc"}}},
		"size":  limit,
	}
	res, err := s.search(ctx, indexIncidents, spec)
	if err != nil {
		return nil, err
	}
	return decodeIncidents(res)
}

// LogDecision appends a decision record.
func (s *Store) LogDecision(ctx context.Context, d *incident.Decision) error {
	_, err := s.put(ctx, indexDecisions, d.ID, d)
	return err
}

// LogEscalation appends an escalation record.
func (s *Store) LogEscalation(ctx context.Context, e *incident.Escalation) error {
	_, err := s.put(ctx, indexEscalations, e.ID, e)
	return err
}

// UnresolvedEscalations returns unresolved escalations newest first.
func (s *Store) UnresolvedEscalations(ctx context.Context, limit int) ([]*incident.Escalation, error) {
	spec := map[string]any{
		"query": map[string]any{"term": map[string]any{"resolved": false}},
		"sort":  []any{map[string]any{"created_at": map[string]any{"order": "desc"}}},
		"size":  limit,
	}
	res, err := s.search(ctx, indexEscalations, spec)
	if err != nil {
		return nil, err
	}

	out := make([]*incident.Escalation, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		var e incident.Escalation
		if err := json.Unmarshal(h.Source, &e); err != nil {
			return nil, &StoreError{Op: "search", Index: indexEscalations, Err: fmt.Errorf("decode source: %w", err)}
		}
		e.ID = h.ID
		out = append(out, &e)
	}
	return out, nil
}

// ResolveEscalations marks every unresolved escalation for the incident as
// resolved at the given time.
func (s *Store) ResolveEscalations(ctx context.Context, incidentID string, at time.Time) (int, error) {
	spec := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"incident_id": incidentID}},
					map[string]any{"term": map[string]any{"resolved": false}},
				},
			},
		},
		"size": 100,
	}
	res, err := s.search(ctx, indexEscalations, spec)
	if err != nil {
		return 0, err
	}

	n := 0
	for _, h := range res.Hits.Hits {
		err := s.update(ctx, indexEscalations, h.ID, map[string]any{
			"resolved":    true,
			"resolved_at": at,
		})
		if err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

// Stats aggregates incident counts by category, severity, and region, plus
// the severity average.
func (s *Store) Stats(ctx context.Context) (*incident.Stats, error) {
	spec := map[string]any{
		"size": 0,
		"aggs": map[string]any{
			"by_category":  map[string]any{"terms": map[string]any{"field": "category", "size": 10}},
			"by_severity":  map[string]any{"terms": map[string]any{"field": "severity", "size": 5}},
			"by_region":    map[string]any{"terms": map[string]any{"field": "region", "size": 10}},
			"avg_severity": map[string]any{"avg": map[string]any{"field": "severity"}},
		},
	}
	res, err := s.search(ctx, indexIncidents, spec)
	if err != nil {
		return nil, err
	}

	var aggs struct {
		ByCategory  termsAgg `json:"by_category"`
		BySeverity  termsAgg `json:"by_severity"`
		ByRegion    termsAgg `json:"by_region"`
		AvgSeverity struct {
			Value *float64 `json:"value"`
		} `json:"avg_severity"`
	}
	if len(res.Aggregations) > 0 {
		if err := json.Unmarshal(res.Aggregations, &aggs); err != nil {
			return nil, &StoreError{Op: "aggregate", Index: indexIncidents, Err: fmt.Errorf("decode aggregations: %w", err)}
		}
	}

	st := &incident.Stats{
		TotalIncidents: res.Hits.Total.Value,
		ByCategory:     aggs.ByCategory.toMap(),
		BySeverity:     aggs.BySeverity.toMap(),
		ByRegion:       aggs.ByRegion.toMap(),
	}
	if aggs.AvgSeverity.Value != nil {
		st.AvgSeverity = math.Round(*aggs.AvgSeverity.Value*100) / 100
	}
	return st, nil
}

// CountUnresolvedCritical counts severity-5 incidents still in an open status.
func (s *Store) CountUnresolvedCritical(ctx context.Context) (int, error) {
	spec := map[string]any{
		"query": map[string]any{
			"bool": map[string]any{
				"must": []any{
					map[string]any{"term": map[string]any{"severity": 5}},
					map[string]any{"terms": map[string]any{"status": []string{"Open", "Escalated", "En cours", "Escaladé"}}},
				},
			},
		},
		"size": 0,
	}
	res, err := s.search(ctx, indexIncidents, spec)
	if err != nil {
		return 0, err
	}
	return res.Hits.Total.Value, nil
}

// CountPendingEscalations counts unresolved escalation records.
func (s *Store) CountPendingEscalations(ctx context.Context) (int, error) {
	spec := map[string]any{
		"query": map[string]any{"term": map[string]any{"resolved": false}},
		"size":  0,
	}
	res, err := s.search(ctx, indexEscalations, spec)
	if err != nil {
		return 0, err
	}
	return res.Hits.Total.Value, nil
}

// termsAgg is a terms-aggregation envelope. Keys arrive as strings for
// keyword fields and numbers for integer fields.
type termsAgg struct {
	Buckets []struct {
		Key      any `json:"key"`
		DocCount int `json:"doc_count"`
	} `json:"buckets"`
}

func (a termsAgg) toMap() map[string]int {
	out := make(map[string]int, len(a.Buckets))
	for _, b := range a.Buckets {
		out[bucketKey(b.Key)] = b.DocCount
	}
	return out
}

func bucketKey(v any) string {
	switch k := v.(type) {
	case string:
		return k
	case float64:
		return strconv.FormatFloat(k, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", k)
	}
}

func decodeIncidents(res *searchResult) ([]*incident.Incident, error) {
	out := make([]*incident.Incident, 0, len(res.Hits.Hits))
	for _, h := range res.Hits.Hits {
		var inc incident.Incident
		if err := json.Unmarshal(h.Source, &inc); err != nil {
			return nil, &StoreError{Op: "search", Index: indexIncidents, Err: fmt.Errorf("decode source: %w", err)}
		}
		out = append(out, &inc)
	}
	return out, nil
}
