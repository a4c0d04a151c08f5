package esstore

import (
	"context"
	"fmt"
	"strings"
)

const (
	indexIncidents   = "incidents"
	indexDecisions   = "agent_decisions"
	indexEscalations = "escalations"
)

var indexMappings = map[string]string{
	indexIncidents: `{
		"mappings": {
			"properties": {
				"incident_id": {"type": "keyword"},
				"description": {"type": "text"},
				"service": {"type": "keyword"},
				"category": {"type": "keyword"},
				"severity": {"type": "integer"},
				"status": {"type": "keyword"},
				"created_at": {"type": "date"},
				"city": {"type": "keyword"},
				"region": {"type": "keyword"},
				"location": {"type": "geo_point"},
				"reporter_type": {"type": "keyword"},
				"priority": {"type": "keyword"},
				"sla_hours": {"type": "integer"},
				"assigned_to": {"type": "keyword"}
			}
		}
	}`,
	indexDecisions: `{
		"mappings": {
			"properties": {
				"incident_id": {"type": "keyword"},
				"similar_incidents_count": {"type": "integer"},
				"risk_score": {"type": "float"},
				"decision": {"type": "keyword"},
				"explanation": {"type": "text"},
				"action_plan": {"type": "text"},
				"created_at": {"type": "date"}
			}
		}
	}`,
	indexEscalations: `{
		"mappings": {
			"properties": {
				"incident_id": {"type": "keyword"},
				"decision": {"type": "keyword"},
				"risk_score": {"type": "float"},
				"notified": {"type": "boolean"},
				"resolved": {"type": "boolean"},
				"created_at": {"type": "date"},
				"resolved_at": {"type": "date"}
			}
		}
	}`,
}

// EnsureIndices creates any missing index with its mapping. Existing indices
// are left untouched.
func (s *Store) EnsureIndices(ctx context.Context) error {
	for _, name := range []string{indexIncidents, indexDecisions, indexEscalations} {
		exists, err := s.indexExists(ctx, name)
		if err != nil {
			return err
		}
		if exists {
			continue
		}
		if err := s.createIndex(ctx, name, indexMappings[name]); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) indexExists(ctx context.Context, name string) (bool, error) {
	res, err := s.es.Indices.Exists([]string{name}, s.es.Indices.Exists.WithContext(ctx))
	if err != nil {
		return false, &StoreError{Op: "exists", Index: name, Err: err}
	}
	defer closeBody(res)
	switch res.StatusCode {
	case 200:
		return true, nil
	case 404:
		return false, nil
	default:
		return false, &StoreError{Op: "exists", Index: name, Err: fmt.Errorf("status %d", res.StatusCode)}
	}
}

func (s *Store) createIndex(ctx context.Context, name, mapping string) error {
	res, err := s.es.Indices.Create(name,
		s.es.Indices.Create.WithContext(ctx),
		s.es.Indices.Create.WithBody(strings.NewReader(mapping)),
	)
	if err != nil {
		return &StoreError{Op: "create", Index: name, Err: err}
	}
	defer closeBody(res)
	if res.IsError() {
		return &StoreError{Op: "create", Index: name, Err: envelopeError(res)}
	}
	return nil
}
