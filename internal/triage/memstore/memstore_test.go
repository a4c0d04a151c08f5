package memstore

import (
	"context"
	"testing"
	"time"

	"github.com/afrigov/sentinel/internal/incident"
)

func newIncident(id, description, category, city string, severity int, createdAt time.Time) *incident.Incident {
	return &incident.Incident{
		ID:          id,
		Description: description,
		Category:    category,
		City:        city,
		Region:      "Dakar",
		Severity:    severity,
		Status:      incident.StatusOpen,
		CreatedAt:   createdAt,
	}
}

func TestIndexAndGetIncident(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()

	inc := newIncident("INC-00000001", "fuite d'eau", "Infrastructure", "Dakar", 3, time.Now())
	if err := s.IndexIncident(ctx, inc); err != nil {
		t.Fatalf("IndexIncident: %v", err)
	}

	got, ok, err := s.GetIncident(ctx, "INC-00000001")
	if err != nil {
		t.Fatalf("GetIncident: %v", err)
	}
	if !ok {
		t.Fatal("expected incident to be found")
	}
	if got.Description != "fuite d'eau" {
		t.Errorf("description = %q, want %q", got.Description, "fuite d'eau")
	}

	// Returned value is a copy; mutating it must not affect the store.
	got.Status = "mutated"
	again, _, _ := s.GetIncident(ctx, "INC-00000001")
	if again.Status != incident.StatusOpen {
		t.Errorf("store leaked a shared pointer; status = %q", again.Status)
	}
}

func TestGetIncident_Missing(t *testing.T) {
	t.Parallel()

	s := New()
	_, ok, err := s.GetIncident(context.Background(), "INC-DEADBEEF")
	if err != nil {
		t.Fatalf("GetIncident: %v", err)
	}
	if ok {
		t.Error("expected ok=false for missing incident")
	}
}

func TestUpdateIncidentStatus(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	_ = s.IndexIncident(ctx, newIncident("INC-0000000A", "x", "C", "V", 2, time.Now()))

	if err := s.UpdateIncidentStatus(ctx, "INC-0000000A", "Résolu"); err != nil {
		t.Fatalf("UpdateIncidentStatus: %v", err)
	}
	got, _, _ := s.GetIncident(ctx, "INC-0000000A")
	if got.Status != "Résolu" {
		t.Errorf("status = %q, want Résolu", got.Status)
	}
}

func TestSimilarIncidents_RanksByOverlapAndBoost(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now()

	_ = s.IndexIncident(ctx, newIncident("INC-00000001", "coupure electricite quartier nord", "Energie", "Dakar", 4, now))
	_ = s.IndexIncident(ctx, newIncident("INC-00000002", "coupure electricite hopital", "Energie", "Thiès", 5, now))
	_ = s.IndexIncident(ctx, newIncident("INC-00000003", "route bloquée", "Voirie", "Dakar", 2, now))

	got, err := s.SimilarIncidents(ctx, "coupure electricite", "Energie", "Dakar", 5)
	if err != nil {
		t.Fatalf("SimilarIncidents: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("matches = %d, want 2 (no token overlap for the third)", len(got))
	}
	// Same token overlap, but the first matches category AND city.
	if got[0].ID != "INC-00000001" {
		t.Errorf("top match = %s, want INC-00000001 (category+city boost)", got[0].ID)
	}
}

func TestSimilarIncidents_Limit(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	for i := 0; i < 10; i++ {
		_ = s.IndexIncident(ctx, newIncident(
			"INC-0000000"+string(rune('A'+i)), "panne reseau", "Telecom", "Dakar", 3, time.Now()))
	}

	got, err := s.SimilarIncidents(ctx, "panne reseau", "Telecom", "Dakar", 5)
	if err != nil {
		t.Fatalf("SimilarIncidents: %v", err)
	}
	if len(got) != 5 {
		t.Errorf("matches = %d, want limit 5", len(got))
	}
}

func TestListIncidents_NewestFirst(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	_ = s.IndexIncident(ctx, newIncident("INC-OLD00001", "a", "C", "V", 1, base))
	_ = s.IndexIncident(ctx, newIncident("INC-NEW00001", "b", "C", "V", 1, base.Add(time.Hour)))
	_ = s.IndexIncident(ctx, newIncident("INC-MID00001", "c", "C", "V", 1, base.Add(time.Minute)))

	got, err := s.ListIncidents(ctx, 100)
	if err != nil {
		t.Fatalf("ListIncidents: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("len = %d, want 3", len(got))
	}
	if got[0].ID != "INC-NEW00001" || got[2].ID != "INC-OLD00001" {
		t.Errorf("order = [%s %s %s], want newest first", got[0].ID, got[1].ID, got[2].ID)
	}
}

func TestEscalationLifecycle(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now().UTC()

	_ = s.LogEscalation(ctx, &incident.Escalation{ID: "e1", IncidentID: "INC-00000001", CreatedAt: now})
	_ = s.LogEscalation(ctx, &incident.Escalation{ID: "e2", IncidentID: "INC-00000002", CreatedAt: now.Add(time.Second)})

	open, err := s.UnresolvedEscalations(ctx, 50)
	if err != nil {
		t.Fatalf("UnresolvedEscalations: %v", err)
	}
	if len(open) != 2 {
		t.Fatalf("unresolved = %d, want 2", len(open))
	}
	if open[0].ID != "e2" {
		t.Errorf("order: got %s first, want newest first", open[0].ID)
	}

	resolvedAt := now.Add(time.Minute)
	n, err := s.ResolveEscalations(ctx, "INC-00000001", resolvedAt)
	if err != nil {
		t.Fatalf("ResolveEscalations: %v", err)
	}
	if n != 1 {
		t.Errorf("resolved = %d, want 1", n)
	}

	open, _ = s.UnresolvedEscalations(ctx, 50)
	if len(open) != 1 || open[0].ID != "e2" {
		t.Errorf("unresolved after resolve = %v, want only e2", open)
	}

	all := s.Escalations()
	for _, e := range all {
		if e.ID == "e1" {
			if !e.Resolved || e.ResolvedAt == nil || !e.ResolvedAt.Equal(resolvedAt) {
				t.Errorf("e1 = %+v, want resolved with timestamp", e)
			}
		}
	}
}

func TestResolveEscalations_NoMatch(t *testing.T) {
	t.Parallel()

	s := New()
	n, err := s.ResolveEscalations(context.Background(), "INC-MISSING1", time.Now())
	if err != nil {
		t.Fatalf("ResolveEscalations: %v", err)
	}
	if n != 0 {
		t.Errorf("resolved = %d, want 0", n)
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now()

	_ = s.IndexIncident(ctx, newIncident("INC-00000001", "a", "Energie", "Dakar", 5, now))
	_ = s.IndexIncident(ctx, newIncident("INC-00000002", "b", "Energie", "Dakar", 4, now))
	_ = s.IndexIncident(ctx, newIncident("INC-00000003", "c", "Voirie", "Dakar", 3, now))

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalIncidents != 3 {
		t.Errorf("total = %d, want 3", st.TotalIncidents)
	}
	if st.ByCategory["Energie"] != 2 || st.ByCategory["Voirie"] != 1 {
		t.Errorf("by_category = %v", st.ByCategory)
	}
	if st.BySeverity["5"] != 1 {
		t.Errorf("by_severity = %v", st.BySeverity)
	}
	if st.AvgSeverity != 4.0 {
		t.Errorf("avg_severity = %v, want 4.0", st.AvgSeverity)
	}
}

func TestStats_Empty(t *testing.T) {
	t.Parallel()

	st, err := New().Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if st.TotalIncidents != 0 || st.AvgSeverity != 0 {
		t.Errorf("empty stats = %+v", st)
	}
}

func TestCountUnresolvedCritical(t *testing.T) {
	t.Parallel()

	s := New()
	ctx := context.Background()
	now := time.Now()

	open := newIncident("INC-00000001", "a", "C", "V", 5, now)
	resolved := newIncident("INC-00000002", "b", "C", "V", 5, now)
	resolved.Status = incident.StatusResolved
	minor := newIncident("INC-00000003", "c", "C", "V", 3, now)
	legacy := newIncident("INC-00000004", "d", "C", "V", 5, now)
	legacy.Status = "En cours"

	for _, inc := range []*incident.Incident{open, resolved, minor, legacy} {
		_ = s.IndexIncident(ctx, inc)
	}

	n, err := s.CountUnresolvedCritical(ctx)
	if err != nil {
		t.Fatalf("CountUnresolvedCritical: %v", err)
	}
	if n != 2 {
		t.Errorf("count = %d, want 2 (Open + En cours)", n)
	}
}
