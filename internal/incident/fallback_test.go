package incident

import "testing"

func TestFallbackDecision_Table(t *testing.T) {
	t.Parallel()

	tests := []struct {
		severity     int
		wantDecision string
		wantScore    float64
	}{
		{5, DecisionCritical, 4.5},
		{4, DecisionUrgent, 3.5},
		{3, DecisionStandard, 2.5},
		{2, DecisionMonitor, 1.5},
		{1, DecisionMonitor, 1.0},
		{0, DecisionMonitor, 1.0},
		{6, DecisionMonitor, 1.0},
		{-3, DecisionMonitor, 1.0},
	}

	for _, tt := range tests {
		got := FallbackDecision(tt.severity)
		if got.Decision != tt.wantDecision {
			t.Errorf("FallbackDecision(%d).Decision = %q, want %q", tt.severity, got.Decision, tt.wantDecision)
		}
		if got.RiskScore != tt.wantScore {
			t.Errorf("FallbackDecision(%d).RiskScore = %v, want %v", tt.severity, got.RiskScore, tt.wantScore)
		}
	}
}

func TestFallbackDecision_Shape(t *testing.T) {
	t.Parallel()

	got := FallbackDecision(3)

	if got.Explanation != FallbackExplanation {
		t.Errorf("Explanation = %q, want fixed fallback text", got.Explanation)
	}
	if len(got.ActionPlan) != 3 {
		t.Errorf("ActionPlan steps = %d, want 3", len(got.ActionPlan))
	}
	if got.Context == nil {
		t.Error("Context should be an empty map, not nil")
	}
}
