package incident

// fallbackTable maps severity to the deterministic decision used when the AI
// agent is unavailable or returns unparseable output.
var fallbackTable = map[int]struct {
	decision string
	score    float64
}{
	5: {DecisionCritical, 4.5},
	4: {DecisionUrgent, 3.5},
	3: {DecisionStandard, 2.5},
	2: {DecisionMonitor, 1.5},
	1: {DecisionMonitor, 1.0},
}

// FallbackExplanation is the fixed explanation attached to fallback decisions.
const FallbackExplanation = "Analyse de secours basée sur la sévérité (agent IA indisponible)."

// FallbackDecision returns the deterministic severity-based analysis. It always
// succeeds; any severity outside 1..5 maps to (MONITOR, 1.0).
func FallbackDecision(severity int) *Analysis {
	decision, score := DecisionMonitor, 1.0
	if e, ok := fallbackTable[severity]; ok {
		decision, score = e.decision, e.score
	}
	return &Analysis{
		RiskScore:   score,
		Decision:    decision,
		Explanation: FallbackExplanation,
		ActionPlan: []string{
			"Vérifier l'incident manuellement",
			"Contacter le service responsable",
			"Mettre à jour le statut",
		},
		Context: map[string]any{},
	}
}
