package agent

import "strings"

// extractJSON repairs agent output into a parseable JSON object. The pipeline:
// trim whitespace; if the text carries fenced blocks, take the first segment
// that (after an optional "json" tag) starts with "{"; otherwise take the span
// from the first "{" to the last "}"; otherwise pass the text through.
// Already-clean JSON comes back unchanged.
func extractJSON(s string) string {
	s = strings.TrimSpace(s)

	if strings.Contains(s, "```") {
		for _, part := range strings.Split(s, "```") {
			part = strings.TrimSpace(part)
			if strings.HasPrefix(part, "json") {
				part = strings.TrimSpace(part[len("json"):])
			}
			if strings.HasPrefix(part, "{") {
				return part
			}
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start != -1 && end > start {
		return s[start : end+1]
	}

	return s
}
