package analysis

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Verdict captures the JSON payload returned by the engine.
type Verdict struct {
	QualityScore    float64  `json:"quality_score"`
	SafetyPassed    bool     `json:"safety_passed"`
	Insights        []string `json:"insights"`
	Concerns        []string `json:"concerns"`
	Recommendations []string `json:"recommendations"`
	Raw             string   `json:"-"`
}

// NeutralVerdict is the documented fallback applied when the engine
// responds with an unparseable payload.
func NeutralVerdict() Verdict {
	return Verdict{
		QualityScore: 0.5,
		SafetyPassed: true,
		Insights:     []string{"Automated analysis output could not be parsed; a neutral score was recorded."},
	}
}

// ParseVerdict decodes an engine payload into a Verdict, tolerating common
// formatting quirks (code fences, surrounding prose). Scores outside [0, 1]
// are clamped. Unparseable content returns an error wrapping
// ErrMalformedVerdict.
func ParseVerdict(content string) (Verdict, error) {
	var verdict Verdict
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return verdict, fmt.Errorf("%w: empty payload", ErrMalformedVerdict)
	}

	candidate := trimmed
	if err := json.Unmarshal([]byte(candidate), &verdict); err != nil {
		candidate = extractJSONObject(stripCodeFence(trimmed))
		if candidate == "" {
			return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
		}
		if err := json.Unmarshal([]byte(candidate), &verdict); err != nil {
			return Verdict{}, fmt.Errorf("%w: %v", ErrMalformedVerdict, err)
		}
	}

	verdict.Raw = trimmed
	if verdict.QualityScore < 0 {
		verdict.QualityScore = 0
	}
	if verdict.QualityScore > 1 {
		verdict.QualityScore = 1
	}
	for i, insight := range verdict.Insights {
		verdict.Insights[i] = strings.TrimSpace(insight)
	}
	return verdict, nil
}

func stripCodeFence(content string) string {
	trimmed := strings.TrimSpace(content)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	body := strings.TrimLeft(trimmed[3:], " \t\r\n")
	if len(body) >= 4 && strings.EqualFold(body[:4], "json") {
		body = strings.TrimLeft(body[4:], " \t\r\n")
	}
	if idx := strings.LastIndex(body, "```"); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(body)
}

func extractJSONObject(content string) string {
	if content == "" {
		return ""
	}
	if content[0] == '{' {
		return content
	}
	start := strings.Index(content, "{")
	end := strings.LastIndex(content, "}")
	if start >= 0 && end > start {
		return strings.TrimSpace(content[start : end+1])
	}
	return ""
}
