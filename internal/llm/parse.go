package llm

import (
	"encoding/json"
	"strings"
)

// Defaults applied when a completion omits or malforms a field. These match
// the fallback values the specialist prompts instruct the model to use.
const (
	defaultConfidence = 0.7
	defaultPriority   = 5.0
)

// specialistWire is the permissive wire form of a specialist reply.
// Pointer fields distinguish "absent" from zero values.
type specialistWire struct {
	Narrative       string   `json:"narrative"`
	Confidence      *float64 `json:"confidence"`
	PriorityScore   *float64 `json:"priority_score"`
	Recommendations []string `json:"recommendations"`
	Concerns        []string `json:"concerns"`
}

// parseSpecialistReply extracts structured opinion fields from a completion.
// Markdown code fences are stripped before parsing. A completion that is not
// valid JSON degrades gracefully: the whole text becomes the narrative and
// the numeric fields take their defaults. Out-of-range numbers are clamped
// to their domain bounds.
func parseSpecialistReply(content string) *SpecialistReply {
	cleaned := stripCodeFences(content)

	var wire specialistWire
	if err := json.Unmarshal([]byte(cleaned), &wire); err != nil {
		return &SpecialistReply{
			Narrative:     strings.TrimSpace(content),
			Confidence:    defaultConfidence,
			PriorityScore: defaultPriority,
		}
	}

	reply := &SpecialistReply{
		Narrative:       strings.TrimSpace(wire.Narrative),
		Confidence:      defaultConfidence,
		PriorityScore:   defaultPriority,
		Recommendations: wire.Recommendations,
		Concerns:        wire.Concerns,
	}

	if wire.Confidence != nil {
		reply.Confidence = clampRange(*wire.Confidence, 0, 1)
	}
	if wire.PriorityScore != nil {
		reply.PriorityScore = clampRange(*wire.PriorityScore, 0, 10)
	}

	return reply
}

// stripCodeFences removes a surrounding markdown code fence, with or
// without a language tag, leaving other content untouched.
func stripCodeFences(s string) string {
	trimmed := strings.TrimSpace(s)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}

	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx >= 0 {
		// Drop the language tag line, e.g. "json".
		trimmed = trimmed[idx+1:]
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// clampRange bounds v to [lo, hi].
func clampRange(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
