package generation

import (
	"context"
	"strings"
)

// interrogativeLeads are sentence openers that mark a question even without
// a question mark.
var interrogativeLeads = map[string]bool{
	"what":   true,
	"why":    true,
	"how":    true,
	"when":   true,
	"where":  true,
	"who":    true,
	"which":  true,
	"can":    true,
	"could":  true,
	"should": true,
	"would":  true,
	"will":   true,
	"do":     true,
	"does":   true,
	"did":    true,
	"is":     true,
	"are":    true,
	"am":     true,
}

// HeuristicQuestionDetector classifies questions without a model call: a
// trailing question mark, or an interrogative opener on a multi-word
// utterance. It never returns an error.
type HeuristicQuestionDetector struct{}

// NewHeuristicQuestionDetector returns the zero-cost detector.
func NewHeuristicQuestionDetector() *HeuristicQuestionDetector {
	return &HeuristicQuestionDetector{}
}

// IsQuestion reports whether text reads as a question.
func (d *HeuristicQuestionDetector) IsQuestion(_ context.Context, text string) (bool, error) {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return false, nil
	}
	if strings.HasSuffix(trimmed, "?") {
		return true, nil
	}

	fields := strings.Fields(strings.ToLower(trimmed))
	if len(fields) < 2 {
		return false, nil
	}
	return interrogativeLeads[strings.Trim(fields[0], `.,!;:"'`)], nil
}
