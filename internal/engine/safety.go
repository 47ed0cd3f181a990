package engine

import "regexp"

// ViolenceThreshold is the semantic similarity above which violent intent
// latches the safety state.
const ViolenceThreshold = 0.70

// hardPatterns match first-person declared intent to harm. The phrases are
// anchored so negated forms ("I will not kill") do not match.
var hardPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bi\s+will\s+(kill|hurt|attack|smash)\b`),
	regexp.MustCompile(`(?i)\bi\s+want\s+to\s+(kill|hurt|attack)\b`),
	regexp.MustCompile(`(?i)\bi\s*(?:'m|\s+am)\s+going\s+to\s+(kill|hurt|attack|smash)\b`),
	regexp.MustCompile(`(?i)\b(?:i'm\s+)?gonna\s+(kill|hurt|attack|smash)\b`),
}

// SafetyInterceptor detects violent intent before any other processing. A
// trigger latches the session into the terminal safety state and aborts the
// rest of the turn's pipeline.
type SafetyInterceptor struct {
	threshold float64
}

// NewSafetyInterceptor creates an interceptor with the standard threshold.
func NewSafetyInterceptor() *SafetyInterceptor {
	return &SafetyInterceptor{threshold: ViolenceThreshold}
}

// Triggered reports whether the utterance trips either trigger: a hard
// pattern match, or a semantic violence_intent similarity above the
// threshold. The hard pattern is checked first; either alone suffices.
func (s *SafetyInterceptor) Triggered(text string, violenceSimilarity float64) bool {
	for _, p := range hardPatterns {
		if p.MatchString(text) {
			return true
		}
	}
	return violenceSimilarity > s.threshold
}
