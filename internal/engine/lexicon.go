package engine

import (
	"regexp"
	"strings"
)

// negationTerms suppress a keyword hit when one of them appears in the
// window of tokens immediately preceding the keyword.
var negationTerms = map[string]bool{
	"not":      true,
	"don't":    true,
	"never":    true,
	"wouldn't": true,
	"won't":    true,
	"cant":     true,
	"can't":    true,
}

// DefaultNegationWindow is how many preceding tokens are scanned for a
// negation term.
const DefaultNegationWindow = 3

// DefaultLexicon returns the built-in keyword table. violence_intent and
// vulnerability have no keyword lists: the former is owned by the safety
// interceptor's hard patterns, the latter by the semantic matcher.
func DefaultLexicon() map[Signal][]string {
	return map[Signal][]string{
		SignalStress:      {"stress", "overwhelmed", "pressure", "burnout", "tension"},
		SignalFatigue:     {"tired", "exhausted", "drained", "fatigue", "sleepy"},
		SignalLowMood:     {"sad", "down", "depressed", "empty", "hopeless", "grief", "heartbreak", "crying"},
		SignalAnxiety:     {"anxious", "worried", "panic", "nervous", "scared", "fear"},
		SignalSleepIssues: {"sleep", "insomnia", "restless", "wake", "nightmare"},
		SignalSelfWorth:   {"worthless", "guilt", "shame", "failure", "hate myself"},
		SignalAttention:   {"focus", "concentrate", "distracted", "scattered", "brain fog"},
	}
}

type lexiconEntry struct {
	signal  Signal
	keyword string
	pattern *regexp.Regexp
}

// LexiconMatcher detects whole-word keyword hits with negation suppression.
// Each distinct keyword contributes at most +1.0 per turn: presence is
// scored, not repetition.
type LexiconMatcher struct {
	entries []lexiconEntry
	window  int
}

// NewLexiconMatcher compiles the given keyword table. A nil table uses
// DefaultLexicon; a non-positive window uses DefaultNegationWindow.
func NewLexiconMatcher(table map[Signal][]string, window int) *LexiconMatcher {
	if table == nil {
		table = DefaultLexicon()
	}
	if window <= 0 {
		window = DefaultNegationWindow
	}

	m := &LexiconMatcher{window: window}
	for _, sig := range AllSignals() {
		for _, kw := range table[sig] {
			kw = strings.ToLower(strings.TrimSpace(kw))
			if kw == "" {
				continue
			}
			m.entries = append(m.entries, lexiconEntry{
				signal:  sig,
				keyword: kw,
				pattern: regexp.MustCompile(`\b` + regexp.QuoteMeta(kw) + `\b`),
			})
		}
	}
	return m
}

// Match scores keyword presence in text. Hits whose preceding token window
// contains a negation term are suppressed.
func (m *LexiconMatcher) Match(text string) Increments {
	lower := strings.ToLower(text)
	if strings.TrimSpace(lower) == "" {
		return Increments{}
	}

	tokens := strings.Fields(lower)
	inc := Increments{}

	for _, e := range m.entries {
		loc := e.pattern.FindStringIndex(lower)
		if loc == nil {
			continue
		}
		if m.negated(tokens, len(strings.Fields(lower[:loc[0]]))) {
			continue
		}
		inc[e.signal]++
	}
	return inc
}

// negated scans the window tokens before position pos for a negation term.
func (m *LexiconMatcher) negated(tokens []string, pos int) bool {
	start := pos - m.window
	if start < 0 {
		start = 0
	}
	if pos > len(tokens) {
		pos = len(tokens)
	}
	for _, tok := range tokens[start:pos] {
		if negationTerms[strings.Trim(tok, `.,!?;:"'`)] {
			return true
		}
	}
	return false
}
