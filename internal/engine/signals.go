// Package engine implements the conversational signal-fusion and
// dialogue-state core. Each user turn is folded into a decaying vector of
// emotional signals, which in turn drives the conversation stage, the
// response mode, turn ownership, and the preferred expression tag handed to
// the generation layer.
package engine

// Signal names an emotional or risk category tracked across a conversation.
type Signal string

const (
	SignalStress         Signal = "stress"
	SignalFatigue        Signal = "fatigue"
	SignalLowMood        Signal = "low_mood"
	SignalAnxiety        Signal = "anxiety"
	SignalSleepIssues    Signal = "sleep_issues"
	SignalSelfWorth      Signal = "self_worth"
	SignalAttention      Signal = "attention"
	SignalViolenceIntent Signal = "violence_intent"
	SignalVulnerability  Signal = "vulnerability"
)

// AllSignals returns the fixed signal key set in stable order.
func AllSignals() []Signal {
	return []Signal{
		SignalStress,
		SignalFatigue,
		SignalLowMood,
		SignalAnxiety,
		SignalSleepIssues,
		SignalSelfWorth,
		SignalAttention,
		SignalViolenceIntent,
		SignalVulnerability,
	}
}

// Valid reports whether s belongs to the fixed key set.
func (s Signal) Valid() bool {
	switch s {
	case SignalStress, SignalFatigue, SignalLowMood, SignalAnxiety,
		SignalSleepIssues, SignalSelfWorth, SignalAttention,
		SignalViolenceIntent, SignalVulnerability:
		return true
	}
	return false
}

// Vector is the per-session signal accumulator. Keys are fixed for the
// lifetime of the vector; intensities are non-negative and only ever decay
// geometrically or grow by increments.
type Vector map[Signal]float64

// NewVector returns a zeroed vector over the full key set.
func NewVector() Vector {
	v := make(Vector, len(AllSignals()))
	for _, s := range AllSignals() {
		v[s] = 0
	}
	return v
}

// Increments maps signals to additive intensity contributions for one turn.
type Increments map[Signal]float64

// Decay multiplies every intensity by factor. Factors outside (0, 1] are
// ignored so a misconfigured engine can never grow or negate signals here.
func (v Vector) Decay(factor float64) {
	if factor <= 0 || factor > 1 {
		return
	}
	for s := range v {
		v[s] *= factor
	}
}

// Add applies increments to the vector. Unknown signal keys are ignored;
// negative contributions are clamped at zero so the non-negativity invariant
// holds regardless of the matcher that produced them.
func (v Vector) Add(inc Increments) {
	for s, delta := range inc {
		if !s.Valid() {
			continue
		}
		if delta <= 0 {
			continue
		}
		v[s] += delta
	}
}

// Set overwrites a single intensity. Used by the safety interceptor for its
// absolute violence_intent set; never by the additive fusion path.
func (v Vector) Set(s Signal, value float64) {
	if !s.Valid() || value < 0 {
		return
	}
	v[s] = value
}

// Total returns the aggregate signal mass.
func (v Vector) Total() float64 {
	var sum float64
	for _, val := range v {
		sum += val
	}
	return sum
}

// Clone returns an independent copy for snapshots handed outside the engine.
func (v Vector) Clone() Vector {
	out := make(Vector, len(v))
	for s, val := range v {
		out[s] = val
	}
	return out
}
