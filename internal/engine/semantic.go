package engine

import (
	"context"

	"github.com/normanking/attrangi/internal/embedding"
)

const (
	// DefaultSemanticThreshold applies to any signal without an explicit
	// threshold entry.
	DefaultSemanticThreshold = 0.45

	// SemanticIncrement is the contribution of a semantic hit.
	SemanticIncrement = 0.5
)

// DefaultSemanticThresholds returns the per-signal similarity thresholds.
func DefaultSemanticThresholds() map[Signal]float64 {
	return map[Signal]float64{
		SignalViolenceIntent: 0.70,
		SignalLowMood:        0.50,
		SignalAnxiety:        0.50,
		SignalVulnerability:  0.55,
	}
}

// SemanticMatcher scores utterances against the embedded prototype set.
type SemanticMatcher struct {
	protos     *PrototypeIndex
	thresholds map[Signal]float64
}

// NewSemanticMatcher creates a matcher over the given prototype index. A nil
// thresholds map uses DefaultSemanticThresholds.
func NewSemanticMatcher(protos *PrototypeIndex, thresholds map[Signal]float64) *SemanticMatcher {
	if thresholds == nil {
		thresholds = DefaultSemanticThresholds()
	}
	return &SemanticMatcher{protos: protos, thresholds: thresholds}
}

// Similarities computes cosine similarity between the utterance vector and
// every signal prototype. The utterance is embedded once per turn by the
// caller and shared with the mode classifier.
func (m *SemanticMatcher) Similarities(ctx context.Context, utterance []float32) (map[Signal]float64, error) {
	if len(utterance) == 0 {
		return nil, nil
	}

	protos, err := m.protos.SignalVectors(ctx)
	if err != nil {
		return nil, err
	}

	sims := make(map[Signal]float64, len(protos))
	for sig, vec := range protos {
		sims[sig] = embedding.CosineSimilarity(utterance, vec)
	}
	return sims, nil
}

// Increments converts similarities into additive signal contributions.
// violence_intent never contributes additively here: crossing its threshold
// is the safety interceptor's latch condition. vulnerability is suppressed
// while violence_intent is non-zero in the session.
func (m *SemanticMatcher) Increments(sims map[Signal]float64, violenceActive bool) Increments {
	inc := Increments{}
	for sig, sim := range sims {
		if sig == SignalViolenceIntent {
			continue
		}
		if sig == SignalVulnerability && violenceActive {
			continue
		}
		if sim > m.threshold(sig) {
			inc[sig] = SemanticIncrement
		}
	}
	return inc
}

func (m *SemanticMatcher) threshold(sig Signal) float64 {
	if t, ok := m.thresholds[sig]; ok {
		return t
	}
	return DefaultSemanticThreshold
}
