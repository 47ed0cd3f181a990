package engine

import (
	"context"

	"github.com/normanking/attrangi/internal/embedding"
)

// ModeClassifier selects the dialogue-intent mode for a turn by cosine
// similarity against the mode prototypes.
type ModeClassifier struct {
	protos        *PrototypeIndex
	minConfidence float64
}

// NewModeClassifier creates a classifier over the given prototype index. A
// non-positive minConfidence uses DefaultModeMinConfidence.
func NewModeClassifier(protos *PrototypeIndex, minConfidence float64) *ModeClassifier {
	if minConfidence <= 0 {
		minConfidence = DefaultModeMinConfidence
	}
	return &ModeClassifier{protos: protos, minConfidence: minConfidence}
}

// Classify picks the arg-max mode for the utterance vector. A latched
// session always classifies as safety. When the winning similarity is below
// the confidence floor, or no utterance vector is available (embedding
// failure, empty turn), the classifier falls back to explore as the most
// open-ended default.
func (c *ModeClassifier) Classify(ctx context.Context, utterance []float32, locked bool) ResponseMode {
	if locked {
		return ModeSafety
	}
	if len(utterance) == 0 {
		return ModeExplore
	}

	protos, err := c.protos.ModeVectors(ctx)
	if err != nil {
		return ModeExplore
	}

	best := ModeExplore
	bestScore := -1.0
	for mode, vec := range protos {
		if score := embedding.CosineSimilarity(utterance, vec); score > bestScore {
			best = mode
			bestScore = score
		}
	}

	if bestScore < c.minConfidence {
		return ModeExplore
	}
	return best
}
