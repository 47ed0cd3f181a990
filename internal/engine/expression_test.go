package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpressionSafetyDominates(t *testing.T) {
	v := NewVector()
	// Gratitude keyword present, but the safety stage wins.
	got := SelectExpression(v, StageSafety, ModeVent, "actually I'm fine now, thank you")
	assert.Equal(t, ExpressionSafety, got)
}

func TestExpressionWarmLexicon(t *testing.T) {
	v := NewVector()
	for _, input := range []string{
		"I feel safe with you",
		"it's okay now",
		"thank you for listening",
		"I'm glad we talked",
	} {
		got := SelectExpression(v, StageOpening, ModeVent, input)
		assert.Equal(t, ExpressionWarm, got, "input %q", input)
	}
}

func TestExpressionVulnerableComforting(t *testing.T) {
	v := NewVector()
	v[SignalVulnerability] = 0.6

	got := SelectExpression(v, StageOpening, ModeVent, "I don't really know what this is")
	assert.Equal(t, ExpressionComforting, got)

	// Elevated stress knocks out the vulnerability rule; vent falls through
	// to empathetic.
	v[SignalStress] = 1.0
	got = SelectExpression(v, StageOpening, ModeVent, "I don't really know what this is")
	assert.Equal(t, ExpressionEmpathetic, got)
}

func TestExpressionExplorationWithoutDistress(t *testing.T) {
	v := NewVector()
	v[SignalSelfWorth] = 2.5 // enough mass for exploration, not generic distress

	got := SelectExpression(v, StageExploration, ModeExplore, "maybe it started last year")
	assert.Equal(t, ExpressionComforting, got)

	v[SignalAnxiety] = 1.0
	got = SelectExpression(v, StageExploration, ModeExplore, "maybe it started last year")
	assert.Equal(t, ExpressionReflective, got, "distress present falls through to mode")
}

func TestExpressionModeFallback(t *testing.T) {
	v := NewVector()
	v[SignalStress] = 1.0 // suppress the exploration rule

	tests := []struct {
		mode ResponseMode
		want Expression
	}{
		{ModeAnswer, ExpressionComforting},
		{ModeVent, ExpressionEmpathetic},
		{ModeExplore, ExpressionReflective},
		{ResponseMode(""), ExpressionNeutral},
	}
	for _, tt := range tests {
		got := SelectExpression(v, StageOpening, tt.mode, "just words")
		assert.Equal(t, tt.want, got, "mode %q", tt.mode)
	}
}
