package engine

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubQuestions flags any utterance ending in '?' as a question.
type stubQuestions struct {
	err error
}

func (s *stubQuestions) IsQuestion(_ context.Context, text string) (bool, error) {
	if s.err != nil {
		return false, s.err
	}
	return strings.HasSuffix(strings.TrimSpace(text), "?"), nil
}

func TestEngineSafetyLatchIsTerminal(t *testing.T) {
	e := New(nil, nil, nil)
	s := NewSession()
	ctx := context.Background()

	res := e.ProcessTurn(ctx, s, "I will kill him")
	require.Equal(t, OutcomeHalted, res.Outcome)
	assert.Equal(t, StageSafety, res.Stage)
	assert.Equal(t, ModeSafety, res.Mode)
	assert.Equal(t, ExpressionSafety, res.Expression)
	assert.Equal(t, 1.0, res.Signals[SignalViolenceIntent])
	assert.True(t, s.LockStage)

	// De-escalation afterwards changes nothing: the latch is one-way.
	res = e.ProcessTurn(ctx, s, "actually I'm fine now, thank you")
	require.Equal(t, OutcomeHalted, res.Outcome)
	assert.Equal(t, StageSafety, res.Stage)
	assert.Equal(t, ModeSafety, res.Mode)
	assert.Equal(t, ExpressionSafety, res.Expression)
	assert.Equal(t, 1.0, s.Signals[SignalViolenceIntent], "latched signal does not decay")
}

func TestEngineAccumulationAndDecay(t *testing.T) {
	e := New(nil, nil, nil)
	s := NewSession()
	ctx := context.Background()
	text := "I feel anxious about everything"

	res := e.ProcessTurn(ctx, s, text)
	require.Equal(t, OutcomeContinued, res.Outcome)
	assert.InDelta(t, 1.0, res.Signals[SignalAnxiety], 1e-9)
	assert.Equal(t, StageOpening, res.Stage)

	res = e.ProcessTurn(ctx, s, text)
	assert.InDelta(t, 1.85, res.Signals[SignalAnxiety], 1e-9)
	assert.Equal(t, StageOpening, res.Stage)

	res = e.ProcessTurn(ctx, s, text)
	assert.InDelta(t, 2.5725, res.Signals[SignalAnxiety], 1e-9)
	assert.Equal(t, StageExploration, res.Stage)
}

func TestEngineEmptyUtteranceDecaysOnly(t *testing.T) {
	e := New(nil, nil, nil)
	s := NewSession()
	ctx := context.Background()

	e.ProcessTurn(ctx, s, "I feel anxious")
	require.InDelta(t, 1.0, s.Signals[SignalAnxiety], 1e-9)

	res := e.ProcessTurn(ctx, s, "   ")
	require.Equal(t, OutcomeContinued, res.Outcome)
	assert.InDelta(t, 0.85, res.Signals[SignalAnxiety], 1e-9)
	assert.Equal(t, ModeExplore, res.Mode, "no utterance vector falls back to explore")
	assert.Equal(t, TurnBotLeads, res.TurnState)
	assert.Len(t, s.Conversation, 2, "even blank turns stay in the transcript")
}

func TestEngineReportOfferFiresOnce(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ReportThreshold = 1.5
	e := New(cfg, nil, nil)
	s := NewSession()
	ctx := context.Background()
	text := "so much stress and I feel anxious all the time"

	res := e.ProcessTurn(ctx, s, text)
	require.Equal(t, OutcomeContinued, res.Outcome)
	assert.True(t, res.OfferReport, "crossing the threshold offers the report")
	assert.True(t, s.ReportOffered)

	res = e.ProcessTurn(ctx, s, text)
	assert.False(t, res.OfferReport, "the offer is edge-triggered, not repeated")
}

func TestEngineTurnOwnership(t *testing.T) {
	e := New(nil, nil, &stubQuestions{})
	s := NewSession()
	ctx := context.Background()

	res := e.ProcessTurn(ctx, s, "what should I even do about this?")
	assert.Equal(t, TurnUserLeads, res.TurnState)

	res = e.ProcessTurn(ctx, s, "I feel sad today")
	assert.Equal(t, TurnBotLeads, res.TurnState)
}

func TestEngineQuestionDetectorFailure(t *testing.T) {
	e := New(nil, nil, &stubQuestions{err: errors.New("classifier offline")})
	s := NewSession()

	res := e.ProcessTurn(context.Background(), s, "is this normal?")
	assert.Equal(t, TurnBotLeads, res.TurnState, "detection failure assumes a statement")
}

func TestEngineEmbeddingFailureDegrades(t *testing.T) {
	e := New(nil, &stubEmbedder{err: errors.New("ollama unreachable")}, nil)
	s := NewSession()

	res := e.ProcessTurn(context.Background(), s, "I feel anxious")
	require.Equal(t, OutcomeContinued, res.Outcome)
	assert.InDelta(t, 1.0, res.Signals[SignalAnxiety], 1e-9, "keyword path survives embedding loss")
	assert.Equal(t, ModeExplore, res.Mode)
}

func TestEngineSemanticIncrement(t *testing.T) {
	utterance := "my head will not stop spinning lately"

	emb := &stubEmbedder{
		vecs: map[string][]float32{utterance: {1, 0, 0}},
		def:  []float32{0, 1, 0},
	}
	emb.vecs[DefaultPrototypes()[SignalAnxiety]] = []float32{1, 0, 0}
	for _, text := range DefaultModePrototypes() {
		emb.vecs[text] = []float32{0, 0, 1}
	}

	e := New(nil, emb, nil)
	s := NewSession()

	res := e.ProcessTurn(context.Background(), s, utterance)
	require.Equal(t, OutcomeContinued, res.Outcome)
	assert.InDelta(t, 0.5, res.Signals[SignalAnxiety], 1e-9, "semantic hit without any keyword")
	assert.Equal(t, ModeExplore, res.Mode, "orthogonal mode prototypes stay under the confidence floor")
}

func TestEngineSemanticViolenceTriggersLatch(t *testing.T) {
	utterance := "he took everything from me and he deserves what comes next"

	emb := &stubEmbedder{
		vecs: map[string][]float32{utterance: {1, 0, 0}},
		def:  []float32{0, 1, 0},
	}
	emb.vecs[DefaultPrototypes()[SignalViolenceIntent]] = []float32{1, 0, 0}

	e := New(nil, emb, nil)
	s := NewSession()

	res := e.ProcessTurn(context.Background(), s, utterance)
	require.Equal(t, OutcomeHalted, res.Outcome, "semantic similarity alone can engage the latch")
	assert.Equal(t, 1.0, res.Signals[SignalViolenceIntent])
	assert.True(t, s.LockStage)
}
