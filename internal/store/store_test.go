package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/attrangi/internal/engine"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSessionRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := engine.NewSession()
	sess.Signals[engine.SignalAnxiety] = 1.85
	sess.Signals[engine.SignalStress] = 0.5
	sess.Stage = engine.StageExploration
	sess.Mode = engine.ModeVent
	sess.TurnState = engine.TurnUserLeads
	sess.ReportOffered = true
	sess.Append(engine.RoleUser, "I feel anxious")
	sess.Append(engine.RoleAssistant, "Take your time.")

	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.LoadSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, got.ID)
	assert.InDelta(t, 1.85, got.Signals[engine.SignalAnxiety], 1e-9)
	assert.Equal(t, engine.StageExploration, got.Stage)
	assert.Equal(t, engine.ModeVent, got.Mode)
	assert.Equal(t, engine.TurnUserLeads, got.TurnState)
	assert.True(t, got.ReportOffered)
	assert.False(t, got.LockStage)
	require.Len(t, got.Conversation, 2)
	assert.Equal(t, engine.RoleUser, got.Conversation[0].Role)
	assert.Equal(t, "Take your time.", got.Conversation[1].Content)
}

func TestSaveSessionAppendsOnlyNewMessages(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := engine.NewSession()
	sess.Append(engine.RoleUser, "first")
	require.NoError(t, s.SaveSession(ctx, sess))

	sess.Append(engine.RoleAssistant, "second")
	require.NoError(t, s.SaveSession(ctx, sess))
	require.NoError(t, s.SaveSession(ctx, sess), "repeated save must not duplicate")

	got, err := s.LoadSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Conversation, 2)
}

func TestSaveAfterResetClearsTranscript(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := engine.NewSession()
	sess.Append(engine.RoleUser, "before reset")
	sess.Append(engine.RoleAssistant, "reply")
	require.NoError(t, s.SaveSession(ctx, sess))

	sess.Reset()
	sess.Append(engine.RoleUser, "after reset")
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.LoadSession(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, got.Conversation, 1)
	assert.Equal(t, "after reset", got.Conversation[0].Content)
}

func TestLoadSessionPreservesLatch(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := engine.NewSession()
	sess.Signals[engine.SignalViolenceIntent] = 1.0
	sess.Stage = engine.StageSafety
	sess.Mode = engine.ModeSafety
	sess.LockStage = true
	require.NoError(t, s.SaveSession(ctx, sess))

	got, err := s.LoadSession(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, got.LockStage, "the latch must survive a restart")
	assert.Equal(t, engine.StageSafety, got.Stage)
	assert.Equal(t, 1.0, got.Signals[engine.SignalViolenceIntent])
}

func TestLoadUnknownSession(t *testing.T) {
	s := openTestStore(t)
	_, err := s.LoadSession(context.Background(), "no-such-id")
	assert.Error(t, err)
}

func TestListAndDeleteSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a := engine.NewSession()
	b := engine.NewSession()
	require.NoError(t, s.SaveSession(ctx, a))
	require.NoError(t, s.SaveSession(ctx, b))

	ids, err := s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	require.NoError(t, s.DeleteSession(ctx, a.ID))
	ids, err = s.ListSessions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, ids)
}

func TestSummaries(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	sess := engine.NewSession()
	require.NoError(t, s.SaveSession(ctx, sess))

	id, err := s.SaveSummary(ctx, sess.ID, "# Key Summary\nfirst")
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	_, err = s.SaveSummary(ctx, sess.ID, "# Key Summary\nsecond")
	require.NoError(t, err)

	got, err := s.LatestSummary(ctx, sess.ID)
	require.NoError(t, err)
	assert.Contains(t, got, "second")
}

func TestHealth(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Health())
}
