package report

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/attrangi/internal/engine"
	"github.com/normanking/attrangi/internal/llm"
)

type stubProvider struct {
	lastReq *llm.ChatRequest
	content string
	err     error
}

func (s *stubProvider) Chat(_ context.Context, req *llm.ChatRequest) (*llm.ChatResponse, error) {
	s.lastReq = req
	if s.err != nil {
		return nil, s.err
	}
	return &llm.ChatResponse{Content: s.content}, nil
}

func (s *stubProvider) Name() string    { return "stub" }
func (s *stubProvider) Available() bool { return true }

type stubRetriever struct {
	lastQuery string
	lines     []string
}

func (s *stubRetriever) Retrieve(_ context.Context, query string) ([]string, error) {
	s.lastQuery = query
	return s.lines, nil
}

func TestGenerateReport(t *testing.T) {
	p := &stubProvider{content: "# Key Summary\nThe user reported sustained anxiety."}
	r := &stubRetriever{lines: []string{"anxiety background passage"}}
	g := NewGenerator(p, r)

	sess := engine.NewSession()
	sess.Append(engine.RoleUser, "I feel anxious all the time")
	sess.Append(engine.RoleAssistant, "When did that start?")
	sess.Signals[engine.SignalAnxiety] = 2.5
	sess.Signals[engine.SignalStress] = 0.4

	out, err := g.Generate(context.Background(), sess)
	require.NoError(t, err)
	assert.Contains(t, out, "Key Summary")

	require.NotNil(t, p.lastReq)
	assert.Contains(t, p.lastReq.SystemPrompt, "clinical report")
	assert.InDelta(t, reportTemperature, p.lastReq.Temperature, 1e-9)

	prompt := p.lastReq.Messages[0].Content
	assert.Contains(t, prompt, "user: I feel anxious all the time")
	assert.Contains(t, prompt, "anxiety=2.50")
	assert.Contains(t, prompt, "anxiety background passage")
	assert.Equal(t, "anxiety", r.lastQuery, "only signals above the theme floor drive retrieval")
}

func TestGenerateReportEmptySession(t *testing.T) {
	g := NewGenerator(&stubProvider{}, nil)
	_, err := g.Generate(context.Background(), engine.NewSession())
	assert.Error(t, err)
}

func TestGenerateReportProviderFailure(t *testing.T) {
	g := NewGenerator(&stubProvider{err: errors.New("upstream down")}, nil)
	sess := engine.NewSession()
	sess.Append(engine.RoleUser, "hello")

	_, err := g.Generate(context.Background(), sess)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate report")
}

func TestThemes(t *testing.T) {
	signals := engine.NewVector()
	signals[engine.SignalAnxiety] = 1.5
	signals[engine.SignalStress] = 1.0
	signals[engine.SignalFatigue] = 0.2

	got := Themes(signals)
	assert.Equal(t, []engine.Signal{engine.SignalAnxiety}, got, "exactly 1.0 stays below the strict floor")
}
