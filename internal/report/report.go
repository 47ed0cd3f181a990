// Package report generates the structured clinical summary a user can
// request once a conversation has accumulated enough signal.
package report

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/normanking/attrangi/internal/engine"
	"github.com/normanking/attrangi/internal/generation"
	"github.com/normanking/attrangi/internal/llm"
)

// systemPrompt fixes the report structure. Every section must appear even
// when nothing was discussed, so downstream readers can rely on the layout.
const systemPrompt = `You are an expert clinical summarizer.
Your goal is to analyze the conversation history and generate a structured clinical report.

You MUST include the following sections. If information is missing for a section, write "Not discussed".

1. Key Summary
2. Medical History
3. Psychiatric History
4. Family & Social Background
5. Strengths
6. Diagnosis (Professional Impression)
7. Assessments (Mention any clear symptoms/signals observed)
8. Core Issues Summary
9. Goals
10. Wider Recommendation (Therapeutic suggestions)
11. Risk Assessment (Self-harm/Suicide indications)
12. Review (Next steps)

Format the output clearly with Markdown headers.
Be objective, professional, and empathetic.`

// themeThreshold: only signals that have built real mass drive the
// background lookup.
const themeThreshold = 1.0

// reportTemperature runs cool for factual extraction.
const reportTemperature = 0.3

// Generator produces clinical reports from a session.
type Generator struct {
	provider  llm.Provider
	retriever generation.Retriever
	log       zerolog.Logger
}

// NewGenerator creates a report generator. retriever may be nil.
func NewGenerator(provider llm.Provider, retriever generation.Retriever) *Generator {
	return &Generator{
		provider:  provider,
		retriever: retriever,
		log:       log.With().Str("component", "report").Logger(),
	}
}

// Generate builds the clinical report for a session's full transcript.
func (g *Generator) Generate(ctx context.Context, sess *engine.Session) (string, error) {
	if len(sess.Conversation) == 0 {
		return "", fmt.Errorf("session %s has no conversation to summarize", sess.ID)
	}

	var sb strings.Builder
	sb.WriteString("Conversation Log:\n")
	for _, msg := range sess.Conversation {
		fmt.Fprintf(&sb, "%s: %s\n", msg.Role, msg.Content)
	}
	fmt.Fprintf(&sb, "\nDetected Signals: %s\n", signalTable(sess.Signals))

	if background := g.background(ctx, sess.Signals); background != "" {
		sb.WriteString("\nRelevant Background:\n")
		sb.WriteString(background)
		sb.WriteString("\n")
	}
	sb.WriteString("\nPlease generate the comprehensive report.")

	resp, err := g.provider.Chat(ctx, &llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     []llm.Message{{Role: "user", Content: sb.String()}},
		Temperature:  reportTemperature,
	})
	if err != nil {
		return "", fmt.Errorf("generate report: %w", err)
	}

	g.log.Info().Str("session", sess.ID).Int("tokens", resp.TokensUsed).Msg("report generated")
	return strings.TrimSpace(resp.Content), nil
}

// Themes returns the signals with meaningful accumulated mass, in stable
// order.
func Themes(signals engine.Vector) []engine.Signal {
	var out []engine.Signal
	for _, sig := range engine.AllSignals() {
		if signals[sig] > themeThreshold {
			out = append(out, sig)
		}
	}
	return out
}

func (g *Generator) background(ctx context.Context, signals engine.Vector) string {
	if g.retriever == nil {
		return ""
	}
	themes := Themes(signals)
	if len(themes) == 0 {
		return ""
	}

	parts := make([]string, len(themes))
	for i, t := range themes {
		parts[i] = string(t)
	}
	lines, err := g.retriever.Retrieve(ctx, strings.Join(parts, ", "))
	if err != nil {
		g.log.Warn().Err(err).Msg("report background retrieval failed")
		return ""
	}
	return strings.Join(lines, " ")
}

func signalTable(signals engine.Vector) string {
	var parts []string
	for _, sig := range engine.AllSignals() {
		if v := signals[sig]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s=%.2f", sig, v))
		}
	}
	if len(parts) == 0 {
		return "none"
	}
	return strings.Join(parts, ", ")
}
