// Package generation turns an engine verdict into a model reply: it builds
// the per-turn directive stack, calls the chat provider, and parses the
// expression tag off the raw output.
package generation

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/normanking/attrangi/internal/engine"
	"github.com/normanking/attrangi/internal/llm"
)

// Retriever supplies background passages for a query. Implementations live
// in the retrieval package; nil is a valid generator configuration.
type Retriever interface {
	Retrieve(ctx context.Context, query string) ([]string, error)
}

// Reply is a parsed model response.
type Reply struct {
	Text       string
	Expression engine.Expression
}

// fallbackReply is shown when the provider fails mid-conversation.
const fallbackReply = "I'm having a little trouble thinking right now, but I'm here for you."

// exprPattern matches the trailing expression tag, tolerating both
// [EXPRESSION: TAG] and bare [TAG] forms.
var exprPattern = regexp.MustCompile(`\[(?:EXPRESSION:\s*)?([A-Z_]+)\]`)

// Generator produces companion replies.
type Generator struct {
	provider  llm.Provider
	retriever Retriever
	log       zerolog.Logger
}

// NewGenerator creates a generator. retriever may be nil.
func NewGenerator(provider llm.Provider, retriever Retriever) *Generator {
	return &Generator{
		provider:  provider,
		retriever: retriever,
		log:       log.With().Str("component", "generation").Logger(),
	}
}

// Generate builds the directive stack from the turn result and asks the
// provider for a reply. Provider failure degrades to a canned holding reply
// rather than an error: the session has already absorbed the turn.
func (g *Generator) Generate(ctx context.Context, s *engine.Session, res *engine.TurnResult, userText string) *Reply {
	req := &llm.ChatRequest{
		SystemPrompt: systemPrompt,
		Messages:     g.buildMessages(ctx, s, res, userText),
	}

	resp, err := g.provider.Chat(ctx, req)
	if err != nil {
		g.log.Error().Err(err).Str("session", s.ID).Msg("chat completion failed")
		return &Reply{Text: fallbackReply, Expression: engine.ExpressionNeutral}
	}

	reply := ParseReply(resp.Content, res.Expression)
	if res.OfferReport {
		reply.Text = strings.TrimSpace(reply.Text) + "\n\n" + reportOfferLine
	}
	return reply
}

// buildMessages assembles the turn-specific directives. Order matters: the
// persona prompt travels separately as the request's system prompt, and the
// user utterance always comes last.
func (g *Generator) buildMessages(ctx context.Context, s *engine.Session, res *engine.TurnResult, userText string) []llm.Message {
	var msgs []llm.Message
	sys := func(content string) {
		msgs = append(msgs, llm.Message{Role: "system", Content: content})
	}

	if res.Outcome == engine.OutcomeHalted {
		sys(safetyDirective)
		msgs = append(msgs, llm.Message{Role: "user", Content: userText})
		return msgs
	}

	sys(fmt.Sprintf("Conversation stage: %s", res.Stage))
	sys(modeDirective(res.Mode))
	if res.TurnState == engine.TurnUserLeads {
		sys("The user asked you a question. Answer it directly first. Do NOT ask a new question this turn.")
	}
	sys(fmt.Sprintf("Preferred expression for this turn: %s. Override it only if the user's message clearly calls for another.", res.Expression))
	if summary := signalSummary(res.Signals); summary != "" {
		sys("Emotional signals detected so far (internal, never mention them): " + summary)
	}
	if recent := formatRecent(s.Recent(engine.ContextWindow)); recent != "" {
		sys("Recent conversation: " + recent)
	}
	if ctxLines := g.background(ctx, userText); len(ctxLines) > 0 {
		sys("Background mental health knowledge (use gently, do not quote):\n" + strings.Join(ctxLines, "\n"))
	}
	sys(freshEmotionDirective)
	if res.Stage == engine.StageOpening && len(s.Conversation) <= 1 {
		sys(openingDirective)
	}

	msgs = append(msgs, llm.Message{Role: "user", Content: userText})
	return msgs
}

// background fetches retrieval context, skipping very short inputs where a
// lookup is mostly noise.
func (g *Generator) background(ctx context.Context, userText string) []string {
	if g.retriever == nil || len(strings.Fields(userText)) <= 3 {
		return nil
	}
	lines, err := g.retriever.Retrieve(ctx, userText)
	if err != nil {
		g.log.Warn().Err(err).Msg("background retrieval failed")
		return nil
	}
	return lines
}

// modeDirective translates the classified user intent into generation
// guidance.
func modeDirective(mode engine.ResponseMode) string {
	switch mode {
	case engine.ModeAnswer:
		return "The user wants a direct answer. Give one plainly, then stop. No follow-up question."
	case engine.ModeVent:
		return "The user needs to be heard, not advised. Acknowledge and hold space. Do not problem-solve."
	default:
		return "The user is open to exploring. One gentle, open-ended question is welcome."
	}
}

// signalSummary renders the non-zero accumulator entries for the model.
func signalSummary(signals engine.Vector) string {
	var parts []string
	for _, sig := range engine.AllSignals() {
		if v := signals[sig]; v > 0 {
			parts = append(parts, fmt.Sprintf("%s=%.2f", sig, v))
		}
	}
	return strings.Join(parts, ", ")
}

// formatRecent flattens the context window into a compact transcript.
func formatRecent(msgs []engine.Message) string {
	if len(msgs) == 0 {
		return ""
	}
	lines := make([]string, 0, len(msgs))
	for _, m := range msgs {
		lines = append(lines, fmt.Sprintf("%s: %s", m.Role, m.Content))
	}
	return strings.Join(lines, "\n")
}

// ParseReply strips the expression tag from raw model output. Unrecognized
// or missing tags fall back to the engine's own selection; a completely
// empty remainder falls back to the holding reply.
func ParseReply(raw string, hint engine.Expression) *Reply {
	expr := hint
	if !engine.ValidExpression(expr) {
		expr = engine.ExpressionNeutral
	}

	if m := exprPattern.FindStringSubmatch(raw); m != nil {
		if tag := engine.Expression(m[1]); engine.ValidExpression(tag) {
			expr = tag
		}
	}

	text := strings.TrimSpace(exprPattern.ReplaceAllString(raw, ""))
	if text == "" {
		text = fallbackReply
	}
	return &Reply{Text: text, Expression: expr}
}
