package engine

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// QuestionDetector reports whether a user utterance is a question. It is an
// external capability; the engine treats a detection error as "not a
// question".
type QuestionDetector interface {
	IsQuestion(ctx context.Context, text string) (bool, error)
}

// Outcome tags a turn result so the orchestrator's control flow is explicit
// rather than buried in early returns.
type Outcome string

const (
	// OutcomeContinued means the full fusion pipeline ran.
	OutcomeContinued Outcome = "continued"

	// OutcomeHalted means the safety interceptor (or an existing latch)
	// short-circuited the turn.
	OutcomeHalted Outcome = "halted"
)

// TurnResult carries everything the generation layer needs as directives,
// plus a snapshot of the accumulator for logging and reports.
type TurnResult struct {
	Outcome     Outcome
	Signals     Vector
	Stage       Stage
	Mode        ResponseMode
	TurnState   TurnState
	Expression  Expression
	OfferReport bool
}

// Config tunes the engine. Zero values fall back to the defaults; nil tables
// fall back to the built-in lexicon and prototypes.
type Config struct {
	DecayFactor        float64
	NegationWindow     int
	ModeMinConfidence  float64
	ReportThreshold    float64
	Lexicon            map[Signal][]string
	Prototypes         map[Signal]string
	ModePrototypes     map[ResponseMode]string
	SemanticThresholds map[Signal]float64
}

// DefaultConfig returns the standard engine tuning.
func DefaultConfig() *Config {
	return &Config{
		DecayFactor:       DefaultDecayFactor,
		NegationWindow:    DefaultNegationWindow,
		ModeMinConfidence: DefaultModeMinConfidence,
		ReportThreshold:   DefaultReportThreshold,
	}
}

// Engine is the turn orchestrator. It owns no session state itself; it
// applies each turn's deltas to the session handed in, which makes sessions
// independently processable.
type Engine struct {
	cfg *Config

	lexicon  *LexiconMatcher
	semantic *SemanticMatcher
	safety   *SafetyInterceptor
	modes    *ModeClassifier

	embedder  Embedder
	questions QuestionDetector

	log zerolog.Logger
}

// New creates an engine. embedder and questions may be nil: without an
// embedder the engine runs on keyword signals alone, and without a question
// detector every turn is bot-led.
func New(cfg *Config, embedder Embedder, questions QuestionDetector) *Engine {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if cfg.DecayFactor <= 0 || cfg.DecayFactor > 1 {
		cfg.DecayFactor = DefaultDecayFactor
	}
	if cfg.ReportThreshold <= 0 {
		cfg.ReportThreshold = DefaultReportThreshold
	}

	protos := NewPrototypeIndex(embedder, cfg.Prototypes, cfg.ModePrototypes)

	return &Engine{
		cfg:       cfg,
		lexicon:   NewLexiconMatcher(cfg.Lexicon, cfg.NegationWindow),
		semantic:  NewSemanticMatcher(protos, cfg.SemanticThresholds),
		safety:    NewSafetyInterceptor(),
		modes:     NewModeClassifier(protos, cfg.ModeMinConfidence),
		embedder:  embedder,
		questions: questions,
		log:       log.With().Str("component", "engine").Logger(),
	}
}

// ProcessTurn folds one user utterance into the session and returns the
// directives for the generation layer. The session is mutated in place; a
// generation failure downstream never needs the turn re-run.
func (e *Engine) ProcessTurn(ctx context.Context, s *Session, text string) *TurnResult {
	trimmed := strings.TrimSpace(text)
	s.Append(RoleUser, text)
	s.UpdatedAt = time.Now().UTC()

	// A latched session stays terminal no matter what arrives.
	if s.LockStage {
		s.Stage = StageSafety
		s.Mode = ModeSafety
		return &TurnResult{
			Outcome:    OutcomeHalted,
			Signals:    s.Signals.Clone(),
			Stage:      StageSafety,
			Mode:       ModeSafety,
			TurnState:  s.TurnState,
			Expression: ExpressionSafety,
		}
	}

	// One utterance embedding per turn, shared by the semantic matcher and
	// the mode classifier. Failure degrades to keyword-only processing.
	var utterance []float32
	if e.embedder != nil && trimmed != "" {
		vec, err := e.embedder.Embed(ctx, trimmed)
		if err != nil {
			e.log.Warn().Err(err).Msg("utterance embedding failed, continuing on keywords")
		} else {
			utterance = vec
		}
	}

	sims, err := e.semantic.Similarities(ctx, utterance)
	if err != nil {
		e.log.Warn().Err(err).Msg("prototype index unavailable, continuing on keywords")
		sims = nil
	}

	if trimmed != "" && e.safety.Triggered(trimmed, sims[SignalViolenceIntent]) {
		s.Signals.Set(SignalViolenceIntent, 1.0)
		s.Stage = StageSafety
		s.LockStage = true
		s.Mode = ModeSafety
		e.log.Info().Str("session", s.ID).Msg("safety latch engaged")
		return &TurnResult{
			Outcome:    OutcomeHalted,
			Signals:    s.Signals.Clone(),
			Stage:      StageSafety,
			Mode:       ModeSafety,
			TurnState:  s.TurnState,
			Expression: ExpressionSafety,
		}
	}

	// Fusion: decay first, then this turn's increments.
	s.Signals.Decay(e.cfg.DecayFactor)
	if trimmed != "" {
		violenceActive := s.Signals[SignalViolenceIntent] > 0
		s.Signals.Add(e.lexicon.Match(trimmed))
		s.Signals.Add(e.semantic.Increments(sims, violenceActive))
	}

	s.Stage = ClassifyStage(s.Signals, s.LockStage)
	s.Mode = e.modes.Classify(ctx, utterance, s.LockStage)
	s.TurnState = e.trackTurn(ctx, trimmed)

	expr := SelectExpression(s.Signals, s.Stage, s.Mode, trimmed)

	offer := false
	if !s.ReportOffered && s.Signals.Total() >= e.cfg.ReportThreshold {
		s.ReportOffered = true
		offer = true
	}

	e.log.Debug().
		Str("session", s.ID).
		Str("stage", string(s.Stage)).
		Str("mode", string(s.Mode)).
		Str("expression", string(expr)).
		Float64("mass", s.Signals.Total()).
		Msg("turn processed")

	return &TurnResult{
		Outcome:     OutcomeContinued,
		Signals:     s.Signals.Clone(),
		Stage:       s.Stage,
		Mode:        s.Mode,
		TurnState:   s.TurnState,
		Expression:  expr,
		OfferReport: offer,
	}
}

// trackTurn derives turn ownership from the latest utterance only.
func (e *Engine) trackTurn(ctx context.Context, text string) TurnState {
	if e.questions == nil || text == "" {
		return TurnBotLeads
	}
	isQ, err := e.questions.IsQuestion(ctx, text)
	if err != nil {
		e.log.Warn().Err(err).Msg("question detection failed, assuming statement")
		return TurnBotLeads
	}
	if isQ {
		return TurnUserLeads
	}
	return TurnBotLeads
}
