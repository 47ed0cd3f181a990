package engine

// Stage is the coarse conversation phase derived from aggregate signal mass.
type Stage string

const (
	StageOpening     Stage = "opening"
	StageExploration Stage = "exploration"
	StageSynthesis   Stage = "synthesis"
	StageSafety      Stage = "safety"
)

// ResponseMode is the classified user intent for the current turn.
type ResponseMode string

const (
	ModeAnswer  ResponseMode = "answer"
	ModeVent    ResponseMode = "vent"
	ModeExplore ResponseMode = "explore"
	ModeSafety  ResponseMode = "safety"
)

// TurnState records who must speak substantively next.
type TurnState string

const (
	// TurnUserLeads means the user asked a question and is owed a direct
	// answer; the generator must not ask a new question this turn.
	TurnUserLeads TurnState = "user_leads"

	// TurnBotLeads means the assistant may steer the conversation.
	TurnBotLeads TurnState = "bot_leads"
)

// Expression is the advisory tone tag attached to a generation request.
type Expression string

const (
	ExpressionEmpathetic Expression = "EMPATHETIC"
	ExpressionComforting Expression = "COMFORTING"
	ExpressionWarm       Expression = "WARM"
	ExpressionSteady     Expression = "STEADY"
	ExpressionReflective Expression = "REFLECTIVE"
	ExpressionStressed   Expression = "STRESSED"
	ExpressionTired      Expression = "TIRED"
	ExpressionSafety     Expression = "SAFETY"
	ExpressionNeutral    Expression = "NEUTRAL"
)

// ValidExpression reports whether tag is one of the displayable expressions.
// The generation layer uses this to reject unrecognized tags parsed from
// model output.
func ValidExpression(tag Expression) bool {
	switch tag {
	case ExpressionEmpathetic, ExpressionComforting, ExpressionWarm,
		ExpressionSteady, ExpressionReflective, ExpressionStressed,
		ExpressionTired, ExpressionSafety, ExpressionNeutral:
		return true
	}
	return false
}

// Stage thresholds over total signal mass and related tuning defaults.
const (
	DefaultDecayFactor          = 0.85
	DefaultExplorationThreshold = 2.0
	DefaultSynthesisThreshold   = 5.0
	DefaultReportThreshold      = 6.0
	DefaultModeMinConfidence    = 0.55
)

// ClassifyStage derives the stage from the accumulator. The safety latch
// pins the result unconditionally; otherwise thresholds apply to the total
// signal mass, rewarding breadth of disclosure over depth in one category.
func ClassifyStage(signals Vector, locked bool) Stage {
	if locked {
		return StageSafety
	}
	score := signals.Total()
	switch {
	case score >= DefaultSynthesisThreshold:
		return StageSynthesis
	case score >= DefaultExplorationThreshold:
		return StageExploration
	default:
		return StageOpening
	}
}
