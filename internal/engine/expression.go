package engine

import "regexp"

// warmPattern matches the small relief/gratitude lexicon as whole words.
var warmPattern = regexp.MustCompile(`(?i)\b(safe|okay|here|thank you|glad)\b`)

// elevatedDistress is the intensity above which a generic distress signal
// counts as present for expression rule purposes.
const elevatedDistress = 0.5

// SelectExpression combines stage, mode, accumulator state, and the latest
// utterance into one advisory expression tag. Rules are evaluated in order;
// the first match wins. The result is a soft hint for the generator and the
// fallback when the generator's own tag cannot be parsed.
func SelectExpression(signals Vector, stage Stage, mode ResponseMode, latest string) Expression {
	if stage == StageSafety {
		return ExpressionSafety
	}
	if warmPattern.MatchString(latest) {
		return ExpressionWarm
	}
	if signals[SignalVulnerability] > 0.5 && signals[SignalStress] <= 0 && signals[SignalAnxiety] <= 0 {
		return ExpressionComforting
	}
	if stage == StageExploration && !genericDistress(signals) {
		return ExpressionComforting
	}
	switch mode {
	case ModeAnswer:
		return ExpressionComforting
	case ModeVent:
		return ExpressionEmpathetic
	case ModeExplore:
		return ExpressionReflective
	}
	return ExpressionNeutral
}

// genericDistress reports whether any broad distress signal is elevated.
func genericDistress(signals Vector) bool {
	for _, sig := range []Signal{SignalStress, SignalAnxiety, SignalLowMood, SignalFatigue} {
		if signals[sig] > elevatedDistress {
			return true
		}
	}
	return false
}
