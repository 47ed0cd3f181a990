package engine

import "testing"

func TestSafetyHardPatterns(t *testing.T) {
	s := NewSafetyInterceptor()

	triggers := []string{
		"I will kill him",
		"i will hurt her if she does that again",
		"I want to hurt them so badly",
		"I am going to attack him tomorrow",
		"I'm going to smash his face",
		"gonna smash everything he owns",
	}
	for _, input := range triggers {
		if !s.Triggered(input, 0) {
			t.Errorf("expected hard pattern trigger for %q", input)
		}
	}

	safe := []string{
		"I will not kill him",
		"I would never hurt anyone",
		"he said he was going to attack the problem head on, weird phrasing",
		"my feet are killing me",
		"this deadline is going to kill my weekend",
	}
	for _, input := range safe {
		if s.Triggered(input, 0) {
			t.Errorf("unexpected trigger for %q", input)
		}
	}
}

func TestSafetySemanticThreshold(t *testing.T) {
	s := NewSafetyInterceptor()

	if s.Triggered("completely neutral text", 0.70) {
		t.Error("similarity exactly at threshold must not trigger")
	}
	if !s.Triggered("completely neutral text", 0.71) {
		t.Error("similarity above threshold must trigger")
	}
}

func TestSafetyEitherTriggerSuffices(t *testing.T) {
	s := NewSafetyInterceptor()

	if !s.Triggered("I will kill him", 0.0) {
		t.Error("hard pattern alone must trigger")
	}
	if !s.Triggered("calm words", 0.99) {
		t.Error("semantic similarity alone must trigger")
	}
}
