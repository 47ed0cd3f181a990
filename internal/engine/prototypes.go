package engine

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Embedder generates a vector embedding for a piece of text. It is the only
// external capability the semantic components depend on; implementations
// live outside this package.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// DefaultPrototypes returns the per-signal prototype sentences the semantic
// matcher compares utterances against.
func DefaultPrototypes() map[Signal]string {
	return map[Signal]string{
		SignalStress:         "I feel overwhelmed, under pressure and close to burning out",
		SignalFatigue:        "I am exhausted and drained, I have no energy left",
		SignalLowMood:        "I feel sad, empty, hopeless and numb inside",
		SignalAnxiety:        "I feel anxious, worried and panicky, my mind won't settle",
		SignalSleepIssues:    "I cannot sleep, I lie awake restless at night",
		SignalSelfWorth:      "I feel worthless and ashamed, like a complete failure",
		SignalAttention:      "I cannot focus or concentrate, my thoughts are scattered",
		SignalViolenceIntent: "I want to hurt someone, I am going to attack them",
		SignalVulnerability:  "I feel fragile and unsure, I don't really know what is happening to me",
	}
}

// DefaultModePrototypes returns the prototype sentences for the closed set
// of dialogue-intent modes.
func DefaultModePrototypes() map[ResponseMode]string {
	return map[ResponseMode]string{
		ModeAnswer:  "just answer my question directly, stop asking me things back",
		ModeVent:    "I just need to get this off my chest, I want to be heard, not advised",
		ModeExplore: "I have been thinking about why I feel this way and what it means",
	}
}

// PrototypeIndex holds the embedded prototype vectors. It is process-wide,
// built exactly once on first use, and read-only afterwards, so concurrent
// sessions can share a single instance.
type PrototypeIndex struct {
	embedder Embedder

	signalTexts map[Signal]string
	modeTexts   map[ResponseMode]string

	once     sync.Once
	buildErr error

	signalVecs map[Signal][]float32
	modeVecs   map[ResponseMode][]float32
}

// NewPrototypeIndex creates an index over the given prototype tables. Nil
// tables fall back to the defaults. Nothing is embedded until first use.
func NewPrototypeIndex(embedder Embedder, signals map[Signal]string, modes map[ResponseMode]string) *PrototypeIndex {
	if signals == nil {
		signals = DefaultPrototypes()
	}
	if modes == nil {
		modes = DefaultModePrototypes()
	}
	return &PrototypeIndex{
		embedder:    embedder,
		signalTexts: signals,
		modeTexts:   modes,
	}
}

// build embeds every prototype in parallel. Runs at most once per process;
// on failure no partial vectors are kept and the error is sticky.
func (p *PrototypeIndex) build(ctx context.Context) error {
	p.once.Do(func() {
		if p.embedder == nil {
			p.buildErr = fmt.Errorf("no embedder configured")
			return
		}

		signalVecs := make(map[Signal][]float32, len(p.signalTexts))
		modeVecs := make(map[ResponseMode][]float32, len(p.modeTexts))

		g, gctx := errgroup.WithContext(ctx)
		var mu sync.Mutex

		for sig, text := range p.signalTexts {
			sig, text := sig, text
			g.Go(func() error {
				vec, err := p.embedder.Embed(gctx, text)
				if err != nil {
					return fmt.Errorf("embed prototype %s: %w", sig, err)
				}
				mu.Lock()
				signalVecs[sig] = vec
				mu.Unlock()
				return nil
			})
		}
		for mode, text := range p.modeTexts {
			mode, text := mode, text
			g.Go(func() error {
				vec, err := p.embedder.Embed(gctx, text)
				if err != nil {
					return fmt.Errorf("embed mode prototype %s: %w", mode, err)
				}
				mu.Lock()
				modeVecs[mode] = vec
				mu.Unlock()
				return nil
			})
		}

		if err := g.Wait(); err != nil {
			p.buildErr = err
			return
		}
		p.signalVecs = signalVecs
		p.modeVecs = modeVecs
	})
	return p.buildErr
}

// SignalVectors returns the embedded signal prototypes, building the index
// on first call.
func (p *PrototypeIndex) SignalVectors(ctx context.Context) (map[Signal][]float32, error) {
	if err := p.build(ctx); err != nil {
		return nil, err
	}
	return p.signalVecs, nil
}

// ModeVectors returns the embedded mode prototypes, building the index on
// first call.
func (p *PrototypeIndex) ModeVectors(ctx context.Context) (map[ResponseMode][]float32, error) {
	if err := p.build(ctx); err != nil {
		return nil, err
	}
	return p.modeVecs, nil
}
