package engine

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Tables bundles the tunable matcher inputs: keyword lists per signal,
// prototype sentences per signal, and prototype sentences per response mode.
// A YAML file overrides entries individually; anything not mentioned keeps
// its built-in value.
type Tables struct {
	Lexicon    map[Signal][]string     `yaml:"lexicon"`
	Prototypes map[Signal]string       `yaml:"prototypes"`
	Modes      map[ResponseMode]string `yaml:"modes"`
}

// DefaultTables returns the built-in keyword and prototype tables.
func DefaultTables() *Tables {
	return &Tables{
		Lexicon:    DefaultLexicon(),
		Prototypes: DefaultPrototypes(),
		Modes:      DefaultModePrototypes(),
	}
}

// LoadTables reads a tables YAML file, overlaying it on the defaults.
// A missing file (or empty path) returns the defaults.
func LoadTables(path string) (*Tables, error) {
	tables := DefaultTables()
	if path == "" {
		return tables, nil
	}

	if strings.HasPrefix(path, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("resolve home directory: %w", err)
		}
		path = filepath.Join(home, path[1:])
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return tables, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read tables file: %w", err)
	}

	var overlay Tables
	if err := yaml.Unmarshal(data, &overlay); err != nil {
		return nil, fmt.Errorf("parse tables file %s: %w", path, err)
	}

	for sig, keywords := range overlay.Lexicon {
		if !sig.Valid() {
			return nil, fmt.Errorf("tables file %s: unknown signal %q in lexicon", path, sig)
		}
		tables.Lexicon[sig] = keywords
	}
	for sig, text := range overlay.Prototypes {
		if !sig.Valid() {
			return nil, fmt.Errorf("tables file %s: unknown signal %q in prototypes", path, sig)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("tables file %s: empty prototype for %q", path, sig)
		}
		tables.Prototypes[sig] = text
	}
	for mode, text := range overlay.Modes {
		switch mode {
		case ModeAnswer, ModeVent, ModeExplore:
		default:
			return nil, fmt.Errorf("tables file %s: unknown mode %q", path, mode)
		}
		if strings.TrimSpace(text) == "" {
			return nil, fmt.Errorf("tables file %s: empty prototype for mode %q", path, mode)
		}
		tables.Modes[mode] = text
	}

	return tables, nil
}
