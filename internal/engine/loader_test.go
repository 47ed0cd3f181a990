package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTables(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestLoadTablesMissingFileReturnsDefaults(t *testing.T) {
	tables, err := LoadTables(filepath.Join(t.TempDir(), "absent.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultLexicon(), tables.Lexicon)
	assert.Equal(t, DefaultPrototypes(), tables.Prototypes)
	assert.Equal(t, DefaultModePrototypes(), tables.Modes)
}

func TestLoadTablesEmptyPathReturnsDefaults(t *testing.T) {
	tables, err := LoadTables("")
	require.NoError(t, err)
	assert.Equal(t, DefaultLexicon(), tables.Lexicon)
}

func TestLoadTablesOverlaysEntries(t *testing.T) {
	path := writeTables(t, `
lexicon:
  stress: [deadline, crunch]
prototypes:
  anxiety: "my chest is tight and my thoughts keep racing"
modes:
  vent: "I just want someone to listen to me right now"
`)

	tables, err := LoadTables(path)
	require.NoError(t, err)

	assert.Equal(t, []string{"deadline", "crunch"}, tables.Lexicon[SignalStress])
	assert.Equal(t, "my chest is tight and my thoughts keep racing", tables.Prototypes[SignalAnxiety])
	assert.Equal(t, "I just want someone to listen to me right now", tables.Modes[ModeVent])

	// Untouched entries keep their defaults.
	assert.Equal(t, DefaultLexicon()[SignalFatigue], tables.Lexicon[SignalFatigue])
	assert.Equal(t, DefaultPrototypes()[SignalLowMood], tables.Prototypes[SignalLowMood])
	assert.Equal(t, DefaultModePrototypes()[ModeAnswer], tables.Modes[ModeAnswer])
}

func TestLoadTablesRejectsUnknownKeys(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"unknown lexicon signal", "lexicon:\n  happiness: [joy]\n"},
		{"unknown prototype signal", "prototypes:\n  rage: \"so angry\"\n"},
		{"unknown mode", "modes:\n  lecture: \"let me explain\"\n"},
		{"empty prototype", "prototypes:\n  stress: \"  \"\n"},
		{"empty mode prototype", "modes:\n  vent: \"\"\n"},
		{"malformed yaml", "lexicon: [not, a, map\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadTables(writeTables(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadTablesFeedsMatcher(t *testing.T) {
	path := writeTables(t, "lexicon:\n  stress: [deadline]\n")

	tables, err := LoadTables(path)
	require.NoError(t, err)

	m := NewLexiconMatcher(tables.Lexicon, 0)
	inc := m.Match("the deadline is tomorrow")
	assert.Equal(t, 1.0, inc[SignalStress])

	inc = m.Match("I am under so much stress")
	assert.Zero(t, inc[SignalStress], "default stress keywords were replaced")
}
