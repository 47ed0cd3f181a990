// Package config loads application configuration from
// ~/.attrangi/config.yaml with environment-variable overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds all companion configuration.
type Config struct {
	LLM       LLMConfig       `mapstructure:"llm" yaml:"llm"`
	Embedding EmbeddingConfig `mapstructure:"embedding" yaml:"embedding"`
	Engine    EngineConfig    `mapstructure:"engine" yaml:"engine"`
	Knowledge KnowledgeConfig `mapstructure:"knowledge" yaml:"knowledge"`
	Server    ServerConfig    `mapstructure:"server" yaml:"server"`
	Store     StoreConfig     `mapstructure:"store" yaml:"store"`
	Logging   LoggingConfig   `mapstructure:"logging" yaml:"logging"`
}

// LLMConfig configures the chat provider.
type LLMConfig struct {
	// Endpoint is the OpenAI-compatible API base URL.
	Endpoint string `mapstructure:"endpoint" yaml:"endpoint"`
	// APIKey authenticates against the provider. Usually set via
	// ATTRANGI_LLM_API_KEY rather than the file.
	APIKey string `mapstructure:"api_key" yaml:"api_key,omitempty"`
	// Model is the chat model identifier.
	Model string `mapstructure:"model" yaml:"model"`
	// MaxTokens caps response length.
	MaxTokens int `mapstructure:"max_tokens" yaml:"max_tokens"`
	// Temperature for conversational replies.
	Temperature float64 `mapstructure:"temperature" yaml:"temperature"`
	// TimeoutSec bounds each API call.
	TimeoutSec int `mapstructure:"timeout_sec" yaml:"timeout_sec"`
}

// EmbeddingConfig configures the local embedding backend.
type EmbeddingConfig struct {
	// Host is the Ollama base URL.
	Host string `mapstructure:"host" yaml:"host"`
	// Model is the embedding model name.
	Model string `mapstructure:"model" yaml:"model"`
}

// EngineConfig tunes the signal-fusion engine.
type EngineConfig struct {
	// DecayFactor multiplies every signal at the start of a turn.
	DecayFactor float64 `mapstructure:"decay_factor" yaml:"decay_factor"`
	// NegationWindow is the token lookback for negation suppression.
	NegationWindow int `mapstructure:"negation_window" yaml:"negation_window"`
	// ModeMinConfidence is the cosine floor for intent classification.
	ModeMinConfidence float64 `mapstructure:"mode_min_confidence" yaml:"mode_min_confidence"`
	// ReportThreshold is the signal mass that unlocks the report offer.
	ReportThreshold float64 `mapstructure:"report_threshold" yaml:"report_threshold"`
	// TablesFile optionally overrides the keyword and prototype tables.
	TablesFile string `mapstructure:"tables_file" yaml:"tables_file"`
}

// KnowledgeConfig configures background retrieval.
type KnowledgeConfig struct {
	// Dir holds the .txt/.md knowledge base files.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// TopK is how many passages a query returns.
	TopK int `mapstructure:"top_k" yaml:"top_k"`
}

// ServerConfig configures the WebSocket gateway.
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host"`
	Port int    `mapstructure:"port" yaml:"port"`
}

// StoreConfig configures persistence.
type StoreConfig struct {
	// DataDir holds the SQLite database.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`
}

// LoggingConfig configures zerolog output.
type LoggingConfig struct {
	// Level is one of trace, debug, info, warn, error.
	Level string `mapstructure:"level" yaml:"level"`
	// Format is "console" or "json".
	Format string `mapstructure:"format" yaml:"format"`
	// File receives logs in addition to stderr when set.
	File string `mapstructure:"file" yaml:"file,omitempty"`
}

// Default returns the standard configuration.
func Default() *Config {
	return &Config{
		LLM: LLMConfig{
			Endpoint:    "https://api.groq.com/openai/v1",
			Model:       "llama-3.3-70b-versatile",
			MaxTokens:   2048,
			Temperature: 0.85,
			TimeoutSec:  30,
		},
		Embedding: EmbeddingConfig{
			Host:  "http://127.0.0.1:11434",
			Model: "nomic-embed-text",
		},
		Engine: EngineConfig{
			DecayFactor:       0.85,
			NegationWindow:    3,
			ModeMinConfidence: 0.55,
			ReportThreshold:   6.0,
			TablesFile:        "~/.attrangi/tables.yaml",
		},
		Knowledge: KnowledgeConfig{
			Dir:  "~/.attrangi/knowledge",
			TopK: 3,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8787,
		},
		Store: StoreConfig{
			DataDir: "~/.attrangi",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads configuration from ~/.attrangi/config.yaml, creating it with
// defaults when missing.
func Load() (*Config, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}
	return LoadFromPath(filepath.Join(homeDir, ".attrangi", "config.yaml"))
}

// LoadFromPath reads configuration from a specific file, merging in
// environment overrides such as ATTRANGI_LLM_API_KEY.
func LoadFromPath(path string) (*Config, error) {
	path = expandPath(path)

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := writeConfigFile(path, Default()); err != nil {
			return nil, fmt.Errorf("write default config: %w", err)
		}
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("ATTRANGI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	cfg.Store.DataDir = expandPath(cfg.Store.DataDir)
	cfg.Knowledge.Dir = expandPath(cfg.Knowledge.Dir)
	cfg.Engine.TablesFile = expandPath(cfg.Engine.TablesFile)
	cfg.Logging.File = expandPath(cfg.Logging.File)
	return &cfg, nil
}

// SaveToPath writes the configuration to a specific file.
func (c *Config) SaveToPath(path string) error {
	path = expandPath(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create config directory: %w", err)
	}
	return writeConfigFile(path, c)
}

// Addr returns the server listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func writeConfigFile(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}
	header := "# Attrangi companion configuration.\n# Values can be overridden with ATTRANGI_* environment variables.\n\n"
	return os.WriteFile(path, append([]byte(header), data...), 0600)
}

// expandPath resolves a leading tilde against the home directory.
func expandPath(path string) string {
	if path == "" || !strings.HasPrefix(path, "~") {
		return path
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	if path == "~" {
		return homeDir
	}
	return filepath.Join(homeDir, strings.TrimPrefix(path, "~/"))
}
