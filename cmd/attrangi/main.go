// Command attrangi is the mental health companion: an emotion-aware chat
// client with a local signal-fusion engine in front of the language model.
package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/normanking/attrangi/internal/config"
	"github.com/normanking/attrangi/internal/embedding"
	"github.com/normanking/attrangi/internal/engine"
	"github.com/normanking/attrangi/internal/generation"
	"github.com/normanking/attrangi/internal/llm"
	"github.com/normanking/attrangi/internal/logging"
	"github.com/normanking/attrangi/internal/report"
	"github.com/normanking/attrangi/internal/retrieval"
	"github.com/normanking/attrangi/internal/server"
	"github.com/normanking/attrangi/internal/store"
	"github.com/normanking/attrangi/internal/tui"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "attrangi",
		Short:         "Emotion-aware mental health companion",
		Long:          "Attrangi keeps a per-conversation emotional signal accumulator in front of the language model,\nso replies track stage, intent, and safety rather than just the latest message.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "config file (default ~/.attrangi/config.yaml)")

	loadCfg := func() (*config.Config, error) {
		if configPath != "" {
			return config.LoadFromPath(configPath)
		}
		return config.Load()
	}

	rootCmd.AddCommand(
		chatCmd(loadCfg),
		serveCmd(loadCfg),
		reportCmd(loadCfg),
		sessionsCmd(loadCfg),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// app bundles the wired components.
type app struct {
	cfg       *config.Config
	store     *store.Store
	engine    *engine.Engine
	generator *generation.Generator
	reporter  *report.Generator
	logClose  func()
}

// buildApp wires the full stack: config, logging, store, embedder with its
// SQLite cache, retrieval index, engine, generator, and reporter.
func buildApp(cfg *config.Config) (*app, error) {
	closer, err := logging.Setup(cfg.Logging)
	if err != nil {
		return nil, fmt.Errorf("setup logging: %w", err)
	}
	logClose := func() {
		if closer != nil {
			closer.Close()
		}
	}

	st, err := store.Open(cfg.Store.DataDir)
	if err != nil {
		logClose()
		return nil, fmt.Errorf("open store: %w", err)
	}

	embedder := embedding.NewCache(embedding.NewOllamaEmbedder(&embedding.OllamaConfig{
		Host:  cfg.Embedding.Host,
		Model: cfg.Embedding.Model,
	}), st.DB())

	index := retrieval.NewIndex(embedder, cfg.Knowledge.TopK)
	if err := index.LoadDirectory(context.Background(), cfg.Knowledge.Dir); err != nil {
		log.Warn().Err(err).Msg("knowledge base load failed, continuing without retrieval")
	}
	var retriever generation.Retriever
	if index.Len() > 0 {
		retriever = index
	}

	provider := llm.NewGroqProvider(&llm.ProviderConfig{
		Endpoint:    cfg.LLM.Endpoint,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     time.Duration(cfg.LLM.TimeoutSec) * time.Second,
	})
	if !provider.Available() {
		log.Warn().Msg("no LLM API key configured, set ATTRANGI_LLM_API_KEY")
	}

	tables, err := engine.LoadTables(cfg.Engine.TablesFile)
	if err != nil {
		st.Close()
		logClose()
		return nil, fmt.Errorf("load tables: %w", err)
	}

	engCfg := engine.DefaultConfig()
	engCfg.DecayFactor = cfg.Engine.DecayFactor
	engCfg.NegationWindow = cfg.Engine.NegationWindow
	engCfg.ModeMinConfidence = cfg.Engine.ModeMinConfidence
	engCfg.ReportThreshold = cfg.Engine.ReportThreshold
	engCfg.Lexicon = tables.Lexicon
	engCfg.Prototypes = tables.Prototypes
	engCfg.ModePrototypes = tables.Modes

	return &app{
		cfg:       cfg,
		store:     st,
		engine:    engine.New(engCfg, embedder, generation.NewHeuristicQuestionDetector()),
		generator: generation.NewGenerator(provider, retriever),
		reporter:  report.NewGenerator(provider, retriever),
		logClose:  logClose,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	a.logClose()
}

func chatCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive chat session",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			sess := engine.NewSession()
			if sessionID != "" {
				loaded, err := a.store.LoadSession(cmd.Context(), sessionID)
				if err != nil {
					return fmt.Errorf("resume session %s: %w", sessionID, err)
				}
				sess = loaded
			}

			model := tui.New(a.engine, a.generator, a.reporter, a.store, sess)
			_, err = tea.NewProgram(model, tea.WithAltScreen()).Run()
			return err
		},
	}
	cmd.Flags().StringVar(&sessionID, "session", "", "resume a stored session by id")
	return cmd
}

func serveCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the WebSocket chat gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			srv := server.New(a.engine, a.generator, a.reporter, a.store)

			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start(cfg.Server.Addr()) }()

			sigCh := make(chan os.Signal, 1)
			signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

			select {
			case err := <-errCh:
				return err
			case sig := <-sigCh:
				log.Info().Str("signal", sig.String()).Msg("shutting down")
				ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
				defer cancel()
				return srv.Shutdown(ctx)
			}
		},
	}
}

func reportCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "report [session-id]",
		Short: "Generate a clinical summary for a stored session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			sess, err := a.store.LoadSession(cmd.Context(), args[0])
			if err != nil {
				if errors.Is(err, sql.ErrNoRows) {
					return fmt.Errorf("no session with id %s", args[0])
				}
				return err
			}

			content, err := a.reporter.Generate(cmd.Context(), sess)
			if err != nil {
				return err
			}
			if _, err := a.store.SaveSummary(cmd.Context(), sess.ID, content); err != nil {
				log.Warn().Err(err).Msg("summary save failed")
			}
			fmt.Println(content)
			return nil
		},
	}
}

func sessionsCmd(loadCfg func() (*config.Config, error)) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage stored sessions",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List stored session ids",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			ids, err := a.store.ListSessions(cmd.Context())
			if err != nil {
				return err
			}
			for _, id := range ids {
				fmt.Println(id)
			}
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "delete [session-id]",
		Short: "Delete a stored session and its transcript",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadCfg()
			if err != nil {
				return err
			}
			a, err := buildApp(cfg)
			if err != nil {
				return err
			}
			defer a.close()

			return a.store.DeleteSession(cmd.Context(), args[0])
		},
	})

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Println("attrangi", version)
		},
	}
}
