package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/erschema/internal/advisor"
	"github.com/ajitpratap0/erschema/internal/config"
	"github.com/ajitpratap0/erschema/internal/store"
)

var cfg *config.Config

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)

	rootCmd := &cobra.Command{
		Use:   "erschema",
		Short: "erschema converts ER diagrams into relational schemas",
		Long: "erschema reads an ER diagram as XML and derives the relational tables it implies. " +
			"When the diagram leaves a choice open it pauses and records the answer in the document itself, " +
			"so a conversion can be resumed at any time.",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			var err error
			cfg, err = config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			return nil
		},
	}

	rootCmd.AddCommand(
		resolveCmd(),
		decideCmd(),
		exportCmd(),
		listCmd(),
		getCmd(),
		deleteCmd(),
		statsCmd(),
		healthCmd(),
		serveCmd(),
		mcpCmd(),
	)

	rootCmd.SetContext(ctx)

	err := rootCmd.Execute()
	stop()
	if err != nil {
		os.Exit(1)
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelInfo
	if cfg != nil {
		switch strings.ToLower(cfg.Logging.Level) {
		case "debug":
			level = slog.LevelDebug
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg != nil && strings.EqualFold(cfg.Logging.Format, "json") {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// newStore connects to Neo4j when a URI is configured. Without one, schemas
// live in process memory and vanish on exit.
func newStore(logger *slog.Logger) (store.Store, error) {
	if cfg.Neo4j.URI == "" {
		logger.Warn("neo4j.uri is not set; schemas are kept in memory only")
		return store.NewMockStore(), nil
	}
	st, err := store.NewNeo4jStore(
		cfg.Neo4j.URI,
		cfg.Neo4j.Username,
		cfg.Neo4j.Password,
		cfg.Neo4j.Database,
		logger,
	)
	if err != nil {
		return nil, err
	}
	return st, nil
}

// newAdvisor returns a Claude-backed advisor when an API key is available and
// the deterministic default otherwise.
func newAdvisor(logger *slog.Logger) advisor.Advisor {
	if cfg.Claude.APIKey == "" {
		return advisor.DefaultAdvisor{}
	}
	return advisor.NewClaudeAdvisor(cfg.Claude.APIKey, cfg.Claude.Model, logger)
}

// readInput reads a document from path, or from stdin when path is "-".
func readInput(path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(os.Stdin)
	}
	return os.ReadFile(path)
}

// writeOutput writes data to path, or to stdout when path is "-" or empty.
func writeOutput(path string, data []byte) error {
	if path == "" || path == "-" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
