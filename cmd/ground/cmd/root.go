package cmd

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/corey/ground/internal/adapters/bbolt"
	"github.com/corey/ground/internal/adapters/ollama"
	"github.com/corey/ground/internal/app"
	"github.com/corey/ground/internal/config"
	"github.com/corey/ground/internal/ports"
)

var (
	verbose bool
	logger  *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ground",
	Short: "ground — thinking sessions for development work",
	Long: "Track what you're trying to do, the evidence behind it, and the\n" +
		"provocations a local model raises against your plan. Export is gated on\n" +
		"answering every provocation.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zcfg := zap.NewProductionConfig()
		if verbose {
			zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		} else {
			zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
		}
		zcfg.OutputPaths = []string{"stderr"}
		var err error
		logger, err = zcfg.Build()
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			logger.Sync() //nolint:errcheck
		}
	},
}

// workspaceRoot returns the workspace root (cwd).
func workspaceRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	return dir
}

// openStore opens the session store for the current workspace, creating
// the data directory on first use. The caller must Close it.
func openStore() (*app.Store, *config.Config, error) {
	root := workspaceRoot()
	cfg, err := config.Load(root)
	if err != nil {
		return nil, nil, err
	}
	dbPath := cfg.DBPath(root)
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, nil, err
	}
	storage, err := bbolt.NewStore(dbPath)
	if err != nil {
		return nil, nil, fmt.Errorf("opening session store: %w", err)
	}
	store := app.New(storage, logger, app.WithContextProvider(func() ports.SessionContext {
		return sessionContext(root)
	}))
	if err := store.Load(); err != nil {
		storage.Close() //nolint:errcheck
		return nil, nil, err
	}
	return store, cfg, nil
}

// newChat builds the Ollama client from workspace config.
func newChat(cfg *config.Config) *ollama.Client {
	return ollama.New(ollama.Config{
		BaseURL: cfg.Ollama.BaseURL,
		Model:   cfg.Ollama.Model,
		Timeout: cfg.Timeout(),
	}, logger)
}

// preflight verifies the endpoint answers and the configured model is
// installed before spending a generation round trip on it.
func preflight(ctx context.Context, chat *ollama.Client, cfg *config.Config) error {
	h := chat.HealthCheck(ctx)
	if !h.OK {
		return fmt.Errorf("%s", h.Reason)
	}
	for _, m := range h.Models {
		if m == cfg.Ollama.Model {
			return nil
		}
	}
	return fmt.Errorf("model %q is not installed (try: ollama pull %s)", cfg.Ollama.Model, cfg.Ollama.Model)
}

// Execute runs the root command.
func Execute() error {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "%serror:%s %v\n", colorYellow, colorReset, err)
		return err
	}
	return nil
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	rootCmd.AddCommand(sessionCmd)
	rootCmd.AddCommand(outlineCmd)
	rootCmd.AddCommand(evidenceCmd)
	rootCmd.AddCommand(provokeCmd)
	rootCmd.AddCommand(insightCmd)
	rootCmd.AddCommand(exportCmd)
	rootCmd.AddCommand(healthCmd)
	rootCmd.AddCommand(configCmd)
}
