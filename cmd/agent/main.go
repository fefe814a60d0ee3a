// Command agent is an interactive tool-calling chat agent with persistent sessions.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/petasbytes/go-agent/internal/config"
	"github.com/petasbytes/go-agent/internal/fsops"
	"github.com/petasbytes/go-agent/internal/logging"
	"github.com/petasbytes/go-agent/internal/provider"
	"github.com/petasbytes/go-agent/internal/telemetry"
	"github.com/petasbytes/go-agent/memory"
)

var (
	configPath string
	verbose    bool

	// flag overrides; applied only when the flag was set
	flagProvider      string
	flagModel         string
	flagBaseURL       string
	flagStream        bool
	flagStore         string
	flagSessionDir    string
	flagMaxIterations int
	flagTokenBudget   int

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "agent",
	Short: "Chat with a tool-calling model agent",
	Long: `agent runs an interactive chat loop against an OpenAI-compatible or
Anthropic model. The model may call local tools (files, shell, code search,
planning) between replies. Every session is saved and can be resumed.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger, err = logging.New(logging.Options{
			Level:   cfg.Log.Level,
			Format:  cfg.Log.Format,
			File:    cfg.Log.File,
			Verbose: verbose,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		telemetry.SetLogger(logger)
		cmd.SetContext(context.WithValue(cmd.Context(), configKey{}, cfg))
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
	RunE: runChat,
}

type configKey struct{}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&configPath, "config", "", "config file (default ~/.go-agent/config.yaml)")
	f.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	f.StringVar(&flagProvider, "provider", "", "model provider: openai or anthropic")
	f.StringVar(&flagModel, "model", "", "model name")
	f.StringVar(&flagBaseURL, "base-url", "", "OpenAI-compatible API base URL")
	f.BoolVar(&flagStream, "stream", false, "stream replies (no tools)")
	f.StringVar(&flagStore, "store", "", "session store: file or sqlite")
	f.StringVar(&flagSessionDir, "session-dir", "", "session directory")
	f.IntVar(&flagMaxIterations, "max-iterations", 0, "model requests allowed per turn")
	f.IntVar(&flagTokenBudget, "token-budget", 0, "send-window token budget (0 sends everything)")
}

// loadConfig layers file, env, then explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	flags := cmd.Flags()
	if flags.Changed("provider") {
		cfg.Provider = flagProvider
	}
	if flags.Changed("model") {
		cfg.Model = flagModel
	}
	if flags.Changed("base-url") {
		cfg.BaseURL = flagBaseURL
	}
	if flags.Changed("stream") {
		cfg.Stream = flagStream
	}
	if flags.Changed("store") {
		cfg.Store = flagStore
	}
	if flags.Changed("session-dir") {
		cfg.SessionDir = flagSessionDir
	}
	if flags.Changed("max-iterations") {
		cfg.MaxIterations = flagMaxIterations
	}
	if flags.Changed("token-budget") {
		cfg.TokenBudget = flagTokenBudget
	}
	if cfg.Model == "" {
		cfg.Model = provider.DefaultModel(cfg.Provider)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func configFrom(cmd *cobra.Command) *config.Config {
	return cmd.Context().Value(configKey{}).(*config.Config)
}

// openStore returns the configured session store.
func openStore(cfg *config.Config) (memory.Store, error) {
	if cfg.Store == "sqlite" {
		return memory.OpenSQLite(cfg.SQLitePath())
	}
	return memory.NewFileStore(cfg.SessionDir), nil
}

// configureRoots pins the tool sandbox. Empty roots mean the working directory.
func configureRoots(cfg *config.Config) error {
	return fsops.Configure(cfg.Tools.ReadRoot, cfg.Tools.WriteRoot)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
