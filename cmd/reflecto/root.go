package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/reflecto/reflecto/internal/config"
	"github.com/reflecto/reflecto/internal/store"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath   string
	dbPath    string
	logLevel  string
	logFormat string
	quiet     bool
	globalCfg *config.Config
	logger    *slog.Logger

	// Global components
	globalStore *store.Store
)

// initializeComponents initializes the global snapshot store
func initializeComponents() error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	path := dbPath
	if path == "" {
		path = globalCfg.DBPath
	}
	if path == "" {
		path = config.DefaultDBPath()
	}

	st, err := store.New(path, logger)
	if err != nil {
		return fmt.Errorf("failed to initialize store: %w", err)
	}
	globalStore = st

	return nil
}

// shouldSkipComponentInit checks if a command should skip component initialization
func shouldSkipComponentInit(cmdName string) bool {
	skipInitCmds := map[string]bool{
		"help":    true,
		"version": true,
		"config":  true,
		"show":    true,
		"init":    true,
	}
	return skipInitCmds[cmdName]
}

// closeStore closes the global store connection
func closeStore() {
	if globalStore != nil {
		if err := globalStore.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reflecto",
		Short: "Generate a ranked Arch Linux pacman mirrorlist",
		Long: `reflecto retrieves the Arch Linux mirror status feed, filters mirrors by
freshness, completion, score, protocol, and country, ranks the survivors
by a selectable metric, and emits a mirrorlist usable by pacman.`,
		Example: `  reflecto generate
  reflecto generate --countries FR,DE --protocols https --sort score --limit 20
  reflecto generate --max-age 24 --save /etc/pacman.d/mirrorlist
  reflecto countries
  reflecto history`,
		Version: "0.1.0",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Initialize logging
			setupLogging()

			// Skip config loading for commands that don't need it
			if shouldSkipConfig(cmd.Name()) {
				return nil
			}

			// Load config
			if cfgPath == "" {
				var err error
				cfgPath, err = config.FindConfigFile()
				if err != nil {
					logger.Debug("config file not found, using defaults", "error", err)
				}
			}

			if cfgPath != "" {
				var err error
				globalCfg, err = config.Load(cfgPath)
				if err != nil {
					return fmt.Errorf("failed to load config: %w", err)
				}
			} else {
				globalCfg = config.DefaultConfig()
			}

			// Invalid configuration is fatal before any work begins
			if err := globalCfg.Validate(); err != nil {
				return err
			}

			if !quiet {
				logger.Debug("config loaded", "path", cfgPath, "status_url", globalCfg.StatusURL)
			}

			// Initialize components after config is loaded
			if !shouldSkipComponentInit(cmd.Name()) {
				if err := initializeComponents(); err != nil {
					return fmt.Errorf("failed to initialize components: %w", err)
				}
			}

			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			closeStore()
		},
	}

	// Add persistent flags
	cmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file (auto-discovered if not specified)")
	cmd.PersistentFlags().StringVar(&dbPath, "db-path", "", "override snapshot database path")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&logFormat, "log-format", "text", "log format (text or json)")
	cmd.PersistentFlags().BoolVar(&quiet, "quiet", false, "suppress non-error output")

	// Add subcommands
	cmd.AddCommand(
		newGenerateCmd(),
		newCountriesCmd(),
		newHistoryCmd(),
		newConfigCmd(),
	)

	return cmd
}

// setupLogging initializes the slog logger based on flags
func setupLogging() {
	var level slog.Level
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	if quiet {
		level = slog.LevelError
	}

	var handler slog.Handler
	if strings.ToLower(logFormat) == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}

	logger = slog.New(handler)
	slog.SetDefault(logger)
}

// shouldSkipConfig checks if a command should skip config loading
func shouldSkipConfig(cmdName string) bool {
	skipConfigCmds := map[string]bool{
		"help":    true,
		"version": true,
	}
	return skipConfigCmds[cmdName]
}
