package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/reflecto/reflecto/internal/config"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage configuration",
		Long: `Manage reflecto configuration. Subcommands allow viewing the effective
configuration and writing a starter config file.`,
		Example: `  reflecto config show
  reflecto config init`,
	}

	cmd.AddCommand(
		newConfigShowCmd(),
		newConfigInitCmd(),
	)

	return cmd
}

func newConfigShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Display current configuration",
		Long: `Display the effective configuration in YAML format. If a config file is
loaded, shows the loaded configuration.`,
		Example: `  reflecto config show
  reflecto config show --config /etc/reflecto/reflecto.yaml`,
		RunE: configShowRun,
	}

	return cmd
}

func configShowRun(cmd *cobra.Command, args []string) error {
	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	data, err := yaml.Marshal(globalCfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if cfgPath != "" {
		fmt.Printf("# loaded from %s\n", cfgPath)
	} else {
		fmt.Println("# built-in defaults (no config file found)")
	}
	fmt.Print(string(data))
	return nil
}

var configInitPath string

func newConfigInitCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter config file",
		Long: `Write a config file populated with the built-in defaults. Refuses to
overwrite an existing file.`,
		Example: `  reflecto config init
  reflecto config init --path /etc/reflecto/reflecto.yaml`,
		RunE: configInitRun,
	}

	cmd.Flags().StringVar(&configInitPath, "path", "reflecto.yaml", "where to write the config file")

	return cmd
}

func configInitRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if _, err := os.Stat(configInitPath); err == nil {
		return fmt.Errorf("config file already exists: %s", configInitPath)
	}

	data, err := yaml.Marshal(config.DefaultConfig())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.WriteFile(configInitPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	log.Info("config file written", "path", configInitPath)
	return nil
}
