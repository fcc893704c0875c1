package main

import (
	"fmt"
	"log/slog"

	"github.com/reflecto/reflecto/internal/mirror"
	"github.com/spf13/cobra"
)

var countriesURL string

func newCountriesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "countries",
		Short: "List countries hosting mirrors",
		Long: `Fetch the mirror status feed and list every country hosting at least one
mirror, with its country code and mirror count. Useful for choosing a
--countries allow-list for generate.`,
		Example: `  reflecto countries
  reflecto countries --url https://archlinux.org/mirrors/status/json`,
		RunE: countriesRun,
	}

	cmd.Flags().StringVar(&countriesURL, "url", "", "mirror status feed URL")

	return cmd
}

func countriesRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	url := globalCfg.StatusURL
	if countriesURL != "" {
		url = countriesURL
	}

	ttl, err := globalCfg.ParseCacheTTL()
	if err != nil {
		return err
	}

	client := mirror.NewClient(url, globalStore, ttl, logger)
	status, err := client.FetchStatus(cmd.Context())
	if err != nil {
		return err
	}

	counts := mirror.Countries(status.Mirrors)
	log.Debug("aggregated countries", "countries", len(counts), "mirrors", len(status.Mirrors))

	fmt.Print(mirror.RenderCountryTable(counts))
	return nil
}
