package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/reflecto/reflecto/internal/mirror"
	"github.com/reflecto/reflecto/internal/safety"
	"github.com/reflecto/reflecto/internal/store"
	"github.com/spf13/cobra"
)

var (
	genURL           string
	genProtocols     string
	genMaxAge        float64
	genMinCompletion float64
	genMaxDelay      float64
	genMaxScore      float64
	genCountries     string
	genISOs          bool
	genIPv4          bool
	genIPv6          bool
	genSort          string
	genLimit         int
	genSave          string
	genCacheTTL      string
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Fetch, filter, rank, and render a mirrorlist",
		Long: `Fetch the mirror status feed, apply the configured filters, rank the
surviving mirrors by the selected key, and render a pacman mirrorlist.

The pipeline is:
  1. Fetch the status feed (or reuse a cached snapshot within --cache-ttl)
  2. Drop inactive mirrors and apply every enabled filter
  3. Sort by the selected key, ties broken by URL
  4. Truncate to --limit entries
  5. Render Server directives, to stdout or --save

Flags override the corresponding config file settings for this run.`,
		Example: `  reflecto generate
  reflecto generate --protocols https --countries FR --sort score --limit 10
  reflecto generate --max-age 24 --min-completion 0.95 --save /etc/pacman.d/mirrorlist
  reflecto generate --cache-ttl 1h`,
		RunE: generateRun,
	}

	cmd.Flags().StringVar(&genURL, "url", "", "mirror status feed URL")
	cmd.Flags().StringVar(&genProtocols, "protocols", "", "comma-separated protocol allow-set (http,https,rsync,ftp)")
	cmd.Flags().Float64Var(&genMaxAge, "max-age", 0, "keep mirrors synced within this many hours")
	cmd.Flags().Float64Var(&genMinCompletion, "min-completion", 0, "keep mirrors with at least this completion fraction (0..1)")
	cmd.Flags().Float64Var(&genMaxDelay, "max-delay", 0, "keep mirrors with at most this sync delay in seconds")
	cmd.Flags().Float64Var(&genMaxScore, "max-score", 0, "keep mirrors with at most this status score")
	cmd.Flags().StringVar(&genCountries, "countries", "", "comma-separated country code allow-list")
	cmd.Flags().BoolVar(&genISOs, "isos", false, "keep only mirrors hosting ISO images")
	cmd.Flags().BoolVar(&genIPv4, "ipv4", false, "keep only mirrors reachable over IPv4")
	cmd.Flags().BoolVar(&genIPv6, "ipv6", false, "keep only mirrors reachable over IPv6")
	cmd.Flags().StringVar(&genSort, "sort", "", fmt.Sprintf("sort key (%s)", strings.Join(mirror.SortKeys(), ", ")))
	cmd.Flags().IntVar(&genLimit, "limit", 0, "maximum number of mirrors to emit")
	cmd.Flags().StringVar(&genSave, "save", "", "write the mirrorlist to this path instead of stdout")
	cmd.Flags().StringVar(&genCacheTTL, "cache-ttl", "", "reuse a cached feed snapshot younger than this duration")

	return cmd
}

// applyGenerateFlags folds explicitly set flags into the loaded config.
func applyGenerateFlags(cmd *cobra.Command) {
	flags := cmd.Flags()

	if flags.Changed("url") {
		globalCfg.StatusURL = genURL
	}
	if flags.Changed("protocols") {
		globalCfg.Selection.Protocols = splitList(genProtocols)
	}
	if flags.Changed("max-age") {
		globalCfg.Selection.MaxAgeHours = &genMaxAge
	}
	if flags.Changed("min-completion") {
		globalCfg.Selection.MinCompletion = &genMinCompletion
	}
	if flags.Changed("max-delay") {
		globalCfg.Selection.MaxDelaySeconds = &genMaxDelay
	}
	if flags.Changed("max-score") {
		globalCfg.Selection.MaxScore = &genMaxScore
	}
	if flags.Changed("countries") {
		globalCfg.Selection.Countries = splitList(genCountries)
	}
	if flags.Changed("isos") {
		globalCfg.Selection.ISOs = genISOs
	}
	if flags.Changed("ipv4") {
		globalCfg.Selection.IPv4 = genIPv4
	}
	if flags.Changed("ipv6") {
		globalCfg.Selection.IPv6 = genIPv6
	}
	if flags.Changed("sort") {
		globalCfg.Selection.SortKey = genSort
	}
	if flags.Changed("limit") {
		globalCfg.Selection.Limit = &genLimit
	}
	if flags.Changed("save") {
		globalCfg.Output.Path = genSave
	}
	if flags.Changed("cache-ttl") {
		globalCfg.CacheTTL = genCacheTTL
	}
}

func generateRun(cmd *cobra.Command, args []string) error {
	log := slog.Default()

	if globalCfg == nil {
		return fmt.Errorf("config not loaded")
	}

	applyGenerateFlags(cmd)

	// Flag values go through the same validation as the config file
	if err := globalCfg.Validate(); err != nil {
		return err
	}

	filters, err := globalCfg.Filters()
	if err != nil {
		return err
	}
	sortKey, err := globalCfg.SortKey()
	if err != nil {
		return err
	}
	ttl, err := globalCfg.ParseCacheTTL()
	if err != nil {
		return err
	}
	limit := globalCfg.LimitValue()

	run := &store.Run{
		StartedAt:  time.Now(),
		SourceURL:  globalCfg.StatusURL,
		SortKey:    string(sortKey),
		Limit:      limit,
		OutputPath: globalCfg.Output.Path,
		Status:     "success",
	}

	client := mirror.NewClient(globalCfg.StatusURL, globalStore, ttl, logger)
	status, err := client.FetchStatus(cmd.Context())
	if err != nil {
		recordRunFailure(run, err)
		return err
	}

	run.FromCache = status.FromCache
	run.TotalMirrors = len(status.Mirrors)
	run.SkippedRecords = status.Skipped

	if status.Skipped > 0 {
		log.Warn("dropped malformed feed records", "count", status.Skipped)
	}
	log.Info("feed retrieved",
		"url", status.SourceURL,
		"mirrors", len(status.Mirrors),
		"from_cache", status.FromCache,
	)

	retained := filters.Apply(status.Mirrors, time.Now())
	if err := mirror.Sort(retained, sortKey); err != nil {
		recordRunFailure(run, err)
		return err
	}
	retained = mirror.Limit(retained, limit)
	run.Retained = len(retained)

	if len(retained) == 0 {
		log.Warn("no mirrors left after filtering, emitting empty mirrorlist")
	}

	text := mirror.RenderMirrorlist(retained, mirror.ListMeta{
		SourceURL:   status.SourceURL,
		RetrievedAt: status.FetchedAt,
		FromCache:   status.FromCache,
		SortKey:     sortKey,
	})

	if globalCfg.Output.Path == "" {
		fmt.Print(text)
	} else {
		if err := writeMirrorlist(globalCfg.Output.Path, text); err != nil {
			recordRunFailure(run, err)
			return err
		}
		log.Info("mirrorlist written", "path", globalCfg.Output.Path, "mirrors", len(retained))
	}

	recordRun(run)
	return nil
}

// writeMirrorlist writes the rendered text to path after validating it.
func writeMirrorlist(path, text string) error {
	abs, err := safety.ValidateOutputPath(path)
	if err != nil {
		return fmt.Errorf("invalid output path: %w", err)
	}

	if previous, err := os.ReadFile(abs); err == nil {
		slog.Default().Debug("replacing existing mirrorlist",
			"path", abs,
			"previous_servers", len(mirror.ServerURLs(string(previous))),
		)
	}

	if err := os.WriteFile(abs, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing mirrorlist: %w", err)
	}
	return nil
}

// recordRun saves the run row; history is best-effort and never fails
// the command.
func recordRun(run *store.Run) {
	if globalStore == nil {
		return
	}
	if err := globalStore.CreateRun(run); err != nil {
		slog.Default().Warn("failed to record run", "error", err)
	}
}

func recordRunFailure(run *store.Run, cause error) {
	run.Status = "failed"
	run.ErrorMessage = cause.Error()
	recordRun(run)
}

// splitList splits a comma-separated flag value into trimmed entries.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
