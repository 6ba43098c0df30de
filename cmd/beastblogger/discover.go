package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jblacklock/beast-blogger/internal/discovery"
	"github.com/jblacklock/beast-blogger/internal/fetch"
	"github.com/jblacklock/beast-blogger/internal/keywords"
	"github.com/jblacklock/beast-blogger/internal/store"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Harvest keyword candidates from the storefront and competitors",
	Long:  "Crawls the storefront and competitor pages, expands seed phrases through autocomplete suggestions, scores the results, and saves them as a new keyword dataset.",
	RunE:  runDiscover,
}

var (
	discoverConfigPath  string
	discoverSiteURL     string
	discoverCompetitors string
	discoverMarkers     []string
	discoverDataDir     string
	discoverUseBrowser  bool
	discoverVerbose     bool
)

func init() {
	discoverCmd.Flags().StringVar(&discoverConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	discoverCmd.Flags().StringVarP(&discoverSiteURL, "site", "s", "", "Storefront base URL")
	discoverCmd.Flags().StringVar(&discoverCompetitors, "competitors", "", "File with one competitor URL per line")
	discoverCmd.Flags().StringSliceVar(&discoverMarkers, "markers", nil, "Relevance markers for seed phrase filtering")
	discoverCmd.Flags().StringVar(&discoverDataDir, "data-dir", "", "Directory holding the dataset artifact")
	discoverCmd.Flags().BoolVar(&discoverUseBrowser, "use-browser", false, "Use headless browser for JavaScript-rendered storefronts (requires Chrome)")
	discoverCmd.Flags().BoolVarP(&discoverVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	cfg, err := loadBaseConfig(discoverConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("site") {
		cfg.SiteURL = discoverSiteURL
	}
	if cmd.Flags().Changed("competitors") {
		cfg.CompetitorsFile = discoverCompetitors
	}
	if cmd.Flags().Changed("markers") {
		cfg.Markers = discoverMarkers
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = discoverDataDir
	}
	if cmd.Flags().Changed("use-browser") {
		cfg.UseBrowser = discoverUseBrowser
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = discoverVerbose
	}

	if cfg.SiteURL == "" {
		return fmt.Errorf("--site is required (via flag or config)")
	}

	cfg, s, logger, err := openEnvironment(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	var competitors []string
	if cfg.CompetitorsFile != "" {
		competitors, err = readLines(cfg.CompetitorsFile)
		if err != nil {
			return fmt.Errorf("failed to read competitors file: %w", err)
		}
	}

	fetcher := fetch.NewClient(&fetch.Options{UseBrowser: cfg.UseBrowser})
	engine := discovery.NewEngine(fetcher, discovery.NewGoogleSuggester(), &discovery.Options{Markers: cfg.Markers}, logger)

	candidates, err := engine.Discover(context.Background(), cfg.SiteURL, competitors)
	if err != nil {
		return fmt.Errorf("discovery failed: %w", err)
	}

	records := make([]keywords.Record, 0, len(candidates))
	for _, c := range candidates {
		records = append(records, c.Record())
	}

	id, err := s.Create(
		store.Snapshot{Columns: keywords.SnapshotColumns(), Rows: keywords.ToRows(records)},
		"discovery",
		map[string]string{"kind": "keywords", "site": cfg.SiteURL},
	)
	if err != nil {
		return fmt.Errorf("failed to save keyword dataset: %w", err)
	}

	_, _ = fmt.Fprintf(os.Stdout, "Discovered %d keyword candidates\n", len(records))
	_, _ = fmt.Fprintf(os.Stdout, "Dataset: %s\n", id)
	return nil
}
