package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/jblacklock/beast-blogger/internal/content"
	"github.com/jblacklock/beast-blogger/internal/db"
	"github.com/jblacklock/beast-blogger/internal/discovery"
	"github.com/jblacklock/beast-blogger/internal/fetch"
	"github.com/jblacklock/beast-blogger/internal/image"
	"github.com/jblacklock/beast-blogger/internal/keywords"
	"github.com/jblacklock/beast-blogger/internal/llm"
	"github.com/jblacklock/beast-blogger/internal/pipeline"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Draft and illustrate posts for a keyword dataset",
	Long:  "Runs the pipeline for keywords in a dataset: LLM draft with a tool-calling loop, illustration with polling, and versioned persistence. By default only selected records are processed.",
	RunE:  runGenerate,
}

var (
	generateConfigPath   string
	generateDataDir      string
	generateDatasetID    string
	generatePostsDataset string
	generateAPIKey       string
	generateModel        string
	generateDatabaseURL  string
	generateAll          bool
	generateTestMode     bool
	generateVerbose      bool
)

func init() {
	generateCmd.Flags().StringVar(&generateConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	generateCmd.Flags().StringVar(&generateDataDir, "data-dir", "", "Directory holding the dataset artifact")
	generateCmd.Flags().StringVarP(&generateDatasetID, "dataset", "d", "", "Keyword dataset to draw from (required)")
	generateCmd.Flags().StringVar(&generatePostsDataset, "posts-dataset", "", "Existing post dataset to append to (default: create one)")
	generateCmd.Flags().StringVar(&generateAPIKey, "api-key", "", "Gemini API Key (optional, defaults to GEMINI_API_KEY env var)")
	generateCmd.Flags().StringVar(&generateModel, "model", "", "Model name override")
	generateCmd.Flags().StringVar(&generateDatabaseURL, "db-url", "", "PostgreSQL connection URL for run history (optional, defaults to DATABASE_URL env var)")
	generateCmd.Flags().BoolVar(&generateAll, "all", false, "Process every record, not just selected ones")
	generateCmd.Flags().BoolVar(&generateTestMode, "test-mode", false, "Stub out the LLM and image providers")
	generateCmd.Flags().BoolVarP(&generateVerbose, "verbose", "v", false, "Print detailed debug information")

	if err := generateCmd.MarkFlagRequired("dataset"); err != nil {
		panic(fmt.Sprintf("failed to mark dataset flag as required: %v", err))
	}

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, _ []string) error {
	ctx := context.Background()

	cfg, err := loadBaseConfig(generateConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = generateDataDir
	}
	if cmd.Flags().Changed("api-key") {
		cfg.APIKey = generateAPIKey
	}
	if cmd.Flags().Changed("model") {
		cfg.Model = generateModel
	}
	if cmd.Flags().Changed("db-url") {
		cfg.DatabaseURL = generateDatabaseURL
	}
	if cmd.Flags().Changed("test-mode") {
		cfg.TestMode = generateTestMode
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = generateVerbose
	}
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("GEMINI_API_KEY")
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	cfg, s, logger, err := openEnvironment(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	snap, err := s.Get(generateDatasetID)
	if err != nil {
		return err
	}
	records := keywords.FromRows(snap.Columns, snap.Rows)
	if !generateAll {
		var selected []keywords.Record
		for _, r := range records {
			if r.Selected {
				selected = append(selected, r)
			}
		}
		records = selected
	}
	if len(records) == 0 {
		return fmt.Errorf("no records to process (use --all to include unselected ones)")
	}

	var client llm.Client
	if !cfg.TestMode {
		if cfg.APIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY environment variable or --api-key flag is required")
		}
		client, err = llm.NewGeminiClient(ctx, cfg.APIKey)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()
	}

	searcher := discovery.NewSearcher(discovery.NewDuckDuckGoProvider(), fetch.NewClient(nil), logger)
	drafter := content.NewGenerator(client, searcher, content.Options{
		TestMode:      cfg.TestMode,
		Model:         cfg.Model,
		MaxToolCalls:  cfg.MaxToolCalls,
		InternalLinks: cfg.InternalLinks,
	}, logger)

	imageOpts := image.Options{TestMode: cfg.TestMode || cfg.ImageAPIURL == ""}
	var imageProvider image.Provider
	if !imageOpts.TestMode {
		imageProvider = image.NewHTTPProvider(cfg.ImageAPIURL, cfg.ImageAPIKey)
	}
	illustrator := image.NewGenerator(imageProvider, nil, imageOpts, logger)

	var recorder pipeline.Recorder
	if cfg.DatabaseURL != "" {
		conn, err := db.Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Warn("run history database unavailable", zap.Error(err))
		} else {
			defer conn.Close()
			recorder = conn
		}
	}

	rc := &pipeline.RunContext{
		Store:          s,
		DraftDatasetID: generatePostsDataset,
		Drafter:        drafter,
		Illustrator:    illustrator,
		Recorder:       recorder,
		OnProgress: func(done, total int) {
			_, _ = fmt.Fprintf(os.Stdout, "Progress: %d/%d\n", done, total)
		},
		Logger: logger,
	}

	summary, err := pipeline.Run(ctx, rc, records)
	if err != nil {
		return err
	}

	printSummary(summary)
	return nil
}

func printSummary(summary *pipeline.Summary) {
	_, _ = fmt.Fprintf(os.Stdout, "Dataset: %s\n", summary.DatasetID)
	_, _ = fmt.Fprintf(os.Stdout, "Succeeded: %d, Failed: %d (of %d)\n", summary.Succeeded, summary.Failed, summary.Total)
	for _, item := range summary.Items {
		if item.Err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "  %s: %v\n", item.Keyword, item.Err)
		}
	}
}
