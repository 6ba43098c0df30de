package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jblacklock/beast-blogger/internal/keywords"
	"github.com/jblacklock/beast-blogger/internal/store"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [files...]",
	Short: "Ingest keyword spreadsheets into a dataset",
	Long:  "Reads keyword rows from xlsx and csv files and saves them as a keyword dataset. With --dataset, new rows are merged into the existing dataset, last write wins per query.",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

var (
	ingestConfigPath string
	ingestDataDir    string
	ingestDatasetID  string
	ingestVerbose    bool
)

func init() {
	ingestCmd.Flags().StringVar(&ingestConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	ingestCmd.Flags().StringVar(&ingestDataDir, "data-dir", "", "Directory holding the dataset artifact")
	ingestCmd.Flags().StringVarP(&ingestDatasetID, "dataset", "d", "", "Existing keyword dataset to merge into")
	ingestCmd.Flags().BoolVarP(&ingestVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	cfg, err := loadBaseConfig(ingestConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = ingestDataDir
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = ingestVerbose
	}

	_, s, logger, err := openEnvironment(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	results := keywords.IngestFiles(args, logger)

	var incoming []keywords.Record
	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
			_, _ = fmt.Fprintf(os.Stderr, "Skipped %s: %v\n", r.File, r.Err)
			continue
		}
		incoming = keywords.Merge(incoming, r.Records)
		_, _ = fmt.Fprintf(os.Stdout, "Ingested %s: %d records (%d rows skipped)\n", r.File, len(r.Records), r.Skipped)
	}
	if len(incoming) == 0 {
		return fmt.Errorf("no usable keyword records in %d file(s)", len(args))
	}

	var datasetID string
	if ingestDatasetID != "" {
		snap, err := s.Get(ingestDatasetID)
		if err != nil {
			return err
		}
		merged := keywords.Merge(keywords.FromRows(snap.Columns, snap.Rows), incoming)
		next := store.Snapshot{Columns: keywords.SnapshotColumns(), Rows: keywords.ToRows(merged)}
		comment := fmt.Sprintf("Merge %d records from %s", len(incoming), strings.Join(args, ", "))
		if err := s.Update(ingestDatasetID, next, comment, store.NoVersionCheck); err != nil {
			return err
		}
		datasetID = ingestDatasetID
	} else {
		datasetID, err = s.Create(
			store.Snapshot{Columns: keywords.SnapshotColumns(), Rows: keywords.ToRows(incoming)},
			"ingest",
			map[string]string{"kind": "keywords"},
		)
		if err != nil {
			return err
		}
	}

	_, _ = fmt.Fprintf(os.Stdout, "Dataset: %s (%d records, %d file(s) failed)\n", datasetID, len(incoming), failed)
	return nil
}
