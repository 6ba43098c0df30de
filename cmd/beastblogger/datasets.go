package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var datasetsCmd = &cobra.Command{
	Use:   "datasets",
	Short: "List datasets in the store",
	Long:  "Lists dataset ids with their metadata and version counts, optionally filtered by metadata key=value pairs.",
	RunE:  runDatasets,
}

var (
	datasetsConfigPath string
	datasetsDataDir    string
	datasetsFilter     []string
	datasetsVerbose    bool
)

func init() {
	datasetsCmd.Flags().StringVar(&datasetsConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	datasetsCmd.Flags().StringVar(&datasetsDataDir, "data-dir", "", "Directory holding the dataset artifact")
	datasetsCmd.Flags().StringSliceVar(&datasetsFilter, "filter", nil, "Metadata filters as key=value pairs")
	datasetsCmd.Flags().BoolVarP(&datasetsVerbose, "verbose", "v", false, "Print detailed debug information")

	rootCmd.AddCommand(datasetsCmd)
}

func runDatasets(cmd *cobra.Command, _ []string) error {
	cfg, err := loadBaseConfig(datasetsConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = datasetsDataDir
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = datasetsVerbose
	}

	predicate := make(map[string]string)
	for _, pair := range datasetsFilter {
		key, value, ok := strings.Cut(pair, "=")
		if !ok {
			return fmt.Errorf("invalid --filter %q: expected key=value", pair)
		}
		predicate[key] = value
	}

	_, s, logger, err := openEnvironment(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ids := s.QueryByMetadata(predicate)
	if len(ids) == 0 {
		_, _ = fmt.Fprintln(os.Stdout, "No datasets found")
		return nil
	}

	for _, id := range ids {
		metadata, err := s.GetMetadata(id)
		if err != nil {
			return err
		}
		history, err := s.History(id)
		if err != nil {
			return err
		}

		var pairs []string
		for key, value := range metadata {
			pairs = append(pairs, key+"="+value)
		}
		_, _ = fmt.Fprintf(os.Stdout, "%s  versions=%d  %s\n", id, len(history), strings.Join(pairs, " "))
	}
	return nil
}
