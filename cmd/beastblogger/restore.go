package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var restoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore a dataset to an earlier version",
	Long:  "Restores a dataset's current snapshot to a historical version. The restore is appended as a new version; history is never truncated.",
	RunE:  runRestore,
}

var (
	restoreConfigPath string
	restoreDataDir    string
	restoreDatasetID  string
	restoreVersion    int
	restoreVerbose    bool
)

func init() {
	restoreCmd.Flags().StringVar(&restoreConfigPath, "config", "", "Path to config.json file (values can be overridden by other flags)")
	restoreCmd.Flags().StringVar(&restoreDataDir, "data-dir", "", "Directory holding the dataset artifact")
	restoreCmd.Flags().StringVarP(&restoreDatasetID, "dataset", "d", "", "Dataset to restore (required)")
	restoreCmd.Flags().IntVar(&restoreVersion, "version", -1, "Version index to restore, 0-based (required)")
	restoreCmd.Flags().BoolVarP(&restoreVerbose, "verbose", "v", false, "Print detailed debug information")

	if err := restoreCmd.MarkFlagRequired("dataset"); err != nil {
		panic(fmt.Sprintf("failed to mark dataset flag as required: %v", err))
	}
	if err := restoreCmd.MarkFlagRequired("version"); err != nil {
		panic(fmt.Sprintf("failed to mark version flag as required: %v", err))
	}

	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, _ []string) error {
	cfg, err := loadBaseConfig(restoreConfigPath)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("data-dir") {
		cfg.DataDir = restoreDataDir
	}
	if cmd.Flags().Changed("verbose") {
		cfg.Verbose = restoreVerbose
	}

	_, s, logger, err := openEnvironment(cfg)
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if err := s.Restore(restoreDatasetID, restoreVersion); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(os.Stdout, "Restored dataset %s to version %d\n", restoreDatasetID, restoreVersion)
	return nil
}
