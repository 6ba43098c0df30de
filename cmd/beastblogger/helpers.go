package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/jblacklock/beast-blogger/internal/config"
	"github.com/jblacklock/beast-blogger/internal/logging"
	"github.com/jblacklock/beast-blogger/internal/store"
)

// loadBaseConfig reads the config file when a path is given. Flag
// overrides are applied by each command afterwards.
func loadBaseConfig(path string) (config.Config, error) {
	if path == "" {
		return config.Config{}, nil
	}
	loaded, err := config.LoadConfig(path)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to load config: %w", err)
	}
	if err := loaded.Validate(); err != nil {
		return config.Config{}, err
	}
	return *loaded, nil
}

// openEnvironment finalizes the config and opens the shared handles.
func openEnvironment(cfg config.Config) (config.Config, *store.Store, *zap.Logger, error) {
	cfg = cfg.MergeWithDefaults(config.Config{})

	logger, err := logging.NewLogger(cfg.Verbose)
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("failed to build logger: %w", err)
	}

	s, err := store.Open(cfg.DataDir, store.WithLogger(logger))
	if err != nil {
		return cfg, nil, nil, fmt.Errorf("failed to open store at %s: %w", cfg.DataDir, err)
	}
	return cfg, s, logger, nil
}

// readLines loads non-blank, non-comment lines from a file.
func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		lines = append(lines, line)
	}
	return lines, scanner.Err()
}
