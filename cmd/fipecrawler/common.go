package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/nao1215/fipecrawler/internal/config"
)

// Exit codes.
const (
	exitFailure     = 1
	exitConfig      = 2
	exitInterrupted = 130
)

// exit is replaced in tests.
var exit = os.Exit

// exitCode maps an error returned by a command to the process exit status.
func exitCode(err error) int {
	var cfgErr *config.Error
	if errors.As(err, &cfgErr) {
		return exitConfig
	}
	return exitFailure
}

// loadConfig finds and parses the configuration file named by --config,
// falling back to ./fipecrawler.yaml and the XDG config directory.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	flagPath, err := cmd.Flags().GetString("config")
	if err != nil {
		return nil, err
	}

	path := config.FindConfigFile(flagPath)
	if path == "" {
		path = flagPath
		if path == "" {
			path = config.DefaultConfigFile
		}
	}

	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, config.ErrConfigNotFound) {
			return nil, fmt.Errorf("%w: %s (run 'fipecrawler init' to create one)", err, path)
		}
		return nil, err
	}

	cfg.Verbose, err = cmd.Flags().GetBool("verbose")
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

// dataDirFlag returns --data-dir, or the XDG data directory when unset.
func dataDirFlag(cmd *cobra.Command) (string, error) {
	dir, err := cmd.Flags().GetString("data-dir")
	if err != nil {
		return "", err
	}
	if dir == "" {
		return config.XDGDataDir(), nil
	}
	return dir, nil
}

// createOutput truncates or creates path, making its directory first.
func createOutput(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600) //nolint:gosec // user supplied output path
	if err != nil {
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}

// withOutput runs fn against path, or against stdout when path is empty.
func withOutput(path string, stdout io.Writer, fn func(io.Writer) error) error {
	if path == "" {
		return fn(stdout)
	}

	f, err := createOutput(path)
	if err != nil {
		return err
	}
	if err := fn(f); err != nil {
		_ = f.Close() //nolint:errcheck // already failing
		return err
	}
	return f.Close()
}
