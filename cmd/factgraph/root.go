package main

import (
	"path/filepath"

	"factgraph/internal/config"
	"factgraph/internal/logging"
	"factgraph/internal/version"

	"github.com/spf13/cobra"
)

var (
	rootDir   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "factgraph",
	Short: "factgraph - code fact extraction",
	Long: `factgraph extracts class, interface, trait and enum declarations and the
cross-references between them from a source tree (or a SCIP index, or a
pre-extracted batch) and writes them as ordered, deduplicated fact blocks
ready for ingestion into a fact database.`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("factgraph version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&rootDir, "root", ".", "Repository root holding .factgraph/config.toml")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: human or json (default from config)")
}

// loadConfig reads the repository config; command-line flags win over it.
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(rootDir)
	if err != nil {
		return nil, err
	}
	if logLevel != "" {
		cfg.Logging.Level = logLevel
	}
	if logFormat != "" {
		cfg.Logging.Format = logFormat
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) *logging.Logger {
	format := logging.HumanFormat
	if cfg.Logging.Format == string(logging.JSONFormat) {
		format = logging.JSONFormat
	}
	return logging.NewLogger(logging.Config{
		Format: format,
		Level:  logging.ParseLevel(cfg.Logging.Level),
	})
}

// resolveRootPath makes a configured path relative to --root.
func resolveRootPath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(rootDir, p)
}
