package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"factgraph/internal/pipeline"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	indexFrontend string
	indexScip     string
	indexBatch    string
	indexOutput   string
	indexCompress string
	indexIndent   bool
	indexNoVerify bool
	indexSQLite   string
	indexBaseID   int64
	indexWorkers  int
	indexJSON     bool
)

var indexCmd = &cobra.Command{
	Use:   "index [path]",
	Short: "Extract facts from a source tree",
	Long: `Runs a front end over the repository, builds the fact graph and writes the
ordered fact blocks.

Front ends:
  php    parse PHP sources with tree-sitter (requires a cgo build)
  scip   read a SCIP index (e.g. produced by scip-php)
  batch  read a YAML batch of declarations and occurrences

Examples:
  factgraph index                         # PHP sources under the current directory
  factgraph index --frontend scip --scip-index index.scip
  factgraph index -o facts.json.zst --compress zstd
  factgraph index -o - --indent           # print blocks to stdout`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().StringVar(&indexFrontend, "frontend", "", "Front end: php, scip or batch")
	indexCmd.Flags().StringVar(&indexScip, "scip-index", "", "Path to the SCIP index (scip front end)")
	indexCmd.Flags().StringVar(&indexBatch, "batch", "", "Path to the YAML batch (batch front end)")
	indexCmd.Flags().StringVarP(&indexOutput, "output", "o", "", "Output path, or - for stdout")
	indexCmd.Flags().StringVar(&indexCompress, "compress", "", "Output compression: none or zstd")
	indexCmd.Flags().BoolVar(&indexIndent, "indent", false, "Pretty-print the JSON output")
	indexCmd.Flags().BoolVar(&indexNoVerify, "no-verify", false, "Skip the block ordering check")
	indexCmd.Flags().StringVar(&indexSQLite, "sqlite", "", "Also store the run in this SQLite database")
	indexCmd.Flags().Int64Var(&indexBaseID, "base-id", 0, "First fact id to allocate")
	indexCmd.Flags().IntVar(&indexWorkers, "workers", 0, "Parallel parsers (php front end)")
	indexCmd.Flags().BoolVar(&indexJSON, "json", false, "Print the run report as JSON")
	rootCmd.AddCommand(indexCmd)
}

func runIndex(cmd *cobra.Command, args []string) error {
	if len(args) == 1 {
		rootDir = args[0]
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	flags := cmd.Flags()
	if flags.Changed("frontend") {
		cfg.Frontend.Kind = indexFrontend
	}
	if flags.Changed("scip-index") {
		cfg.Frontend.ScipIndex = indexScip
		if !flags.Changed("frontend") {
			cfg.Frontend.Kind = "scip"
		}
	}
	if flags.Changed("batch") {
		cfg.Frontend.BatchFile = indexBatch
		if !flags.Changed("frontend") {
			cfg.Frontend.Kind = "batch"
		}
	}
	if flags.Changed("output") {
		cfg.Output.Path = indexOutput
	}
	if flags.Changed("compress") {
		cfg.Output.Compress = indexCompress
	}
	if flags.Changed("indent") {
		cfg.Output.Indent = indexIndent
	}
	if indexNoVerify {
		cfg.Output.Verify = false
	}
	if flags.Changed("sqlite") {
		cfg.Sink.SQLitePath = indexSQLite
	}
	if flags.Changed("base-id") {
		cfg.Schema.BaseID = indexBaseID
	}
	if flags.Changed("workers") {
		cfg.Frontend.Workers = indexWorkers
	}

	logger := newLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	report, err := pipeline.Run(ctx, pipeline.Options{
		Root:   rootDir,
		Config: cfg,
		Logger: logger,
		Stdout: cmd.OutOrStdout(),
	})
	if err != nil {
		return err
	}

	// Blocks already went to stdout; keep it clean.
	out := cmd.OutOrStdout()
	if report.Output == pipeline.StdoutPath {
		out = cmd.ErrOrStderr()
	}

	if indexJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}

	fmt.Fprintf(out, "%s %s\n", color.GreenString("✓"), report.Describe())
	if report.Output != pipeline.StdoutPath {
		fmt.Fprintf(out, "  wrote %s\n", report.Output)
	}
	if report.RunID != "" {
		fmt.Fprintf(out, "  run %s\n", report.RunID)
	}
	if n := report.Stats.Unresolved; n > 0 {
		fmt.Fprintf(out, "  %s\n", color.YellowString("%d references did not resolve", n))
	}
	return nil
}
