package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"factgraph/internal/errors"
	"factgraph/internal/facts"
	"factgraph/internal/output"
	"factgraph/internal/storage"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	inspectRun    string
	inspectSQLite string
	inspectJSON   bool
	inspectXRefs  bool
	inspectVerify bool
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [blocks-file]",
	Short: "Summarize written fact blocks",
	Long: `Reads fact blocks back, either from a file written by 'factgraph index'
(plain or zstd) or from a run stored in the SQLite sink, and prints a per-block
summary.

Examples:
  factgraph inspect facts.json
  factgraph inspect --sqlite facts.db              # latest stored run
  factgraph inspect --sqlite facts.db --run <id> --xrefs
  factgraph inspect facts.json.zst --verify --json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInspect,
}

func init() {
	inspectCmd.Flags().StringVar(&inspectRun, "run", "", "Stored run id (default latest)")
	inspectCmd.Flags().StringVar(&inspectSQLite, "sqlite", "", "Read the run from this SQLite database")
	inspectCmd.Flags().BoolVar(&inspectJSON, "json", false, "Print the summary as JSON")
	inspectCmd.Flags().BoolVar(&inspectXRefs, "xrefs", false, "Also list decoded cross-references per file")
	inspectCmd.Flags().BoolVar(&inspectVerify, "verify", false, "Check the schema against the config, block order and referential integrity")
	rootCmd.AddCommand(inspectCmd)
}

func runInspect(cmd *cobra.Command, args []string) error {
	blocks, err := readBlocks(cmd.Context(), args)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if inspectVerify {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		schema := facts.Schema{Name: cfg.Schema.Name, Version: cfg.Schema.Version}
		if err := facts.CheckSchema(blocks, schema); err != nil {
			return err
		}
		if err := facts.VerifyOrder(blocks); err != nil {
			return err
		}
	}

	summary := output.Summarize(blocks)
	if inspectJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}

	if err := summary.WriteTable(out); err != nil {
		return err
	}
	if inspectVerify {
		fmt.Fprintf(out, "%s schema and block order verified\n", color.GreenString("✓"))
	}
	if inspectXRefs {
		writeXRefs(out, blocks)
	}
	return nil
}

func readBlocks(ctx context.Context, args []string) ([]facts.Block, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	switch {
	case inspectSQLite != "":
		db, err := storage.Open(inspectSQLite, nil)
		if err != nil {
			return nil, errors.New(errors.SinkFailed, "failed to open fact database", err)
		}
		defer db.Close()
		run, err := db.GetRun(ctx, inspectRun)
		if err != nil {
			return nil, err
		}
		return db.LoadBlocks(ctx, run.ID)
	case len(args) == 1:
		return output.ReadFile(args[0])
	}
	return nil, errors.Newf(errors.InputInvalid, "a blocks file or --sqlite is required")
}

// writeXRefs prints each FileXRefs fact with its spans decoded to absolute
// offsets, targets in id order.
func writeXRefs(w io.Writer, blocks []facts.Block) {
	for _, b := range blocks {
		if b.Kind != facts.FileXRefs {
			continue
		}
		for _, f := range b.Facts {
			key, ok := f.Key.(facts.FileXRefsKey)
			if !ok {
				continue
			}
			fmt.Fprintf(w, "\n%s\n", color.New(color.Bold).Sprint(key.File))
			decoded := facts.DecodeXRefs(key)
			targets := make([]facts.ID, 0, len(decoded))
			for id := range decoded {
				targets = append(targets, id)
			}
			sort.Slice(targets, func(i, j int) bool { return targets[i] < targets[j] })
			for _, id := range targets {
				fmt.Fprintf(w, "  -> %d:", id)
				for _, s := range decoded[id] {
					fmt.Fprintf(w, " %d+%d", s.Start, s.Length)
				}
				fmt.Fprintln(w)
			}
		}
	}
}
