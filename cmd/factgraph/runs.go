package main

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"
	"time"

	"factgraph/internal/errors"
	"factgraph/internal/storage"

	"github.com/spf13/cobra"
)

var (
	runsSQLite string
	runsJSON   bool
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Manage runs stored in the SQLite sink",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRunsDB()
		if err != nil {
			return err
		}
		defer db.Close()

		runs, err := db.ListRuns(cmd.Context())
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		if runsJSON {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs stored.")
			return nil
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tFRONTEND\tSCHEMA\tFACTS\tFINISHED")
		for _, r := range runs {
			fmt.Fprintf(tw, "%s\t%s\t%s.%d\t%d\t%s\n",
				r.ID, r.Frontend, r.SchemaName, r.SchemaVersion, r.FactCount, r.FinishedAt.Local().Format(time.DateTime))
		}
		return tw.Flush()
	},
}

var runsRmCmd = &cobra.Command{
	Use:   "rm <run-id>...",
	Short: "Delete stored runs",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openRunsDB()
		if err != nil {
			return err
		}
		defer db.Close()

		for _, id := range args {
			if err := db.DeleteRun(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", id)
		}
		return nil
	},
}

func init() {
	runsCmd.PersistentFlags().StringVar(&runsSQLite, "sqlite", "", "SQLite database (default from config)")
	runsListCmd.Flags().BoolVar(&runsJSON, "json", false, "Print runs as JSON")
	runsCmd.AddCommand(runsListCmd, runsRmCmd)
	rootCmd.AddCommand(runsCmd)
}

func openRunsDB() (*storage.DB, error) {
	path := runsSQLite
	if path == "" {
		cfg, err := loadConfig()
		if err != nil {
			return nil, err
		}
		if cfg.Sink.SQLitePath == "" {
			return nil, errors.Newf(errors.InputInvalid, "no SQLite database configured; pass --sqlite")
		}
		path = resolveRootPath(cfg.Sink.SQLitePath)
	}
	db, err := storage.Open(path, nil)
	if err != nil {
		return nil, errors.New(errors.SinkFailed, "failed to open fact database", err)
	}
	return db, nil
}
