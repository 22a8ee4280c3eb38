// Package pipeline wires a front end, the indexer, the block writer and the
// optional SQLite sink into one indexing run.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"factgraph/internal/config"
	"factgraph/internal/errors"
	"factgraph/internal/facts"
	"factgraph/internal/frontend/batch"
	"factgraph/internal/frontend/php"
	"factgraph/internal/frontend/scip"
	"factgraph/internal/indexer"
	"factgraph/internal/logging"
	"factgraph/internal/output"
	"factgraph/internal/storage"
)

// StdoutPath as the output path writes blocks to Options.Stdout.
const StdoutPath = "-"

// Options for one run.
type Options struct {
	Root   string
	Config *config.Config
	Logger *logging.Logger
	// Stdout receives the blocks when the output path is "-".
	Stdout io.Writer
}

// Report describes a finished run.
type Report struct {
	RunID    string         `json:"runId,omitempty"`
	Frontend string         `json:"frontend"`
	Output   string         `json:"output"`
	Stats    indexer.Stats  `json:"stats"`
	Summary  output.Summary `json:"summary"`
	Duration time.Duration  `json:"duration"`
}

// Run executes one clean-slate indexing run.
func Run(ctx context.Context, opts Options) (*Report, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.New(errors.InputInvalid, "invalid configuration", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	root := opts.Root
	if root == "" {
		root = "."
	}

	started := time.Now()
	in, err := loadInput(ctx, root, cfg, logger)
	if err != nil {
		return nil, err
	}

	schema := facts.Schema{Name: cfg.Schema.Name, Version: cfg.Schema.Version}
	result, err := indexer.Build(in.batch, in.resolver, schema, facts.WithBaseID(facts.ID(cfg.Schema.BaseID)))
	if err != nil {
		return nil, err
	}
	if cfg.Output.Verify {
		if err := facts.VerifyOrder(result.Blocks); err != nil {
			return nil, err
		}
	}

	report := &Report{
		Frontend: cfg.Frontend.Kind,
		Stats:    result.Stats,
		Summary:  output.Summarize(result.Blocks),
	}

	if err := writeBlocks(root, cfg, opts.Stdout, result.Blocks, report); err != nil {
		return nil, err
	}

	if cfg.Sink.SQLitePath != "" {
		runID, err := saveRun(ctx, root, cfg, logger, started, result)
		if err != nil {
			return nil, err
		}
		report.RunID = runID
	}

	report.Duration = time.Since(started)
	logger.Info("Indexing run complete", map[string]interface{}{
		"frontend":     cfg.Frontend.Kind,
		"facts":        result.Stats.Facts,
		"declarations": result.Stats.Declarations,
		"recorded":     result.Stats.Recorded,
		"unresolved":   result.Stats.Unresolved,
		"output":       report.Output,
		"duration":     report.Duration.String(),
	})
	return report, nil
}

type input struct {
	batch    indexer.Batch
	resolver indexer.Resolver
}

func loadInput(ctx context.Context, root string, cfg *config.Config, logger *logging.Logger) (*input, error) {
	log := logger.Named(cfg.Frontend.Kind)

	switch cfg.Frontend.Kind {
	case config.FrontendPHP:
		res, err := php.Load(ctx, root, php.Options{
			Extensions: cfg.Frontend.Extensions,
			Ignore:     cfg.Frontend.Ignore,
			Workers:    cfg.Frontend.Workers,
			Logger:     log,
		})
		if err != nil {
			return nil, err
		}
		return &input{batch: res.Batch, resolver: res.Resolver}, nil

	case config.FrontendSCIP:
		idx, err := scip.Load(resolvePath(root, cfg.Frontend.ScipIndex))
		if err != nil {
			return nil, err
		}
		res, err := scip.Extract(idx, scip.Options{Root: root, Logger: log})
		if err != nil {
			return nil, err
		}
		if res.SkippedDocuments > 0 {
			log.Warn("Some documents were skipped", map[string]interface{}{"count": res.SkippedDocuments})
		}
		return &input{batch: res.Batch, resolver: res.Resolver}, nil

	case config.FrontendBatch:
		f, err := batch.Load(resolvePath(root, cfg.Frontend.BatchFile))
		if err != nil {
			return nil, err
		}
		return &input{batch: f.Batch(), resolver: f.Resolver()}, nil
	}
	return nil, errors.Newf(errors.InputInvalid, "unknown front end %q", cfg.Frontend.Kind)
}

func writeBlocks(root string, cfg *config.Config, stdout io.Writer, blocks []facts.Block, report *Report) error {
	compression, err := output.ParseCompression(cfg.Output.Compress)
	if err != nil {
		return err
	}
	opts := output.Options{Compression: compression, Indent: cfg.Output.Indent}

	if cfg.Output.Path == StdoutPath {
		if stdout == nil {
			stdout = os.Stdout
		}
		report.Output = StdoutPath
		if err := output.Encode(stdout, blocks, opts); err != nil {
			return errors.New(errors.SinkFailed, "failed to write blocks to stdout", err)
		}
		return nil
	}

	path := resolvePath(root, cfg.Output.Path)
	report.Output = path
	return output.WriteFile(path, blocks, opts)
}

func saveRun(ctx context.Context, root string, cfg *config.Config, logger *logging.Logger, started time.Time, result *indexer.Result) (string, error) {
	db, err := storage.Open(resolvePath(root, cfg.Sink.SQLitePath), logger.Named("sink"))
	if err != nil {
		return "", errors.New(errors.SinkFailed, "failed to open fact database", err)
	}
	defer db.Close()

	stats, err := json.Marshal(result.Stats)
	if err != nil {
		return "", err
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		absRoot = root
	}

	run, err := db.SaveRun(ctx, storage.Run{
		Root:          absRoot,
		Frontend:      cfg.Frontend.Kind,
		SchemaName:    cfg.Schema.Name,
		SchemaVersion: cfg.Schema.Version,
		StartedAt:     started,
		Stats:         stats,
	}, result.Blocks)
	if err != nil {
		return "", err
	}
	return run.ID, nil
}

// resolvePath makes a configured path relative to the repository root.
func resolvePath(root, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(root, p)
}

// Describe returns a one-line description of a report for terminal output.
func (r *Report) Describe() string {
	return fmt.Sprintf("%d facts (%d declarations, %d uses) from %s front end in %s",
		r.Stats.Facts, r.Stats.Declarations, r.Stats.Recorded, r.Frontend, r.Duration.Round(time.Millisecond))
}
