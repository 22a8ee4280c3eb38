package php

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"factgraph/internal/errors"
	"factgraph/internal/indexer"
	"factgraph/internal/logging"
	"factgraph/internal/paths"

	"golang.org/x/sync/errgroup"
)

// Options controls which files are parsed and how.
type Options struct {
	Extensions []string
	Ignore     []string
	Workers    int
	Logger     *logging.Logger
}

// Result is the merged output of a tree.
type Result struct {
	Batch           indexer.Batch
	Resolver        *Resolver
	Files           int
	FilesWithErrors int
}

// Collect lists the repo-relative paths under root that match the options,
// in sorted order.
func Collect(root string, opts Options) ([]string, error) {
	exts := opts.Extensions
	if len(exts) == 0 {
		exts = []string{".php"}
	}

	var files []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := paths.CanonicalizePath(path, root)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if paths.IsIgnored(rel, opts.Ignore) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.IsDir() && paths.HasExtension(rel, exts) {
			files = append(files, rel)
		}
		return nil
	})
	if err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("failed to walk %s", root), err)
	}
	slices.Sort(files)
	return files, nil
}

// Load parses every matching file under root, opts.Workers at a time, and
// merges the results in path order.
func Load(ctx context.Context, root string, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	workers := opts.Workers
	if workers < 1 {
		workers = 1
	}

	files, err := Collect(root, opts)
	if err != nil {
		return nil, err
	}

	results := make([]*FileResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	parsers := make(chan *Parser, workers)
	for i := 0; i < workers; i++ {
		parsers <- NewParser()
	}

	for i, rel := range files {
		g.Go(func() error {
			src, err := os.ReadFile(paths.JoinRepoPath(root, rel))
			if err != nil {
				return errors.New(errors.InternalError, fmt.Sprintf("failed to read %s", rel), err)
			}

			p := <-parsers
			defer func() { parsers <- p }()

			res, err := p.ParseFile(gctx, rel, src)
			if err != nil {
				return errors.New(errors.SourceParse, fmt.Sprintf("failed to parse %s", rel), err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(results)
	for _, r := range results {
		if r.HasErrors {
			logger.Warn("syntax errors, extraction may be incomplete", map[string]interface{}{"file": r.File})
		}
	}
	logger.Debug("parsed PHP tree", map[string]interface{}{
		"root":         root,
		"files":        merged.Files,
		"declarations": len(merged.Batch.Declarations),
		"occurrences":  len(merged.Batch.Occurrences),
	})
	return merged, nil
}

// Merge concatenates per-file results in the order given.
func Merge(results []*FileResult) *Result {
	out := &Result{Files: len(results)}
	for _, r := range results {
		if r == nil {
			continue
		}
		if r.HasErrors {
			out.FilesWithErrors++
		}
		out.Batch.Declarations = append(out.Batch.Declarations, r.Declarations...)
		out.Batch.Occurrences = append(out.Batch.Occurrences, r.Occurrences...)
	}
	out.Resolver = NewResolver(out.Batch.Declarations)
	return out
}
