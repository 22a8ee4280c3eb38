// Package indexer turns front end declarations and occurrences into facts.
//
// A run makes one pass over the declarations, one pass over the occurrences,
// flushes the aggregated cross-references and then reads the store out as
// ordered blocks. Nothing here logs: dropped inputs are counted in Stats and
// reporting them is left to the caller.
package indexer

import (
	"fmt"

	"factgraph/internal/facts"
)

// Stats counts what a run did with its input.
type Stats struct {
	Declarations           int `json:"declarations"`
	SkippedDeclarations    int `json:"skippedDeclarations"`
	Recorded               int `json:"recorded"`
	Unresolved             int `json:"unresolved"`
	OutOfScope             int `json:"outOfScope"`
	DeclarationOccurrences int `json:"declarationOccurrences"`
	Facts                  int `json:"facts"`
}

// Indexer builds facts into one store.
type Indexer struct {
	store    *facts.Store
	resolver Resolver
	xrefs    xrefMap
	stats    Stats
}

// New creates an indexer writing into store. A nil resolver resolves nothing.
func New(store *facts.Store, resolver Resolver) *Indexer {
	if resolver == nil {
		resolver = ResolverFunc(func(Occurrence) (Symbol, bool) { return Symbol{}, false })
	}
	return &Indexer{
		store:    store,
		resolver: resolver,
		xrefs:    make(xrefMap),
	}
}

// Store returns the store the indexer writes to.
func (ix *Indexer) Store() *facts.Store {
	return ix.store
}

// Stats returns the counters accumulated so far.
func (ix *Indexer) Stats() Stats {
	s := ix.stats
	s.Facts = ix.store.Len()
	return s
}

// IndexDeclarations runs the declaration pass. Symbols of kinds that are not
// indexed are skipped.
func (ix *Indexer) IndexDeclarations(decls []Symbol) error {
	for _, sym := range decls {
		if !sym.Kind.Indexed() {
			ix.stats.SkippedDeclarations++
			continue
		}
		if _, err := ix.DeclareAndDefine(sym); err != nil {
			return fmt.Errorf("declaration %s: %w", sym, err)
		}
		ix.stats.Declarations++
	}
	return nil
}

// IndexOccurrences runs the occurrence pass and flushes cross-references.
func (ix *Indexer) IndexOccurrences(occs []Occurrence) error {
	for _, occ := range occs {
		if err := ix.RecordUse(occ); err != nil {
			return fmt.Errorf("occurrence in %s at %d: %w", occ.File, occ.Span.Start, err)
		}
	}
	return ix.FlushXRefs()
}

// Result is the output of Build.
type Result struct {
	Blocks []facts.Block
	Stats  Stats
}

// Build runs a clean-slate indexing pass over batch with a fresh store.
func Build(batch Batch, resolver Resolver, schema facts.Schema, opts ...facts.Option) (*Result, error) {
	ix := New(facts.NewStore(opts...), resolver)
	if err := ix.IndexDeclarations(batch.Declarations); err != nil {
		return nil, err
	}
	if err := ix.IndexOccurrences(batch.Occurrences); err != nil {
		return nil, err
	}
	return &Result{
		Blocks: facts.Assemble(ix.store, schema),
		Stats:  ix.Stats(),
	}, nil
}
