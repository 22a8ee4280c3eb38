// Package php extracts class, interface, trait and enum declarations and the
// class references between them from PHP source trees.
package php

import "factgraph/internal/indexer"

// FileResult is what one file contributed.
type FileResult struct {
	File         string
	Declarations []indexer.Symbol
	Occurrences  []indexer.Occurrence
	// HasErrors is set when the parser recovered from syntax errors; the
	// extracted symbols may be incomplete.
	HasErrors bool
}

// Resolver resolves occurrences against the declarations of a whole tree.
// Lookups are case-insensitive, as PHP class names are.
type Resolver struct {
	symbols map[string]indexer.Symbol
}

// NewResolver indexes decls by folded name. The first declaration of a name
// wins.
func NewResolver(decls []indexer.Symbol) *Resolver {
	r := &Resolver{symbols: make(map[string]indexer.Symbol, len(decls))}
	for _, d := range decls {
		key := foldName(d.Name)
		if _, ok := r.symbols[key]; !ok {
			r.symbols[key] = d
		}
	}
	return r
}

// Resolve implements indexer.Resolver.
func (r *Resolver) Resolve(occ indexer.Occurrence) (indexer.Symbol, bool) {
	sym, ok := r.symbols[foldName(occ.Ref)]
	return sym, ok
}

// Len returns the number of distinct names.
func (r *Resolver) Len() int {
	return len(r.symbols)
}
