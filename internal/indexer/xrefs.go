package indexer

import (
	"cmp"
	"slices"

	"factgraph/internal/facts"
	"factgraph/internal/spans"
)

// xrefMap buckets absolute use positions by file, then by target.
type xrefMap map[string]map[facts.ID][]spans.Span

func (m xrefMap) add(file string, target facts.DeclarationRef, span spans.Span) {
	byTarget, ok := m[file]
	if !ok {
		byTarget = make(map[facts.ID][]spans.Span)
		m[file] = byTarget
	}
	byTarget[target.ID] = append(byTarget[target.ID], span)
}

// RecordUse resolves one occurrence and, when it names an indexed symbol,
// records its position against that symbol. Declaration occurrences,
// unresolved names and out-of-scope kinds are dropped without error.
func (ix *Indexer) RecordUse(occ Occurrence) error {
	if occ.IsDeclaration {
		ix.stats.DeclarationOccurrences++
		return nil
	}

	sym, ok := ix.resolver.Resolve(occ)
	if !ok {
		ix.stats.Unresolved++
		return nil
	}
	if !sym.Kind.Indexed() {
		ix.stats.OutOfScope++
		return nil
	}

	target, err := ix.DeclareAndDefine(sym)
	if err != nil {
		return err
	}

	ix.xrefs.add(occ.File, target, occ.Span)
	ix.stats.Recorded++
	return nil
}

// FlushXRefs turns the recorded positions into FileXRefs facts and clears
// them. Files are emitted in path order and targets in id order so repeated
// runs over the same input produce the same ids.
func (ix *Indexer) FlushXRefs() error {
	files := make([]string, 0, len(ix.xrefs))
	for f := range ix.xrefs {
		files = append(files, f)
	}
	slices.Sort(files)

	for _, file := range files {
		byTarget := ix.xrefs[file]

		targets := make([]facts.ID, 0, len(byTarget))
		for id, positions := range byTarget {
			if len(positions) > 0 {
				targets = append(targets, id)
			}
		}
		if len(targets) == 0 {
			continue
		}
		slices.SortFunc(targets, cmp.Compare[facts.ID])

		key := facts.FileXRefsKey{File: file, Ranges: make([]facts.TargetRanges, 0, len(targets))}
		for _, id := range targets {
			key.Ranges = append(key.Ranges, facts.TargetRanges{
				Target: facts.DeclarationRef{ID: id},
				Ranges: spans.Encode(byTarget[id]),
			})
		}
		if _, err := ix.store.Intern(facts.FileXRefs, key); err != nil {
			return err
		}
	}

	ix.xrefs = make(xrefMap)
	return nil
}
