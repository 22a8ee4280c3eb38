package facts

import (
	"slices"

	"factgraph/internal/spans"
)

// ID identifies a fact within one run.
type ID int64

// DeclarationRef points from one fact at a declaration fact.
type DeclarationRef struct {
	ID ID `json:"id" msgpack:"id"`
}

// Content is the structural key of a fact. Refs lists every declaration the
// content points at; the assembler uses it to check block ordering.
type Content interface {
	Refs() []DeclarationRef
}

// DeclarationKey is the content of the four *Declaration predicates.
type DeclarationKey struct {
	Name string `json:"name" msgpack:"name"`
}

func (DeclarationKey) Refs() []DeclarationRef { return nil }

// ClassDefinitionKey is the content of ClassDefinition.
type ClassDefinitionKey struct {
	Declaration DeclarationRef `json:"declaration" msgpack:"declaration"`
	IsAbstract  bool           `json:"is_abstract" msgpack:"is_abstract"`
	IsFinal     bool           `json:"is_final" msgpack:"is_final"`
}

func (k ClassDefinitionKey) Refs() []DeclarationRef { return []DeclarationRef{k.Declaration} }

// DefinitionKey is the content of InterfaceDefinition, TraitDefinition and
// EnumDefinition.
type DefinitionKey struct {
	Declaration DeclarationRef `json:"declaration" msgpack:"declaration"`
}

func (k DefinitionKey) Refs() []DeclarationRef { return []DeclarationRef{k.Declaration} }

// LocationKey is the content of DeclarationLocation.
type LocationKey struct {
	Declaration DeclarationRef `json:"declaration" msgpack:"declaration"`
	File        string         `json:"file" msgpack:"file"`
	Span        spans.Span     `json:"span" msgpack:"span"`
}

func (k LocationKey) Refs() []DeclarationRef { return []DeclarationRef{k.Declaration} }

// TargetRanges groups the delta-encoded uses of one target within a file.
type TargetRanges struct {
	Target DeclarationRef `json:"target" msgpack:"target"`
	Ranges []spans.Delta  `json:"ranges" msgpack:"ranges"`
}

// FileXRefsKey is the content of FileXRefs.
type FileXRefsKey struct {
	File   string         `json:"file" msgpack:"file"`
	Ranges []TargetRanges `json:"ranges" msgpack:"ranges"`
}

func (k FileXRefsKey) Refs() []DeclarationRef {
	refs := make([]DeclarationRef, 0, len(k.Ranges))
	for _, r := range k.Ranges {
		refs = append(refs, r.Target)
	}
	return refs
}

// clone returns a copy of k that shares no slices with it.
func (k FileXRefsKey) clone() FileXRefsKey {
	out := FileXRefsKey{File: k.File, Ranges: make([]TargetRanges, len(k.Ranges))}
	for i, r := range k.Ranges {
		out.Ranges[i] = TargetRanges{Target: r.Target, Ranges: slices.Clone(r.Ranges)}
	}
	return out
}

// cloneContent copies the slice-backed parts of c. The other keys are plain
// values.
func cloneContent(c Content) Content {
	if k, ok := c.(FileXRefsKey); ok {
		return k.clone()
	}
	return c
}

// DecodeXRefs expands a FileXRefs key back into absolute spans per target.
func DecodeXRefs(k FileXRefsKey) map[ID][]spans.Span {
	out := make(map[ID][]spans.Span, len(k.Ranges))
	for _, r := range k.Ranges {
		out[r.Target.ID] = append(out[r.Target.ID], spans.Decode(r.Ranges)...)
	}
	return out
}

// Fact is an immutable interned record.
type Fact struct {
	ID        ID
	Predicate Predicate
	Key       Content
}
