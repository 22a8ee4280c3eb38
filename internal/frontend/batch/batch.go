// Package batch reads a pre-extracted batch of declarations and occurrences
// from YAML, for front ends that run out of process.
package batch

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"strings"

	"factgraph/internal/errors"
	"factgraph/internal/indexer"
	"factgraph/internal/paths"
	"factgraph/internal/spans"

	"gopkg.in/yaml.v3"
)

// File is the on-disk batch document.
type File struct {
	Declarations []Symbol     `yaml:"declarations"`
	Occurrences  []Occurrence `yaml:"occurrences"`
	// Symbols maps occurrence refs to symbols that are not declared in this
	// batch, e.g. library classes or methods.
	Symbols []RefSymbol `yaml:"symbols"`
}

// Symbol is the YAML form of indexer.Symbol.
type Symbol struct {
	Kind     string     `yaml:"kind"`
	Name     string     `yaml:"name"`
	File     string     `yaml:"file"`
	Span     spans.Span `yaml:"span"`
	Abstract bool       `yaml:"abstract,omitempty"`
	Final    bool       `yaml:"final,omitempty"`
}

// RefSymbol binds a ref to a symbol.
type RefSymbol struct {
	Ref    string `yaml:"ref"`
	Symbol `yaml:",inline"`
}

// Occurrence is the YAML form of indexer.Occurrence.
type Occurrence struct {
	File        string     `yaml:"file"`
	Span        spans.Span `yaml:"span"`
	Declaration bool       `yaml:"declaration,omitempty"`
	// Ref is the name or symbol key the occurrence refers to.
	Ref string `yaml:"ref"`
}

func (s Symbol) toIndexer() indexer.Symbol {
	return indexer.Symbol{
		Kind:       indexer.ParseSymbolKind(s.Kind),
		Name:       s.Name,
		File:       paths.NormalizePath(s.File),
		Span:       s.Span,
		IsAbstract: s.Abstract,
		IsFinal:    s.Final,
	}
}

// Load reads and decodes a batch file.
func Load(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.IndexMissing, fmt.Sprintf("batch file not found at %s", path), err)
		}
		return nil, errors.New(errors.InternalError, fmt.Sprintf("failed to read batch file %s", path), err)
	}
	f, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Decode parses a batch document. Unknown fields are rejected.
func Decode(r io.Reader) (*File, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var f File
	if err := dec.Decode(&f); err != nil {
		if err == io.EOF {
			return &f, nil
		}
		return nil, errors.New(errors.InputInvalid, "invalid batch document", err)
	}
	if err := f.validate(); err != nil {
		return nil, err
	}
	return &f, nil
}

func (f *File) validate() error {
	check := func(where string, file string, s spans.Span) error {
		if file == "" {
			return errors.Newf(errors.InputInvalid, "%s: missing file", where)
		}
		if s.Start < 0 || s.Length < 0 {
			return errors.Newf(errors.InputInvalid, "%s: negative span %+v", where, s)
		}
		return nil
	}
	for i, d := range f.Declarations {
		if err := check(fmt.Sprintf("declarations[%d]", i), d.File, d.Span); err != nil {
			return err
		}
	}
	for i, o := range f.Occurrences {
		if err := check(fmt.Sprintf("occurrences[%d]", i), o.File, o.Span); err != nil {
			return err
		}
	}
	for i, s := range f.Symbols {
		if s.Ref == "" {
			return errors.Newf(errors.InputInvalid, "symbols[%d]: missing ref", i)
		}
	}
	return nil
}

// Batch converts the document into indexer input.
func (f *File) Batch() indexer.Batch {
	b := indexer.Batch{
		Declarations: make([]indexer.Symbol, 0, len(f.Declarations)),
		Occurrences:  make([]indexer.Occurrence, 0, len(f.Occurrences)),
	}
	for _, d := range f.Declarations {
		b.Declarations = append(b.Declarations, d.toIndexer())
	}
	for _, o := range f.Occurrences {
		b.Occurrences = append(b.Occurrences, indexer.Occurrence{
			File:          paths.NormalizePath(o.File),
			Span:          o.Span,
			IsDeclaration: o.Declaration,
			Ref:           o.Ref,
		})
	}
	return b
}

// Resolver looks refs up in the symbols table first and then among the
// declarations by name. Leading namespace separators are ignored on both
// sides.
func (f *File) Resolver() indexer.Resolver {
	table := make(map[string]indexer.Symbol, len(f.Symbols)+len(f.Declarations))
	for _, d := range f.Declarations {
		key := indexer.NormalizeName(d.Name)
		if _, ok := table[key]; !ok {
			table[key] = d.toIndexer()
		}
	}
	for _, s := range f.Symbols {
		table[indexer.NormalizeName(s.Ref)] = s.Symbol.toIndexer()
	}

	return indexer.ResolverFunc(func(occ indexer.Occurrence) (indexer.Symbol, bool) {
		sym, ok := table[indexer.NormalizeName(strings.TrimSpace(occ.Ref))]
		return sym, ok
	})
}
