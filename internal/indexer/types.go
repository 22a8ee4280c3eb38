package indexer

import (
	"fmt"
	"strings"

	"factgraph/internal/spans"
)

// SymbolKind is the closed set of symbol categories a front end reports.
// Only the container-like kinds and enums are indexed; KindOther covers
// methods, functions, properties and everything else.
type SymbolKind int

const (
	KindOther SymbolKind = iota
	KindClass
	KindInterface
	KindTrait
	KindEnum
)

func (k SymbolKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindInterface:
		return "interface"
	case KindTrait:
		return "trait"
	case KindEnum:
		return "enum"
	default:
		return "other"
	}
}

// IsContainer reports whether k is a class, interface or trait.
func (k SymbolKind) IsContainer() bool {
	return k == KindClass || k == KindInterface || k == KindTrait
}

// Indexed reports whether facts are emitted for symbols of kind k.
func (k SymbolKind) Indexed() bool {
	return k.IsContainer() || k == KindEnum
}

// ParseSymbolKind maps a kind name onto a SymbolKind. Unknown names map to
// KindOther.
func ParseSymbolKind(s string) SymbolKind {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class":
		return KindClass
	case "interface":
		return KindInterface
	case "trait":
		return KindTrait
	case "enum":
		return KindEnum
	default:
		return KindOther
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k SymbolKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *SymbolKind) UnmarshalText(text []byte) error {
	*k = ParseSymbolKind(string(text))
	return nil
}

// Symbol is a symbol definition as reported by a front end or resolver.
type Symbol struct {
	Kind SymbolKind
	// Name is the fully-qualified name, with or without a leading separator.
	Name string
	File string
	Span spans.Span

	// Class only.
	IsAbstract bool
	IsFinal    bool
}

func (s Symbol) String() string {
	return fmt.Sprintf("%s %s (%s@%d+%d)", s.Kind, s.Name, s.File, s.Span.Start, s.Span.Length)
}

// Occurrence is one appearance of a symbol name in a source file.
type Occurrence struct {
	File          string
	Span          spans.Span
	IsDeclaration bool
	// Ref is front end specific and only interpreted by its Resolver.
	Ref string
}

// Resolver maps an occurrence to the definition it refers to.
type Resolver interface {
	Resolve(occ Occurrence) (Symbol, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(occ Occurrence) (Symbol, bool)

// Resolve calls f(occ).
func (f ResolverFunc) Resolve(occ Occurrence) (Symbol, bool) {
	return f(occ)
}

// Batch is everything a front end produced for one run.
type Batch struct {
	Declarations []Symbol
	Occurrences  []Occurrence
}

// NamespaceSeparator separates the segments of a fully-qualified name.
const NamespaceSeparator = `\`

// NormalizeName strips a single leading namespace separator so that
// root-relative and unqualified spellings of a name collapse to one fact.
func NormalizeName(name string) string {
	return strings.TrimPrefix(name, NamespaceSeparator)
}
