package facts

import (
	"fmt"
	"strconv"
)

// Predicate is the closed set of fact kinds this indexer emits.
type Predicate int

const (
	ClassDeclaration Predicate = iota
	ClassDefinition
	InterfaceDeclaration
	InterfaceDefinition
	TraitDeclaration
	TraitDefinition
	EnumDeclaration
	EnumDefinition
	DeclarationLocation
	FileXRefs
)

var predicateNames = [...]string{
	ClassDeclaration:     "ClassDeclaration",
	ClassDefinition:      "ClassDefinition",
	InterfaceDeclaration: "InterfaceDeclaration",
	InterfaceDefinition:  "InterfaceDefinition",
	TraitDeclaration:     "TraitDeclaration",
	TraitDefinition:      "TraitDefinition",
	EnumDeclaration:      "EnumDeclaration",
	EnumDefinition:       "EnumDefinition",
	DeclarationLocation:  "DeclarationLocation",
	FileXRefs:            "FileXRefs",
}

// AssemblyOrder is the block order of assembled output. Declarations carry no
// references and come first; locations and definitions point at declarations;
// FileXRefs point at declarations and come last.
var AssemblyOrder = []Predicate{
	InterfaceDeclaration,
	TraitDeclaration,
	ClassDeclaration,
	EnumDeclaration,
	DeclarationLocation,
	InterfaceDefinition,
	TraitDefinition,
	ClassDefinition,
	EnumDefinition,
	FileXRefs,
}

// String returns the unversioned predicate name.
func (p Predicate) String() string {
	if p < 0 || int(p) >= len(predicateNames) {
		return fmt.Sprintf("Predicate(%d)", int(p))
	}
	return predicateNames[p]
}

// Valid reports whether p is one of the known predicates.
func (p Predicate) Valid() bool {
	return p >= 0 && int(p) < len(predicateNames)
}

// ParsePredicate maps an unversioned predicate name back to its Predicate.
func ParsePredicate(name string) (Predicate, bool) {
	for i, n := range predicateNames {
		if n == name {
			return Predicate(i), true
		}
	}
	return 0, false
}

// Schema names the predicate namespace and version used when blocks are
// serialized, e.g. "hack.ClassDeclaration.6".
type Schema struct {
	Name    string
	Version int
}

// DefaultSchema is the schema emitted unless configured otherwise.
var DefaultSchema = Schema{Name: "hack", Version: 6}

// String returns "<schema>.<version>", e.g. "hack.6".
func (s Schema) String() string {
	if s.Name == "" {
		return strconv.Itoa(s.Version)
	}
	return s.Name + "." + strconv.Itoa(s.Version)
}

// QualifiedName returns "<schema>.<predicate>.<version>".
func (s Schema) QualifiedName(p Predicate) string {
	if s.Name == "" {
		return fmt.Sprintf("%s.%d", p, s.Version)
	}
	return fmt.Sprintf("%s.%s.%d", s.Name, p, s.Version)
}
