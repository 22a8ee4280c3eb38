package scip

import (
	"fmt"
	"strings"

	"factgraph/internal/indexer"
)

// Identifier is a parsed SCIP symbol.
// SCIP format: <scheme> <manager> <package> <version> <descriptor>
// Example: scip-php composer acme/app 1.4.0 App/Models/User#
type Identifier struct {
	Scheme     string
	Manager    string
	Package    string
	Version    string
	Descriptor string
	Raw        string
}

// IsLocal reports whether the symbol is document-local ("local 12").
func (id *Identifier) IsLocal() bool {
	return id.Scheme == "local"
}

// ParseIdentifier parses a SCIP symbol string. The descriptor may contain
// spaces inside backtick-escaped names, so it is everything after the fourth
// separator.
func ParseIdentifier(raw string) (*Identifier, error) {
	if raw == "" {
		return nil, fmt.Errorf("empty SCIP identifier")
	}
	if strings.HasPrefix(raw, "local ") {
		return &Identifier{Scheme: "local", Descriptor: strings.TrimPrefix(raw, "local "), Raw: raw}, nil
	}

	parts := strings.SplitN(raw, " ", 5)
	if len(parts) < 5 {
		return nil, fmt.Errorf("invalid SCIP identifier format: %s", raw)
	}
	return &Identifier{
		Scheme:     parts[0],
		Manager:    parts[1],
		Package:    parts[2],
		Version:    parts[3],
		Descriptor: parts[4],
		Raw:        raw,
	}, nil
}

// Descriptor suffixes, as defined by the SCIP symbol grammar.
const (
	SuffixNamespace     = '/'
	SuffixType          = '#'
	SuffixTerm          = '.'
	SuffixMeta          = ':'
	SuffixMacro         = '!'
	SuffixMethod        = '('
	SuffixTypeParameter = '['
	SuffixParameter     = ')'
)

// DescriptorPart is one name in a descriptor chain together with its suffix.
type DescriptorPart struct {
	Name   string
	Suffix byte
}

// ParseDescriptor splits a descriptor into its parts, unescaping
// backtick-quoted names.
func ParseDescriptor(desc string) ([]DescriptorPart, error) {
	var parts []DescriptorPart
	i := 0
	for i < len(desc) {
		switch desc[i] {
		case '[':
			name, next, err := readUntil(desc, i+1, ']')
			if err != nil {
				return nil, err
			}
			parts = append(parts, DescriptorPart{Name: name, Suffix: SuffixTypeParameter})
			i = next
			continue
		case '(':
			name, next, err := readUntil(desc, i+1, ')')
			if err != nil {
				return nil, err
			}
			parts = append(parts, DescriptorPart{Name: name, Suffix: SuffixParameter})
			i = next
			continue
		}

		name, next, err := readName(desc, i)
		if err != nil {
			return nil, err
		}
		if next >= len(desc) {
			return nil, fmt.Errorf("descriptor %q: missing suffix after %q", desc, name)
		}

		switch c := desc[next]; c {
		case SuffixNamespace, SuffixType, SuffixTerm, SuffixMeta, SuffixMacro:
			parts = append(parts, DescriptorPart{Name: name, Suffix: c})
			i = next + 1
		case '(':
			// method: name(disambiguator).
			_, after, err := readUntil(desc, next+1, ')')
			if err != nil {
				return nil, err
			}
			if after >= len(desc) || desc[after] != '.' {
				return nil, fmt.Errorf("descriptor %q: method %q not terminated by '.'", desc, name)
			}
			parts = append(parts, DescriptorPart{Name: name, Suffix: SuffixMethod})
			i = after + 1
		default:
			return nil, fmt.Errorf("descriptor %q: unexpected suffix %q", desc, c)
		}
	}
	return parts, nil
}

func readName(desc string, i int) (string, int, error) {
	if i < len(desc) && desc[i] == '`' {
		var b strings.Builder
		j := i + 1
		for j < len(desc) {
			if desc[j] == '`' {
				if j+1 < len(desc) && desc[j+1] == '`' {
					b.WriteByte('`')
					j += 2
					continue
				}
				return b.String(), j + 1, nil
			}
			b.WriteByte(desc[j])
			j++
		}
		return "", 0, fmt.Errorf("descriptor %q: unterminated escaped name", desc)
	}

	j := i
	for j < len(desc) && isIdentChar(desc[j]) {
		j++
	}
	if j == i {
		return "", 0, fmt.Errorf("descriptor %q: empty name at %d", desc, i)
	}
	return desc[i:j], j, nil
}

func readUntil(desc string, i int, end byte) (string, int, error) {
	j := strings.IndexByte(desc[i:], end)
	if j < 0 {
		return "", 0, fmt.Errorf("descriptor %q: missing %q", desc, end)
	}
	return desc[i : i+j], i + j + 1, nil
}

func isIdentChar(c byte) bool {
	return c == '_' || c == '+' || c == '-' || c == '$' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9') ||
		c >= 0x80
}

// TypeName returns the fully-qualified name of a top-level type descriptor
// ("App/Models/User#" -> `App\Models\User`). Members, methods and locals are
// not types and return false.
func TypeName(id *Identifier) (string, bool) {
	if id.IsLocal() {
		return "", false
	}
	parts, err := ParseDescriptor(id.Descriptor)
	if err != nil || len(parts) == 0 {
		return "", false
	}

	last := parts[len(parts)-1]
	if last.Suffix != SuffixType {
		return "", false
	}
	names := make([]string, 0, len(parts))
	for _, p := range parts[:len(parts)-1] {
		if p.Suffix != SuffixNamespace {
			return "", false
		}
		names = append(names, p.Name)
	}
	names = append(names, last.Name)
	return strings.Join(names, indexer.NamespaceSeparator), true
}
