package php

import (
	"strings"

	"factgraph/internal/indexer"
)

const sep = indexer.NamespaceSeparator

// reservedClassNames never resolve to a declared class.
var reservedClassNames = map[string]bool{
	"self": true, "static": true, "parent": true,
	"int": true, "float": true, "bool": true, "string": true, "array": true,
	"callable": true, "iterable": true, "object": true, "mixed": true,
	"void": true, "null": true, "never": true, "false": true, "true": true,
}

// scope is the namespace and class import table in effect at a point in a
// file. PHP names are case-insensitive, so aliases are keyed lower-case.
type scope struct {
	namespace string
	aliases   map[string]string
}

func newScope(namespace string) *scope {
	return &scope{
		namespace: strings.Trim(namespace, sep),
		aliases:   make(map[string]string),
	}
}

// qualify prefixes name with the current namespace.
func (s *scope) qualify(name string) string {
	if s.namespace == "" {
		return name
	}
	return s.namespace + sep + name
}

// addAlias imports fqn under alias, defaulting to its last segment.
func (s *scope) addAlias(fqn, alias string) {
	fqn = strings.TrimPrefix(strings.TrimSpace(fqn), sep)
	if fqn == "" {
		return
	}
	if alias == "" {
		alias = lastSegment(fqn)
	}
	s.aliases[strings.ToLower(alias)] = fqn
}

// resolveClass applies PHP class name resolution to a name as written.
// Reserved words (self, static, parent, builtin types) do not resolve.
func (s *scope) resolveClass(raw string) (string, bool) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(name, sep):
		// fully qualified
		name = strings.TrimPrefix(name, sep)
		return name, name != ""
	case strings.HasPrefix(strings.ToLower(name), "namespace"+sep):
		return s.qualify(name[len("namespace"+sep):]), true
	}

	first, rest, qualified := strings.Cut(name, sep)
	if !qualified && reservedClassNames[strings.ToLower(name)] {
		return "", false
	}
	if target, ok := s.aliases[strings.ToLower(first)]; ok {
		if qualified {
			return target + sep + rest, true
		}
		return target, true
	}
	return s.qualify(name), true
}

func lastSegment(name string) string {
	if i := strings.LastIndex(name, sep); i >= 0 {
		return name[i+1:]
	}
	return name
}

// foldName is the lookup key for a fully-qualified class name.
func foldName(fqn string) string {
	return strings.ToLower(indexer.NormalizeName(fqn))
}
