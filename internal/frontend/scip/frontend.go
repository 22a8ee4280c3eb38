// Package scip reads declarations and occurrences out of a SCIP index.
//
// Type symbols (descriptors ending in '#' under namespace descriptors) become
// indexed declarations; every other definition is passed through as
// KindOther so the indexer can count it. References resolve through the
// definitions found in the same index, so symbols defined only in external
// packages stay unresolved.
package scip

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"factgraph/internal/errors"
	"factgraph/internal/indexer"
	"factgraph/internal/logging"
	"factgraph/internal/paths"
	"factgraph/internal/spans"

	"fortio.org/safecast"
	lru "github.com/hashicorp/golang-lru/v2"
	scippb "github.com/sourcegraph/scip/bindings/go/scip"
)

// DefaultCacheSize bounds the parsed-identifier cache.
const DefaultCacheSize = 4096

// Options controls extraction.
type Options struct {
	// Root is where document text is read from when the index does not
	// embed it. Defaults to the index's project root.
	Root      string
	Logger    *logging.Logger
	CacheSize int
}

// Result is the output of Extract.
type Result struct {
	Batch    indexer.Batch
	Resolver *Resolver
	// SkippedDocuments counts documents whose text was unavailable or whose
	// path leaves the project root.
	SkippedDocuments int
	// MalformedSymbols counts occurrences dropped because their symbol
	// string does not parse.
	MalformedSymbols int
}

// Extract walks every document of idx in path order.
func Extract(idx *Index, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	root := opts.Root
	if root == "" {
		root = idx.ProjectRoot()
	}

	r, err := newResolver(idx.SymbolInfo(), opts.CacheSize)
	if err != nil {
		return nil, err
	}
	res := &Result{Resolver: r}

	for _, doc := range idx.Documents() {
		file := paths.NormalizePath(doc.GetRelativePath())
		text, err := documentText(doc, root)
		if err != nil {
			logger.Warn("skipping document without text", map[string]interface{}{
				"file":  file,
				"error": err,
			})
			res.SkippedDocuments++
			continue
		}

		lines := newLineIndex(text)
		enc := doc.GetPositionEncoding()
		for _, occ := range doc.GetOccurrences() {
			if occ.GetSymbol() == "" {
				continue
			}
			if _, ok := r.identifier(occ.GetSymbol()); !ok {
				res.MalformedSymbols++
				continue
			}
			span, err := rangeSpan(lines, occ.GetRange(), enc)
			if err != nil {
				return nil, errors.New(errors.InputInvalid,
					fmt.Sprintf("bad range %v for %s in %s", occ.GetRange(), occ.GetSymbol(), file), err)
			}

			isDef := occ.GetSymbolRoles()&int32(scippb.SymbolRole_Definition) != 0
			if isDef {
				if sym, ok := r.define(occ.GetSymbol(), file, span); ok {
					res.Batch.Declarations = append(res.Batch.Declarations, sym)
				}
			}
			res.Batch.Occurrences = append(res.Batch.Occurrences, indexer.Occurrence{
				File:          file,
				Span:          span,
				IsDeclaration: isDef,
				Ref:           occ.GetSymbol(),
			})
		}
	}

	logger.Debug("extracted SCIP index", map[string]interface{}{
		"tool":         idx.Tool(),
		"declarations": len(res.Batch.Declarations),
		"occurrences":  len(res.Batch.Occurrences),
		"skipped":      res.SkippedDocuments,
		"malformed":    res.MalformedSymbols,
	})
	return res, nil
}

// documentText returns the embedded text of doc, or reads it from under root.
// Paths that leave the root, lexically or through a symlink, are refused.
func documentText(doc *scippb.Document, root string) (string, error) {
	rel := doc.GetRelativePath()
	if !filepath.IsLocal(filepath.FromSlash(rel)) {
		return "", fmt.Errorf("document path %q is not inside the project root", rel)
	}
	if doc.GetText() != "" {
		return doc.GetText(), nil
	}
	if root == "" {
		return "", fmt.Errorf("document has no text and no project root is known")
	}
	root = filepath.Clean(root)
	path := paths.JoinRepoPath(root, rel)
	if !paths.IsWithinRepo(path, root) {
		return "", fmt.Errorf("document path %q resolves outside the project root", rel)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// rangeSpan converts a SCIP range ([line, startChar, endChar] or
// [startLine, startChar, endLine, endChar]) into a byte span.
func rangeSpan(lines *lineIndex, rng []int32, enc scippb.PositionEncoding) (spans.Span, error) {
	var startLine, startChar, endLine, endChar int32
	switch len(rng) {
	case 3:
		startLine, startChar, endLine, endChar = rng[0], rng[1], rng[0], rng[2]
	case 4:
		startLine, startChar, endLine, endChar = rng[0], rng[1], rng[2], rng[3]
	default:
		return spans.Span{}, fmt.Errorf("range has %d elements", len(rng))
	}

	sl, err := safecast.Conv[int](startLine)
	if err != nil {
		return spans.Span{}, err
	}
	sc, err := safecast.Conv[int](startChar)
	if err != nil {
		return spans.Span{}, err
	}
	el, err := safecast.Conv[int](endLine)
	if err != nil {
		return spans.Span{}, err
	}
	ec, err := safecast.Conv[int](endChar)
	if err != nil {
		return spans.Span{}, err
	}

	start, err := lines.offset(sl, sc, enc)
	if err != nil {
		return spans.Span{}, err
	}
	end, err := lines.offset(el, ec, enc)
	if err != nil {
		return spans.Span{}, err
	}
	if end < start {
		return spans.Span{}, fmt.Errorf("range ends before it starts")
	}
	return spans.Span{Start: start, Length: end - start}, nil
}

// Resolver resolves occurrences by SCIP symbol string against the
// definitions seen during extraction.
type Resolver struct {
	info   map[string]*scippb.SymbolInformation
	defs   map[string]indexer.Symbol
	parsed *lru.Cache[string, *Identifier]

	hits, misses int
}

func newResolver(info map[string]*scippb.SymbolInformation, size int) (*Resolver, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, *Identifier](size)
	if err != nil {
		return nil, errors.New(errors.InternalError, "failed to create identifier cache", err)
	}
	return &Resolver{
		info:   info,
		defs:   make(map[string]indexer.Symbol),
		parsed: cache,
	}, nil
}

// Resolve implements indexer.Resolver.
func (r *Resolver) Resolve(occ indexer.Occurrence) (indexer.Symbol, bool) {
	sym, ok := r.defs[occ.Ref]
	return sym, ok
}

// Definitions returns how many distinct symbols have a definition.
func (r *Resolver) Definitions() int {
	return len(r.defs)
}

// CacheStats returns the hit and miss counts of the parsed-symbol cache.
func (r *Resolver) CacheStats() (hits, misses int) {
	return r.hits, r.misses
}

// identifier parses raw through the cache. Every occurrence goes through
// here, so symbols referenced more than once are parsed once. Malformed
// symbols are cached as nil.
func (r *Resolver) identifier(raw string) (*Identifier, bool) {
	if id, ok := r.parsed.Get(raw); ok {
		r.hits++
		return id, id != nil
	}
	r.misses++
	id, err := ParseIdentifier(raw)
	if err != nil {
		id = nil
	}
	r.parsed.Add(raw, id)
	return id, id != nil
}

// define records the first definition of symbol and returns it as a
// declaration. Repeated definitions return false.
func (r *Resolver) define(symbol, file string, span spans.Span) (indexer.Symbol, bool) {
	if _, seen := r.defs[symbol]; seen {
		return indexer.Symbol{}, false
	}

	sym := indexer.Symbol{Kind: indexer.KindOther, File: file, Span: span}
	if id, ok := r.identifier(symbol); ok {
		if name, isType := TypeName(id); isType {
			info := r.info[symbol]
			sym.Name = name
			sym.Kind = kindOf(info)
			if sym.Kind == indexer.KindClass {
				sym.IsAbstract, sym.IsFinal = classModifiers(info)
			}
		} else {
			sym.Name = id.Descriptor
		}
	}
	r.defs[symbol] = sym
	return sym, true
}

// kindOf maps SCIP symbol kinds onto indexed kinds. Type descriptors without
// a kind are treated as classes.
func kindOf(info *scippb.SymbolInformation) indexer.SymbolKind {
	switch info.GetKind() {
	case scippb.SymbolInformation_Class, scippb.SymbolInformation_UnspecifiedKind:
		return indexer.KindClass
	case scippb.SymbolInformation_Interface:
		return indexer.KindInterface
	case scippb.SymbolInformation_Trait:
		return indexer.KindTrait
	case scippb.SymbolInformation_Enum:
		return indexer.KindEnum
	default:
		return indexer.KindOther
	}
}

// classModifiers reads abstract/final from the signature text
// ("final class Foo extends Bar").
func classModifiers(info *scippb.SymbolInformation) (isAbstract, isFinal bool) {
	sig := info.GetSignatureDocumentation().GetText()
	for _, word := range strings.Fields(sig) {
		switch strings.ToLower(word) {
		case "abstract":
			isAbstract = true
		case "final":
			isFinal = true
		case "class":
			return isAbstract, isFinal
		}
	}
	return isAbstract, isFinal
}
