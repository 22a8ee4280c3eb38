//go:build cgo

package php

import (
	"context"
	"fmt"
	"strings"

	"factgraph/internal/indexer"
	"factgraph/internal/spans"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/php"
)

// Parser extracts declarations and class references from PHP source.
// A Parser is not safe for concurrent use; create one per goroutine.
type Parser struct {
	parser *sitter.Parser
}

// NewParser creates a new tree-sitter backed PHP parser.
func NewParser() *Parser {
	p := sitter.NewParser()
	p.SetLanguage(php.GetLanguage())
	return &Parser{parser: p}
}

// ParseFile parses one file. file is the repo-relative name recorded in the
// extracted symbols and occurrences.
func (p *Parser) ParseFile(ctx context.Context, file string, src []byte) (*FileResult, error) {
	tree, err := p.parser.ParseCtx(ctx, nil, src)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	defer tree.Close()

	root := tree.RootNode()
	w := &walker{file: file, src: src, res: &FileResult{File: file, HasErrors: root.HasError()}}
	w.statements(root, newScope(""))
	if w.err != nil {
		return nil, w.err
	}
	return w.res, nil
}

type walker struct {
	file string
	src  []byte
	res  *FileResult
	err  error
}

func (w *walker) text(n *sitter.Node) string {
	return n.Content(w.src)
}

func (w *walker) span(n *sitter.Node) spans.Span {
	start, err := safecast.Conv[int](n.StartByte())
	if err != nil && w.err == nil {
		w.err = err
	}
	end, err := safecast.Conv[int](n.EndByte())
	if err != nil && w.err == nil {
		w.err = err
	}
	return spans.Span{Start: start, Length: end - start}
}

// statements walks a statement list. Unbraced namespace declarations switch
// the scope for the statements that follow them.
func (w *walker) statements(parent *sitter.Node, sc *scope) {
	for i := 0; i < int(parent.NamedChildCount()); i++ {
		child := parent.NamedChild(i)
		if child.Type() == "namespace_definition" {
			ns := ""
			if name := child.ChildByFieldName("name"); name != nil {
				ns = w.text(name)
			}
			if body := child.ChildByFieldName("body"); body != nil {
				w.statements(body, newScope(ns))
				continue
			}
			sc = newScope(ns)
			continue
		}
		w.node(child, sc)
	}
}

func (w *walker) node(n *sitter.Node, sc *scope) {
	switch n.Type() {
	case "namespace_use_declaration":
		w.useDeclaration(n, sc)
		return
	case "class_declaration":
		w.declaration(n, sc, indexer.KindClass)
	case "interface_declaration":
		w.declaration(n, sc, indexer.KindInterface)
	case "trait_declaration":
		w.declaration(n, sc, indexer.KindTrait)
	case "enum_declaration":
		w.declaration(n, sc, indexer.KindEnum)
	case "name", "qualified_name":
		if isClassReference(n) {
			w.reference(n, sc)
			return
		}
	}

	for i := 0; i < int(n.NamedChildCount()); i++ {
		w.node(n.NamedChild(i), sc)
	}
}

func (w *walker) declaration(n *sitter.Node, sc *scope, kind indexer.SymbolKind) {
	nameNode := n.ChildByFieldName("name")
	if nameNode == nil {
		return
	}
	fqn := sc.qualify(w.text(nameNode))
	sym := indexer.Symbol{
		Kind: kind,
		Name: fqn,
		File: w.file,
		Span: w.span(nameNode),
	}
	if kind == indexer.KindClass {
		sym.IsAbstract, sym.IsFinal = classModifiers(n, nameNode, w.src)
	}
	w.res.Declarations = append(w.res.Declarations, sym)
	w.res.Occurrences = append(w.res.Occurrences, indexer.Occurrence{
		File:          w.file,
		Span:          sym.Span,
		IsDeclaration: true,
		Ref:           fqn,
	})
}

// classModifiers inspects the tokens before the class name.
func classModifiers(n, nameNode *sitter.Node, src []byte) (isAbstract, isFinal bool) {
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.StartByte() >= nameNode.StartByte() {
			break
		}
		switch child.Type() {
		case "abstract_modifier":
			isAbstract = true
		case "final_modifier":
			isFinal = true
		default:
			switch strings.ToLower(child.Content(src)) {
			case "abstract":
				isAbstract = true
			case "final":
				isFinal = true
			}
		}
	}
	return isAbstract, isFinal
}

func (w *walker) reference(n *sitter.Node, sc *scope) {
	fqn, ok := sc.resolveClass(w.text(n))
	if !ok {
		return
	}
	w.res.Occurrences = append(w.res.Occurrences, indexer.Occurrence{
		File: w.file,
		Span: w.span(n),
		Ref:  fqn,
	})
}

// useDeclaration records class imports. Function and constant imports are
// ignored.
func (w *walker) useDeclaration(n *sitter.Node, sc *scope) {
	prefix := ""
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		switch child.Type() {
		case "function", "const":
			return
		case "namespace_name", "qualified_name", "name":
			// group prefix: use App\{Foo, Bar}
			prefix = w.text(child)
		case "namespace_use_clause":
			w.useClause(child, "", sc)
		case "namespace_use_group":
			for j := 0; j < int(child.NamedChildCount()); j++ {
				w.useClause(child.NamedChild(j), prefix, sc)
			}
		}
	}
}

func (w *walker) useClause(n *sitter.Node, prefix string, sc *scope) {
	var target, alias string
	for i := 0; i < int(n.NamedChildCount()); i++ {
		child := n.NamedChild(i)
		switch child.Type() {
		case "namespace_aliasing_clause":
			if child.NamedChildCount() > 0 {
				alias = w.text(child.NamedChild(0))
			}
		case "name", "qualified_name", "namespace_name":
			if target == "" {
				target = w.text(child)
			} else if alias == "" {
				alias = w.text(child)
			}
		}
	}
	if a := n.ChildByFieldName("alias"); a != nil {
		alias = w.text(a)
	}
	if target == "" {
		return
	}
	if prefix != "" {
		target = strings.TrimSuffix(prefix, sep) + sep + target
	}
	sc.addAlias(target, alias)
}

// isClassReference reports whether a name node is used as a class name:
// a type, an extends/implements entry, a trait use, a new expression, the
// scope of a static access or the right side of instanceof.
func isClassReference(n *sitter.Node) bool {
	parent := n.Parent()
	if parent == nil {
		return false
	}
	switch parent.Type() {
	case "named_type", "base_clause", "class_interface_clause", "use_declaration",
		"object_creation_expression", "type_list":
		return true
	case "scoped_call_expression", "scoped_property_access_expression":
		scope := parent.ChildByFieldName("scope")
		return sameNode(scope, n)
	case "class_constant_access_expression":
		return parent.NamedChildCount() > 0 && sameNode(parent.NamedChild(0), n)
	case "binary_expression":
		op := parent.ChildByFieldName("operator")
		right := parent.ChildByFieldName("right")
		return op != nil && op.Type() == "instanceof" && sameNode(right, n)
	}
	return false
}

func sameNode(a, b *sitter.Node) bool {
	return a != nil && b != nil &&
		a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}
