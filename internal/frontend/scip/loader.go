package scip

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"factgraph/internal/errors"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
	"google.golang.org/protobuf/proto"
)

// Index is a loaded SCIP index.
type Index struct {
	// Path is where the index was read from, empty for in-memory indexes
	Path string

	raw *scippb.Index
}

// Load reads and parses a SCIP index from path.
func Load(path string) (*Index, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, errors.New(errors.IndexMissing, fmt.Sprintf("SCIP index not found at %s", path), err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("failed to read SCIP index from %s", path), err)
	}

	var index scippb.Index
	if err := proto.Unmarshal(data, &index); err != nil {
		e := errors.New(errors.SourceParse, fmt.Sprintf("failed to parse SCIP index from %s", path), err)
		e.SuggestedFixes = append(e.SuggestedFixes, errors.FixAction{
			Type:        errors.RunCommand,
			Command:     "scip print --index=" + path,
			Safe:        true,
			Description: "Verify SCIP index is valid",
		})
		return nil, e
	}

	return &Index{Path: path, raw: &index}, nil
}

// FromProto wraps an already decoded index.
func FromProto(index *scippb.Index) *Index {
	return &Index{raw: index}
}

// Tool returns "name version" of the indexer that produced the index.
func (i *Index) Tool() string {
	info := i.raw.GetMetadata().GetToolInfo()
	if info == nil {
		return ""
	}
	return strings.TrimSpace(info.GetName() + " " + info.GetVersion())
}

// ProjectRoot returns the project root recorded in the metadata as a local
// path, or "" when it is not a file:// URI.
func (i *Index) ProjectRoot() string {
	root := i.raw.GetMetadata().GetProjectRoot()
	if !strings.HasPrefix(root, "file://") {
		return ""
	}
	return filepath.FromSlash(strings.TrimPrefix(root, "file://"))
}

// Documents returns the documents ordered by relative path.
func (i *Index) Documents() []*scippb.Document {
	docs := slices.Clone(i.raw.GetDocuments())
	slices.SortStableFunc(docs, func(a, b *scippb.Document) int {
		return strings.Compare(a.GetRelativePath(), b.GetRelativePath())
	})
	return docs
}

// SymbolInfo collects symbol information from every document plus the
// external symbols. The first entry for a symbol wins.
func (i *Index) SymbolInfo() map[string]*scippb.SymbolInformation {
	out := make(map[string]*scippb.SymbolInformation)
	add := func(infos []*scippb.SymbolInformation) {
		for _, info := range infos {
			if _, ok := out[info.GetSymbol()]; !ok {
				out[info.GetSymbol()] = info
			}
		}
	}
	for _, doc := range i.raw.GetDocuments() {
		add(doc.GetSymbols())
	}
	add(i.raw.GetExternalSymbols())
	return out
}
