package output

import (
	"fmt"
	"io"
	"slices"
	"text/tabwriter"

	"factgraph/internal/facts"
)

// BlockSummary is the fact count of one block.
type BlockSummary struct {
	Predicate string `json:"predicate"`
	Facts     int    `json:"facts"`
}

// Summary describes a set of blocks without their contents.
type Summary struct {
	// Schema is the "<name>.<version>" the blocks are named under.
	Schema string         `json:"schema,omitempty"`
	Blocks []BlockSummary `json:"blocks"`
	Facts  int            `json:"facts"`
	// Files lists every file that has a location or cross-reference fact.
	Files []string `json:"files"`
	// Uses is the total number of cross-reference spans.
	Uses int `json:"uses"`
}

// Summarize counts blocks, files and uses.
func Summarize(blocks []facts.Block) Summary {
	s := Summary{Blocks: make([]BlockSummary, 0, len(blocks)), Files: []string{}}
	if schema, ok := facts.SchemaOf(blocks); ok {
		s.Schema = schema.String()
	}
	files := make(map[string]struct{})

	for _, b := range blocks {
		s.Blocks = append(s.Blocks, BlockSummary{Predicate: b.Predicate, Facts: len(b.Facts)})
		s.Facts += len(b.Facts)
		for _, f := range b.Facts {
			switch key := f.Key.(type) {
			case facts.LocationKey:
				files[key.File] = struct{}{}
			case facts.FileXRefsKey:
				files[key.File] = struct{}{}
				for _, r := range key.Ranges {
					s.Uses += len(r.Ranges)
				}
			}
		}
	}

	for f := range files {
		s.Files = append(s.Files, f)
	}
	slices.Sort(s.Files)
	return s
}

// WriteTable prints the summary as an aligned table.
func (s Summary) WriteTable(w io.Writer) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if s.Schema != "" {
		fmt.Fprintf(tw, "schema\t%s\n", s.Schema)
	}
	fmt.Fprintln(tw, "PREDICATE\tFACTS")
	for _, b := range s.Blocks {
		fmt.Fprintf(tw, "%s\t%d\n", b.Predicate, b.Facts)
	}
	fmt.Fprintf(tw, "total\t%d\n", s.Facts)
	fmt.Fprintf(tw, "files\t%d\n", len(s.Files))
	fmt.Fprintf(tw, "uses\t%d\n", s.Uses)
	return tw.Flush()
}
