package scip

import (
	"fmt"
	"unicode/utf16"
	"unicode/utf8"

	scippb "github.com/sourcegraph/scip/bindings/go/scip"
)

// lineIndex converts SCIP (line, character) positions into byte offsets.
type lineIndex struct {
	text   string
	starts []int
}

func newLineIndex(text string) *lineIndex {
	starts := []int{0}
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			starts = append(starts, i+1)
		}
	}
	return &lineIndex{text: text, starts: starts}
}

// offset returns the byte offset of character col on line. Columns are
// counted in the unit named by enc; unspecified means UTF-8 bytes.
func (li *lineIndex) offset(line, col int, enc scippb.PositionEncoding) (int, error) {
	if line < 0 || line >= len(li.starts) {
		return 0, fmt.Errorf("line %d out of range (have %d)", line, len(li.starts))
	}
	if col < 0 {
		return 0, fmt.Errorf("negative column %d", col)
	}
	start := li.starts[line]
	end := len(li.text)
	if line+1 < len(li.starts) {
		end = li.starts[line+1]
	}

	switch enc {
	case scippb.PositionEncoding_UTF16CodeUnitOffsetFromLineStart,
		scippb.PositionEncoding_UTF32CodeUnitOffsetFromLineStart:
		units := 0
		pos := start
		for pos < end && units < col {
			r, size := utf8.DecodeRuneInString(li.text[pos:end])
			if enc == scippb.PositionEncoding_UTF16CodeUnitOffsetFromLineStart {
				units += utf16.RuneLen(r)
			} else {
				units++
			}
			pos += size
		}
		if units < col {
			return 0, fmt.Errorf("column %d past end of line %d", col, line)
		}
		return pos, nil
	default:
		if start+col > end {
			return 0, fmt.Errorf("column %d past end of line %d", col, line)
		}
		return start + col, nil
	}
}
