// Package spans encodes lists of absolute byte spans as compact delta lists.
//
// A bucket of positions that all point at the same target is sorted by start
// offset (ties broken by length) and each span is then written relative to the
// start of the previous one. Decoding is a running sum over the offsets.
package spans

import (
	"cmp"
	"slices"
)

// Span is an absolute byte range inside a source file.
type Span struct {
	Start  int `json:"start" yaml:"start" msgpack:"start"`
	Length int `json:"length" yaml:"length" msgpack:"length"`
}

// End returns the exclusive end offset of the span.
func (s Span) End() int {
	return s.Start + s.Length
}

// Delta is a span whose offset is relative to the start of the previous span
// in an encoded list.
type Delta struct {
	Offset int `json:"offset" msgpack:"offset"`
	Length int `json:"length" msgpack:"length"`
}

// Compare orders spans by start, then by length.
func Compare(a, b Span) int {
	if c := cmp.Compare(a.Start, b.Start); c != 0 {
		return c
	}
	return cmp.Compare(a.Length, b.Length)
}

// Sort returns a sorted copy of positions. The input is left untouched.
func Sort(positions []Span) []Span {
	sorted := slices.Clone(positions)
	slices.SortFunc(sorted, Compare)
	return sorted
}

// Encode sorts positions and delta-encodes them. An empty input yields an
// empty, non-nil slice.
func Encode(positions []Span) []Delta {
	sorted := Sort(positions)
	out := make([]Delta, 0, len(sorted))

	prev := 0
	for _, p := range sorted {
		out = append(out, Delta{Offset: p.Start - prev, Length: p.Length})
		prev = p.Start
	}
	return out
}

// Decode reverses Encode, returning absolute spans in encoded order.
func Decode(deltas []Delta) []Span {
	out := make([]Span, 0, len(deltas))

	start := 0
	for _, d := range deltas {
		start += d.Offset
		out = append(out, Span{Start: start, Length: d.Length})
	}
	return out
}
