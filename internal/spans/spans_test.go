package spans

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncode(t *testing.T) {
	tests := []struct {
		name string
		in   []Span
		want []Delta
	}{
		{
			name: "empty",
			in:   nil,
			want: []Delta{},
		},
		{
			name: "single",
			in:   []Span{{Start: 5, Length: 7}},
			want: []Delta{{Offset: 5, Length: 7}},
		},
		{
			name: "unsorted pair",
			in:   []Span{{Start: 130, Length: 6}, {Start: 100, Length: 4}},
			want: []Delta{{Offset: 100, Length: 4}, {Offset: 30, Length: 6}},
		},
		{
			name: "equal starts ordered by length",
			in:   []Span{{Start: 10, Length: 9}, {Start: 10, Length: 3}},
			want: []Delta{{Offset: 10, Length: 3}, {Offset: 0, Length: 9}},
		},
		{
			name: "duplicates are kept",
			in:   []Span{{Start: 4, Length: 2}, {Start: 4, Length: 2}},
			want: []Delta{{Offset: 4, Length: 2}, {Offset: 0, Length: 2}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Encode(tt.in)
			require.NotNil(t, got)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Encode() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEncodeDoesNotMutateInput(t *testing.T) {
	in := []Span{{Start: 30, Length: 1}, {Start: 10, Length: 1}}
	Encode(in)
	assert.Equal(t, []Span{{Start: 30, Length: 1}, {Start: 10, Length: 1}}, in)
}

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 200; i++ {
		n := rng.Intn(50)
		in := make([]Span, n)
		for j := range in {
			in[j] = Span{Start: rng.Intn(10000), Length: rng.Intn(64)}
		}

		got := Decode(Encode(in))
		if diff := cmp.Diff(Sort(in), got); diff != "" {
			t.Fatalf("round trip %d mismatch (-want +got):\n%s", i, diff)
		}
	}
}

func TestDecodeEmpty(t *testing.T) {
	got := Decode(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestSpanEnd(t *testing.T) {
	assert.Equal(t, 30, Span{Start: 10, Length: 20}.End())
}
