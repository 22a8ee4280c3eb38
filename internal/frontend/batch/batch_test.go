package batch

import (
	"strings"
	"testing"

	"factgraph/internal/errors"
	"factgraph/internal/facts"
	"factgraph/internal/indexer"
	"factgraph/internal/spans"
	"factgraph/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode(t *testing.T) {
	doc := `
declarations:
  - kind: class
    name: App\Foo
    file: ./src/Foo.php
    span: {start: 27, length: 3}
    final: true
occurrences:
  - file: src/Bar.php
    span: {start: 5, length: 3}
    ref: \App\Foo
`
	f, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)

	b := f.Batch()
	require.Len(t, b.Declarations, 1)
	assert.Equal(t, indexer.Symbol{
		Kind:    indexer.KindClass,
		Name:    `App\Foo`,
		File:    "src/Foo.php",
		Span:    spans.Span{Start: 27, Length: 3},
		IsFinal: true,
	}, b.Declarations[0])

	require.Len(t, b.Occurrences, 1)
	sym, ok := f.Resolver().Resolve(b.Occurrences[0])
	require.True(t, ok)
	assert.Equal(t, `App\Foo`, sym.Name)

	_, ok = f.Resolver().Resolve(indexer.Occurrence{Ref: "Nope"})
	assert.False(t, ok)
}

func TestDecodeEmpty(t *testing.T) {
	f, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	b := f.Batch()
	assert.Empty(t, b.Declarations)
	assert.Empty(t, b.Occurrences)
}

func TestDecodeRejectsInvalid(t *testing.T) {
	tests := map[string]string{
		"unknown field":  "declarations:\n  - kind: class\n    colour: red\n",
		"missing file":   "occurrences:\n  - span: {start: 1, length: 2}\n    ref: Foo\n",
		"negative span":  "occurrences:\n  - file: a.php\n    span: {start: -1, length: 2}\n    ref: Foo\n",
		"symbol no ref":  "symbols:\n  - kind: class\n    name: Foo\n    file: a.php\n",
		"not a document": "declarations: 12\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.InputInvalid), err.Error())
		})
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(t.TempDir() + "/missing.yaml")
	assert.True(t, errors.IsCode(err, errors.IndexMissing))
}

func TestSymbolsTableOverridesDeclarations(t *testing.T) {
	doc := `
declarations:
  - kind: class
    name: Foo
    file: a.php
    span: {start: 0, length: 3}
symbols:
  - ref: Foo
    kind: trait
    name: Other\Foo
    file: b.php
    span: {start: 9, length: 3}
`
	f, err := Decode(strings.NewReader(doc))
	require.NoError(t, err)
	sym, ok := f.Resolver().Resolve(indexer.Occurrence{Ref: "Foo"})
	require.True(t, ok)
	assert.Equal(t, indexer.KindTrait, sym.Kind)
	assert.Equal(t, `Other\Foo`, sym.Name)
}

func TestGoldenBatch(t *testing.T) {
	fixture := testutil.LoadFixture(t, "batch")

	f, err := Load(fixture.Path("batch.yaml"))
	require.NoError(t, err)

	res, err := indexer.Build(f.Batch(), f.Resolver(), facts.DefaultSchema, facts.WithBaseID(1))
	require.NoError(t, err)
	require.NoError(t, facts.VerifyOrder(res.Blocks))

	assert.Equal(t, indexer.Stats{
		Declarations:           2,
		SkippedDeclarations:    1,
		Recorded:               4,
		Unresolved:             1,
		OutOfScope:             1,
		DeclarationOccurrences: 1,
		Facts:                  10,
	}, res.Stats)

	testutil.CompareGolden(t, fixture, "blocks", res.Blocks)
}
