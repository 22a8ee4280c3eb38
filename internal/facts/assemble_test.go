package facts

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"factgraph/internal/errors"
	"factgraph/internal/spans"
)

func TestAssembleEmptyStore(t *testing.T) {
	blocks := Assemble(NewStore(), DefaultSchema)

	require.Len(t, blocks, len(AssemblyOrder))
	for i, b := range blocks {
		assert.Equal(t, AssemblyOrder[i], b.Kind)
		assert.Equal(t, DefaultSchema.QualifiedName(AssemblyOrder[i]), b.Predicate)
		assert.NotNil(t, b.Facts)
		assert.Empty(t, b.Facts)
	}

	data, err := json.Marshal(blocks[0])
	require.NoError(t, err)
	assert.JSONEq(t, `{"predicate":"hack.InterfaceDeclaration.6","facts":[]}`, string(data))
}

func TestAssemblyOrderCoversEveryPredicate(t *testing.T) {
	seen := make(map[Predicate]bool)
	for _, p := range AssemblyOrder {
		assert.False(t, seen[p], "duplicate %s", p)
		seen[p] = true
	}
	for p := ClassDeclaration; p <= FileXRefs; p++ {
		assert.True(t, seen[p], "missing %s", p)
	}
}

func buildSample(t *testing.T) *Store {
	t.Helper()
	s := NewStore()

	foo, err := s.Intern(ClassDeclaration, DeclarationKey{Name: "Foo"})
	require.NoError(t, err)
	ref := DeclarationRef{ID: foo}

	_, err = s.Intern(ClassDefinition, ClassDefinitionKey{Declaration: ref})
	require.NoError(t, err)
	_, err = s.Intern(DeclarationLocation, LocationKey{Declaration: ref, File: "f1", Span: spans.Span{Start: 10, Length: 20}})
	require.NoError(t, err)
	_, err = s.Intern(FileXRefs, FileXRefsKey{
		File:   "f2",
		Ranges: []TargetRanges{{Target: ref, Ranges: []spans.Delta{{Offset: 5, Length: 7}}}},
	})
	require.NoError(t, err)
	return s
}

func TestAssembleSatisfiesReferenceOrder(t *testing.T) {
	blocks := Assemble(buildSample(t), DefaultSchema)
	require.NoError(t, VerifyOrder(blocks))

	counts := Counts(blocks)
	assert.Equal(t, 1, counts["hack.ClassDeclaration.6"])
	assert.Equal(t, 1, counts["hack.ClassDefinition.6"])
	assert.Equal(t, 1, counts["hack.DeclarationLocation.6"])
	assert.Equal(t, 1, counts["hack.FileXRefs.6"])
	assert.Equal(t, 0, counts["hack.EnumDeclaration.6"])
}

func TestVerifyOrderRejectsForwardReference(t *testing.T) {
	blocks := []Block{
		{
			Predicate: "hack.ClassDefinition.6",
			Facts:     []BlockFact{{ID: 2, Key: ClassDefinitionKey{Declaration: DeclarationRef{ID: 1}}}},
		},
		{
			Predicate: "hack.ClassDeclaration.6",
			Facts:     []BlockFact{{ID: 1, Key: DeclarationKey{Name: "Foo"}}},
		},
	}

	err := VerifyOrder(blocks)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.OrderViolation))
}

func TestVerifyOrderRejectsSameBlockReference(t *testing.T) {
	blocks := []Block{
		{
			Predicate: "hack.DeclarationLocation.6",
			Facts: []BlockFact{
				{ID: 1, Key: LocationKey{Declaration: DeclarationRef{ID: 2}}},
				{ID: 2, Key: LocationKey{Declaration: DeclarationRef{ID: 1}}},
			},
		},
	}

	assert.True(t, errors.IsCode(VerifyOrder(blocks), errors.OrderViolation))
}

func TestDecodeBlocksRoundTrip(t *testing.T) {
	blocks := Assemble(buildSample(t), DefaultSchema)

	data, err := json.Marshal(blocks)
	require.NoError(t, err)

	decoded, err := DecodeBlocks(data)
	require.NoError(t, err)

	if diff := cmp.Diff(blocks, decoded); diff != "" {
		t.Errorf("DecodeBlocks() mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, VerifyOrder(decoded))
}

func TestDecodeBlocksUnknownPredicate(t *testing.T) {
	_, err := DecodeBlocks([]byte(`[{"predicate":"hack.FunctionDeclaration.6","facts":[]}]`))
	assert.True(t, errors.IsCode(err, errors.InputInvalid))
}

func TestDecodeBlocksKeepsSchema(t *testing.T) {
	schema := Schema{Name: "foo", Version: 9}
	data, err := json.Marshal(Assemble(buildSample(t), schema))
	require.NoError(t, err)

	decoded, err := DecodeBlocks(data)
	require.NoError(t, err)

	got, ok := SchemaOf(decoded)
	require.True(t, ok)
	assert.Equal(t, schema, got)
	assert.NoError(t, CheckSchema(decoded, schema))
	assert.True(t, errors.IsCode(CheckSchema(decoded, DefaultSchema), errors.InputInvalid))
}

func TestDecodeBlocksRejectsMixedSchemas(t *testing.T) {
	_, err := DecodeBlocks([]byte(`[
		{"predicate":"hack.InterfaceDeclaration.6","facts":[]},
		{"predicate":"foo.TraitDeclaration.9","facts":[]}
	]`))
	assert.True(t, errors.IsCode(err, errors.InputInvalid))
}

func TestParseQualifiedName(t *testing.T) {
	tests := []struct {
		in     string
		schema Schema
		pred   Predicate
	}{
		{"hack.ClassDeclaration.6", Schema{Name: "hack", Version: 6}, ClassDeclaration},
		{"my.ns.FileXRefs.2", Schema{Name: "my.ns", Version: 2}, FileXRefs},
		{"EnumDefinition.3", Schema{Version: 3}, EnumDefinition},
		{"TraitDeclaration", Schema{}, TraitDeclaration},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			schema, p, err := ParseQualifiedName(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.schema, schema)
			assert.Equal(t, tt.pred, p)
		})
	}

	_, _, err := ParseQualifiedName("hack.Nope.6")
	assert.True(t, errors.IsCode(err, errors.InputInvalid))
}

func TestSchemaOfEmpty(t *testing.T) {
	_, ok := SchemaOf(nil)
	assert.False(t, ok)
}

func TestDecodeXRefs(t *testing.T) {
	key := FileXRefsKey{
		File: "f2",
		Ranges: []TargetRanges{
			{Target: DeclarationRef{ID: 7}, Ranges: spans.Encode([]spans.Span{{Start: 130, Length: 6}, {Start: 100, Length: 4}})},
		},
	}

	got := DecodeXRefs(key)
	assert.Equal(t, map[ID][]spans.Span{7: {{Start: 100, Length: 4}, {Start: 130, Length: 6}}}, got)
	assert.Equal(t, []DeclarationRef{{ID: 7}}, key.Refs())
}

func TestSchemaQualifiedName(t *testing.T) {
	assert.Equal(t, "hack.FileXRefs.6", DefaultSchema.QualifiedName(FileXRefs))
	assert.Equal(t, "ClassDeclaration.3", Schema{Version: 3}.QualifiedName(ClassDeclaration))
	assert.Equal(t, "Predicate(42)", Predicate(42).String())

	p, ok := ParsePredicate("TraitDefinition")
	require.True(t, ok)
	assert.Equal(t, TraitDefinition, p)
}
