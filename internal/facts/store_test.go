package facts

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"factgraph/internal/errors"
	"factgraph/internal/spans"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestInternIsIdempotent(t *testing.T) {
	s := NewStore()

	var ids []ID
	for i := 0; i < 5; i++ {
		id, err := s.Intern(ClassDeclaration, DeclarationKey{Name: "Foo"})
		require.NoError(t, err)
		ids = append(ids, id)
	}

	for _, id := range ids {
		assert.Equal(t, ids[0], id)
	}
	assert.Equal(t, 1, s.Len())
	assert.Len(t, s.Facts(ClassDeclaration), 1)
}

func TestIDsAreMonotonicFromBase(t *testing.T) {
	s := NewStore(WithBaseID(1000))

	names := []string{"A", "B", "A", "C", "B", "D"}
	var got []ID
	for _, n := range names {
		id, err := s.Intern(InterfaceDeclaration, DeclarationKey{Name: n})
		require.NoError(t, err)
		got = append(got, id)
	}

	assert.Equal(t, []ID{1000, 1001, 1000, 1002, 1001, 1003}, got)
	assert.Equal(t, ID(1004), s.NextID())
	assert.Equal(t, ID(1000), s.BaseID())
}

func TestIDsAreSharedAcrossPredicates(t *testing.T) {
	s := NewStore()

	decl, err := s.Intern(ClassDeclaration, DeclarationKey{Name: "Foo"})
	require.NoError(t, err)
	def, err := s.Intern(ClassDefinition, ClassDefinitionKey{Declaration: DeclarationRef{ID: decl}})
	require.NoError(t, err)
	loc, err := s.Intern(DeclarationLocation, LocationKey{
		Declaration: DeclarationRef{ID: decl},
		File:        "f1",
		Span:        spans.Span{Start: 10, Length: 20},
	})
	require.NoError(t, err)

	assert.Equal(t, DefaultBaseID, decl)
	assert.Equal(t, decl+1, def)
	assert.Equal(t, decl+2, loc)
}

func TestSameContentDifferentPredicate(t *testing.T) {
	s := NewStore()

	classID, err := s.Intern(ClassDeclaration, DeclarationKey{Name: "Foo"})
	require.NoError(t, err)
	ifaceID, err := s.Intern(InterfaceDeclaration, DeclarationKey{Name: "Foo"})
	require.NoError(t, err)

	assert.NotEqual(t, classID, ifaceID)
	assert.Equal(t, 1, s.Count(ClassDeclaration))
	assert.Equal(t, 1, s.Count(InterfaceDeclaration))
}

func TestDistinctClassFlagsAreDistinctFacts(t *testing.T) {
	s := NewStore()
	ref := DeclarationRef{ID: 42}

	a, err := s.Intern(ClassDefinition, ClassDefinitionKey{Declaration: ref})
	require.NoError(t, err)
	b, err := s.Intern(ClassDefinition, ClassDefinitionKey{Declaration: ref, IsFinal: true})
	require.NoError(t, err)

	assert.NotEqual(t, a, b)
	assert.Equal(t, 2, s.Count(ClassDefinition))
}

func TestInternRejectsMismatchedContent(t *testing.T) {
	s := NewStore()

	_, err := s.Intern(ClassDefinition, DeclarationKey{Name: "Foo"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ContractViolation))

	_, err = s.Intern(Predicate(99), DeclarationKey{Name: "Foo"})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ContractViolation))

	assert.Zero(t, s.Len())
	assert.Equal(t, s.BaseID(), s.NextID())
}

func TestLookup(t *testing.T) {
	s := NewStore()

	id, err := s.Intern(TraitDeclaration, DeclarationKey{Name: "T"})
	require.NoError(t, err)

	f, ok := s.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, TraitDeclaration, f.Predicate)
	assert.Equal(t, DeclarationKey{Name: "T"}, f.Key)

	_, ok = s.Lookup(id + 1)
	assert.False(t, ok)
}

func TestInternCopiesSliceContent(t *testing.T) {
	s := NewStore()

	deltas := spans.Encode([]spans.Span{{Start: 100, Length: 4}, {Start: 130, Length: 6}})
	key := FileXRefsKey{
		File:   "f2",
		Ranges: []TargetRanges{{Target: DeclarationRef{ID: 1}, Ranges: deltas}},
	}
	id, err := s.Intern(FileXRefs, key)
	require.NoError(t, err)

	key.Ranges[0].Target = DeclarationRef{ID: 99}
	deltas[0] = spans.Delta{Offset: 1, Length: 1}

	want := FileXRefsKey{
		File: "f2",
		Ranges: []TargetRanges{{
			Target: DeclarationRef{ID: 1},
			Ranges: []spans.Delta{{Offset: 100, Length: 4}, {Offset: 30, Length: 6}},
		}},
	}
	f, ok := s.Lookup(id)
	require.True(t, ok)
	assert.Equal(t, want, f.Key)

	// Returned facts are copies too.
	got := s.Facts(FileXRefs)[0].Key.(FileXRefsKey)
	got.Ranges[0].Ranges[0].Length = 0
	f, _ = s.Lookup(id)
	assert.Equal(t, want, f.Key)

	// The original content still dedups to the stored fact.
	again, err := s.Intern(FileXRefs, want)
	require.NoError(t, err)
	assert.Equal(t, id, again)
}

func TestConcurrentInternAllocatesOneID(t *testing.T) {
	s := NewStore()

	const workers = 16
	results := make([][]ID, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				id, err := s.Intern(EnumDeclaration, DeclarationKey{Name: string(rune('a' + i%10))})
				if err != nil {
					t.Error(err)
					return
				}
				results[w] = append(results[w], id)
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, 10, s.Len())
	for w := 1; w < workers; w++ {
		assert.Equal(t, results[0], results[w])
	}
}
