package storage

import (
	"context"
	"encoding/json"
	"path/filepath"
	"testing"
	"time"

	"factgraph/internal/errors"
	"factgraph/internal/facts"
	"factgraph/internal/spans"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), ".factgraph", "facts.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db
}

func sampleBlocks(t *testing.T) []facts.Block {
	t.Helper()
	s := facts.NewStore()
	decl, err := s.Intern(facts.TraitDeclaration, facts.DeclarationKey{Name: `App\Loggable`})
	require.NoError(t, err)
	ref := facts.DeclarationRef{ID: decl}
	_, err = s.Intern(facts.TraitDefinition, facts.DefinitionKey{Declaration: ref})
	require.NoError(t, err)
	_, err = s.Intern(facts.DeclarationLocation, facts.LocationKey{Declaration: ref, File: "a.php", Span: spans.Span{Start: 6, Length: 8}})
	require.NoError(t, err)
	_, err = s.Intern(facts.FileXRefs, facts.FileXRefsKey{File: "b.php", Ranges: []facts.TargetRanges{{
		Target: ref,
		Ranges: []spans.Delta{{Offset: 40, Length: 8}},
	}}})
	require.NoError(t, err)
	return facts.Assemble(s, facts.DefaultSchema)
}

func TestOpenCreatesSchema(t *testing.T) {
	db := setupTestDB(t)

	version, err := db.getSchemaVersion()
	require.NoError(t, err)
	assert.Equal(t, currentSchemaVersion, version)

	for _, table := range []string{"runs", "blocks", "facts"} {
		var name string
		err := db.conn.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		require.NoError(t, err, table)
	}
}

func TestReopenExistingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "facts.db")
	db, err := Open(path, nil)
	require.NoError(t, err)
	_, err = db.SaveRun(context.Background(), Run{Root: "/repo", Frontend: "php"}, sampleBlocks(t))
	require.NoError(t, err)
	require.NoError(t, db.Close())

	db, err = Open(path, nil)
	require.NoError(t, err)
	defer db.Close()
	runs, err := db.ListRuns(context.Background())
	require.NoError(t, err)
	assert.Len(t, runs, 1)
}

func TestSaveAndLoadRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	blocks := sampleBlocks(t)

	started := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	run, err := db.SaveRun(ctx, Run{
		Root:          "/repo",
		Frontend:      "php",
		SchemaName:    "hack",
		SchemaVersion: 6,
		StartedAt:     started,
		Stats:         json.RawMessage(`{"declarations":1}`),
	}, blocks)
	require.NoError(t, err)

	_, err = uuid.Parse(run.ID)
	require.NoError(t, err, "run ids are UUIDs")
	assert.Equal(t, 4, run.FactCount)

	got, err := db.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "/repo", got.Root)
	assert.True(t, started.Equal(got.StartedAt))
	assert.JSONEq(t, `{"declarations":1}`, string(got.Stats))

	loaded, err := db.LoadBlocks(ctx, run.ID)
	require.NoError(t, err)
	if diff := cmp.Diff(blocks, loaded); diff != "" {
		t.Errorf("blocks mismatch (-want +got):\n%s", diff)
	}
	require.NoError(t, facts.VerifyOrder(loaded))
}

func TestGetRunLatest(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	first, err := db.SaveRun(ctx, Run{Root: "/a", FinishedAt: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)
	second, err := db.SaveRun(ctx, Run{Root: "/b", FinishedAt: time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)}, nil)
	require.NoError(t, err)

	latest, err := db.GetRun(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, second.ID, latest.ID)

	runs, err := db.ListRuns(ctx)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	assert.Equal(t, []string{second.ID, first.ID}, []string{runs[0].ID, runs[1].ID})

	blocks, err := db.LoadBlocks(ctx, first.ID)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestGetRunMissing(t *testing.T) {
	db := setupTestDB(t)
	_, err := db.GetRun(context.Background(), "nope")
	assert.True(t, errors.IsCode(err, errors.IndexMissing))

	_, err = db.GetRun(context.Background(), "")
	assert.True(t, errors.IsCode(err, errors.IndexMissing))
}

func TestDeleteRun(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	run, err := db.SaveRun(ctx, Run{Root: "/repo"}, sampleBlocks(t))
	require.NoError(t, err)
	require.NoError(t, db.DeleteRun(ctx, run.ID))

	var n int
	require.NoError(t, db.conn.QueryRow("SELECT COUNT(*) FROM facts").Scan(&n))
	assert.Zero(t, n)

	err = db.DeleteRun(ctx, run.ID)
	assert.True(t, errors.IsCode(err, errors.IndexMissing))
}

func TestSaveRunDuplicateIDFails(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	run, err := db.SaveRun(ctx, Run{Root: "/repo"}, sampleBlocks(t))
	require.NoError(t, err)
	_, err = db.SaveRun(ctx, Run{ID: run.ID, Root: "/repo"}, sampleBlocks(t))
	assert.True(t, errors.IsCode(err, errors.SinkFailed))
}
