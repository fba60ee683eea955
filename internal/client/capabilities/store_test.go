package capabilities

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"

	"github.com/cvkitdev/cvkit/internal/logging"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:"+t.Name()+"?mode=memory&cache=shared")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
`)
	require.NoError(t, err)
	return db
}

func TestPutCapability_OverwritesNotAppends(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := NewStore(ctx, db, testLogger())

	s.PutCapability(ctx, "r1", "e1")
	s.PutCapability(ctx, "r1", "e2")

	secret, ok := s.Capability("r1")
	require.True(t, ok)
	require.Equal(t, "e2", secret, "reissued secret must replace the old one")

	// Reload from disk: still exactly one entry with the second value.
	reloaded := NewStore(ctx, db, testLogger())
	secret, ok = reloaded.Capability("r1")
	require.True(t, ok)
	require.Equal(t, "e2", secret)
}

func TestCapability_AbsentResume(t *testing.T) {
	db := setupDB(t)
	s := NewStore(context.Background(), db, testLogger())

	_, ok := s.Capability("missing")
	require.False(t, ok)
}

func TestAddOwnedResume_CapAndOrdering(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := NewStore(ctx, db, testLogger())

	for i := 0; i <= MaxOwnedResumes; i++ {
		s.AddOwnedResume(ctx, fmt.Sprintf("r%d", i))
	}

	ids := s.OwnedResumes()
	require.Len(t, ids, MaxOwnedResumes)
	require.Equal(t, fmt.Sprintf("r%d", MaxOwnedResumes), ids[0], "newest entry must be first")
	require.Equal(t, "r1", ids[MaxOwnedResumes-1], "only the oldest entry is evicted")
	require.NotContains(t, ids, "r0")
}

func TestAddOwnedResume_Deduplicates(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := NewStore(ctx, db, testLogger())

	s.AddOwnedResume(ctx, "r1")
	s.AddOwnedResume(ctx, "r2")
	s.AddOwnedResume(ctx, "r1")

	require.Equal(t, []string{"r2", "r1"}, s.OwnedResumes())
}

func TestRemoveOwnedResume_DropsIndexAndSecret(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := NewStore(ctx, db, testLogger())

	s.PutCapability(ctx, "r1", "e1")
	s.AddOwnedResume(ctx, "r1")
	s.AddOwnedResume(ctx, "r2")

	s.RemoveOwnedResume(ctx, "r1")

	require.Equal(t, []string{"r2"}, s.OwnedResumes())
	_, ok := s.Capability("r1")
	require.False(t, ok, "deleting a resume must revoke its capability")
}

func TestStore_ReloadsPersistedState(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	s := NewStore(ctx, db, testLogger())
	s.PutCapability(ctx, "r1", "e1")
	s.AddOwnedResume(ctx, "r1")

	reloaded := NewStore(ctx, db, testLogger())
	require.Equal(t, []string{"r1"}, reloaded.OwnedResumes())
	secret, ok := reloaded.Capability("r1")
	require.True(t, ok)
	require.Equal(t, "e1", secret)
}

func TestStore_SurvivesStorageFailure(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()
	s := NewStore(ctx, db, testLogger())

	require.NoError(t, db.Close()) // durable writes will now fail

	s.PutCapability(ctx, "r1", "e1")
	s.AddOwnedResume(ctx, "r1")

	// In-memory state keeps working for the rest of the process lifetime.
	secret, ok := s.Capability("r1")
	require.True(t, ok)
	require.Equal(t, "e1", secret)
	require.Equal(t, []string{"r1"}, s.OwnedResumes())
}

func TestStore_ToleratesMalformedPersistedState(t *testing.T) {
	db := setupDB(t)
	ctx := context.Background()

	_, err := db.Exec(`INSERT INTO metadata(key,value) VALUES('edit_tokens', 'not-json')`)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO metadata(key,value) VALUES('resume_ids', '{"also":"wrong"}')`)
	require.NoError(t, err)

	s := NewStore(ctx, db, testLogger())
	require.Empty(t, s.OwnedResumes())
	_, ok := s.Capability("r1")
	require.False(t, ok)
}
