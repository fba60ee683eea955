package metadata

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func setupDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", "file:metadata_tests?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE IF NOT EXISTS metadata (
  key   TEXT PRIMARY KEY,
  value BLOB NOT NULL
);
DELETE FROM metadata;
`)
	require.NoError(t, err)
	return db
}

func TestSQLiteRepository_GetAbsentKey(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))

	v, err := repo.Get(context.Background(), "missing")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSQLiteRepository_SetOverwrites(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "token", []byte("t1")))
	require.NoError(t, repo.Set(ctx, "token", []byte("t2")))

	v, err := repo.Get(ctx, "token")
	require.NoError(t, err)
	require.Equal(t, []byte("t2"), v)
}

func TestSQLiteRepository_DeleteIsIdempotent(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "token", []byte("t1")))
	require.NoError(t, repo.Delete(ctx, "token"))
	require.NoError(t, repo.Delete(ctx, "token"))

	v, err := repo.Get(ctx, "token")
	require.NoError(t, err)
	require.Nil(t, v)
}

func TestSQLiteRepository_Clear(t *testing.T) {
	repo := NewSQLiteRepository(setupDB(t))
	ctx := context.Background()

	require.NoError(t, repo.Set(ctx, "a", []byte("1")))
	require.NoError(t, repo.Set(ctx, "b", []byte("2")))
	require.NoError(t, repo.Clear(ctx))

	for _, k := range []string{"a", "b"} {
		v, err := repo.Get(ctx, k)
		require.NoError(t, err)
		require.Nil(t, v)
	}
}
