package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stevemurr/shelver/store"
)

func TestSqliteUpsertKeepsOneRow(t *testing.T) {
	db := openSqlite(t)
	cfg := store.SQLConfig{Name: "documents", DB: db}
	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, cfg))

	s, err := store.New(cfg)
	require.NoError(t, err)

	doc := s.Document("k")
	require.NoError(t, doc.Set(ctx, store.Object{"v": 1}))
	require.NoError(t, doc.Set(ctx, store.Object{"v": 2}))

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM documents WHERE path = ?", "k").Scan(&count))
	assert.Equal(t, 1, count)

	var data string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT data FROM documents WHERE path = ?", "k").Scan(&data))
	assert.Equal(t, `{"v":2}`, data)
}

func TestSqliteRowsKeyedByBarePath(t *testing.T) {
	db := openSqlite(t)
	cfg := store.SQLConfig{Name: "documents", DB: db}
	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, cfg))
	_, err := db.ExecContext(ctx, "INSERT INTO documents (path, data) VALUES (?, ?)", "legacy/1.json", `{"v":1}`)
	require.NoError(t, err)

	s, err := store.New(cfg)
	require.NoError(t, err)
	require.NoError(t, s.Document("user/42").Set(ctx, store.Object{"age": 5}))

	var path string
	require.NoError(t, db.QueryRowContext(ctx, "SELECT path FROM documents WHERE data = ?", `{"age":5}`).Scan(&path))
	assert.Equal(t, "user/42", path)

	_, err = s.Document("legacy/1").Get(ctx)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestSqliteEnsureTableIsIdempotent(t *testing.T) {
	db := openSqlite(t)
	cfg := store.SQLConfig{Name: "documents", DB: db}
	require.NoError(t, store.EnsureTable(context.Background(), cfg))
	require.NoError(t, store.EnsureTable(context.Background(), cfg))
}

func TestSqliteDeleteMissingIsNoop(t *testing.T) {
	db := openSqlite(t)
	cfg := store.SQLConfig{Name: "documents", DB: db}
	require.NoError(t, store.EnsureTable(context.Background(), cfg))
	s, err := store.New(cfg)
	require.NoError(t, err)

	assert.NoError(t, s.Document("never/written").Delete(context.Background()))
}

func TestSqliteNullData(t *testing.T) {
	db := openSqlite(t)
	cfg := store.SQLConfig{Name: "documents", DB: db}
	ctx := context.Background()
	require.NoError(t, store.EnsureTable(ctx, cfg))
	_, err := db.ExecContext(ctx, "INSERT INTO documents (path, data) VALUES (?, NULL)", "null/doc")
	require.NoError(t, err)

	s, err := store.New(cfg)
	require.NoError(t, err)
	_, err = s.Document("null/doc").Get(ctx)
	assert.ErrorIs(t, err, store.ErrNoData)
}

func TestSqliteMissingTable(t *testing.T) {
	s, err := store.New(store.SQLConfig{Name: "absent", DB: openSqlite(t)})
	require.NoError(t, err)

	err = s.Document("x").Set(context.Background(), store.Object{})
	require.Error(t, err)
	assert.NotErrorIs(t, err, store.ErrNotFound)
}

func TestSQLInvalidTableName(t *testing.T) {
	db := openSqlite(t)
	for _, name := range []string{"", "1abc", "docs; DROP TABLE x", "my-table"} {
		t.Run(name, func(t *testing.T) {
			_, err := store.New(store.SQLConfig{Name: name, DB: db})
			assert.ErrorIs(t, err, store.ErrInvalidTable)
			assert.ErrorIs(t, store.EnsureTable(context.Background(), store.SQLConfig{Name: name, DB: db}), store.ErrInvalidTable)
		})
	}
}

func TestSQLUnknownDialect(t *testing.T) {
	_, err := store.New(store.SQLConfig{Name: "documents", DB: openSqlite(t), Dialect: "oracle"})
	assert.Error(t, err)
}
