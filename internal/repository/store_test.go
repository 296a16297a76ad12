package repository

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]CollectionStore {
	t.Helper()
	stores := map[string]CollectionStore{"memory": NewMemoryStore()}

	fileStore, err := NewFileStore(filepath.Join(t.TempDir(), "data"))
	require.NoError(t, err)
	stores["file"] = fileStore

	sqliteStore, err := OpenSQLite(filepath.Join(t.TempDir(), "db", "encounters.db"))
	require.NoError(t, err)
	stores["sqlite"] = sqliteStore

	if dsn := os.Getenv("ENCOUNTER_TEST_POSTGRES_DSN"); dsn != "" {
		pool, err := pgxpool.New(context.Background(), dsn)
		require.NoError(t, err)
		pgStore, err := NewPostgresStore(context.Background(), &DB{Pool: pool})
		require.NoError(t, err)
		stores["postgres"] = pgStore
	}

	t.Cleanup(func() {
		for _, s := range stores {
			_ = s.Close()
		}
	})
	return stores
}

func TestCollectionStoreContract(t *testing.T) {
	ctx := context.Background()
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			data, err := store.Load(ctx, "encounters")
			require.NoError(t, err)
			assert.JSONEq(t, `[]`, string(data))

			require.NoError(t, store.Save(ctx, "npcs", []byte(`[{"id":"n1","name":"Goblin"}]`)))
			data, err = store.Load(ctx, "npcs")
			require.NoError(t, err)
			assert.JSONEq(t, `[{"id":"n1","name":"Goblin"}]`, string(data))

			require.NoError(t, store.Save(ctx, "npcs", []byte(`[]`)))
			data, err = store.Load(ctx, "npcs")
			require.NoError(t, err)
			assert.JSONEq(t, `[]`, string(data))

			_, err = store.Load(ctx, "../etc/passwd")
			assert.Error(t, err)
		})
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	payload := []byte(`[1]`)
	require.NoError(t, store.Save(ctx, "players", payload))
	payload[1] = '2'

	data, err := store.Load(ctx, "players")
	require.NoError(t, err)
	assert.Equal(t, `[1]`, string(data))
}

func TestFileStoreSeedsCollections(t *testing.T) {
	dir := t.TempDir()
	_, err := NewFileStore(dir)
	require.NoError(t, err)

	for _, name := range Collections {
		data, err := os.ReadFile(filepath.Join(dir, name+".json"))
		require.NoError(t, err, name)
		assert.Equal(t, "[]", string(data))
	}
}

func TestFileStoreKeepsExistingData(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "players.json"), []byte(`[{"userId":"u1"}]`), 0o644))

	store, err := NewFileStore(dir)
	require.NoError(t, err)
	data, err := store.Load(context.Background(), "players")
	require.NoError(t, err)
	assert.JSONEq(t, `[{"userId":"u1"}]`, string(data))
}

func TestFileStoreEmptyFileReadsAsEmptyCollection(t *testing.T) {
	dir := t.TempDir()
	store, err := NewFileStore(dir)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "npcs.json"), nil, 0o644))

	data, err := store.Load(context.Background(), "npcs")
	require.NoError(t, err)
	assert.Equal(t, "[]", string(data))
}

func TestStoresHonorCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().Load(ctx, "npcs")
	assert.ErrorIs(t, err, context.Canceled)
}
