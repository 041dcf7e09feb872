package storage_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaroing/feedback-platform/internal/database"
	"github.com/yaroing/feedback-platform/internal/nlp"
	"github.com/yaroing/feedback-platform/internal/storage"
)

type blobStore interface {
	Save(ctx context.Context, key string, data []byte) error
	Load(ctx context.Context, key string) ([]byte, error)
	Delete(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

func newRedisStore(t *testing.T) (*storage.RedisBlobStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return storage.NewRedisBlobStore(client, ""), mr
}

func newSQLStore(t *testing.T) *storage.SQLBlobStore {
	t.Helper()
	db, err := database.Open(context.Background(), database.Config{
		Driver:  database.DriverSQLite,
		Path:    ":memory:",
		Migrate: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return storage.NewSQLBlobStore(db)
}

func TestBlobStores(t *testing.T) {
	t.Parallel()

	redisStore, _ := newRedisStore(t)
	stores := map[string]blobStore{
		"redis":  redisStore,
		"memory": storage.NewMemoryBlobStore(),
		"sql":    newSQLStore(t),
	}

	for name, store := range stores {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			ctx := context.Background()

			require.NoError(t, store.Ping(ctx))
			require.NoError(t, store.Save(ctx, "model_1", []byte(`{"version":0}`)))
			require.NoError(t, store.Save(ctx, "model_1", []byte(`{"version":1}`)))

			got, err := store.Load(ctx, "model_1")
			require.NoError(t, err)
			assert.Equal(t, []byte(`{"version":1}`), got)

			require.NoError(t, store.Delete(ctx, "model_1"))
			require.NoError(t, store.Delete(ctx, "model_1"), "idempotent")

			_, err = store.Load(ctx, "model_1")
			require.ErrorIs(t, err, storage.ErrBlobNotFound)
			require.ErrorIs(t, err, nlp.ErrSerialization)
			require.ErrorIs(t, err, nlp.ErrModelUnavailable)
		})
	}
}

func TestRedisBlobStore_KeyPrefix(t *testing.T) {
	t.Parallel()

	store, mr := newRedisStore(t)
	require.NoError(t, store.Save(context.Background(), "model_abc", []byte("blob")))

	got, err := mr.Get(storage.DefaultKeyPrefix + "model_abc")
	require.NoError(t, err)
	assert.Equal(t, "blob", got)
	assert.Zero(t, mr.TTL(storage.DefaultKeyPrefix+"model_abc"))
}
