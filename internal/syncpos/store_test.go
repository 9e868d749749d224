package syncpos

import (
	"context"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/karimzem/fulfillment-backend/pkg/config"
	"github.com/karimzem/fulfillment-backend/pkg/enums"
	"github.com/karimzem/fulfillment-backend/pkg/logger"
	"github.com/karimzem/fulfillment-backend/pkg/redis"
)

type fakeCache struct {
	data    map[string]string
	failing bool
}

func newFakeCache() *fakeCache {
	return &fakeCache{data: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	if f.failing {
		return "", assert.AnError
	}
	value, ok := f.data[key]
	if !ok {
		return "", redis.Nil
	}
	return value, nil
}

func (f *fakeCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	if f.failing {
		return assert.AnError
	}
	f.data[key] = value.(string)
	return nil
}

func (f *fakeCache) PositionKey(store string) string { return "ff:position:" + store }

type stubRepo struct {
	highest map[string]int64
	err     error
}

func (r *stubRepo) HighestExternalID(ctx context.Context, store string) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.highest[store], nil
}

func newTestStore(t *testing.T, cache *fakeCache, repo *stubRepo) *Store {
	t.Helper()
	backup, err := NewFileBackup(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)
	return newTestStoreWithBackup(t, cache, repo, backup)
}

func newTestStoreWithBackup(t *testing.T, cache *fakeCache, repo *stubRepo, backup *FileBackup) *Store {
	t.Helper()
	store, err := NewStore(StoreParams{
		Logger: logger.New(logger.Options{ServiceName: "test", Output: io.Discard}),
		Cache:  cache,
		Backup: backup,
		Repo:   repo,
		Config: config.SyncConfig{OrdersPerPage: 20, PositionTTL: time.Hour},
	})
	require.NoError(t, err)
	store.clock = func() time.Time {
		return time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	}
	return store
}

func TestGetPositionPrefersCache(t *testing.T) {
	cache := newFakeCache()
	cache.data["ff:position:alpha"] = `{"store":"alpha","page":7,"first_id":101,"last_id":140}`

	store := newTestStore(t, cache, &stubRepo{})

	position, err := store.GetPosition(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, 7, position.Page)
	assert.Equal(t, int64(140), position.LastID)
	assert.Equal(t, enums.PositionSourceCache, position.Source)
}

func TestGetPositionSurvivesCacheFlush(t *testing.T) {
	cache := newFakeCache()
	store := newTestStore(t, cache, &stubRepo{})

	require.NoError(t, store.UpdatePosition(context.Background(), Position{
		Store:  "alpha",
		Page:   9,
		LastID: 173,
	}))

	// Simulate a redis flush: the file backup must carry the position.
	cache.data = make(map[string]string)

	position, err := store.GetPosition(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, 9, position.Page)
	assert.Equal(t, int64(173), position.LastID)
	assert.Equal(t, enums.PositionSourceFileBackup, position.Source)

	// The cache is hydrated again on the way out.
	assert.Contains(t, cache.data, "ff:position:alpha")
}

func TestGetPositionRecomputesFromImportedOrders(t *testing.T) {
	cache := newFakeCache()
	repo := &stubRepo{highest: map[string]int64{"alpha": 57}}
	store := newTestStore(t, cache, repo)

	position, err := store.GetPosition(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, 3, position.Page) // 57 imported / 20 per page, resume on page 3
	assert.Equal(t, int64(57), position.LastID)
	assert.Equal(t, enums.PositionSourceRecomputed, position.Source)

	// Both tiers are rehydrated by the recompute.
	assert.Contains(t, cache.data, "ff:position:alpha")
	saved, err := store.backup.Load("alpha")
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, int64(57), saved.LastID)
}

func TestGetPositionRecomputesResetCacheEntry(t *testing.T) {
	cache := newFakeCache()
	// A flushed-and-recreated cache can hold a page-one value even though
	// thousands of orders were already imported.
	cache.data["ff:position:alpha"] = `{"store":"alpha","page":1,"first_id":0,"last_id":0}`
	repo := &stubRepo{highest: map[string]int64{"alpha": 240}}
	store := newTestStore(t, cache, repo)

	position, err := store.GetPosition(context.Background(), "alpha")
	require.NoError(t, err)
	assert.Equal(t, enums.PositionSourceRecomputed, position.Source)
	assert.Equal(t, 13, position.Page) // 240 imported / 20 per page, resume on page 13
	assert.Equal(t, int64(240), position.LastID)

	// The stale reset entry is overwritten.
	assert.Contains(t, cache.data["ff:position:alpha"], `"last_id":240`)
}

func TestGetPositionKeepsResetValueWhenRecomputeFails(t *testing.T) {
	cache := newFakeCache()
	cache.data["ff:position:alpha"] = `{"store":"alpha","page":1,"first_id":0,"last_id":0}`
	repo := &stubRepo{err: assert.AnError}
	store := newTestStore(t, cache, repo)

	position, err := store.GetPosition(context.Background(), "alpha")
	require.NoError(t, err)
	assert.True(t, position.IsReset())
	assert.Equal(t, 1, position.Page)
}

func TestGetPositionNothingImportedStartsAtPageOne(t *testing.T) {
	store := newTestStore(t, newFakeCache(), &stubRepo{})

	position, err := store.GetPosition(context.Background(), "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, position.Page)
	assert.Zero(t, position.LastID)
	assert.True(t, position.IsReset())
}

func TestGetPositionFailsOnlyWhenAllTiersFail(t *testing.T) {
	cache := newFakeCache()
	cache.failing = true
	repo := &stubRepo{err: assert.AnError}
	store := newTestStore(t, cache, repo)

	_, err := store.GetPosition(context.Background(), "alpha")
	require.Error(t, err)
}

func TestUpdatePositionReportsCacheFailureButStillBacksUp(t *testing.T) {
	cache := newFakeCache()
	backup, err := NewFileBackup(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)
	store := newTestStoreWithBackup(t, cache, &stubRepo{}, backup)

	cache.failing = true
	err = store.UpdatePosition(context.Background(), Position{Store: "alpha", Page: 2, LastID: 31})
	require.Error(t, err)

	saved, loadErr := backup.Load("alpha")
	require.NoError(t, loadErr)
	require.NotNil(t, saved)
	assert.Equal(t, int64(31), saved.LastID)
}

func TestClassify(t *testing.T) {
	assert.Equal(t, enums.PositionHealthMissing, Classify(nil))
	assert.Equal(t, enums.PositionHealthReset, Classify(&Position{Page: 1, LastID: 0}))
	assert.Equal(t, enums.PositionHealthCalculated, Classify(&Position{
		Page: 3, LastID: 57, Source: enums.PositionSourceRecomputed,
	}))
	assert.Equal(t, enums.PositionHealthHealthy, Classify(&Position{
		Page: 3, LastID: 57, Source: enums.PositionSourceCache,
	}))
}

func TestBackupKeepsOtherStores(t *testing.T) {
	backup, err := NewFileBackup(filepath.Join(t.TempDir(), "positions.json"))
	require.NoError(t, err)

	require.NoError(t, backup.Save(Position{Store: "alpha", Page: 2, LastID: 31}))
	require.NoError(t, backup.Save(Position{Store: "beta", Page: 5, LastID: 99}))

	alpha, err := backup.Load("alpha")
	require.NoError(t, err)
	require.NotNil(t, alpha)
	assert.Equal(t, int64(31), alpha.LastID)

	beta, err := backup.Load("beta")
	require.NoError(t, err)
	require.NotNil(t, beta)
	assert.Equal(t, 5, beta.Page)
}
