package geocache

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agrichain/advisor/common/model"
	"agrichain/advisor/pkg/errorutil"
	"agrichain/advisor/pkg/logger"
)

type memStore struct {
	mu      sync.Mutex
	entries map[string]model.GeoCacheEntry
	err     error
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string]model.GeoCacheEntry)}
}

func (s *memStore) Get(ctx context.Context, latitude, longitude float64, date time.Time) (*model.GeoCacheEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	e, ok := s.entries[Key(latitude, longitude, date)]
	if !ok {
		return nil, nil
	}
	return &e, nil
}

func (s *memStore) Upsert(ctx context.Context, entry *model.GeoCacheEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.entries[Key(entry.Latitude, entry.Longitude, entry.Date)] = *entry
	return nil
}

var base = time.Date(2026, time.October, 1, 6, 0, 0, 0, time.UTC)

func newTestCache(store Store, now *time.Time) *Cache {
	c := NewCache(store, DefaultTTLDays, logger.NewNop())
	c.now = func() time.Time { return *now }
	return c
}

func TestKey(t *testing.T) {
	assert.Equal(t, "21.14580000_79.08820000_2026-10-01", Key(21.1458, 79.0882, base))
	assert.Equal(t, "-0.12345679_10.00000000_2026-10-01", Key(RoundCoord(-0.123456789), 10, base))
}

func TestIsExpiredBoundary(t *testing.T) {
	now := base
	c := newTestCache(newMemStore(), &now)

	entry := &model.GeoCacheEntry{CreatedAt: base}

	now = base.Add(time.Duration(6.99 * float64(24*time.Hour)))
	assert.False(t, c.IsExpired(entry))

	now = base.Add(7 * 24 * time.Hour)
	assert.True(t, c.IsExpired(entry))

	now = base.Add(3*24*time.Hour + 23*time.Hour)
	assert.Equal(t, 3, c.AgeDays(entry))

	assert.True(t, c.IsExpired(&model.GeoCacheEntry{}))
	assert.True(t, c.IsExpired(nil))
}

func TestUpdateThenGet(t *testing.T) {
	now := base
	c := newTestCache(newMemStore(), &now)
	ctx := context.Background()

	entry, err := c.Update(ctx, 21.1458, 79.0882, base, 0.72, 65, 12.5, map[string]interface{}{"ndvi": "Sentinel-2"})
	require.NoError(t, err)
	assert.Equal(t, base.AddDate(0, 0, 7), entry.ExpiresAt)
	assert.Equal(t, DateOnly(base), entry.Date)

	now = base.Add(2 * 24 * time.Hour)
	got, err := c.Get(ctx, 21.1458, 79.0882, base.Add(3*time.Hour))
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.72, got.NDVI)
	assert.Equal(t, 2, c.AgeDays(got))
}

func TestGetMissIsUniform(t *testing.T) {
	now := base
	store := newMemStore()
	c := newTestCache(store, &now)
	ctx := context.Background()

	absent, err := c.Get(ctx, 10, 10, base)
	require.NoError(t, err)
	assert.Nil(t, absent)

	_, err = c.Update(ctx, 10, 10, base, 0.5, 40, 0, nil)
	require.NoError(t, err)

	now = base.Add(7 * 24 * time.Hour)
	expired, err := c.Get(ctx, 10, 10, base)
	require.NoError(t, err)
	assert.Nil(t, expired)
}

func TestUpdateLastWriteWins(t *testing.T) {
	now := base
	c := newTestCache(newMemStore(), &now)
	ctx := context.Background()

	_, err := c.Update(ctx, 18.5204, 73.8567, base, 0.4, 30, 1, nil)
	require.NoError(t, err)
	now = base.Add(time.Hour)
	_, err = c.Update(ctx, 18.5204, 73.8567, base, 0.8, 35, 2, nil)
	require.NoError(t, err)

	got, err := c.Get(ctx, 18.5204, 73.8567, base)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 0.8, got.NDVI)
	assert.Equal(t, base.Add(time.Hour), got.CreatedAt)
}

func TestUpdateValidation(t *testing.T) {
	now := base
	c := newTestCache(newMemStore(), &now)
	ctx := context.Background()

	for _, tc := range []struct {
		name                 string
		lat, lon, ndvi, soil float64
		rain                 float64
	}{
		{"ndvi", 10, 10, 1.2, 50, 0},
		{"soil", 10, 10, 0.5, 101, 0},
		{"rain", 10, 10, 0.5, 50, -1},
		{"lat", 91, 10, 0.5, 50, 0},
	} {
		_, err := c.Update(ctx, tc.lat, tc.lon, base, tc.ndvi, tc.soil, tc.rain, nil)
		assert.True(t, errors.Is(err, errorutil.ErrValidation), tc.name)
	}
}

func TestStoreErrorIsUnavailable(t *testing.T) {
	now := base
	store := newMemStore()
	store.err = errors.New("too many connections")
	c := newTestCache(store, &now)

	_, err := c.Get(context.Background(), 1, 1, base)
	assert.True(t, errors.Is(err, errorutil.ErrDataSourceUnavailable))

	_, err = c.Update(context.Background(), 1, 1, base, 0.5, 50, 0, nil)
	assert.True(t, errors.Is(err, errorutil.ErrDataSourceUnavailable))
}
