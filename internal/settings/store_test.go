package settings

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T, backend Backend) *Store {
	t.Helper()
	store, err := Open(context.Background(), backend, zerolog.Nop())
	require.NoError(t, err)
	return store
}

func TestFreshStoreUsesDefaults(t *testing.T) {
	store := openStore(t, NewMemoryBackend())

	assert.Equal(t, 0.025, store.FeeCushion())
	assert.Equal(t, 600.0, store.RefreshIntervalSeconds())
	assert.Equal(t, 0.0, store.DefaultEVPercent())
	assert.False(t, store.DeveloperMode())
	assert.Equal(t, Defaults(), store.Values())
	assert.Equal(t, "10m0s", store.Values().RefreshInterval().String())
}

func TestMutationsSurviveRestart(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	store := openStore(t, backend)

	require.NoError(t, store.SetFeeCushion(ctx, 0.05))
	require.NoError(t, store.SetRefreshIntervalSeconds(ctx, 120))
	require.NoError(t, store.SetDefaultEVPercent(ctx, 7.5))
	require.NoError(t, store.SetDeveloperMode(ctx, true))

	restarted := openStore(t, backend)
	assert.Equal(t, Values{
		FeeCushion:             0.05,
		RefreshIntervalSeconds: 120,
		DefaultEVPercent:       7.5,
		DeveloperMode:          true,
	}, restarted.Values())
}

func TestFileBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "settings.yaml")

	store := openStore(t, NewFileBackend(path))
	assert.Equal(t, Defaults(), store.Values(), "missing file means defaults")

	require.NoError(t, store.SetDefaultEVPercent(ctx, 5))
	require.NoError(t, store.SetDeveloperMode(ctx, true))

	_, err := os.Stat(path)
	require.NoError(t, err)

	restarted := openStore(t, NewFileBackend(path))
	assert.Equal(t, 5.0, restarted.DefaultEVPercent())
	assert.True(t, restarted.DeveloperMode())
	assert.Equal(t, 0.025, restarted.FeeCushion())
}

func TestFileBackendReadsHandWrittenValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, os.WriteFile(path, []byte("fee_cushion: 0.01\nrefresh_interval: 900\ndeveloper_mode: true\n"), 0o644))

	store := openStore(t, NewFileBackend(path))
	assert.Equal(t, 0.01, store.FeeCushion())
	assert.Equal(t, 900.0, store.RefreshIntervalSeconds())
	assert.True(t, store.DeveloperMode())
	assert.Equal(t, 0.0, store.DefaultEVPercent())
}

func TestSetRejectsOutOfRange(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, NewMemoryBackend())

	cases := []struct {
		key string
		val string
	}{
		{KeyFeeCushion, "0.2"},
		{KeyFeeCushion, "-0.01"},
		{KeyRefreshInterval, "30"},
		{KeyRefreshInterval, "7200"},
		{KeyDefaultEVPercent, "51"},
		{KeyDefaultEVPercent, "NaN"},
	}
	for _, tc := range cases {
		t.Run(tc.key+"="+tc.val, func(t *testing.T) {
			err := store.Set(ctx, tc.key, tc.val)
			assert.ErrorIs(t, err, ErrOutOfRange)
			assert.Equal(t, Defaults(), store.Values())
		})
	}

	assert.ErrorIs(t, store.Set(ctx, "theme", "dark"), ErrUnknownKey)
	assert.Error(t, store.Set(ctx, KeyDeveloperMode, "maybe"))
	assert.Error(t, store.Set(ctx, KeyFeeCushion, "abc"))
}

func TestBoundsAreInclusive(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, NewMemoryBackend())

	require.NoError(t, store.SetFeeCushion(ctx, 0))
	require.NoError(t, store.SetFeeCushion(ctx, 0.1))
	require.NoError(t, store.SetRefreshIntervalSeconds(ctx, 60))
	require.NoError(t, store.SetRefreshIntervalSeconds(ctx, 3600))
	require.NoError(t, store.SetDefaultEVPercent(ctx, 50))
}

func TestOpenClampsAndIgnoresBadPersistedValues(t *testing.T) {
	backend := NewMemoryBackend()
	ctx := context.Background()
	require.NoError(t, backend.Save(ctx, KeyFeeCushion, "0.5"))
	require.NoError(t, backend.Save(ctx, KeyRefreshInterval, "10"))
	require.NoError(t, backend.Save(ctx, KeyDefaultEVPercent, "garbage"))
	require.NoError(t, backend.Save(ctx, "unrelated", "x"))

	store := openStore(t, backend)
	assert.Equal(t, 0.1, store.FeeCushion())
	assert.Equal(t, 60.0, store.RefreshIntervalSeconds())
	assert.Equal(t, 0.0, store.DefaultEVPercent())
}

func TestSubscribersSeePersistedChanges(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, NewMemoryBackend())

	var changes []Change
	unsubscribe := store.Subscribe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, store.SetDefaultEVPercent(ctx, 3))
	require.Error(t, store.SetDefaultEVPercent(ctx, 300))
	require.NoError(t, store.SetDeveloperMode(ctx, true))

	require.Len(t, changes, 2)
	assert.Equal(t, KeyDefaultEVPercent, changes[0].Key)
	assert.Equal(t, 3.0, changes[0].Values.DefaultEVPercent)
	assert.Equal(t, KeyDeveloperMode, changes[1].Key)
	assert.True(t, changes[1].Values.DeveloperMode)

	unsubscribe()
	unsubscribe()
	require.NoError(t, store.SetFeeCushion(ctx, 0.01))
	assert.Len(t, changes, 2)
}

type failingBackend struct{ *MemoryBackend }

func (f *failingBackend) Save(ctx context.Context, key, value string) error {
	return errors.New("disk full")
}

func TestFailedPersistLeavesValueUnchanged(t *testing.T) {
	store := openStore(t, &failingBackend{MemoryBackend: NewMemoryBackend()})

	notified := false
	store.Subscribe(func(Change) { notified = true })

	err := store.SetFeeCushion(context.Background(), 0.05)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Equal(t, 0.025, store.FeeCushion())
	assert.False(t, notified)
}

type fakeHash struct {
	data map[string]string
}

func (f *fakeHash) HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd {
	out := make(map[string]string, len(f.data))
	for k, v := range f.data {
		out[k] = v
	}
	return redis.NewMapStringStringResult(out, nil)
}

func (f *fakeHash) HSet(ctx context.Context, key string, values ...interface{}) *redis.IntCmd {
	for i := 0; i+1 < len(values); i += 2 {
		f.data[values[i].(string)] = values[i+1].(string)
	}
	return redis.NewIntResult(int64(len(values)/2), nil)
}

func TestRedisBackendRoundTrip(t *testing.T) {
	hash := &fakeHash{data: map[string]string{}}
	store := openStore(t, NewRedisBackend(hash, ""))

	require.NoError(t, store.SetRefreshIntervalSeconds(context.Background(), 1800))
	assert.Equal(t, "1800", hash.data[KeyRefreshInterval])

	restarted := openStore(t, NewRedisBackend(hash, DefaultRedisKey))
	assert.Equal(t, 1800.0, restarted.RefreshIntervalSeconds())
}

type fakeRepo struct {
	rows map[string]string
}

func (f *fakeRepo) ListSettings(ctx context.Context) (map[string]string, error) {
	return f.rows, nil
}

func (f *fakeRepo) UpsertSetting(ctx context.Context, key, value string) error {
	f.rows[key] = value
	return nil
}

func TestRepositoryBackendRoundTrip(t *testing.T) {
	repo := &fakeRepo{rows: map[string]string{KeyDeveloperMode: "true"}}
	store := openStore(t, NewRepositoryBackend(repo))
	assert.True(t, store.DeveloperMode())

	require.NoError(t, store.SetFeeCushion(context.Background(), 0.02))
	assert.Equal(t, "0.02", repo.rows[KeyFeeCushion])
}

func TestFieldsMatchDefaults(t *testing.T) {
	d := Defaults()
	for _, f := range Fields() {
		raw, err := d.Get(f.Key)
		require.NoError(t, err)
		if f.Kind == KindNumber {
			assert.Equal(t, formatFloat(f.Default), raw, f.Key)
			assert.Equal(t, f.Max, f.Clamp(f.Max+1))
			assert.Equal(t, f.Min, f.Clamp(f.Min-1))
		}
	}
	_, ok := Lookup("nope")
	assert.False(t, ok)
}

func TestAdjustStepsWithinRange(t *testing.T) {
	ctx := context.Background()
	store, err := Open(ctx, NewMemoryBackend(), zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, store.Adjust(ctx, KeyFeeCushion, 1))
	assert.Equal(t, 0.026, store.FeeCushion())
	require.NoError(t, store.Adjust(ctx, KeyFeeCushion, -200))
	assert.Equal(t, 0.0, store.FeeCushion())

	require.NoError(t, store.Adjust(ctx, KeyRefreshInterval, 100))
	assert.Equal(t, 3600.0, store.RefreshIntervalSeconds())

	require.NoError(t, store.Adjust(ctx, KeyDefaultEVPercent, 3))
	assert.Equal(t, 1.5, store.DefaultEVPercent())

	require.NoError(t, store.Adjust(ctx, KeyDeveloperMode, 1))
	assert.True(t, store.DeveloperMode())
	require.NoError(t, store.Adjust(ctx, KeyDeveloperMode, -1))
	assert.False(t, store.DeveloperMode())

	assert.ErrorIs(t, store.Adjust(ctx, "volume", 1), ErrUnknownKey)
}

func TestConcurrentAdjustsAreNotLost(t *testing.T) {
	ctx := context.Background()
	store := openStore(t, NewMemoryBackend())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, store.Adjust(ctx, KeyRefreshInterval, 1))
		}()
	}
	wg.Wait()

	assert.Equal(t, 600.0+20*60, store.RefreshIntervalSeconds())
}

func TestReloadPublishesChangesFromSharedBackend(t *testing.T) {
	ctx := context.Background()
	backend := NewMemoryBackend()
	watcher := openStore(t, backend)
	editor := openStore(t, backend)

	var changes []Change
	watcher.Subscribe(func(c Change) { changes = append(changes, c) })

	require.NoError(t, watcher.Reload(ctx))
	assert.Empty(t, changes, "nothing changed yet")

	require.NoError(t, editor.SetRefreshIntervalSeconds(ctx, 120))
	require.NoError(t, editor.SetDefaultEVPercent(ctx, 4))
	assert.Equal(t, 600.0, watcher.RefreshIntervalSeconds())

	require.NoError(t, watcher.Reload(ctx))
	require.Len(t, changes, 2)
	assert.Equal(t, KeyRefreshInterval, changes[0].Key)
	assert.Equal(t, KeyDefaultEVPercent, changes[1].Key)
	assert.Equal(t, 120.0, watcher.RefreshIntervalSeconds())
	assert.Equal(t, 4.0, watcher.DefaultEVPercent())

	require.NoError(t, watcher.Reload(ctx))
	assert.Len(t, changes, 2)
}

func TestReloadSurfacesBackendErrors(t *testing.T) {
	store := openStore(t, NewMemoryBackend())
	store.backend = &brokenLoadBackend{}
	assert.ErrorContains(t, store.Reload(context.Background()), "reload settings")
	assert.Equal(t, 600.0, store.RefreshIntervalSeconds())
}

type brokenLoadBackend struct{ MemoryBackend }

func (b *brokenLoadBackend) Load(context.Context) (map[string]string, error) {
	return nil, errors.New("connection reset")
}
