package cache

import (
	"context"
	"testing"
	"time"

	"recipe-vision/internal/infrastructure/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheManager_GetSet(t *testing.T) {
	m := NewManager(time.Minute, time.Minute)
	t.Cleanup(func() { _ = m.Close() })
	ctx := context.Background()

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", "v"))
	v, ok := m.Get(ctx, "k")
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	stats := m.Stats()
	assert.Equal(t, "memory", stats.Backend)
	assert.Equal(t, 1, stats.Size)
	assert.Equal(t, int64(1), stats.Hits)
	assert.Equal(t, int64(1), stats.Misses)
	assert.InDelta(t, 0.5, stats.HitRate, 1e-9)
}

func TestCacheManager_Expiry(t *testing.T) {
	m := NewManager(20*time.Millisecond, time.Minute)
	t.Cleanup(func() { _ = m.Close() })
	ctx := context.Background()

	require.NoError(t, m.Set(ctx, "k", "v"))
	time.Sleep(40 * time.Millisecond)

	_, ok := m.Get(ctx, "k")
	assert.False(t, ok)
}

func TestNew(t *testing.T) {
	s, err := New(config.CacheConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, s)

	s, err = New(config.CacheConfig{Enabled: true, Backend: "memory", TTL: time.Minute, CleanupInterval: time.Minute})
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "memory", s.Stats().Backend)
	_ = s.Close()

	_, err = New(config.CacheConfig{Enabled: true, Backend: "memcached"})
	assert.Error(t, err)
}

func TestKey(t *testing.T) {
	a := Key("recipe", "gemma3:4b", "prompt")
	b := Key("recipe", "gemma3:4b", "prompt")
	c := Key("recipe", "gemma3:4", "bprompt")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.Contains(t, a, "recipe:")
}
