package respcache

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metalagman/bictrace/internal/db"
)

func newTestCache(t *testing.T, disabled bool) *Cache {
	t.Helper()
	conn, err := db.Open(filepath.Join(t.TempDir(), "cache.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return New(conn, disabled)
}

func TestCacheRoundTrip(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, false)
	fp := Fingerprint("gpt-4o", "system", "user")

	_, hit, err := c.Get(ctx, fp)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, c.Put(ctx, fp, "gpt-4o", `{"change_type":"MODIFIED"}`))

	got, hit, err := c.Get(ctx, fp)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, `{"change_type":"MODIFIED"}`, got)
}

func TestCachePutOverwrites(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, false)
	fp := Fingerprint("gpt-4o", "s", "u")

	require.NoError(t, c.Put(ctx, fp, "gpt-4o", "first"))
	require.NoError(t, c.Put(ctx, fp, "gpt-4o", "second"))

	got, hit, err := c.Get(ctx, fp)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "second", got)
}

func TestCacheDisabled(t *testing.T) {
	ctx := context.Background()
	c := newTestCache(t, true)
	fp := Fingerprint("gpt-4o", "s", "u")

	require.NoError(t, c.Put(ctx, fp, "gpt-4o", "value"))
	_, hit, err := c.Get(ctx, fp)
	require.NoError(t, err)
	assert.False(t, hit)
}

func TestNilCacheNeverHits(t *testing.T) {
	var c *Cache
	_, hit, err := c.Get(context.Background(), "fp")
	require.NoError(t, err)
	assert.False(t, hit)
	require.NoError(t, c.Put(context.Background(), "fp", "m", "v"))
}

func TestFingerprintSeparatesModels(t *testing.T) {
	a := Fingerprint("large", "s", "u")
	b := Fingerprint("small", "s", "u")
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Fingerprint("large", "s", "u"))
}
