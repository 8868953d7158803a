package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scopeEntry struct {
	BusinessID string
}

func TestCacheSetGetDelete(t *testing.T) {
	c, err := New[scopeEntry](100, time.Minute)
	require.NoError(t, err)
	defer c.Close()

	_, ok := c.Get("emp-1")
	assert.False(t, ok)

	require.True(t, c.Set("emp-1", scopeEntry{BusinessID: "biz-1"}))
	got, ok := c.Get("emp-1")
	require.True(t, ok)
	assert.Equal(t, "biz-1", got.BusinessID)

	c.Delete("emp-1")
	_, ok = c.Get("emp-1")
	assert.False(t, ok)
}

func TestCacheExpires(t *testing.T) {
	c, err := New[string](100, 50*time.Millisecond)
	require.NoError(t, err)
	defer c.Close()

	require.True(t, c.Set("k", "v"))
	time.Sleep(150 * time.Millisecond)
	_, ok := c.Get("k")
	assert.False(t, ok)
}

func TestNewValidatesArguments(t *testing.T) {
	_, err := New[string](0, time.Minute)
	assert.Error(t, err)
	_, err = New[string](10, 0)
	assert.Error(t, err)
}

func TestNilCacheMisses(t *testing.T) {
	var c *Cache[string]
	_, ok := c.Get("k")
	assert.False(t, ok)
	assert.False(t, c.Set("k", "v"))
	c.Delete("k")
	c.Close()
}
