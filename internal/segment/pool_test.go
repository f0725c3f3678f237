package segment

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePoolEvictsLeastRecentlyUsed(t *testing.T) {
	dir := t.TempDir()
	names := make([]string, 3)
	for i := range names {
		names[i] = filepath.Join(dir, string(rune('a'+i))+".bin")
		require.NoError(t, os.WriteFile(names[i], []byte("x"), 0o644))
	}

	pool := NewFilePool(2)
	defer pool.Close()

	_, err := pool.Get(names[0])
	require.NoError(t, err)
	_, err = pool.Get(names[1])
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())

	// Touch names[0] so names[1] becomes the least recently used.
	_, err = pool.Get(names[0])
	require.NoError(t, err)
	_, err = pool.Get(names[2])
	require.NoError(t, err)
	assert.Equal(t, 2, pool.Len())
	_, stillOpen := pool.open[names[1]]
	assert.False(t, stillOpen, "names[1] should have been evicted")
	_, stillOpen = pool.open[names[0]]
	assert.True(t, stillOpen)
}

func TestDefaultCapacityIsPositive(t *testing.T) {
	assert.Greater(t, DefaultCapacity(), 0)
}
