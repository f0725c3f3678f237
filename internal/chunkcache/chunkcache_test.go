package chunkcache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGetPutRoundTrip(t *testing.T) {
	c := New(2)
	c.Put(0, Entry{Payload: []byte("a"), Valid: true})
	got, ok := c.Get(0)
	assert.True(t, ok)
	assert.Equal(t, []byte("a"), got.Payload)
}

func TestEvictsLeastRecentlyUsed(t *testing.T) {
	c := New(2)
	c.Put(0, Entry{Payload: []byte("a")})
	c.Put(1, Entry{Payload: []byte("b")})
	c.Get(0) // touch 0, making 1 the least recently used
	c.Put(2, Entry{Payload: []byte("c")})

	_, ok := c.Get(1)
	assert.False(t, ok, "entry 1 should have been evicted")
	_, ok = c.Get(0)
	assert.True(t, ok)
	_, ok = c.Get(2)
	assert.True(t, ok)
}

func TestNonPositiveSizeUsesDefault(t *testing.T) {
	c := New(0)
	assert.Equal(t, 0, c.Len())
	for i := uint64(0); i < DefaultSize+1; i++ {
		c.Put(i, Entry{})
	}
	assert.Equal(t, DefaultSize, c.Len())
}

func TestPurge(t *testing.T) {
	c := New(4)
	c.Put(0, Entry{})
	c.Purge()
	assert.Equal(t, 0, c.Len())
}
