package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestMemoryGetSet(t *testing.T) {
	c := NewMemory[[]int](time.Minute, time.Minute)

	_, ok := c.Get("missing")
	assert.False(t, ok)

	c.Set("a", []int{1, 2}, 0)
	got, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, []int{1, 2}, got)
	assert.Equal(t, 1, c.Len())

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)
}

func TestMemoryExpiry(t *testing.T) {
	c := NewMemory[string](time.Minute, time.Minute)
	c.Set("short", "v", 10*time.Millisecond)

	time.Sleep(30 * time.Millisecond)
	_, ok := c.Get("short")
	assert.False(t, ok)
}

func TestMemoryClear(t *testing.T) {
	c := NewMemory[string](0, 0)
	c.Set("a", "1", 0)
	c.Set("b", "2", 0)

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestKey(t *testing.T) {
	k1 := Key("lookup", "paris", "10")
	k2 := Key("lookup", "paris", "10")
	k3 := Key("lookup", "paris1", "0")

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
	assert.Contains(t, k1, "epitab:v1:lookup:")
}
