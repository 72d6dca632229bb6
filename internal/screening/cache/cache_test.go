package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTTL(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	c := NewTTL[[]float32](5*time.Minute, WithClock[[]float32](clock))

	t.Run("miss on empty cache", func(t *testing.T) {
		_, ok := c.Get("q")
		assert.False(t, ok)
	})

	t.Run("hit before expiry", func(t *testing.T) {
		c.Set("q", []float32{0.1, 0.2})
		now = now.Add(4 * time.Minute)

		got, ok := c.Get("q")
		assert.True(t, ok)
		assert.Equal(t, []float32{0.1, 0.2}, got)
	})

	t.Run("miss after expiry", func(t *testing.T) {
		now = now.Add(2 * time.Minute)
		_, ok := c.Get("q")
		assert.False(t, ok)
	})

	t.Run("set resets expiry", func(t *testing.T) {
		c.Set("q", []float32{0.3})
		now = now.Add(4 * time.Minute)
		c.Set("q", []float32{0.4})
		now = now.Add(4 * time.Minute)

		got, ok := c.Get("q")
		assert.True(t, ok)
		assert.Equal(t, []float32{0.4}, got)
	})
}
