package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoadFeed(t *testing.T) {
	t.Run("Значения по умолчанию", func(t *testing.T) {
		t.Setenv("FEED_PAGE_SIZE", "")
		t.Setenv("FEED_PAGE_STEP", "")
		t.Setenv("IMAGE_CACHE_SIZE", "")

		feed := LoadFeed()

		assert.Equal(t, 5, feed.PageSize)
		assert.Equal(t, 5, feed.PageStep)
		assert.Equal(t, 200, feed.ImageCacheSize)
	})

	t.Run("Значения из окружения", func(t *testing.T) {
		t.Setenv("FEED_PAGE_SIZE", "10")
		t.Setenv("FEED_PAGE_STEP", "3")
		t.Setenv("IMAGE_CACHE_SIZE", "-1")

		feed := LoadFeed()

		assert.Equal(t, 10, feed.PageSize)
		assert.Equal(t, 3, feed.PageStep)
		assert.Equal(t, 200, feed.ImageCacheSize)
	})
}

func TestFeed_Location(t *testing.T) {
	assert.Equal(t, time.UTC, Feed{TimeZone: "Nowhere/Invalid"}.Location())
	assert.Equal(t, "UTC", Feed{TimeZone: "UTC"}.Location().String())
}

func TestLoadServer(t *testing.T) {
	t.Setenv("SESSION_IDLE_TTL", "bogus")
	t.Setenv("SHUTDOWN_TIMEOUT", "5s")

	server := LoadServer()

	assert.Equal(t, 30*time.Minute, server.SessionIdleTTL)
	assert.Equal(t, 5*time.Second, server.ShutdownTimeout)
}
