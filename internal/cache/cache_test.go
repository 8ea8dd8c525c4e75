package cache

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/scrape"
)

func openTestCache(t *testing.T, ttl time.Duration) *Cache {
	t.Helper()
	c, err := Open(filepath.Join(t.TempDir(), "lyrics.db"), ttl, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func sampleResult() *scrape.Result {
	return &scrape.Result{
		Title:  "Spring Day",
		Artist: "BTS",
		Lyrics: "Bogosipda\nIrohke malhanikka do bogosipda",
		Language: scrape.Language{
			Code:         "ko",
			Name:         "Korean",
			Probability:  1.0,
			DetectedFrom: "korean/japanese",
		},
		Source:    "azlyrics",
		UsedProxy: "10.0.0.1:8080",
	}
}

func TestKeyNormalization(t *testing.T) {
	assert.Equal(t, Key("Spring Day", "BTS"), Key("  spring   DAY ", " bts "))
	assert.NotEqual(t, Key("Spring Day", "BTS"), Key("Spring Day", "TXT"))
	assert.Equal(t, "bts|spring day", Key("Spring Day", "BTS"))
}

func TestPutThenGet(t *testing.T) {
	c := openTestCache(t, time.Hour)

	require.NoError(t, c.Put(sampleResult()))

	got, ok := c.Get("spring day", "bts")
	require.True(t, ok)
	assert.Equal(t, "Spring Day", got.Title)
	assert.Equal(t, "ko", got.Language.Code)
	assert.Equal(t, "azlyrics", got.Source)
}

func TestGetMiss(t *testing.T) {
	c := openTestCache(t, time.Hour)

	_, ok := c.Get("unknown", "nobody")
	assert.False(t, ok)
}

func TestExpiredEntryIsDeleted(t *testing.T) {
	c := openTestCache(t, time.Millisecond)

	require.NoError(t, c.Put(sampleResult()))
	time.Sleep(5 * time.Millisecond)

	_, ok := c.Get("Spring Day", "BTS")
	assert.False(t, ok)

	// The lazy delete removed the row; a second lookup misses the same way.
	_, ok = c.Get("Spring Day", "BTS")
	assert.False(t, ok)
}

func TestZeroTTLNeverExpires(t *testing.T) {
	c := openTestCache(t, 0)

	require.NoError(t, c.Put(sampleResult()))
	time.Sleep(2 * time.Millisecond)

	_, ok := c.Get("Spring Day", "BTS")
	assert.True(t, ok)
}

func TestPutOverwrites(t *testing.T) {
	c := openTestCache(t, time.Hour)

	first := sampleResult()
	require.NoError(t, c.Put(first))

	second := sampleResult()
	second.Lyrics = "updated lyrics"
	require.NoError(t, c.Put(second))

	got, ok := c.Get("Spring Day", "BTS")
	require.True(t, ok)
	assert.Equal(t, "updated lyrics", got.Lyrics)
}
