package source

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/language"
	"github.com/lyricscout/lyricscout/internal/scrape"
)

const geniusSongURL = "https://genius.com/Bts-spring-day-romanized-lyrics"

func newGeniusAdapter() *Genius {
	return NewGenius(language.NewClassifier(nil, zap.NewNop()), zap.NewNop())
}

const geniusResultsHTML = `<html><body>
<a class="mini_card" href="/Bts-spring-day-lyrics">Spring Day by BTS</a>
<a class="mini_card" href="/Bts-spring-day-romanized-lyrics">Spring Day (Romanized) by Genius Romanizations</a>
</body></html>`

const geniusLyricsHTML = `<html><body>
<div data-lyrics-container="true">Bogosipda<br>Irohke malhanikka do bogosipda</div>
<div data-lyrics-container="true">Eolmana gidaryeoya</div>
</body></html>`

func geniusHappyPage() *fakePage {
	page := newFakePage()
	page.visible[geniusSearchInput] = true
	page.visible[geniusResultSel] = true
	page.visible[geniusLyricsSel] = true
	page.htmlByURL[geniusBaseURL] = geniusResultsHTML
	page.htmlByURL[geniusSongURL] = geniusLyricsHTML
	return page
}

func TestGeniusHappyPathPrefersRomanized(t *testing.T) {
	g := newGeniusAdapter()
	page := geniusHappyPage()

	result, err := g.Scrape(context.Background(), page, "Spring Day", "BTS")
	require.NoError(t, err)

	assert.Equal(t, "Bogosipda\nIrohke malhanikka do bogosipda\nEolmana gidaryeoya", result.Lyrics)
	assert.Equal(t, "genius", result.Source)
	assert.False(t, result.Explicit)
	assert.Equal(t, "10.0.0.1:8080", result.UsedProxy)

	// The search was submitted with Enter, and the romanized link won.
	assert.Equal(t, "Spring Day BTS", page.filled[geniusSearchInput])
	assert.Equal(t, "\n", page.sent[geniusSearchInput])
	assert.Contains(t, page.navigated, geniusSongURL)
}

func TestGeniusTakesFirstResultWithoutRomanized(t *testing.T) {
	g := newGeniusAdapter()
	page := geniusHappyPage()
	page.htmlByURL[geniusBaseURL] = `<html><body>
<a class="mini_card" href="/Bts-spring-day-lyrics">Spring Day by BTS</a>
</body></html>`
	page.htmlByURL["https://genius.com/Bts-spring-day-lyrics"] = geniusLyricsHTML

	result, err := g.Scrape(context.Background(), page, "Spring Day", "BTS")
	require.NoError(t, err)
	assert.Contains(t, page.navigated, "https://genius.com/Bts-spring-day-lyrics")
	assert.NotEmpty(t, result.Lyrics)
}

func TestGeniusNoResults(t *testing.T) {
	g := newGeniusAdapter()
	page := geniusHappyPage()
	page.htmlByURL[geniusBaseURL] = `<html><body>no cards here</body></html>`

	_, err := g.Scrape(context.Background(), page, "Nope", "Nobody")
	require.Error(t, err)
	assert.Equal(t, scrape.CodeNoResults, scrape.CodeOf(err))
}

func TestGeniusChallengePageRecovers(t *testing.T) {
	g := newGeniusAdapter()
	page := geniusHappyPage()
	// First wait fails (challenge page), the retry after reload succeeds.
	page.waitQueue[geniusSearchInput] = []error{context.DeadlineExceeded, nil}

	result, err := g.Scrape(context.Background(), page, "Spring Day", "BTS")
	require.NoError(t, err)
	assert.NotEmpty(t, result.Lyrics)
	assert.Contains(t, page.slept, geniusChallengeGap)
	// Base URL was loaded twice: initial navigation plus the reload.
	count := 0
	for _, u := range page.navigated {
		if u == geniusBaseURL {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestGeniusChallengePageGivesUp(t *testing.T) {
	g := newGeniusAdapter()
	page := newFakePage()
	page.htmlByURL[geniusBaseURL] = `<html><body>checking your browser</body></html>`

	_, err := g.Scrape(context.Background(), page, "Spring Day", "BTS")
	require.Error(t, err)
	assert.Equal(t, scrape.CodeAccessDenied, scrape.CodeOf(err))
}

func TestGeniusEmptyLyricsContainer(t *testing.T) {
	g := newGeniusAdapter()
	page := geniusHappyPage()
	page.htmlByURL[geniusSongURL] = `<html><body><div data-lyrics-container="true">   </div></body></html>`

	_, err := g.Scrape(context.Background(), page, "Spring Day", "BTS")
	require.Error(t, err)
	assert.Equal(t, scrape.CodeExtraction, scrape.CodeOf(err))
}

func TestAbsoluteURL(t *testing.T) {
	assert.Equal(t, "https://genius.com/Some-song-lyrics", absoluteURL("/Some-song-lyrics"))
	assert.Equal(t, "https://genius.com/Some-song-lyrics", absoluteURL("https://genius.com/Some-song-lyrics"))
}

func TestIsExplicit(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		lyrics string
		want   bool
	}{
		{"clean", "Spring Day", "bogosipda", false},
		{"keyword in title", "Mixtape (Explicit)", "la la la", true},
		{"word in lyrics", "Nice Song", "well shit happens", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isExplicit(tt.title, tt.lyrics))
		})
	}
}
