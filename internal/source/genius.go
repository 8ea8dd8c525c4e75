package source

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/extract"
	"github.com/lyricscout/lyricscout/internal/language"
	"github.com/lyricscout/lyricscout/internal/scrape"
)

const (
	geniusBaseURL      = "https://genius.com"
	geniusSearchInput  = `input[name="q"]`
	geniusResultSel    = "search-result-item"
	geniusSongLinkSel  = "a.mini_card"
	geniusLyricsSel    = `div[data-lyrics-container="true"]`
	geniusChallengeGap = 15 * time.Second
)

var explicitKeywords = []string{"explicit", "mature", "adult", "nsfw"}
var explicitWords = []string{"fuck", "shit", "bitch", "asshole", "dick", "pussy"}

// Genius scrapes genius.com, preferring a romanized result when the result
// list offers one.
type Genius struct {
	waitShort  time.Duration
	classifier *language.Classifier
	logger     *zap.Logger
}

// NewGenius builds the adapter.
func NewGenius(classifier *language.Classifier, logger *zap.Logger) *Genius {
	return &Genius{
		waitShort:  10 * time.Second,
		classifier: classifier,
		logger:     logger,
	}
}

// Name implements Source.
func (g *Genius) Name() string { return "genius" }

// Scrape implements Source.
func (g *Genius) Scrape(ctx context.Context, page Page, title, artist string) (*scrape.Result, error) {
	query := title + " " + artist

	if err := page.Navigate(ctx, geniusBaseURL); err != nil {
		return nil, navError(err, geniusBaseURL)
	}

	// An interstitial challenge page hides the search box; wait it out once
	// and reload before giving up.
	if err := page.WaitVisible(ctx, geniusSearchInput, g.waitShort); err != nil {
		g.logger.Info("search box not visible, waiting out challenge page")
		if serr := page.Sleep(ctx, geniusChallengeGap); serr != nil {
			return nil, navError(serr, geniusBaseURL)
		}
		if nerr := page.Navigate(ctx, geniusBaseURL); nerr != nil {
			return nil, navError(nerr, geniusBaseURL)
		}
		if werr := page.WaitVisible(ctx, geniusSearchInput, g.waitShort); werr != nil {
			return nil, scrape.NewError(scrape.CodeAccessDenied, "challenge page did not clear", map[string]any{
				"searchQuery": query,
			}).WithCause(werr)
		}
	}

	if err := page.Fill(ctx, geniusSearchInput, query); err != nil {
		return nil, searchError(err, query)
	}
	if err := page.SendKeys(ctx, geniusSearchInput, "\n"); err != nil {
		return nil, searchError(err, query)
	}
	if err := page.WaitVisible(ctx, geniusResultSel, g.waitShort); err != nil {
		return nil, waitError(err, geniusResultSel, g.waitShort)
	}

	songURL, err := g.pickResult(ctx, page, query)
	if err != nil {
		return nil, err
	}
	if err := page.Navigate(ctx, songURL); err != nil {
		return nil, navError(err, songURL)
	}
	if err := page.WaitVisible(ctx, geniusLyricsSel, g.waitShort); err != nil {
		return nil, waitError(err, geniusLyricsSel, g.waitShort)
	}

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, scrape.NewError(scrape.CodeBrowser, "read rendered page", nil).WithCause(err)
	}
	lyrics, err := g.extractLyrics(pageHTML)
	if err != nil {
		var se *scrape.Error
		if errors.As(err, &se) {
			return nil, se.WithDetail("url", songURL)
		}
		return nil, err
	}

	return &scrape.Result{
		Title:     title,
		Artist:    artist,
		Lyrics:    lyrics,
		Language:  g.classifier.Classify(lyrics, "", "clean lyrics"),
		Source:    g.Name(),
		Explicit:  isExplicit(title, lyrics),
		UsedProxy: page.UsedProxy(),
	}, nil
}

// pickResult reads the result list and prefers a link whose text mentions a
// romanized rendition; otherwise it takes the first result.
func (g *Genius) pickResult(ctx context.Context, page Page, query string) (string, error) {
	content, err := page.HTML(ctx)
	if err != nil {
		return "", scrape.NewError(scrape.CodeBrowser, "read search results", nil).WithCause(err)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(content))
	if err != nil {
		return "", scrape.NewError(scrape.CodeExtraction, "parse search results", nil).WithCause(err)
	}

	var first, romanized string
	doc.Find(geniusSongLinkSel).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return true
		}
		if first == "" {
			first = href
		}
		if strings.Contains(strings.ToLower(sel.Text()), "romanized") {
			romanized = href
			return false
		}
		return true
	})

	picked := romanized
	if picked == "" {
		picked = first
	}
	if picked == "" {
		return "", scrape.NewError(scrape.CodeNoResults, "no songs in search results", map[string]any{
			"searchQuery": query,
		})
	}
	return absoluteURL(picked), nil
}

func (g *Genius) extractLyrics(pageHTML string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(pageHTML))
	if err != nil {
		return "", scrape.NewError(scrape.CodeExtraction, "parse lyrics page", nil).WithCause(err)
	}
	var parts []string
	doc.Find(geniusLyricsSel).Each(func(_ int, sel *goquery.Selection) {
		parts = append(parts, extract.FlattenSelection(sel))
	})
	lyrics := extract.CollapseBlankLines(strings.Join(parts, "\n"))
	if lyrics == "" {
		return "", scrape.NewError(scrape.CodeExtraction, "lyrics container empty", nil)
	}
	return lyrics, nil
}

func absoluteURL(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return href
	}
	if u.IsAbs() {
		return href
	}
	base, _ := url.Parse(geniusBaseURL)
	return base.ResolveReference(u).String()
}

func isExplicit(title, lyrics string) bool {
	lowerTitle := strings.ToLower(title)
	lowerLyrics := strings.ToLower(lyrics)
	for _, kw := range explicitKeywords {
		if strings.Contains(lowerTitle, kw) {
			return true
		}
	}
	for _, w := range explicitWords {
		if strings.Contains(lowerLyrics, w) {
			return true
		}
	}
	return false
}
