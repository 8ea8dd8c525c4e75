package source

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/extract"
	"github.com/lyricscout/lyricscout/internal/language"
	"github.com/lyricscout/lyricscout/internal/scrape"
)

// AZLyrics site constants. Selector strings are observed page structure and
// will need maintenance when the site changes.
const (
	azSearchURL       = "https://search.azlyrics.com/search.php?q="
	azSearchInputSel  = ".search .form-control"
	azSearchSubmitSel = `button.btn.btn-primary[type="submit"]`
	azResultLinkSel   = "td.text-left.visitedlyr a"
	azNoResultsMarker = "your search returned <b>no results</b>"
)

// accessDeniedMarkers identify the site's anti-bot block page.
var accessDeniedMarkers = []string{
	"Access denied",
	"access to this page has been denied",
	"Error 403",
	"you have been blocked",
}

// AZLyricsTimeouts bound every wait in the AZLyrics flow.
type AZLyricsTimeouts struct {
	SearchInputWait time.Duration
	ResultsWait     time.Duration
	RenderSettle    time.Duration
}

func (t *AZLyricsTimeouts) applyDefaults() {
	if t.SearchInputWait <= 0 {
		t.SearchInputWait = 10 * time.Second
	}
	if t.ResultsWait <= 0 {
		t.ResultsWait = 30 * time.Second
	}
	if t.RenderSettle <= 0 {
		t.RenderSettle = 3 * time.Second
	}
}

// AZLyrics scrapes lyrics from azlyrics.com through its search page.
type AZLyrics struct {
	timeouts   AZLyricsTimeouts
	extractor  *extract.Extractor
	normalizer *extract.Normalizer
	splitter   *extract.Splitter
	classifier *language.Classifier
	logger     *zap.Logger
}

// NewAZLyrics wires the adapter with its extraction pipeline.
func NewAZLyrics(
	timeouts AZLyricsTimeouts,
	extractor *extract.Extractor,
	normalizer *extract.Normalizer,
	splitter *extract.Splitter,
	classifier *language.Classifier,
	logger *zap.Logger,
) *AZLyrics {
	timeouts.applyDefaults()
	return &AZLyrics{
		timeouts:   timeouts,
		extractor:  extractor,
		normalizer: normalizer,
		splitter:   splitter,
		classifier: classifier,
		logger:     logger,
	}
}

// Name implements Source.
func (a *AZLyrics) Name() string { return "azlyrics" }

// Scrape implements Source: open search, submit the query, open the first
// result, then extract, normalize, split, and classify.
func (a *AZLyrics) Scrape(ctx context.Context, page Page, title, artist string) (*scrape.Result, error) {
	query := title + " " + artist
	searchURL := azSearchURL + url.QueryEscape(query)

	if err := page.Navigate(ctx, searchURL); err != nil {
		return nil, navError(err, searchURL)
	}
	if err := page.WaitVisible(ctx, azSearchInputSel, a.timeouts.SearchInputWait); err != nil {
		if denied, deniedErr := a.checkAccessDenied(ctx, page, query); denied {
			return nil, deniedErr
		}
		return nil, waitError(err, azSearchInputSel, a.timeouts.SearchInputWait)
	}

	if err := page.Fill(ctx, azSearchInputSel, query); err != nil {
		return nil, searchError(err, query)
	}
	if err := page.Click(ctx, azSearchSubmitSel); err != nil {
		return nil, searchError(err, query)
	}

	// An explicit empty result page beats waiting out the selector timeout.
	if noResults, err := a.checkNoResults(ctx, page, title, artist); err != nil || noResults != nil {
		if err != nil {
			return nil, err
		}
		return nil, noResults
	}

	if err := page.WaitVisible(ctx, azResultLinkSel, a.timeouts.ResultsWait); err != nil {
		if noResults, nerr := a.checkNoResults(ctx, page, title, artist); nerr == nil && noResults != nil {
			return nil, noResults
		}
		if denied, deniedErr := a.checkAccessDenied(ctx, page, query); denied {
			return nil, deniedErr
		}
		return nil, waitError(err, azResultLinkSel, a.timeouts.ResultsWait)
	}

	firstResultURL, ok, err := page.FirstAttr(ctx, azResultLinkSel, "href")
	if err != nil || !ok || firstResultURL == "" {
		return nil, scrape.NewError(scrape.CodeExtraction, "first search result has no href", map[string]any{
			"searchQuery": query,
		}).WithCause(err)
	}

	if err := page.Navigate(ctx, firstResultURL); err != nil {
		return nil, navError(err, firstResultURL)
	}
	// Lyrics render asynchronously after DOM-ready; give the page a moment.
	if err := page.Sleep(ctx, a.timeouts.RenderSettle); err != nil {
		return nil, navError(err, firstResultURL)
	}

	pageHTML, err := page.HTML(ctx)
	if err != nil {
		return nil, scrape.NewError(scrape.CodeBrowser, "read rendered page", nil).WithCause(err)
	}

	return a.assemble(title, artist, firstResultURL, pageHTML, page.UsedProxy())
}

// assemble runs the offline half of the pipeline over the rendered snapshot.
func (a *AZLyrics) assemble(title, artist, pageURL, pageHTML, usedProxy string) (*scrape.Result, error) {
	rawLyrics, err := a.extractor.Extract(pageHTML)
	if err != nil {
		var se *scrape.Error
		if errors.As(err, &se) {
			return nil, se.WithDetail("url", pageURL)
		}
		return nil, err
	}

	cleanLyrics, err := a.normalizer.Normalize(rawLyrics)
	if err != nil {
		return nil, scrape.NewError(scrape.CodeExtraction, "normalize lyrics markup", map[string]any{
			"url": pageURL,
		}).WithCause(err)
	}

	sections, err := a.splitter.Split(rawLyrics)
	if err != nil {
		a.logger.Warn("section split failed, using whole-text lyrics", zap.Error(err))
	}

	// A tagged romanized or native range supersedes the whole-page text.
	finalLyrics := cleanLyrics
	if chosen, ok := a.splitter.Choose(sections); ok && chosen.Text != "" {
		finalLyrics = chosen.Text
	}
	if strings.TrimSpace(finalLyrics) == "" {
		return nil, scrape.NewError(scrape.CodeExtraction, "lyrics empty after normalization", map[string]any{
			"title": title, "artist": artist, "url": pageURL,
		})
	}

	detectionText := finalLyrics
	detectedFrom := "clean lyrics"
	sectionLabel := ""
	if native, ok := a.splitter.NativeSection(sections); ok && native.Text != "" {
		detectionText = native.Text
		detectedFrom = language.DetectedFromTag
		sectionLabel = native.Label
	}

	return &scrape.Result{
		Title:     title,
		Artist:    artist,
		Lyrics:    finalLyrics,
		Language:  a.classifier.Classify(detectionText, sectionLabel, detectedFrom),
		Source:    a.Name(),
		UsedProxy: usedProxy,
	}, nil
}

func (a *AZLyrics) checkNoResults(ctx context.Context, page Page, title, artist string) (*scrape.Error, error) {
	content, err := page.HTML(ctx)
	if err != nil {
		return nil, scrape.NewError(scrape.CodeBrowser, "read search page", nil).WithCause(err)
	}
	if strings.Contains(content, azNoResultsMarker) {
		return scrape.NewError(scrape.CodeNoResults,
			fmt.Sprintf("no results for %q by %q", title, artist), map[string]any{
				"searchQuery": title + " " + artist,
				"title":       title,
				"artist":      artist,
			}), nil
	}
	return nil, nil
}

func (a *AZLyrics) checkAccessDenied(ctx context.Context, page Page, query string) (bool, error) {
	body, err := page.BodyText(ctx)
	if err != nil {
		return false, nil
	}
	for _, marker := range accessDeniedMarkers {
		if strings.Contains(body, marker) {
			return true, scrape.NewError(scrape.CodeAccessDenied, "source blocked the request", map[string]any{
				"searchQuery": query,
				"marker":      marker,
			})
		}
	}
	return false, nil
}

func navError(err error, pageURL string) error {
	code := scrape.CodeNavigation
	if errors.Is(err, context.DeadlineExceeded) {
		code = scrape.CodeTimeout
	}
	return scrape.NewError(code, fmt.Sprintf("navigate to %s", pageURL), map[string]any{
		"url": pageURL,
	}).WithCause(err)
}

func waitError(err error, sel string, timeout time.Duration) error {
	code := scrape.CodeTimeout
	if !errors.Is(err, context.DeadlineExceeded) {
		code = scrape.CodeNavigation
	}
	return scrape.NewError(code, fmt.Sprintf("wait for %q", sel), map[string]any{
		"selector":  sel,
		"timeoutMs": timeout.Milliseconds(),
	}).WithCause(err)
}

func searchError(err error, query string) error {
	return scrape.NewError(scrape.CodeSearch, "fill or submit search form", map[string]any{
		"searchQuery": query,
	}).WithCause(err)
}
