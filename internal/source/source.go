// Package source holds the per-site lyrics adapters and the failover chain
// that tries them in priority order.
package source

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/metrics"
	"github.com/lyricscout/lyricscout/internal/proxy"
	"github.com/lyricscout/lyricscout/internal/scrape"
)

// Page is the slice of browser capability the adapters drive. The production
// implementation is browser.Session; tests substitute a scripted fake.
type Page interface {
	Navigate(ctx context.Context, url string) error
	WaitVisible(ctx context.Context, sel string, timeout time.Duration) error
	Fill(ctx context.Context, sel, value string) error
	Click(ctx context.Context, sel string) error
	SendKeys(ctx context.Context, sel, keys string) error
	FirstAttr(ctx context.Context, sel, attr string) (value string, ok bool, err error)
	HTML(ctx context.Context) (string, error)
	BodyText(ctx context.Context) (string, error)
	Sleep(ctx context.Context, d time.Duration) error
	UsedProxy() string
	Close() error
}

// PageFactory opens a fresh page bound to the given proxy endpoint. Exactly
// one page is open per in-flight attempt; the caller closes it.
type PageFactory func(ctx context.Context, ep proxy.Endpoint) (Page, error)

// Source scrapes one lyrics site end to end: search, extract, normalize,
// classify.
type Source interface {
	Name() string
	Scrape(ctx context.Context, page Page, title, artist string) (*scrape.Result, error)
}

// Pacer throttles outbound attempts against one lyrics site.
type Pacer interface {
	Wait(ctx context.Context, site string) error
}

// Failover tries sources strictly in order. Each source runs its own
// proxy/retry cycle; sessions are never shared across sources.
type Failover struct {
	sources []Source
	retrier *proxy.Retrier
	factory PageFactory
	pacer   Pacer
	logger  *zap.Logger
}

// NewFailover builds the chain.
func NewFailover(sources []Source, retrier *proxy.Retrier, factory PageFactory, logger *zap.Logger) (*Failover, error) {
	if len(sources) == 0 {
		return nil, fmt.Errorf("failover: no sources configured")
	}
	return &Failover{sources: sources, retrier: retrier, factory: factory, logger: logger}, nil
}

// WithPacer makes every attempt draw a token for its site before a browser
// launches. Nil disables pacing.
func (f *Failover) WithPacer(p Pacer) *Failover {
	f.pacer = p
	return f
}

// Fetch runs the pipeline for one request. A source's definitive failure,
// after its internal retries are exhausted, falls through to the next source;
// when every source fails the aggregated error names the last failure.
func (f *Failover) Fetch(ctx context.Context, title, artist string) (*scrape.Result, error) {
	var lastErr error
	for _, src := range f.sources {
		result, err := f.fetchFrom(ctx, src, title, artist)
		if err == nil {
			metrics.ObserveScrape(src.Name(), "success")
			return result, nil
		}
		lastErr = err
		metrics.ObserveScrape(src.Name(), string(scrape.CodeOf(err)))
		f.logger.Warn("source exhausted, trying next",
			zap.String("source", src.Name()),
			zap.String("title", title),
			zap.String("artist", artist),
			zap.Error(err))
		if ctx.Err() != nil {
			break
		}
	}
	return nil, fmt.Errorf("all sources failed for %q by %q: %w", title, artist, lastErr)
}

func (f *Failover) fetchFrom(ctx context.Context, src Source, title, artist string) (*scrape.Result, error) {
	return proxy.Do(ctx, f.retrier, func(ctx context.Context, ep proxy.Endpoint) (*scrape.Result, error) {
		if f.pacer != nil {
			if err := f.pacer.Wait(ctx, src.Name()); err != nil {
				return nil, err
			}
		}
		metrics.ObserveProxyDraw(ep.Addr())
		page, err := f.factory(ctx, ep)
		if err != nil {
			return nil, scrape.NewError(scrape.CodeProxy,
				fmt.Sprintf("create browser session via %s", ep.Addr()), map[string]any{
					"proxy": ep.Addr(),
				}).WithCause(err)
		}
		defer func() {
			if cerr := page.Close(); cerr != nil {
				f.logger.Warn("close session", zap.Error(cerr))
			}
		}()
		return src.Scrape(ctx, page, title, artist)
	})
}
