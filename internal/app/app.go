// Package app initializes and holds long-lived application services, acting
// as a dependency injection container.
package app

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/browser"
	"github.com/lyricscout/lyricscout/internal/cache"
	"github.com/lyricscout/lyricscout/internal/config"
	"github.com/lyricscout/lyricscout/internal/extract"
	"github.com/lyricscout/lyricscout/internal/language"
	"github.com/lyricscout/lyricscout/internal/logging"
	"github.com/lyricscout/lyricscout/internal/metrics"
	"github.com/lyricscout/lyricscout/internal/policy/ratelimit"
	"github.com/lyricscout/lyricscout/internal/proxy"
	"github.com/lyricscout/lyricscout/internal/source"
	"github.com/lyricscout/lyricscout/internal/stats"
)

// App holds the shared, long-lived services: logger, proxy pool, the failover
// pipeline, the optional cache, and the counters. It is initialized once at
// startup and handed to the HTTP server.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	failover *source.Failover
	cache    *cache.Cache
	stats    *stats.Stats
}

// Config returns the loaded configuration.
func (a *App) Config() config.Config { return a.cfg }

// Logger returns the shared zap logger.
func (a *App) Logger() *zap.Logger { return a.logger }

// Failover returns the source chain that serves lyric fetches.
func (a *App) Failover() *source.Failover { return a.failover }

// Cache returns the persistent lyrics cache, or nil when disabled.
func (a *App) Cache() *cache.Cache { return a.cache }

// Stats returns the in-memory request counters.
func (a *App) Stats() *stats.Stats { return a.stats }

// NewApp loads configuration and builds every service the server needs. It
// fails fast when any critical piece cannot be initialized.
func NewApp(_ context.Context, cfgPath string) (*App, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Development, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	logger.Info("initializing services",
		zap.Int("proxies", len(cfg.Proxy.Endpoints)),
		zap.Strings("sources", cfg.Sources.Order))

	metrics.Init()

	pool, err := proxy.NewPool(cfg.Proxy.Endpoints, proxy.Policy(cfg.Proxy.Policy), logger)
	if err != nil {
		return nil, err
	}
	retrier := proxy.NewRetrier(pool, proxy.RetryConfig{
		MaxRetries: cfg.Scrape.MaxRetries,
		BaseDelay:  cfg.Scrape.BackoffInitial(),
		MaxDelay:   cfg.Scrape.BackoffMax(),
	}, logger)

	sources, err := buildSources(cfg, logger)
	if err != nil {
		return nil, err
	}

	factory := pageFactory(cfg, logger)
	failover, err := source.NewFailover(sources, retrier, factory, logger)
	if err != nil {
		return nil, err
	}
	if cfg.Scrape.SiteRPS > 0 {
		failover.WithPacer(ratelimit.New(ratelimit.Config{
			RPS:   cfg.Scrape.SiteRPS,
			Burst: cfg.Scrape.SiteBurst,
		}))
	}

	var store *cache.Cache
	if cfg.Cache.Enabled {
		store, err = cache.Open(cfg.Cache.Path, cfg.Cache.TTL(), logger)
		if err != nil {
			return nil, fmt.Errorf("open cache: %w", err)
		}
		logger.Info("lyrics cache enabled", zap.String("path", cfg.Cache.Path))
	}

	return &App{
		cfg:      cfg,
		logger:   logger,
		failover: failover,
		cache:    store,
		stats:    stats.New(),
	}, nil
}

// buildSources assembles the adapters named in sources.order, sharing one
// extraction pipeline configured from the extract section.
func buildSources(cfg config.Config, logger *zap.Logger) ([]source.Source, error) {
	extractor := extract.NewExtractor(cfg.Extract.Marker)
	normalizer := extract.NewNormalizer(cfg.Extract.Boilerplate, cfg.Extract.Boundaries)
	splitter := extract.NewSplitter(cfg.Extract.RomanizedTags, cfg.Extract.NativeTags, cfg.Extract.Boundaries)
	classifier := language.NewClassifier(mergedNames(cfg.Language.Names), logger)

	sources := make([]source.Source, 0, len(cfg.Sources.Order))
	for _, name := range cfg.Sources.Order {
		switch name {
		case "azlyrics":
			sources = append(sources, source.NewAZLyrics(source.AZLyricsTimeouts{
				SearchInputWait: cfg.Scrape.SearchInputWait(),
				ResultsWait:     cfg.Scrape.ResultsWait(),
				RenderSettle:    cfg.Scrape.RenderSettle(),
			}, extractor, normalizer, splitter, classifier, logger))
		case "genius":
			sources = append(sources, source.NewGenius(classifier, logger))
		default:
			return nil, fmt.Errorf("unknown source %q", name)
		}
	}
	return sources, nil
}

// mergedNames overlays configured display names on the built-in table.
func mergedNames(overrides map[string]string) map[string]string {
	if len(overrides) == 0 {
		return nil
	}
	names := make(map[string]string, len(language.DefaultNames)+len(overrides))
	for code, name := range language.DefaultNames {
		names[code] = name
	}
	for code, name := range overrides {
		names[code] = name
	}
	return names
}

// pageFactory creates one browser session per attempt, bound to the attempt's
// proxy endpoint and a fresh User-Agent.
func pageFactory(cfg config.Config, logger *zap.Logger) source.PageFactory {
	return func(ctx context.Context, ep proxy.Endpoint) (source.Page, error) {
		return browser.NewSession(ctx, browser.Options{
			Proxy:      ep,
			UserAgent:  browser.RandomUserAgent(),
			OpTimeout:  cfg.Scrape.OpTimeout(),
			NavTimeout: cfg.Scrape.NavTimeout(),
			Headless:   cfg.Scrape.Headless,
		}, logger)
	}
}

// Close shuts down the services the App owns. Safe to call once, after the
// HTTP server has drained.
func (a *App) Close() {
	a.logger.Info("shutting down services")
	if a.cache != nil {
		if err := a.cache.Close(); err != nil {
			a.logger.Warn("close cache", zap.Error(err))
		}
	}
	_ = a.logger.Sync() // best-effort flush
}
