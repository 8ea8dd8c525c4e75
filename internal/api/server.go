// Package api exposes the HTTP interface for the lyrics service.
package api

import (
	"context"
	_ "embed"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/cache"
	"github.com/lyricscout/lyricscout/internal/config"
	"github.com/lyricscout/lyricscout/internal/metrics"
	"github.com/lyricscout/lyricscout/internal/scrape"
	"github.com/lyricscout/lyricscout/internal/stats"
)

//go:embed bulk.html
var bulkPage []byte

// requestTimeout bounds one inbound request end to end. Scrapes run several
// navigations across retries and sources, so this is generous.
const requestTimeout = 5 * time.Minute

// Fetcher runs the scrape pipeline for one (title, artist) pair. The
// production implementation is source.Failover.
type Fetcher interface {
	Fetch(ctx context.Context, title, artist string) (*scrape.Result, error)
}

// Server wires HTTP handlers to the pipeline, cache, and counters.
type Server struct {
	router  chi.Router
	fetcher Fetcher
	cache   *cache.Cache
	stats   *stats.Stats
	logger  *zap.Logger
	cfg     config.Config
}

// NewServer constructs a Server with middleware and routes. cache may be nil
// when caching is disabled.
func NewServer(fetcher Fetcher, cacheStore *cache.Cache, st *stats.Stats, cfg config.Config, logger *zap.Logger) *Server {
	s := &Server{
		fetcher: fetcher,
		cache:   cacheStore,
		stats:   st,
		logger:  logger,
		cfg:     cfg,
	}

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(s.statsMiddleware)
	r.Use(metricsMiddleware)
	r.Use(timeoutMiddleware(requestTimeout))
	if cfg.RateLimit.Enabled {
		r.Use(rateLimitMiddleware(newIPRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst), s.logger))
	}

	r.Get("/healthz", s.healthz)
	r.Get("/metrics", metrics.Handler().ServeHTTP)
	r.Get("/lyrics", s.getLyrics)
	r.Get("/bulk", s.bulk)
	r.Get("/stats", s.getStats)
	r.Get("/hit-count", s.hitCount)
	r.Post("/reset-counter", s.resetCounter)

	s.router = r
	return s
}

// Handler returns the router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) bulk(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if _, err := w.Write(bulkPage); err != nil {
		s.logger.Error("write bulk page", zap.Error(err))
	}
}

func (s *Server) getStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.stats.Snapshot())
}

func (s *Server) hitCount(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]int64{"forbiddenHits": s.stats.ForbiddenHits()})
}

func (s *Server) resetCounter(w http.ResponseWriter, _ *http.Request) {
	previous := s.stats.ResetForbidden()
	s.writeJSON(w, http.StatusOK, map[string]int64{"previousForbiddenHits": previous})
}

// getLyrics validates the query, consults the cache, and only then lets the
// pipeline spend browser time.
func (s *Server) getLyrics(w http.ResponseWriter, r *http.Request) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	artist := strings.TrimSpace(r.URL.Query().Get("artist"))
	if title == "" || artist == "" {
		s.writeError(w, http.StatusBadRequest, "Title and artist are required.")
		return
	}
	s.stats.RecordLyricsRequest()

	if s.cache != nil {
		if result, ok := s.cache.Get(title, artist); ok {
			s.stats.RecordCacheHit()
			metrics.ObserveCacheLookup(true)
			s.writeJSON(w, http.StatusOK, result)
			return
		}
		metrics.ObserveCacheLookup(false)
	}

	result, err := s.fetcher.Fetch(r.Context(), title, artist)
	if err != nil {
		s.stats.RecordFailure()
		s.respondScrapeError(w, err, title, artist)
		return
	}
	s.stats.RecordSuccess()

	if s.cache != nil {
		if cerr := s.cache.Put(result); cerr != nil {
			s.logger.Warn("cache write failed", zap.Error(cerr))
		}
	}
	s.writeJSON(w, http.StatusOK, result)
}

// respondScrapeError converts a pipeline failure into a structured JSON
// response. Access-denied conditions get a distinct status and carry the
// running hit count; nothing else leaks beyond the error shape.
func (s *Server) respondScrapeError(w http.ResponseWriter, err error, title, artist string) {
	code := scrape.CodeOf(err)
	if code == scrape.CodeAccessDenied {
		hits := s.stats.RecordForbidden()
		s.writeJSON(w, http.StatusForbidden, map[string]any{
			"error":    err.Error(),
			"code":     code,
			"message":  "The lyrics source blocked this request. Try again later.",
			"hitCount": hits,
		})
		return
	}
	s.writeJSON(w, http.StatusInternalServerError, map[string]any{
		"error":   err.Error(),
		"code":    code,
		"message": userMessage(code, title, artist),
	})
}

func userMessage(code scrape.ErrorCode, title, artist string) string {
	switch code {
	case scrape.CodeNoResults:
		return "No lyrics found for \"" + title + "\" by \"" + artist + "\". Check the spelling of the title and artist."
	case scrape.CodeProxy:
		return "A connection problem occurred. Try again later."
	case scrape.CodeNavigation, scrape.CodeTimeout:
		return "The connection timed out. The server may be busy; try again later."
	case scrape.CodeExtraction:
		return "Failed to extract lyrics for \"" + title + "\" by \"" + artist + "\". The page layout may have changed."
	default:
		return "Failed to fetch lyrics after trying all proxies."
	}
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("write JSON failed", zap.Error(err))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, map[string]string{"error": msg})
}

type requestIDKey struct{}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := uuid.NewString()
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		s.logger.Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.Error("panic recovered", zap.Any("error", rec))
				s.writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (s *Server) statsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.stats.RecordRequest()
		next.ServeHTTP(w, r)
	})
}

func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)

		routePattern := chi.RouteContext(r.Context()).RoutePattern()
		if routePattern == "" {
			routePattern = "unknown"
		}
		metrics.ObserveHTTPRequest(r.Method, routePattern, ww.status, time.Since(start))
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}
