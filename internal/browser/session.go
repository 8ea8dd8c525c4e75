// Package browser owns headless Chrome sessions. Each session binds one
// browsing context to one proxy endpoint and one User-Agent for its whole
// lifetime; sessions are created per attempt and never shared.
package browser

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"github.com/lyricscout/lyricscout/internal/proxy"
)

// Options configures a session.
type Options struct {
	Proxy      proxy.Endpoint
	UserAgent  string
	OpTimeout  time.Duration
	NavTimeout time.Duration
	Headless   bool
}

func (o *Options) applyDefaults() {
	if o.OpTimeout <= 0 {
		o.OpTimeout = 60 * time.Second
	}
	if o.NavTimeout <= 0 {
		o.NavTimeout = 60 * time.Second
	}
	if o.UserAgent == "" {
		o.UserAgent = RandomUserAgent()
	}
}

// Session is an isolated browser context with one page.
type Session struct {
	opts        Options
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	logger      *zap.Logger
	closeOnce   sync.Once
}

// NewSession launches a browser context routed through the given proxy. A
// failure here almost always means a dead proxy; callers surface it as a
// proxy error. The returned session must be closed on every exit path.
func NewSession(ctx context.Context, opts Options, logger *zap.Logger) (*Session, error) {
	opts.applyDefaults()

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.ProxyServer(opts.Proxy.ServerURL()),
		chromedp.UserAgent(opts.UserAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), allocOpts...)
	browserCtx, browserCancel := chromedp.NewContext(allocCtx)

	s := &Session{
		opts:        opts,
		allocCancel: allocCancel,
		ctx:         browserCtx,
		cancel:      browserCancel,
		logger:      logger,
	}

	s.listen()

	warmup := chromedp.Tasks{
		fetch.Enable().WithHandleAuthRequests(true),
		network.Enable(),
		emulation.SetUserAgentOverride(opts.UserAgent),
	}
	warmCtx, warmCancel := context.WithTimeout(browserCtx, opts.NavTimeout)
	defer warmCancel()
	stop := forwardCancel(ctx, warmCancel)
	defer stop()
	if err := chromedp.Run(warmCtx, warmup); err != nil {
		s.Close()
		return nil, fmt.Errorf("launch browser via %s: %w", opts.Proxy.Addr(), err)
	}
	return s, nil
}

// listen wires the event handlers every session needs: proxy authentication,
// request continuation while the fetch domain is intercepting, and automatic
// dismissal of native dialogs so the pipeline never hangs on a prompt.
func (s *Session) listen() {
	chromedp.ListenTarget(s.ctx, func(ev any) {
		switch e := ev.(type) {
		case *fetch.EventRequestPaused:
			go func() {
				if err := chromedp.Run(s.ctx, fetch.ContinueRequest(e.RequestID)); err != nil && s.logger != nil {
					s.logger.Debug("continue request failed", zap.Error(err))
				}
			}()
		case *fetch.EventAuthRequired:
			go func() {
				err := chromedp.Run(s.ctx, fetch.ContinueWithAuth(e.RequestID,
					&fetch.AuthChallengeResponse{
						Response: fetch.AuthChallengeResponseResponseProvideCredentials,
						Username: s.opts.Proxy.Username,
						Password: s.opts.Proxy.Password,
					}))
				if err != nil && s.logger != nil {
					s.logger.Debug("proxy auth failed", zap.Error(err))
				}
			}()
		case *page.EventJavascriptDialogOpening:
			go func() {
				if err := chromedp.Run(s.ctx, page.HandleJavaScriptDialog(false)); err != nil && s.logger != nil {
					s.logger.Debug("dismiss dialog failed", zap.Error(err))
				}
			}()
		}
	})
}

// UsedProxy reports the endpoint this session is bound to.
func (s *Session) UsedProxy() string {
	return s.opts.Proxy.Addr()
}

// Navigate loads a URL and waits for the DOM to be ready, bounded by the
// navigation timeout.
func (s *Session) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, s.opts.NavTimeout,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

// WaitVisible blocks until the selector is visible or the bound expires.
func (s *Session) WaitVisible(ctx context.Context, sel string, timeout time.Duration) error {
	return s.run(ctx, timeout, chromedp.WaitVisible(sel, chromedp.ByQuery))
}

// Fill sets the value of a form control.
func (s *Session) Fill(ctx context.Context, sel, value string) error {
	return s.run(ctx, s.opts.OpTimeout, chromedp.SetValue(sel, value, chromedp.ByQuery))
}

// SendKeys types keys into the element; "\n" submits a focused form field.
func (s *Session) SendKeys(ctx context.Context, sel, keys string) error {
	return s.run(ctx, s.opts.OpTimeout, chromedp.SendKeys(sel, keys, chromedp.ByQuery))
}

// Click clicks the first element matching the selector.
func (s *Session) Click(ctx context.Context, sel string) error {
	return s.run(ctx, s.opts.OpTimeout, chromedp.Click(sel, chromedp.ByQuery, chromedp.NodeVisible))
}

// FirstAttr reads an attribute off the first element matching the selector.
// ok is false when the attribute is absent.
func (s *Session) FirstAttr(ctx context.Context, sel, attr string) (value string, ok bool, err error) {
	err = s.run(ctx, s.opts.OpTimeout, chromedp.AttributeValue(sel, attr, &value, &ok, chromedp.ByQuery))
	return value, ok, err
}

// HTML returns the full rendered document markup.
func (s *Session) HTML(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, s.opts.OpTimeout, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

// BodyText returns the rendered visible text of the page body.
func (s *Session) BodyText(ctx context.Context) (string, error) {
	var text string
	err := s.run(ctx, s.opts.OpTimeout, chromedp.Text("body", &text, chromedp.ByQuery))
	return text, err
}

// Location returns the page's current URL.
func (s *Session) Location(ctx context.Context) (string, error) {
	var loc string
	err := s.run(ctx, s.opts.OpTimeout, chromedp.Location(&loc))
	return loc, err
}

// Sleep waits a fixed settle delay, honoring caller cancellation.
func (s *Session) Sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

// Close tears down the browsing context. Safe to call more than once.
func (s *Session) Close() error {
	s.closeOnce.Do(func() {
		s.cancel()
		s.allocCancel()
	})
	return nil
}

func (s *Session) run(parent context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()
	stop := forwardCancel(parent, cancel)
	defer stop()
	if err := chromedp.Run(runCtx, actions...); err != nil {
		return fmt.Errorf("chromedp run: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	if parent == nil {
		return func() {}
	}
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}
