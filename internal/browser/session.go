package browser

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/chromedp/chromedp"

	"sjsage522/silkdeal/helpers"
	"sjsage522/silkdeal/internal/pager"
	"sjsage522/silkdeal/logger"
	crawlerrors "sjsage522/silkdeal/pkg/errors"
)

// Options configure a browser session.
type Options struct {
	Headless    bool
	ExecPath    string
	UserAgent   string
	ProxyServer string

	WindowWidth  int
	WindowHeight int

	// InitialWait is how long Navigate sleeps after the load so scripts can
	// render the first view.
	InitialWait time.Duration

	// CallTimeout bounds every browser call that has no explicit wait.
	CallTimeout time.Duration

	ObeyRobots  bool
	RobotsAgent string

	Logger *logger.Logger
}

// DefaultOptions returns headless options with a 1920x1080 window.
func DefaultOptions() Options {
	return Options{
		Headless:     true,
		WindowWidth:  1920,
		WindowHeight: 1080,
		InitialWait:  3 * time.Second,
		CallTimeout:  defaultCallTimeout,
		RobotsAgent:  "silkdeal",
	}
}

func (o Options) allocatorOptions() []chromedp.ExecAllocatorOption {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.Headless),
		chromedp.Flag("start-maximized", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("enable-automation", false),
	)

	ua := o.UserAgent
	if ua == "" {
		ua = helpers.RandomUserAgent()
	}
	opts = append(opts, chromedp.UserAgent(ua))

	if o.WindowWidth > 0 && o.WindowHeight > 0 {
		opts = append(opts, chromedp.WindowSize(o.WindowWidth, o.WindowHeight))
	}
	if o.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.ExecPath))
	}
	if o.ProxyServer != "" {
		opts = append(opts, chromedp.ProxyServer(o.ProxyServer))
	}
	return opts
}

// Session owns one Chrome process and one tab. It is not safe for
// concurrent use; run one pager per session.
type Session struct {
	opts   Options
	cancel context.CancelFunc
	source *Source
	robots *RobotsChecker
	log    *logger.Logger
}

// Open starts Chrome. The browser lives until Close is called or ctx ends.
func Open(ctx context.Context, opts Options) (*Session, error) {
	log := opts.Logger
	if log == nil {
		log = logger.ForSession()
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts.allocatorOptions()...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, args ...interface{}) {
		log.Debug().Msgf(format, args...)
	}))
	cancel := func() {
		tabCancel()
		allocCancel()
	}

	// The first Run allocates the browser; it must use the tab context
	// itself so the process outlives individual calls.
	if err := chromedp.Run(tabCtx); err != nil {
		cancel()
		return nil, crawlerrors.NewSession("", "start browser", err)
	}

	s := &Session{
		opts:   opts,
		cancel: cancel,
		source: newSource(tabCtx, opts.CallTimeout),
		log:    log,
	}
	if opts.ObeyRobots {
		s.robots = NewRobotsChecker(opts.RobotsAgent)
	}

	log.Info().
		Bool("headless", opts.Headless).
		Str("proxy", opts.ProxyServer).
		Msg("Browser session started")
	return s, nil
}

// Navigate loads url and waits InitialWait for the first render.
func (s *Session) Navigate(ctx context.Context, url string) error {
	if s.robots != nil {
		allowed, err := s.robots.Allowed(ctx, url)
		if err != nil {
			return crawlerrors.NewNavigation("", "check robots.txt", err)
		}
		if !allowed {
			return crawlerrors.NewNavigation("", "navigate", fmt.Errorf("%s disallowed by robots.txt", url))
		}
	}

	if err := s.source.Navigate(ctx, url); err != nil {
		return crawlerrors.NewNavigation("", "navigate to "+url, err)
	}
	s.log.Info().Str("url", url).Msg("Page loaded")

	if s.opts.InitialWait <= 0 {
		return nil
	}
	timer := time.NewTimer(s.opts.InitialWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Document returns the tab as a pager.DocumentSource.
func (s *Session) Document() pager.DocumentSource {
	return s.source
}

// Screenshot writes a full-page PNG of the current view to path.
func (s *Session) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := s.source.run(ctx, s.source.callTimeout, "screenshot", chromedp.FullScreenshot(&buf, 100)); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return fmt.Errorf("write screenshot: %w", err)
	}
	s.log.Debug().Str("path", path).Int("bytes", len(buf)).Msg("Screenshot saved")
	return nil
}

// Close terminates the browser. It is safe to call more than once.
func (s *Session) Close() error {
	s.cancel()
	return nil
}
