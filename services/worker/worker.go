package worker

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"sjsage522/silkdeal/internal/crawler"
	"sjsage522/silkdeal/internal/pager"
	"sjsage522/silkdeal/logger"
	"sjsage522/silkdeal/services/proxy"
	"sjsage522/silkdeal/services/publisher"
)

// Session is a browser tab a target runs in.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Document() pager.DocumentSource
	Screenshot(ctx context.Context, path string) error
	Close() error
}

// SessionFactory opens a session, routed through proxy when it is not empty.
type SessionFactory func(ctx context.Context, proxy string) (Session, error)

// Options tune a Worker.
type Options struct {
	// CrawlInterval repeats every round after the given pause; 0 runs once.
	CrawlInterval time.Duration

	Pager pager.Options

	// NewDelay builds the delay of each run so runs never share pacing.
	NewDelay func() pager.Delay

	// ScreenshotDir receives a PNG of the first view of each run.
	ScreenshotDir string

	Proxies proxy.ProxyManager

	// LogFirstRecord logs the first record of every run, for development.
	LogFirstRecord bool
}

// Result is the outcome of one target run.
type Result struct {
	Target  crawler.Target
	RunID   string
	Summary pager.Summary
	Err     error
}

// Worker handles the crawling and publishing process
type Worker struct {
	targets    []crawler.Target
	publisher  publisher.Publisher
	newSession SessionFactory
	opts       Options
	log        *logger.Logger
}

// NewWorker creates a new worker
func NewWorker(targets []crawler.Target, pub publisher.Publisher, newSession SessionFactory, opts Options) *Worker {
	return &Worker{
		targets:    targets,
		publisher:  pub,
		newSession: newSession,
		opts:       opts,
		log:        logger.ForWorker(),
	}
}

// Start runs every target once, or every CrawlInterval until ctx is done.
// In one-shot mode the joined target errors are returned; interval mode
// only logs them and returns nil on cancellation.
func (w *Worker) Start(ctx context.Context) error {
	for {
		start := time.Now()
		results := w.RunOnce(ctx)
		w.log.Info().
			Dur("elapsed", time.Since(start)).
			Int("targets", len(results)).
			Msg("Crawl round finished")

		if w.opts.CrawlInterval <= 0 {
			var errs []error
			for _, r := range results {
				if r.Err != nil {
					errs = append(errs, fmt.Errorf("%s: %w", r.Target.Name, r.Err))
				}
			}
			return errors.Join(errs...)
		}

		timer := time.NewTimer(w.opts.CrawlInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

// RunOnce runs all the targets in parallel and then trims the streams
func (w *Worker) RunOnce(ctx context.Context) []Result {
	results := make([]Result, len(w.targets))
	var wg sync.WaitGroup
	for i, t := range w.targets {
		wg.Add(1)
		go func(i int, t crawler.Target) {
			defer wg.Done()
			results[i] = w.runTarget(ctx, t)
		}(i, t)
	}
	wg.Wait()

	if trimmer, ok := w.publisher.(publisher.Trimmer); ok && ctx.Err() == nil {
		if err := trimmer.TrimStreams(ctx); err != nil {
			w.log.Error().Err(err).Msg("Stream trimming failed")
		}
	}
	return results
}

// runTarget acquires a session, pages through the target and releases it.
func (w *Worker) runTarget(ctx context.Context, t crawler.Target) Result {
	res := Result{Target: t, RunID: uuid.NewString()}
	log := w.log.WithFields(logger.Fields{"profile": t.Name, "run_id": res.RunID})

	proxyServer := ""
	if w.opts.Proxies != nil {
		if p, err := w.opts.Proxies.Next(); err != nil {
			log.Warn().Err(err).Msg("No proxy available, connecting directly")
		} else {
			proxyServer = p.Server()
		}
	}

	session, err := w.newSession(ctx, proxyServer)
	if err != nil {
		res.Err = err
		log.Error().Err(err).Msg("Failed to open session")
		return res
	}
	defer func() {
		if err := session.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close session")
		}
	}()

	if err := session.Navigate(ctx, t.URL); err != nil {
		res.Err = err
		log.Error().Err(err).Str("url", t.URL).Msg("Failed to load start page")
		return res
	}

	if w.opts.ScreenshotDir != "" {
		path := filepath.Join(w.opts.ScreenshotDir, fmt.Sprintf("%s-%s.png", t.Name, res.RunID))
		if err := session.Screenshot(ctx, path); err != nil {
			log.Warn().Err(err).Msg("Screenshot failed")
		}
	}

	src := session.Document()
	if err := src.WaitPresent(ctx, t.Profile.ItemSelector, t.Profile.Timeout()); err != nil {
		log.Warn().Err(err).Msg("No items rendered on the first view")
	}

	opts := w.opts.Pager
	if w.opts.NewDelay != nil {
		opts.Delay = w.opts.NewDelay()
	}
	opts.Logger = logger.ForPager(t.Name).WithField("run_id", res.RunID)

	p, err := pager.New(t.Profile, opts)
	if err != nil {
		res.Err = err
		return res
	}

	sink := publisher.Sink(w.publisher, t.Name)
	if w.opts.LogFirstRecord {
		sink = firstRecordLogger(sink, log)
	}
	res.Summary, res.Err = p.Run(ctx, src, sink)

	event := log.Info()
	if res.Err != nil {
		event = log.Error().Err(res.Err)
	}
	event.
		Int("pages", res.Summary.Pages).
		Int("records", res.Summary.Records).
		Str("outcome", res.Summary.Last.Outcome.String()).
		Msg("Run finished")
	return res
}

func firstRecordLogger(next pager.RecordSink, log *logger.Logger) pager.RecordSink {
	var once sync.Once
	return pager.SinkFunc(func(ctx context.Context, rec pager.Record) error {
		once.Do(func() {
			log.Info().Interface("record", rec).Msg("Crawled data")
		})
		return next.Publish(ctx, rec)
	})
}
