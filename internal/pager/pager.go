package pager

import (
	"context"

	"sjsage522/silkdeal/logger"
	crawlerrors "sjsage522/silkdeal/pkg/errors"
)

// Options tune a Pager. The zero value never humanizes and never retries.
type Options struct {
	Delay Delay

	// Humanize moves the pointer and presses PageDown before each advance.
	Humanize bool

	// MaxPages stops the loop after that many views; 0 means unbounded.
	MaxPages int

	// TransientRetries is how many times a transient advance failure is retried.
	TransientRetries int

	Logger *logger.Logger
}

// DefaultOptions paces like a person and stops on the first advance failure.
func DefaultOptions() Options {
	return Options{
		Delay:    NewHumanDelay(0),
		Humanize: true,
	}
}

// Summary describes a finished run.
type Summary struct {
	Pages   int
	Records int
	Last    Advance
}

// Pager extracts records from a paginated listing, view after view.
// A Pager drives one DocumentSource at a time.
type Pager struct {
	profile Profile
	opts    Options
	delay   Delay
	log     *logger.Logger
}

// New creates a Pager for profile.
func New(profile Profile, opts Options) (*Pager, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	p := &Pager{
		profile: profile,
		opts:    opts,
		delay:   opts.Delay,
		log:     opts.Logger,
	}
	if p.delay == nil {
		p.delay = NoDelay{}
	}
	if p.log == nil {
		p.log = logger.ForPager(profile.Name)
	}
	return p, nil
}

// Profile returns the profile the pager extracts with.
func (p *Pager) Profile() Profile {
	return p.profile
}

// Run extracts the current view, advances, and repeats until no next page
// exists or an advance fails. It returns an error only when ctx is done,
// the source is unavailable, or the sink rejects a record.
func (p *Pager) Run(ctx context.Context, src DocumentSource, sink RecordSink) (Summary, error) {
	var sum Summary
	for {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		n, err := p.extract(ctx, src, sink)
		sum.Records += n
		if err != nil {
			return sum, err
		}
		sum.Pages++

		p.log.Info().
			Int("page", sum.Pages).
			Int("records", n).
			Msg("Extracted view")

		if p.opts.MaxPages > 0 && sum.Pages >= p.opts.MaxPages {
			sum.Last = Advance{Outcome: PageLimit}
			return sum, nil
		}

		if err := p.settle(ctx, src); err != nil {
			return sum, err
		}

		adv, err := p.advanceWithRetry(ctx, src)
		sum.Last = adv
		if err != nil {
			return sum, err
		}
		if adv.Outcome != NextPage {
			p.log.Info().
				Str("outcome", adv.Outcome.String()).
				AnErr("cause", adv.Err).
				Int("pages", sum.Pages).
				Int("records", sum.Records).
				Msg("No more pages or couldn't click next")
			return sum, nil
		}
	}
}

func (p *Pager) extract(ctx context.Context, src DocumentSource, sink RecordSink) (int, error) {
	markup, err := src.Markup(ctx)
	if err != nil {
		return 0, p.fatal(ctx, "read markup", err)
	}
	view, err := NewView(markup)
	if err != nil {
		return 0, err
	}

	published := 0
	for _, rec := range view.Extract(p.profile) {
		if err := sink.Publish(ctx, rec); err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return published, ctxErr
			}
			return published, crawlerrors.NewPublisher(p.profile.Name, "publish record", err)
		}
		published++
	}
	return published, nil
}

// settle waits like a reader would and nudges the page before advancing.
// Interaction failures other than a lost session are ignored.
func (p *Pager) settle(ctx context.Context, src DocumentSource) error {
	if err := p.delay.Pause(ctx, PauseSettle); err != nil {
		return err
	}
	if p.opts.Humanize {
		if err := src.MovePointer(ctx, 20, 20); err != nil {
			if p.isFatal(ctx, err) {
				return p.fatal(ctx, "move pointer", err)
			}
			p.log.Debug().Err(err).Msg("Pointer move failed")
		}
		if err := src.PressKey(ctx, "body", KeyPageDown); err != nil {
			if p.isFatal(ctx, err) {
				return p.fatal(ctx, "press key", err)
			}
			p.log.Debug().Err(err).Msg("Key press failed")
		}
	}
	return p.delay.Pause(ctx, PauseScroll)
}

// advanceWithRetry retries transient failures up to TransientRetries times.
// Failures after the click only repeat the wait, so a page is never skipped.
func (p *Pager) advanceWithRetry(ctx context.Context, src DocumentSource) (Advance, error) {
	adv, err := p.advance(ctx, src)
	for attempt := 1; err == nil && adv.Outcome == TransientError && attempt <= p.opts.TransientRetries; attempt++ {
		p.log.Warn().
			Err(adv.Err).
			Str("stage", adv.Stage.String()).
			Int("attempt", attempt).
			Msg("Retrying advance")

		if err := p.delay.Pause(ctx, PauseSettle); err != nil {
			return adv, err
		}
		if adv.Stage == StageChange {
			adv, err = p.awaitChange(ctx, src, adv.anchor)
		} else {
			adv, err = p.advance(ctx, src)
		}
	}
	return adv, err
}
