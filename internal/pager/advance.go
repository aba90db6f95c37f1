package pager

import (
	"context"
	"errors"

	crawlerrors "sjsage522/silkdeal/pkg/errors"
)

// Outcome is the result of trying to move to the next view.
type Outcome int

const (
	// NextPage means the next control was clicked and the view changed.
	NextPage Outcome = iota
	// NoNextPage means the next control never became clickable.
	NoNextPage
	// TransientError means the advance failed in a way a retry may fix.
	TransientError
	// PageLimit means the caller's page limit was reached.
	PageLimit
)

func (o Outcome) String() string {
	switch o {
	case NextPage:
		return "next_page"
	case NoNextPage:
		return "no_next_page"
	case TransientError:
		return "transient_error"
	case PageLimit:
		return "page_limit"
	default:
		return "unknown"
	}
}

// Stage locates a transient failure within the advance.
type Stage int

const (
	// StageLocate is before the click; nothing changed on the page.
	StageLocate Stage = iota
	// StageClick covers scrolling to and clicking the control.
	StageClick
	// StageChange is after the click, waiting for the view to change.
	StageChange
)

func (s Stage) String() string {
	switch s {
	case StageLocate:
		return "locate"
	case StageClick:
		return "click"
	case StageChange:
		return "change"
	default:
		return "unknown"
	}
}

// Advance is the tagged result of one advance attempt.
type Advance struct {
	Outcome Outcome
	Stage   Stage
	Err     error

	anchor NodeRef
}

// advance clicks the next control and waits for the view to change. A non-nil error is fatal
// to the run; every other failure is reported through the Advance.
func (p *Pager) advance(ctx context.Context, src DocumentSource) (Advance, error) {
	timeout := p.profile.Timeout()

	anchor, err := src.Capture(ctx, p.profile.ItemSelector)
	if err != nil {
		if p.isFatal(ctx, err) {
			return Advance{}, p.fatal(ctx, "capture anchor", err)
		}
		if !errors.Is(err, ErrNoNode) {
			p.log.Debug().Err(err).Msg("Anchor capture failed, falling back to presence wait")
		}
		anchor = ""
	}

	next, err := src.WaitClickable(ctx, p.profile.NextSelector(), timeout)
	if err != nil {
		if p.isFatal(ctx, err) {
			return Advance{}, p.fatal(ctx, "wait for next control", err)
		}
		if errors.Is(err, ErrTimeout) || errors.Is(err, ErrNoNode) {
			return Advance{Outcome: NoNextPage, Err: err}, nil
		}
		return p.transient(StageLocate, crawlerrors.NewNavigation(p.profile.Name, "locate next control", err), anchor), nil
	}

	if err := p.delay.Pace(ctx); err != nil {
		return Advance{}, err
	}
	if err := src.ScrollIntoView(ctx, next); err != nil {
		if p.isFatal(ctx, err) {
			return Advance{}, p.fatal(ctx, "scroll to next control", err)
		}
		return p.transient(StageClick, crawlerrors.NewNavigation(p.profile.Name, "scroll to next control", err), anchor), nil
	}
	if err := p.delay.Pause(ctx, PauseBeforeClick); err != nil {
		return Advance{}, err
	}
	if err := src.Click(ctx, next); err != nil {
		if p.isFatal(ctx, err) {
			return Advance{}, p.fatal(ctx, "click next control", err)
		}
		return p.transient(StageClick, crawlerrors.NewNavigation(p.profile.Name, "click next control", err), anchor), nil
	}

	return p.awaitChange(ctx, src, anchor)
}

// awaitChange waits for the clicked navigation to be observable: the anchor
// going stale, or without an anchor, an item node being present.
func (p *Pager) awaitChange(ctx context.Context, src DocumentSource, anchor NodeRef) (Advance, error) {
	timeout := p.profile.Timeout()

	var err error
	if anchor != "" {
		err = src.WaitStale(ctx, anchor, timeout)
	} else {
		err = src.WaitPresent(ctx, p.profile.ItemSelector, timeout)
	}
	if err != nil {
		if p.isFatal(ctx, err) {
			return Advance{}, p.fatal(ctx, "await view change", err)
		}
		var cause error = crawlerrors.NewNavigation(p.profile.Name, "await view change", err)
		if errors.Is(err, ErrTimeout) {
			cause = crawlerrors.NewTimeout(p.profile.Name, timeout, err)
		}
		return p.transient(StageChange, cause, anchor), nil
	}

	if err := p.delay.Pause(ctx, PauseRender); err != nil {
		return Advance{}, err
	}
	return Advance{Outcome: NextPage}, nil
}

func (p *Pager) transient(stage Stage, err error, anchor NodeRef) Advance {
	return Advance{Outcome: TransientError, Stage: stage, Err: err, anchor: anchor}
}

func (p *Pager) isFatal(ctx context.Context, err error) bool {
	return ctx.Err() != nil || errors.Is(err, ErrSourceUnavailable)
}

func (p *Pager) fatal(ctx context.Context, step string, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return crawlerrors.NewSession(p.profile.Name, step, err)
}
