package pager

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNoNode is returned when a selector matches nothing.
	ErrNoNode = errors.New("no matching node")
	// ErrTimeout is returned when a bounded wait expires.
	ErrTimeout = errors.New("wait timed out")
	// ErrSourceUnavailable marks failures of the session itself, e.g. a
	// crashed browser. These end a run with an error.
	ErrSourceUnavailable = errors.New("document source unavailable")
)

// KeyPageDown is the key sent during the settle step.
const KeyPageDown = "PageDown"

// NodeRef is an opaque handle to a node, issued by a DocumentSource.
type NodeRef string

// DocumentSource is a live, navigable document.
type DocumentSource interface {
	// Markup returns the currently rendered document.
	Markup(ctx context.Context) (string, error)
	// Capture returns a handle to the first node matching selector, or ErrNoNode.
	Capture(ctx context.Context, selector string) (NodeRef, error)
	WaitClickable(ctx context.Context, selector string, timeout time.Duration) (NodeRef, error)
	// WaitStale waits until ref is detached from the document.
	WaitStale(ctx context.Context, ref NodeRef, timeout time.Duration) error
	WaitPresent(ctx context.Context, selector string, timeout time.Duration) error
	ScrollIntoView(ctx context.Context, ref NodeRef) error
	Click(ctx context.Context, ref NodeRef) error
	PressKey(ctx context.Context, selector, key string) error
	MovePointer(ctx context.Context, dx, dy float64) error
}

// RecordSink receives records one at a time, in order.
type RecordSink interface {
	Publish(ctx context.Context, rec Record) error
}

// SinkFunc adapts a function to RecordSink.
type SinkFunc func(ctx context.Context, rec Record) error

func (f SinkFunc) Publish(ctx context.Context, rec Record) error {
	return f(ctx, rec)
}
