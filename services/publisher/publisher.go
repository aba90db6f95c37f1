package publisher

import (
	"context"
	"errors"

	"sjsage522/silkdeal/internal/pager"
)

// Publisher represents a destination for extracted records
type Publisher interface {
	// Publish delivers one record extracted with the named profile
	Publish(ctx context.Context, profile string, rec pager.Record) error

	// Close releases the publisher's connections or files
	Close() error
}

// Trimmer is implemented by publishers whose storage must be bounded.
type Trimmer interface {
	// TrimStreams trims all streams to the configured maximum length
	TrimStreams(ctx context.Context) error
}

// Sink adapts p into the pager's RecordSink for one profile.
func Sink(p Publisher, profile string) pager.RecordSink {
	return pager.SinkFunc(func(ctx context.Context, rec pager.Record) error {
		return p.Publish(ctx, profile, rec)
	})
}

// MultiPublisher fans a record out to every publisher in order.
// The first failure stops the fan-out and is returned.
type MultiPublisher struct {
	publishers []Publisher
}

// NewMultiPublisher creates a fan-out publisher.
func NewMultiPublisher(publishers ...Publisher) *MultiPublisher {
	return &MultiPublisher{publishers: publishers}
}

func (m *MultiPublisher) Publish(ctx context.Context, profile string, rec pager.Record) error {
	for _, p := range m.publishers {
		if err := p.Publish(ctx, profile, rec); err != nil {
			return err
		}
	}
	return nil
}

// TrimStreams trims every member that supports it.
func (m *MultiPublisher) TrimStreams(ctx context.Context) error {
	var errs []error
	for _, p := range m.publishers {
		if t, ok := p.(Trimmer); ok {
			errs = append(errs, t.TrimStreams(ctx))
		}
	}
	return errors.Join(errs...)
}

// Close closes every member and joins their errors.
func (m *MultiPublisher) Close() error {
	var errs []error
	for _, p := range m.publishers {
		errs = append(errs, p.Close())
	}
	return errors.Join(errs...)
}
