package publisher

import (
	"context"
	"errors"
	"time"

	"sjsage522/silkdeal/internal/pager"
	"sjsage522/silkdeal/logger"
	crawlerrors "sjsage522/silkdeal/pkg/errors"
	"sjsage522/silkdeal/services/cache"
)

// DedupPublisher forwards a record only when its key (url, otherwise
// title) was not published within ttl. Records without a key always pass.
// Cache failures are logged and never block publishing.
type DedupPublisher struct {
	next  Publisher
	cache cache.CacheService
	ttl   time.Duration
	log   *logger.Logger
}

// NewDedupPublisher wraps next with cache-backed de-duplication.
func NewDedupPublisher(next Publisher, c cache.CacheService, ttl time.Duration) *DedupPublisher {
	return &DedupPublisher{
		next:  next,
		cache: c,
		ttl:   ttl,
		log:   logger.ForPublisher("dedup"),
	}
}

func (d *DedupPublisher) Publish(ctx context.Context, profile string, rec pager.Record) error {
	key := rec.Key()
	if key == "" {
		return d.next.Publish(ctx, profile, rec)
	}
	key = profile + "|" + key

	_, err := d.cache.Get(key)
	switch {
	case err == nil:
		d.log.Debug().Str("profile", profile).Str("key", rec.Key()).Msg("Skipping seen record")
		return nil
	case !errors.Is(err, cache.ErrCacheMiss):
		d.log.Warn().Err(crawlerrors.NewCache(profile, "lookup "+rec.Key(), err)).Msg("Cache lookup failed")
	}

	if err := d.next.Publish(ctx, profile, rec); err != nil {
		return err
	}
	if err := d.cache.Set(key, []byte("1"), d.ttl); err != nil {
		d.log.Warn().Err(crawlerrors.NewCache(profile, "mark "+rec.Key(), err)).Msg("Cache update failed")
	}
	return nil
}

// TrimStreams trims the wrapped publisher when it supports trimming.
func (d *DedupPublisher) TrimStreams(ctx context.Context) error {
	if t, ok := d.next.(Trimmer); ok {
		return t.TrimStreams(ctx)
	}
	return nil
}

func (d *DedupPublisher) Close() error {
	return d.next.Close()
}
