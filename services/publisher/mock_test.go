package publisher

import (
	"context"
	"errors"
	"time"

	"sjsage522/silkdeal/internal/pager"
	"sjsage522/silkdeal/services/cache"
)

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache  map[string][]byte
	getErr error
}

func NewMockCacheService() *MockCacheService {
	return &MockCacheService{cache: make(map[string][]byte)}
}

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, cache.ErrCacheMiss
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

type published struct {
	profile string
	rec     pager.Record
}

// MockPublisher records what it receives.
type MockPublisher struct {
	published []published
	err       error
	closeErr  error
	closed    bool
	trimmed   int
}

func (m *MockPublisher) Publish(ctx context.Context, profile string, rec pager.Record) error {
	if m.err != nil {
		return m.err
	}
	m.published = append(m.published, published{profile: profile, rec: rec})
	return nil
}

func (m *MockPublisher) TrimStreams(ctx context.Context) error {
	m.trimmed++
	return nil
}

func (m *MockPublisher) Close() error {
	m.closed = true
	return m.closeErr
}

var errPublish = errors.New("publish failed")

func deal(title, url string) pager.Record {
	rec := pager.Record{{Name: "title", Value: title, Found: title != ""}}
	rec = append(rec, pager.Field{Name: "url", Value: url, Found: url != ""})
	return rec
}
