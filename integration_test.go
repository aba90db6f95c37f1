package main

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sjsage522/silkdeal/config"
	"sjsage522/silkdeal/helpers"
	"sjsage522/silkdeal/internal/crawler"
	"sjsage522/silkdeal/internal/pager"
	"sjsage522/silkdeal/services/publisher"
	"sjsage522/silkdeal/services/worker"
)

// This is a simple test HTML that mimics a slickdeals listing page
const testHTML = `
<!DOCTYPE html>
<html>
<head>
    <title>Test Deals</title>
</head>
<body>
    <ul class="bp-p-filterGrid_items">
        <li>
            <a class="bp-c-card_title bp-c-link" href="/f/1-test-deal-1">Test Deal 1</a>
            <span class="bp-c-card_subtitle">Amazon</span>
            <span class="bp-p-dealCard_price">$10.99</span>
        </li>
        <li>
            <a class="bp-c-card_title bp-c-link" href="/f/2-test-deal-2">Test Deal 2</a>
            <span class="bp-c-card_subtitle">Newegg</span>
        </li>
    </ul>
</body>
</html>
`

// staticSession loads pages over plain HTTP and serves them as a single view.
type staticSession struct {
	mu     sync.Mutex
	markup string
}

func (s *staticSession) Navigate(ctx context.Context, url string) error {
	page, err := helpers.FetchWithRandomHeaders(ctx, url)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.markup = string(page.Body)
	s.mu.Unlock()
	return nil
}

func (s *staticSession) Document() pager.DocumentSource {
	s.mu.Lock()
	defer s.mu.Unlock()
	return staticView(s.markup)
}

func (s *staticSession) Screenshot(ctx context.Context, path string) error {
	return os.WriteFile(path, []byte("png"), 0o644)
}

func (s *staticSession) Close() error { return nil }

type staticView string

func (v staticView) Markup(ctx context.Context) (string, error) { return string(v), nil }
func (v staticView) Capture(ctx context.Context, selector string) (pager.NodeRef, error) {
	return "", pager.ErrNoNode
}
func (v staticView) WaitClickable(ctx context.Context, selector string, timeout time.Duration) (pager.NodeRef, error) {
	return "", pager.ErrTimeout
}
func (v staticView) WaitStale(ctx context.Context, ref pager.NodeRef, timeout time.Duration) error {
	return pager.ErrTimeout
}
func (v staticView) WaitPresent(ctx context.Context, selector string, timeout time.Duration) error {
	return nil
}
func (v staticView) ScrollIntoView(ctx context.Context, ref pager.NodeRef) error { return nil }
func (v staticView) Click(ctx context.Context, ref pager.NodeRef) error          { return nil }
func (v staticView) PressKey(ctx context.Context, selector, key string) error    { return nil }
func (v staticView) MovePointer(ctx context.Context, dx, dy float64) error       { return nil }

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, testHTML)
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(t *testing.T, startURL string) *config.Config {
	t.Helper()
	return &config.Config{
		Environment:      "test",
		Profiles:         []string{"slickdeals"},
		StartURL:         startURL,
		WaitTimeout:      50 * time.Millisecond,
		OutputFile:       filepath.Join(t.TempDir(), "deals.jsonl"),
		RedisStream:      "silkdeals_test",
		RedisStreamCount: 1,
		RedisMaxLen:      100,
	}
}

func runTestWorker(t *testing.T, cfg *config.Config) {
	t.Helper()
	require.NoError(t, cfg.Validate())

	targets, err := crawler.CreateTargets(cfg)
	require.NoError(t, err)

	services, err := initializeServices(context.Background(), cfg)
	require.NoError(t, err)
	defer services.Cleanup()

	newSession := func(ctx context.Context, proxy string) (worker.Session, error) {
		return &staticSession{}, nil
	}
	w := worker.NewWorker(targets, services.Publisher, newSession, worker.Options{
		NewDelay: func() pager.Delay { return pager.NoDelay{} },
	})
	require.NoError(t, w.Start(context.Background()))
}

func readLines(t *testing.T, path string) []map[string]any {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	var out []map[string]any
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var m map[string]any
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &m))
		out = append(out, m)
	}
	require.NoError(t, scanner.Err())
	return out
}

// TestIntegration runs the worker end to end against a local listing
// and checks the JSON lines output.
func TestIntegration(t *testing.T) {
	server := newTestServer(t)
	cfg := testConfig(t, server.URL)

	runTestWorker(t, cfg)

	lines := readLines(t, cfg.OutputFile)
	require.Len(t, lines, 2)

	assert.Equal(t, "Test Deal 1", lines[0]["title"])
	assert.Equal(t, "https://slickdeals.net/f/1-test-deal-1", lines[0]["url"])
	assert.Equal(t, "Amazon", lines[0]["store"])
	assert.Equal(t, "$10.99", lines[0]["price"])

	assert.Equal(t, "Test Deal 2", lines[1]["title"])
	assert.Nil(t, lines[1]["price"])
}

// TestIntegrationRedis also publishes to a local Redis stream.
func TestIntegrationRedis(t *testing.T) {
	if os.Getenv("CI") != "" {
		t.Skip("Skipping integration test in CI environment")
	}

	ctx := context.Background()
	redisAddr := "localhost:6379"
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr, DB: 0})
	defer redisClient.Close()
	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping integration test")
	}

	server := newTestServer(t)
	cfg := testConfig(t, server.URL)
	cfg.RedisAddr = redisAddr
	stream := cfg.RedisStream + ":0"
	require.NoError(t, redisClient.Del(ctx, stream).Err())
	defer redisClient.Del(ctx, stream)

	runTestWorker(t, cfg)

	entries, err := redisClient.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, "slickdeals", entries[0].Values["profile"])
	decoded, err := base64.StdEncoding.DecodeString(entries[0].Values[publisher.RecordField].(string))
	require.NoError(t, err)

	var deal map[string]any
	require.NoError(t, json.Unmarshal(decoded, &deal))
	assert.Equal(t, "Test Deal 1", deal["title"])
}
