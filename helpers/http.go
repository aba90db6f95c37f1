package helpers

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"slices"
	"time"

	"golang.org/x/net/html/charset"
)

// HTTP client and header configurations
var (
	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
		"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	}

	referers = []string{
		"https://www.google.com/",
		"https://www.bing.com/",
		"https://duckduckgo.com/",
	}

	// HTTP client with timeout
	client = &http.Client{
		Timeout: 10 * time.Second,
	}
)

// Page is a fetched document converted to UTF-8.
type Page struct {
	StatusCode int
	Body       []byte
}

// RandomUserAgent returns a desktop browser user agent from the pool.
func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}

// FetchWithRandomHeaders sends a GET request with browser-like headers and
// returns the body converted to UTF-8. Non-200 responses are returned as-is
// so callers can interpret the status; rate limiting is reported as an error.
func FetchWithRandomHeaders(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", RandomUserAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,text/plain;q=0.8,*/*;q=0.7")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Referer", referers[rand.IntN(len(referers))])
	req.Header.Set("Pragma", "no-cache")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch URL: %w", err)
	}
	defer resp.Body.Close()

	if slices.Contains([]int{http.StatusTooManyRequests, 430}, resp.StatusCode) {
		return nil, fmt.Errorf("rate limited; retry after %s", resp.Header.Get("Retry-After"))
	}

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	encoding, name, _ := charset.DetermineEncoding(bodyBytes, resp.Header.Get("Content-Type"))
	if name == "utf-8" || name == "UTF-8" {
		return &Page{StatusCode: resp.StatusCode, Body: bodyBytes}, nil
	}

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, encoding.NewDecoder().Reader(bytes.NewReader(bodyBytes))); err != nil {
		return nil, fmt.Errorf("failed to read converted UTF-8 body: %w", err)
	}
	return &Page{StatusCode: resp.StatusCode, Body: buf.Bytes()}, nil
}
