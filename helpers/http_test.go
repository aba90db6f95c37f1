package helpers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchWithRandomHeaders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		assert.NotEmpty(t, r.Header.Get("Accept"))
		assert.NotEmpty(t, r.Header.Get("Referer"))

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("<html><body>Hello, World!</body></html>"))
	}))
	defer server.Close()

	page, err := FetchWithRandomHeaders(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, page.StatusCode)
	assert.Contains(t, string(page.Body), "Hello, World!")
}

func TestFetchWithRandomHeadersConvertsCharset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=iso-8859-1")
		w.WriteHeader(http.StatusOK)
		// "café" in ISO-8859-1
		w.Write([]byte("<html><body>caf\xe9</body></html>"))
	}))
	defer server.Close()

	page, err := FetchWithRandomHeaders(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Contains(t, string(page.Body), "café")
}

func TestFetchWithRandomHeadersKeepsStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	page, err := FetchWithRandomHeaders(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, page.StatusCode)
}

func TestFetchWithRandomHeadersRateLimited(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "30")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := FetchWithRandomHeaders(context.Background(), server.URL)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retry after 30")
}

func TestFetchWithRandomHeadersBadURL(t *testing.T) {
	_, err := FetchWithRandomHeaders(context.Background(), "http://127.0.0.1:0/unreachable")
	assert.Error(t, err)
}

func TestRandomUserAgent(t *testing.T) {
	for i := 0; i < 20; i++ {
		assert.Contains(t, userAgents, RandomUserAgent())
	}
}
