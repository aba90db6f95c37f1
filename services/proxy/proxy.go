package proxy

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"sjsage522/silkdeal/logger"
)

// ProxyManager hands out proxies for browser sessions
type ProxyManager interface {
	UpdateProxies(ctx context.Context) error
	Next() (*ProxyInfo, error)
	GetTopProxies(n int) []ProxyInfo
}

// ProxyInfo holds proxy information with latency
type ProxyInfo struct {
	Host     string        `json:"host"`
	Port     int           `json:"port"`
	Type     string        `json:"type"`
	Latency  time.Duration `json:"latency"`
	LastTest time.Time     `json:"last_test"`
	Working  bool          `json:"working"`
}

// Server returns the proxy in the form Chrome's --proxy-server expects.
func (p ProxyInfo) Server() string {
	return p.Type + "://" + net.JoinHostPort(p.Host, strconv.Itoa(p.Port))
}

// ProxyManagerImpl rotates over a static list of proxies, fastest first.
// Unreachable proxies are dropped on every update.
type ProxyManagerImpl struct {
	configured []ProxyInfo
	proxies    []ProxyInfo
	next       int
	mutex      sync.Mutex

	dialTimeout time.Duration
	log         *logger.Logger
}

// NewProxyManager parses servers ("socks5://host:port", "http://host:port"
// or bare "host:port", which means socks5).
func NewProxyManager(servers []string) (*ProxyManagerImpl, error) {
	configured := make([]ProxyInfo, 0, len(servers))
	for _, s := range servers {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		p, err := parseProxy(s)
		if err != nil {
			return nil, err
		}
		configured = append(configured, p)
	}
	return &ProxyManagerImpl{
		configured:  configured,
		dialTimeout: 5 * time.Second,
		log:         logger.ForProxy(),
	}, nil
}

func parseProxy(s string) (ProxyInfo, error) {
	if !strings.Contains(s, "://") {
		s = "socks5://" + s
	}
	u, err := url.Parse(s)
	if err != nil {
		return ProxyInfo{}, fmt.Errorf("invalid proxy %q: %w", s, err)
	}
	switch u.Scheme {
	case "socks5", "http", "https":
	default:
		return ProxyInfo{}, fmt.Errorf("invalid proxy %q: unsupported scheme %q", s, u.Scheme)
	}
	port, err := strconv.Atoi(u.Port())
	if err != nil || port <= 0 || port > 65535 {
		return ProxyInfo{}, fmt.Errorf("invalid proxy %q: bad port", s)
	}
	if u.Hostname() == "" {
		return ProxyInfo{}, fmt.Errorf("invalid proxy %q: missing host", s)
	}
	return ProxyInfo{Host: u.Hostname(), Port: port, Type: u.Scheme}, nil
}

// Len returns the number of configured proxies.
func (pm *ProxyManagerImpl) Len() int {
	return len(pm.configured)
}

// testProxyLatency tests the latency of a single proxy
func (pm *ProxyManagerImpl) testProxyLatency(ctx context.Context, proxy *ProxyInfo) {
	addr := net.JoinHostPort(proxy.Host, strconv.Itoa(proxy.Port))
	testStart := time.Now()

	dialer := net.Dialer{Timeout: pm.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		pm.log.Debug().Str("proxy", addr).Err(err).Msg("TCP connection failed")
		proxy.Working = false
		proxy.Latency = time.Hour
		return
	}
	defer conn.Close()

	if proxy.Type == "socks5" && !pm.testSOCKS5Handshake(conn) {
		pm.log.Debug().Str("proxy", addr).Msg("SOCKS5 handshake failed")
		proxy.Working = false
		proxy.Latency = time.Hour
		return
	}

	proxy.Working = true
	proxy.Latency = time.Since(testStart)
	proxy.LastTest = time.Now()

	pm.log.Debug().
		Str("proxy", addr).
		Dur("latency", proxy.Latency).
		Msg("Proxy working")
}

// testSOCKS5Handshake performs a basic SOCKS5 handshake
func (pm *ProxyManagerImpl) testSOCKS5Handshake(conn net.Conn) bool {
	conn.SetDeadline(time.Now().Add(3 * time.Second))
	defer conn.SetDeadline(time.Time{})

	// SOCKS5 authentication request: [VER, NMETHODS, METHODS]
	// VER=5, NMETHODS=1, METHODS=0 (no authentication)
	if _, err := conn.Write([]byte{0x05, 0x01, 0x00}); err != nil {
		return false
	}

	// Read authentication response: [VER, METHOD]
	authResp := make([]byte, 2)
	if _, err := conn.Read(authResp); err != nil {
		return false
	}
	return authResp[0] == 0x05 && authResp[1] == 0x00
}

// UpdateProxies probes every configured proxy and keeps the working ones,
// fastest first.
func (pm *ProxyManagerImpl) UpdateProxies(ctx context.Context) error {
	candidates := make([]ProxyInfo, len(pm.configured))
	copy(candidates, pm.configured)

	var wg sync.WaitGroup
	semaphore := make(chan struct{}, 10) // Limit concurrent tests
	for i := range candidates {
		wg.Add(1)
		go func(proxy *ProxyInfo) {
			defer wg.Done()
			semaphore <- struct{}{}
			defer func() { <-semaphore }()
			pm.testProxyLatency(ctx, proxy)
		}(&candidates[i])
	}
	wg.Wait()

	working := candidates[:0]
	for _, p := range candidates {
		if p.Working {
			working = append(working, p)
		}
	}
	sort.Slice(working, func(i, j int) bool {
		return working[i].Latency < working[j].Latency
	})

	pm.mutex.Lock()
	pm.proxies = working
	pm.next = 0
	pm.mutex.Unlock()

	pm.log.Info().
		Int("configured", len(pm.configured)).
		Int("working", len(working)).
		Msg("Updated proxy list")

	if len(working) == 0 && len(pm.configured) > 0 {
		return fmt.Errorf("no working proxies among %d configured", len(pm.configured))
	}
	return nil
}

// Next returns the working proxies in rotation.
func (pm *ProxyManagerImpl) Next() (*ProxyInfo, error) {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if len(pm.proxies) == 0 {
		return nil, fmt.Errorf("no working proxies available")
	}
	p := pm.proxies[pm.next%len(pm.proxies)]
	pm.next++
	return &p, nil
}

// GetTopProxies returns the top N fastest proxies
func (pm *ProxyManagerImpl) GetTopProxies(n int) []ProxyInfo {
	pm.mutex.Lock()
	defer pm.mutex.Unlock()

	if n > len(pm.proxies) {
		n = len(pm.proxies)
	}
	result := make([]ProxyInfo, n)
	copy(result, pm.proxies[:n])
	return result
}
