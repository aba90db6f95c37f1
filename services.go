package main

import (
	"context"
	"fmt"

	"sjsage522/silkdeal/config"
	"sjsage522/silkdeal/logger"
	"sjsage522/silkdeal/services/cache"
	"sjsage522/silkdeal/services/proxy"
	"sjsage522/silkdeal/services/publisher"
)

// Services holds all the initialized services
type Services struct {
	Cache     cache.CacheService
	Publisher publisher.Publisher
	Proxies   proxy.ProxyManager
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	if s.Publisher != nil {
		if err := s.Publisher.Close(); err != nil {
			logger.Default.Warn().Err(err).Msg("Failed to close publishers")
		}
	}
}

// initializeServices builds the sink chain and the proxy rotation from cfg.
// The JSON lines sink is always present; Redis, Postgres and the dedup cache
// are added when their address is configured.
func initializeServices(ctx context.Context, cfg *config.Config) (*Services, error) {
	services := &Services{}
	var sinks []publisher.Publisher
	fail := func(err error) (*Services, error) {
		for _, p := range sinks {
			_ = p.Close()
		}
		return nil, err
	}

	jsonl, err := publisher.NewJSONLinesPublisher(cfg.OutputFile)
	if err != nil {
		return fail(err)
	}
	sinks = append(sinks, jsonl)

	if cfg.RedisAddr != "" {
		redisPublisher := publisher.NewRedisPublisher(
			cfg.RedisAddr,
			cfg.RedisDB,
			cfg.RedisStream,
			cfg.RedisStreamCount,
			cfg.RedisMaxLen,
		)
		sinks = append(sinks, redisPublisher)
		if err := redisPublisher.Ping(ctx); err != nil {
			return fail(fmt.Errorf("connect to redis at %s: %w", cfg.RedisAddr, err))
		}
		logger.Info("Connected to Redis at %s (DB: %d, Stream: %s)",
			cfg.RedisAddr, cfg.RedisDB, cfg.RedisStream)
	}

	if cfg.DatabaseURL != "" {
		pg, err := publisher.NewPostgresPublisher(ctx, cfg.DatabaseURL)
		if err != nil {
			return fail(err)
		}
		sinks = append(sinks, pg)
		logger.Info("Connected to Postgres")
	}

	var pub publisher.Publisher = publisher.NewMultiPublisher(sinks...)

	if cfg.MemcacheAddr != "" {
		cacheService := cache.NewMemcacheService(cfg.MemcacheAddr, "silkdeal:")
		if err := cacheService.Ping(); err != nil {
			logger.ForCache().Warn().Err(err).
				Str("addr", cfg.MemcacheAddr).
				Msg("Memcache unreachable, duplicates will be published")
		} else {
			logger.ForCache().Info().Str("addr", cfg.MemcacheAddr).Msg("Connected to Memcache")
		}
		services.Cache = cacheService
		pub = publisher.NewDedupPublisher(pub, cacheService, cfg.DedupTTL)
	}
	services.Publisher = pub

	if len(cfg.ProxyServers) > 0 {
		pm, err := proxy.NewProxyManager(cfg.ProxyServers)
		if err != nil {
			return fail(err)
		}
		if err := pm.UpdateProxies(ctx); err != nil {
			logger.Warn("Failed to initialize proxy manager, connecting directly: %v", err)
		} else {
			services.Proxies = pm
			logger.Default.Info().
				Interface("proxy_stats", pm.GetTopProxies(pm.Len())).
				Msg("Proxy stats")
		}
	}

	return services, nil
}
