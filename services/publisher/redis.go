package publisher

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"math/rand/v2"
	"strconv"

	"github.com/redis/go-redis/v9"

	"sjsage522/silkdeal/internal/pager"
	"sjsage522/silkdeal/logger"
)

// RecordField is the stream entry field holding the base64 JSON record.
const RecordField = "b64_deal"

// RedisPublisher implements Publisher using Redis streams
type RedisPublisher struct {
	client          *redis.Client
	streamPrefix    string
	streamCount     int
	streamMaxLength int64
	log             *logger.Logger
}

// NewRedisPublisher creates a new Redis publisher
func NewRedisPublisher(addr string, db int, streamPrefix string, streamCount int, streamMaxLength int64) *RedisPublisher {
	client := redis.NewClient(&redis.Options{
		Addr: addr,
		DB:   db,
	})
	if streamCount < 1 {
		streamCount = 1
	}

	return &RedisPublisher{
		client:          client,
		streamPrefix:    streamPrefix,
		streamCount:     streamCount,
		streamMaxLength: streamMaxLength,
		log:             logger.ForPublisher("redis"),
	}
}

// Ping checks that the server is reachable.
func (p *RedisPublisher) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// Publish adds the record to a Redis stream.
// The JSON record is base64 encoded before publishing.
func (p *RedisPublisher) Publish(ctx context.Context, profile string, rec pager.Record) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	encoded := base64.StdEncoding.EncodeToString(payload)

	// random stream name by streamCount
	// if streamCount is 10, stream name will be stream:0 ~ stream:9
	stream := p.streamPrefix + ":" + strconv.Itoa(rand.IntN(p.streamCount))

	return p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: stream,
		Values: map[string]interface{}{
			"profile":   profile,
			RecordField: encoded,
		},
	}).Err()
}

// TrimStreams trims all streams to the configured maximum length
func (p *RedisPublisher) TrimStreams(ctx context.Context) error {
	if p.streamMaxLength <= 0 {
		return nil
	}
	for i := 0; i < p.streamCount; i++ {
		stream := p.streamPrefix + ":" + strconv.Itoa(i)
		if err := p.client.XTrimMaxLen(ctx, stream, p.streamMaxLength).Err(); err != nil {
			return err
		}
	}
	p.log.Debug().
		Int("streams", p.streamCount).
		Int64("max_len", p.streamMaxLength).
		Msg("Trimmed streams")
	return nil
}

// Close closes the Redis connection
func (p *RedisPublisher) Close() error {
	return p.client.Close()
}
