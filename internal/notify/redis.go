package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// DefaultStream is the stream notifications are appended to.
const DefaultStream = "migration:unresolved"

// streamMaxLen caps the stream length (approximate trimming).
const streamMaxLen = 10000

// RedisStream appends each notification to a Redis stream.
type RedisStream struct {
	client  *redis.Client
	stream  string
	timeout time.Duration
}

// NewRedisStream connects to redisURL and checks the connection.
func NewRedisStream(ctx context.Context, redisURL, stream string, timeout time.Duration) (*RedisStream, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, eris.Wrap(err, "notify: parse redis url")
	}
	client := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, eris.Wrap(err, "notify: redis ping")
	}
	return NewRedisStreamWithClient(client, stream, timeout), nil
}

// NewRedisStreamWithClient wraps an existing client.
func NewRedisStreamWithClient(client *redis.Client, stream string, timeout time.Duration) *RedisStream {
	if stream == "" {
		stream = DefaultStream
	}
	return &RedisStream{client: client, stream: stream, timeout: timeout}
}

func (r *RedisStream) Notify(ctx context.Context, payload map[string]any) {
	body, err := json.Marshal(payload)
	if err != nil {
		zap.L().Error("notify: marshal payload", zap.Error(err))
		return
	}
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	values := map[string]any{"payload": string(body)}
	if runID, ok := payload["run_id"].(string); ok {
		values["run_id"] = runID
	}
	err = r.client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.stream,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: values,
	}).Err()
	if err != nil {
		zap.L().Error("notify: redis stream append failed",
			zap.String("stream", r.stream),
			zap.Error(err),
		)
	}
}

// Close releases the Redis connection.
func (r *RedisStream) Close() error {
	return r.client.Close()
}
