package tradebuf

import (
	"context"
	"fmt"

	"github.com/goccy/go-json"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"solana-curve-indexer/internal/domain"
)

// DefaultChannel is the pub/sub channel trade records travel on.
const DefaultChannel = "trade"

// RedisQueue publishes trade records as JSON over Redis pub/sub.
type RedisQueue struct {
	client  *redis.Client
	channel string
	logger  zerolog.Logger
}

var _ Queue = (*RedisQueue)(nil)

// RedisQueueOptions configures RedisQueue.
type RedisQueueOptions struct {
	Channel string
	Logger  zerolog.Logger
}

// NewRedisQueue connects to url (redis://...) and verifies the connection.
func NewRedisQueue(ctx context.Context, url string, opts RedisQueueOptions) (*RedisQueue, error) {
	redisOpts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(redisOpts)
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return NewRedisQueueFromClient(client, opts), nil
}

// NewRedisQueueFromClient wraps an existing client.
func NewRedisQueueFromClient(client *redis.Client, opts RedisQueueOptions) *RedisQueue {
	channel := opts.Channel
	if channel == "" {
		channel = DefaultChannel
	}
	return &RedisQueue{
		client:  client,
		channel: channel,
		logger:  opts.Logger.With().Str("component", "redis_queue").Logger(),
	}
}

// Publish sends rec on the channel.
func (q *RedisQueue) Publish(ctx context.Context, rec domain.TradeRecord) error {
	payload, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal trade: %w", err)
	}
	receivers, err := q.client.Publish(ctx, q.channel, payload).Result()
	if err != nil {
		return fmt.Errorf("publish trade: %w", err)
	}
	if receivers == 0 {
		return ErrNoSubscribers
	}
	return nil
}

// Subscribe returns decoded records from the channel. Undecodable payloads are
// logged and skipped.
func (q *RedisQueue) Subscribe(ctx context.Context) (<-chan domain.TradeRecord, error) {
	sub := q.client.Subscribe(ctx, q.channel)
	// Wait for the subscription confirmation so no publish is missed after return.
	if _, err := sub.Receive(ctx); err != nil {
		sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", q.channel, err)
	}

	out := make(chan domain.TradeRecord, 1024)
	msgs := sub.Channel()
	go func() {
		defer close(out)
		defer sub.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var rec domain.TradeRecord
				if err := json.Unmarshal([]byte(msg.Payload), &rec); err != nil {
					q.logger.Warn().Err(err).Msg("skip undecodable trade payload")
					continue
				}
				select {
				case out <- rec:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// Close closes the client.
func (q *RedisQueue) Close() error {
	return q.client.Close()
}
