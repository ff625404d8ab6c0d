package queue

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/enterprise/fraud-dashboard/configs"
)

// Stream entry fields
const (
	fieldEvent = "event"
	fieldData  = "data"
)

const readBatchSize = 100

// RedisStreamChannel delivers alerts appended to a Redis Stream
type RedisStreamChannel struct {
	client        *redis.Client
	streamName    string
	blockDuration time.Duration
}

// NewRedisStreamChannel creates a new Redis stream channel
func NewRedisStreamChannel(cfg configs.RedisConfig) (*RedisStreamChannel, error) {
	opt, err := redis.ParseURL(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	blockDuration := cfg.BlockDuration
	if blockDuration <= 0 {
		blockDuration = 5 * time.Second
	}

	log.Info().Str("stream", cfg.StreamName).Msg("Redis Stream channel initialized")

	return &RedisStreamChannel{
		client:        client,
		streamName:    cfg.StreamName,
		blockDuration: blockDuration,
	}, nil
}

// Subscribe starts reading after the newest entry present in the stream
func (r *RedisStreamChannel) Subscribe(ctx context.Context, event string) (Subscription, error) {
	lastID := "0-0"

	latest, err := r.client.XRevRangeN(ctx, r.streamName, "+", "-", 1).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("failed to read stream position: %w", err)
	}
	if len(latest) > 0 {
		lastID = latest[0].ID
	}

	log.Info().
		Str("stream", r.streamName).
		Str("event", event).
		Str("from_id", lastID).
		Msg("Subscribed to alert stream")

	return &redisSubscription{
		client:        r.client,
		streamName:    r.streamName,
		event:         event,
		lastID:        lastID,
		blockDuration: r.blockDuration,
	}, nil
}

// HealthCheck pings the Redis server
func (r *RedisStreamChannel) HealthCheck(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis client
func (r *RedisStreamChannel) Close() error {
	return r.client.Close()
}

type redisSubscription struct {
	client        *redis.Client
	streamName    string
	event         string
	lastID        string
	blockDuration time.Duration
	pending       []Message
	closed        atomic.Bool
}

func (s *redisSubscription) Next(ctx context.Context) (Message, error) {
	for {
		if s.closed.Load() {
			return Message{}, ErrSubscriptionClosed
		}
		if len(s.pending) > 0 {
			msg := s.pending[0]
			s.pending = s.pending[1:]
			return msg, nil
		}
		if err := ctx.Err(); err != nil {
			return Message{}, err
		}

		streams, err := s.client.XRead(ctx, &redis.XReadArgs{
			Streams: []string{s.streamName, s.lastID},
			Count:   readBatchSize,
			Block:   s.blockDuration,
		}).Result()

		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue // block timed out
			}
			if s.closed.Load() {
				return Message{}, ErrSubscriptionClosed
			}
			if ctx.Err() != nil {
				return Message{}, ctx.Err()
			}
			return Message{}, fmt.Errorf("failed to read from stream: %w", err)
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				s.lastID = msg.ID

				parsed, err := parseStreamMessage(msg)
				if err != nil {
					log.Error().Err(err).Str("message_id", msg.ID).Msg("Failed to parse stream message")
					continue
				}
				if parsed.Event != s.event {
					continue
				}
				s.pending = append(s.pending, parsed)
			}
		}
	}
}

func (s *redisSubscription) Close() error {
	s.closed.Store(true)
	return nil
}

// parseStreamMessage extracts the event name and JSON body of a stream entry
func parseStreamMessage(msg redis.XMessage) (Message, error) {
	event, ok := msg.Values[fieldEvent].(string)
	if !ok {
		return Message{}, fmt.Errorf("missing %q field", fieldEvent)
	}

	data, ok := msg.Values[fieldData].(string)
	if !ok {
		return Message{}, fmt.Errorf("missing %q field", fieldData)
	}

	return Message{
		ID:      msg.ID,
		Event:   event,
		Payload: []byte(data),
	}, nil
}
