package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/events"
)

// streamMaxLen caps the audit stream; older entries are trimmed approximately.
const streamMaxLen = 10000

// Redis wraps the go-redis client used for the audit stream.
type Redis struct {
	Client    *redis.Client
	streamKey string
}

// NewRedis connects to Redis using the provided configuration. It returns nil
// when no address is configured.
func NewRedis(cfg config.RedisConfig, logger *zap.Logger) *Redis {
	if cfg.Addr == "" {
		logger.Info("REDIS_ADDR not provided; audit stream disabled")
		return nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logger.Warn("unable to reach redis", zap.Error(err))
	} else {
		logger.Info("connected to redis")
	}

	return &Redis{Client: client, streamKey: cfg.StreamKey}
}

// Close closes the client.
func (r *Redis) Close() {
	if r != nil && r.Client != nil {
		_ = r.Client.Close()
	}
}

// Ping verifies Redis connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	return r.Client.Ping(ctx).Err()
}

// PublishAudit appends the event to the audit stream.
func (r *Redis) PublishAudit(ctx context.Context, event events.Event) error {
	if r == nil || r.Client == nil {
		return errors.New("redis client not configured")
	}
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	return r.Client.XAdd(ctx, &redis.XAddArgs{
		Stream: r.streamKey,
		MaxLen: streamMaxLen,
		Approx: true,
		Values: map[string]interface{}{
			"id":           event.ID,
			"type":         string(event.Type),
			"guild_id":     event.GuildID,
			"channel_id":   event.ChannelID,
			"channel_name": event.ChannelName,
			"actor_id":     event.Actor.UserID,
			"actor_name":   event.Actor.Name,
			"payload":      string(payload),
			"occurred_at":  event.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"),
		},
	}).Err()
}
