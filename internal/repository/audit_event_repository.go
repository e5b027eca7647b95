package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bloxxvault/ticket-bot/internal/events"
)

// AuditEventRepository archives audit events. The archive is write-mostly and
// is never consulted to rebuild ticket state.
type AuditEventRepository interface {
	Create(ctx context.Context, event events.Event) error
	ListByChannel(ctx context.Context, channelID string, limit int) ([]events.Event, error)
}

type auditEventRepository struct {
	pool *pgxpool.Pool
}

// NewAuditEventRepository builds repository.
func NewAuditEventRepository(pool *pgxpool.Pool) AuditEventRepository {
	return &auditEventRepository{pool: pool}
}

func (r *auditEventRepository) Create(ctx context.Context, event events.Event) error {
	payload, err := json.Marshal(event.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	const query = `
        INSERT INTO audit_events (id, event_type, guild_id, channel_id, channel_name, actor_id, actor_name, payload, occurred_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
        ON CONFLICT (id) DO NOTHING`
	_, err = r.pool.Exec(ctx, query,
		event.ID,
		string(event.Type),
		event.GuildID,
		event.ChannelID,
		event.ChannelName,
		event.Actor.UserID,
		event.Actor.Name,
		payload,
		event.Timestamp,
	)
	return err
}

func (r *auditEventRepository) ListByChannel(ctx context.Context, channelID string, limit int) ([]events.Event, error) {
	if limit <= 0 {
		limit = 100
	}
	const query = `
        SELECT id, event_type, guild_id, channel_id, channel_name, actor_id, actor_name, payload, occurred_at
        FROM audit_events WHERE channel_id=$1 ORDER BY occurred_at ASC LIMIT $2`
	rows, err := r.pool.Query(ctx, query, channelID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []events.Event
	for rows.Next() {
		var (
			event     events.Event
			eventType string
			payload   []byte
		)
		if err := rows.Scan(
			&event.ID,
			&eventType,
			&event.GuildID,
			&event.ChannelID,
			&event.ChannelName,
			&event.Actor.UserID,
			&event.Actor.Name,
			&payload,
			&event.Timestamp,
		); err != nil {
			return nil, err
		}
		event.Type = events.EventType(eventType)
		if len(payload) > 0 {
			var decoded map[string]any
			if err := json.Unmarshal(payload, &decoded); err != nil {
				return nil, fmt.Errorf("decode payload %s: %w", event.ID, err)
			}
			event.Payload = decoded
		}
		result = append(result, event)
	}
	return result, rows.Err()
}
