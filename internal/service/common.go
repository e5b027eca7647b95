package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	"github.com/bloxxvault/ticket-bot/internal/repository"
)

// Embed colours.
const (
	colorBrand   = 0xF59E42
	colorSuccess = 0x2ECC71
	colorAlert   = 0xE74C3C
	colorNeutral = 0x95A5A6
)

var errOpenerUnresolved = errors.New("opener could not be resolved")

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}
	_ = dispatcher.Publish(ctx, event)
}

func actorOf(u platform.User) events.Actor {
	return events.Actor{UserID: u.ID, Name: u.Name}
}

// openerResolver finds the member who opened a ticket channel. The registry
// survives renames; the channel name is the fallback after a restart.
type openerResolver struct {
	client   platform.Client
	registry repository.TicketRegistry
	logger   *zap.Logger
}

func (r openerResolver) openerID(channel *platform.Channel) (string, bool) {
	if r.registry != nil {
		if t, ok := r.registry.Get(channel.ID); ok && t.OpenerID != "" {
			return t.OpenerID, true
		}
	}
	return domain.OpenerFromChannelName(channel.Name)
}

// resolve returns the opener id (possibly empty) and the member, or nil when
// the opener is unknown or has left the guild.
func (r openerResolver) resolve(ctx context.Context, guildID string, channel *platform.Channel) (string, *platform.Member) {
	id, ok := r.openerID(channel)
	if !ok {
		return "", nil
	}
	member, err := r.client.Member(ctx, guildID, id)
	if err != nil {
		r.logger.Debug("opener lookup failed",
			zap.String("channel_id", channel.ID),
			zap.String("opener_id", id),
			zap.Error(err))
		return id, nil
	}
	return id, member
}
