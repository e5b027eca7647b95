package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/observability"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

// AuditArchive stores audit events outside the chat platform.
type AuditArchive interface {
	Create(ctx context.Context, event events.Event) error
}

// AuditStream fans audit events out to other consumers.
type AuditStream interface {
	PublishAudit(ctx context.Context, event events.Event) error
}

// AuditService renders domain events into the log channel and mirrors them.
type AuditService struct {
	dispatcher   events.Dispatcher
	client       platform.Client
	logChannelID string
	archive      AuditArchive
	stream       AuditStream
	metrics      *observability.Metrics
	logger       *zap.Logger
}

// AuditDependencies bundles audit collaborators. Archive and Stream are optional.
type AuditDependencies struct {
	Dispatcher   events.Dispatcher
	Client       platform.Client
	LogChannelID string
	Archive      AuditArchive
	Stream       AuditStream
	Metrics      *observability.Metrics
	Logger       *zap.Logger
}

// NewAuditService creates the service.
func NewAuditService(deps AuditDependencies) *AuditService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuditService{
		dispatcher:   deps.Dispatcher,
		client:       deps.Client,
		logChannelID: deps.LogChannelID,
		archive:      deps.Archive,
		stream:       deps.Stream,
		metrics:      deps.Metrics,
		logger:       logger,
	}
}

// RegisterHandlers subscribes to every audited event.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	for _, t := range events.AllTypes() {
		a.dispatcher.Subscribe(t, a.handle)
	}
}

func (a *AuditService) handle(ctx context.Context, event events.Event) error {
	a.logger.Info("audit",
		zap.String("event_type", string(event.Type)),
		zap.String("channel_id", event.ChannelID),
		zap.String("actor_id", event.Actor.UserID))

	a.mirror(ctx, event)

	if a.logChannelID == "" {
		a.logger.Debug("log channel not configured; audit entry dropped", zap.String("event_id", event.ID))
		return nil
	}
	msg, ok := RenderAudit(event)
	if !ok {
		return nil
	}
	if _, err := a.client.Send(ctx, a.logChannelID, msg); err != nil {
		a.metrics.DeliveryFailed("audit")
		return apperrors.NewDeliveryFailure("log channel", err)
	}
	return nil
}

func (a *AuditService) mirror(ctx context.Context, event events.Event) {
	if a.archive != nil {
		if err := a.archive.Create(ctx, event); err != nil {
			a.metrics.DeliveryFailed("audit_archive")
			a.logger.Warn("audit archive insert failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
	if a.stream != nil {
		if err := a.stream.PublishAudit(ctx, event); err != nil {
			a.metrics.DeliveryFailed("audit_stream")
			a.logger.Warn("audit stream publish failed", zap.String("event_id", event.ID), zap.Error(err))
		}
	}
}

// RenderAudit builds the log channel message for an event.
func RenderAudit(event events.Event) (platform.OutgoingMessage, bool) {
	channel := (&platform.Channel{ID: event.ChannelID}).Mention()
	actor := platform.User{ID: event.Actor.UserID}.Mention()
	embed := func(title, description string, color int) platform.OutgoingMessage {
		return platform.OutgoingMessage{Embed: &platform.Embed{
			Title:       title,
			Description: description,
			Color:       color,
			Timestamp:   event.Timestamp,
		}}
	}

	switch p := event.Payload.(type) {
	case events.TicketCreatedPayload:
		return embed("🆕 Ticket created",
			fmt.Sprintf("Ticket %s (%s) geopend door %s", channel, p.Category, actor), colorBrand), true
	case events.TicketClaimedPayload:
		return embed("✅ Ticket claimed",
			fmt.Sprintf("%s claimed by %s", channel, actor), colorSuccess), true
	case events.TicketRenamedPayload:
		return platform.OutgoingMessage{
			Content: fmt.Sprintf("✏️ %s renamed a ticket to `%s`", actor, p.NewName),
		}, true
	case events.TicketClosedPayload:
		dm := "nee"
		if p.OpenerNotified {
			dm = "ja"
		}
		msg := embed("🔒 Ticket closed",
			fmt.Sprintf("`%s` gesloten door %s", event.ChannelName, actor), colorNeutral)
		msg.Embed.Fields = []platform.EmbedField{
			{Name: "Transcript", Value: fmt.Sprintf("%d regels", p.TranscriptLines), Inline: true},
			{Name: "Opener DM", Value: dm, Inline: true},
		}
		return msg, true
	case events.MessageViolationPayload:
		return embed("🚨 Blacklisted word detected",
			fmt.Sprintf("User %s used a blacklisted word in %s.\nWord: `%s`\nMessage: %s", actor, channel, p.Term, p.Content),
			colorAlert), true
	default:
		return platform.OutgoingMessage{}, false
	}
}
