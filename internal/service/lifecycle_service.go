package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/auth"
	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/observability"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	"github.com/bloxxvault/ticket-bot/internal/repository"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

// Archiver captures a channel transcript before deletion.
type Archiver interface {
	Archive(ctx context.Context, guildID string, channel *platform.Channel) (*TranscriptReport, error)
}

// LifecycleService implements the staff actions on a live ticket.
type LifecycleService struct {
	client     platform.Client
	cfg        config.TicketConfig
	registry   repository.TicketRegistry
	dispatcher events.Dispatcher
	archiver   Archiver
	openers    openerResolver
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
	sleep      func(ctx context.Context, d time.Duration) error
}

// ActionInput identifies who acts on which ticket channel.
type ActionInput struct {
	GuildID string
	Actor   *platform.Member
	Channel *platform.Channel
	Reply   platform.Replier
}

// RenameInput carries the requested channel name.
type RenameInput struct {
	ActionInput
	NewName string
}

// NewLifecycleService constructs the service.
func NewLifecycleService(deps TicketDependencies, archiver Archiver) *LifecycleService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = repository.NewTicketRegistry()
	}
	return &LifecycleService{
		client:     deps.Client,
		cfg:        deps.Config,
		registry:   registry,
		dispatcher: deps.Dispatcher,
		archiver:   archiver,
		openers:    openerResolver{client: deps.Client, registry: registry, logger: logger},
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
		sleep:      sleepContext,
	}
}

// Claim announces the acting staff member as the ticket's handler. Claiming
// an already claimed ticket re-announces.
func (s *LifecycleService) Claim(ctx context.Context, input ActionInput) error {
	if err := auth.RequireStaff(input.Actor, s.cfg.StaffRoleID, "tickets claimen"); err != nil {
		s.metrics.TicketAction("claim", apperrors.CodeForbidden)
		return err
	}
	actor := input.Actor.User
	channel := input.Channel

	guild, err := s.client.Guild(ctx, input.GuildID)
	if err != nil {
		return fmt.Errorf("resolve guild: %w", err)
	}

	if err := input.Reply.Reply(ctx, platform.Reply{
		Content: "📌 Ticket claimed by " + actor.Mention(),
	}); err != nil {
		return fmt.Errorf("acknowledge claim: %w", err)
	}

	openerID, opener := s.openers.resolve(ctx, input.GuildID, channel)
	openerMention := "the user"
	if opener != nil {
		openerMention = opener.User.Mention()
	}
	if _, err := s.client.Send(ctx, channel.ID, platform.OutgoingMessage{
		Content: fmt.Sprintf("Hello %s, I am **%s** from the **%s Support Team**. "+
			"I'll be helping you today — please describe your issue in detail.", openerMention, actor.Name, guild.Name),
	}); err != nil {
		return fmt.Errorf("send introduction: %w", err)
	}

	reclaim := false
	now := s.now().UTC()
	s.registry.Update(channel.ID, func(t *domain.Ticket) {
		reclaim = t.ClaimedBy != nil
		claimer := actor.ID
		t.ClaimedBy = &claimer
		t.State = domain.TicketStateClaimed
		t.UpdatedAt = now
	})

	s.metrics.TicketAction("claim", "ok")
	s.logger.Info("ticket claimed",
		zap.String("channel_id", channel.ID),
		zap.String("staff_id", actor.ID),
		zap.Bool("reclaim", reclaim))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:        events.EventTicketClaimed,
		GuildID:     input.GuildID,
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		Actor:       actorOf(actor),
		Timestamp:   now,
		Payload:     events.TicketClaimedPayload{OpenerID: openerID, Reclaim: reclaim},
	})
	return nil
}

// Rename changes a ticket channel's name. The new name no longer encodes the
// opener, so later duplicate checks by name will not find it.
func (s *LifecycleService) Rename(ctx context.Context, input RenameInput) error {
	if err := auth.RequireStaff(input.Actor, s.cfg.StaffRoleID, "tickets hernoemen"); err != nil {
		s.metrics.TicketAction("rename", apperrors.CodeForbidden)
		return err
	}
	channel := input.Channel
	if !domain.IsTicketChannel(channel.Name) {
		s.metrics.TicketAction("rename", apperrors.CodeNotATicketChannel)
		return apperrors.NewNotATicketChannel("Dit commando werkt alleen in ticket-kanalen.")
	}

	sanitized := domain.SanitizeChannelName(input.NewName)
	renamed, err := s.client.RenameChannel(ctx, channel.ID, sanitized)
	if err != nil {
		return fmt.Errorf("rename channel: %w", err)
	}

	if err := input.Reply.Reply(ctx, platform.Reply{
		Content:   fmt.Sprintf("Kanaal hernoemd naar `%s`", sanitized),
		Ephemeral: true,
	}); err != nil {
		s.logger.Debug("rename acknowledgement failed", zap.String("channel_id", channel.ID), zap.Error(err))
	}

	now := s.now().UTC()
	s.registry.Update(channel.ID, func(t *domain.Ticket) {
		t.ChannelName = renamed.Name
		t.UpdatedAt = now
	})

	actor := input.Actor.User
	s.metrics.TicketAction("rename", "ok")
	s.logger.Info("ticket renamed",
		zap.String("channel_id", channel.ID),
		zap.String("old_name", channel.Name),
		zap.String("new_name", sanitized))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:        events.EventTicketRenamed,
		GuildID:     input.GuildID,
		ChannelID:   channel.ID,
		ChannelName: sanitized,
		Actor:       actorOf(actor),
		Timestamp:   now,
		Payload:     events.TicketRenamedPayload{OldName: channel.Name, NewName: sanitized},
	})
	return nil
}

// Close archives the transcript and deletes the ticket channel.
func (s *LifecycleService) Close(ctx context.Context, input ActionInput) error {
	if err := auth.RequireStaff(input.Actor, s.cfg.StaffRoleID, "tickets sluiten"); err != nil {
		s.metrics.TicketAction("close", apperrors.CodeForbidden)
		return err
	}
	channel := input.Channel

	if err := input.Reply.Reply(ctx, platform.Reply{Content: "Sluit-proces gestart...", Ephemeral: true}); err != nil {
		s.logger.Debug("close acknowledgement failed", zap.String("channel_id", channel.ID), zap.Error(err))
	}

	report, err := s.archiver.Archive(ctx, input.GuildID, channel)
	if err != nil {
		return fmt.Errorf("archive transcript: %w", err)
	}

	if _, err := s.client.Send(ctx, channel.ID, platform.OutgoingMessage{
		Content: "Ticket gesloten door staff. Transcript wordt opgeslagen.",
	}); err != nil {
		s.logger.Debug("closing notice failed", zap.String("channel_id", channel.ID), zap.Error(err))
	}

	if err := s.sleep(ctx, s.cfg.CloseGracePeriod); err != nil {
		return err
	}
	if err := s.client.DeleteChannel(ctx, channel.ID); err != nil {
		return fmt.Errorf("delete channel: %w", err)
	}
	s.registry.Remove(channel.ID)

	actor := input.Actor.User
	s.metrics.TicketAction("close", "ok")
	s.logger.Info("ticket closed",
		zap.String("channel_id", channel.ID),
		zap.String("staff_id", actor.ID),
		zap.Int("transcript_lines", report.Lines),
		zap.Bool("opener_notified", report.OpenerNotified))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:        events.EventTicketClosed,
		GuildID:     input.GuildID,
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		Actor:       actorOf(actor),
		Timestamp:   s.now().UTC(),
		Payload: events.TicketClosedPayload{
			OpenerID:        report.OpenerID,
			TranscriptLines: report.Lines,
			OpenerNotified:  report.OpenerNotified,
		},
	})
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
