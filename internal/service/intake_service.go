package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/filter"
	"github.com/bloxxvault/ticket-bot/internal/observability"
	"github.com/bloxxvault/ticket-bot/internal/platform"
)

// Verdict is the outcome of screening one message.
type Verdict string

const (
	VerdictSkipped    Verdict = "skipped"
	VerdictPass       Verdict = "pass"
	VerdictTagAbuse   Verdict = "tag_abuse"
	VerdictBannedWord Verdict = "banned_word"
)

// Stopped reports whether the message must not reach command processing.
func (v Verdict) Stopped() bool {
	return v == VerdictTagAbuse || v == VerdictBannedWord
}

// IntakeService screens inbound guild messages.
type IntakeService struct {
	client      platform.Client
	staffRoleID string
	words       *filter.WordList
	dispatcher  events.Dispatcher
	metrics     *observability.Metrics
	logger      *zap.Logger
}

// NewIntakeService constructs the service.
func NewIntakeService(deps TicketDependencies) *IntakeService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IntakeService{
		client:      deps.Client,
		staffRoleID: deps.Config.StaffRoleID,
		words:       filter.NewWordList(deps.Config.BlacklistedWords),
		dispatcher:  deps.Dispatcher,
		metrics:     deps.Metrics,
		logger:      logger,
	}
}

// HandleMessage applies the tag-abuse check, then the banned-word check.
// Only the first matching rule acts on a message.
func (s *IntakeService) HandleMessage(ctx context.Context, msg *platform.Message) (Verdict, error) {
	if msg.Author.Bot || msg.GuildID == "" {
		return VerdictSkipped, nil
	}

	if filter.TagAbuse(msg.Content, msg.MentionRoleIDs, s.staffRoleID) {
		s.remove(ctx, msg)
		s.warn(ctx, msg, "⚠️ "+msg.Author.Mention()+" please don't tag staff or use everyone/here. They will respond when available.")
		s.metrics.FilterVerdict(string(VerdictTagAbuse))
		return VerdictTagAbuse, nil
	}

	if term, ok := s.words.Match(msg.Content); ok {
		s.remove(ctx, msg)
		publishEvent(ctx, s.dispatcher, events.Event{
			Type:      events.EventMessageViolation,
			GuildID:   msg.GuildID,
			ChannelID: msg.ChannelID,
			Actor:     actorOf(msg.Author),
			Payload:   events.MessageViolationPayload{Term: term, Content: msg.Content},
		})
		s.warn(ctx, msg, "⚠️ "+msg.Author.Mention()+" your message contained a forbidden word and was removed.")
		s.metrics.FilterVerdict(string(VerdictBannedWord))
		return VerdictBannedWord, nil
	}

	s.metrics.FilterVerdict(string(VerdictPass))
	return VerdictPass, nil
}

func (s *IntakeService) remove(ctx context.Context, msg *platform.Message) {
	if err := s.client.DeleteMessage(ctx, msg.ChannelID, msg.ID); err != nil {
		s.logger.Debug("delete flagged message failed",
			zap.String("channel_id", msg.ChannelID),
			zap.String("message_id", msg.ID),
			zap.Error(err))
	}
}

func (s *IntakeService) warn(ctx context.Context, msg *platform.Message, text string) {
	if _, err := s.client.Send(ctx, msg.ChannelID, platform.OutgoingMessage{Content: text}); err != nil {
		s.metrics.DeliveryFailed("warning")
		s.logger.Debug("post warning failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}
