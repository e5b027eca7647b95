package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/events"
	"github.com/bloxxvault/ticket-bot/internal/observability"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	"github.com/bloxxvault/ticket-bot/internal/repository"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

// TicketService provisions new ticket channels.
type TicketService struct {
	client     platform.Client
	cfg        config.TicketConfig
	registry   repository.TicketRegistry
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// TicketDependencies bundles collaborators shared by the ticket services.
type TicketDependencies struct {
	Client     platform.Client
	Config     config.TicketConfig
	Registry   repository.TicketRegistry
	Dispatcher events.Dispatcher
	Metrics    *observability.Metrics
	Logger     *zap.Logger
}

// OpenTicketInput describes a panel button press.
type OpenTicketInput struct {
	GuildID   string
	Requester platform.User
	Category  domain.Category
}

// NewTicketService constructs the service.
func NewTicketService(deps TicketDependencies) *TicketService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	registry := deps.Registry
	if registry == nil {
		registry = repository.NewTicketRegistry()
	}
	return &TicketService{
		client:     deps.Client,
		cfg:        deps.Config,
		registry:   registry,
		dispatcher: deps.Dispatcher,
		metrics:    deps.Metrics,
		logger:     logger,
		now:        time.Now,
	}
}

// OpenTicket creates the requester's ticket channel in the category's group.
func (s *TicketService) OpenTicket(ctx context.Context, input OpenTicketInput) (*platform.Channel, error) {
	requester := input.Requester
	if s.cfg.IsBlacklisted(requester.ID) {
		return nil, apperrors.NewBlacklisted("Je staat op de blacklist en kunt geen ticket openen.")
	}

	name := domain.ChannelName(requester.ID)
	existing, err := s.client.ChannelsByName(ctx, input.GuildID, name)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	if len(existing) > 0 {
		return nil, apperrors.NewDuplicateTicket("Je hebt al een open ticket!", map[string]any{
			"channel_id": existing[0].ID,
		})
	}

	group, err := s.resolveGroup(ctx, input.Category)
	if err != nil {
		return nil, err
	}

	channel, err := s.client.CreateChannel(ctx, input.GuildID, platform.CreateChannelInput{
		Name:     name,
		ParentID: group.ID,
		Topic:    domain.Topic(input.Category, requester.Name, requester.ID),
	})
	if err != nil {
		return nil, fmt.Errorf("create channel: %w", err)
	}

	// The @everyone role shares the guild id.
	if err := s.client.SetPermission(ctx, channel.ID, platform.Overwrite{TargetID: input.GuildID}); err != nil {
		return nil, s.abandon(ctx, channel, fmt.Errorf("restrict default role: %w", err))
	}
	if err := s.client.SetPermission(ctx, channel.ID, platform.Overwrite{
		TargetID: requester.ID,
		Member:   true,
		Read:     true,
		Write:    true,
	}); err != nil {
		return nil, s.abandon(ctx, channel, fmt.Errorf("grant requester: %w", err))
	}

	if _, err := s.client.Send(ctx, channel.ID, s.welcomeMessage(ctx, input)); err != nil {
		return nil, s.abandon(ctx, channel, fmt.Errorf("send welcome: %w", err))
	}

	now := s.now().UTC()
	s.registry.Put(domain.Ticket{
		ChannelID:   channel.ID,
		GuildID:     input.GuildID,
		ChannelName: channel.Name,
		OpenerID:    requester.ID,
		OpenerName:  requester.Name,
		Category:    input.Category,
		State:       domain.TicketStateOpen,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	s.metrics.TicketOpened(string(input.Category))
	s.logger.Info("ticket opened",
		zap.String("channel_id", channel.ID),
		zap.String("opener_id", requester.ID),
		zap.String("category", string(input.Category)))

	publishEvent(ctx, s.dispatcher, events.Event{
		Type:        events.EventTicketCreated,
		GuildID:     input.GuildID,
		ChannelID:   channel.ID,
		ChannelName: channel.Name,
		Actor:       actorOf(requester),
		Timestamp:   now,
		Payload: events.TicketCreatedPayload{
			Category: input.Category,
			OpenerID: requester.ID,
		},
	})
	return channel, nil
}

func (s *TicketService) resolveGroup(ctx context.Context, category domain.Category) (*platform.Channel, error) {
	misconfigured := func() error {
		return apperrors.NewCategoryMisconfigured("Categorie niet gevonden. Vraag een admin om te controleren.", map[string]any{
			"category": string(category),
		})
	}
	groupID, ok := s.cfg.GroupFor(category)
	if !ok {
		return nil, misconfigured()
	}
	group, err := s.client.Channel(ctx, groupID)
	if errors.Is(err, platform.ErrNotFound) {
		return nil, misconfigured()
	}
	if err != nil {
		return nil, fmt.Errorf("resolve group %s: %w", groupID, err)
	}
	if group.Kind != platform.ChannelKindCategory {
		return nil, misconfigured()
	}
	return group, nil
}

func (s *TicketService) welcomeMessage(ctx context.Context, input OpenTicketInput) platform.OutgoingMessage {
	staffPing := "@staff"
	if role, err := s.client.Role(ctx, input.GuildID, s.cfg.StaffRoleID); err == nil {
		staffPing = role.Mention()
	}
	category := string(input.Category)
	opener := input.Requester.Mention()
	return platform.OutgoingMessage{
		Content: staffPing + " — nieuw ticket geopend.",
		Embed: &platform.Embed{
			Title: "🎫 " + category + " Ticket",
			Description: fmt.Sprintf("Hello %s, thank you for opening a **%s** ticket.\n"+
				"Help will be with you shortly — please **don't tag staff**.\n"+
				"Thank you for your patience!", opener, category),
			Color: colorBrand,
			Fields: []platform.EmbedField{
				{Name: "Category", Value: category, Inline: true},
				{Name: "Opener", Value: opener, Inline: true},
				{Name: "Tips", Value: "Beschrijf je probleem duidelijk. Vermijd het gebruik van verboden woorden."},
			},
			ImageURL:  s.cfg.BannerURL,
			Timestamp: s.now().UTC(),
		},
		Buttons: TicketControls(),
	}
}

// TicketControls are the buttons posted inside every ticket.
func TicketControls() []platform.Button {
	return []platform.Button{
		{Label: "📌 Claim", CustomID: domain.CustomIDClaim, Style: platform.ButtonSuccess},
		{Label: "🔒 Close", CustomID: domain.CustomIDClose, Style: platform.ButtonDanger},
	}
}

// Tickets lists tickets known to this process.
func (s *TicketService) Tickets() []domain.Ticket {
	return s.registry.List()
}

// abandon deletes a half-provisioned channel and returns cause.
func (s *TicketService) abandon(ctx context.Context, channel *platform.Channel, cause error) error {
	if err := s.client.DeleteChannel(ctx, channel.ID); err != nil {
		s.logger.Error("failed to remove half-provisioned ticket channel",
			zap.String("channel_id", channel.ID),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return cause
	}
	s.logger.Warn("ticket channel removed after provisioning failure",
		zap.String("channel_id", channel.ID),
		zap.Error(cause))
	return cause
}
