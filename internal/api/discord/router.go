package discord

import (
	"context"
	"errors"
	"runtime/debug"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/auth"
	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/platform"
	"github.com/bloxxvault/ticket-bot/internal/service"
	apperrors "github.com/bloxxvault/ticket-bot/pkg/util/errorutil"
)

const genericFailure = "Er ging iets mis. Probeer het later opnieuw."

// TicketOpener opens tickets.
type TicketOpener interface {
	OpenTicket(ctx context.Context, input service.OpenTicketInput) (*platform.Channel, error)
}

// Lifecycle performs staff actions on tickets.
type Lifecycle interface {
	Claim(ctx context.Context, input service.ActionInput) error
	Close(ctx context.Context, input service.ActionInput) error
	Rename(ctx context.Context, input service.RenameInput) error
}

// MessageScreener filters inbound messages.
type MessageScreener interface {
	HandleMessage(ctx context.Context, msg *platform.Message) (service.Verdict, error)
}

// CommandProcessor receives messages that passed screening.
type CommandProcessor interface {
	Process(ctx context.Context, msg *platform.Message) error
}

// Interaction is a platform-neutral view of one button press or slash command.
type Interaction struct {
	GuildID   string
	ChannelID string
	Member    *platform.Member
	Command   Command
	Reply     platform.Replier
}

// Router turns gateway events into service calls.
type Router struct {
	client    platform.Client
	cfg       config.TicketConfig
	tickets   TicketOpener
	lifecycle Lifecycle
	intake    MessageScreener
	processor CommandProcessor
	logger    *zap.Logger
}

// RouterDependencies bundles router collaborators. Processor is optional.
type RouterDependencies struct {
	Client    platform.Client
	Config    config.TicketConfig
	Tickets   TicketOpener
	Lifecycle Lifecycle
	Intake    MessageScreener
	Processor CommandProcessor
	Logger    *zap.Logger
}

// NewRouter builds a router.
func NewRouter(deps RouterDependencies) *Router {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Router{
		client:    deps.Client,
		cfg:       deps.Config,
		tickets:   deps.Tickets,
		lifecycle: deps.Lifecycle,
		intake:    deps.Intake,
		processor: deps.Processor,
		logger:    logger,
	}
}

// OnInteractionCreate is the discordgo handler for interactions.
func (r *Router) OnInteractionCreate(s *discordgo.Session, i *discordgo.InteractionCreate) {
	defer r.recoverPanic("interaction")
	in, ok := interactionFromDiscord(s, i)
	if !ok {
		return
	}
	r.Dispatch(context.Background(), in)
}

// OnMessageCreate is the discordgo handler for messages.
func (r *Router) OnMessageCreate(_ *discordgo.Session, m *discordgo.MessageCreate) {
	defer r.recoverPanic("message")
	if m.Message == nil || m.Author == nil {
		return
	}
	r.HandleMessage(context.Background(), platform.MessageFromDiscord(m.Message))
}

// Dispatch runs one interaction. Business rejections become private replies.
func (r *Router) Dispatch(ctx context.Context, in Interaction) {
	err := r.dispatch(ctx, in)
	if err == nil {
		return
	}
	if apperrors.IsBusinessRule(err) {
		r.reply(ctx, in, apperrors.ToDomainError(err).Message)
		return
	}
	r.logger.Error("interaction failed",
		zap.String("command", in.Command.Kind.String()),
		zap.String("channel_id", in.ChannelID),
		zap.String("user_id", memberID(in.Member)),
		zap.Error(err))
	r.reply(ctx, in, genericFailure)
}

func (r *Router) dispatch(ctx context.Context, in Interaction) error {
	switch in.Command.Kind {
	case CommandPanel:
		if err := auth.RequirePanelManager(in.Member, r.cfg.StaffRoleID); err != nil {
			return err
		}
		guildName := ""
		if g, err := r.client.Guild(ctx, in.GuildID); err == nil {
			guildName = g.Name
		}
		return in.Reply.Reply(ctx, PanelReply(r.cfg, guildName))
	case CommandOpen:
		ch, err := r.tickets.OpenTicket(ctx, service.OpenTicketInput{
			GuildID:   in.GuildID,
			Requester: in.Member.User,
			Category:  in.Command.Category,
		})
		if err != nil {
			return err
		}
		return in.Reply.Reply(ctx, platform.Reply{Content: "🎫 Ticket geopend: " + ch.Mention(), Ephemeral: true})
	case CommandClaim, CommandClose, CommandRename:
		action, err := r.actionInput(ctx, in)
		if err != nil {
			return err
		}
		switch in.Command.Kind {
		case CommandClaim:
			return r.lifecycle.Claim(ctx, action)
		case CommandClose:
			return r.lifecycle.Close(ctx, action)
		default:
			return r.lifecycle.Rename(ctx, service.RenameInput{ActionInput: action, NewName: in.Command.NewName})
		}
	default:
		r.logger.Debug("unknown interaction ignored", zap.String("channel_id", in.ChannelID))
		return nil
	}
}

func (r *Router) actionInput(ctx context.Context, in Interaction) (service.ActionInput, error) {
	channel, err := r.client.Channel(ctx, in.ChannelID)
	if errors.Is(err, platform.ErrNotFound) {
		return service.ActionInput{}, apperrors.NewNotATicketChannel("Dit commando werkt alleen in ticket-kanalen.")
	}
	if err != nil {
		return service.ActionInput{}, err
	}
	return service.ActionInput{
		GuildID: in.GuildID,
		Actor:   in.Member,
		Channel: channel,
		Reply:   in.Reply,
	}, nil
}

// HandleMessage screens a message and forwards it when it passes.
func (r *Router) HandleMessage(ctx context.Context, msg *platform.Message) {
	verdict, err := r.intake.HandleMessage(ctx, msg)
	if err != nil {
		r.logger.Error("message screening failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
		return
	}
	if verdict != service.VerdictPass || r.processor == nil {
		return
	}
	if err := r.processor.Process(ctx, msg); err != nil {
		r.logger.Error("command processing failed", zap.String("channel_id", msg.ChannelID), zap.Error(err))
	}
}

func (r *Router) reply(ctx context.Context, in Interaction, text string) {
	if err := in.Reply.Reply(ctx, platform.Reply{Content: text, Ephemeral: true}); err != nil {
		r.logger.Debug("error reply failed", zap.String("channel_id", in.ChannelID), zap.Error(err))
	}
}

func (r *Router) recoverPanic(source string) {
	if rec := recover(); rec != nil {
		r.logger.Error("panic recovered",
			zap.String("source", source),
			zap.Any("panic", rec),
			zap.ByteString("stack", debug.Stack()))
	}
}

func interactionFromDiscord(s *discordgo.Session, i *discordgo.InteractionCreate) (Interaction, bool) {
	if i.Interaction == nil || i.Member == nil || i.GuildID == "" {
		return Interaction{}, false
	}
	in := Interaction{
		GuildID:   i.GuildID,
		ChannelID: i.ChannelID,
		Member:    platform.MemberFromDiscord(i.Member),
		Reply:     platform.NewInteractionReplier(s, i.Interaction),
	}
	switch i.Type {
	case discordgo.InteractionApplicationCommand:
		data := i.ApplicationCommandData()
		options := make(map[string]string, len(data.Options))
		for _, opt := range data.Options {
			if opt.Type == discordgo.ApplicationCommandOptionString {
				options[opt.Name] = opt.StringValue()
			}
		}
		in.Command = ParseSlash(data.Name, options)
	case discordgo.InteractionMessageComponent:
		in.Command = ParseComponent(i.MessageComponentData().CustomID)
	default:
		return Interaction{}, false
	}
	return in, true
}

func memberID(m *platform.Member) string {
	if m == nil {
		return ""
	}
	return m.User.ID
}
