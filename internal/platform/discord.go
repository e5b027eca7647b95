package platform

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
)

const historyPageSize = 100

// DiscordClient implements Client on top of a discordgo session.
type DiscordClient struct {
	session *discordgo.Session
}

// NewDiscordClient wraps an open or opening session.
func NewDiscordClient(session *discordgo.Session) *DiscordClient {
	return &DiscordClient{session: session}
}

// Session exposes the underlying session for gateway wiring.
func (c *DiscordClient) Session() *discordgo.Session {
	return c.session
}

func (c *DiscordClient) CreateChannel(ctx context.Context, guildID string, input CreateChannelInput) (*Channel, error) {
	ch, err := c.session.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{
		Name:     input.Name,
		Type:     discordgo.ChannelTypeGuildText,
		Topic:    input.Topic,
		ParentID: input.ParentID,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError("create channel", err)
	}
	return channelFromDiscord(ch), nil
}

func (c *DiscordClient) RenameChannel(ctx context.Context, channelID, name string) (*Channel, error) {
	ch, err := c.session.ChannelEdit(channelID, &discordgo.ChannelEdit{Name: name}, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError("rename channel", err)
	}
	return channelFromDiscord(ch), nil
}

func (c *DiscordClient) SetPermission(ctx context.Context, channelID string, overwrite Overwrite) error {
	allow, deny := overwriteBits(overwrite)
	targetType := discordgo.PermissionOverwriteTypeRole
	if overwrite.Member {
		targetType = discordgo.PermissionOverwriteTypeMember
	}
	if err := c.session.ChannelPermissionSet(channelID, overwrite.TargetID, targetType, allow, deny, discordgo.WithContext(ctx)); err != nil {
		return wrapRESTError("set permission", err)
	}
	return nil
}

func (c *DiscordClient) DeleteChannel(ctx context.Context, channelID string) error {
	if _, err := c.session.ChannelDelete(channelID, discordgo.WithContext(ctx)); err != nil {
		return wrapRESTError("delete channel", err)
	}
	return nil
}

func (c *DiscordClient) Channel(ctx context.Context, channelID string) (*Channel, error) {
	ch, err := c.session.Channel(channelID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError("get channel", err)
	}
	return channelFromDiscord(ch), nil
}

func (c *DiscordClient) ChannelsByName(ctx context.Context, guildID, name string) ([]*Channel, error) {
	channels, err := c.session.GuildChannels(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError("list channels", err)
	}
	var out []*Channel
	for _, ch := range channels {
		if ch.Name == name {
			out = append(out, channelFromDiscord(ch))
		}
	}
	return out, nil
}

func (c *DiscordClient) Role(ctx context.Context, guildID, roleID string) (*Role, error) {
	roles, err := c.session.GuildRoles(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError("list roles", err)
	}
	for _, r := range roles {
		if r.ID == roleID {
			return &Role{ID: r.ID, Name: r.Name}, nil
		}
	}
	return nil, fmt.Errorf("role %s: %w", roleID, ErrNotFound)
}

func (c *DiscordClient) Member(ctx context.Context, guildID, userID string) (*Member, error) {
	m, err := c.session.GuildMember(guildID, userID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError("get member", err)
	}
	return MemberFromDiscord(m), nil
}

func (c *DiscordClient) Guild(ctx context.Context, guildID string) (*Guild, error) {
	g, err := c.session.Guild(guildID, discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError("get guild", err)
	}
	return &Guild{ID: g.ID, Name: g.Name}, nil
}

func (c *DiscordClient) Send(ctx context.Context, channelID string, msg OutgoingMessage) (*Message, error) {
	sent, err := c.session.ChannelMessageSendComplex(channelID, toMessageSend(msg), discordgo.WithContext(ctx))
	if err != nil {
		return nil, wrapRESTError("send message", err)
	}
	return MessageFromDiscord(sent), nil
}

func (c *DiscordClient) DeleteMessage(ctx context.Context, channelID, messageID string) error {
	if err := c.session.ChannelMessageDelete(channelID, messageID, discordgo.WithContext(ctx)); err != nil {
		return wrapRESTError("delete message", err)
	}
	return nil
}

// History pages backwards from the newest message and replays the result
// oldest-first. The whole history is held in memory.
func (c *DiscordClient) History(ctx context.Context, channelID string, visit func(*Message) error) error {
	var (
		all    []*discordgo.Message
		before string
	)
	for {
		page, err := c.session.ChannelMessages(channelID, historyPageSize, before, "", "", discordgo.WithContext(ctx))
		if err != nil {
			return wrapRESTError("fetch history", err)
		}
		if len(page) == 0 {
			break
		}
		all = append(all, page...)
		before = page[len(page)-1].ID
		if len(page) < historyPageSize {
			break
		}
	}
	for i := len(all) - 1; i >= 0; i-- {
		if err := visit(MessageFromDiscord(all[i])); err != nil {
			return err
		}
	}
	return nil
}

func (c *DiscordClient) SendDirect(ctx context.Context, userID string, msg OutgoingMessage) error {
	dm, err := c.session.UserChannelCreate(userID, discordgo.WithContext(ctx))
	if err != nil {
		return wrapRESTError("open direct channel", err)
	}
	_, err = c.Send(ctx, dm.ID, msg)
	return err
}

// InteractionReplier answers an interaction. The first reply uses the
// interaction response; later replies become follow-ups.
type InteractionReplier struct {
	session     *discordgo.Session
	interaction *discordgo.Interaction

	mu        sync.Mutex
	responded bool
}

// NewInteractionReplier builds a Replier bound to one interaction.
func NewInteractionReplier(session *discordgo.Session, interaction *discordgo.Interaction) *InteractionReplier {
	return &InteractionReplier{session: session, interaction: interaction}
}

func (r *InteractionReplier) Reply(ctx context.Context, reply Reply) error {
	var flags discordgo.MessageFlags
	if reply.Ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	var embeds []*discordgo.MessageEmbed
	if reply.Embed != nil {
		embeds = []*discordgo.MessageEmbed{toEmbed(reply.Embed)}
	}
	components := toComponents(reply.Buttons)

	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.responded {
		err := r.session.InteractionRespond(r.interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:    reply.Content,
				Flags:      flags,
				Embeds:     embeds,
				Components: components,
			},
		}, discordgo.WithContext(ctx))
		if err != nil {
			return wrapRESTError("interaction respond", err)
		}
		r.responded = true
		return nil
	}
	_, err := r.session.FollowupMessageCreate(r.interaction, false, &discordgo.WebhookParams{
		Content:    reply.Content,
		Flags:      flags,
		Embeds:     embeds,
		Components: components,
	}, discordgo.WithContext(ctx))
	if err != nil {
		return wrapRESTError("interaction followup", err)
	}
	return nil
}

// MessageFromDiscord converts a gateway or REST message.
func MessageFromDiscord(m *discordgo.Message) *Message {
	if m == nil {
		return nil
	}
	msg := &Message{
		ID:             m.ID,
		ChannelID:      m.ChannelID,
		GuildID:        m.GuildID,
		Content:        m.Content,
		MentionRoleIDs: m.MentionRoles,
		Timestamp:      m.Timestamp,
	}
	if m.Author != nil {
		msg.Author = UserFromDiscord(m.Author)
	}
	for _, a := range m.Attachments {
		msg.Attachments = append(msg.Attachments, Attachment{Filename: a.Filename, URL: a.URL})
	}
	return msg
}

// UserFromDiscord converts a discordgo user.
func UserFromDiscord(u *discordgo.User) User {
	if u == nil {
		return User{}
	}
	return User{ID: u.ID, Name: u.String(), Bot: u.Bot}
}

// MemberFromDiscord converts a discordgo member.
func MemberFromDiscord(m *discordgo.Member) *Member {
	if m == nil {
		return nil
	}
	return &Member{
		User:          UserFromDiscord(m.User),
		RoleIDs:       m.Roles,
		Administrator: m.Permissions&discordgo.PermissionAdministrator != 0,
	}
}

func channelFromDiscord(ch *discordgo.Channel) *Channel {
	if ch == nil {
		return nil
	}
	kind := ChannelKindOther
	switch ch.Type {
	case discordgo.ChannelTypeGuildText:
		kind = ChannelKindText
	case discordgo.ChannelTypeGuildCategory:
		kind = ChannelKindCategory
	}
	return &Channel{
		ID:       ch.ID,
		GuildID:  ch.GuildID,
		ParentID: ch.ParentID,
		Name:     ch.Name,
		Topic:    ch.Topic,
		Kind:     kind,
	}
}

func overwriteBits(o Overwrite) (allow, deny int64) {
	if o.Read {
		allow |= discordgo.PermissionViewChannel
	} else {
		deny |= discordgo.PermissionViewChannel
	}
	if o.Write {
		allow |= discordgo.PermissionSendMessages
	} else {
		deny |= discordgo.PermissionSendMessages
	}
	return allow, deny
}

func toMessageSend(msg OutgoingMessage) *discordgo.MessageSend {
	send := &discordgo.MessageSend{
		Content:    msg.Content,
		Components: toComponents(msg.Buttons),
	}
	if msg.Embed != nil {
		send.Embeds = []*discordgo.MessageEmbed{toEmbed(msg.Embed)}
	}
	if msg.File != nil {
		send.Files = []*discordgo.File{{
			Name:        msg.File.Name,
			ContentType: msg.File.ContentType,
			Reader:      msg.File.Reader,
		}}
	}
	return send
}

func toEmbed(e *Embed) *discordgo.MessageEmbed {
	embed := &discordgo.MessageEmbed{
		Title:       e.Title,
		Description: e.Description,
		Color:       e.Color,
	}
	for _, f := range e.Fields {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: f.Name, Value: f.Value, Inline: f.Inline})
	}
	if e.ImageURL != "" {
		embed.Image = &discordgo.MessageEmbedImage{URL: e.ImageURL}
	}
	if !e.Timestamp.IsZero() {
		embed.Timestamp = e.Timestamp.UTC().Format(time.RFC3339)
	}
	return embed
}

func toComponents(buttons []Button) []discordgo.MessageComponent {
	if len(buttons) == 0 {
		return nil
	}
	row := discordgo.ActionsRow{}
	for _, b := range buttons {
		row.Components = append(row.Components, discordgo.Button{
			Label:    b.Label,
			CustomID: b.CustomID,
			Style:    toButtonStyle(b.Style),
		})
	}
	return []discordgo.MessageComponent{row}
}

func toButtonStyle(style ButtonStyle) discordgo.ButtonStyle {
	switch style {
	case ButtonSuccess:
		return discordgo.SuccessButton
	case ButtonDanger:
		return discordgo.DangerButton
	case ButtonSecondary:
		return discordgo.SecondaryButton
	default:
		return discordgo.PrimaryButton
	}
}

func wrapRESTError(op string, err error) error {
	var restErr *discordgo.RESTError
	if errors.As(err, &restErr) && restErr.Response != nil && restErr.Response.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %w", op, errors.Join(ErrNotFound, err))
	}
	return fmt.Errorf("%s: %w", op, err)
}
