// Package platformtest provides an in-memory platform.Client for tests.
package platformtest

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"sync"
	"time"

	"github.com/bloxxvault/ticket-bot/internal/platform"
)

// SentMessage records an outgoing message with its file body read eagerly.
type SentMessage struct {
	ChannelID string
	Message   platform.OutgoingMessage
	FileBody  string
}

// DirectMessage records a DM.
type DirectMessage struct {
	UserID   string
	Message  platform.OutgoingMessage
	FileBody string
}

// Guild is a single fake guild. All methods are safe for concurrent use.
type Guild struct {
	ID   string
	Name string

	mu          sync.Mutex
	nextID      uint64
	channels    map[string]*platform.Channel
	order       []string
	history     map[string][]*platform.Message
	overwrites  map[string][]platform.Overwrite
	roles       map[string]*platform.Role
	members     map[string]*platform.Member
	sent        []SentMessage
	direct      []DirectMessage
	deletedMsgs []string
	deletedChs  []string
	clock       time.Time

	// DirectErr, when set, is returned by SendDirect.
	DirectErr error
	// SendErr maps channel ids to errors returned by Send.
	SendErr map[string]error
	// PermissionErr, when set, is returned by SetPermission.
	PermissionErr error
}

// NewGuild builds an empty guild.
func NewGuild(id, name string) *Guild {
	return &Guild{
		ID:         id,
		Name:       name,
		nextID:     1000,
		channels:   map[string]*platform.Channel{},
		history:    map[string][]*platform.Message{},
		overwrites: map[string][]platform.Overwrite{},
		roles:      map[string]*platform.Role{},
		members:    map[string]*platform.Member{},
		SendErr:    map[string]error{},
		clock:      time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (g *Guild) newID() string {
	g.nextID++
	return strconv.FormatUint(g.nextID, 10)
}

// AddCategory registers a channel group.
func (g *Guild) AddCategory(id, name string) *platform.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := &platform.Channel{ID: id, GuildID: g.ID, Name: name, Kind: platform.ChannelKindCategory}
	g.channels[id] = ch
	g.order = append(g.order, id)
	return ch
}

// AddTextChannel registers a text channel.
func (g *Guild) AddTextChannel(id, name string) *platform.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch := &platform.Channel{ID: id, GuildID: g.ID, Name: name, Kind: platform.ChannelKindText}
	g.channels[id] = ch
	g.order = append(g.order, id)
	return ch
}

// AddRole registers a role.
func (g *Guild) AddRole(id, name string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.roles[id] = &platform.Role{ID: id, Name: name}
}

// AddMember registers a member.
func (g *Guild) AddMember(id, name string, roleIDs ...string) *platform.Member {
	g.mu.Lock()
	defer g.mu.Unlock()
	m := &platform.Member{User: platform.User{ID: id, Name: name}, RoleIDs: roleIDs}
	g.members[id] = m
	return m
}

// Post appends a message authored by author to the channel history.
func (g *Guild) Post(channelID string, author platform.User, content string, attachments ...platform.Attachment) *platform.Message {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.clock = g.clock.Add(time.Minute)
	msg := &platform.Message{
		ID:          g.newID(),
		ChannelID:   channelID,
		GuildID:     g.ID,
		Author:      author,
		Content:     content,
		Attachments: attachments,
		Timestamp:   g.clock,
	}
	g.history[channelID] = append(g.history[channelID], msg)
	return msg
}

// ChannelByName returns the first channel with the name, or nil.
func (g *Guild) ChannelByName(name string) *platform.Channel {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, id := range g.order {
		if ch, ok := g.channels[id]; ok && ch.Name == name {
			cp := *ch
			return &cp
		}
	}
	return nil
}

// ChannelCount counts live channels named name.
func (g *Guild) ChannelCount(name string) int {
	g.mu.Lock()
	defer g.mu.Unlock()
	n := 0
	for _, ch := range g.channels {
		if ch.Name == name {
			n++
		}
	}
	return n
}

// Overwrites returns the permission overwrites set on a channel.
func (g *Guild) Overwrites(channelID string) []platform.Overwrite {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]platform.Overwrite(nil), g.overwrites[channelID]...)
}

// Sent returns messages sent to channelID.
func (g *Guild) Sent(channelID string) []SentMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []SentMessage
	for _, s := range g.sent {
		if s.ChannelID == channelID {
			out = append(out, s)
		}
	}
	return out
}

// Direct returns every DM sent.
func (g *Guild) Direct() []DirectMessage {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]DirectMessage(nil), g.direct...)
}

// DeletedMessages returns ids of deleted messages.
func (g *Guild) DeletedMessages() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.deletedMsgs...)
}

// DeletedChannels returns ids of deleted channels.
func (g *Guild) DeletedChannels() []string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]string(nil), g.deletedChs...)
}

func (g *Guild) CreateChannel(_ context.Context, guildID string, input platform.CreateChannelInput) (*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if guildID != g.ID {
		return nil, fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
	}
	ch := &platform.Channel{
		ID:       g.newID(),
		GuildID:  g.ID,
		ParentID: input.ParentID,
		Name:     input.Name,
		Topic:    input.Topic,
		Kind:     platform.ChannelKindText,
	}
	g.channels[ch.ID] = ch
	g.order = append(g.order, ch.ID)
	cp := *ch
	return &cp, nil
}

func (g *Guild) RenameChannel(_ context.Context, channelID, name string) (*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	ch.Name = name
	cp := *ch
	return &cp, nil
}

func (g *Guild) SetPermission(_ context.Context, channelID string, overwrite platform.Overwrite) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.PermissionErr != nil {
		return g.PermissionErr
	}
	if _, ok := g.channels[channelID]; !ok {
		return fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	g.overwrites[channelID] = append(g.overwrites[channelID], overwrite)
	return nil
}

func (g *Guild) DeleteChannel(_ context.Context, channelID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.channels[channelID]; !ok {
		return fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	delete(g.channels, channelID)
	delete(g.history, channelID)
	g.deletedChs = append(g.deletedChs, channelID)
	return nil
}

func (g *Guild) Channel(_ context.Context, channelID string) (*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	ch, ok := g.channels[channelID]
	if !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	cp := *ch
	return &cp, nil
}

func (g *Guild) ChannelsByName(_ context.Context, guildID, name string) ([]*platform.Channel, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*platform.Channel
	for _, id := range g.order {
		if ch, ok := g.channels[id]; ok && ch.Name == name {
			cp := *ch
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (g *Guild) Role(_ context.Context, _ string, roleID string) (*platform.Role, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	r, ok := g.roles[roleID]
	if !ok {
		return nil, fmt.Errorf("role %s: %w", roleID, platform.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (g *Guild) Member(_ context.Context, _ string, userID string) (*platform.Member, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	m, ok := g.members[userID]
	if !ok {
		return nil, fmt.Errorf("member %s: %w", userID, platform.ErrNotFound)
	}
	cp := *m
	return &cp, nil
}

func (g *Guild) Guild(_ context.Context, guildID string) (*platform.Guild, error) {
	if guildID != g.ID {
		return nil, fmt.Errorf("guild %s: %w", guildID, platform.ErrNotFound)
	}
	return &platform.Guild{ID: g.ID, Name: g.Name}, nil
}

func (g *Guild) Send(_ context.Context, channelID string, msg platform.OutgoingMessage) (*platform.Message, error) {
	body, err := readFile(msg.File)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.SendErr[channelID]; err != nil {
		return nil, err
	}
	if _, ok := g.channels[channelID]; !ok {
		return nil, fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	g.sent = append(g.sent, SentMessage{ChannelID: channelID, Message: msg, FileBody: body})
	g.clock = g.clock.Add(time.Minute)
	sent := &platform.Message{
		ID:        g.newID(),
		ChannelID: channelID,
		GuildID:   g.ID,
		Author:    platform.User{ID: "bot", Name: "TicketBot", Bot: true},
		Content:   msg.Content,
		Timestamp: g.clock,
	}
	g.history[channelID] = append(g.history[channelID], sent)
	return sent, nil
}

func (g *Guild) DeleteMessage(_ context.Context, channelID, messageID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	msgs := g.history[channelID]
	for i, m := range msgs {
		if m.ID == messageID {
			g.history[channelID] = append(msgs[:i:i], msgs[i+1:]...)
			g.deletedMsgs = append(g.deletedMsgs, messageID)
			return nil
		}
	}
	return fmt.Errorf("message %s: %w", messageID, platform.ErrNotFound)
}

func (g *Guild) History(_ context.Context, channelID string, visit func(*platform.Message) error) error {
	g.mu.Lock()
	if _, ok := g.channels[channelID]; !ok {
		g.mu.Unlock()
		return fmt.Errorf("channel %s: %w", channelID, platform.ErrNotFound)
	}
	msgs := append([]*platform.Message(nil), g.history[channelID]...)
	g.mu.Unlock()
	for _, m := range msgs {
		if err := visit(m); err != nil {
			return err
		}
	}
	return nil
}

func (g *Guild) SendDirect(_ context.Context, userID string, msg platform.OutgoingMessage) error {
	if g.DirectErr != nil {
		return g.DirectErr
	}
	body, err := readFile(msg.File)
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.direct = append(g.direct, DirectMessage{UserID: userID, Message: msg, FileBody: body})
	return nil
}

func readFile(f *platform.File) (string, error) {
	if f == nil || f.Reader == nil {
		return "", nil
	}
	b, err := io.ReadAll(f.Reader)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// Replies records interaction replies.
type Replies struct {
	mu  sync.Mutex
	All []platform.Reply
}

func (r *Replies) Reply(_ context.Context, reply platform.Reply) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.All = append(r.All, reply)
	return nil
}

// Last returns the most recent reply.
func (r *Replies) Last() (platform.Reply, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.All) == 0 {
		return platform.Reply{}, false
	}
	return r.All[len(r.All)-1], true
}

var _ platform.Client = (*Guild)(nil)
var _ platform.Replier = (*Replies)(nil)
