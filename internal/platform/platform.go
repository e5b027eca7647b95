// Package platform is the narrow view of the chat platform that the ticket
// services consume.
package platform

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrNotFound is returned when a lookup target does not exist.
var ErrNotFound = errors.New("platform: not found")

// ChannelKind distinguishes text channels from channel groups.
type ChannelKind int

const (
	ChannelKindText ChannelKind = iota
	ChannelKindCategory
	ChannelKindOther
)

// Channel is a guild channel or category.
type Channel struct {
	ID       string
	GuildID  string
	ParentID string
	Name     string
	Topic    string
	Kind     ChannelKind
}

// Mention renders a clickable channel reference.
func (c *Channel) Mention() string {
	return fmt.Sprintf("<#%s>", c.ID)
}

// User is a platform account.
type User struct {
	ID   string
	Name string
	Bot  bool
}

// Mention renders a user ping.
func (u User) Mention() string {
	return fmt.Sprintf("<@%s>", u.ID)
}

// Member is a user inside a guild.
type Member struct {
	User    User
	RoleIDs []string
	// Administrator is set when the member's guild permissions include Administrator.
	Administrator bool
}

// HasRole reports whether the member carries roleID.
func (m *Member) HasRole(roleID string) bool {
	if m == nil || roleID == "" {
		return false
	}
	for _, id := range m.RoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// Role is a guild role.
type Role struct {
	ID   string
	Name string
}

// Mention renders a role ping.
func (r *Role) Mention() string {
	return fmt.Sprintf("<@&%s>", r.ID)
}

// Guild is a server.
type Guild struct {
	ID   string
	Name string
}

// Attachment is a file attached to a message.
type Attachment struct {
	Filename string
	URL      string
}

// Message is an inbound or historical chat message.
type Message struct {
	ID             string
	ChannelID      string
	GuildID        string
	Author         User
	Content        string
	MentionRoleIDs []string
	Attachments    []Attachment
	Timestamp      time.Time
}

// ButtonStyle maps to the platform's button colours.
type ButtonStyle int

const (
	ButtonPrimary ButtonStyle = iota
	ButtonSecondary
	ButtonSuccess
	ButtonDanger
)

// Button is an interactive control carrying a custom id.
type Button struct {
	Label    string
	CustomID string
	Style    ButtonStyle
}

// EmbedField is a name/value pair inside an embed.
type EmbedField struct {
	Name   string
	Value  string
	Inline bool
}

// Embed is a rich message card.
type Embed struct {
	Title       string
	Description string
	Color       int
	Fields      []EmbedField
	ImageURL    string
	Timestamp   time.Time
}

// File is an upload attached to an outgoing message.
type File struct {
	Name        string
	ContentType string
	Reader      io.Reader
}

// OutgoingMessage is what the bot sends.
type OutgoingMessage struct {
	Content string
	Embed   *Embed
	Buttons []Button
	File    *File
}

// Overwrite sets read/write visibility for a role or member on one channel.
type Overwrite struct {
	TargetID string
	Member   bool
	Read     bool
	Write    bool
}

// CreateChannelInput describes a new text channel.
type CreateChannelInput struct {
	Name     string
	ParentID string
	Topic    string
}

// Client exposes the platform operations the ticket services need.
type Client interface {
	CreateChannel(ctx context.Context, guildID string, input CreateChannelInput) (*Channel, error)
	RenameChannel(ctx context.Context, channelID, name string) (*Channel, error)
	SetPermission(ctx context.Context, channelID string, overwrite Overwrite) error
	DeleteChannel(ctx context.Context, channelID string) error

	Channel(ctx context.Context, channelID string) (*Channel, error)
	ChannelsByName(ctx context.Context, guildID, name string) ([]*Channel, error)
	Role(ctx context.Context, guildID, roleID string) (*Role, error)
	Member(ctx context.Context, guildID, userID string) (*Member, error)
	Guild(ctx context.Context, guildID string) (*Guild, error)

	Send(ctx context.Context, channelID string, msg OutgoingMessage) (*Message, error)
	DeleteMessage(ctx context.Context, channelID, messageID string) error
	// History visits every message in the channel oldest-first.
	History(ctx context.Context, channelID string, visit func(*Message) error) error
	SendDirect(ctx context.Context, userID string, msg OutgoingMessage) error
}

// Reply is an interaction acknowledgement.
type Reply struct {
	Content   string
	Ephemeral bool
	Embed     *Embed
	Buttons   []Button
}

// Replier acknowledges the interaction that triggered an operation.
type Replier interface {
	Reply(ctx context.Context, reply Reply) error
}

// ReplierFunc adapts a function to Replier.
type ReplierFunc func(ctx context.Context, reply Reply) error

// Reply calls f.
func (f ReplierFunc) Reply(ctx context.Context, reply Reply) error {
	return f(ctx, reply)
}
