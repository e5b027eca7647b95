package events

import (
	"time"

	"github.com/bloxxvault/ticket-bot/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated    EventType = "ticket_created"
	EventTicketClaimed    EventType = "ticket_claimed"
	EventTicketRenamed    EventType = "ticket_renamed"
	EventTicketClosed     EventType = "ticket_closed"
	EventMessageViolation EventType = "message_violation"
)

// AllTypes lists every event the audit trail records.
func AllTypes() []EventType {
	return []EventType{
		EventTicketCreated,
		EventTicketClaimed,
		EventTicketRenamed,
		EventTicketClosed,
		EventMessageViolation,
	}
}

// Actor identifies who triggered an event.
type Actor struct {
	UserID string `json:"user_id"`
	Name   string `json:"name"`
}

// Event represents an audit entry emitted by services.
type Event struct {
	ID          string      `json:"id"`
	Type        EventType   `json:"type"`
	GuildID     string      `json:"guild_id"`
	ChannelID   string      `json:"channel_id"`
	ChannelName string      `json:"channel_name"`
	Actor       Actor       `json:"actor"`
	Timestamp   time.Time   `json:"timestamp"`
	Payload     interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Category domain.Category `json:"category"`
	OpenerID string          `json:"opener_id"`
}

// TicketClaimedPayload payload.
type TicketClaimedPayload struct {
	OpenerID string `json:"opener_id,omitempty"`
	Reclaim  bool   `json:"reclaim"`
}

// TicketRenamedPayload payload.
type TicketRenamedPayload struct {
	OldName string `json:"old_name"`
	NewName string `json:"new_name"`
}

// TicketClosedPayload payload.
type TicketClosedPayload struct {
	OpenerID        string `json:"opener_id,omitempty"`
	TranscriptLines int    `json:"transcript_lines"`
	OpenerNotified  bool   `json:"opener_notified"`
}

// MessageViolationPayload payload.
type MessageViolationPayload struct {
	Term    string `json:"term"`
	Content string `json:"content"`
}
