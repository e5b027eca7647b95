package dto

import (
	"time"

	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/events"
)

// TicketResponse is the ops view of a live ticket.
type TicketResponse struct {
	ChannelID   string             `json:"channel_id"`
	ChannelName string             `json:"channel_name"`
	OpenerID    string             `json:"opener_id"`
	OpenerName  string             `json:"opener_name"`
	Category    domain.Category    `json:"category"`
	State       domain.TicketState `json:"state"`
	ClaimedBy   *string            `json:"claimed_by"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
}

// TicketFromDomain maps a registry entry.
func TicketFromDomain(t domain.Ticket) TicketResponse {
	return TicketResponse{
		ChannelID:   t.ChannelID,
		ChannelName: t.ChannelName,
		OpenerID:    t.OpenerID,
		OpenerName:  t.OpenerName,
		Category:    t.Category,
		State:       t.State,
		ClaimedBy:   t.ClaimedBy,
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// AuditEventResponse is one archived audit entry.
type AuditEventResponse struct {
	ID          string           `json:"id"`
	Type        events.EventType `json:"type"`
	ChannelID   string           `json:"channel_id"`
	ChannelName string           `json:"channel_name"`
	ActorID     string           `json:"actor_id"`
	ActorName   string           `json:"actor_name"`
	Payload     any              `json:"payload"`
	OccurredAt  time.Time        `json:"occurred_at"`
}

// AuditEventFromDomain maps an event.
func AuditEventFromDomain(e events.Event) AuditEventResponse {
	return AuditEventResponse{
		ID:          e.ID,
		Type:        e.Type,
		ChannelID:   e.ChannelID,
		ChannelName: e.ChannelName,
		ActorID:     e.Actor.UserID,
		ActorName:   e.Actor.Name,
		Payload:     e.Payload,
		OccurredAt:  e.Timestamp,
	}
}
