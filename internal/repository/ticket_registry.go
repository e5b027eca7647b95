package repository

import (
	"sort"
	"sync"

	"github.com/bloxxvault/ticket-bot/internal/domain"
)

// TicketRegistry tracks tickets created or touched by this process. It is
// empty after a restart; callers must fall back to the channel name.
type TicketRegistry interface {
	Put(ticket domain.Ticket)
	Get(channelID string) (domain.Ticket, bool)
	Update(channelID string, mutate func(*domain.Ticket)) (domain.Ticket, bool)
	Remove(channelID string)
	List() []domain.Ticket
}

type memoryTicketRegistry struct {
	mu      sync.RWMutex
	tickets map[string]domain.Ticket
}

// NewTicketRegistry instantiates an in-memory registry.
func NewTicketRegistry() TicketRegistry {
	return &memoryTicketRegistry{tickets: make(map[string]domain.Ticket)}
}

func (r *memoryTicketRegistry) Put(ticket domain.Ticket) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tickets[ticket.ChannelID] = ticket
}

func (r *memoryTicketRegistry) Get(channelID string) (domain.Ticket, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tickets[channelID]
	return t, ok
}

func (r *memoryTicketRegistry) Update(channelID string, mutate func(*domain.Ticket)) (domain.Ticket, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tickets[channelID]
	if !ok {
		return domain.Ticket{}, false
	}
	mutate(&t)
	r.tickets[channelID] = t
	return t, true
}

func (r *memoryTicketRegistry) Remove(channelID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tickets, channelID)
}

// List returns tickets oldest first.
func (r *memoryTicketRegistry) List() []domain.Ticket {
	r.mu.RLock()
	out := make([]domain.Ticket, 0, len(r.tickets))
	for _, t := range r.tickets {
		out = append(out, t)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ChannelID < out[j].ChannelID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
