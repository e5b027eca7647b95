package domain

import "time"

// Category enumerates the ticket kinds offered on the panel.
type Category string

const (
	CategoryPayments Category = "Payments"
	CategoryGeneral  Category = "General"
	CategoryOrders   Category = "Orders"
	CategorySupport  Category = "Support"
	// CategoryDefault is the single category of the reduced deployment.
	CategoryDefault Category = "Default"
)

// AllCategories returns every known category in panel order.
func AllCategories() []Category {
	return []Category{CategoryPayments, CategoryGeneral, CategoryOrders, CategorySupport, CategoryDefault}
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range AllCategories() {
		if c == known {
			return true
		}
	}
	return false
}

// TicketState enumerates lifecycle states for ticket channels.
type TicketState string

const (
	TicketStateOpen    TicketState = "OPEN"
	TicketStateClaimed TicketState = "CLAIMED"
	TicketStateClosed  TicketState = "CLOSED"
)

// Live reports whether the ticket channel still exists.
func (s TicketState) Live() bool {
	return s == TicketStateOpen || s == TicketStateClaimed
}

// Ticket is the in-process view of a ticket channel. The channel itself is
// the source of truth; this record only lives as long as the process.
type Ticket struct {
	ChannelID   string
	GuildID     string
	ChannelName string
	OpenerID    string
	OpenerName  string
	Category    Category
	State       TicketState
	ClaimedBy   *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}
