package domain

import "strings"

// Custom ids carried by the ticket control buttons.
const (
	CustomIDClaim        = "ticket_claim"
	CustomIDClose        = "ticket_close"
	categoryCustomPrefix = "ticket_"
)

// CustomID returns the panel button id that opens a ticket in c.
func (c Category) CustomID() string {
	return categoryCustomPrefix + strings.ToLower(string(c))
}

// CategoryFromCustomID maps a panel button id back to its category.
func CategoryFromCustomID(id string) (Category, bool) {
	for _, c := range AllCategories() {
		if c.CustomID() == id {
			return c, true
		}
	}
	return "", false
}
