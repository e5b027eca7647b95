// Package discord routes gateway events into the ticket services.
package discord

import (
	"strings"

	"github.com/bloxxvault/ticket-bot/internal/domain"
)

// Slash command names.
const (
	CommandNamePanel  = "ticketpanel"
	CommandNameRename = "rename"

	optionNewName = "new_name"
)

// CommandKind enumerates everything an interaction can ask for.
type CommandKind int

const (
	CommandUnknown CommandKind = iota
	CommandPanel
	CommandOpen
	CommandClaim
	CommandClose
	CommandRename
)

func (k CommandKind) String() string {
	switch k {
	case CommandPanel:
		return "panel"
	case CommandOpen:
		return "open"
	case CommandClaim:
		return "claim"
	case CommandClose:
		return "close"
	case CommandRename:
		return "rename"
	default:
		return "unknown"
	}
}

// Command is a parsed interaction. Category is set for CommandOpen and
// NewName for CommandRename.
type Command struct {
	Kind     CommandKind
	Category domain.Category
	NewName  string
}

// ParseComponent maps a button custom id to a command.
func ParseComponent(customID string) Command {
	switch customID {
	case domain.CustomIDClaim:
		return Command{Kind: CommandClaim}
	case domain.CustomIDClose:
		return Command{Kind: CommandClose}
	}
	if category, ok := domain.CategoryFromCustomID(customID); ok {
		return Command{Kind: CommandOpen, Category: category}
	}
	return Command{Kind: CommandUnknown}
}

// ParseSlash maps a slash command and its string options to a command.
func ParseSlash(name string, options map[string]string) Command {
	switch strings.ToLower(name) {
	case CommandNamePanel:
		return Command{Kind: CommandPanel}
	case CommandNameRename:
		return Command{Kind: CommandRename, NewName: options[optionNewName]}
	default:
		return Command{Kind: CommandUnknown}
	}
}
