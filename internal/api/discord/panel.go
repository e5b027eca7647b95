package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"github.com/bloxxvault/ticket-bot/internal/config"
	"github.com/bloxxvault/ticket-bot/internal/domain"
	"github.com/bloxxvault/ticket-bot/internal/platform"
)

const panelColor = 0xF59E42

type panelEntry struct {
	label       string
	style       platform.ButtonStyle
	description string
}

var panelEntries = map[domain.Category]panelEntry{
	domain.CategoryPayments: {"💳 Payments", platform.ButtonSuccess, "vragen over betalingen of transacties."},
	domain.CategoryGeneral:  {"🟧 General", platform.ButtonPrimary, "algemene vragen of account hulp."},
	domain.CategoryOrders:   {"📦 Orders", platform.ButtonSecondary, "vragen over bestellingen / leveringen."},
	domain.CategorySupport:  {"🛠️ Support", platform.ButtonSecondary, "technische support of problemen."},
	domain.CategoryDefault:  {"🎫 Ticket", platform.ButtonPrimary, "open een ticket voor al je vragen."},
}

// PanelReply renders the category picker for the configured categories.
func PanelReply(cfg config.TicketConfig, guildName string) platform.Reply {
	title := "🟧 Support Tickets"
	if guildName != "" {
		title = "🟧 " + guildName + " Support Tickets"
	}

	var desc strings.Builder
	desc.WriteString("**Select a category below:**\n\n")
	buttons := make([]platform.Button, 0, len(panelEntries))
	for _, category := range cfg.Categories() {
		entry := panelEntries[category]
		emoji, name, _ := strings.Cut(entry.label, " ")
		desc.WriteString(emoji + " **" + name + "** – " + entry.description + "\n")
		buttons = append(buttons, platform.Button{
			Label:    entry.label,
			CustomID: category.CustomID(),
			Style:    entry.style,
		})
	}
	desc.WriteString("\nKlik op één van de knoppen om een ticket te openen.")

	return platform.Reply{
		Embed: &platform.Embed{
			Title:       title,
			Description: desc.String(),
			Color:       panelColor,
			ImageURL:    cfg.BannerURL,
		},
		Buttons: buttons,
	}
}

var adminPerm int64 = discordgo.PermissionAdministrator

// ApplicationCommands lists the slash commands the bot owns.
func ApplicationCommands() []*discordgo.ApplicationCommand {
	return []*discordgo.ApplicationCommand{
		{
			Name:                     CommandNamePanel,
			Description:              "Send the ticket panel (staff only)",
			DefaultMemberPermissions: &adminPerm,
		},
		{
			Name:        CommandNameRename,
			Description: "Rename the current ticket channel (staff only)",
			Options: []*discordgo.ApplicationCommandOption{
				{
					Type:        discordgo.ApplicationCommandOptionString,
					Name:        optionNewName,
					Description: "Nieuwe kanaalnaam (zonder spaties)",
					Required:    true,
				},
			},
		},
	}
}

// RegisterCommands overwrites the application's commands. An empty guildID
// registers them globally. Failure is logged; the bot keeps serving buttons.
func RegisterCommands(ctx context.Context, s *discordgo.Session, guildID string, logger *zap.Logger) {
	if s.State == nil || s.State.User == nil {
		logger.Warn("session has no user; skipping command registration")
		return
	}
	registered, err := s.ApplicationCommandBulkOverwrite(s.State.User.ID, guildID, ApplicationCommands(), discordgo.WithContext(ctx))
	if err != nil {
		logger.Error("command registration failed", zap.Error(err))
		return
	}
	logger.Info("commands registered", zap.Int("count", len(registered)), zap.String("guild_id", guildID))
}
