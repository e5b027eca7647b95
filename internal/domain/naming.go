package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// TicketChannelPrefix marks channels managed by the bot.
const TicketChannelPrefix = "ticket-"

var (
	openerPattern   = regexp.MustCompile(`^ticket-(\d+)$`)
	whitespaceRun   = regexp.MustCompile(`\s+`)
	snowflakeDigits = regexp.MustCompile(`^\d+$`)
)

// ChannelName encodes the opener id into the ticket channel name.
func ChannelName(openerID string) string {
	return TicketChannelPrefix + openerID
}

// OpenerFromChannelName recovers the opener id from a ticket channel name.
// Renamed channels no longer match and return false.
func OpenerFromChannelName(name string) (string, bool) {
	m := openerPattern.FindStringSubmatch(name)
	if m == nil {
		return "", false
	}
	return m[1], true
}

// IsTicketChannel reports whether name follows the ticket prefix.
func IsTicketChannel(name string) bool {
	return strings.HasPrefix(name, TicketChannelPrefix)
}

// IsSnowflake reports whether id is a decimal platform id.
func IsSnowflake(id string) bool {
	return snowflakeDigits.MatchString(id)
}

// SanitizeChannelName lowercases raw and collapses whitespace runs into a
// single hyphen.
func SanitizeChannelName(raw string) string {
	return whitespaceRun.ReplaceAllString(strings.ToLower(raw), "-")
}

// Topic builds the human-readable channel topic.
func Topic(category Category, openerName, openerID string) string {
	return fmt.Sprintf("%s ticket van %s | opener_id:%s", category, openerName, openerID)
}
