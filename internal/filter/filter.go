// Package filter holds the per-message moderation predicates. Both checks are
// plain containment tests; there is no word-boundary awareness.
package filter

import "strings"

// Broadcast tokens that ping every member of a channel.
const (
	EveryoneToken = "@everyone"
	HereToken     = "@here"
)

// MentionsRole reports whether roleID is among the message's role mentions.
func MentionsRole(mentionedRoleIDs []string, roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, id := range mentionedRoleIDs {
		if id == roleID {
			return true
		}
	}
	return false
}

// ContainsBroadcast reports whether content carries @everyone or @here.
func ContainsBroadcast(content string) bool {
	return strings.Contains(content, EveryoneToken) || strings.Contains(content, HereToken)
}

// TagAbuse reports whether a message pings staff or broadcasts.
func TagAbuse(content string, mentionedRoleIDs []string, staffRoleID string) bool {
	return MentionsRole(mentionedRoleIDs, staffRoleID) || ContainsBroadcast(content)
}

// WordList matches message bodies against banned substrings.
type WordList struct {
	words []string
}

// NewWordList builds a list from lowercase terms. Empty terms are skipped
// since they would match every message.
func NewWordList(words []string) *WordList {
	kept := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.ToLower(w)
		if w != "" {
			kept = append(kept, w)
		}
	}
	return &WordList{words: kept}
}

// Match returns the first configured term contained in content.
func (l *WordList) Match(content string) (string, bool) {
	if l == nil || len(l.words) == 0 {
		return "", false
	}
	lower := strings.ToLower(content)
	for _, w := range l.words {
		if strings.Contains(lower, w) {
			return w, true
		}
	}
	return "", false
}

// Len returns the number of active terms.
func (l *WordList) Len() int {
	if l == nil {
		return 0
	}
	return len(l.words)
}
