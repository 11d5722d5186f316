// Package purge picks which fetched messages a bulk delete removes.
package purge

import (
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
)

// MaxAge is the oldest message Discord accepts in a bulk delete.
const MaxAge = 14 * 24 * time.Hour

// MaxAmount is the bulk delete batch limit.
const MaxAmount = 100

type Mode string

const (
	ModeAll         Mode = "all"
	ModeBots        Mode = "bots"
	ModeLinks       Mode = "links"
	ModeAttachments Mode = "attachments"
)

func ParseMode(value string) (Mode, error) {
	switch mode := Mode(strings.ToLower(value)); mode {
	case "":
		return ModeAll, nil
	case ModeAll, ModeBots, ModeLinks, ModeAttachments:
		return mode, nil
	default:
		return "", fmt.Errorf("unknown purge filter %q", value)
	}
}

type Filter struct {
	Mode     Mode
	AuthorID string
	// Contains matches case-insensitively against the message content.
	Contains string
	// Domain restricts ModeLinks to links on this domain or its subdomains.
	Domain string
	Now    time.Time
}

// Select returns the ids of at most limit messages matching f, in the order
// given. Messages older than MaxAge or pinned are never selected.
func Select(messages []*discordgo.Message, f Filter, limit int) []string {
	if limit <= 0 || limit > MaxAmount {
		limit = MaxAmount
	}
	now := f.Now
	if now.IsZero() {
		now = time.Now()
	}
	cutoff := now.Add(-MaxAge)
	contains := strings.ToLower(f.Contains)

	ids := make([]string, 0, limit)
	for _, msg := range messages {
		if len(ids) == limit {
			break
		}
		if msg == nil || msg.Pinned {
			continue
		}
		if !msg.Timestamp.After(cutoff) {
			continue
		}
		if f.AuthorID != "" && (msg.Author == nil || msg.Author.ID != f.AuthorID) {
			continue
		}
		if contains != "" && !strings.Contains(strings.ToLower(msg.Content), contains) {
			continue
		}
		if !matchesMode(msg, f) {
			continue
		}
		ids = append(ids, msg.ID)
	}
	return ids
}

func matchesMode(msg *discordgo.Message, f Filter) bool {
	switch f.Mode {
	case ModeBots:
		return msg.Author != nil && msg.Author.Bot
	case ModeAttachments:
		return len(msg.Attachments) > 0
	case ModeLinks:
		return hasLink(msg.Content, f.Domain)
	default:
		return true
	}
}

func hasLink(content, domain string) bool {
	for _, raw := range ExtractURLs(content) {
		if domain == "" {
			return true
		}
		if host, ok := Host(strings.Trim(raw, "<>")); ok && MatchDomain(host, domain) {
			return true
		}
	}
	return false
}
