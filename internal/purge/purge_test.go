package purge

import (
	"testing"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func message(id, author string, bot bool, content string, age time.Duration) *discordgo.Message {
	return &discordgo.Message{
		ID:        id,
		Content:   content,
		Author:    &discordgo.User{ID: author, Bot: bot},
		Timestamp: now.Add(-age),
	}
}

func fixture() []*discordgo.Message {
	withFile := message("5", "u2", false, "see file", time.Minute)
	withFile.Attachments = []*discordgo.MessageAttachment{{ID: "a1"}}
	pinned := message("6", "u1", false, "rules", time.Minute)
	pinned.Pinned = true
	return []*discordgo.Message{
		message("1", "u1", false, "hello there", time.Minute),
		message("2", "b1", true, "beep", time.Minute),
		message("3", "u2", false, "look https://www.Example.com/x?utm_source=a", time.Hour),
		message("4", "u1", false, "invite discord.gg/abc", 2*time.Hour),
		withFile,
		pinned,
		message("7", "u1", false, "ancient HELLO", 15*24*time.Hour),
	}
}

func TestSelectModes(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		filter Filter
		limit  int
		want   []string
	}{
		{"all", Filter{Mode: ModeAll}, 100, []string{"1", "2", "3", "4", "5"}},
		{"limit", Filter{Mode: ModeAll}, 2, []string{"1", "2"}},
		{"bots", Filter{Mode: ModeBots}, 100, []string{"2"}},
		{"attachments", Filter{Mode: ModeAttachments}, 100, []string{"5"}},
		{"links", Filter{Mode: ModeLinks}, 100, []string{"3", "4"}},
		{"links on domain", Filter{Mode: ModeLinks, Domain: "example.com"}, 100, []string{"3"}},
		{"author", Filter{AuthorID: "u1"}, 100, []string{"1", "4"}},
		{"contains ignores case", Filter{Contains: "HELLO"}, 100, []string{"1"}},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			tc.filter.Now = now
			assert.Equal(t, tc.want, Select(fixture(), tc.filter, tc.limit))
		})
	}
}

func TestParseMode(t *testing.T) {
	t.Parallel()

	mode, err := ParseMode("")
	require.NoError(t, err)
	assert.Equal(t, ModeAll, mode)

	mode, err = ParseMode("Links")
	require.NoError(t, err)
	assert.Equal(t, ModeLinks, mode)

	_, err = ParseMode("images")
	assert.Error(t, err)
}

func TestHost(t *testing.T) {
	t.Parallel()

	host, ok := Host("https://WWW.Example.com/path")
	require.True(t, ok)
	assert.Equal(t, "example.com", host)

	host, ok = Host("bücher.de")
	require.True(t, ok)
	assert.Equal(t, "xn--bcher-kva.de", host)

	assert.True(t, MatchDomain("cdn.example.com", "example.com"))
	assert.False(t, MatchDomain("notexample.com", "example.com"))
}
