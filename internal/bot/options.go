package bot

import (
	"strings"

	"github.com/bwmarrin/discordgo"
)

// options indexes a command's options by name.
type options map[string]*discordgo.ApplicationCommandInteractionDataOption

func optionMap(opts []*discordgo.ApplicationCommandInteractionDataOption) options {
	out := make(options, len(opts))
	for _, opt := range opts {
		out[opt.Name] = opt
	}
	return out
}

// subcommand splits off the first option when it is a subcommand.
func subcommand(opts []*discordgo.ApplicationCommandInteractionDataOption) (string, options) {
	if len(opts) == 0 || opts[0].Type != discordgo.ApplicationCommandOptionSubCommand {
		return "", optionMap(opts)
	}
	return opts[0].Name, optionMap(opts[0].Options)
}

func (o options) str(name string) string {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionString {
		return ""
	}
	return strings.TrimSpace(opt.StringValue())
}

func (o options) integer(name string) (int64, bool) {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionInteger {
		return 0, false
	}
	return opt.IntValue(), true
}

// userID reads a user option without a REST lookup.
func (o options) userID(name string) string {
	opt, ok := o[name]
	if !ok || (opt.Type != discordgo.ApplicationCommandOptionUser && opt.Type != discordgo.ApplicationCommandOptionMentionable) {
		return ""
	}
	return opt.UserValue(nil).ID
}

func (o options) channelID(name string) string {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionChannel {
		return ""
	}
	return opt.ChannelValue(nil).ID
}

// snowflake accepts a raw id or a <@id> / <@!id> mention.
func snowflake(value string) (string, bool) {
	value = strings.TrimSpace(value)
	value = strings.TrimPrefix(value, "<@")
	value = strings.TrimPrefix(value, "!")
	value = strings.TrimSuffix(value, ">")
	if len(value) < 15 || len(value) > 20 {
		return "", false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return "", false
		}
	}
	return value, true
}

func (o options) roleID(name string) string {
	opt, ok := o[name]
	if !ok || opt.Type != discordgo.ApplicationCommandOptionRole {
		return ""
	}
	return opt.RoleValue(nil, "").ID
}
