package bot

import "github.com/bwmarrin/discordgo"

// commandPermissions is the member permission each command needs. It is both
// the default shown by Discord and the check made on every interaction.
var commandPermissions = map[string]int64{
	"mute":     discordgo.PermissionVoiceMuteMembers,
	"unmute":   discordgo.PermissionVoiceMuteMembers,
	"deafen":   discordgo.PermissionVoiceDeafenMembers,
	"undeafen": discordgo.PermissionVoiceDeafenMembers,
	"lock":     discordgo.PermissionManageChannels,
	"unlock":   discordgo.PermissionManageChannels,
	"slowmode": discordgo.PermissionManageChannels,
	"lockdown": discordgo.PermissionManageChannels,
	"ban":      discordgo.PermissionBanMembers,
	"unban":    discordgo.PermissionBanMembers,
	"baninfo":  discordgo.PermissionBanMembers,
	"kick":     discordgo.PermissionKickMembers,
	"softban":  discordgo.PermissionBanMembers,
	"timeout":  discordgo.PermissionModerateMembers,
	"purge":    discordgo.PermissionManageMessages,
	"timers":   discordgo.PermissionModerateMembers,
	"modlog":   discordgo.PermissionModerateMembers,
	"case":     discordgo.PermissionModerateMembers,
	"report":   discordgo.PermissionModerateMembers,
	"status":   discordgo.PermissionModerateMembers,
	"logs":     discordgo.PermissionManageServer,
	"language": discordgo.PermissionManageServer,
	"autorole": discordgo.PermissionManageRoles,
}

func hasPermission(member *discordgo.Member, permission int64) bool {
	if member == nil {
		return false
	}
	if member.Permissions&discordgo.PermissionAdministrator != 0 {
		return true
	}
	return member.Permissions&permission == permission
}

// topRolePosition is the highest position among the member's roles, 0 for
// @everyone only.
func topRolePosition(guild *discordgo.Guild, member *discordgo.Member) int {
	if guild == nil || member == nil {
		return 0
	}
	positions := make(map[string]int, len(guild.Roles))
	for _, role := range guild.Roles {
		positions[role.ID] = role.Position
	}
	top := 0
	for _, id := range member.Roles {
		if pos := positions[id]; pos > top {
			top = pos
		}
	}
	return top
}

// outranks reports whether actor may act on target: the owner always may,
// nobody may act on the owner, otherwise the actor's top role must be higher.
func outranks(guild *discordgo.Guild, actor, target *discordgo.Member) bool {
	if guild == nil || actor == nil || actor.User == nil {
		return false
	}
	if target == nil || target.User == nil {
		return true
	}
	if actor.User.ID == guild.OwnerID {
		return true
	}
	if target.User.ID == guild.OwnerID {
		return false
	}
	return topRolePosition(guild, actor) > topRolePosition(guild, target)
}

// checkHierarchy returns the i18n key of the refusal, or "" when the action
// may proceed. Targets outside the guild state are not checked.
func (b *Bot) checkHierarchy(guildID, actorID, targetID string) string {
	if targetID == actorID {
		return "error_self_target"
	}
	if b.state.User != nil && targetID == b.state.User.ID {
		return "error_bot_target"
	}
	guild, err := b.state.Guild(guildID)
	if err != nil {
		return ""
	}
	target, err := b.state.Member(guildID, targetID)
	if err != nil {
		return ""
	}
	actor, err := b.state.Member(guildID, actorID)
	if err != nil {
		return ""
	}
	if !outranks(guild, actor, target) {
		return "error_hierarchy"
	}
	if b.state.User != nil {
		if me, err := b.state.Member(guildID, b.state.User.ID); err == nil && !outranks(guild, me, target) {
			return "error_bot_hierarchy"
		}
	}
	return ""
}
