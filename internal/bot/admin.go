package bot

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"keeper/internal/analytics"
	"keeper/internal/config"
	"keeper/internal/moderation"
	"keeper/internal/modules/audit"
	"keeper/internal/modules/autorole"
	"keeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
)

// maxListLines keeps list embeds under Discord's description limit.
const maxListLines = 20

func (b *Bot) handleTimers(req *request) bool {
	timers := b.tracker.List(req.guildID)
	if len(timers) == 0 {
		b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), b.t(req.lang, "timers_none"), b.cfg.Notifications.EmbedColors.Info, nil), true)
		return true
	}

	lines := make([]string, 0, len(timers))
	for i, timer := range timers {
		if i == maxListLines {
			lines = append(lines, fmt.Sprintf(b.t(req.lang, "list_more"), len(timers)-maxListLines))
			break
		}
		lines = append(lines, fmt.Sprintf("**%s** %s <t:%d:R> %s",
			timer.Kind.Label(), targetMention(timer.Key), timer.ExpiresAt.Unix(), mention(timer.IssuerID)))
	}
	fields := []*discordgo.MessageEmbedField{{Name: b.t(req.lang, "field_active"), Value: fmt.Sprintf("%d", len(timers)), Inline: true}}
	b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Info, fields), true)
	return true
}

func (b *Bot) handleModlog(req *request) bool {
	if b.store == nil {
		return b.fail(req, "error_storage_unavailable")
	}
	target := req.opts.userID("user")
	limit, ok := req.opts.integer("limit")
	if !ok {
		limit = 10
	}

	cases, err := b.store.ListCases(req.ctx, req.guildID, target, int(limit))
	if err != nil {
		b.logger.Warn("list cases", zap.String("guild_id", req.guildID), zap.Error(err))
		return b.fail(req, "error_failed")
	}
	if len(cases) == 0 {
		b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), fmt.Sprintf(b.t(req.lang, "modlog_none"), mention(target)), b.cfg.Notifications.EmbedColors.Info, nil), true)
		return true
	}

	lines := make([]string, 0, len(cases))
	for _, c := range cases {
		lines = append(lines, formatCaseLine(c))
	}
	b.respondEmbed(req.session, req.interaction, b.commandEmbed(fmt.Sprintf(b.t(req.lang, "modlog_header"), len(cases)), strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Info, nil), true)
	return true
}

func formatCaseLine(c storage.ModerationCase) string {
	line := fmt.Sprintf("`%s` **%s** <t:%d:d> %s", shortRef(c.Reference), c.Action, c.CreatedAt.Unix(), mention(c.ModeratorID))
	if c.Duration != "" {
		line += " (" + c.Duration + ")"
	}
	if c.Reason != "" {
		line += ": " + c.Reason
	}
	return line
}

func (b *Bot) handleCase(req *request) bool {
	if b.store == nil {
		return b.fail(req, "error_storage_unavailable")
	}
	ref := req.opts.str("reference")
	c, err := b.store.GetCase(req.ctx, req.guildID, ref)
	if err != nil && errors.Is(err, storage.ErrNotFound) && len(ref) < 36 {
		c, err = b.findCaseByPrefix(req, ref)
	}
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return b.fail(req, "error_case_not_found")
		}
		return b.fail(req, "error_failed")
	}

	duration := c.Duration
	if duration == "" {
		duration = "-"
	}
	reason := c.Reason
	if reason == "" {
		reason = "-"
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(req.lang, "field_action"), Value: c.Action, Inline: true},
		{Name: b.t(req.lang, "field_user"), Value: mention(c.TargetID), Inline: true},
		{Name: b.t(req.lang, "field_moderator"), Value: mention(c.ModeratorID), Inline: true},
		{Name: b.t(req.lang, "field_duration"), Value: duration, Inline: true},
		{Name: b.t(req.lang, "field_date"), Value: fmt.Sprintf("<t:%d:f>", c.CreatedAt.Unix()), Inline: true},
		{Name: b.t(req.lang, "field_reason"), Value: reason},
	}
	embed := b.commandEmbed(b.title(req), "", b.cfg.Notifications.EmbedColors.Moderation, fields)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: c.Reference}
	b.respondEmbed(req.session, req.interaction, embed, true)
	return true
}

// findCaseByPrefix resolves the short reference shown in replies against the
// guild's recent cases.
func (b *Bot) findCaseByPrefix(req *request, prefix string) (storage.ModerationCase, error) {
	if prefix == "" {
		return storage.ModerationCase{}, storage.ErrNotFound
	}
	cases, err := b.store.ListCases(req.ctx, req.guildID, "", 500)
	if err != nil {
		return storage.ModerationCase{}, err
	}
	for _, c := range cases {
		if strings.HasPrefix(c.Reference, prefix) {
			return c, nil
		}
	}
	return storage.ModerationCase{}, storage.ErrNotFound
}

func (b *Bot) handleLogs(req *request) bool {
	channelID := req.opts.channelID("channel")
	if channelID == "" {
		value := b.modLogChannel(req.settings)
		if value == "" {
			value = b.t(req.lang, "value_not_set")
		} else {
			value = channelMention(value)
		}
		fields := []*discordgo.MessageEmbedField{{Name: b.t(req.lang, "field_channel"), Value: value, Inline: true}}
		b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), b.t(req.lang, "logs_current"), b.cfg.Notifications.EmbedColors.Info, fields), true)
		return true
	}
	if b.store == nil {
		return b.fail(req, "error_storage_unavailable")
	}

	req.settings.ModLogChannel = channelID
	if err := b.store.UpsertGuildSettings(req.ctx, req.settings); err != nil {
		b.logger.Warn("save mod log channel", zap.String("guild_id", req.guildID), zap.Error(err))
		return b.fail(req, "error_failed")
	}
	if b.audit != nil {
		b.audit.Log(req.ctx, audit.LevelInfo, req.guildID, req.actorID, audit.EventSettingsChanged, "mod_log channel="+channelID)
	}
	fields := []*discordgo.MessageEmbedField{{Name: b.t(req.lang, "field_channel"), Value: channelMention(channelID), Inline: true}}
	b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), b.t(req.lang, "logs_updated"), b.cfg.Notifications.EmbedColors.Success, fields), true)
	return true
}

func (b *Bot) handleAutorole(req *request, sub string) bool {
	if b.store == nil {
		return b.fail(req, "error_storage_unavailable")
	}
	roleID := req.opts.roleID("role")

	switch sub {
	case "add":
		var delay time.Duration
		if value := req.opts.str("delay"); value != "" {
			d, err := moderation.ParseDuration(value)
			if err != nil || d > autorole.MaxDelay {
				return b.fail(req, "error_invalid_duration")
			}
			delay = d
		}
		if err := b.store.UpsertAutorole(req.ctx, storage.Autorole{GuildID: req.guildID, RoleID: roleID, Delay: delay}); err != nil {
			b.logger.Warn("save autorole", zap.String("guild_id", req.guildID), zap.Error(err))
			return b.fail(req, "error_failed")
		}
		b.autoroleChanged(req, fmt.Sprintf("autorole_add role=%s delay=%ds", roleID, int(delay/time.Second)))
		desc := fmt.Sprintf(b.t(req.lang, "autorole_added"), roleMention(roleID), b.delayText(req.lang, delay))
		b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), desc, b.cfg.Notifications.EmbedColors.Success, nil), true)
		return true
	case "remove", "clear":
		if sub == "clear" {
			roleID = ""
		}
		n, err := b.store.DeleteAutorole(req.ctx, req.guildID, roleID)
		if err != nil {
			b.logger.Warn("delete autorole", zap.String("guild_id", req.guildID), zap.Error(err))
			return b.fail(req, "error_failed")
		}
		if n == 0 {
			return b.fail(req, "autorole_none")
		}
		desc := fmt.Sprintf(b.t(req.lang, "autorole_removed"), roleMention(roleID))
		if sub == "clear" {
			desc = fmt.Sprintf(b.t(req.lang, "autorole_cleared"), n)
		}
		b.autoroleChanged(req, fmt.Sprintf("autorole_%s role=%s count=%d", sub, roleID, n))
		b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), desc, b.cfg.Notifications.EmbedColors.Success, nil), true)
		return true
	case "list":
		roles, err := b.store.ListAutoroles(req.ctx, req.guildID)
		if err != nil {
			b.logger.Warn("list autoroles", zap.String("guild_id", req.guildID), zap.Error(err))
			return b.fail(req, "error_failed")
		}
		if len(roles) == 0 {
			b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), b.t(req.lang, "autorole_none"), b.cfg.Notifications.EmbedColors.Info, nil), true)
			return true
		}
		lines := make([]string, 0, len(roles))
		for _, role := range roles {
			lines = append(lines, roleMention(role.RoleID)+b.delayText(req.lang, role.Delay))
		}
		b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), strings.Join(lines, "\n"), b.cfg.Notifications.EmbedColors.Info, nil), true)
		return true
	default:
		return b.fail(req, "error_unknown_command")
	}
}

func (b *Bot) autoroleChanged(req *request, details string) {
	if b.audit != nil {
		b.audit.Log(req.ctx, audit.LevelInfo, req.guildID, req.actorID, audit.EventSettingsChanged, details)
	}
}

func (b *Bot) delayText(lang string, delay time.Duration) string {
	if delay <= 0 {
		return ""
	}
	return fmt.Sprintf(b.t(lang, "autorole_delay"), moderation.FormatRemaining(delay))
}

func (b *Bot) handleLanguage(req *request) bool {
	if b.store == nil {
		return b.fail(req, "error_storage_unavailable")
	}
	lang := config.NormalizeLanguage(req.opts.str("value"))
	req.settings.Language = lang
	if err := b.store.UpsertGuildSettings(req.ctx, req.settings); err != nil {
		b.logger.Warn("save language", zap.String("guild_id", req.guildID), zap.Error(err))
		return b.fail(req, "error_failed")
	}
	if b.audit != nil {
		b.audit.Log(req.ctx, audit.LevelInfo, req.guildID, req.actorID, audit.EventSettingsChanged, "language value="+lang)
	}
	req.lang = lang
	b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), b.t(lang, "language_updated"), b.cfg.Notifications.EmbedColors.Success, nil), true)
	return true
}

func (b *Bot) handleReport(req *request) bool {
	if b.analytics == nil {
		return b.fail(req, "error_storage_unavailable")
	}
	period := req.opts.str("period")
	if period == "" {
		period = "day"
	}
	since := analytics.PeriodStart(period, time.Now())
	report, err := b.analytics.Report(req.ctx, req.guildID, since)
	if err != nil {
		b.logger.Warn("build report", zap.String("guild_id", req.guildID), zap.Error(err))
		return b.fail(req, "error_failed")
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(req.lang, "field_period"), Value: b.t(req.lang, "period_"+period), Inline: true},
		{Name: b.t(req.lang, "field_events"), Value: fmt.Sprintf("%d", report.Total), Inline: true},
		{Name: b.t(req.lang, "field_critical"), Value: fmt.Sprintf("%d", report.ByLevel[audit.LevelCrit]), Inline: true},
	}
	if cases := analytics.Sorted(report.Cases); len(cases) > 0 {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(req.lang, "field_cases"), Value: formatCounts(cases, nil)})
	}
	if events := analytics.Sorted(report.ByEvent); len(events) > 0 {
		label := func(name string) string { return b.auditEventLabel(req.lang, name) }
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(req.lang, "field_top_events"), Value: formatCounts(events, label)})
	}
	b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), fmt.Sprintf(b.t(req.lang, "report_desc"), report.Since.Unix()), b.cfg.Notifications.EmbedColors.Info, fields), true)
	return true
}

// formatCounts lists at most five buckets, one per line.
func formatCounts(counts []analytics.Count, label func(string) string) string {
	lines := make([]string, 0, 5)
	for i, c := range counts {
		if i == 5 {
			break
		}
		name := c.Name
		if label != nil {
			name = label(name)
		}
		lines = append(lines, fmt.Sprintf("%s: **%d**", name, c.Value))
	}
	return strings.Join(lines, "\n")
}

func (b *Bot) handleStatus(req *request) bool {
	timers := b.tracker.List(req.guildID)
	byKind := make(map[moderation.Kind]int, len(moderation.Kinds))
	for _, timer := range timers {
		byKind[timer.Kind]++
	}
	parts := make([]string, 0, len(moderation.Kinds))
	for _, kind := range moderation.Kinds {
		if n := byKind[kind]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s: %d", kind.Label(), n))
		}
	}
	active := fmt.Sprintf("%d", len(timers))
	if len(parts) > 0 {
		active += "\n" + strings.Join(parts, "\n")
	}

	logChannel := b.modLogChannel(req.settings)
	if logChannel == "" {
		logChannel = b.t(req.lang, "value_not_set")
	} else {
		logChannel = channelMention(logChannel)
	}
	guardValue := b.t(req.lang, "value_off")
	if b.cfg.Moderation.Guard.Enabled {
		guardValue = fmt.Sprintf(b.t(req.lang, "guard_value"), b.cfg.Moderation.Guard.MaxActions, b.cfg.Moderation.Guard.WindowSeconds)
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(req.lang, "field_active"), Value: active, Inline: true},
		{Name: b.t(req.lang, "field_lockdown"), Value: b.onOff(req.lang, req.settings.LockdownEnabled), Inline: true},
		{Name: b.t(req.lang, "field_channel"), Value: logChannel, Inline: true},
		{Name: b.t(req.lang, "field_language"), Value: req.lang, Inline: true},
		{Name: b.t(req.lang, "field_dm"), Value: b.onOff(req.lang, req.settings.DMOnAction), Inline: true},
		{Name: b.t(req.lang, "field_guard"), Value: guardValue, Inline: true},
	}
	b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), b.t(req.lang, "status_desc"), b.cfg.Notifications.EmbedColors.Info, fields), true)
	return true
}

func (b *Bot) onOff(lang string, value bool) string {
	if value {
		return b.t(lang, "value_on")
	}
	return b.t(lang, "value_off")
}
