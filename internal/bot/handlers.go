package bot

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strconv"
	"sync/atomic"
	"time"

	"keeper/internal/moderation"
	"keeper/internal/modules/audit"
	"keeper/internal/modules/guard"
	"keeper/internal/platform/discord"
	"keeper/internal/purge"
	"keeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// fanOutLimit caps concurrent REST calls when one command touches many
// targets.
const fanOutLimit = 4

// softbanDefaultDays is how much history a softban sweeps when unset.
const softbanDefaultDays = 1

// request carries one slash command through its handler.
type request struct {
	ctx         context.Context
	session     Session
	interaction *discordgo.InteractionCreate
	name        string
	guildID     string
	actorID     string
	settings    storage.GuildSettings
	lang        string
	opts        options
	deferred    bool
}

func (b *Bot) onInteractionCreate(session *discordgo.Session, interaction *discordgo.InteractionCreate) {
	b.handleInteraction(session, interaction)
}

func (b *Bot) handleInteraction(session Session, interaction *discordgo.InteractionCreate) {
	if interaction.Type != discordgo.InteractionApplicationCommand {
		return
	}

	ctx := context.Background()
	data := interaction.ApplicationCommandData()

	if interaction.GuildID == "" || interaction.Member == nil || interaction.Member.User == nil {
		lang := b.cfg.DefaultLanguage
		b.respondEmbed(session, interaction, b.commandEmbed(b.t(lang, "error_title"), b.t(lang, "error_only_guild"), b.cfg.Notifications.EmbedColors.Error, nil), true)
		b.recordCommand(data.Name, "rejected")
		return
	}

	settings := b.guildSettings(ctx, interaction.GuildID)
	req := &request{
		ctx:         ctx,
		session:     session,
		interaction: interaction,
		name:        data.Name,
		guildID:     interaction.GuildID,
		actorID:     interaction.Member.User.ID,
		settings:    settings,
		lang:        settings.Language,
		opts:        optionMap(data.Options),
	}

	if perm, ok := commandPermissions[data.Name]; ok && !hasPermission(interaction.Member, perm) {
		b.fail(req, "error_missing_permission")
		b.recordCommand(data.Name, "denied")
		return
	}

	var ok bool
	switch data.Name {
	case "mute":
		ok = b.handleVoice(req, moderation.Mute, true)
	case "unmute":
		ok = b.handleVoice(req, moderation.Mute, false)
	case "deafen":
		ok = b.handleVoice(req, moderation.Deafen, true)
	case "undeafen":
		ok = b.handleVoice(req, moderation.Deafen, false)
	case "lock":
		ok = b.handleLock(req, true)
	case "unlock":
		ok = b.handleLock(req, false)
	case "slowmode":
		ok = b.handleSlowmode(req)
	case "ban":
		ok = b.handleBan(req)
	case "unban":
		ok = b.handleUnban(req)
	case "baninfo":
		ok = b.handleBanInfo(req)
	case "kick":
		ok = b.handleKick(req)
	case "softban":
		ok = b.handleSoftban(req)
	case "timeout":
		var sub string
		sub, req.opts = subcommand(data.Options)
		ok = b.handleTimeout(req, sub)
	case "purge":
		ok = b.handlePurge(req)
	case "lockdown":
		ok = b.handleLockdown(req)
	case "timers":
		ok = b.handleTimers(req)
	case "modlog":
		ok = b.handleModlog(req)
	case "case":
		ok = b.handleCase(req)
	case "logs":
		ok = b.handleLogs(req)
	case "autorole":
		var sub string
		sub, req.opts = subcommand(data.Options)
		ok = b.handleAutorole(req, sub)
	case "language":
		ok = b.handleLanguage(req)
	case "report":
		ok = b.handleReport(req)
	case "status":
		ok = b.handleStatus(req)
	default:
		ok = b.fail(req, "error_unknown_command")
	}

	result := "ok"
	if !ok {
		result = "error"
	}
	b.recordCommand(data.Name, result)
}

// errorKey maps a moderation failure onto its user-facing message.
func errorKey(err error) string {
	switch {
	case errors.Is(err, moderation.ErrInvalidDuration):
		return "error_invalid_duration"
	case errors.Is(err, moderation.ErrInvalidSetting):
		return "error_invalid_delay"
	case errors.Is(err, moderation.ErrPermissionDenied):
		return "error_permission_denied"
	case errors.Is(err, moderation.ErrNotRestricted):
		return "error_not_restricted"
	case errors.Is(err, moderation.ErrTargetNotFound):
		return "error_target_not_found"
	case errors.Is(err, moderation.ErrTargetNotInVoice):
		return "error_not_in_voice"
	default:
		return "error_failed"
	}
}

func (b *Bot) title(req *request) string {
	return b.t(req.lang, req.name+"_title")
}

func (b *Bot) reply(req *request, embed *discordgo.MessageEmbed) {
	if req.deferred {
		b.editEmbed(req.session, req.interaction, embed)
		return
	}
	b.respondEmbed(req.session, req.interaction, embed, false)
}

// fail answers with the message under key and always returns false.
func (b *Bot) fail(req *request, key string) bool {
	embed := b.commandEmbed(b.title(req), b.t(req.lang, key), b.cfg.Notifications.EmbedColors.Error, nil)
	if req.deferred {
		b.editEmbed(req.session, req.interaction, embed)
		return false
	}
	b.respondEmbed(req.session, req.interaction, embed, true)
	return false
}

func (b *Bot) failErr(req *request, err error) bool {
	key := errorKey(err)
	if key == "error_failed" {
		b.logger.Warn("command failed",
			zap.String("command", req.name),
			zap.String("guild_id", req.guildID),
			zap.Error(err),
		)
	}
	return b.fail(req, key)
}

func (b *Bot) deferReply(req *request, ephemeral bool) {
	b.deferResponse(req.session, req.interaction, ephemeral)
	req.deferred = true
}

func (b *Bot) reasonOr(reason string) string {
	if reason != "" {
		return reason
	}
	if len(b.cfg.Moderation.DefaultReasons) == 0 {
		return ""
	}
	return b.cfg.Moderation.DefaultReasons[0]
}

func (b *Bot) randomReason() string {
	reasons := b.cfg.Moderation.DefaultReasons
	if len(reasons) == 0 {
		return ""
	}
	return reasons[rand.Intn(len(reasons))]
}

// caseEmbed describes a completed action.
func (b *Bot) caseEmbed(req *request, description, human, reason, ref string) *discordgo.MessageEmbed {
	if human == "" {
		human = b.t(req.lang, "value_permanent")
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(req.lang, "field_duration"), Value: human, Inline: true},
		{Name: b.t(req.lang, "field_moderator"), Value: mention(req.actorID), Inline: true},
	}
	if reason != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(req.lang, "field_reason"), Value: reason})
	}
	embed := b.commandEmbed(b.title(req), description, b.cfg.Notifications.EmbedColors.Moderation, fields)
	if ref != "" {
		embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t(req.lang, "field_case") + " " + shortRef(ref)}
	}
	return embed
}

func shortRef(ref string) string {
	if len(ref) > 8 {
		return ref[:8]
	}
	return ref
}

// record stores a case and returns its reference, or "" when it could not be
// stored.
func (b *Bot) record(ctx context.Context, c storage.ModerationCase, event string) string {
	if b.audit == nil {
		return ""
	}
	stored, err := b.audit.RecordCase(ctx, c, event)
	if err != nil {
		b.logger.Warn("record case", zap.String("guild_id", c.GuildID), zap.String("action", c.Action), zap.Error(err))
		return ""
	}
	return stored.Reference
}

// restrict applies key through the tracker, timed when duration is set, and
// records the case. It returns the human duration, empty when permanent.
func (b *Bot) restrict(req *request, key moderation.Key, duration string, setting int, reason string) (string, string, error) {
	human := ""
	if duration == "" {
		if err := b.tracker.ApplyPermanent(req.ctx, key, moderation.ApplyOptions{Setting: setting, Reason: reason}); err != nil {
			return "", "", err
		}
	} else {
		applied, err := b.tracker.Apply(req.ctx, moderation.Request{
			ScopeID:  key.ScopeID,
			TargetID: key.TargetID,
			Kind:     key.Kind,
			Duration: duration,
			IssuerID: req.actorID,
			Reason:   reason,
			Setting:  setting,
		})
		if err != nil {
			return "", "", err
		}
		human = applied.Human
	}
	ref := b.record(req.ctx, storage.ModerationCase{
		GuildID:     key.ScopeID,
		TargetID:    key.TargetID,
		ModeratorID: req.actorID,
		Action:      string(key.Kind),
		Reason:      reason,
		Duration:    duration,
	}, audit.EventRestrictionApplied)
	return human, ref, nil
}

// lift reverses key through the tracker and records the case.
func (b *Bot) lift(req *request, key moderation.Key, reason string) (string, error) {
	if err := b.tracker.Reverse(req.ctx, key, req.actorID, reason); err != nil {
		return "", err
	}
	ref := b.record(req.ctx, storage.ModerationCase{
		GuildID:     key.ScopeID,
		TargetID:    key.TargetID,
		ModeratorID: req.actorID,
		Action:      liftAction(key.Kind),
		Reason:      reason,
	}, audit.EventRestrictionReversed)
	return ref, nil
}

func liftAction(kind moderation.Kind) string {
	switch kind {
	case moderation.ChannelLock:
		return "unlock"
	case moderation.Slowmode:
		return "slowmode_off"
	default:
		return "un" + string(kind)
	}
}

// fanOut runs fn for every target with bounded concurrency. Targets that
// turn out not to be restricted count as neither done nor failed.
func fanOut(targets []string, fn func(targetID string) error) (done, failed int) {
	var ok, bad atomic.Int32
	var g errgroup.Group
	g.SetLimit(fanOutLimit)
	for _, id := range targets {
		id := id
		g.Go(func() error {
			err := fn(id)
			switch {
			case errors.Is(err, moderation.ErrNotRestricted):
			case err != nil:
				bad.Add(1)
			default:
				ok.Add(1)
			}
			return nil
		})
	}
	_ = g.Wait()
	return int(ok.Load()), int(bad.Load())
}

// voiceChannelMembers lists the members sharing the actor's voice channel,
// leaving out the actor and the bot.
func (b *Bot) voiceChannelMembers(guildID, actorID string) (string, []string, bool) {
	state := b.state
	voice, err := state.VoiceState(guildID, actorID)
	if err != nil || voice.ChannelID == "" {
		return "", nil, false
	}
	guild, err := state.Guild(guildID)
	if err != nil {
		return voice.ChannelID, nil, true
	}

	state.RLock()
	defer state.RUnlock()
	members := make([]string, 0, len(guild.VoiceStates))
	for _, vs := range guild.VoiceStates {
		if vs.ChannelID != voice.ChannelID || vs.UserID == actorID {
			continue
		}
		if state.User != nil && vs.UserID == state.User.ID {
			continue
		}
		members = append(members, vs.UserID)
	}
	return voice.ChannelID, members, true
}

func (b *Bot) handleVoice(req *request, kind moderation.Kind, apply bool) bool {
	reason := b.reasonOr(req.opts.str("reason"))
	duration := req.opts.str("duration")

	if target := req.opts.userID("member"); target != "" {
		if key := b.checkHierarchy(req.guildID, req.actorID, target); key != "" {
			return b.fail(req, key)
		}
		key := moderation.Key{ScopeID: req.guildID, TargetID: target, Kind: kind}
		if apply {
			human, ref, err := b.restrict(req, key, duration, 0, reason)
			if err != nil {
				return b.failErr(req, err)
			}
			b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, req.name+"_done"), mention(target)), human, reason, ref))
			return true
		}
		ref, err := b.lift(req, key, reason)
		if err != nil {
			return b.failErr(req, err)
		}
		b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, req.name+"_done"), mention(target)), "-", reason, ref))
		return true
	}

	channelID, members, ok := b.voiceChannelMembers(req.guildID, req.actorID)
	if !ok {
		return b.fail(req, "error_actor_not_in_voice")
	}
	if len(members) == 0 {
		return b.fail(req, "error_voice_empty")
	}
	human := "-"
	if apply {
		human = ""
		if duration != "" {
			d, err := moderation.ParseDuration(duration)
			if err != nil {
				return b.failErr(req, err)
			}
			human = moderation.FormatRemaining(d)
		}
	}

	b.deferReply(req, false)
	done, failed := fanOut(members, func(target string) error {
		key := moderation.Key{ScopeID: req.guildID, TargetID: target, Kind: kind}
		if apply {
			_, _, err := b.restrict(req, key, duration, 0, reason)
			return err
		}
		_, err := b.lift(req, key, reason)
		return err
	})

	embed := b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, req.name+"_channel_done"), done, channelMention(channelID)), human, reason, "")
	if failed > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: b.t(req.lang, "field_failed"), Value: fmt.Sprintf("%d", failed), Inline: true})
	}
	b.reply(req, embed)
	return failed == 0
}

func (b *Bot) targetChannel(req *request) string {
	if id := req.opts.channelID("channel"); id != "" {
		return id
	}
	return req.interaction.ChannelID
}

func (b *Bot) handleLock(req *request, lock bool) bool {
	channelID := b.targetChannel(req)
	reason := b.reasonOr(req.opts.str("reason"))
	key := moderation.Key{ScopeID: req.guildID, TargetID: channelID, Kind: moderation.ChannelLock}

	if lock {
		human, ref, err := b.restrict(req, key, req.opts.str("duration"), 0, reason)
		if err != nil {
			return b.failErr(req, err)
		}
		b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "lock_done"), channelMention(channelID)), human, reason, ref))
		return true
	}

	ref, err := b.lift(req, key, reason)
	if err != nil {
		return b.failErr(req, err)
	}
	b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "unlock_done"), channelMention(channelID)), "-", reason, ref))
	return true
}

func (b *Bot) handleSlowmode(req *request) bool {
	channelID := b.targetChannel(req)
	delay := req.opts.str("delay")
	reason := b.reasonOr(req.opts.str("reason"))
	key := moderation.Key{ScopeID: req.guildID, TargetID: channelID, Kind: moderation.Slowmode}

	if delay == "" {
		return b.showSlowmode(req, key)
	}

	if moderation.IsDisable(delay) {
		ref, err := b.lift(req, key, reason)
		if err != nil {
			return b.failErr(req, err)
		}
		b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "slowmode_disabled"), channelMention(channelID)), "-", reason, ref))
		return true
	}

	d, err := slowmodeDelay(delay)
	if err != nil {
		return b.fail(req, "error_invalid_delay")
	}
	seconds := int(d / time.Second)
	if seconds > b.cfg.Moderation.MaxSlowmodeSeconds {
		return b.fail(req, "error_invalid_delay")
	}

	human, ref, err := b.restrict(req, key, req.opts.str("duration"), seconds, reason)
	if err != nil {
		return b.failErr(req, err)
	}
	desc := fmt.Sprintf(b.t(req.lang, "slowmode_done"), channelMention(channelID), moderation.FormatRemaining(d))
	b.reply(req, b.caseEmbed(req, desc, human, reason, ref))
	return true
}

// slowmodeDelay reads a delay such as 30s or 5m. A bare number is seconds.
func slowmodeDelay(value string) (time.Duration, error) {
	if n, err := strconv.Atoi(value); err == nil {
		if n <= 0 {
			return 0, fmt.Errorf("%w: %q", moderation.ErrInvalidSetting, value)
		}
		return time.Duration(n) * time.Second, nil
	}
	return moderation.ParseDuration(value)
}

func (b *Bot) showSlowmode(req *request, key moderation.Key) bool {
	channel, err := req.session.Channel(key.TargetID)
	if err != nil {
		return b.failErr(req, discord.Classify(err))
	}
	if channel.RateLimitPerUser == 0 {
		b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), fmt.Sprintf(b.t(req.lang, "slowmode_off"), channelMention(key.TargetID)), b.cfg.Notifications.EmbedColors.Info, nil), true)
		return true
	}

	current := moderation.FormatRemaining(time.Duration(channel.RateLimitPerUser) * time.Second)
	fields := []*discordgo.MessageEmbedField{{Name: b.t(req.lang, "field_expires"), Value: b.t(req.lang, "value_permanent"), Inline: true}}
	if timed, ok := b.tracker.Get(key); ok {
		fields[0].Value = fmt.Sprintf("<t:%d:R>", timed.ExpiresAt.Unix())
	}
	b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), fmt.Sprintf(b.t(req.lang, "slowmode_current"), channelMention(key.TargetID), current), b.cfg.Notifications.EmbedColors.Info, fields), true)
	return true
}

// guarded counts a destructive action against the guard and answers the
// refusal itself.
func (b *Bot) guarded(req *request, action string) bool {
	verdict := b.guard.Check(req.guildID, req.actorID, action)
	if verdict.Allowed {
		return true
	}
	if verdict.Tripped && b.audit != nil {
		b.audit.Log(req.ctx, audit.LevelCrit, req.guildID, req.actorID, audit.EventGuardTripped,
			fmt.Sprintf("action=%s count=%d limit=%d", action, verdict.Count, verdict.Limit))
	}
	b.fail(req, "error_guard")
	return false
}

func (b *Bot) guildName(guildID string) string {
	if guild, err := b.state.Guild(guildID); err == nil && guild.Name != "" {
		return guild.Name
	}
	return guildID
}

func (b *Bot) handleBan(req *request) bool {
	target := req.opts.userID("user")
	reason := b.reasonOr(req.opts.str("reason"))
	duration := req.opts.str("duration")
	days, _ := req.opts.integer("delete_days")

	if key := b.checkHierarchy(req.guildID, req.actorID, target); key != "" {
		return b.fail(req, key)
	}
	if duration != "" {
		if _, err := moderation.ParseDuration(duration); err != nil {
			return b.failErr(req, err)
		}
	}
	if !b.guarded(req, guard.ActionBan) {
		return false
	}

	b.notifyCaseDM(req.settings, target, b.t(req.lang, "dm_ban_title"), fmt.Sprintf(b.t(req.lang, "dm_ban_desc"), b.guildName(req.guildID), reason))

	key := moderation.Key{ScopeID: req.guildID, TargetID: target, Kind: moderation.Ban}
	human, ref, err := b.restrict(req, key, duration, int(days), reason)
	if err != nil {
		return b.failErr(req, err)
	}
	b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "ban_done"), mention(target)), human, reason, ref))
	return true
}

func (b *Bot) handleUnban(req *request) bool {
	target, ok := snowflake(req.opts.str("user_id"))
	if !ok {
		return b.fail(req, "error_invalid_user_id")
	}
	reason := b.reasonOr(req.opts.str("reason"))
	ref, err := b.lift(req, moderation.Key{ScopeID: req.guildID, TargetID: target, Kind: moderation.Ban}, reason)
	if err != nil {
		if errors.Is(err, moderation.ErrNotRestricted) {
			return b.fail(req, "error_not_banned")
		}
		return b.failErr(req, err)
	}
	b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "unban_done"), mention(target)), "-", reason, ref))
	return true
}

func (b *Bot) handleBanInfo(req *request) bool {
	target, ok := snowflake(req.opts.str("user_id"))
	if !ok {
		return b.fail(req, "error_invalid_user_id")
	}
	ban, err := req.session.GuildBan(req.guildID, target)
	if err != nil {
		err = discord.Classify(err)
		if errors.Is(err, moderation.ErrNotRestricted) || errors.Is(err, moderation.ErrTargetNotFound) {
			return b.fail(req, "error_not_banned")
		}
		return b.failErr(req, err)
	}

	reason := ban.Reason
	if reason == "" {
		reason = "-"
	}
	expires := b.t(req.lang, "value_permanent")
	if timed, ok := b.tracker.Get(moderation.Key{ScopeID: req.guildID, TargetID: target, Kind: moderation.Ban}); ok {
		expires = fmt.Sprintf("<t:%d:R>", timed.ExpiresAt.Unix())
	}
	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(req.lang, "field_user"), Value: mention(target), Inline: true},
		{Name: b.t(req.lang, "field_expires"), Value: expires, Inline: true},
		{Name: b.t(req.lang, "field_reason"), Value: reason},
	}
	b.respondEmbed(req.session, req.interaction, b.commandEmbed(b.title(req), "", b.cfg.Notifications.EmbedColors.Info, fields), true)
	return true
}

func (b *Bot) handleKick(req *request) bool {
	target := req.opts.userID("member")
	reason := b.reasonOr(req.opts.str("reason"))

	if key := b.checkHierarchy(req.guildID, req.actorID, target); key != "" {
		return b.fail(req, key)
	}
	if !b.guarded(req, guard.ActionKick) {
		return false
	}

	b.notifyCaseDM(req.settings, target, b.t(req.lang, "dm_kick_title"), fmt.Sprintf(b.t(req.lang, "dm_kick_desc"), b.guildName(req.guildID), reason))
	if err := req.session.GuildMemberDeleteWithReason(req.guildID, target, reason); err != nil {
		return b.failErr(req, discord.Classify(err))
	}
	ref := b.record(req.ctx, storage.ModerationCase{
		GuildID:     req.guildID,
		TargetID:    target,
		ModeratorID: req.actorID,
		Action:      "kick",
		Reason:      reason,
	}, audit.EventKick)
	b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "kick_done"), mention(target)), "-", reason, ref))
	return true
}

// handleSoftban bans to sweep the member's recent messages, then lifts the
// ban at once so they may rejoin.
func (b *Bot) handleSoftban(req *request) bool {
	target := req.opts.userID("member")
	reason := b.reasonOr(req.opts.str("reason"))
	days := softbanDefaultDays
	if n, ok := req.opts.integer("delete_days"); ok {
		days = int(n)
	}

	if key := b.checkHierarchy(req.guildID, req.actorID, target); key != "" {
		return b.fail(req, key)
	}
	if !b.guarded(req, guard.ActionBan) {
		return false
	}

	b.notifyCaseDM(req.settings, target, b.t(req.lang, "dm_softban_title"), fmt.Sprintf(b.t(req.lang, "dm_softban_desc"), b.guildName(req.guildID), reason))
	if err := req.session.GuildBanCreateWithReason(req.guildID, target, reason, days); err != nil {
		return b.failErr(req, discord.Classify(err))
	}
	if err := req.session.GuildBanDelete(req.guildID, target, discordgo.WithAuditLogReason("Softban")); err != nil {
		b.logger.Error("softban left the user banned",
			zap.String("guild_id", req.guildID),
			zap.String("target_id", target),
			zap.Error(err),
		)
		return b.failErr(req, discord.Classify(err))
	}
	ref := b.record(req.ctx, storage.ModerationCase{
		GuildID:     req.guildID,
		TargetID:    target,
		ModeratorID: req.actorID,
		Action:      "softban",
		Reason:      reason,
	}, audit.EventSoftban)
	b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "softban_done"), mention(target), days), "-", reason, ref))
	return true
}

// handleTimeout uses the platform's native time out, which expires on its
// own and needs no tracker entry.
func (b *Bot) handleTimeout(req *request, sub string) bool {
	target := req.opts.userID("member")
	reason := req.opts.str("reason")
	if reason == "" {
		reason = b.randomReason()
	}
	if key := b.checkHierarchy(req.guildID, req.actorID, target); key != "" {
		return b.fail(req, key)
	}

	switch sub {
	case "add":
		duration := req.opts.str("duration")
		d, err := moderation.ParseDuration(duration)
		if err != nil {
			return b.failErr(req, err)
		}
		if d > time.Duration(b.cfg.Moderation.MaxTimeoutDays)*24*time.Hour {
			return b.fail(req, "error_timeout_too_long")
		}
		until := time.Now().Add(d)
		if err := req.session.GuildMemberTimeout(req.guildID, target, &until, discordgo.WithAuditLogReason(reason)); err != nil {
			return b.failErr(req, discord.Classify(err))
		}
		b.notifyCaseDM(req.settings, target, b.t(req.lang, "dm_timeout_title"), fmt.Sprintf(b.t(req.lang, "dm_timeout_desc"), b.guildName(req.guildID), moderation.FormatRemaining(d), reason))
		ref := b.record(req.ctx, storage.ModerationCase{
			GuildID:     req.guildID,
			TargetID:    target,
			ModeratorID: req.actorID,
			Action:      "timeout",
			Reason:      reason,
			Duration:    duration,
		}, audit.EventTimeout)
		b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "timeout_done"), mention(target)), moderation.FormatRemaining(d), reason, ref))
		return true
	case "remove":
		if err := req.session.GuildMemberTimeout(req.guildID, target, nil, discordgo.WithAuditLogReason(reason)); err != nil {
			return b.failErr(req, discord.Classify(err))
		}
		ref := b.record(req.ctx, storage.ModerationCase{
			GuildID:     req.guildID,
			TargetID:    target,
			ModeratorID: req.actorID,
			Action:      "untimeout",
			Reason:      reason,
		}, audit.EventTimeoutRemoved)
		b.reply(req, b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "timeout_removed"), mention(target)), "-", reason, ref))
		return true
	default:
		return b.fail(req, "error_unknown_command")
	}
}

func (b *Bot) handlePurge(req *request) bool {
	amount, _ := req.opts.integer("amount")
	if amount <= 0 || amount > int64(b.cfg.Moderation.PurgeMax) {
		return b.fail(req, "error_purge_amount")
	}
	mode, err := purge.ParseMode(req.opts.str("filter"))
	if err != nil {
		return b.fail(req, "error_purge_filter")
	}
	if !b.guarded(req, guard.ActionPurge) {
		return false
	}

	channelID := req.interaction.ChannelID
	b.deferReply(req, true)

	messages, err := req.session.ChannelMessages(channelID, purge.MaxAmount, "", "", "")
	if err != nil {
		return b.failErr(req, discord.Classify(err))
	}
	ids := purge.Select(messages, purge.Filter{
		Mode:     mode,
		AuthorID: req.opts.userID("user"),
		Contains: req.opts.str("contains"),
		Domain:   req.opts.str("domain"),
		Now:      time.Now(),
	}, int(amount))
	if len(ids) == 0 {
		return b.fail(req, "purge_nothing")
	}

	if len(ids) == 1 {
		err = req.session.ChannelMessageDelete(channelID, ids[0])
	} else {
		err = req.session.ChannelMessagesBulkDelete(channelID, ids)
	}
	if err != nil {
		return b.failErr(req, discord.Classify(err))
	}

	if b.audit != nil {
		b.audit.Log(req.ctx, audit.LevelInfo, req.guildID, req.actorID, audit.EventPurge,
			fmt.Sprintf("channel=%s count=%d filter=%s", channelID, len(ids), mode))
	}
	b.reply(req, b.commandEmbed(b.title(req), fmt.Sprintf(b.t(req.lang, "purge_done"), len(ids), channelMention(channelID)), b.cfg.Notifications.EmbedColors.Success, nil))
	return true
}

// lockableChannel reports whether lockdown covers the channel.
func lockableChannel(channel *discordgo.Channel) bool {
	switch channel.Type {
	case discordgo.ChannelTypeGuildText, discordgo.ChannelTypeGuildNews:
		return true
	default:
		return false
	}
}

func (b *Bot) handleLockdown(req *request) bool {
	on := req.opts.str("value") == "on"
	reason := b.reasonOr(req.opts.str("reason"))
	duration := req.opts.str("duration")
	if on && duration == "" {
		duration = b.cfg.Moderation.LockdownDefault
	}
	if duration != "" {
		if _, err := moderation.ParseDuration(duration); err != nil {
			return b.failErr(req, err)
		}
	}
	if on && !b.guarded(req, guard.ActionLockdown) {
		return false
	}

	b.deferReply(req, false)
	channels, err := req.session.GuildChannels(req.guildID)
	if err != nil {
		return b.failErr(req, discord.Classify(err))
	}
	targets := make([]string, 0, len(channels))
	for _, channel := range channels {
		if lockableChannel(channel) {
			targets = append(targets, channel.ID)
		}
	}

	done, failed := fanOut(targets, func(channelID string) error {
		key := moderation.Key{ScopeID: req.guildID, TargetID: channelID, Kind: moderation.ChannelLock}
		if !on {
			return b.tracker.Reverse(req.ctx, key, req.actorID, reason)
		}
		if duration == "" {
			return b.tracker.ApplyPermanent(req.ctx, key, moderation.ApplyOptions{Reason: reason})
		}
		_, err := b.tracker.Apply(req.ctx, moderation.Request{
			ScopeID:  req.guildID,
			TargetID: channelID,
			Kind:     moderation.ChannelLock,
			Duration: duration,
			IssuerID: req.actorID,
			Reason:   reason,
		})
		return err
	})

	req.settings.LockdownEnabled = on
	if b.store != nil {
		if err := b.store.UpsertGuildSettings(req.ctx, req.settings); err != nil {
			b.logger.Warn("save lockdown state", zap.String("guild_id", req.guildID), zap.Error(err))
		}
	}

	state := "off"
	if on {
		state = "on"
	}
	if b.audit != nil {
		details := fmt.Sprintf("state=%s channels=%d", state, done)
		if on && duration != "" {
			details += " duration=" + duration
		}
		details += " reason=" + reason
		b.audit.Log(req.ctx, audit.LevelWarn, req.guildID, req.actorID, audit.EventLockdown, details)
	}

	human := "-"
	if on {
		human = ""
		if d, err := moderation.ParseDuration(duration); err == nil {
			human = moderation.FormatRemaining(d)
		}
	}
	embed := b.caseEmbed(req, fmt.Sprintf(b.t(req.lang, "lockdown_"+state), done), human, reason, "")
	if failed > 0 {
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: b.t(req.lang, "field_failed"), Value: fmt.Sprintf("%d", failed), Inline: true})
	}
	b.reply(req, embed)
	return failed == 0
}
