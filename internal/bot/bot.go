package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"keeper/internal/analytics"
	"keeper/internal/config"
	"keeper/internal/moderation"
	"keeper/internal/modules/audit"
	"keeper/internal/modules/autorole"
	"keeper/internal/modules/guard"
	"keeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

type Bot struct {
	cfg       config.Config
	logger    *zap.Logger
	store     *storage.Store
	tracker   *moderation.Tracker
	audit     *audit.Logger
	analytics *analytics.Service
	guard     *guard.Guard
	autorole  *autorole.Assigner
	// session drives the gateway; rest and state serve the handlers.
	session  *discordgo.Session
	rest     Session
	state    *discordgo.State
	commands *prometheus.CounterVec
}

type Dependencies struct {
	Config    config.Config
	Logger    *zap.Logger
	Store     *storage.Store
	Session   *discordgo.Session
	Tracker   *moderation.Tracker
	Audit     *audit.Logger
	Analytics *analytics.Service
	Guard     *guard.Guard
	// Autorole gives roles to joining members. Nil disables it.
	Autorole *autorole.Assigner
	// Registerer receives the command counter. Nil skips it.
	Registerer prometheus.Registerer
}

// NewSession opens nothing; it prepares a gateway session with the intents
// the moderation commands rely on.
func NewSession(token string) (*discordgo.Session, error) {
	session, err := discordgo.New("Bot " + token)
	if err != nil {
		return nil, err
	}
	session.Identify.Intents = discordgo.IntentsGuilds |
		discordgo.IntentsGuildMessages |
		discordgo.IntentsGuildMembers |
		discordgo.IntentsGuildBans |
		discordgo.IntentsGuildVoiceStates
	return session, nil
}

func New(deps Dependencies) (*Bot, error) {
	if deps.Session == nil {
		return nil, errors.New("bot: session is required")
	}
	if deps.Tracker == nil {
		return nil, errors.New("bot: tracker is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Guard == nil {
		deps.Guard = guard.Disabled()
	}

	b := &Bot{
		cfg:       deps.Config,
		logger:    deps.Logger,
		store:     deps.Store,
		tracker:   deps.Tracker,
		audit:     deps.Audit,
		analytics: deps.Analytics,
		guard:     deps.Guard,
		autorole:  deps.Autorole,
		session:   deps.Session,
		rest:      deps.Session,
		state:     deps.Session.State,
	}
	if b.state == nil {
		b.state = discordgo.NewState()
	}

	if deps.Registerer != nil {
		b.commands = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keeper_commands_total",
			Help: "Slash commands handled, by command and result.",
		}, []string{"command", "result"})
		if err := deps.Registerer.Register(b.commands); err != nil {
			return nil, fmt.Errorf("register command metrics: %w", err)
		}
	}

	if b.audit != nil {
		b.audit.SetNotifier(func(ctx context.Context, entry storage.AuditLog) {
			if !b.cfg.Notifications.AuditToChannel {
				return
			}
			b.notifyAudit(ctx, entry)
		})
	}

	return b, nil
}

func (b *Bot) Start() error {
	b.session.AddHandler(b.onReady)
	b.session.AddHandler(b.onGuildDelete)
	b.session.AddHandler(b.onGuildMemberAdd)
	b.session.AddHandler(b.onGuildMemberRemove)
	b.session.AddHandler(b.onInteractionCreate)

	if err := b.session.Open(); err != nil {
		return err
	}

	if b.cfg.SyncCommandsOnStart {
		if err := b.registerCommands(); err != nil {
			return err
		}
	}
	return nil
}

func (b *Bot) Close(ctx context.Context) {
	_ = ctx
	if b.session != nil {
		_ = b.session.Close()
	}
}

// RunMaintenance prunes audit logs past the retention window once a day
// until ctx is done.
func (b *Bot) RunMaintenance(ctx context.Context) error {
	if b.store == nil || b.cfg.RetentionDays <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		removed, err := b.store.CleanupAuditLogs(ctx, b.cfg.RetentionDays)
		if err != nil {
			b.logger.Warn("audit cleanup failed", zap.Error(err))
		} else if removed > 0 {
			b.logger.Info("audit logs pruned", zap.Int64("rows", removed))
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (b *Bot) onReady(session *discordgo.Session, event *discordgo.Ready) {
	b.logger.Info("discord ready",
		zap.String("user", session.State.User.Username),
		zap.Int("guilds", len(event.Guilds)),
	)
}

// onGuildDelete fires when the bot leaves or is removed from a guild. An
// outage also sends it, with Unavailable set, and then nothing is dropped.
func (b *Bot) onGuildDelete(_ *discordgo.Session, event *discordgo.GuildDelete) {
	if event.Guild == nil || event.Unavailable {
		return
	}
	dropped := b.tracker.DropScope(context.Background(), event.ID)
	b.guard.Forget(event.ID)
	if b.autorole != nil {
		b.autorole.DropGuild(event.ID)
	}
	b.logger.Info("left guild", zap.String("guild_id", event.ID), zap.Int("timers_dropped", dropped))
}

func (b *Bot) onGuildMemberAdd(_ *discordgo.Session, event *discordgo.GuildMemberAdd) {
	if b.autorole == nil || event.Member == nil || event.User == nil || event.User.Bot {
		return
	}
	if _, err := b.autorole.MemberJoined(context.Background(), event.GuildID, event.User.ID); err != nil {
		b.logger.Warn("autorole lookup failed", zap.String("guild_id", event.GuildID), zap.Error(err))
	}
}

func (b *Bot) onGuildMemberRemove(_ *discordgo.Session, event *discordgo.GuildMemberRemove) {
	if b.autorole == nil || event.Member == nil || event.User == nil {
		return
	}
	b.autorole.MemberLeft(event.GuildID, event.User.ID)
}

func (b *Bot) guildSettings(ctx context.Context, guildID string) storage.GuildSettings {
	defaults := storage.GuildSettings{
		GuildID:       guildID,
		ModLogChannel: b.cfg.DefaultModLog,
		Language:      b.cfg.DefaultLanguage,
		DMOnAction:    b.cfg.Notifications.DMOnAction,
	}
	if b.store == nil {
		return defaults
	}
	settings, err := b.store.GetGuildSettings(ctx, guildID, defaults)
	if err != nil {
		b.logger.Warn("guild settings fallback", zap.String("guild_id", guildID), zap.Error(err))
		return defaults
	}
	if settings.Language == "" {
		settings.Language = b.cfg.DefaultLanguage
	}
	return settings
}

func (b *Bot) modLogChannel(settings storage.GuildSettings) string {
	if settings.ModLogChannel != "" {
		return settings.ModLogChannel
	}
	return b.cfg.DefaultModLog
}

func (b *Bot) notifyAudit(ctx context.Context, entry storage.AuditLog) {
	settings := b.guildSettings(ctx, entry.GuildID)
	channelID := b.modLogChannel(settings)
	if channelID == "" {
		return
	}
	embed := b.buildAuditEmbed(settings.Language, entry)
	if _, err := b.rest.ChannelMessageSendEmbed(channelID, embed); err != nil {
		b.logger.Debug("mod log post failed", zap.String("guild_id", entry.GuildID), zap.Error(err))
	}
}

func (b *Bot) buildAuditEmbed(lang string, entry storage.AuditLog) *discordgo.MessageEmbed {
	color := b.cfg.Notifications.EmbedColors.Info
	switch entry.Level {
	case audit.LevelWarn:
		color = b.cfg.Notifications.EmbedColors.Warning
	case audit.LevelCrit:
		color = b.cfg.Notifications.EmbedColors.Error
	}
	if entry.Event == audit.EventRestrictionExpired {
		color = b.cfg.Notifications.EmbedColors.Success
	}

	fields := []*discordgo.MessageEmbedField{
		{Name: b.t(lang, "field_level"), Value: entry.Level, Inline: true},
	}
	if entry.UserID != "" {
		fields = append(fields, &discordgo.MessageEmbedField{Name: b.t(lang, "field_moderator"), Value: mention(entry.UserID), Inline: true})
	}
	embed := b.commandEmbed(b.auditEventLabel(lang, entry.Event), formatDetails(entry.Details), color, fields)
	embed.Footer = &discordgo.MessageEmbedFooter{Text: b.t(lang, "footer_brand")}
	return embed
}

func (b *Bot) auditEventLabel(lang, event string) string {
	if label := b.t(lang, "event_"+event); label != "event_"+event {
		return label
	}
	return event
}

// formatDetails renders "key=value" audit details one per line.
func formatDetails(details string) string {
	if details == "" {
		return "-"
	}
	parts := strings.Fields(details)
	lines := make([]string, 0, len(parts))
	head := []string{}
	for i, part := range parts {
		key, value, ok := strings.Cut(part, "=")
		if !ok {
			head = append(head, part)
			continue
		}
		// reason= swallows the rest of the line.
		if key == "reason" {
			value = strings.Join(append([]string{value}, parts[i+1:]...), " ")
			lines = append(lines, fmt.Sprintf("**%s**: %s", key, value))
			break
		}
		switch key {
		case "target", "moderator":
			value = mention(value)
		case "channel":
			value = channelMention(value)
		}
		lines = append(lines, fmt.Sprintf("**%s**: %s", key, value))
	}
	if len(head) > 0 {
		lines = append([]string{strings.Join(head, " ")}, lines...)
	}
	return strings.Join(lines, "\n")
}

// notifyCaseDM tells the target about an action. Failure is expected when
// the user blocks DMs.
func (b *Bot) notifyCaseDM(settings storage.GuildSettings, userID, title, description string) {
	if !settings.DMOnAction || userID == "" {
		return
	}
	channel, err := b.rest.UserChannelCreate(userID)
	if err != nil {
		return
	}
	embed := b.commandEmbed(title, description, b.cfg.Notifications.EmbedColors.Moderation, nil)
	if _, err := b.rest.ChannelMessageSendEmbed(channel.ID, embed); err != nil {
		b.logger.Debug("dm failed", zap.String("user_id", userID), zap.Error(err))
	}
}

func (b *Bot) recordCommand(command, result string) {
	if b.commands == nil {
		return
	}
	b.commands.WithLabelValues(command, result).Inc()
}

func (b *Bot) commandEmbed(title, description string, color int, fields []*discordgo.MessageEmbedField) *discordgo.MessageEmbed {
	return &discordgo.MessageEmbed{
		Title:       title,
		Description: description,
		Color:       color,
		Timestamp:   time.Now().Format(time.RFC3339),
		Fields:      fields,
	}
}

func (b *Bot) respond(session Session, interaction *discordgo.InteractionCreate, content string, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Content: content,
			Flags:   flags,
		},
	})
}

func (b *Bot) respondEmbed(session Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed, ephemeral bool) {
	if embed == nil {
		b.respond(session, interaction, "No response available.", ephemeral)
		return
	}
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{
			Embeds: []*discordgo.MessageEmbed{embed},
			Flags:  flags,
		},
	})
}

// deferResponse acknowledges a command that needs more than the three
// seconds Discord allows before the first reply.
func (b *Bot) deferResponse(session Session, interaction *discordgo.InteractionCreate, ephemeral bool) {
	flags := discordgo.MessageFlags(0)
	if ephemeral {
		flags = discordgo.MessageFlagsEphemeral
	}
	_ = session.InteractionRespond(interaction.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: flags},
	})
}

func (b *Bot) editEmbed(session Session, interaction *discordgo.InteractionCreate, embed *discordgo.MessageEmbed) {
	embeds := []*discordgo.MessageEmbed{embed}
	if _, err := session.InteractionResponseEdit(interaction.Interaction, &discordgo.WebhookEdit{Embeds: &embeds}); err != nil {
		b.logger.Debug("edit deferred response", zap.Error(err))
	}
}

func mention(id string) string {
	if id == "" {
		return "-"
	}
	return "<@" + id + ">"
}

func channelMention(id string) string {
	if id == "" {
		return "-"
	}
	return "<#" + id + ">"
}

func roleMention(id string) string {
	if id == "" {
		return "-"
	}
	return "<@&" + id + ">"
}

// targetMention renders a restriction target according to its kind.
func targetMention(key moderation.Key) string {
	if key.Kind.TargetsChannel() {
		return channelMention(key.TargetID)
	}
	return mention(key.TargetID)
}
