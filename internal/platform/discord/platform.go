// Package discord performs tracker restrictions through the Discord REST API.
package discord

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/bwmarrin/discordgo"
	"go.uber.org/zap"

	"keeper/internal/moderation"
)

// Discord rejects voice edits for members outside voice with this code.
const codeTargetNotInVoice = 40032

// Session is the subset of *discordgo.Session the platform calls.
type Session interface {
	Guild(guildID string, options ...discordgo.RequestOption) (*discordgo.Guild, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberMute(guildID, userID string, mute bool, options ...discordgo.RequestOption) error
	GuildMemberDeafen(guildID, userID string, deaf bool, options ...discordgo.RequestOption) error
	GuildBan(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.GuildBan, error)
	GuildBanCreateWithReason(guildID, userID, reason string, days int, options ...discordgo.RequestOption) error
	GuildBanDelete(guildID, userID string, options ...discordgo.RequestOption) error
	User(userID string, options ...discordgo.RequestOption) (*discordgo.User, error)
	Channel(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelPermissionSet(channelID, targetID string, targetType discordgo.PermissionOverwriteType, allow, deny int64, options ...discordgo.RequestOption) error
	ChannelPermissionDelete(channelID, targetID string, options ...discordgo.RequestOption) error
	ChannelEditComplex(channelID string, data *discordgo.ChannelEdit, options ...discordgo.RequestOption) (*discordgo.Channel, error)
}

// VoiceStates answers whether a member is connected to voice. *discordgo.State
// satisfies it when the bot requests the voice state intent.
type VoiceStates interface {
	VoiceState(guildID, userID string) (*discordgo.VoiceState, error)
}

type Platform struct {
	session Session
	voice   VoiceStates
	logger  *zap.Logger
}

func New(session Session, voice VoiceStates, logger *zap.Logger) *Platform {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Platform{session: session, voice: voice, logger: logger}
}

// FromSession wires the platform to a live gateway session.
func FromSession(session *discordgo.Session, logger *zap.Logger) *Platform {
	return New(session, session.State, logger)
}

func (p *Platform) ApplyRestriction(_ context.Context, key moderation.Key, opts moderation.ApplyOptions) error {
	reason := auditReason(opts.Reason)
	switch key.Kind {
	case moderation.Mute:
		if !p.inVoice(key.ScopeID, key.TargetID) {
			return moderation.ErrTargetNotInVoice
		}
		return Classify(p.session.GuildMemberMute(key.ScopeID, key.TargetID, true, reason...))
	case moderation.Deafen:
		if !p.inVoice(key.ScopeID, key.TargetID) {
			return moderation.ErrTargetNotInVoice
		}
		return Classify(p.session.GuildMemberDeafen(key.ScopeID, key.TargetID, true, reason...))
	case moderation.ChannelLock:
		return p.setLock(key, true, reason)
	case moderation.Slowmode:
		return p.setSlowmode(key.TargetID, opts.Setting, reason)
	case moderation.Ban:
		return Classify(p.session.GuildBanCreateWithReason(key.ScopeID, key.TargetID, opts.Reason, clampDays(opts.Setting), reason...))
	default:
		return moderation.ErrUnknownKind
	}
}

func (p *Platform) ClearRestriction(_ context.Context, key moderation.Key, why string) error {
	reason := auditReason(why)
	switch key.Kind {
	case moderation.Mute:
		return Classify(p.session.GuildMemberMute(key.ScopeID, key.TargetID, false, reason...))
	case moderation.Deafen:
		return Classify(p.session.GuildMemberDeafen(key.ScopeID, key.TargetID, false, reason...))
	case moderation.ChannelLock:
		return p.setLock(key, false, reason)
	case moderation.Slowmode:
		return p.setSlowmode(key.TargetID, 0, reason)
	case moderation.Ban:
		return Classify(p.session.GuildBanDelete(key.ScopeID, key.TargetID, reason...))
	default:
		return moderation.ErrUnknownKind
	}
}

func (p *Platform) IsRestricted(_ context.Context, key moderation.Key) (bool, error) {
	switch key.Kind {
	case moderation.Mute, moderation.Deafen:
		member, err := p.session.GuildMember(key.ScopeID, key.TargetID)
		if err != nil {
			return false, Classify(err)
		}
		if key.Kind == moderation.Mute {
			return member.Mute, nil
		}
		return member.Deaf, nil
	case moderation.ChannelLock:
		channel, err := p.session.Channel(key.TargetID)
		if err != nil {
			return false, Classify(err)
		}
		_, deny := everyoneOverwrite(channel, key.ScopeID)
		return deny&discordgo.PermissionSendMessages != 0, nil
	case moderation.Slowmode:
		channel, err := p.session.Channel(key.TargetID)
		if err != nil {
			return false, Classify(err)
		}
		return channel.RateLimitPerUser > 0, nil
	case moderation.Ban:
		_, err := p.session.GuildBan(key.ScopeID, key.TargetID)
		if err == nil {
			return true, nil
		}
		if err = Classify(err); errors.Is(err, moderation.ErrNotRestricted) {
			return false, nil
		}
		return false, err
	default:
		return false, moderation.ErrUnknownKind
	}
}

// ResolveScope reports false only when Discord says the guild is gone.
// Lookup failures of any other kind are left for IsRestricted to surface.
func (p *Platform) ResolveScope(_ context.Context, scopeID string) bool {
	_, err := p.session.Guild(scopeID)
	return !errors.Is(Classify(err), moderation.ErrTargetNotFound)
}

func (p *Platform) ResolveTarget(_ context.Context, key moderation.Key) bool {
	var err error
	switch key.Kind {
	case moderation.ChannelLock, moderation.Slowmode:
		var channel *discordgo.Channel
		channel, err = p.session.Channel(key.TargetID)
		if err == nil && channel.GuildID != "" && channel.GuildID != key.ScopeID {
			return false
		}
	case moderation.Ban:
		_, err = p.session.User(key.TargetID)
	default:
		_, err = p.session.GuildMember(key.ScopeID, key.TargetID)
	}
	return !errors.Is(Classify(err), moderation.ErrTargetNotFound)
}

func (p *Platform) inVoice(guildID, userID string) bool {
	if p.voice == nil {
		return true
	}
	state, err := p.voice.VoiceState(guildID, userID)
	return err == nil && state != nil && state.ChannelID != ""
}

// setLock toggles the send-messages deny bit on the @everyone overwrite and
// leaves every other bit as it was. An overwrite left empty is removed.
func (p *Platform) setLock(key moderation.Key, locked bool, reason []discordgo.RequestOption) error {
	channel, err := p.session.Channel(key.TargetID)
	if err != nil {
		return Classify(err)
	}
	allow, deny := everyoneOverwrite(channel, key.ScopeID)
	if locked {
		allow &^= discordgo.PermissionSendMessages
		deny |= discordgo.PermissionSendMessages
	} else {
		if deny&discordgo.PermissionSendMessages == 0 {
			return moderation.ErrNotRestricted
		}
		deny &^= discordgo.PermissionSendMessages
	}
	if allow == 0 && deny == 0 {
		return Classify(p.session.ChannelPermissionDelete(channel.ID, key.ScopeID, reason...))
	}
	return Classify(p.session.ChannelPermissionSet(channel.ID, key.ScopeID, discordgo.PermissionOverwriteTypeRole, allow, deny, reason...))
}

func (p *Platform) setSlowmode(channelID string, seconds int, reason []discordgo.RequestOption) error {
	if seconds == 0 {
		channel, err := p.session.Channel(channelID)
		if err != nil {
			return Classify(err)
		}
		if channel.RateLimitPerUser == 0 {
			return moderation.ErrNotRestricted
		}
	}
	_, err := p.session.ChannelEditComplex(channelID, &discordgo.ChannelEdit{RateLimitPerUser: &seconds}, reason...)
	return Classify(err)
}

// everyoneOverwrite returns the @everyone role overwrite, whose id equals the
// guild id.
func everyoneOverwrite(channel *discordgo.Channel, guildID string) (allow, deny int64) {
	for _, overwrite := range channel.PermissionOverwrites {
		if overwrite.ID == guildID && overwrite.Type == discordgo.PermissionOverwriteTypeRole {
			return overwrite.Allow, overwrite.Deny
		}
	}
	return 0, 0
}

// clampDays bounds the ban message deletion window to what Discord accepts.
func clampDays(days int) int {
	switch {
	case days < 0:
		return 0
	case days > 7:
		return 7
	default:
		return days
	}
}

func auditReason(reason string) []discordgo.RequestOption {
	if reason == "" {
		return nil
	}
	return []discordgo.RequestOption{discordgo.WithAuditLogReason(reason)}
}

// Classify maps a Discord REST failure onto the tracker's error kinds. The
// original error stays in the chain.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var restErr *discordgo.RESTError
	if !errors.As(err, &restErr) {
		return fmt.Errorf("%w: %w", moderation.ErrTransient, err)
	}

	code, status := 0, 0
	if restErr.Message != nil {
		code = restErr.Message.Code
	}
	if restErr.Response != nil {
		status = restErr.Response.StatusCode
	}

	switch {
	case code == codeTargetNotInVoice:
		return fmt.Errorf("%w: %w", moderation.ErrTargetNotInVoice, err)
	case code == discordgo.ErrCodeUnknownBan:
		return fmt.Errorf("%w: %w", moderation.ErrNotRestricted, err)
	case code == discordgo.ErrCodeMissingPermissions, code == discordgo.ErrCodeMissingAccess, status == http.StatusForbidden:
		return fmt.Errorf("%w: %w", moderation.ErrPermissionDenied, err)
	case code == discordgo.ErrCodeUnknownMember, code == discordgo.ErrCodeUnknownUser,
		code == discordgo.ErrCodeUnknownChannel, code == discordgo.ErrCodeUnknownGuild,
		status == http.StatusNotFound:
		return fmt.Errorf("%w: %w", moderation.ErrTargetNotFound, err)
	default:
		return fmt.Errorf("%w: %w", moderation.ErrTransient, err)
	}
}
