package audit

import (
	"context"
	"fmt"
	"sync"
	"time"

	"keeper/internal/moderation"
	"keeper/internal/storage"

	"go.uber.org/zap"
)

const (
	LevelInfo = "INFO"
	LevelWarn = "WARN"
	LevelCrit = "CRIT"
)

// Events written by the moderation commands and the expiry waiters.
const (
	EventRestrictionApplied  = "restriction_applied"
	EventRestrictionReversed = "restriction_reversed"
	EventRestrictionExpired  = "restriction_expired"
	EventKick                = "member_kicked"
	EventSoftban             = "member_softbanned"
	EventTimeout             = "member_timed_out"
	EventTimeoutRemoved      = "timeout_removed"
	EventPurge               = "messages_purged"
	EventLockdown            = "lockdown"
	EventGuardTripped        = "guard_tripped"
	EventSettingsChanged     = "settings_changed"
)

type Logger struct {
	store  *storage.Store
	logger *zap.Logger
	now    func() time.Time

	mu     sync.RWMutex
	notify func(context.Context, storage.AuditLog)
}

func NewLogger(store *storage.Store, logger *zap.Logger) *Logger {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Logger{store: store, logger: logger, now: time.Now}
}

// SetNotifier registers a callback run after each entry is stored, typically
// a post to the guild's mod-log channel.
func (l *Logger) SetNotifier(notify func(context.Context, storage.AuditLog)) {
	l.mu.Lock()
	l.notify = notify
	l.mu.Unlock()
}

func (l *Logger) Log(ctx context.Context, level, guildID, userID, event, details string) {
	entry := storage.AuditLog{
		GuildID:   guildID,
		UserID:    userID,
		Level:     level,
		Event:     event,
		Details:   details,
		CreatedAt: l.now(),
	}
	if l.store != nil {
		if err := l.store.AddAuditLog(ctx, entry); err != nil {
			l.logger.Warn("store audit log", zap.String("event", event), zap.Error(err))
		}
	}
	l.mu.RLock()
	notify := l.notify
	l.mu.RUnlock()
	if notify != nil {
		notify(ctx, entry)
	}
	l.logger.Info("audit",
		zap.String("level", level),
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("event", event),
		zap.String("details", details),
	)
}

// RecordCase stores a moderation case and writes the matching audit entry.
// The stored case, with its id and reference, is returned.
func (l *Logger) RecordCase(ctx context.Context, c storage.ModerationCase, event string) (storage.ModerationCase, error) {
	if c.CreatedAt.IsZero() {
		c.CreatedAt = l.now()
	}
	if l.store != nil {
		stored, err := l.store.AddCase(ctx, c)
		if err != nil {
			return c, fmt.Errorf("record case: %w", err)
		}
		c = stored
	}
	details := fmt.Sprintf("%s %s=%s moderator=%s", c.Action, targetField(c.Action), c.TargetID, c.ModeratorID)
	if c.Duration != "" {
		details += " duration=" + c.Duration
	}
	if c.Reason != "" {
		details += " reason=" + c.Reason
	}
	if c.Reference != "" {
		details += " case=" + c.Reference
	}
	l.Log(ctx, LevelInfo, c.GuildID, c.ModeratorID, event, details)
	return c, nil
}

// Notify records a restriction that the tracker lifted on expiry.
func (l *Logger) Notify(ctx context.Context, r moderation.TimedRestriction) {
	details := fmt.Sprintf("%s %s=%s", r.Kind, targetField(string(r.Kind)), r.TargetID)
	if r.Reason != "" {
		details += " reason=" + r.Reason
	}
	l.Log(ctx, LevelInfo, r.ScopeID, r.IssuerID, EventRestrictionExpired, details)
}

// targetField names the detail key of an action's target so channels and
// users render differently.
func targetField(action string) string {
	switch action {
	case string(moderation.ChannelLock), string(moderation.Slowmode), "unlock", "slowmode_off":
		return "channel"
	default:
		return "target"
	}
}
