// Package autorole gives configured roles to members some time after they
// join.
package autorole

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"
	"time"

	"keeper/internal/moderation"
	"keeper/internal/platform/discord"
	"keeper/internal/storage"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// MaxDelay bounds how long a join may wait for its roles.
const MaxDelay = 7 * 24 * time.Hour

// Outcomes of one scheduled assignment.
const (
	ResultAssigned = "assigned"
	ResultLeft     = "left"
	ResultHasRole  = "has_role"
	ResultFailed   = "failed"
)

type Store interface {
	ListAutoroles(ctx context.Context, guildID string) ([]storage.Autorole, error)
}

// Session is the subset of *discordgo.Session the assigner calls.
type Session interface {
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
}

type Assigner struct {
	mu      sync.Mutex
	pending map[string]*assignment
	closed  bool

	store   Store
	session Session
	clock   moderation.Clock
	logger  *zap.Logger
	results *prometheus.CounterVec
}

// assignment is one scheduled role grant. Its pointer identifies it, so a
// waiter replaced by a rejoin finds itself gone.
type assignment struct {
	timer moderation.Timer
}

type Option func(*Assigner)

func WithClock(clock moderation.Clock) Option {
	return func(a *Assigner) { a.clock = clock }
}

// WithRegisterer exports the assignment counter.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(a *Assigner) {
		a.results = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "keeper_autorole_assignments_total",
			Help: "Scheduled autorole assignments, by result.",
		}, []string{"result"})
		reg.MustRegister(a.results)
	}
}

func New(store Store, session Session, logger *zap.Logger, opts ...Option) *Assigner {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &Assigner{
		pending: make(map[string]*assignment),
		store:   store,
		session: session,
		clock:   moderation.SystemClock(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// MemberJoined schedules every autorole of the guild for the member and
// returns how many were scheduled.
func (a *Assigner) MemberJoined(ctx context.Context, guildID, userID string) (int, error) {
	roles, err := a.store.ListAutoroles(ctx, guildID)
	if err != nil {
		return 0, err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		return 0, nil
	}
	for _, role := range roles {
		key := pendingKey(guildID, userID, role.RoleID)
		if prev, ok := a.pending[key]; ok {
			prev.timer.Stop()
		}
		roleID := role.RoleID
		job := &assignment{}
		job.timer = a.clock.AfterFunc(role.Delay, func() {
			a.fire(key, job, guildID, userID, roleID)
		})
		a.pending[key] = job
	}
	return len(roles), nil
}

// MemberLeft cancels the member's pending assignments.
func (a *Assigner) MemberLeft(guildID, userID string) int {
	return a.cancel(guildID + ":" + userID + ":")
}

// DropGuild cancels every pending assignment of a guild.
func (a *Assigner) DropGuild(guildID string) int {
	return a.cancel(guildID + ":")
}

func (a *Assigner) Pending() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.pending)
}

func (a *Assigner) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	for key, job := range a.pending {
		job.timer.Stop()
		delete(a.pending, key)
	}
}

func (a *Assigner) cancel(prefix string) int {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := 0
	for key, job := range a.pending {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		job.timer.Stop()
		delete(a.pending, key)
		n++
	}
	return n
}

func (a *Assigner) fire(key string, job *assignment, guildID, userID, roleID string) {
	a.mu.Lock()
	live, ok := a.pending[key]
	if !ok || live != job {
		a.mu.Unlock()
		return
	}
	delete(a.pending, key)
	a.mu.Unlock()

	result := a.assign(guildID, userID, roleID)
	if a.results != nil {
		a.results.WithLabelValues(result).Inc()
	}
}

// assign re-checks membership before adding the role.
func (a *Assigner) assign(guildID, userID, roleID string) string {
	fields := []zap.Field{
		zap.String("guild_id", guildID),
		zap.String("user_id", userID),
		zap.String("role_id", roleID),
	}
	member, err := a.session.GuildMember(guildID, userID)
	if err != nil {
		if errors.Is(discord.Classify(err), moderation.ErrTargetNotFound) {
			a.logger.Debug("autorole skipped, member left", fields...)
			return ResultLeft
		}
		a.logger.Warn("autorole member lookup failed", append(fields, zap.Error(err))...)
		return ResultFailed
	}
	if slices.Contains(member.Roles, roleID) {
		return ResultHasRole
	}
	if err := a.session.GuildMemberRoleAdd(guildID, userID, roleID, discordgo.WithAuditLogReason("Autorole")); err != nil {
		a.logger.Warn("autorole assignment failed", append(fields, zap.Error(discord.Classify(err)))...)
		return ResultFailed
	}
	a.logger.Info("autorole assigned", fields...)
	return ResultAssigned
}

func pendingKey(guildID, userID, roleID string) string {
	return guildID + ":" + userID + ":" + roleID
}
