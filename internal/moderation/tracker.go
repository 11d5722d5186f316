package moderation

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// MaxSlowmode is the largest per-user delay the platform accepts.
const MaxSlowmode = 6 * time.Hour

// Platform performs restrictions on the chat service.
type Platform interface {
	ApplyRestriction(ctx context.Context, key Key, opts ApplyOptions) error
	ClearRestriction(ctx context.Context, key Key, reason string) error
	IsRestricted(ctx context.Context, key Key) (bool, error)
	ResolveScope(ctx context.Context, scopeID string) bool
	ResolveTarget(ctx context.Context, key Key) bool
}

type ApplyOptions struct {
	Setting int
	Reason  string
}

// Notifier is told about restrictions that expired on their own. Delivery is
// best effort.
type Notifier interface {
	Notify(ctx context.Context, r TimedRestriction)
}

// Journal mirrors the table to durable storage so entries survive a restart.
// Failures are logged and otherwise ignored.
type Journal interface {
	SaveRestriction(ctx context.Context, r TimedRestriction) error
	DeleteRestriction(ctx context.Context, key Key) error
}

type Request struct {
	ScopeID  string
	TargetID string
	Kind     Kind
	Duration string
	IssuerID string
	Reason   string
	// Setting is the slowmode delay in seconds, or for a ban the days of
	// messages to delete.
	Setting int
}

func (r Request) Key() Key {
	return Key{ScopeID: r.ScopeID, TargetID: r.TargetID, Kind: r.Kind}
}

type Applied struct {
	Restriction TimedRestriction
	Duration    time.Duration
	Human       string
	Replaced    bool
}

type entry struct {
	restriction TimedRestriction
	timer       Timer
}

// keyLock serialises operations on one key. refs counts holders and waiters
// so the lock can be dropped from the map once nobody needs it.
type keyLock struct {
	mu   sync.Mutex
	refs int
}

// Tracker owns the table of outstanding timed restrictions and reverses each
// one when it expires. Operations on the same key are serialised; platform
// calls never run under the table lock.
type Tracker struct {
	mu      sync.Mutex
	entries map[Key]*entry
	closed  bool

	locks map[Key]*keyLock

	platform Platform
	notifier Notifier
	journal  Journal
	clock    Clock
	logger   *zap.Logger
	metrics  *Metrics
	tracer   trace.Tracer
}

type Option func(*Tracker)

func WithClock(clock Clock) Option {
	return func(t *Tracker) { t.clock = clock }
}

func WithNotifier(notifier Notifier) Option {
	return func(t *Tracker) { t.notifier = notifier }
}

func WithJournal(journal Journal) Option {
	return func(t *Tracker) { t.journal = journal }
}

func WithMetrics(metrics *Metrics) Option {
	return func(t *Tracker) { t.metrics = metrics }
}

func WithTracer(tracer trace.Tracer) Option {
	return func(t *Tracker) { t.tracer = tracer }
}

func NewTracker(platform Platform, logger *zap.Logger, opts ...Option) *Tracker {
	if logger == nil {
		logger = zap.NewNop()
	}
	t := &Tracker{
		entries:  make(map[Key]*entry),
		locks:    make(map[Key]*keyLock),
		platform: platform,
		clock:    realClock{},
		logger:   logger,
		tracer:   otel.Tracer("keeper/moderation"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Apply restricts the target and schedules the reversal. A second Apply on
// the same key replaces the entry; the earlier waiter becomes stale.
func (t *Tracker) Apply(ctx context.Context, req Request) (Applied, error) {
	if !req.Kind.Valid() {
		return Applied{}, fmt.Errorf("%w: %q", ErrUnknownKind, req.Kind)
	}
	duration, err := ParseDuration(req.Duration)
	if err != nil {
		return Applied{}, err
	}
	if req.Kind == Slowmode {
		if req.Setting <= 0 || time.Duration(req.Setting)*time.Second > MaxSlowmode {
			return Applied{}, fmt.Errorf("%w: slowmode delay %ds", ErrInvalidSetting, req.Setting)
		}
	}

	key := req.Key()
	ctx, span := t.tracer.Start(ctx, "moderation.apply", trace.WithAttributes(
		attribute.String("kind", string(req.Kind)),
		attribute.String("scope_id", req.ScopeID),
	))
	defer span.End()

	unlock := t.lockKey(key)
	defer unlock()

	if err := t.platform.ApplyRestriction(ctx, key, ApplyOptions{Setting: req.Setting, Reason: req.Reason}); err != nil {
		span.RecordError(err)
		return Applied{}, err
	}

	now := t.clock.Now()
	restriction := TimedRestriction{
		Key:       key,
		ExpiresAt: now.Add(duration),
		IssuerID:  req.IssuerID,
		Reason:    req.Reason,
		Setting:   req.Setting,
		CreatedAt: now,
	}
	replaced := t.arm(restriction)
	t.metrics.recordApply(req.Kind)
	t.save(ctx, restriction)

	t.logger.Info("timed restriction applied",
		zap.String("guild_id", key.ScopeID),
		zap.String("target_id", key.TargetID),
		zap.String("kind", string(key.Kind)),
		zap.Time("expires_at", restriction.ExpiresAt),
		zap.Bool("replaced", replaced),
	)

	return Applied{
		Restriction: restriction,
		Duration:    duration,
		Human:       FormatRemaining(duration),
		Replaced:    replaced,
	}, nil
}

// Reverse lifts a restriction early. The platform decides whether the target
// is restricted, so restrictions applied outside the tracker can be lifted
// too. A pending waiter is left to fire as a no-op.
func (t *Tracker) Reverse(ctx context.Context, key Key, issuerID, reason string) error {
	if !key.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, key.Kind)
	}

	ctx, span := t.tracer.Start(ctx, "moderation.reverse", trace.WithAttributes(
		attribute.String("kind", string(key.Kind)),
		attribute.String("scope_id", key.ScopeID),
	))
	defer span.End()

	unlock := t.lockKey(key)
	defer unlock()

	restricted, err := t.platform.IsRestricted(ctx, key)
	if err != nil {
		span.RecordError(err)
		t.metrics.recordReverse(key.Kind, "error")
		return err
	}
	if !restricted {
		t.forget(ctx, key)
		t.metrics.recordReverse(key.Kind, "not_restricted")
		return ErrNotRestricted
	}
	if err := t.platform.ClearRestriction(ctx, key, reason); err != nil {
		span.RecordError(err)
		t.metrics.recordReverse(key.Kind, "error")
		return err
	}
	t.forget(ctx, key)
	t.metrics.recordReverse(key.Kind, "ok")

	t.logger.Info("restriction reversed",
		zap.String("guild_id", key.ScopeID),
		zap.String("target_id", key.TargetID),
		zap.String("kind", string(key.Kind)),
		zap.String("issuer_id", issuerID),
	)
	return nil
}

// ApplyPermanent restricts the target with no expiry. A timed entry for the
// same key is dropped so its waiter cannot lift the new restriction.
func (t *Tracker) ApplyPermanent(ctx context.Context, key Key, opts ApplyOptions) error {
	if !key.Kind.Valid() {
		return fmt.Errorf("%w: %q", ErrUnknownKind, key.Kind)
	}
	if key.Kind == Slowmode {
		if opts.Setting <= 0 || time.Duration(opts.Setting)*time.Second > MaxSlowmode {
			return fmt.Errorf("%w: slowmode delay %ds", ErrInvalidSetting, opts.Setting)
		}
	}

	ctx, span := t.tracer.Start(ctx, "moderation.apply_permanent", trace.WithAttributes(
		attribute.String("kind", string(key.Kind)),
		attribute.String("scope_id", key.ScopeID),
	))
	defer span.End()

	unlock := t.lockKey(key)
	defer unlock()

	if err := t.platform.ApplyRestriction(ctx, key, opts); err != nil {
		span.RecordError(err)
		return err
	}
	t.forget(ctx, key)
	return nil
}

func (t *Tracker) Get(key Key) (TimedRestriction, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[key]
	if !ok {
		return TimedRestriction{}, false
	}
	return e.restriction, true
}

// List returns the entries of one scope, or of every scope when scopeID is
// empty, soonest expiry first.
func (t *Tracker) List(scopeID string) []TimedRestriction {
	t.mu.Lock()
	out := make([]TimedRestriction, 0, len(t.entries))
	for key, e := range t.entries {
		if scopeID != "" && key.ScopeID != scopeID {
			continue
		}
		out = append(out, e.restriction)
	}
	t.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].ExpiresAt.Equal(out[j].ExpiresAt) {
			return out[i].Key.String() < out[j].Key.String()
		}
		return out[i].ExpiresAt.Before(out[j].ExpiresAt)
	})
	return out
}

func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

// DropScope forgets every entry of a scope that is no longer reachable.
func (t *Tracker) DropScope(ctx context.Context, scopeID string) int {
	t.mu.Lock()
	var dropped []Key
	for key, e := range t.entries {
		if key.ScopeID != scopeID {
			continue
		}
		if e.timer != nil {
			e.timer.Stop()
		}
		delete(t.entries, key)
		dropped = append(dropped, key)
	}
	t.metrics.setActive(len(t.entries))
	t.mu.Unlock()

	for _, key := range dropped {
		t.unsave(ctx, key)
	}
	if len(dropped) > 0 {
		t.logger.Info("scope dropped", zap.String("guild_id", scopeID), zap.Int("entries", len(dropped)))
	}
	return len(dropped)
}

// Restore re-arms entries loaded from the journal without touching the
// platform. Entries already past expiry fire at once. A key applied since
// startup keeps its live entry.
func (t *Tracker) Restore(entries []TimedRestriction) int {
	restored := 0
	for _, r := range entries {
		if !r.Kind.Valid() || r.ScopeID == "" || r.TargetID == "" {
			continue
		}
		if t.armIfAbsent(r) {
			restored++
		}
	}
	return restored
}

// Close stops every pending timer. Entries stay in the journal.
func (t *Tracker) Close() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	for _, e := range t.entries {
		if e.timer != nil {
			e.timer.Stop()
		}
	}
}

func (t *Tracker) arm(r TimedRestriction) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	_, replaced := t.entries[r.Key]
	t.schedule(r)
	return replaced
}

func (t *Tracker) armIfAbsent(r TimedRestriction) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, live := t.entries[r.Key]; live || t.closed {
		return false
	}
	t.schedule(r)
	return true
}

// schedule installs r and its waiter. t.mu must be held.
func (t *Tracker) schedule(r TimedRestriction) {

	delay := r.ExpiresAt.Sub(t.clock.Now())
	if delay < 0 {
		delay = 0
	}
	scheduled := r
	timer := t.clock.AfterFunc(delay, func() {
		t.fire(context.Background(), scheduled)
	})
	t.entries[r.Key] = &entry{restriction: r, timer: timer}
	t.metrics.setActive(len(t.entries))
}

// forget removes the entry for key without stopping its timer.
func (t *Tracker) forget(ctx context.Context, key Key) {
	t.mu.Lock()
	_, ok := t.entries[key]
	delete(t.entries, key)
	t.metrics.setActive(len(t.entries))
	t.mu.Unlock()
	if ok {
		t.unsave(ctx, key)
	}
}

// lockKey blocks until the caller holds the lock for key. Only operations on
// the same key wait for each other.
func (t *Tracker) lockKey(key Key) func() {
	t.mu.Lock()
	l, ok := t.locks[key]
	if !ok {
		l = &keyLock{}
		t.locks[key] = l
	}
	l.refs++
	t.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()
		t.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(t.locks, key)
		}
		t.mu.Unlock()
	}
}

func (t *Tracker) save(ctx context.Context, r TimedRestriction) {
	if t.journal == nil {
		return
	}
	if err := t.journal.SaveRestriction(ctx, r); err != nil {
		t.logger.Warn("journal save failed", zap.String("key", r.Key.String()), zap.Error(err))
	}
}

func (t *Tracker) unsave(ctx context.Context, key Key) {
	if t.journal == nil {
		return
	}
	if err := t.journal.DeleteRestriction(ctx, key); err != nil {
		t.logger.Warn("journal delete failed", zap.String("key", key.String()), zap.Error(err))
	}
}
