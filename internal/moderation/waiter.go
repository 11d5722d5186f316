package moderation

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Outcome is the terminal state of a scheduled reversal.
type Outcome int

const (
	Reversed Outcome = iota + 1
	Skipped
	Failed
)

func (o Outcome) String() string {
	switch o {
	case Reversed:
		return "reversed"
	case Skipped:
		return "skipped"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// fire runs when a waiter wakes. It only reverses when the entry it was
// scheduled for is still the live one.
func (t *Tracker) fire(ctx context.Context, scheduled TimedRestriction) Outcome {
	key := scheduled.Key
	ctx, span := t.tracer.Start(ctx, "moderation.expire", trace.WithAttributes(
		attribute.String("kind", string(key.Kind)),
		attribute.String("scope_id", key.ScopeID),
	))
	defer span.End()

	unlock := t.lockKey(key)
	outcome, why, err := t.expire(ctx, scheduled)
	unlock()

	span.SetAttributes(attribute.String("outcome", outcome.String()))
	t.metrics.recordOutcome(key.Kind, outcome)

	fields := []zap.Field{
		zap.String("guild_id", key.ScopeID),
		zap.String("target_id", key.TargetID),
		zap.String("kind", string(key.Kind)),
		zap.Time("expires_at", scheduled.ExpiresAt),
	}
	switch outcome {
	case Reversed:
		t.logger.Info("timed restriction expired", fields...)
		if t.notifier != nil {
			t.notifier.Notify(ctx, scheduled)
		}
	case Skipped:
		t.logger.Debug("scheduled reversal skipped", append(fields, zap.String("why", why))...)
	case Failed:
		span.RecordError(err)
		t.logger.Warn("scheduled reversal failed", append(fields, zap.Error(err))...)
	}
	return outcome
}

func (t *Tracker) expire(ctx context.Context, s TimedRestriction) (Outcome, string, error) {
	if !t.current(s) {
		return Skipped, "superseded", nil
	}
	if !t.platform.ResolveScope(ctx, s.ScopeID) {
		t.release(ctx, s)
		return Skipped, "scope unreachable", nil
	}
	if !t.platform.ResolveTarget(ctx, s.Key) {
		t.release(ctx, s)
		return Skipped, "target unresolvable", nil
	}
	restricted, err := t.platform.IsRestricted(ctx, s.Key)
	if err != nil {
		t.release(ctx, s)
		return Failed, "", err
	}
	if !restricted {
		t.release(ctx, s)
		return Skipped, "already lifted", nil
	}
	if err := t.platform.ClearRestriction(ctx, s.Key, "Timed "+string(s.Kind)+" expired"); err != nil {
		t.release(ctx, s)
		if errors.Is(err, ErrNotRestricted) {
			return Skipped, "already lifted", nil
		}
		return Failed, "", err
	}
	t.release(ctx, s)
	return Reversed, "", nil
}

// current reports whether s is still the live entry for its key.
func (t *Tracker) current(s TimedRestriction) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return false
	}
	e, ok := t.entries[s.Key]
	return ok && e.restriction.ExpiresAt.Equal(s.ExpiresAt)
}

// release drops the entry only if s is still the live one.
func (t *Tracker) release(ctx context.Context, s TimedRestriction) {
	t.mu.Lock()
	e, ok := t.entries[s.Key]
	removed := ok && e.restriction.ExpiresAt.Equal(s.ExpiresAt)
	if removed {
		delete(t.entries, s.Key)
		t.metrics.setActive(len(t.entries))
	}
	t.mu.Unlock()
	if removed {
		t.unsave(ctx, s.Key)
	}
}
