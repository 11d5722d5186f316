package audit

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"keeper/internal/moderation"
	"keeper/internal/storage"
)

func newStore(t *testing.T) *storage.Store {
	t.Helper()
	store, err := storage.New(storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if _, err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestLogStoresAndNotifies(t *testing.T) {
	store := newStore(t)
	logger := NewLogger(store, nil)

	var notified []storage.AuditLog
	logger.SetNotifier(func(_ context.Context, entry storage.AuditLog) {
		notified = append(notified, entry)
	})

	ctx := context.Background()
	logger.Log(ctx, LevelWarn, "g1", "u1", EventGuardTripped, "ban x11")

	if len(notified) != 1 || notified[0].Event != EventGuardTripped {
		t.Fatalf("unexpected notifications: %+v", notified)
	}
	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Level != LevelWarn {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestRecordCase(t *testing.T) {
	store := newStore(t)
	logger := NewLogger(store, nil)
	ctx := context.Background()

	stored, err := logger.RecordCase(ctx, storage.ModerationCase{
		GuildID:     "g1",
		TargetID:    "42",
		ModeratorID: "7",
		Action:      "mute",
		Reason:      "spam",
		Duration:    "10m",
	}, EventRestrictionApplied)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if stored.ID == 0 || stored.Reference == "" {
		t.Fatalf("expected id and reference, got %+v", stored)
	}

	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 {
		t.Fatalf("expected 1 audit log, got %d", len(logs))
	}
	details := logs[0].Details
	for _, want := range []string{"mute", "target=42", "duration=10m", "reason=spam", "case=" + stored.Reference} {
		if !strings.Contains(details, want) {
			t.Fatalf("details %q missing %q", details, want)
		}
	}
}

func TestLogWithoutStore(t *testing.T) {
	logger := NewLogger(nil, nil)
	logger.Log(context.Background(), LevelInfo, "g1", "u1", EventPurge, "5 messages")
	c, err := logger.RecordCase(context.Background(), storage.ModerationCase{GuildID: "g1", Action: "kick"}, EventKick)
	if err != nil {
		t.Fatalf("record without store: %v", err)
	}
	if c.CreatedAt.IsZero() {
		t.Fatalf("expected created_at to be set")
	}
}

func TestNotifyRecordsExpiry(t *testing.T) {
	store := newStore(t)
	var notifier moderation.Notifier = NewLogger(store, nil)
	ctx := context.Background()

	notifier.Notify(ctx, moderation.TimedRestriction{
		Key:      moderation.Key{ScopeID: "g1", TargetID: "42", Kind: moderation.Mute},
		IssuerID: "7",
		Reason:   "spam",
	})

	logs, err := store.ListAuditLogs(ctx, "g1", time.Now().Add(-time.Hour))
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(logs) != 1 || logs[0].Event != EventRestrictionExpired || logs[0].Details != "mute target=42 reason=spam" {
		t.Fatalf("unexpected logs: %+v", logs)
	}
}

func TestNotifierSwapDuringExpiry(t *testing.T) {
	logger := NewLogger(nil, nil)
	var mu sync.Mutex
	seen := 0

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			logger.Notify(context.Background(), moderation.TimedRestriction{
				Key: moderation.Key{ScopeID: "g1", TargetID: "42", Kind: moderation.Mute},
			})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 100; i++ {
			logger.SetNotifier(func(context.Context, storage.AuditLog) {
				mu.Lock()
				seen++
				mu.Unlock()
			})
		}
	}()
	wg.Wait()

	logger.Notify(context.Background(), moderation.TimedRestriction{
		Key: moderation.Key{ScopeID: "g1", TargetID: "42", Kind: moderation.Mute},
	})
	mu.Lock()
	defer mu.Unlock()
	if seen == 0 {
		t.Fatalf("expiry after SetNotifier was not delivered")
	}
}
