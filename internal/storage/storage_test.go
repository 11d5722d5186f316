package storage

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)

	if _, err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

func TestMigrateIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	n, err := store.Migrate()
	if err != nil {
		t.Fatalf("second migrate: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no pending migrations, got %d", n)
	}
}

func TestNewRejectsUnknownDriver(t *testing.T) {
	if _, err := New("mysql", "x"); err == nil {
		t.Fatalf("expected error for unknown driver")
	}
}

func TestUpsertGuildSettings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	settings := GuildSettings{
		GuildID:       "g1",
		ModLogChannel: "c1",
		Language:      "fr",
		DMOnAction:    true,
	}
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("upsert guild settings: %v", err)
	}

	settings.ModLogChannel = "c2"
	settings.LockdownEnabled = true
	if err := store.UpsertGuildSettings(ctx, settings); err != nil {
		t.Fatalf("update guild settings: %v", err)
	}

	got, err := store.GetGuildSettings(ctx, "g1", GuildSettings{Language: "en"})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.ModLogChannel != "c2" {
		t.Fatalf("expected channel c2, got %q", got.ModLogChannel)
	}
	if !got.LockdownEnabled || !got.DMOnAction || got.Language != "fr" {
		t.Fatalf("unexpected settings: %+v", got)
	}
}

func TestGetGuildSettingsDefaults(t *testing.T) {
	store := newTestStore(t)
	got, err := store.GetGuildSettings(context.Background(), "missing", GuildSettings{ModLogChannel: "fallback", Language: "en"})
	if err != nil {
		t.Fatalf("get guild settings: %v", err)
	}
	if got.GuildID != "missing" || got.ModLogChannel != "fallback" {
		t.Fatalf("expected defaults, got %+v", got)
	}
}

func TestAuditLogs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	entries := []AuditLog{
		{GuildID: "g1", Level: "INFO", Event: "mute", CreatedAt: now.Add(-2 * time.Hour)},
		{GuildID: "g1", Level: "WARN", Event: "ban", CreatedAt: now.Add(-time.Minute)},
		{GuildID: "g2", Level: "INFO", Event: "mute", CreatedAt: now},
		{GuildID: "g1", Level: "INFO", Event: "old", CreatedAt: now.AddDate(0, 0, -40)},
	}
	for _, entry := range entries {
		if err := store.AddAuditLog(ctx, entry); err != nil {
			t.Fatalf("add audit log: %v", err)
		}
	}

	logs, err := store.ListAuditLogs(ctx, "g1", now.Add(-24*time.Hour))
	if err != nil {
		t.Fatalf("list audit logs: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("expected 2 logs, got %d", len(logs))
	}
	if logs[0].Event != "ban" {
		t.Fatalf("expected newest first, got %q", logs[0].Event)
	}

	removed, err := store.CleanupAuditLogs(ctx, 30)
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if removed != 1 {
		t.Fatalf("expected 1 removed, got %d", removed)
	}
}

func TestModerationCases(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first, err := store.AddCase(ctx, ModerationCase{GuildID: "g1", TargetID: "u1", ModeratorID: "m1", Action: "mute", Duration: "10m", CreatedAt: now.Add(-time.Minute)})
	if err != nil {
		t.Fatalf("add case: %v", err)
	}
	if first.ID == 0 || first.Reference == "" {
		t.Fatalf("expected id and reference, got %+v", first)
	}
	if _, err := store.AddCase(ctx, ModerationCase{GuildID: "g1", TargetID: "u1", ModeratorID: "m1", Action: "ban", CreatedAt: now}); err != nil {
		t.Fatalf("add case: %v", err)
	}
	if _, err := store.AddCase(ctx, ModerationCase{GuildID: "g1", TargetID: "u2", ModeratorID: "m1", Action: "mute", CreatedAt: now}); err != nil {
		t.Fatalf("add case: %v", err)
	}

	cases, err := store.ListCases(ctx, "g1", "u1", 10)
	if err != nil {
		t.Fatalf("list cases: %v", err)
	}
	if len(cases) != 2 || cases[0].Action != "ban" {
		t.Fatalf("unexpected cases: %+v", cases)
	}

	got, err := store.GetCase(ctx, "g1", first.Reference)
	if err != nil {
		t.Fatalf("get case: %v", err)
	}
	if got.Duration != "10m" {
		t.Fatalf("expected duration 10m, got %q", got.Duration)
	}
	if _, err := store.GetCase(ctx, "g1", "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	counts, err := store.CountCasesByAction(ctx, "g1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("count cases: %v", err)
	}
	if counts["mute"] != 2 || counts["ban"] != 1 {
		t.Fatalf("unexpected counts: %v", counts)
	}
}

func TestTimedRestrictionJournal(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	expires := time.UnixMilli(time.Now().Add(time.Hour).UnixMilli())

	r := TimedRestriction{GuildID: "g1", TargetID: "u1", Kind: "mute", ExpiresAt: expires, IssuerID: "m1", Reason: "spam", CreatedAt: time.Now()}
	if err := store.SaveRestriction(ctx, r); err != nil {
		t.Fatalf("save: %v", err)
	}
	r.ExpiresAt = expires.Add(time.Hour)
	if err := store.SaveRestriction(ctx, r); err != nil {
		t.Fatalf("replace: %v", err)
	}
	if err := store.SaveRestriction(ctx, TimedRestriction{GuildID: "g1", TargetID: "c1", Kind: "slowmode", Setting: 30, ExpiresAt: expires, CreatedAt: time.Now()}); err != nil {
		t.Fatalf("save slowmode: %v", err)
	}

	all, err := store.ListRestrictions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 restrictions, got %d", len(all))
	}
	if all[0].Kind != "slowmode" || all[0].Setting != 30 {
		t.Fatalf("expected slowmode first, got %+v", all[0])
	}
	if !all[1].ExpiresAt.Equal(expires.Add(time.Hour)) {
		t.Fatalf("expected replaced expiry, got %v", all[1].ExpiresAt)
	}

	if err := store.DeleteRestriction(ctx, "g1", "u1", "mute"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	all, err = store.ListRestrictions(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Fatalf("expected 1 restriction, got %d", len(all))
	}
}

func TestAutoroles(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, a := range []Autorole{
		{GuildID: "g1", RoleID: "r2", Delay: 10 * time.Minute},
		{GuildID: "g1", RoleID: "r1"},
		{GuildID: "g2", RoleID: "r9", Delay: time.Hour},
	} {
		if err := store.UpsertAutorole(ctx, a); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}
	if err := store.UpsertAutorole(ctx, Autorole{GuildID: "g1", RoleID: "r2", Delay: 5 * time.Minute}); err != nil {
		t.Fatalf("update delay: %v", err)
	}

	roles, err := store.ListAutoroles(ctx, "g1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(roles) != 2 || roles[0].RoleID != "r1" || roles[1].Delay != 5*time.Minute {
		t.Fatalf("unexpected autoroles: %+v", roles)
	}

	if n, err := store.DeleteAutorole(ctx, "g1", "r1"); err != nil || n != 1 {
		t.Fatalf("delete one: n=%d err=%v", n, err)
	}
	if n, err := store.DeleteAutorole(ctx, "g1", ""); err != nil || n != 1 {
		t.Fatalf("clear: n=%d err=%v", n, err)
	}
	roles, err = store.ListAutoroles(ctx, "g2")
	if err != nil || len(roles) != 1 {
		t.Fatalf("other guild touched: %+v %v", roles, err)
	}
}
