package analytics

import (
	"context"
	"testing"
	"time"

	"keeper/internal/storage"
)

func TestReport(t *testing.T) {
	store, err := storage.New(storage.DriverSQLite, ":memory:")
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	t.Cleanup(store.Close)
	if _, err := store.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	ctx := context.Background()
	now := time.Now()
	logs := []storage.AuditLog{
		{GuildID: "g1", Level: "INFO", Event: "restriction_applied", CreatedAt: now},
		{GuildID: "g1", Level: "INFO", Event: "restriction_applied", CreatedAt: now},
		{GuildID: "g1", Level: "CRIT", Event: "guard_tripped", CreatedAt: now},
		{GuildID: "g1", Level: "INFO", Event: "restriction_applied", CreatedAt: now.Add(-48 * time.Hour)},
		{GuildID: "g2", Level: "INFO", Event: "restriction_applied", CreatedAt: now},
	}
	for _, log := range logs {
		if err := store.AddAuditLog(ctx, log); err != nil {
			t.Fatalf("add log: %v", err)
		}
	}
	for _, action := range []string{"mute", "mute", "ban"} {
		if _, err := store.AddCase(ctx, storage.ModerationCase{GuildID: "g1", TargetID: "42", Action: action, CreatedAt: now}); err != nil {
			t.Fatalf("add case: %v", err)
		}
	}

	report, err := New(store).Report(ctx, "g1", PeriodStart("day", now))
	if err != nil {
		t.Fatalf("report: %v", err)
	}
	if report.Total != 3 {
		t.Fatalf("expected 3 logs, got %d", report.Total)
	}
	if report.ByLevel["INFO"] != 2 || report.ByLevel["CRIT"] != 1 {
		t.Fatalf("unexpected levels: %v", report.ByLevel)
	}
	if report.ByEvent["restriction_applied"] != 2 {
		t.Fatalf("unexpected events: %v", report.ByEvent)
	}
	if report.Cases["mute"] != 2 || report.Cases["ban"] != 1 {
		t.Fatalf("unexpected cases: %v", report.Cases)
	}

	sorted := Sorted(report.Cases)
	if len(sorted) != 2 || sorted[0].Name != "mute" || sorted[1].Name != "ban" {
		t.Fatalf("unexpected order: %+v", sorted)
	}
}

func TestPeriodStart(t *testing.T) {
	now := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	if got := PeriodStart("week", now); !got.Equal(now.AddDate(0, 0, -7)) {
		t.Fatalf("week: %v", got)
	}
	if got := PeriodStart("bogus", now); !got.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("default: %v", got)
	}
}
