package storage

import (
	"context"
	"time"
)

// TimedRestriction is the journaled copy of a pending timed action.
type TimedRestriction struct {
	GuildID   string
	TargetID  string
	Kind      string
	Setting   int
	ExpiresAt time.Time
	IssuerID  string
	Reason    string
	CreatedAt time.Time
}

type restrictionRow struct {
	GuildID     string `db:"guild_id"`
	TargetID    string `db:"target_id"`
	Kind        string `db:"kind"`
	Setting     int    `db:"setting"`
	ExpiresAtMS int64  `db:"expires_at_ms"`
	IssuerID    string `db:"issuer_id"`
	Reason      string `db:"reason"`
	CreatedAt   int64  `db:"created_at"`
}

func (s *Store) SaveRestriction(ctx context.Context, r TimedRestriction) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO timed_restrictions (guild_id, target_id, kind, setting, expires_at_ms, issuer_id, reason, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(guild_id, target_id, kind) DO UPDATE SET
			setting = excluded.setting,
			expires_at_ms = excluded.expires_at_ms,
			issuer_id = excluded.issuer_id,
			reason = excluded.reason,
			created_at = excluded.created_at
	`), r.GuildID, r.TargetID, r.Kind, r.Setting, r.ExpiresAt.UnixMilli(), r.IssuerID, r.Reason, r.CreatedAt.Unix())
	return err
}

func (s *Store) DeleteRestriction(ctx context.Context, guildID, targetID, kind string) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		DELETE FROM timed_restrictions WHERE guild_id = ? AND target_id = ? AND kind = ?
	`), guildID, targetID, kind)
	return err
}

// ListRestrictions returns every journaled restriction, soonest expiry first.
func (s *Store) ListRestrictions(ctx context.Context) ([]TimedRestriction, error) {
	var rows []restrictionRow
	err := s.db.SelectContext(ctx, &rows, `
		SELECT guild_id, target_id, kind, setting, expires_at_ms, issuer_id, reason, created_at
		FROM timed_restrictions
		ORDER BY expires_at_ms
	`)
	if err != nil {
		return nil, err
	}
	out := make([]TimedRestriction, 0, len(rows))
	for _, row := range rows {
		out = append(out, TimedRestriction{
			GuildID:   row.GuildID,
			TargetID:  row.TargetID,
			Kind:      row.Kind,
			Setting:   row.Setting,
			ExpiresAt: time.UnixMilli(row.ExpiresAtMS),
			IssuerID:  row.IssuerID,
			Reason:    row.Reason,
			CreatedAt: time.Unix(row.CreatedAt, 0),
		})
	}
	return out, nil
}
