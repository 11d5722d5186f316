package storage

import (
	"context"
	"time"
)

// Autorole is a role given to members when they join, after Delay.
type Autorole struct {
	GuildID string
	RoleID  string
	Delay   time.Duration
}

type autoroleRow struct {
	GuildID      string `db:"guild_id"`
	RoleID       string `db:"role_id"`
	DelaySeconds int64  `db:"delay_seconds"`
}

func (s *Store) UpsertAutorole(ctx context.Context, a Autorole) error {
	_, err := s.db.ExecContext(ctx, s.db.Rebind(`
		INSERT INTO autoroles (guild_id, role_id, delay_seconds)
		VALUES (?, ?, ?)
		ON CONFLICT(guild_id, role_id) DO UPDATE SET delay_seconds = excluded.delay_seconds
	`), a.GuildID, a.RoleID, int64(a.Delay/time.Second))
	return err
}

// DeleteAutorole removes one role, or every role of the guild when roleID is
// empty, and reports how many rows went away.
func (s *Store) DeleteAutorole(ctx context.Context, guildID, roleID string) (int64, error) {
	query, args := `DELETE FROM autoroles WHERE guild_id = ?`, []any{guildID}
	if roleID != "" {
		query += ` AND role_id = ?`
		args = append(args, roleID)
	}
	res, err := s.db.ExecContext(ctx, s.db.Rebind(query), args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListAutoroles returns a guild's autoroles, shortest delay first.
func (s *Store) ListAutoroles(ctx context.Context, guildID string) ([]Autorole, error) {
	var rows []autoroleRow
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT guild_id, role_id, delay_seconds
		FROM autoroles
		WHERE guild_id = ?
		ORDER BY delay_seconds, role_id
	`), guildID)
	if err != nil {
		return nil, err
	}
	out := make([]Autorole, 0, len(rows))
	for _, row := range rows {
		out = append(out, Autorole{
			GuildID: row.GuildID,
			RoleID:  row.RoleID,
			Delay:   time.Duration(row.DelaySeconds) * time.Second,
		})
	}
	return out, nil
}
