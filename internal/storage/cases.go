package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// ModerationCase records one moderator action.
type ModerationCase struct {
	ID          int64
	Reference   string
	GuildID     string
	TargetID    string
	ModeratorID string
	Action      string
	Reason      string
	Duration    string
	CreatedAt   time.Time
}

type caseRow struct {
	ID          int64  `db:"id"`
	Reference   string `db:"reference"`
	GuildID     string `db:"guild_id"`
	TargetID    string `db:"target_id"`
	ModeratorID string `db:"moderator_id"`
	Action      string `db:"action"`
	Reason      string `db:"reason"`
	Duration    string `db:"duration"`
	CreatedAt   int64  `db:"created_at"`
}

func (r caseRow) toCase() ModerationCase {
	return ModerationCase{
		ID:          r.ID,
		Reference:   r.Reference,
		GuildID:     r.GuildID,
		TargetID:    r.TargetID,
		ModeratorID: r.ModeratorID,
		Action:      r.Action,
		Reason:      r.Reason,
		Duration:    r.Duration,
		CreatedAt:   time.Unix(r.CreatedAt, 0),
	}
}

// AddCase stores c and returns it with its id and reference filled in.
func (s *Store) AddCase(ctx context.Context, c ModerationCase) (ModerationCase, error) {
	if c.Reference == "" {
		c.Reference = uuid.NewString()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	row := s.db.QueryRowContext(ctx, s.db.Rebind(`
		INSERT INTO moderation_cases (reference, guild_id, target_id, moderator_id, action, reason, duration, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		RETURNING id
	`), c.Reference, c.GuildID, c.TargetID, c.ModeratorID, c.Action, c.Reason, c.Duration, c.CreatedAt.Unix())
	if err := row.Scan(&c.ID); err != nil {
		return ModerationCase{}, err
	}
	return c, nil
}

// ListCases returns the newest cases of a guild, optionally for one target.
func (s *Store) ListCases(ctx context.Context, guildID, targetID string, limit int) ([]ModerationCase, error) {
	if limit <= 0 {
		limit = 10
	}
	query := `
		SELECT id, reference, guild_id, target_id, moderator_id, action, reason, duration, created_at
		FROM moderation_cases
		WHERE guild_id = ?`
	args := []any{guildID}
	if targetID != "" {
		query += ` AND target_id = ?`
		args = append(args, targetID)
	}
	query += ` ORDER BY created_at DESC, id DESC LIMIT ?`
	args = append(args, limit)

	var rows []caseRow
	if err := s.db.SelectContext(ctx, &rows, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	cases := make([]ModerationCase, 0, len(rows))
	for _, row := range rows {
		cases = append(cases, row.toCase())
	}
	return cases, nil
}

func (s *Store) GetCase(ctx context.Context, guildID, reference string) (ModerationCase, error) {
	var row caseRow
	err := s.db.GetContext(ctx, &row, s.db.Rebind(`
		SELECT id, reference, guild_id, target_id, moderator_id, action, reason, duration, created_at
		FROM moderation_cases
		WHERE guild_id = ? AND reference = ?
	`), guildID, reference)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return ModerationCase{}, ErrNotFound
		}
		return ModerationCase{}, err
	}
	return row.toCase(), nil
}

// CountCasesByAction counts the cases of a guild created at or after since.
func (s *Store) CountCasesByAction(ctx context.Context, guildID string, since time.Time) (map[string]int, error) {
	var rows []struct {
		Action string `db:"action"`
		Total  int    `db:"total"`
	}
	err := s.db.SelectContext(ctx, &rows, s.db.Rebind(`
		SELECT action, COUNT(*) AS total
		FROM moderation_cases
		WHERE guild_id = ? AND created_at >= ?
		GROUP BY action
	`), guildID, since.Unix())
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Action] = row.Total
	}
	return counts, nil
}
