package moderation

import (
	"context"

	"keeper/internal/storage"
)

type storeJournal struct {
	store *storage.Store
}

// StoreJournal persists tracker entries in the timed_restrictions table.
func StoreJournal(store *storage.Store) Journal {
	return storeJournal{store: store}
}

func (j storeJournal) SaveRestriction(ctx context.Context, r TimedRestriction) error {
	return j.store.SaveRestriction(ctx, storage.TimedRestriction{
		GuildID:   r.ScopeID,
		TargetID:  r.TargetID,
		Kind:      string(r.Kind),
		Setting:   r.Setting,
		ExpiresAt: r.ExpiresAt,
		IssuerID:  r.IssuerID,
		Reason:    r.Reason,
		CreatedAt: r.CreatedAt,
	})
}

func (j storeJournal) DeleteRestriction(ctx context.Context, key Key) error {
	return j.store.DeleteRestriction(ctx, key.ScopeID, key.TargetID, string(key.Kind))
}

// LoadJournal reads every journaled entry back into tracker form. Rows with
// an unknown kind are skipped.
func LoadJournal(ctx context.Context, store *storage.Store) ([]TimedRestriction, error) {
	rows, err := store.ListRestrictions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]TimedRestriction, 0, len(rows))
	for _, row := range rows {
		kind, err := ParseKind(row.Kind)
		if err != nil {
			continue
		}
		out = append(out, TimedRestriction{
			Key:       Key{ScopeID: row.GuildID, TargetID: row.TargetID, Kind: kind},
			ExpiresAt: row.ExpiresAt,
			IssuerID:  row.IssuerID,
			Reason:    row.Reason,
			Setting:   row.Setting,
			CreatedAt: row.CreatedAt,
		})
	}
	return out, nil
}
