package analytics

import (
	"context"
	"sort"
	"time"

	"keeper/internal/storage"
)

type Service struct {
	store *storage.Store
}

func New(store *storage.Store) *Service {
	return &Service{store: store}
}

type Report struct {
	Since   time.Time
	Total   int
	ByLevel map[string]int
	ByEvent map[string]int
	Cases   map[string]int
}

// Count is one bucket of a report map, for ordered display.
type Count struct {
	Name  string
	Value int
}

func (s *Service) Report(ctx context.Context, guildID string, since time.Time) (Report, error) {
	logs, err := s.store.ListAuditLogs(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}

	report := Report{
		Since:   since,
		ByLevel: make(map[string]int),
		ByEvent: make(map[string]int),
	}
	for _, log := range logs {
		report.Total++
		report.ByLevel[log.Level]++
		report.ByEvent[log.Event]++
	}

	report.Cases, err = s.store.CountCasesByAction(ctx, guildID, since)
	if err != nil {
		return Report{}, err
	}
	return report, nil
}

// Sorted orders a report map by descending count, then name.
func Sorted(counts map[string]int) []Count {
	out := make([]Count, 0, len(counts))
	for name, value := range counts {
		out = append(out, Count{Name: name, Value: value})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// PeriodStart maps a report period name to its start. Unknown periods fall
// back to one day.
func PeriodStart(period string, now time.Time) time.Time {
	switch period {
	case "week":
		return now.AddDate(0, 0, -7)
	case "month":
		return now.AddDate(0, -1, 0)
	default:
		return now.Add(-24 * time.Hour)
	}
}
