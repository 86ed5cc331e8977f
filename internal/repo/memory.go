package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nimb-ou/peer-review-system/internal/models"
)

// MemoryStore is an in-process review record source. One event exists per
// (reviewer, reviewee, day); Upsert replaces on conflict, matching the
// external store's semantics. Used by tests and the mock store binary.
type MemoryStore struct {
	mu     sync.RWMutex
	events map[string]models.ReviewEvent
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{events: make(map[string]models.ReviewEvent)}
}

// Upsert validates and stores an event, replacing any prior event for the
// same (reviewer, reviewee, day) key.
func (s *MemoryStore) Upsert(event models.ReviewEvent) error {
	if err := event.Validate(); err != nil {
		return fmt.Errorf("reject review event: %w", err)
	}
	event.Date = models.Day(event.Date)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[eventKey(event)] = event
	return nil
}

// FetchEvents returns events matching the query, ordered by date then
// reviewee for stable output.
func (s *MemoryStore) FetchEvents(_ context.Context, q EventQuery) ([]models.ReviewEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.ReviewEvent, 0)
	for _, ev := range s.events {
		if !q.Start.IsZero() && ev.Date.Before(models.Day(q.Start)) {
			continue
		}
		if !q.End.IsZero() && ev.Date.After(models.Day(q.End)) {
			continue
		}
		if q.RevieweeID != "" && ev.RevieweeID != q.RevieweeID {
			continue
		}
		out = append(out, ev)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		if out[i].RevieweeID != out[j].RevieweeID {
			return out[i].RevieweeID < out[j].RevieweeID
		}
		return out[i].ReviewerID < out[j].ReviewerID
	})
	return out, nil
}

// Len reports the number of stored events.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func eventKey(ev models.ReviewEvent) string {
	return ev.ReviewerID + "|" + ev.RevieweeID + "|" + ev.Date.Format(time.DateOnly)
}
