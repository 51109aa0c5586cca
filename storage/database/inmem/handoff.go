package inmemdb

import (
	"context"
	"time"

	"github.com/trezcool/ratiba/core/handoff"
)

var nowFunc = time.Now

type handoffStore struct {
	db  *handoffTable
	ttl time.Duration
}

var _ handoff.Store = (*handoffStore)(nil)

// NewHandoffStore returns a process-local store. A zero `ttl` keeps entries until taken.
func NewHandoffStore(db *DB, ttl time.Duration) handoff.Store {
	return &handoffStore{db: db.handoff, ttl: ttl}
}

func (s *handoffStore) Put(_ context.Context, h handoff.Handoff) (string, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	now := nowFunc()
	s.purge(now)

	row := &handoffRow{handoff: handoff.Handoff{Name: h.Name, Dataset: h.Dataset.Clone()}}
	if s.ttl > 0 {
		row.expiresAt = now.Add(s.ttl)
	}
	token := handoff.NewToken()
	s.db.t[token] = row
	return token, nil
}

func (s *handoffStore) Take(_ context.Context, token string) (handoff.Handoff, error) {
	s.db.mutex.Lock()
	defer s.db.mutex.Unlock()

	row, ok := s.db.t[token]
	if !ok {
		return handoff.Handoff{}, handoff.ErrNotFound
	}
	delete(s.db.t, token)
	if row.expired(nowFunc()) {
		return handoff.Handoff{}, handoff.ErrNotFound
	}
	return row.handoff, nil
}

// purge drops expired rows; callers hold the lock.
func (s *handoffStore) purge(now time.Time) {
	for token, row := range s.db.t {
		if row.expired(now) {
			delete(s.db.t, token)
		}
	}
}

func (r *handoffRow) expired(now time.Time) bool {
	return !r.expiresAt.IsZero() && !now.Before(r.expiresAt)
}
