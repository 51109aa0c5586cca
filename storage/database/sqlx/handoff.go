package sqlxrepos

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/handoff"
)

var nowFunc = time.Now

const (
	purgeHandoffsQuery = `DELETE FROM view_handoffs WHERE expires_at IS NOT NULL AND expires_at <= $1`
	insertHandoffQuery = `INSERT INTO view_handoffs (token, name, dataset, expires_at) VALUES ($1, $2, $3, $4)`
	takeHandoffQuery   = `DELETE FROM view_handoffs WHERE token = $1 RETURNING name, dataset, expires_at`
)

type handoffRow struct {
	Name      string       `db:"name"`
	Dataset   []byte       `db:"dataset"`
	ExpiresAt sql.NullTime `db:"expires_at"`
}

type handoffStore struct {
	db  *sqlx.DB
	ttl time.Duration
}

var _ handoff.Store = (*handoffStore)(nil)

// NewHandoffStore returns a store backed by the `view_handoffs` table. A zero `ttl` keeps entries until taken.
func NewHandoffStore(db *sqlx.DB, ttl time.Duration) handoff.Store {
	return &handoffStore{db: db, ttl: ttl}
}

func (s *handoffStore) Put(ctx context.Context, h handoff.Handoff) (string, error) {
	ds, err := json.Marshal(h.Dataset)
	if err != nil {
		return "", errors.Wrap(err, "encoding dataset")
	}

	now := nowFunc()
	if _, err = s.db.ExecContext(ctx, purgeHandoffsQuery, now); err != nil {
		return "", errors.Wrap(err, "purging handoffs")
	}

	var expiresAt sql.NullTime
	if s.ttl > 0 {
		expiresAt = sql.NullTime{Time: now.Add(s.ttl), Valid: true}
	}
	token := handoff.NewToken()
	if _, err = s.db.ExecContext(ctx, insertHandoffQuery, token, h.Name, ds, expiresAt); err != nil {
		return "", errors.Wrap(err, "storing handoff")
	}
	return token, nil
}

// Take deletes and returns the row in one statement, so a token can only be taken once.
func (s *handoffStore) Take(ctx context.Context, token string) (handoff.Handoff, error) {
	var row handoffRow
	err := s.db.GetContext(ctx, &row, takeHandoffQuery, token)
	if errors.Is(err, sql.ErrNoRows) {
		return handoff.Handoff{}, handoff.ErrNotFound
	}
	if err != nil {
		return handoff.Handoff{}, errors.Wrap(err, "taking handoff")
	}
	if row.ExpiresAt.Valid && !nowFunc().Before(row.ExpiresAt.Time) {
		return handoff.Handoff{}, handoff.ErrNotFound
	}

	h := handoff.Handoff{Name: row.Name}
	if err = json.Unmarshal(row.Dataset, &h.Dataset); err != nil {
		return handoff.Handoff{}, errors.Wrap(err, "decoding dataset")
	}
	return h, nil
}
