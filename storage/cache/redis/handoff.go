package rediscache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/trezcool/ratiba/core/handoff"
)

const handoffKeyPrefix = "ratiba:handoff:"

type handoffStore struct {
	rdb redis.Cmdable
	ttl time.Duration
}

var _ handoff.Store = (*handoffStore)(nil)

// NewHandoffStore returns a store shared by every process using the same Redis.
// A zero `ttl` keeps entries until taken.
func NewHandoffStore(rdb redis.Cmdable, ttl time.Duration) handoff.Store {
	return &handoffStore{rdb: rdb, ttl: ttl}
}

func handoffKey(token string) string { return handoffKeyPrefix + token }

func (s *handoffStore) Put(ctx context.Context, h handoff.Handoff) (string, error) {
	b, err := json.Marshal(h)
	if err != nil {
		return "", errors.Wrap(err, "encoding handoff")
	}
	token := handoff.NewToken()
	if err := s.rdb.Set(ctx, handoffKey(token), b, s.ttl).Err(); err != nil {
		return "", errors.Wrap(err, "storing handoff")
	}
	return token, nil
}

// Take relies on GETDEL so that concurrent takers can't both get the entry.
func (s *handoffStore) Take(ctx context.Context, token string) (handoff.Handoff, error) {
	b, err := s.rdb.GetDel(ctx, handoffKey(token)).Bytes()
	if err == redis.Nil {
		return handoff.Handoff{}, handoff.ErrNotFound
	}
	if err != nil {
		return handoff.Handoff{}, errors.Wrap(err, "taking handoff")
	}

	var h handoff.Handoff
	if err := json.Unmarshal(b, &h); err != nil {
		return handoff.Handoff{}, errors.Wrap(err, "decoding handoff")
	}
	return h, nil
}
