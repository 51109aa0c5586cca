// Package handoff carries a freshly generated timetable to the view that displays it, exactly once.
package handoff

import (
	"context"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core/schedule"
)

// ErrNotFound is returned by Take for unknown, expired or already consumed tokens.
var ErrNotFound = errors.New("handoff not found")

type (
	Handoff struct {
		Name    string           `json:"name"`
		Dataset schedule.Dataset `json:"dataset"`
	}

	// Store keeps handoffs until they are taken or expire.
	Store interface {
		// Put stores `h` and returns its token.
		Put(ctx context.Context, h Handoff) (string, error)
		// Take returns the handoff stored under `token` and removes it atomically.
		Take(ctx context.Context, token string) (Handoff, error)
	}
)

// NewToken returns an opaque, unguessable token.
func NewToken() string {
	return uuid.NewString()
}
