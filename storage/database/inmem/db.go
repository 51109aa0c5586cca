package inmemdb

import (
	"sync"
	"time"

	"github.com/trezcool/ratiba/core/handoff"
)

type (
	DB struct {
		handoff *handoffTable
	}

	handoffRow struct {
		handoff   handoff.Handoff
		expiresAt time.Time
	}

	handoffTable struct {
		t     map[string]*handoffRow
		mutex sync.Mutex
	}
)

func Open() (*DB, error) {
	db := &DB{
		handoff: &handoffTable{t: make(map[string]*handoffRow)},
	}
	return db, nil
}
