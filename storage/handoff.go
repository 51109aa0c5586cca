// Package storage picks the handoff store backend named in the config.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/ratiba/core"
	"github.com/trezcool/ratiba/core/handoff"
	rediscache "github.com/trezcool/ratiba/storage/cache/redis"
	"github.com/trezcool/ratiba/storage/database"
	"github.com/trezcool/ratiba/storage/database/inmem"
	sqlxrepos "github.com/trezcool/ratiba/storage/database/sqlx"
)

// OpenHandoffStore sets up the store named by `handoff.store`. The returned func releases its connections.
func OpenHandoffStore(ctx context.Context, conf *core.Config) (handoff.Store, func() error, error) {
	switch conf.Handoff.Store {
	case core.HandoffStoreRedis:
		rdb, err := rediscache.Open(ctx, conf)
		if err != nil {
			return nil, nil, errors.Wrap(err, "setting up redis")
		}
		return rediscache.NewHandoffStore(rdb, conf.Handoff.TTL), rdb.Close, nil

	case core.HandoffStorePostgres:
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, nil, errors.Wrap(err, "setting up database")
		}
		db, err := database.Open(conf)
		if err != nil {
			return nil, nil, err
		}
		if err = database.Migrate(db.DB); err != nil {
			_ = db.Close()
			return nil, nil, err
		}
		return sqlxrepos.NewHandoffStore(db, conf.Handoff.TTL), db.Close, nil

	case core.HandoffStoreMemory, "":
		db, err := inmemdb.Open()
		if err != nil {
			return nil, nil, err
		}
		return inmemdb.NewHandoffStore(db, conf.Handoff.TTL), func() error { return nil }, nil

	default:
		return nil, nil, errors.Errorf("unknown handoff store %q", conf.Handoff.Store)
	}
}
