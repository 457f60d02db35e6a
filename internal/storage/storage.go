// Package storage persists full-state snapshots for the client stores. The
// persisted unit is always the complete serialized state under a well-known
// key, never a diff, so a cold start can hydrate from whatever is there.
package storage

import (
	"context"

	"github.com/devdazzlee/sphire-client/pkg/config"
	pkgerrors "github.com/devdazzlee/sphire-client/pkg/errors"
	"github.com/devdazzlee/sphire-client/pkg/logger"
)

// Well-known snapshot keys.
const (
	KeyAuthToken        = "auth_token"
	KeyUser             = "auth_user"
	KeyCartSnapshot     = "cart_snapshot"
	KeyWishlistSnapshot = "wishlist_snapshot"
)

// Store is the snapshot persistence surface. Get reports ok=false when the
// key has never been written (or was deleted), which is not an error.
type Store interface {
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
	Close() error
}

// Open builds the store named by cfg.Driver.
func Open(ctx context.Context, cfg config.StorageConfig, redisCfg config.RedisConfig, logg *logger.Logger) (Store, error) {
	switch cfg.Driver {
	case config.StorageDriverFile:
		return NewFile(cfg.Dir)
	case config.StorageDriverSQLite:
		return NewSQLite(ctx, cfg.SQLitePath, logg)
	case config.StorageDriverRedis:
		return NewRedis(ctx, redisCfg)
	case config.StorageDriverMemory:
		return NewMemory(), nil
	}
	return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown storage driver "+cfg.Driver)
}
