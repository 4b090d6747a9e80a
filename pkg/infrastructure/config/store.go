package config

import (
	"context"
	"fmt"
	"io"

	"github.com/vsinha/requisition/pkg/domain/repositories"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/redisstore"
	"github.com/vsinha/requisition/pkg/infrastructure/repositories/sqlstore"
)

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// OpenStore builds the KeyValueStore selected by the store driver. The
// returned closer releases its connection.
func (c StoreConfig) OpenStore(ctx context.Context) (repositories.KeyValueStore, io.Closer, error) {
	switch c.Driver {
	case DriverMemory:
		return memory.NewKeyValueStore(), nopCloser{}, nil
	case DriverRedis:
		store, client, err := redisstore.Open(ctx, redisstore.Options{
			Addr:     c.RedisAddr,
			Password: c.RedisPassword,
			DB:       c.RedisDB,
			Prefix:   c.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return store, client, nil
	case DriverSQLite, DriverPostgres:
		dialect, err := sqlstore.ParseDialect(c.Driver)
		if err != nil {
			return nil, nil, err
		}
		dsn := c.DSN
		if dialect == sqlstore.SQLite {
			dsn = c.Path
		}
		store, err := sqlstore.Open(ctx, dialect, dsn, c.Prefix)
		if err != nil {
			return nil, nil, err
		}
		return store, store, nil
	default:
		return nil, nil, fmt.Errorf("unknown store driver %q", c.Driver)
	}
}
