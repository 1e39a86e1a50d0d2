package store

import (
	"context"
	"fmt"
)

// Driver names accepted by Open.
const (
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Options selects and configures a backend for Open.
type Options struct {
	Driver string
	DBPath string
	Redis  RedisOptions
}

// Open creates the Repository selected by opts.Driver.
func Open(ctx context.Context, opts Options) (Repository, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		s, err := NewSQLite(opts.DBPath)
		if err != nil {
			return nil, err
		}
		return s, nil
	case DriverRedis:
		s, err := NewRedis(ctx, opts.Redis)
		if err != nil {
			return nil, err
		}
		return s, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", opts.Driver)
	}
}
