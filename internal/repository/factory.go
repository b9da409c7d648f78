package repository

import (
	"context"
	"fmt"
)

// Backend kinds accepted by Open.
const (
	KindSQLite = "sqlite"
	KindMemory = "memory"
	KindRedis  = "redis"
	KindNATS   = "nats"
)

// Options selects and configures a backend.
type Options struct {
	Kind        string
	Key         string
	DatabaseURL string
	Redis       RedisOptions
	NATS        NATSOptions
}

// Open builds the backend named by opts.Kind.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Kind {
	case KindSQLite, "":
		return NewSQLiteBackend(opts.DatabaseURL, opts.Key)
	case KindMemory:
		return NewMemoryBackend(), nil
	case KindRedis:
		ro := opts.Redis
		if ro.Key == "" {
			ro.Key = opts.Key
		}
		return NewRedisBackend(ro)
	case KindNATS:
		no := opts.NATS
		if no.Key == "" {
			no.Key = opts.Key
		}
		return NewNATSBackend(ctx, no)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", opts.Kind)
	}
}
