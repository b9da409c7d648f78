package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// DefaultBucket is the JetStream KV bucket used when none is configured.
const DefaultBucket = "STUDYCLUB_CHAT"

// kvBucket is the subset of jetstream.KeyValue the backend needs.
type kvBucket interface {
	Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error)
	Put(ctx context.Context, key string, value []byte) (uint64, error)
}

// NATSBackend stores the slot as one key of a JetStream KV bucket.
type NATSBackend struct {
	conn   *nats.Conn
	bucket kvBucket
	key    string
}

var _ Backend = (*NATSBackend)(nil)

// NATSOptions configures the NATS connection and bucket.
type NATSOptions struct {
	URL    string
	Bucket string
	Key    string
}

// NewNATSBackend connects to NATS and creates the KV bucket if needed.
func NewNATSBackend(ctx context.Context, opts NATSOptions) (*NATSBackend, error) {
	if opts.URL == "" {
		opts.URL = nats.DefaultURL
	}
	if opts.Bucket == "" {
		opts.Bucket = DefaultBucket
	}

	conn, err := nats.Connect(opts.URL)
	if err != nil {
		return nil, fmt.Errorf("connect nats: %w", err)
	}

	js, err := jetstream.New(conn)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("get jetstream: %w", err)
	}

	// CreateOrUpdateKeyValue is idempotent
	bucket, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      opts.Bucket,
		Description: "StudyClub24 chat session collection",
		History:     1,
	})
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("create/update kv bucket: %w", err)
	}

	b := newNATSBackend(bucket, opts.Key)
	b.conn = conn
	return b, nil
}

func newNATSBackend(bucket kvBucket, key string) *NATSBackend {
	if key == "" {
		key = DefaultKey
	}
	return &NATSBackend{bucket: bucket, key: key}
}

func (n *NATSBackend) Get(ctx context.Context) ([]byte, error) {
	entry, err := n.bucket.Get(ctx, n.key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) || errors.Is(err, jetstream.ErrKeyDeleted) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s: %w", n.key, err)
	}
	return entry.Value(), nil
}

func (n *NATSBackend) Set(ctx context.Context, value []byte) error {
	if _, err := n.bucket.Put(ctx, n.key, value); err != nil {
		return fmt.Errorf("put %s: %w", n.key, err)
	}
	return nil
}

func (n *NATSBackend) Close() error {
	if n.conn != nil {
		n.conn.Close()
	}
	return nil
}
