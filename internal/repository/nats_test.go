package repository

import (
	"context"
	"errors"
	"testing"

	"github.com/nats-io/nats.go/jetstream"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeEntry struct {
	jetstream.KeyValueEntry
	value []byte
}

func (e fakeEntry) Value() []byte { return e.value }

type fakeBucket struct {
	data   map[string][]byte
	getErr error
	rev    uint64
}

func (f *fakeBucket) Get(ctx context.Context, key string) (jetstream.KeyValueEntry, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, jetstream.ErrKeyNotFound
	}
	return fakeEntry{value: v}, nil
}

func (f *fakeBucket) Put(ctx context.Context, key string, value []byte) (uint64, error) {
	f.rev++
	f.data[key] = value
	return f.rev, nil
}

func TestNATSBackendRoundTrip(t *testing.T) {
	ctx := context.Background()
	bucket := &fakeBucket{data: map[string][]byte{}}
	b := newNATSBackend(bucket, "")

	_, err := b.Get(ctx)
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, b.Set(ctx, []byte(`[]`)))
	assert.Contains(t, bucket.data, DefaultKey)

	got, err := b.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, `[]`, string(got))
	assert.NoError(t, b.Close())
}

func TestNATSBackendDeletedKeyIsNotFound(t *testing.T) {
	b := newNATSBackend(&fakeBucket{getErr: jetstream.ErrKeyDeleted}, "k")

	_, err := b.Get(context.Background())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNATSBackendWrapsOtherErrors(t *testing.T) {
	boom := errors.New("boom")
	b := newNATSBackend(&fakeBucket{getErr: boom}, "k")

	_, err := b.Get(context.Background())
	assert.ErrorIs(t, err, boom)
	assert.NotErrorIs(t, err, ErrNotFound)
}
