package sequence

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// NATS counter errors.
var (
	ErrCorruptCounter     = errors.New("sequence: corrupt counter value")
	ErrMaxRetriesExceeded = errors.New("sequence: max retries exceeded")
)

// DefaultBucket is the JetStream KV bucket holding shared counters.
const DefaultBucket = "snamp_sequences"

// kvStore is the subset of a KV bucket the counter needs. Revision 0 from get
// means the key does not exist.
type kvStore interface {
	get(ctx context.Context, key string) ([]byte, uint64, error)
	create(ctx context.Context, key string, value []byte) error
	update(ctx context.Context, key string, value []byte, revision uint64) error
}

type jetstreamStore struct {
	bucket jetstream.KeyValue
}

func (s jetstreamStore) get(ctx context.Context, key string) ([]byte, uint64, error) {
	entry, err := s.bucket.Get(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, 0, nil
		}
		return nil, 0, fmt.Errorf("kv get %s: %w", key, err)
	}
	return entry.Value(), entry.Revision(), nil
}

func (s jetstreamStore) create(ctx context.Context, key string, value []byte) error {
	_, err := s.bucket.Create(ctx, key, value)
	return err
}

func (s jetstreamStore) update(ctx context.Context, key string, value []byte, revision uint64) error {
	_, err := s.bucket.Update(ctx, key, value, revision)
	return err
}

// NATSCounter keeps counters in a JetStream key/value bucket and increments
// them with compare-and-set.
type NATSCounter struct {
	store      kvStore
	maxRetries int
	retryDelay time.Duration
}

// NewNATSCounter creates a counter backed by bucket.
func NewNATSCounter(bucket jetstream.KeyValue) *NATSCounter {
	return newNATSCounter(jetstreamStore{bucket: bucket})
}

func newNATSCounter(store kvStore) *NATSCounter {
	return &NATSCounter{
		store:      store,
		maxRetries: 10,
		retryDelay: 5 * time.Millisecond,
	}
}

// OpenBucket returns the counter bucket, creating it if needed.
func OpenBucket(ctx context.Context, nc *nats.Conn, name string) (jetstream.KeyValue, error) {
	if name == "" {
		name = DefaultBucket
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("jetstream: %w", err)
	}
	if kv, err := js.KeyValue(ctx, name); err == nil {
		return kv, nil
	}
	kv, err := js.CreateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      name,
		Description: "notification sequence numbers",
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", name, err)
	}
	return kv, nil
}

// Next increments the shared counter for key.
func (c *NATSCounter) Next(ctx context.Context, key string) (uint64, error) {
	kvKey := sanitizeKey(key)
	delay := c.retryDelay

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		current, revision, err := c.store.get(ctx, kvKey)
		if err != nil {
			return 0, err
		}

		var n uint64
		if revision != 0 {
			n, err = strconv.ParseUint(string(current), 10, 64)
			if err != nil {
				return 0, fmt.Errorf("%w: %q", ErrCorruptCounter, current)
			}
		}
		next := []byte(strconv.FormatUint(n+1, 10))

		if revision == 0 {
			err = c.store.create(ctx, kvKey, next)
		} else {
			err = c.store.update(ctx, kvKey, next, revision)
		}
		if err == nil {
			return n + 1, nil
		}
		if !isConflict(err) {
			return 0, fmt.Errorf("kv increment %s: %w", kvKey, err)
		}

		select {
		case <-ctx.Done():
			return 0, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return 0, ErrMaxRetriesExceeded
}

// isConflict reports a lost compare-and-set race.
func isConflict(err error) bool {
	if errors.Is(err, jetstream.ErrKeyExists) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "wrong last sequence") ||
		strings.Contains(msg, "10071") ||
		strings.Contains(msg, "key exists") ||
		strings.Contains(msg, "10058")
}

// sanitizeKey maps a counter key onto the KV key alphabet.
func sanitizeKey(key string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '-', r == '_', r == '=':
			return r
		case r == '/':
			return '.'
		}
		return '_'
	}, key)
}
