package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/go-redis/redis/v8"
	"github.com/nats-io/nats.go"

	"github.com/snamp-platform/snamp-go/pkg/config"
	"github.com/snamp-platform/snamp-go/pkg/sequence"
)

// newCounter opens the configured sequence backend. Distributed backends
// are wrapped so that numbers stay monotonic when the backend fails. The
// returned function releases the backend connection.
func newCounter(ctx context.Context, sc config.SequenceConfig, logger *slog.Logger) (sequence.Counter, func(), error) {
	switch sc.Backend {
	case config.BackendNATS:
		nc, err := nats.Connect(sc.URL, nats.Name(name))
		if err != nil {
			return nil, nil, fmt.Errorf("nats %s: %w", sc.URL, err)
		}
		kv, err := sequence.OpenBucket(ctx, nc, sc.Bucket)
		if err != nil {
			nc.Close()
			return nil, nil, err
		}
		return sequence.NewResilient(sequence.NewNATSCounter(kv), logger), nc.Close, nil

	case config.BackendRedis:
		opts, err := redis.ParseURL(sc.URL)
		if err != nil {
			return nil, nil, fmt.Errorf("redis url: %w", err)
		}
		client := redis.NewClient(opts)
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Warn("redis unreachable, sequence numbers fall back to local counters", "url", sc.URL, "error", err)
		}
		return sequence.NewResilient(sequence.NewRedisCounter(client, sc.Prefix), logger), func() { _ = client.Close() }, nil

	default:
		return sequence.NewLocal(), func() {}, nil
	}
}
