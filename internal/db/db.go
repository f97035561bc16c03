// Package db defines the keyed-store abstraction the Ranking Store is built
// on: ordered sets (sorted by score), small hashes, and expiring scalar
// keys. Two implementations satisfy Store: an embedded in-process store
// (internal/db/memory) for default single-node deploys, and a networked
// Redis-protocol store (internal/db/redis) for multi-process deploys. Every
// other package in this module depends on the Store interface, never on a
// concrete backend.
package db

import (
	"context"
	"time"
)

// Store is the facade every backend implements.
//
//nolint:interfacebloat // facade by design -- consumers use narrow sub-interfaces (ISP)
type Store interface {
	Pinger
	SortedSetStore
	HashStore
	KVStore
	Close()
	WaitForReady(ctx context.Context, timeout time.Duration) error
}

// Pinger checks store connectivity.
type Pinger interface {
	Ping(ctx context.Context) error
}

// ScoredMember is one element of a sorted-set result.
type ScoredMember struct {
	Member string
	Score  float64
}

// SortedSetStore provides the ordered-by-score sets that back recency,
// frequency, tag affinity, transitions, session sequences, and the rolling
// prediction window.
type SortedSetStore interface {
	// ZAdd sets member's score unconditionally (last-write-wins).
	ZAdd(ctx context.Context, key string, score float64, member string) error
	// ZIncrBy adds delta to member's score (creating it at delta if absent)
	// and returns the resulting score.
	ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error)
	// ZScore returns member's score. ok is false if the member is absent.
	ZScore(ctx context.Context, key, member string) (score float64, ok bool, err error)
	// ZRevRangeWithScores returns up to limit members ordered by descending
	// score (limit <= 0 means no limit).
	ZRevRangeWithScores(ctx context.Context, key string, limit int) ([]ScoredMember, error)
	// ZRemRangeByRankAsc removes the lowest-scored members, keeping only the
	// top keep members by score. A no-op if the set has <= keep members.
	ZRemRangeByRankAsc(ctx context.Context, key string, keep int) error
	// ZRem removes a member from the set.
	ZRem(ctx context.Context, key, member string) error
	// ZCard returns the number of members in the set.
	ZCard(ctx context.Context, key string) (int64, error)
	// ZExpire sets a TTL on a sorted-set key.
	ZExpire(ctx context.Context, key string, ttl time.Duration) error
}

// HashStore provides hash-based key-value operations for prediction
// records and tuner arm state.
type HashStore interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HIncrBy(ctx context.Context, key, field string, delta int64) (int64, error)
	Del(ctx context.Context, key string) error
	Exists(ctx context.Context, key string) (bool, error)
	Scan(ctx context.Context, pattern string) ([]string, error)
}

// KVStore provides simple scalar key-value operations used for the intent
// cache and counters.
type KVStore interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	SetWithTTL(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}
