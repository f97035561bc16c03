// Package memory implements db.Store entirely in-process, for the default
// single-node deploy that needs no external dependency.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kailas-cloud/devintel/internal/db"
)

var _ db.Store = (*Store)(nil)

type expiring struct {
	value   []byte
	expires time.Time // zero means no expiry
}

// Store is an in-process, mutex-guarded implementation of db.Store.
type Store struct {
	mu sync.RWMutex

	zsets  map[string]map[string]float64
	hashes map[string]map[string]string
	kv     map[string]expiring
}

// New creates an empty in-process store.
func New() *Store {
	return &Store{
		zsets:  make(map[string]map[string]float64),
		hashes: make(map[string]map[string]string),
		kv:     make(map[string]expiring),
	}
}

// Ping always succeeds; there is no network to fail.
func (s *Store) Ping(_ context.Context) error { return nil }

// Close is a no-op; there is no connection to release.
func (s *Store) Close() {}

// WaitForReady returns immediately; the embedded store is ready at construction.
func (s *Store) WaitForReady(_ context.Context, _ time.Duration) error { return nil }

// --- SortedSetStore ---

func (s *Store) ZAdd(_ context.Context, key string, score float64, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.zsetLocked(key)[member] = score
	return nil
}

func (s *Store) ZIncrBy(_ context.Context, key string, delta float64, member string) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	z := s.zsetLocked(key)
	z[member] += delta
	return z[member], nil
}

func (s *Store) ZScore(_ context.Context, key, member string) (float64, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	z, ok := s.zsets[key]
	if !ok {
		return 0, false, nil
	}
	score, ok := z[member]
	return score, ok, nil
}

func (s *Store) ZRevRangeWithScores(_ context.Context, key string, limit int) ([]db.ScoredMember, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	z, ok := s.zsets[key]
	if !ok {
		return nil, nil
	}
	out := make([]db.ScoredMember, 0, len(z))
	for member, score := range z {
		out = append(out, db.ScoredMember{Member: member, Score: score})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Member < out[j].Member
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) ZRemRangeByRankAsc(_ context.Context, key string, keep int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	z, ok := s.zsets[key]
	if !ok || len(z) <= keep {
		return nil
	}

	type pair struct {
		member string
		score  float64
	}
	all := make([]pair, 0, len(z))
	for member, score := range z {
		all = append(all, pair{member, score})
	}
	sort.Slice(all, func(i, j int) bool { return all[i].score < all[j].score })

	drop := len(all) - keep
	for i := 0; i < drop; i++ {
		delete(z, all[i].member)
	}
	return nil
}

func (s *Store) ZRem(_ context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if z, ok := s.zsets[key]; ok {
		delete(z, member)
	}
	return nil
}

func (s *Store) ZCard(_ context.Context, key string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.zsets[key])), nil
}

// ZExpire is a no-op on the embedded store: a sorted set lives as long as the
// process, whatever TTL is asked for.
func (s *Store) ZExpire(_ context.Context, _ string, _ time.Duration) error { return nil }

func (s *Store) zsetLocked(key string) map[string]float64 {
	z, ok := s.zsets[key]
	if !ok {
		z = make(map[string]float64)
		s.zsets[key] = z
	}
	return z
}

// --- HashStore ---

func (s *Store) HSet(_ context.Context, key string, fields map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashLocked(key)
	for k, v := range fields {
		h[k] = v
	}
	return nil
}

func (s *Store) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.hashes[key]
	if !ok {
		return map[string]string{}, nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		out[k] = v
	}
	return out, nil
}

func (s *Store) HIncrBy(_ context.Context, key, field string, delta int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	h := s.hashLocked(key)
	cur, _ := parseInt(h[field])
	cur += delta
	h[field] = formatInt(cur)
	return cur, nil
}

func (s *Store) Del(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.hashes, key)
	delete(s.zsets, key)
	delete(s.kv, key)
	return nil
}

func (s *Store) Exists(_ context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.hashes[key]; ok {
		return true, nil
	}
	if _, ok := s.zsets[key]; ok {
		return true, nil
	}
	if e, ok := s.kv[key]; ok {
		return !isExpired(e), nil
	}
	return false, nil
}

func (s *Store) Scan(_ context.Context, pattern string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]struct{})
	for key := range s.hashes {
		if matchGlob(pattern, key) {
			seen[key] = struct{}{}
		}
	}
	for key := range s.zsets {
		if matchGlob(pattern, key) {
			seen[key] = struct{}{}
		}
	}
	for key, e := range s.kv {
		if !isExpired(e) && matchGlob(pattern, key) {
			seen[key] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for key := range seen {
		out = append(out, key)
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) hashLocked(key string) map[string]string {
	h, ok := s.hashes[key]
	if !ok {
		h = make(map[string]string)
		s.hashes[key] = h
	}
	return h
}

// --- KVStore ---

func (s *Store) Get(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.kv[key]
	if !ok || isExpired(e) {
		return nil, db.ErrKeyNotFound
	}
	return e.value, nil
}

func (s *Store) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = expiring{value: value}
	return nil
}

func (s *Store) SetWithTTL(_ context.Context, key string, value []byte, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.kv[key] = expiring{value: value, expires: time.Now().Add(ttl)}
	return nil
}

func (s *Store) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.kv[key]
	if !ok {
		return nil
	}
	if nx && !e.expires.IsZero() {
		return nil
	}
	e.expires = time.Now().Add(ttl)
	s.kv[key] = e
	return nil
}

func isExpired(e expiring) bool {
	return !e.expires.IsZero() && time.Now().After(e.expires)
}

// EvictExpired removes every expired key from the KV table and returns the
// number removed. The embedded store otherwise only checks expiry lazily on
// Get/Exists/Scan, which would let a long-lived daemon accumulate dead
// intent-cache and reference-max entries indefinitely; a background caller
// (the composition root's cache-eviction loop, per spec.md §5) runs this
// periodically to bound that growth.
func (s *Store) EvictExpired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for key, e := range s.kv {
		if isExpired(e) {
			delete(s.kv, key)
			n++
		}
	}
	return n
}
