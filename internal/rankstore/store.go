// Package rankstore implements the Ranking Store: the only write/read path
// for recency, frequency, tag affinity, transitions, session sequences, and
// prediction records. Every other component reaches the keyed store only
// through these verbs.
package rankstore

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devintel/internal/db"
)

// keyedStore is the consumer interface this package needs from db.Store (ISP).
type keyedStore interface {
	db.SortedSetStore
	db.HashStore
}

const (
	// recencyHalfLife is T_half in the recency normalization formula.
	recencyHalfLife = time.Hour
	// frequencyCMax is C_max in the frequency normalization formula.
	frequencyCMax = 100
	// transitionCap bounds trans:from to its top N destinations.
	transitionCap = 20
	// sessionTTL matches the original sequence-tracker's TTL for session keys.
	sessionTTL = 24 * time.Hour
)

// Store is the Ranking Store.
type Store struct {
	db               db.SortedSetStore
	hash             db.HashStore
	log              *zap.Logger
	transitionWindow time.Duration
}

// New creates a Ranking Store. transitionWindow bounds how recently "from"
// must have been accessed for a transition to be recorded; callers pass the
// configured prediction finalize window, since spec.md names no distinct
// value for it and the two concepts share the same "is this still part of
// the same burst of activity" intuition.
func New(store keyedStore, transitionWindow time.Duration, log *zap.Logger) *Store {
	return &Store{db: store, hash: store, log: log, transitionWindow: transitionWindow}
}

// RecordAccess upserts recency to now, increments frequency, and increments
// tag affinity for every given tag, recording Path->Tags membership.
func (s *Store) RecordAccess(ctx context.Context, project, path string, tags []string, now time.Time) error {
	if err := s.bumpRecency(ctx, project, path, now); err != nil {
		return fmt.Errorf("rankstore: record_access recency: %w", err)
	}
	if _, err := s.db.ZIncrBy(ctx, frequencyKey(project), 1, path); err != nil {
		return fmt.Errorf("rankstore: record_access frequency: %w", err)
	}
	for _, tag := range tags {
		if _, err := s.db.ZIncrBy(ctx, tagKey(project, tag), 1, path); err != nil {
			return fmt.Errorf("rankstore: record_access tag %s: %w", tag, err)
		}
		if err := s.hash.HSet(ctx, pathTagsKey(project, path), map[string]string{tag: "1"}); err != nil {
			return fmt.Errorf("rankstore: record_access path-tags %s: %w", tag, err)
		}
	}
	return nil
}

// bumpRecency enforces "monotonically nondecreasing per path unless reset":
// an out-of-order access (now earlier than the stored score) is a no-op.
func (s *Store) bumpRecency(ctx context.Context, project, path string, now time.Time) error {
	key := recencyKey(project)
	existing, ok, err := s.db.ZScore(ctx, key, path)
	if err != nil {
		return err
	}
	epoch := float64(now.Unix())
	if ok && existing >= epoch {
		return nil
	}
	return s.db.ZAdd(ctx, key, epoch, path)
}

// PathTags returns every tag recorded against path.
func (s *Store) PathTags(ctx context.Context, project, path string) ([]string, error) {
	fields, err := s.hash.HGetAll(ctx, pathTagsKey(project, path))
	if err != nil {
		return nil, fmt.Errorf("rankstore: path_tags: %w", err)
	}
	tags := make([]string, 0, len(fields))
	for tag := range fields {
		tags = append(tags, tag)
	}
	return tags, nil
}

// RecordTransition increments trans:from[to] only if to != from and from was
// last accessed within the transition window, then caps trans:from to its
// top N destinations by score.
func (s *Store) RecordTransition(ctx context.Context, project, from, to string, now time.Time) error {
	if from == "" || to == "" || from == to {
		return nil
	}

	lastAccess, ok, err := s.db.ZScore(ctx, recencyKey(project), from)
	if err != nil {
		return fmt.Errorf("rankstore: record_transition recency lookup: %w", err)
	}
	if !ok {
		return nil
	}
	elapsed := now.Sub(time.Unix(int64(lastAccess), 0))
	if elapsed > s.transitionWindow {
		return nil
	}

	if _, err := s.db.ZIncrBy(ctx, transKey(project, from), 1, to); err != nil {
		return fmt.Errorf("rankstore: record_transition increment: %w", err)
	}
	if err := s.recordTransitionTiming(ctx, project, from, to, elapsed); err != nil {
		return err
	}
	if err := s.db.ZRemRangeByRankAsc(ctx, transKey(project, from), transitionCap); err != nil {
		return fmt.Errorf("rankstore: record_transition cap: %w", err)
	}
	return nil
}

// recordTransitionTiming accumulates a bounded rolling sum+count of the
// wall-clock delta between from and to accesses, used to report avg_seconds
// per candidate (a supplemental field beyond spec.md's core invariants).
func (s *Store) recordTransitionTiming(ctx context.Context, project, from, to string, elapsed time.Duration) error {
	key := transTimingKey(project, from, to)
	if _, err := s.hash.HIncrBy(ctx, key, "sum_seconds", int64(elapsed.Seconds())); err != nil {
		return fmt.Errorf("rankstore: transition timing sum: %w", err)
	}
	if _, err := s.hash.HIncrBy(ctx, key, "count", 1); err != nil {
		return fmt.Errorf("rankstore: transition timing count: %w", err)
	}
	return nil
}

// RecordSessionAccess appends path to the session's sequence, refreshing its
// TTL. Used to derive the "from" side of a transition without requiring
// Intent Capture to hold in-memory per-session state.
func (s *Store) RecordSessionAccess(ctx context.Context, project, session, path string, now time.Time) error {
	key := seqKey(project, session)
	if err := s.db.ZAdd(ctx, key, float64(now.UnixNano()), path); err != nil {
		return fmt.Errorf("rankstore: record_session_access: %w", err)
	}
	if err := s.db.ZExpire(ctx, key, sessionTTL); err != nil {
		return fmt.Errorf("rankstore: record_session_access ttl: %w", err)
	}
	return nil
}

// LastSessionPath returns the most recently accessed path in session other
// than excludePath, for transition detection. ok is false if none exists.
func (s *Store) LastSessionPath(ctx context.Context, project, session, excludePath string) (path string, ok bool, err error) {
	members, err := s.db.ZRevRangeWithScores(ctx, seqKey(project, session), 5)
	if err != nil {
		return "", false, fmt.Errorf("rankstore: last_session_path: %w", err)
	}
	for _, m := range members {
		if m.Member != excludePath {
			return m.Member, true, nil
		}
	}
	return "", false, nil
}
