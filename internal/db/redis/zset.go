package redis

import (
	"context"
	"time"

	"github.com/redis/rueidis"

	"github.com/kailas-cloud/devintel/internal/db"
)

// ZAdd sets member's score unconditionally.
func (s *Store) ZAdd(ctx context.Context, key string, score float64, member string) error {
	cmd := s.b().Zadd().Key(key).ScoreMember().ScoreMember(score, member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZAdd, Err: err}
	}
	return nil
}

// ZIncrBy adds delta to member's score and returns the resulting score.
func (s *Store) ZIncrBy(ctx context.Context, key string, delta float64, member string) (float64, error) {
	cmd := s.b().Zincrby().Key(key).Increment(delta).Member(member).Build()
	score, err := s.do(ctx, cmd).AsFloat64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZIncrBy, Err: err}
	}
	return score, nil
}

// ZScore returns member's score, or ok=false if the member is absent.
func (s *Store) ZScore(ctx context.Context, key, member string) (float64, bool, error) {
	cmd := s.b().Zscore().Key(key).Member(member).Build()
	score, err := s.do(ctx, cmd).AsFloat64()
	if err != nil {
		if rueidis.IsRedisNil(err) {
			return 0, false, nil
		}
		return 0, false, &db.Error{Op: db.OpZScore, Err: err}
	}
	return score, true, nil
}

// ZRevRangeWithScores returns up to limit members ordered by descending score.
func (s *Store) ZRevRangeWithScores(ctx context.Context, key string, limit int) ([]db.ScoredMember, error) {
	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit) - 1
	}
	cmd := s.b().Zrevrange().Key(key).Start(0).Stop(stop).Withscores().Build()
	raw, err := s.do(ctx, cmd).AsZScores()
	if err != nil {
		return nil, &db.Error{Op: db.OpZRevRange, Err: err}
	}
	out := make([]db.ScoredMember, len(raw))
	for i, z := range raw {
		out[i] = db.ScoredMember{Member: z.Member, Score: z.Score}
	}
	return out, nil
}

// ZRemRangeByRankAsc removes the lowest-scored members, keeping only the top
// keep members by score.
func (s *Store) ZRemRangeByRankAsc(ctx context.Context, key string, keep int) error {
	card, err := s.ZCard(ctx, key)
	if err != nil {
		return err
	}
	if card <= int64(keep) {
		return nil
	}
	stop := card - int64(keep) - 1
	cmd := s.b().Zremrangebyrank().Key(key).Start(0).Stop(stop).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRemRangeByRank, Err: err}
	}
	return nil
}

// ZRem removes a member from the set.
func (s *Store) ZRem(ctx context.Context, key, member string) error {
	cmd := s.b().Zrem().Key(key).Member(member).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpZRem, Err: err}
	}
	return nil
}

// ZCard returns the number of members in the set.
func (s *Store) ZCard(ctx context.Context, key string) (int64, error) {
	cmd := s.b().Zcard().Key(key).Build()
	count, err := s.do(ctx, cmd).AsInt64()
	if err != nil {
		return 0, &db.Error{Op: db.OpZCard, Err: err}
	}
	return count, nil
}

// ZExpire sets a TTL on a sorted-set key.
func (s *Store) ZExpire(ctx context.Context, key string, ttl time.Duration) error {
	cmd := s.b().Expire().Key(key).Seconds(int64(ttl.Seconds())).Build()
	if err := s.do(ctx, cmd).Error(); err != nil {
		return &db.Error{Op: db.OpExpire, Err: err}
	}
	return nil
}
