package rankstore

import (
	"context"
	"fmt"
	"math"
	"time"
)

// ApplyDecay runs one offline exponential half-life decay pass over a
// project's recency and frequency scores, using the same half-life math as
// the recency normalization in RecencySignal. Unlike the original scorer
// this also decays frequency, since an all-time-high count should fade for a
// long-lived project too. Returns the number of paths decayed per signal.
func (s *Store) ApplyDecay(ctx context.Context, project string, now time.Time) (recencyDecayed, frequencyDecayed int, err error) {
	recencyDecayed, err = s.decayZSet(ctx, recencyKey(project), now, decayRecencyScore)
	if err != nil {
		return 0, 0, fmt.Errorf("rankstore: apply_decay recency: %w", err)
	}
	frequencyDecayed, err = s.decayZSet(ctx, frequencyKey(project), now, decayFrequencyScore)
	if err != nil {
		return recencyDecayed, 0, fmt.Errorf("rankstore: apply_decay frequency: %w", err)
	}
	return recencyDecayed, frequencyDecayed, nil
}

func (s *Store) decayZSet(ctx context.Context, key string, now time.Time, fn func(score float64, now time.Time) float64) (int, error) {
	members, err := s.db.ZRevRangeWithScores(ctx, key, 0)
	if err != nil {
		return 0, err
	}
	for _, m := range members {
		if err := s.db.ZAdd(ctx, key, fn(m.Score, now), m.Member); err != nil {
			return 0, err
		}
	}
	return len(members), nil
}

// decayRecencyScore applies one half-life step to a recency epoch: the
// timestamp is pulled backward by one half-life, which is equivalent to
// halving the recency signal the next time it is normalized for reads.
func decayRecencyScore(epoch float64, now time.Time) float64 {
	return epoch - recencyHalfLife.Seconds()
}

// decayFrequencyScore halves a raw frequency count, floored at 0.
func decayFrequencyScore(count float64, _ time.Time) float64 {
	v := math.Floor(count / 2)
	if v < 0 {
		return 0
	}
	return v
}
