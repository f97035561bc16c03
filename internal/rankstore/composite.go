package rankstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/kailas-cloud/devintel/internal/db"
)

// Weights is the (w_rec, w_freq, w_tag) triple a tuner arm selects.
type Weights struct {
	Recency   float64
	Frequency float64
	Tag       float64
}

// Signals is the normalized [0,1] per-signal breakdown behind a composite score.
type Signals struct {
	Recency   float64
	Frequency float64
	Tag       float64
}

// ScoredPath is one ranked candidate from TopComposite.
type ScoredPath struct {
	Path    string
	Score   float64
	Signals Signals
}

// candidatePoolSize bounds how many paths are pulled from each signal source
// before composite scoring; it is not the result limit.
const candidatePoolSize = 200

// RecencySignal normalizes a last-access epoch to [0,1] via half-life decay.
func RecencySignal(lastAccess time.Time, now time.Time) float64 {
	if lastAccess.IsZero() {
		return 0
	}
	delta := now.Sub(lastAccess).Seconds()
	if delta < 0 {
		delta = 0
	}
	v := math.Exp(-math.Ln2 * delta / recencyHalfLife.Seconds())
	return clamp01(v)
}

// FrequencySignal normalizes an access count to [0,1] via log scaling.
func FrequencySignal(count float64) float64 {
	if count <= 0 {
		return 0
	}
	return clamp01(math.Log(1+count) / math.Log(1+frequencyCMax))
}

// TagSignal normalizes a path's tag score against the max tag score in the
// candidate set; returns 0 if maxTagScore is 0 (no tag supplied or no hits).
func TagSignal(tagScore, maxTagScore float64) float64 {
	if maxTagScore <= 0 {
		return 0
	}
	return clamp01(tagScore / maxTagScore)
}

// TransitionSignal normalizes a transition's score against the sum of all
// transition scores originating from the same path.
func TransitionSignal(transScore, sumFromOrigin float64) float64 {
	if sumFromOrigin <= 0 {
		return 0
	}
	return clamp01(transScore / sumFromOrigin)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// TopRecent returns the top-k paths by raw recency score, for the cold-start
// fallback candidate source in the Prediction Engine's candidate assembly.
func (s *Store) TopRecent(ctx context.Context, project string, k int) ([]db.ScoredMember, error) {
	members, err := s.db.ZRevRangeWithScores(ctx, recencyKey(project), k)
	if err != nil {
		return nil, fmt.Errorf("rankstore: top_recent: %w", err)
	}
	return members, nil
}

// TopByTag returns the top-k paths by tag affinity for a single tag.
func (s *Store) TopByTag(ctx context.Context, project, tag string, k int) ([]db.ScoredMember, error) {
	members, err := s.db.ZRevRangeWithScores(ctx, tagKey(project, tag), k)
	if err != nil {
		return nil, fmt.Errorf("rankstore: top_by_tag: %w", err)
	}
	return members, nil
}

// TransitionTo is one destination returned by TransitionsFrom, with the
// transition signal and the supplemental average observed delay.
type TransitionTo struct {
	Path       string
	Signal     float64
	AvgSeconds float64
}

// TransitionsFrom returns the top-k destinations reached from path by
// transition score, normalized signal, and average observed delay.
func (s *Store) TransitionsFrom(ctx context.Context, project, path string, k int) ([]TransitionTo, error) {
	members, err := s.db.ZRevRangeWithScores(ctx, transKey(project, path), 0)
	if err != nil {
		return nil, fmt.Errorf("rankstore: transitions_from: %w", err)
	}
	if len(members) == 0 {
		return nil, nil
	}

	var sum float64
	for _, m := range members {
		sum += m.Score
	}

	out := make([]TransitionTo, 0, len(members))
	for _, m := range members {
		avg, err := s.avgTransitionSeconds(ctx, project, path, m.Member)
		if err != nil {
			return nil, err
		}
		out = append(out, TransitionTo{
			Path:       m.Member,
			Signal:     TransitionSignal(m.Score, sum),
			AvgSeconds: avg,
		})
	}
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

func (s *Store) avgTransitionSeconds(ctx context.Context, project, from, to string) (float64, error) {
	fields, err := s.hash.HGetAll(ctx, transTimingKey(project, from, to))
	if err != nil {
		return 0, fmt.Errorf("rankstore: transition timing lookup: %w", err)
	}
	count := parseFieldFloat(fields["count"])
	if count <= 0 {
		return 0, nil
	}
	sum := parseFieldFloat(fields["sum_seconds"])
	return sum / count, nil
}

func parseFieldFloat(s string) float64 {
	var v float64
	_, _ = fmt.Sscanf(s, "%g", &v)
	return v
}

// TopComposite scores candidate paths gathered from recency, frequency, and
// the given tags under weights, returning the top-k by composite score.
func (s *Store) TopComposite(ctx context.Context, project string, tags []string, weights Weights, k int, now time.Time) ([]ScoredPath, error) {
	candidates, tagScores, maxTagScore, err := s.gatherCandidates(ctx, project, tags)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	out := make([]ScoredPath, 0, len(candidates))
	for path := range candidates {
		lastAccess, ok, err := s.db.ZScore(ctx, recencyKey(project), path)
		if err != nil {
			return nil, fmt.Errorf("rankstore: top_composite recency: %w", err)
		}
		var recencyTime time.Time
		if ok {
			recencyTime = time.Unix(int64(lastAccess), 0)
		}

		freqCount, _, err := s.db.ZScore(ctx, frequencyKey(project), path)
		if err != nil {
			return nil, fmt.Errorf("rankstore: top_composite frequency: %w", err)
		}

		sig := Signals{
			Recency:   RecencySignal(recencyTime, now),
			Frequency: FrequencySignal(freqCount),
			Tag:       TagSignal(tagScores[path], maxTagScore),
		}
		score := weights.Recency*sig.Recency + weights.Frequency*sig.Frequency + weights.Tag*sig.Tag
		out = append(out, ScoredPath{Path: path, Score: score, Signals: sig})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Path < out[j].Path
	})
	if k > 0 && len(out) > k {
		out = out[:k]
	}
	return out, nil
}

// ScoreCandidates scores an explicit candidate set (as opposed to
// TopComposite's self-gathered pool) under weights, returning every
// candidate's recency/frequency/tag signals unsorted. Used by the Prediction
// Engine, whose candidate pool additionally includes transition
// destinations TopComposite knows nothing about.
func (s *Store) ScoreCandidates(ctx context.Context, project string, candidates []string, tags []string, weights Weights, now time.Time) ([]ScoredPath, error) {
	tagScores, maxTagScore, err := s.tagScores(ctx, project, tags, candidates)
	if err != nil {
		return nil, err
	}

	out := make([]ScoredPath, 0, len(candidates))
	for _, path := range candidates {
		lastAccess, ok, err := s.db.ZScore(ctx, recencyKey(project), path)
		if err != nil {
			return nil, fmt.Errorf("rankstore: score_candidates recency: %w", err)
		}
		var recencyTime time.Time
		if ok {
			recencyTime = time.Unix(int64(lastAccess), 0)
		}
		freqCount, _, err := s.db.ZScore(ctx, frequencyKey(project), path)
		if err != nil {
			return nil, fmt.Errorf("rankstore: score_candidates frequency: %w", err)
		}

		sig := Signals{
			Recency:   RecencySignal(recencyTime, now),
			Frequency: FrequencySignal(freqCount),
			Tag:       TagSignal(tagScores[path], maxTagScore),
		}
		score := weights.Recency*sig.Recency + weights.Frequency*sig.Frequency + weights.Tag*sig.Tag
		out = append(out, ScoredPath{Path: path, Score: score, Signals: sig})
	}
	return out, nil
}

// tagScores returns, for each candidate, its summed tag score across tags,
// and the maximum such sum across the whole candidate set.
func (s *Store) tagScores(ctx context.Context, project string, tags, candidates []string) (map[string]float64, float64, error) {
	tagScores := make(map[string]float64)
	for _, tag := range tags {
		members, err := s.db.ZRevRangeWithScores(ctx, tagKey(project, tag), 0)
		if err != nil {
			return nil, 0, fmt.Errorf("rankstore: tag_scores %s: %w", tag, err)
		}
		scores := make(map[string]float64, len(members))
		for _, m := range members {
			scores[m.Member] = m.Score
		}
		for _, c := range candidates {
			tagScores[c] += scores[c]
		}
	}
	var maxTagScore float64
	for _, v := range tagScores {
		if v > maxTagScore {
			maxTagScore = v
		}
	}
	return tagScores, maxTagScore, nil
}

// gatherCandidates unions recency, frequency, and per-tag candidate paths
// and returns each path's combined tag score (summed across the given tags)
// plus the maximum combined tag score in the set, for TagSignal normalization.
func (s *Store) gatherCandidates(ctx context.Context, project string, tags []string) (map[string]struct{}, map[string]float64, float64, error) {
	candidates := make(map[string]struct{})

	recents, err := s.db.ZRevRangeWithScores(ctx, recencyKey(project), candidatePoolSize)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("rankstore: gather recency: %w", err)
	}
	for _, m := range recents {
		candidates[m.Member] = struct{}{}
	}

	frequent, err := s.db.ZRevRangeWithScores(ctx, frequencyKey(project), candidatePoolSize)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("rankstore: gather frequency: %w", err)
	}
	for _, m := range frequent {
		candidates[m.Member] = struct{}{}
	}

	tagScores := make(map[string]float64)
	for _, tag := range tags {
		members, err := s.db.ZRevRangeWithScores(ctx, tagKey(project, tag), candidatePoolSize)
		if err != nil {
			return nil, nil, 0, fmt.Errorf("rankstore: gather tag %s: %w", tag, err)
		}
		for _, m := range members {
			candidates[m.Member] = struct{}{}
			tagScores[m.Member] += m.Score
		}
	}

	var maxTagScore float64
	for _, v := range tagScores {
		if v > maxTagScore {
			maxTagScore = v
		}
	}
	return candidates, tagScores, maxTagScore, nil
}
