package rankstore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// predictionHistoryCap bounds how many prediction ids rolling:preds and a
// session's prediction index retain, so a long-lived project's history
// doesn't grow without bound; it is well beyond any reporting window (24h).
const predictionHistoryCap = 5000

// PredictionRecord is one logged prediction, as stored in pred:{id}.
type PredictionRecord struct {
	ID          string
	Project     string
	Session     string
	Fingerprint string
	Arm         int
	Candidates  []string
	CreatedAt   time.Time
	Resolved    bool
	Hit         bool
	// HitRank is the resolving access's position within Candidates
	// (0-based), or -1 if unresolved, a miss, or recorded before hit-rank
	// tracking was added. Supplemental: used only for the hit_at_5 metric.
	HitRank int
}

// LogPrediction persists rec and indexes it under the project's rolling
// window and the session's own prediction index (for hit/miss attribution).
func (s *Store) LogPrediction(ctx context.Context, rec PredictionRecord) error {
	fields := map[string]string{
		"project":     rec.Project,
		"session":     rec.Session,
		"fingerprint": rec.Fingerprint,
		"arm":         strconv.Itoa(rec.Arm),
		"candidates":  strings.Join(rec.Candidates, "\x1f"),
		"created_at":  strconv.FormatInt(rec.CreatedAt.Unix(), 10),
		"resolved":    "false",
		"hit":         "false",
	}
	if err := s.hash.HSet(ctx, predKey(rec.ID), fields); err != nil {
		return fmt.Errorf("rankstore: log_prediction: %w", err)
	}

	created := float64(rec.CreatedAt.Unix())
	if err := s.db.ZAdd(ctx, rollingPredsKey(rec.Project), created, rec.ID); err != nil {
		return fmt.Errorf("rankstore: log_prediction rolling index: %w", err)
	}
	if err := s.db.ZRemRangeByRankAsc(ctx, rollingPredsKey(rec.Project), predictionHistoryCap); err != nil {
		return fmt.Errorf("rankstore: log_prediction rolling cap: %w", err)
	}

	if rec.Session != "" {
		sessKey := sessionPredsKey(rec.Project, rec.Session)
		if err := s.db.ZAdd(ctx, sessKey, created, rec.ID); err != nil {
			return fmt.Errorf("rankstore: log_prediction session index: %w", err)
		}
		if err := s.db.ZRemRangeByRankAsc(ctx, sessKey, predictionHistoryCap); err != nil {
			return fmt.Errorf("rankstore: log_prediction session cap: %w", err)
		}
	}
	return nil
}

// GetPrediction returns a logged prediction by id. ok is false if it does
// not exist.
func (s *Store) GetPrediction(ctx context.Context, id string) (PredictionRecord, bool, error) {
	fields, err := s.hash.HGetAll(ctx, predKey(id))
	if err != nil {
		return PredictionRecord{}, false, fmt.Errorf("rankstore: get_prediction: %w", err)
	}
	if len(fields) == 0 {
		return PredictionRecord{}, false, nil
	}
	arm, _ := strconv.Atoi(fields["arm"])
	createdAt, _ := strconv.ParseInt(fields["created_at"], 10, 64)
	return PredictionRecord{
		ID:          id,
		Project:     fields["project"],
		Session:     fields["session"],
		Fingerprint: fields["fingerprint"],
		Arm:         arm,
		Candidates:  strings.Split(fields["candidates"], "\x1f"),
		CreatedAt:   time.Unix(createdAt, 0),
		Resolved:    fields["resolved"] == "true",
		Hit:         fields["hit"] == "true",
		HitRank:     hitRankOrDefault(fields["hit_rank"]),
	}, true, nil
}

// RecordHitRank notes the resolving access's position within a prediction's
// candidate list, for the hit_at_5 rolling metric. Additive only: it never
// changes resolved/hit state.
func (s *Store) RecordHitRank(ctx context.Context, id string, rank int) error {
	if err := s.hash.HSet(ctx, predKey(id), map[string]string{"hit_rank": strconv.Itoa(rank)}); err != nil {
		return fmt.Errorf("rankstore: record_hit_rank: %w", err)
	}
	return nil
}

func hitRankOrDefault(v string) int {
	if v == "" {
		return -1
	}
	rank, err := strconv.Atoi(v)
	if err != nil {
		return -1
	}
	return rank
}

// ResolvePrediction marks a prediction resolved. A no-op if already resolved
// ("exactly one resolution per prediction").
func (s *Store) ResolvePrediction(ctx context.Context, id string, hit bool, now time.Time) error {
	fields, err := s.hash.HGetAll(ctx, predKey(id))
	if err != nil {
		return fmt.Errorf("rankstore: resolve_prediction lookup: %w", err)
	}
	if len(fields) == 0 || fields["resolved"] == "true" {
		return nil
	}
	update := map[string]string{
		"resolved":    "true",
		"hit":         strconv.FormatBool(hit),
		"resolved_at": strconv.FormatInt(now.Unix(), 10),
	}
	if err := s.hash.HSet(ctx, predKey(id), update); err != nil {
		return fmt.Errorf("rankstore: resolve_prediction: %w", err)
	}
	return nil
}

// CheckSessionHit looks for the most recent unresolved prediction in session
// that named path and resolves it as a hit. Only the first matching access
// counts, per spec. ok is false if no unresolved prediction named path.
func (s *Store) CheckSessionHit(ctx context.Context, project, session, path string, now time.Time) (id string, ok bool, err error) {
	members, err := s.db.ZRevRangeWithScores(ctx, sessionPredsKey(project, session), predictionHistoryCap)
	if err != nil {
		return "", false, fmt.Errorf("rankstore: check_session_hit: %w", err)
	}

	for _, m := range members {
		fields, err := s.hash.HGetAll(ctx, predKey(m.Member))
		if err != nil {
			return "", false, fmt.Errorf("rankstore: check_session_hit lookup: %w", err)
		}
		if len(fields) == 0 || fields["resolved"] == "true" {
			continue
		}
		if !containsCandidate(fields["candidates"], path) {
			continue
		}
		if err := s.ResolvePrediction(ctx, m.Member, true, now); err != nil {
			return "", false, err
		}
		return m.Member, true, nil
	}
	return "", false, nil
}

func containsCandidate(joined, path string) bool {
	for _, c := range strings.Split(joined, "\x1f") {
		if c == path {
			return true
		}
	}
	return false
}

// FinalizeStale resolves, as a miss, any unresolved prediction across the
// given projects older than window+grace. Returns the number resolved.
func (s *Store) FinalizeStale(ctx context.Context, projects []string, now time.Time, window, grace time.Duration) (int, error) {
	resolved, err := s.FinalizeStaleDetailed(ctx, projects, now, window, grace)
	return len(resolved), err
}

// FinalizeStaleDetailed is FinalizeStale but returns the records it resolved,
// so a caller (the Prediction Engine's finalizer loop) can also update the
// tuner arm posterior for each one's chosen arm.
func (s *Store) FinalizeStaleDetailed(ctx context.Context, projects []string, now time.Time, window, grace time.Duration) ([]PredictionRecord, error) {
	cutoff := now.Add(-(window + grace))
	var resolved []PredictionRecord

	for _, project := range projects {
		members, err := s.db.ZRevRangeWithScores(ctx, rollingPredsKey(project), 0)
		if err != nil {
			return resolved, fmt.Errorf("rankstore: finalize_stale list: %w", err)
		}
		for _, m := range members {
			createdAt := time.Unix(int64(m.Score), 0)
			if createdAt.After(cutoff) {
				continue
			}
			rec, ok, err := s.GetPrediction(ctx, m.Member)
			if err != nil {
				return resolved, fmt.Errorf("rankstore: finalize_stale lookup: %w", err)
			}
			if !ok || rec.Resolved {
				continue
			}
			if err := s.ResolvePrediction(ctx, m.Member, false, now); err != nil {
				return resolved, err
			}
			rec.Project = project
			resolved = append(resolved, rec)
		}
	}
	return resolved, nil
}

// ResolvedSince returns every resolved prediction in project created at or
// after since, for rolling hit-rate and trend computation.
func (s *Store) ResolvedSince(ctx context.Context, project string, since time.Time) ([]PredictionRecord, error) {
	members, err := s.db.ZRevRangeWithScores(ctx, rollingPredsKey(project), 0)
	if err != nil {
		return nil, fmt.Errorf("rankstore: resolved_since list: %w", err)
	}

	out := make([]PredictionRecord, 0, len(members))
	for _, m := range members {
		createdAt := time.Unix(int64(m.Score), 0)
		if createdAt.Before(since) {
			continue
		}
		fields, err := s.hash.HGetAll(ctx, predKey(m.Member))
		if err != nil {
			return nil, fmt.Errorf("rankstore: resolved_since lookup: %w", err)
		}
		if len(fields) == 0 || fields["resolved"] != "true" {
			continue
		}
		arm, _ := strconv.Atoi(fields["arm"])
		out = append(out, PredictionRecord{
			ID:          m.Member,
			Project:     project,
			Session:     fields["session"],
			Fingerprint: fields["fingerprint"],
			Arm:         arm,
			Candidates:  strings.Split(fields["candidates"], "\x1f"),
			CreatedAt:   createdAt,
			Resolved:    true,
			Hit:         fields["hit"] == "true",
			HitRank:     hitRankOrDefault(fields["hit_rank"]),
		})
	}
	return out, nil
}

// WindowCounts is the per-window tally behind the rolling hit-rate metric.
type WindowCounts struct {
	Total    int
	Resolved int
	Pending  int
	Hits     int
	HitAt5   int
}

// CountWindow scans every prediction in project created at or after since
// and tallies totals, resolutions, hits, and hits within the top 5
// candidates, for GET /predict/stats and GET /metrics.
func (s *Store) CountWindow(ctx context.Context, project string, since time.Time) (WindowCounts, error) {
	members, err := s.db.ZRevRangeWithScores(ctx, rollingPredsKey(project), 0)
	if err != nil {
		return WindowCounts{}, fmt.Errorf("rankstore: count_window: %w", err)
	}

	var c WindowCounts
	for _, m := range members {
		createdAt := time.Unix(int64(m.Score), 0)
		if createdAt.Before(since) {
			continue
		}
		fields, err := s.hash.HGetAll(ctx, predKey(m.Member))
		if err != nil {
			return WindowCounts{}, fmt.Errorf("rankstore: count_window lookup: %w", err)
		}
		if len(fields) == 0 {
			continue
		}
		c.Total++
		if fields["resolved"] != "true" {
			c.Pending++
			continue
		}
		c.Resolved++
		if fields["hit"] == "true" {
			c.Hits++
			if rank := hitRankOrDefault(fields["hit_rank"]); rank >= 0 && rank < 5 {
				c.HitAt5++
			}
		}
	}
	return c, nil
}
