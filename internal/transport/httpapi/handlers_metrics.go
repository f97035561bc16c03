package httpapi

import (
	"context"
	"net/http"
	"time"
)

// hitAt5Target is the aspirational hit@5 rate surfaced as "target" in
// GET /metrics, against which "gap" is reported. Not a spec invariant --
// purely a reporting reference point for a human watching the daemon.
const hitAt5Target = 0.60

// trendDeadBand is the minimum absolute change in hit@5 between the two
// halves of the rolling window before a change is reported as a trend
// rather than "stable", per spec.md §4.3's "small dead-band" clause.
const trendDeadBand = 0.05

// metricsResponse is the body of GET /metrics, per spec.md §4.3 metrics and
// §6: "hit_at_5 + target + gap + trend + rolling + tuner + legacy
// cumulative".
type metricsResponse struct {
	HitAt5  float64      `json:"hit_at_5"`
	Target  float64      `json:"target"`
	Gap     float64      `json:"gap"`
	Trend   string       `json:"trend"`
	Rolling rollingStats `json:"rolling"`
	Tuner   []tunerArm   `json:"tuner"`
	Legacy  legacyStats  `json:"legacy"`
}

// legacyStats is the cumulative (non-windowed) hit/miss tally over every
// prediction record the store still retains, named "legacy" because it
// mirrors the original's cumulative counters rather than the rolling-window
// view the rest of this endpoint reports.
type legacyStats struct {
	Hits   int `json:"hits"`
	Misses int `json:"misses"`
}

// Metrics handles GET /metrics: the unified JSON reporting surface, distinct
// from the Prometheus scrape endpoint (mounted separately by the
// composition root), per spec.md §6.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	project := s.projectParam(r)
	now := time.Now()

	counts, err := s.rank.CountWindow(ctx, project, now.Add(-rollingWindow))
	if err != nil {
		s.writeQueryError(w, r, "metrics", err)
		return
	}
	hitAt5 := 0.0
	if counts.Resolved > 0 {
		hitAt5 = float64(counts.HitAt5) / float64(counts.Resolved)
	}

	trend, err := s.computeTrend(ctx, project, now)
	if err != nil {
		s.writeQueryError(w, r, "metrics", err)
		return
	}

	stats, err := s.tuner.Stats(ctx)
	if err != nil {
		s.writeQueryError(w, r, "metrics", err)
		return
	}

	allTime, err := s.rank.CountWindow(ctx, project, time.Time{})
	if err != nil {
		s.writeQueryError(w, r, "metrics", err)
		return
	}

	writeJSON(w, http.StatusOK, metricsResponse{
		HitAt5: hitAt5,
		Target: hitAt5Target,
		Gap:    hitAt5Target - hitAt5,
		Trend:  trend,
		Rolling: rollingStats{
			WindowHours: int(rollingWindow.Hours()),
			Total:       counts.Total,
			Evaluated:   counts.Resolved,
			Pending:     counts.Pending,
			Hits:        counts.Hits,
			HitAt5:      counts.HitAt5,
		},
		Tuner:  toTunerArms(stats),
		Legacy: legacyStats{Hits: allTime.Hits, Misses: allTime.Resolved - allTime.Hits},
	})
}

// computeTrend compares the hit@5 rate of the latest half of the rolling
// window against the prior half, per spec.md §4.3's trend classification:
// improving, declining, stable, or insufficient_data when either half has
// too few resolved predictions to be meaningful.
func (s *Server) computeTrend(ctx context.Context, project string, now time.Time) (string, error) {
	half := rollingWindow / 2
	resolved, err := s.rank.ResolvedSince(ctx, project, now.Add(-rollingWindow))
	if err != nil {
		return "", err
	}

	const minSampleSize = 5
	var olderTotal, olderHitAt5, newerTotal, newerHitAt5 int
	cutoff := now.Add(-half)
	for _, rec := range resolved {
		if !rec.Resolved {
			continue
		}
		isHitAt5 := rec.Hit && rec.HitRank >= 0 && rec.HitRank < 5
		if rec.CreatedAt.Before(cutoff) {
			olderTotal++
			if isHitAt5 {
				olderHitAt5++
			}
		} else {
			newerTotal++
			if isHitAt5 {
				newerHitAt5++
			}
		}
	}

	if olderTotal < minSampleSize || newerTotal < minSampleSize {
		return "insufficient_data", nil
	}

	olderRate := float64(olderHitAt5) / float64(olderTotal)
	newerRate := float64(newerHitAt5) / float64(newerTotal)
	delta := newerRate - olderRate

	switch {
	case delta > trendDeadBand:
		return "improving", nil
	case delta < -trendDeadBand:
		return "declining", nil
	default:
		return "stable", nil
	}
}
