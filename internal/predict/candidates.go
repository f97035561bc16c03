package predict

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/devintel/internal/rankstore"
)

// assembleCandidates implements spec.md §4.3 step 4: union top-K by tag,
// top-K transitions from the current-file anchor (if any), and top-K global
// recency as a cold-start fallback.
func (e *Engine) assembleCandidates(ctx context.Context, req Request, tags []string, now time.Time) ([]string, map[string]rankstore.TransitionTo, error) {
	seen := make(map[string]struct{})
	var candidates []string
	add := func(path string) {
		if path == "" {
			return
		}
		if _, ok := seen[path]; ok {
			return
		}
		seen[path] = struct{}{}
		candidates = append(candidates, path)
	}

	k := e.cfg.CandidateTopK
	if k <= 0 {
		k = 10
	}

	for _, tag := range tags {
		members, err := e.rank.TopByTag(ctx, req.Project, tag, k)
		if err != nil {
			return nil, nil, err
		}
		for _, m := range members {
			add(m.Member)
		}
	}

	transitions := make(map[string]rankstore.TransitionTo)
	if req.CurrentFile != "" {
		dests, err := e.rank.TransitionsFrom(ctx, req.Project, req.CurrentFile, k)
		if err != nil {
			return nil, nil, err
		}
		for _, d := range dests {
			add(d.Path)
			transitions[d.Path] = d
		}
	}

	recents, err := e.rank.TopRecent(ctx, req.Project, k)
	if err != nil {
		return nil, nil, err
	}
	for _, m := range recents {
		add(m.Member)
	}

	return candidates, transitions, nil
}

// applyTransitionBoost adds the fixed transition term Tr (weighted by
// transBoost) to every candidate's score that is also a transition
// destination of the current-file anchor, per spec.md §4.3 step 6. Applied
// only when an anchor was supplied; a no-op otherwise.
func applyTransitionBoost(scored []rankstore.ScoredPath, transitions map[string]rankstore.TransitionTo, transBoost float64, haveAnchor bool) {
	if !haveAnchor || len(transitions) == 0 {
		return
	}
	for i := range scored {
		if t, ok := transitions[scored[i].Path]; ok {
			scored[i].Score += transBoost * t.Signal
		}
	}
}

func sortScored(scored []rankstore.ScoredPath) {
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].Score != scored[j].Score {
			return scored[i].Score > scored[j].Score
		}
		return scored[i].Path < scored[j].Path
	})
}

func newPredictionID() string {
	return uuid.NewString()
}
