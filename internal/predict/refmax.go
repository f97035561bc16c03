package predict

import (
	"context"
	"encoding/json"
	"math"
	"time"
)

// refMaxHalfLife governs how quickly reference_max decays back down when
// recent scores fall, so a single historically high-scoring prediction does
// not permanently depress confidence for every later one.
const refMaxHalfLife = 6 * time.Hour

// referenceMax tracks, per project, an exponentially-decayed running maximum
// composite score, used as the denominator of confidence in spec.md §4.3
// step 7.
type referenceMax struct {
	store kvStore
}

func newReferenceMax(store kvStore) *referenceMax {
	return &referenceMax{store: store}
}

type refMaxState struct {
	Value float64   `json:"value"`
	At    time.Time `json:"at"`
}

func refMaxKey(project string) string {
	return "predict:refmax:" + project
}

// update decays the stored reference_max to now, folds in observed, and
// persists the result; it returns the value to use as this call's
// denominator (i.e., including the new observation).
func (r *referenceMax) update(ctx context.Context, project string, observed float64, now time.Time) float64 {
	raw, err := r.store.Get(ctx, refMaxKey(project))
	var state refMaxState
	if err == nil && len(raw) > 0 {
		_ = json.Unmarshal(raw, &state)
	}

	decayed := state.Value
	if !state.At.IsZero() {
		elapsed := now.Sub(state.At).Seconds()
		decayed *= math.Exp(-math.Ln2 * elapsed / refMaxHalfLife.Seconds())
	}

	next := decayed
	if observed > next {
		next = observed
	}
	if next <= 0 {
		return 0
	}

	out, err := json.Marshal(refMaxState{Value: next, At: now})
	if err == nil {
		_ = r.store.Set(ctx, refMaxKey(project), out)
	}
	return next
}
