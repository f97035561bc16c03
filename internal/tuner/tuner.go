// Package tuner implements the Online Weight Tuner: an 8-armed Thompson
// sampling bandit over fixed (w_rec, w_freq, w_tag) weight configurations,
// backed by Beta(alpha, beta) posteriors persisted in the Ranking Store.
package tuner

import (
	"context"
	"fmt"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devintel/internal/metrics"
	"github.com/kailas-cloud/devintel/internal/rankstore"
)

// Arm is one fixed weight configuration, per spec.md §4.4.
type Arm struct {
	Name    string
	Weights rankstore.Weights
}

// Arms is the fixed 8-arm enumeration. Index is the arm's k.
var Arms = []Arm{
	{Name: "recency-heavy", Weights: rankstore.Weights{Recency: 0.50, Frequency: 0.30, Tag: 0.20}},
	{Name: "balanced-rf", Weights: rankstore.Weights{Recency: 0.40, Frequency: 0.40, Tag: 0.20}},
	{Name: "default", Weights: rankstore.Weights{Recency: 0.40, Frequency: 0.30, Tag: 0.30}},
	{Name: "frequency-heavy", Weights: rankstore.Weights{Recency: 0.30, Frequency: 0.40, Tag: 0.30}},
	{Name: "tag-heavy", Weights: rankstore.Weights{Recency: 0.30, Frequency: 0.30, Tag: 0.40}},
	{Name: "low-recency", Weights: rankstore.Weights{Recency: 0.20, Frequency: 0.40, Tag: 0.40}},
	{Name: "high-rec-low-freq", Weights: rankstore.Weights{Recency: 0.50, Frequency: 0.20, Tag: 0.30}},
	{Name: "equal", Weights: rankstore.Weights{Recency: 0.33, Frequency: 0.33, Tag: 0.34}},
}

// keyedStore is the subset of rankstore.Store's surface the Tuner needs.
type keyedStore interface {
	ArmState(ctx context.Context, numArms int) ([]rankstore.ArmPosterior, error)
	UpdateArm(ctx context.Context, k int, hit bool, overflowCap float64) (rankstore.ArmPosterior, error)
	ResetArm(ctx context.Context, k int) error
	ResetArms(ctx context.Context, numArms int) error
}

// Tuner selects and updates Thompson-sampling arms.
type Tuner struct {
	store       keyedStore
	log         *zap.Logger
	overflowCap float64
}

// New creates a Tuner backed by store, with overflowCap bounding alpha/beta
// per spec.md §4.4 ("cap at a large value, e.g. 10^6").
func New(store keyedStore, overflowCap float64, log *zap.Logger) *Tuner {
	return &Tuner{store: store, log: log, overflowCap: overflowCap}
}

// Selection is the outcome of SelectArm: the chosen arm's index, name, and
// weights, plus the sampled posterior draws for every arm (for reporting).
type Selection struct {
	Arm     int
	Name    string
	Weights rankstore.Weights
	Draws   []float64
}

// SelectArm draws theta_k ~ Beta(alpha_k, beta_k) for every arm and returns
// the argmax. A corrupt posterior for a single arm (NaN/Inf draw) is reset
// to Beta(1,1) and logged rather than failing the whole selection.
func (t *Tuner) SelectArm(ctx context.Context) (Selection, error) {
	posteriors, err := t.store.ArmState(ctx, len(Arms))
	if err != nil {
		return Selection{}, fmt.Errorf("tuner: select_arm: %w", err)
	}

	draws := make([]float64, len(Arms))
	best := 0
	for k, p := range posteriors {
		theta := sampleBeta(p.Alpha, p.Beta)
		if math.IsNaN(theta) || math.IsInf(theta, 0) {
			t.log.Warn("tuner: corrupt arm posterior, resetting", zap.Int("arm", k))
			if rerr := t.store.ResetArm(ctx, k); rerr != nil {
				return Selection{}, fmt.Errorf("tuner: reset corrupt arm %d: %w", k, rerr)
			}
			theta = sampleBeta(1, 1)
		}
		draws[k] = theta
		if theta > draws[best] {
			best = k
		}
	}

	metrics.TunerArmSelectionsTotal.WithLabelValues(Arms[best].Name).Inc()
	return Selection{Arm: best, Name: Arms[best].Name, Weights: Arms[best].Weights, Draws: draws}, nil
}

// UpdateArm applies one observed hit/miss to arm k's posterior.
func (t *Tuner) UpdateArm(ctx context.Context, k int, hit bool) error {
	if k < 0 || k >= len(Arms) {
		return fmt.Errorf("tuner: update_arm: arm %d out of range", k)
	}
	if _, err := t.store.UpdateArm(ctx, k, hit, t.overflowCap); err != nil {
		return fmt.Errorf("tuner: update_arm %d: %w", k, err)
	}
	return nil
}

// ArmStat is one arm's full reporting view: posterior, exploitation mean,
// and the weights it applies.
type ArmStat struct {
	Arm     int               `json:"arm"`
	Name    string            `json:"name"`
	Weights rankstore.Weights `json:"weights"`
	Alpha   float64           `json:"alpha"`
	Beta    float64           `json:"beta"`
	Mean    float64           `json:"mean"`
}

// Stats returns every arm's full posterior and posterior mean.
func (t *Tuner) Stats(ctx context.Context) ([]ArmStat, error) {
	posteriors, err := t.store.ArmState(ctx, len(Arms))
	if err != nil {
		return nil, fmt.Errorf("tuner: stats: %w", err)
	}
	out := make([]ArmStat, len(Arms))
	for k, p := range posteriors {
		out[k] = ArmStat{
			Arm:     k,
			Name:    Arms[k].Name,
			Weights: Arms[k].Weights,
			Alpha:   p.Alpha,
			Beta:    p.Beta,
			Mean:    p.Alpha / (p.Alpha + p.Beta),
		}
	}
	return out, nil
}

// BestArm returns the arm with the highest posterior mean alpha/(alpha+beta)
// -- the exploitation view used for reporting, as distinct from SelectArm's
// exploratory sampling.
func (t *Tuner) BestArm(ctx context.Context) (ArmStat, error) {
	stats, err := t.Stats(ctx)
	if err != nil {
		return ArmStat{}, err
	}
	best := stats[0]
	for _, s := range stats[1:] {
		if s.Mean > best.Mean {
			best = s
		}
	}
	return best, nil
}

// Reset resets every arm to Beta(1,1).
func (t *Tuner) Reset(ctx context.Context) error {
	if err := t.store.ResetArms(ctx, len(Arms)); err != nil {
		return fmt.Errorf("tuner: reset: %w", err)
	}
	return nil
}

// sampleBeta draws one Beta(alpha, beta) sample by sampling two independent
// Gammas (via Marsaglia-Tsang, the standard rejection-sampling method) and
// returning X/(X+Y). No example repo or ecosystem library in the retrieval
// pack provides Beta-distribution sampling, so this is built on
// math/rand -- the one standard-library component in this package.
func sampleBeta(alpha, beta float64) float64 {
	x := sampleGamma(alpha)
	y := sampleGamma(beta)
	if x+y == 0 {
		return 0.5
	}
	return x / (x + y)
}

// sampleGamma draws one Gamma(shape, 1) sample via Marsaglia-Tsang. For
// shape < 1 it boosts the shape by 1 and corrects with a uniform draw, the
// standard extension of the method to the sub-1 regime.
func sampleGamma(shape float64) float64 {
	if shape < 1 {
		u := rand.Float64()
		return sampleGamma(shape+1) * math.Pow(u, 1/shape)
	}

	d := shape - 1.0/3.0
	c := 1 / math.Sqrt(9*d)
	for {
		var x, v float64
		for {
			x = standardNormal()
			v = 1 + c*x
			if v > 0 {
				break
			}
		}
		v = v * v * v
		u := rand.Float64()
		if u < 1-0.0331*x*x*x*x {
			return d * v
		}
		if math.Log(u) < 0.5*x*x+d*(1-v+math.Log(v)) {
			return d * v
		}
	}
}

// standardNormal draws one N(0,1) sample via the Box-Muller transform,
// built directly on rand.Float64() rather than on rand.NormFloat64.
func standardNormal() float64 {
	u1 := rand.Float64()
	for u1 == 0 {
		u1 = rand.Float64()
	}
	u2 := rand.Float64()
	return math.Sqrt(-2*math.Log(u1)) * math.Cos(2*math.Pi*u2)
}
