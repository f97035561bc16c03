package rankstore

import (
	"context"
	"fmt"
	"strconv"
)

// ArmPosterior is one tuner arm's Beta(alpha, beta) posterior.
type ArmPosterior struct {
	Alpha float64
	Beta  float64
}

// ArmState returns the posterior of every arm in [0, numArms), initializing
// any arm never seen before to Beta(1,1).
func (s *Store) ArmState(ctx context.Context, numArms int) ([]ArmPosterior, error) {
	out := make([]ArmPosterior, numArms)
	for k := 0; k < numArms; k++ {
		p, err := s.armPosterior(ctx, k)
		if err != nil {
			return nil, err
		}
		out[k] = p
	}
	return out, nil
}

func (s *Store) armPosterior(ctx context.Context, k int) (ArmPosterior, error) {
	fields, err := s.hash.HGetAll(ctx, tunerArmKey(k))
	if err != nil {
		return ArmPosterior{}, fmt.Errorf("rankstore: arm_state %d: %w", k, err)
	}
	if len(fields) == 0 {
		return ArmPosterior{Alpha: 1, Beta: 1}, nil
	}
	return ArmPosterior{
		Alpha: parseFieldFloat(fields["alpha"]),
		Beta:  parseFieldFloat(fields["beta"]),
	}, nil
}

// UpdateArm applies one Bernoulli observation to arm k: alpha+=1 on hit,
// beta+=1 on miss, capped at overflowCap without changing the ratio between
// the two ("Overflow of alpha or beta: cap at a large value without
// changing the ratio" per spec.md §4.4 failure modes). Returns the updated
// posterior.
func (s *Store) UpdateArm(ctx context.Context, k int, hit bool, overflowCap float64) (ArmPosterior, error) {
	p, err := s.armPosterior(ctx, k)
	if err != nil {
		return ArmPosterior{}, err
	}
	if hit {
		p.Alpha++
	} else {
		p.Beta++
	}
	if overflowCap > 0 && (p.Alpha > overflowCap || p.Beta > overflowCap) {
		scale := overflowCap / max(p.Alpha, p.Beta)
		p.Alpha *= scale
		p.Beta *= scale
	}
	if err := s.hash.HSet(ctx, tunerArmKey(k), map[string]string{
		"alpha": strconv.FormatFloat(p.Alpha, 'g', -1, 64),
		"beta":  strconv.FormatFloat(p.Beta, 'g', -1, 64),
	}); err != nil {
		return ArmPosterior{}, fmt.Errorf("rankstore: update_arm %d: %w", k, err)
	}
	return p, nil
}

// ResetArm resets a single arm's posterior to Beta(1,1), used when corrupt
// state is detected for that arm only (per spec.md §4.4 failure modes).
func (s *Store) ResetArm(ctx context.Context, k int) error {
	return s.hash.HSet(ctx, tunerArmKey(k), map[string]string{"alpha": "1", "beta": "1"})
}

// ResetArms resets every arm in [0, numArms) to Beta(1,1).
func (s *Store) ResetArms(ctx context.Context, numArms int) error {
	for k := 0; k < numArms; k++ {
		if err := s.ResetArm(ctx, k); err != nil {
			return fmt.Errorf("rankstore: reset_arms %d: %w", k, err)
		}
	}
	return nil
}
