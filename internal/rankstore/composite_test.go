package rankstore

import (
	"context"
	"math"
	"testing"
	"time"
)

func TestRecencySignal_HalfLifeDecay(t *testing.T) {
	now := time.Now()
	full := RecencySignal(now, now)
	if math.Abs(full-1) > 1e-9 {
		t.Errorf("expected signal 1 at t=0, got %v", full)
	}
	half := RecencySignal(now.Add(-time.Hour), now)
	if math.Abs(half-0.5) > 1e-6 {
		t.Errorf("expected signal ~0.5 after one half-life, got %v", half)
	}
}

func TestFrequencySignal_LogScale(t *testing.T) {
	if got := FrequencySignal(0); got != 0 {
		t.Errorf("expected 0 for zero count, got %v", got)
	}
	if got := FrequencySignal(100); got > 1 || got <= 0 {
		t.Errorf("expected signal in (0,1] for C_max count, got %v", got)
	}
}

func TestTagSignal_NoTagSuppliedIsZero(t *testing.T) {
	if got := TagSignal(5, 0); got != 0 {
		t.Errorf("expected 0 when max tag score is 0, got %v", got)
	}
	if got := TagSignal(5, 10); got != 0.5 {
		t.Errorf("expected 0.5, got %v", got)
	}
}

func TestTopComposite_RanksByWeightedSignals(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.RecordAccess(ctx, "p1", "hot.go", []string{"reading"}, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RecordAccess(ctx, "p1", "cold.go", []string{"reading"}, now.Add(-2*time.Hour)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	results, err := s.TopComposite(ctx, "p1", []string{"reading"}, Weights{Recency: 1, Frequency: 0, Tag: 0}, 10, now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 2 || results[0].Path != "hot.go" {
		t.Fatalf("expected hot.go ranked first under recency weighting, got %+v", results)
	}
}

func TestTopByTag_ReturnsEmptyForUnknownTag(t *testing.T) {
	s := testStore(t)
	results, err := s.TopByTag(context.Background(), "p1", "nonexistent", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 0 {
		t.Errorf("expected empty, got %+v", results)
	}
}
