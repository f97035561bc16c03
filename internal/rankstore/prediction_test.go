package rankstore

import (
	"context"
	"testing"
	"time"
)

func TestLogAndResolvePrediction_RoundTrip(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := PredictionRecord{
		ID:          "pred-1",
		Project:     "p1",
		Session:     "s1",
		Fingerprint: "keyword|list",
		Arm:         2,
		Candidates:  []string{"a.go", "b.go"},
		CreatedAt:   now,
	}
	if err := s.LogPrediction(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.ResolvePrediction(ctx, "pred-1", true, now.Add(time.Minute)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolved, err := s.ResolvedSince(ctx, "p1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 || !resolved[0].Hit {
		t.Fatalf("expected one resolved hit, got %+v", resolved)
	}
}

func TestResolvePrediction_NoopWhenAlreadyResolved(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := PredictionRecord{ID: "pred-1", Project: "p1", Session: "s1", CreatedAt: now}
	if err := s.LogPrediction(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ResolvePrediction(ctx, "pred-1", true, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.ResolvePrediction(ctx, "pred-1", false, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	resolved, err := s.ResolvedSince(ctx, "p1", now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 || !resolved[0].Hit {
		t.Errorf("expected the first resolution (hit) to stick, got %+v", resolved)
	}
}

func TestCheckSessionHit_ResolvesFirstMatchOnly(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := PredictionRecord{
		ID: "pred-1", Project: "p1", Session: "s1",
		Candidates: []string{"a.go", "b.go"}, CreatedAt: now,
	}
	if err := s.LogPrediction(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	id, ok, err := s.CheckSessionHit(ctx, "p1", "s1", "a.go", now.Add(time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !ok || id != "pred-1" {
		t.Fatalf("expected hit against pred-1, got id=%q ok=%v", id, ok)
	}

	// Second access to a different candidate of the same (now resolved)
	// prediction must not re-resolve it.
	id2, ok2, err := s.CheckSessionHit(ctx, "p1", "s1", "b.go", now.Add(2*time.Second))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok2 {
		t.Errorf("expected no further hit once prediction is resolved, got id=%q", id2)
	}
}

func TestFinalizeStale_ResolvesOldUnresolvedAsMiss(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()
	old := now.Add(-10 * time.Minute)

	rec := PredictionRecord{ID: "pred-1", Project: "p1", Session: "s1", CreatedAt: old}
	if err := s.LogPrediction(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := s.FinalizeStale(ctx, []string{"p1"}, now, 5*time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 prediction finalized, got %d", count)
	}

	resolved, err := s.ResolvedSince(ctx, "p1", old.Add(-time.Minute))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(resolved) != 1 || resolved[0].Hit {
		t.Fatalf("expected a resolved miss, got %+v", resolved)
	}
}

func TestFinalizeStale_LeavesFreshPredictionsAlone(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	rec := PredictionRecord{ID: "pred-1", Project: "p1", Session: "s1", CreatedAt: now}
	if err := s.LogPrediction(ctx, rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	count, err := s.FinalizeStale(ctx, []string{"p1"}, now, 5*time.Minute, time.Minute)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if count != 0 {
		t.Errorf("expected fresh prediction left alone, got %d finalized", count)
	}
}
