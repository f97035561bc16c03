package rankstore

import (
	"context"
	"testing"
	"time"
)

func TestApplyDecay_HalvesRecencyAndFrequency(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	now := time.Now()

	if err := s.RecordAccess(ctx, "p1", "a.go", nil, now); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.RecordAccess(ctx, "p1", "a.go", nil, now.Add(time.Second)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	before := RecencySignal(now, now)

	recencyDecayed, freqDecayed, err := s.ApplyDecay(ctx, "p1", now)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if recencyDecayed != 1 || freqDecayed != 1 {
		t.Fatalf("expected 1 path decayed per signal, got recency=%d freq=%d", recencyDecayed, freqDecayed)
	}

	score, ok, err := s.db.ZScore(ctx, recencyKey("p1"), "a.go")
	if err != nil || !ok {
		t.Fatalf("expected score present, err=%v ok=%v", err, ok)
	}
	after := RecencySignal(time.Unix(int64(score), 0), now)
	if after >= before {
		t.Errorf("expected decayed recency signal to drop, before=%v after=%v", before, after)
	}

	freq, ok, err := s.db.ZScore(ctx, frequencyKey("p1"), "a.go")
	if err != nil || !ok {
		t.Fatalf("expected frequency present, err=%v ok=%v", err, ok)
	}
	if freq != 1 {
		t.Errorf("expected frequency halved from 2 to 1, got %v", freq)
	}
}
