package intent

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devintel/internal/config"
	"github.com/kailas-cloud/devintel/internal/db/memory"
	"github.com/kailas-cloud/devintel/internal/index"
	"github.com/kailas-cloud/devintel/internal/predict"
	"github.com/kailas-cloud/devintel/internal/rankstore"
	"github.com/kailas-cloud/devintel/internal/tuner"
)

func testPipeline(t *testing.T) (*Pipeline, *rankstore.Store) {
	t.Helper()
	store := memory.New()
	rank := rankstore.New(store, 5*time.Minute, zap.NewNop())
	tn := tuner.New(rank, 1e6, zap.NewNop())
	idx := index.New(index.Config{}, zap.NewNop())
	eng := predict.New(rank, idx, tn, store, config.PredictConfig{
		ConfidenceFloor: 0.1,
		ShowThreshold:   0.2,
		CacheTTLSec:     3600,
		CandidateTopK:   10,
		FinalizeWindow:  300,
		FinalizeGrace:   60,
		TransitionBoost: 0.2,
	}, zap.NewNop())

	p := New(rank, eng, zap.NewNop())
	t.Cleanup(p.Stop)
	return p, rank
}

func waitForCondition(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}

func TestPipeline_ToolUsePostRecordsAccess(t *testing.T) {
	p, rank := testPipeline(t)
	ctx := context.Background()

	p.Enqueue(Event{
		Kind:      Kind("Read"),
		ToolInput: map[string]string{"file_path": "/repo/auth.go"},
		SessionID: "s1",
		Project:   "p1",
		Timestamp: time.Now().UnixMilli(),
	})

	waitForCondition(t, time.Second, func() bool {
		recent, err := rank.TopRecent(ctx, "p1", 5)
		return err == nil && len(recent) > 0
	})
}

func TestEvent_PathExtractionPerTool(t *testing.T) {
	tests := []struct {
		tool  Tool
		input map[string]string
		want  string
	}{
		{ToolRead, map[string]string{"file_path": "/a.go"}, "/a.go"},
		{ToolEdit, map[string]string{"path": "/b.go"}, "/b.go"},
		{ToolGrep, map[string]string{"include": "*.go"}, "*.go"},
		{ToolBash, map[string]string{"command": "ls"}, ""},
	}
	for _, tt := range tests {
		e := Event{Kind: Kind(tt.tool), ToolInput: tt.input}
		got := e.paths()
		if tt.want == "" {
			if len(got) != 0 {
				t.Errorf("%s: expected no paths, got %v", tt.tool, got)
			}
			continue
		}
		if len(got) != 1 || got[0] != tt.want {
			t.Errorf("%s: expected [%s], got %v", tt.tool, tt.want, got)
		}
	}
}

func TestEvent_SynthesizedTagPerTool(t *testing.T) {
	tests := map[Tool]string{
		ToolRead:  "#reading",
		ToolEdit:  "#editing",
		ToolWrite: "#creating",
		ToolGrep:  "#searching",
		ToolBash:  "#running",
	}
	for tool, want := range tests {
		e := Event{Kind: Kind(tool)}
		if got := e.synthesizedTag(); got != want {
			t.Errorf("%s: expected tag %q, got %q", tool, want, got)
		}
	}
}
