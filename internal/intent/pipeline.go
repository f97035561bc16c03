package intent

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/devintel/internal/logger"
	"github.com/kailas-cloud/devintel/internal/metrics"
	"github.com/kailas-cloud/devintel/internal/patterns"
	"github.com/kailas-cloud/devintel/internal/predict"
)

// queueCapacity bounds the in-process channel feeding intent workers, per
// spec.md §9's "bounded in-process channel" design note.
const queueCapacity = 4096

// workerCount is the number of goroutines draining the event queue.
const workerCount = 4

// rankStore is the subset of rankstore.Store's surface the pipeline needs.
type rankStore interface {
	RecordAccess(ctx context.Context, project, path string, tags []string, now time.Time) error
	RecordTransition(ctx context.Context, project, from, to string, now time.Time) error
	RecordSessionAccess(ctx context.Context, project, session, path string, now time.Time) error
	LastSessionPath(ctx context.Context, project, session, excludePath string) (string, bool, error)
	RecordStatus(ctx context.Context, project, tool string, files, tags []string, now time.Time) error
}

// predictor is the subset of predict.Engine's surface the pipeline needs.
type predictor interface {
	Predict(ctx context.Context, req predict.Request) (predict.Result, error)
	ResolveAccess(ctx context.Context, project, session, path string, now time.Time) error
}

// Pipeline is the Intent Capture Pipeline: a bounded in-process queue feeding
// a fixed worker pool, so the host-facing HTTP handler can enqueue and return
// immediately without ever blocking on Ranking Store IO.
type Pipeline struct {
	rank      rankStore
	predictor predictor
	log       *zap.Logger
	queue     chan Event
	wg        sync.WaitGroup
}

// New creates a Pipeline and starts its worker pool. Call Stop to drain and
// shut it down.
func New(rank rankStore, predictor predictor, log *zap.Logger) *Pipeline {
	p := &Pipeline{
		rank:      rank,
		predictor: predictor,
		log:       log,
		queue:     make(chan Event, queueCapacity),
	}
	p.wg.Add(workerCount)
	for i := 0; i < workerCount; i++ {
		go p.worker()
	}
	return p
}

// Stop closes the queue and waits for in-flight events to drain.
func (p *Pipeline) Stop() {
	close(p.queue)
	p.wg.Wait()
}

// Enqueue submits an event for asynchronous processing. It never blocks: if
// the queue is full, the oldest unprocessed event is dropped (and counted)
// to make room, per spec.md §5's backpressure clause. Enqueue itself never
// fails the caller -- processing failures are Benign per spec.md §7 and are
// only logged.
func (p *Pipeline) Enqueue(e Event) {
	select {
	case p.queue <- e:
		return
	default:
	}

	select {
	case dropped := <-p.queue:
		metrics.IntentEventsDroppedTotal.WithLabelValues(string(dropped.Kind)).Inc()
	default:
	}
	select {
	case p.queue <- e:
	default:
		metrics.IntentEventsDroppedTotal.WithLabelValues(string(e.Kind)).Inc()
	}
}

func (p *Pipeline) worker() {
	defer p.wg.Done()
	for e := range p.queue {
		p.process(e)
	}
}

// process dispatches one event to its handler, logging (never propagating)
// any failure, per spec.md §4.5's fire-and-forget contract.
func (p *Pipeline) process(e Event) {
	ctx := logger.ContextWithLogger(context.Background(), p.log)
	now := timestampOrNow(e.Timestamp)

	var err error
	switch {
	case e.isSessionStart():
		err = p.handleSessionStart(ctx, e, now)
	case e.isPromptSubmit():
		err = p.handlePromptSubmit(ctx, e, now)
	default:
		err = p.handleToolUsePost(ctx, e, now)
	}
	if err != nil {
		p.log.Warn("intent: event processing failed",
			zap.String("kind", string(e.Kind)),
			zap.String("session_id", e.SessionID),
			zap.Error(err),
		)
	}
}

func timestampOrNow(epochMs int64) time.Time {
	if epochMs <= 0 {
		return time.Now()
	}
	return time.UnixMilli(epochMs)
}

func (p *Pipeline) handleSessionStart(ctx context.Context, e Event, now time.Time) error {
	// Session sequence keys are created lazily by RecordSessionAccess on
	// first access; session-start has nothing to write until then, so it is
	// a deliberate no-op beyond logging receipt.
	p.log.Debug("intent: session start", zap.String("session_id", e.SessionID), zap.String("project", e.Project))
	return nil
}

func (p *Pipeline) handlePromptSubmit(ctx context.Context, e Event, now time.Time) error {
	if err := p.rank.RecordStatus(ctx, e.Project, "Prompt", nil, patterns.MatchTags(e.Prompt), now); err != nil {
		p.log.Warn("intent: record status failed", zap.Error(err))
	}
	_, err := p.predictor.Predict(ctx, predict.Request{
		Project: e.Project,
		Session: e.SessionID,
		Intent:  e.Prompt,
	})
	return err
}

func (p *Pipeline) handleToolUsePost(ctx context.Context, e Event, now time.Time) error {
	paths := e.paths()
	if len(paths) == 0 {
		return nil
	}

	tagText := e.Prompt
	for _, path := range paths {
		tagText += " " + path
	}
	tags := patterns.MatchTags(tagText)
	if synth := e.synthesizedTag(); synth != "" {
		tags = append(tags, synth)
	}

	if err := p.rank.RecordStatus(ctx, e.Project, string(e.tool()), paths, tags, now); err != nil {
		p.log.Warn("intent: record status failed", zap.Error(err))
	}

	for _, path := range paths {
		if err := p.rank.RecordAccess(ctx, e.Project, path, tags, now); err != nil {
			return err
		}
		if err := p.predictor.ResolveAccess(ctx, e.Project, e.SessionID, path, now); err != nil {
			return err
		}

		if from, ok, err := p.rank.LastSessionPath(ctx, e.Project, e.SessionID, path); err == nil && ok {
			if err := p.rank.RecordTransition(ctx, e.Project, from, path, now); err != nil {
				return err
			}
		}
		if err := p.rank.RecordSessionAccess(ctx, e.Project, e.SessionID, path, now); err != nil {
			return err
		}
	}
	return nil
}
