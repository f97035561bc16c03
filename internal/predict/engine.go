// Package predict implements the Prediction Engine: the pipeline that turns
// an observed intent (a prompt, a keyword set, or a current-file anchor)
// into a small ranked set of candidate paths, with confidence scoring,
// Thompson-sampling arm selection, caching, and hit/miss attribution.
package predict

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/kailas-cloud/devintel/internal/config"
	"github.com/kailas-cloud/devintel/internal/db"
	"github.com/kailas-cloud/devintel/internal/metrics"
	"github.com/kailas-cloud/devintel/internal/patterns"
	"github.com/kailas-cloud/devintel/internal/rankstore"
	"github.com/kailas-cloud/devintel/internal/tuner"
)

// rankStore is the subset of rankstore.Store's surface the engine needs.
type rankStore interface {
	ScoreCandidates(ctx context.Context, project string, candidates, tags []string, weights rankstore.Weights, now time.Time) ([]rankstore.ScoredPath, error)
	TopByTag(ctx context.Context, project, tag string, k int) ([]db.ScoredMember, error)
	TopRecent(ctx context.Context, project string, k int) ([]db.ScoredMember, error)
	TransitionsFrom(ctx context.Context, project, path string, k int) ([]rankstore.TransitionTo, error)
	LogPrediction(ctx context.Context, rec rankstore.PredictionRecord) error
	GetPrediction(ctx context.Context, id string) (rankstore.PredictionRecord, bool, error)
	CheckSessionHit(ctx context.Context, project, session, path string, now time.Time) (string, bool, error)
	RecordHitRank(ctx context.Context, id string, rank int) error
	FinalizeStaleDetailed(ctx context.Context, projects []string, now time.Time, window, grace time.Duration) ([]rankstore.PredictionRecord, error)
	ResolvedSince(ctx context.Context, project string, since time.Time) ([]rankstore.PredictionRecord, error)
	CountWindow(ctx context.Context, project string, since time.Time) (rankstore.WindowCounts, error)
}

// symbolIndex is the subset of index.Index the engine needs for snippets and
// cold-candidate filtering.
type symbolIndex interface {
	Has(path string) bool
	Snippet(path string, n int) (string, bool)
}

// defaultContextSnippetLines is used by Context when the caller didn't
// specify snippet_lines, since /context always shows content.
const defaultContextSnippetLines = 20

// Engine is the Prediction Engine.
type Engine struct {
	rank    rankStore
	index   symbolIndex
	tuner   *tuner.Tuner
	cache   *cache
	refmax  *referenceMax
	cfg     config.PredictConfig
	log     *zap.Logger
	sfGroup singleflight.Group
}

// New creates a Prediction Engine.
func New(rank rankStore, idx symbolIndex, t *tuner.Tuner, store kvStore, cfg config.PredictConfig, log *zap.Logger) *Engine {
	return &Engine{
		rank:   rank,
		index:  idx,
		tuner:  t,
		cache:  newCache(store, time.Duration(cfg.CacheTTLSec)*time.Second),
		refmax: newReferenceMax(store),
		cfg:    cfg,
		log:    log,
	}
}

// Request is the input to Predict, per spec.md §4.3's "Inputs" clause.
type Request struct {
	Project      string
	Session      string
	Intent       string
	Keywords     []string
	CurrentFile  string
	SnippetLines int
}

// Candidate is one ranked file in a Result.
type Candidate struct {
	Path       string  `json:"path"`
	Confidence float64 `json:"confidence"`
	Snippet    string  `json:"snippet,omitempty"`
}

// Result is the outcome of Predict.
type Result struct {
	Files         []Candidate `json:"files"`
	TopConfidence float64     `json:"top_confidence"`
	Cached        bool        `json:"cached"`
	Reason        string      `json:"reason,omitempty"`
	Visible       bool        `json:"-"` // internal: silent predictions still log/resolve but aren't surfaced
	predictionID  string
}

// Predict runs the full pipeline of spec.md §4.3: keyword extraction, tag
// mapping, cache probe, candidate assembly, arm selection, scoring,
// confidence, threshold gate, snippet fetch, logging, and caching.
func (e *Engine) Predict(ctx context.Context, req Request) (Result, error) {
	return e.run(ctx, req, false)
}

// Context runs the same pipeline as Predict but bypasses the confidence
// threshold gate: the CLI-facing /context endpoint always returns whatever
// candidates were assembled, since a human explicitly asked to see them
// rather than having them surfaced unprompted.
func (e *Engine) Context(ctx context.Context, req Request) (Result, error) {
	if req.SnippetLines <= 0 {
		req.SnippetLines = defaultContextSnippetLines
	}
	return e.run(ctx, req, true)
}

func (e *Engine) run(ctx context.Context, req Request, forceVisible bool) (Result, error) {
	now := time.Now()

	keywords := req.Keywords
	if req.Intent != "" {
		keywords = append(append([]string{}, keywords...), patterns.ExtractKeywords(req.Intent)...)
	}
	keywords = dedupe(keywords)

	tagText := req.Intent
	if req.CurrentFile != "" {
		tagText += " " + req.CurrentFile
	}
	tags := patterns.MatchTags(tagText)
	for _, kw := range keywords {
		tags = append(tags, patterns.MatchTags(kw)...)
	}
	tags = dedupe(tags)

	fingerprint := patterns.Fingerprint(keywords)
	// The cache is keyed by forceVisible too: /predict and /context share a
	// fingerprint but must never serve each other's threshold-gated shape.
	cacheFingerprint := fingerprint
	if forceVisible && fingerprint != "" {
		cacheFingerprint = fingerprint + "|ctx"
	}

	if cacheFingerprint != "" {
		if cached, ok := e.cache.get(ctx, req.Project, cacheFingerprint); ok {
			cached.Cached = true
			metrics.PredictionsTotal.WithLabelValues("cached").Inc()
			return cached, nil
		}
	}

	// Concurrent requests sharing a fingerprint compute the prediction once;
	// a request with no keywords (empty fingerprint) never dedupes, since
	// unioning unrelated sessions under one singleflight key would be wrong.
	sfKey := cacheFingerprint
	if sfKey == "" {
		sfKey = newPredictionID()
	}
	v, err, _ := e.sfGroup.Do(req.Project+"|"+sfKey, func() (any, error) {
		return e.compute(ctx, req, tags, fingerprint, cacheFingerprint, forceVisible, now)
	})
	if err != nil {
		return Result{}, err
	}
	return v.(Result), nil
}

// compute runs candidate assembly through logging and caching -- the part of
// Predict that is deduplicated across concurrent identical requests.
func (e *Engine) compute(ctx context.Context, req Request, tags []string, fingerprint, cacheFingerprint string, forceVisible bool, now time.Time) (Result, error) {
	candidates, transitions, err := e.assembleCandidates(ctx, req, tags, now)
	if err != nil {
		return Result{}, fmt.Errorf("predict: assemble candidates: %w", err)
	}
	if len(candidates) == 0 {
		metrics.PredictionsTotal.WithLabelValues("cold_start").Inc()
		return Result{Reason: "cold_start"}, nil
	}

	selection, err := e.tuner.SelectArm(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("predict: select arm: %w", err)
	}

	scored, err := e.rank.ScoreCandidates(ctx, req.Project, candidates, tags, selection.Weights, now)
	if err != nil {
		return Result{}, fmt.Errorf("predict: score candidates: %w", err)
	}
	applyTransitionBoost(scored, transitions, e.cfg.TransitionBoost, req.CurrentFile != "")
	sortScored(scored)

	k := e.cfg.CandidateTopK
	if k > 0 && len(scored) > k {
		scored = scored[:k]
	}

	topScore := 0.0
	if len(scored) > 0 {
		topScore = scored[0].Score
	}
	refMax := e.refmax.update(ctx, req.Project, topScore, now)
	confidence := 0.0
	if refMax > 0 {
		confidence = topScore / refMax
		if confidence > 1 {
			confidence = 1
		}
	}

	res := Result{TopConfidence: confidence}
	switch {
	case forceVisible:
		res.Visible = true
		metrics.PredictionsTotal.WithLabelValues("served").Inc()
	case confidence < e.cfg.ConfidenceFloor:
		metrics.PredictionsTotal.WithLabelValues("below_floor").Inc()
		res.Reason = "below_floor"
		res.Visible = false
	case confidence < e.cfg.ShowThreshold:
		res.Visible = false
	default:
		res.Visible = true
		metrics.PredictionsTotal.WithLabelValues("served").Inc()
	}

	paths := make([]string, 0, len(scored))
	for _, sp := range scored {
		if !e.index.Has(sp.Path) {
			continue
		}
		paths = append(paths, sp.Path)
		cand := Candidate{Path: sp.Path, Confidence: confidencePerCandidate(sp.Score, refMax)}
		if req.SnippetLines > 0 {
			if snippet, ok := e.index.Snippet(sp.Path, req.SnippetLines); ok {
				cand.Snippet = snippet
			}
		}
		if res.Visible {
			res.Files = append(res.Files, cand)
		}
	}

	id := newPredictionID()
	res.predictionID = id
	if err := e.rank.LogPrediction(ctx, rankstore.PredictionRecord{
		ID:          id,
		Project:     req.Project,
		Session:     req.Session,
		Fingerprint: fingerprint,
		Arm:         selection.Arm,
		Candidates:  paths,
		CreatedAt:   now,
	}); err != nil {
		return Result{}, fmt.Errorf("predict: log prediction: %w", err)
	}

	if cacheFingerprint != "" {
		e.cache.set(ctx, req.Project, cacheFingerprint, res)
	}
	return res, nil
}

// ResolveAccess is called by the Intent Capture pipeline whenever a path is
// accessed; it resolves the first matching unresolved prediction in the
// session as a hit and applies a positive tuner update.
func (e *Engine) ResolveAccess(ctx context.Context, project, session, path string, now time.Time) error {
	id, ok, err := e.rank.CheckSessionHit(ctx, project, session, path, now)
	if err != nil {
		return fmt.Errorf("predict: resolve access: %w", err)
	}
	if !ok {
		return nil
	}

	rec, ok, err := e.rank.GetPrediction(ctx, id)
	if err != nil {
		return fmt.Errorf("predict: resolve access lookup: %w", err)
	}
	if !ok {
		return nil
	}

	metrics.PredictionResolutionsTotal.WithLabelValues("hit").Inc()
	if err := e.tuner.UpdateArm(ctx, rec.Arm, true); err != nil {
		e.log.Warn("predict: tuner update on hit failed", zap.Error(err))
	}
	if err := e.rank.RecordHitRank(ctx, id, indexOf(rec.Candidates, path)); err != nil {
		e.log.Warn("predict: record hit rank failed", zap.Error(err))
	}
	return nil
}

// FinalizeStale resolves, as misses, every prediction across projects older
// than the configured window+grace, and applies a negative tuner update for
// each one's arm. Intended to be called on a timer (see spec.md §4.3).
func (e *Engine) FinalizeStale(ctx context.Context, projects []string, now time.Time) (int, error) {
	window := time.Duration(e.cfg.FinalizeWindow) * time.Second
	grace := time.Duration(e.cfg.FinalizeGrace) * time.Second
	resolved, err := e.rank.FinalizeStaleDetailed(ctx, projects, now, window, grace)
	if err != nil {
		return 0, fmt.Errorf("predict: finalize stale: %w", err)
	}
	for _, rec := range resolved {
		metrics.PredictionResolutionsTotal.WithLabelValues("miss").Inc()
		if err := e.tuner.UpdateArm(ctx, rec.Arm, false); err != nil {
			e.log.Warn("predict: tuner update on miss failed", zap.Error(err))
		}
	}
	return len(resolved), nil
}

func indexOf(paths []string, path string) int {
	for i, p := range paths {
		if p == path {
			return i
		}
	}
	return -1
}

func confidencePerCandidate(score, refMax float64) float64 {
	if refMax <= 0 {
		return 0
	}
	v := score / refMax
	if v > 1 {
		return 1
	}
	if v < 0 {
		return 0
	}
	return v
}

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := in[:0:0]
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
