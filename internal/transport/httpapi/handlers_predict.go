package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/kailas-cloud/devintel/internal/predict"
)

// predictRequest is the shared body of POST /predict and POST /context.
type predictRequest struct {
	Intent       string   `json:"intent,omitempty"`
	Keywords     []string `json:"keywords,omitempty"`
	CurrentFile  string   `json:"current_file,omitempty"`
	Session      string   `json:"session"`
	SnippetLines int      `json:"snippet_lines,omitempty"`
}

// predictResponse is the shared body of POST /predict and POST /context, per
// spec.md §6.
type predictResponse struct {
	Files         []predict.Candidate `json:"files"`
	TopConfidence float64              `json:"top_confidence"`
	Cached        bool                 `json:"cached"`
	Reason        string               `json:"reason,omitempty"`
}

func decodePredictRequest(r *http.Request, project string) (predict.Request, error) {
	// GET /context carries its inputs as query parameters, since a GET
	// request has no conventional body; POST /predict and POST /context
	// carry the same shape as a JSON body, per spec.md §6.
	if r.Method == http.MethodGet {
		q := r.URL.Query()
		return predict.Request{
			Project:      project,
			Session:      q.Get("session"),
			Intent:       q.Get("intent"),
			CurrentFile:  q.Get("current_file"),
			SnippetLines: intQuery(r, "snippet_lines", 0),
		}, nil
	}

	var body predictRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return predict.Request{}, err
	}
	return predict.Request{
		Project:      project,
		Session:      body.Session,
		Intent:       body.Intent,
		Keywords:     body.Keywords,
		CurrentFile:  body.CurrentFile,
		SnippetLines: body.SnippetLines,
	}, nil
}

// Predict handles POST /predict, per spec.md §4.3 and §6.
func (s *Server) Predict(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	req, err := decodePredictRequest(r, s.projectParam(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	res, err := s.predictor.Predict(ctx, req)
	if err != nil {
		s.writeQueryError(w, r, "predict", err)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Files:         res.Files,
		TopConfidence: res.TopConfidence,
		Cached:        res.Cached,
		Reason:        res.Reason,
	})
}

// Context handles POST /context: the CLI-facing variant of /predict that
// always returns snippets and bypasses the confidence threshold gate, per
// spec.md §6.
func (s *Server) Context(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	req, err := decodePredictRequest(r, s.projectParam(r))
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}

	res, err := s.predictor.Context(ctx, req)
	if err != nil {
		s.writeQueryError(w, r, "context", err)
		return
	}

	writeJSON(w, http.StatusOK, predictResponse{
		Files:         res.Files,
		TopConfidence: res.TopConfidence,
		Cached:        res.Cached,
		Reason:        res.Reason,
	})
}

// okResponse is the generic {"ok": true} body for fire-and-forget verbs.
type okResponse struct {
	OK bool `json:"ok"`
}

// PredictLog handles POST /predict/log, per spec.md §6. The actual logging
// happens inside Predict; this handler reads no body, checks no prediction
// id, and always returns {"ok": true}.
func (s *Server) PredictLog(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// predictCheckRequest is the body of POST /predict/check.
type predictCheckRequest struct {
	Path string `json:"path"`
}

// PredictCheck handles POST /predict/check: the hit-attribution verb Intent
// Capture calls whenever a path is accessed, per spec.md §4.3's "Hit/miss
// attribution" clause. Exposed directly over HTTP too, for a CLI client that
// wants to probe resolution without going through the full intent pipeline.
func (s *Server) PredictCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	var body predictCheckRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Path == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "path is required")
		return
	}

	session := r.URL.Query().Get("session")
	project := s.projectParam(r)
	if err := s.predictor.ResolveAccess(ctx, project, session, body.Path, time.Now()); err != nil {
		s.writeQueryError(w, r, "predict_check", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// predictFinalizeResponse is the body of POST /predict/finalize.
type predictFinalizeResponse struct {
	Resolved int `json:"resolved"`
}

// PredictFinalize handles POST /predict/finalize: manually triggers the same
// stale-prediction sweep the background timer runs, per spec.md §4.3.
func (s *Server) PredictFinalize(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), buildScanTimeout)
	defer cancel()

	projects := s.projectIDs()
	resolved, err := s.predictor.FinalizeStale(ctx, projects, time.Now())
	if err != nil {
		s.writeQueryError(w, r, "predict_finalize", err)
		return
	}
	writeJSON(w, http.StatusOK, predictFinalizeResponse{Resolved: resolved})
}

// projectIDs returns every registered project's uuid, for daemon-wide
// background sweeps (finalize) that are not scoped to a single request.
func (s *Server) projectIDs() []string {
	projects := s.registry.List()
	ids := make([]string, 0, len(projects))
	for _, p := range projects {
		ids = append(ids, p.UUID)
	}
	if len(ids) == 0 && s.defaultProjectUUID != "" {
		return []string{s.defaultProjectUUID}
	}
	return ids
}

// rollingStats is the "rolling" field of GET /predict/stats and GET /metrics.
type rollingStats struct {
	WindowHours int `json:"window_hours"`
	Total       int `json:"total"`
	Evaluated   int `json:"evaluated"`
	Pending     int `json:"pending"`
	Hits        int `json:"hits"`
	HitAt5      int `json:"hit_at_5"`
}

// predictStatsResponse is the body of GET /predict/stats, per spec.md §4.3
// and §6.
type predictStatsResponse struct {
	Hits    int          `json:"hits"`
	Misses  int          `json:"misses"`
	HitRate float64      `json:"hit_rate"`
	Rolling rollingStats `json:"rolling"`
	Tuner   []tunerArm   `json:"tuner"`
}

// rollingWindow is the fixed reporting window for rolling hit-rate metrics,
// per spec.md §4.3 ("24h window").
const rollingWindow = 24 * time.Hour

// PredictStats handles GET /predict/stats.
func (s *Server) PredictStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	project := s.projectParam(r)
	counts, err := s.rank.CountWindow(ctx, project, time.Now().Add(-rollingWindow))
	if err != nil {
		s.writeQueryError(w, r, "predict_stats", err)
		return
	}
	stats, err := s.tuner.Stats(ctx)
	if err != nil {
		s.writeQueryError(w, r, "predict_stats", err)
		return
	}

	hitRate := 0.0
	if counts.Resolved > 0 {
		hitRate = float64(counts.Hits) / float64(counts.Resolved)
	}

	writeJSON(w, http.StatusOK, predictStatsResponse{
		Hits:    counts.Hits,
		Misses:  counts.Resolved - counts.Hits,
		HitRate: hitRate,
		Rolling: rollingStats{
			WindowHours: int(rollingWindow.Hours()),
			Total:       counts.Total,
			Evaluated:   counts.Resolved,
			Pending:     counts.Pending,
			Hits:        counts.Hits,
			HitAt5:      counts.HitAt5,
		},
		Tuner: toTunerArms(stats),
	})
}
