package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/kailas-cloud/devintel/internal/rankstore"
	"github.com/kailas-cloud/devintel/internal/tuner"
)

// rankDetail is one path's composite-score breakdown in the /rank response.
type rankDetail struct {
	Path      string  `json:"path"`
	Recency   float64 `json:"recency"`
	Frequency float64 `json:"frequency"`
	Tag       float64 `json:"tag"`
	Composite float64 `json:"composite"`
}

// rankResponse is the body of GET /rank.
type rankResponse struct {
	Files    []string          `json:"files"`
	Details  []rankDetail      `json:"details"`
	Weights  rankstore.Weights `json:"weights"`
	Arm      string            `json:"arm"`
	Adaptive bool              `json:"adaptive"`
	Ms       int64             `json:"ms"`
}

// Rank handles GET /rank?tag=T&limit=...&adaptive=true|false, per spec.md
// §4.2 + §4.4. adaptive (default true) selects weights via Thompson
// sampling; set to false to rank under the tuner's fixed "default" arm
// instead, bypassing arm selection entirely.
func (s *Server) Rank(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	start := time.Now()
	project := s.projectParam(r)
	limit := intQuery(r, "limit", 20)
	var tags []string
	if tag := r.URL.Query().Get("tag"); tag != "" {
		tags = []string{tag}
	}
	adaptive := r.URL.Query().Get("adaptive") != "false"

	var (
		weights rankstore.Weights
		armName string
	)
	if adaptive {
		selection, err := s.tuner.SelectArm(ctx)
		if err != nil {
			s.writeQueryError(w, r, "rank", err)
			return
		}
		weights, armName = selection.Weights, selection.Name
	} else {
		weights, armName = tuner.Arms[defaultArmIndex].Weights, tuner.Arms[defaultArmIndex].Name
	}

	scored, err := s.rank.TopComposite(ctx, project, tags, weights, limit, time.Now())
	if err != nil {
		s.writeQueryError(w, r, "rank", err)
		return
	}

	files := make([]string, 0, len(scored))
	details := make([]rankDetail, 0, len(scored))
	for _, sp := range scored {
		files = append(files, sp.Path)
		details = append(details, rankDetail{
			Path:      sp.Path,
			Recency:   sp.Signals.Recency,
			Frequency: sp.Signals.Frequency,
			Tag:       sp.Signals.Tag,
			Composite: sp.Score,
		})
	}

	writeJSON(w, http.StatusOK, rankResponse{
		Files:    files,
		Details:  details,
		Weights:  weights,
		Arm:      armName,
		Adaptive: adaptive,
		Ms:       time.Since(start).Milliseconds(),
	})
}

// defaultArmIndex is the "default" weight configuration used by /rank when
// the caller opts out of adaptive tuning.
const defaultArmIndex = 2

// decayResponse is the body of POST /rank/decay.
type decayResponse struct {
	RecencyDecayed   int `json:"recency_decayed"`
	FrequencyDecayed int `json:"frequency_decayed"`
}

// RankDecay handles POST /rank/decay: an operator/cron-triggered maintenance
// verb that runs one exponential half-life decay pass, per SPEC_FULL.md §12.
func (s *Server) RankDecay(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), buildScanTimeout)
	defer cancel()

	project := s.projectParam(r)
	recencyDecayed, frequencyDecayed, err := s.rank.ApplyDecay(ctx, project, time.Now())
	if err != nil {
		s.writeQueryError(w, r, "rank_decay", err)
		return
	}
	writeJSON(w, http.StatusOK, decayResponse{RecencyDecayed: recencyDecayed, FrequencyDecayed: frequencyDecayed})
}

// statusResponse is the body of GET /status, per SPEC_FULL.md §12's
// supplemented status snapshot endpoint.
type statusResponse struct {
	IntentsSeen int       `json:"intents_seen"`
	ActiveTags  []string  `json:"active_tags"`
	LastTool    string    `json:"last_tool"`
	LastFiles   []string  `json:"last_files"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Status handles GET /status.
func (s *Server) Status(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	project := s.projectParam(r)
	snap, err := s.rank.Status(ctx, project)
	if err != nil {
		s.writeQueryError(w, r, "status", err)
		return
	}

	writeJSON(w, http.StatusOK, statusResponse{
		IntentsSeen: snap.IntentsSeen,
		ActiveTags:  snap.ActiveTags,
		LastTool:    snap.LastTool,
		LastFiles:   snap.LastFiles,
		UpdatedAt:   snap.UpdatedAt,
	})
}
