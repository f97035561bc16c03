package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/kailas-cloud/devintel/internal/rankstore"
	"github.com/kailas-cloud/devintel/internal/tuner"
)

// tunerArm is one arm's public reporting shape, shared by GET /tuner/stats,
// GET /predict/stats, and GET /metrics.
type tunerArm struct {
	Arm     int               `json:"arm"`
	Name    string            `json:"name"`
	Weights rankstore.Weights `json:"weights"`
	Alpha   float64           `json:"alpha"`
	Beta    float64           `json:"beta"`
	Mean    float64           `json:"mean"`
}

func toTunerArms(stats []tuner.ArmStat) []tunerArm {
	out := make([]tunerArm, len(stats))
	for i, s := range stats {
		out[i] = tunerArm{Arm: s.Arm, Name: s.Name, Weights: s.Weights, Alpha: s.Alpha, Beta: s.Beta, Mean: s.Mean}
	}
	return out
}

// tunerWeightsResponse is the body of GET /tuner/weights: one exploratory
// Thompson-sampling draw, per spec.md §4.4.
type tunerWeightsResponse struct {
	Arm     int               `json:"arm"`
	Name    string            `json:"name"`
	Weights rankstore.Weights `json:"weights"`
	Draws   []float64         `json:"draws"`
}

// TunerWeights handles GET /tuner/weights: draws one Thompson sample and
// returns the selected arm's weights.
func (s *Server) TunerWeights(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	selection, err := s.tuner.SelectArm(ctx)
	if err != nil {
		s.writeQueryError(w, r, "tuner_weights", err)
		return
	}
	writeJSON(w, http.StatusOK, tunerWeightsResponse{
		Arm:     selection.Arm,
		Name:    selection.Name,
		Weights: selection.Weights,
		Draws:   selection.Draws,
	})
}

// TunerBest handles GET /tuner/best: the exploitation view (highest
// posterior mean), per spec.md §4.4's best_arm verb.
func (s *Server) TunerBest(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	best, err := s.tuner.BestArm(ctx)
	if err != nil {
		s.writeQueryError(w, r, "tuner_best", err)
		return
	}
	writeJSON(w, http.StatusOK, tunerArm{
		Arm: best.Arm, Name: best.Name, Weights: best.Weights,
		Alpha: best.Alpha, Beta: best.Beta, Mean: best.Mean,
	})
}

// TunerStats handles GET /tuner/stats: the full arm table.
func (s *Server) TunerStats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	stats, err := s.tuner.Stats(ctx)
	if err != nil {
		s.writeQueryError(w, r, "tuner_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, toTunerArms(stats))
}

// tunerFeedbackRequest is the body of POST /tuner/feedback, per spec.md §6's
// "manual feedback path".
type tunerFeedbackRequest struct {
	ArmIdx int  `json:"arm_idx"`
	Hit    bool `json:"hit"`
}

// TunerFeedback handles POST /tuner/feedback.
func (s *Server) TunerFeedback(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	var body tunerFeedbackRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if err := s.tuner.UpdateArm(ctx, body.ArmIdx, body.Hit); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}

// TunerReset handles POST /tuner/reset: resets every arm's Beta(1,1) prior.
func (s *Server) TunerReset(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	if err := s.tuner.Reset(ctx); err != nil {
		s.writeQueryError(w, r, "tuner_reset", err)
		return
	}
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
