// Package httpapi implements devintel's single HTTP surface: the host
// assistant's hook events, the CLI's query and prediction verbs, and the
// Prometheus/JSON metrics and stats endpoints, all bound to one localhost
// port per spec.md §6.
package httpapi

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/kailas-cloud/devintel/internal/config"
	"github.com/kailas-cloud/devintel/internal/db"
	"github.com/kailas-cloud/devintel/internal/index"
	"github.com/kailas-cloud/devintel/internal/intent"
	"github.com/kailas-cloud/devintel/internal/predict"
	"github.com/kailas-cloud/devintel/internal/project"
	"github.com/kailas-cloud/devintel/internal/rankstore"
	"github.com/kailas-cloud/devintel/internal/tuner"
)

// buildScanTimeout bounds the handful of endpoints that walk files or scan a
// working set (POST /pattern, POST /rank/decay, POST /predict/finalize),
// per spec.md §9's "5 s for build/scan endpoints" clause.
const buildScanTimeout = 5 * time.Second

// Server wires every domain component to its HTTP verb. It holds concrete
// component types directly -- like the reference server holds concrete
// usecase services -- rather than interfaces, since this package is the
// composition root's only consumer of each.
type Server struct {
	registry  *project.Registry
	store     db.Store
	index     *index.Index
	rank      *rankstore.Store
	tuner     *tuner.Tuner
	predictor *predict.Engine
	pipeline  *intent.Pipeline
	cfg       config.Config
	log       *zap.Logger

	// defaultProjectUUID is the project used when a request omits ?project=,
	// the project bound to the CWD at enablement time per spec.md §6.
	defaultProjectUUID string
}

// New creates an HTTP API server.
func New(
	registry *project.Registry,
	store db.Store,
	idx *index.Index,
	rank *rankstore.Store,
	tn *tuner.Tuner,
	predictor *predict.Engine,
	pipeline *intent.Pipeline,
	cfg config.Config,
	defaultProjectUUID string,
	log *zap.Logger,
) *Server {
	return &Server{
		registry:           registry,
		store:              store,
		index:              idx,
		rank:               rank,
		tuner:              tn,
		predictor:          predictor,
		pipeline:           pipeline,
		cfg:                cfg,
		log:                log,
		defaultProjectUUID: defaultProjectUUID,
	}
}

// Routes wires every handler to its verb, per the HTTP surface table in
// spec.md §6. The caller supplies the router (chi, with the daemon's own
// middleware chain already attached) so this package stays agnostic of how
// the composition root wraps the mux.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.Health)

	r.Get("/symbol", s.Symbol)
	r.Get("/multi", s.Multi)
	r.Post("/pattern", s.Pattern)
	r.Get("/index/stats", s.IndexStats)

	r.Post("/intent", s.Intent)

	r.Get("/rank", s.Rank)
	r.Post("/rank/decay", s.RankDecay)
	r.Get("/status", s.Status)

	r.Post("/predict", s.Predict)
	r.Post("/context", s.Context)
	r.Get("/context", s.Context)
	r.Post("/predict/log", s.PredictLog)
	r.Post("/predict/check", s.PredictCheck)
	r.Post("/predict/finalize", s.PredictFinalize)
	r.Get("/predict/stats", s.PredictStats)

	r.Get("/tuner/weights", s.TunerWeights)
	r.Get("/tuner/best", s.TunerBest)
	r.Get("/tuner/stats", s.TunerStats)
	r.Post("/tuner/feedback", s.TunerFeedback)
	r.Post("/tuner/reset", s.TunerReset)

	r.Get("/metrics", s.Metrics)
}

// queryTimeout returns the configured hard timeout for query endpoints.
func (s *Server) queryTimeout() time.Duration {
	return time.Duration(s.cfg.Index.QueryTimeoutMs) * time.Millisecond
}

// projectParam resolves the effective project id for a request: the
// explicit ?project= query param, or the daemon's default active project.
func (s *Server) projectParam(r *http.Request) string {
	if p := r.URL.Query().Get("project"); p != "" {
		return p
	}
	return s.defaultProjectUUID
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the uniform JSON error shape for every handler.
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: code, Message: message})
}

func (s *Server) logHandlerError(r *http.Request, op string, err error) {
	s.log.Warn("httpapi: handler error", zap.String("op", op), zap.String("path", r.URL.Path), zap.Error(err))
}

func intQuery(r *http.Request, key string, def int) int {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}
