package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/kailas-cloud/devintel/internal/index"
)

// symbolResponse is the shared shape of /symbol, /multi, and /pattern.
type symbolResponse struct {
	Results   []index.Result `json:"results"`
	Ms        int64          `json:"ms"`
	Truncated bool           `json:"truncated"`
}

// Symbol handles GET /symbol?q=...&limit=...
func (s *Server) Symbol(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	start := time.Now()
	q := r.URL.Query().Get("q")
	limit := intQuery(r, "limit", 20)

	results, err := s.index.Symbol(q, limit)
	if err != nil {
		s.writeQueryError(w, r, "symbol", err)
		return
	}

	writeJSON(w, http.StatusOK, symbolResponse{
		Results:   results,
		Ms:        time.Since(start).Milliseconds(),
		Truncated: ctx.Err() != nil,
	})
}

// Multi handles GET /multi?q=a+b+c&mode=and|or&limit=...
func (s *Server) Multi(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), s.queryTimeout())
	defer cancel()

	start := time.Now()
	q := r.URL.Query().Get("q")
	mode := r.URL.Query().Get("mode")
	limit := intQuery(r, "limit", 20)

	var (
		results []index.Result
		err     error
	)
	if mode == "and" {
		results, err = s.index.MultiAnd(strings.Fields(q), limit)
	} else {
		results, err = s.index.Symbol(q, limit)
	}
	if err != nil {
		s.writeQueryError(w, r, "multi", err)
		return
	}

	writeJSON(w, http.StatusOK, symbolResponse{
		Results:   results,
		Ms:        time.Since(start).Milliseconds(),
		Truncated: ctx.Err() != nil,
	})
}

// patternRequest is the body of POST /pattern.
type patternRequest struct {
	Patterns []string `json:"patterns"`
	Since    string   `json:"since,omitempty"`
	FullScan bool     `json:"full_scan,omitempty"`
}

// patternMatch is one regex hit tagged with the pattern that produced it.
type patternMatch struct {
	Path    string `json:"path"`
	Line    int    `json:"line"`
	Match   string `json:"match"`
	Pattern string `json:"pattern"`
}

// patternResponse is the body of POST /pattern's response.
type patternResponse struct {
	Results      []patternMatch `json:"results"`
	ScannedPaths int            `json:"scanned_paths"`
	Truncated    bool           `json:"truncated"`
	Ms           int64          `json:"ms"`
}

// Pattern handles POST /pattern: a bounded working-set regex scan, per
// spec.md §4.1 and SPEC_FULL.md §13's "regex working-set default" decision.
// A full-index scan only ever runs when the request explicitly opts in via
// full_scan, never as this endpoint's default.
func (s *Server) Pattern(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), buildScanTimeout)
	defer cancel()

	start := time.Now()
	var req patternRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid request body: "+err.Error())
		return
	}
	if len(req.Patterns) == 0 {
		writeError(w, http.StatusBadRequest, "validation_failed", "patterns must not be empty")
		return
	}

	project := s.projectParam(r)
	paths, err := s.workingSet(ctx, project, req.FullScan)
	if err != nil {
		s.writeQueryError(w, r, "pattern", err)
		return
	}

	var (
		results   []patternMatch
		truncated bool
	)
	for _, pattern := range req.Patterns {
		matches, tr, err := s.index.RegexScan(ctx, paths, pattern, s.cfg.Index.RegexScanCap)
		if err != nil {
			if errors.Is(err, index.ErrBadQuery) {
				writeError(w, http.StatusBadRequest, "bad_query", err.Error())
				return
			}
			s.writeQueryError(w, r, "pattern", err)
			return
		}
		truncated = truncated || tr
		for _, m := range matches {
			results = append(results, patternMatch{Path: m.Path, Line: m.Line, Match: m.Match, Pattern: pattern})
		}
	}

	writeJSON(w, http.StatusOK, patternResponse{
		Results:      results,
		ScannedPaths: len(paths),
		Truncated:    truncated || ctx.Err() != nil,
		Ms:           time.Since(start).Milliseconds(),
	})
}

// workingSet returns the bounded set of candidate paths for a regex scan:
// every indexed path when fullScan was explicitly requested, or the
// project's most-recently-accessed paths up to the configured cap.
func (s *Server) workingSet(ctx context.Context, project string, fullScan bool) ([]string, error) {
	if fullScan {
		return s.index.AllPaths(), nil
	}
	members, err := s.rank.TopRecent(ctx, project, s.cfg.Index.WorkingSetSize)
	if err != nil {
		return nil, err
	}
	paths := make([]string, 0, len(members))
	for _, m := range members {
		paths = append(paths, m.Member)
	}
	return paths, nil
}

// IndexStats handles GET /index/stats, per SPEC_FULL.md §12's supplemented
// index statistics endpoint.
func (s *Server) IndexStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.index.Stats())
}

// writeQueryError writes a generic 500 for a query-path failure and logs it,
// keeping cold-start paths (empty stores) distinct from genuine IO failures.
func (s *Server) writeQueryError(w http.ResponseWriter, r *http.Request, op string, err error) {
	s.logHandlerError(r, op, err)
	writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
}
