package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/kailas-cloud/devintel/internal/intent"
)

// Intent handles POST /intent: the host assistant's hook envelope, per
// spec.md §4.5 and §6. The handler itself only decodes and enqueues --
// everything downstream runs on the Pipeline's worker pool, so this request
// returns as soon as the event is queued, never blocking on a Ranking Store
// write. Malformed JSON is the only failure a caller ever sees; once an
// event is decoded it is Benign per spec.md §7 and is never surfaced here.
func (s *Server) Intent(w http.ResponseWriter, r *http.Request) {
	var e intent.Event
	if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "reason": "bad_request"})
		return
	}
	if e.Project == "" {
		e.Project = s.defaultProjectUUID
	}
	s.pipeline.Enqueue(e)
	writeJSON(w, http.StatusOK, okResponse{OK: true})
}
