package httpapi

import (
	"net/http"

	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Tasks.List())
}

// handleGetTask implements GET /tasks/{id}, shaping the response the
// way each state is shaped: pending and failure get synthesized
// status blobs rather than whatever was last durably written, so a
// poller never sees a stale in-flight snapshot for a task that hasn't
// started or already failed outright.
func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	t := s.deps.Tasks.Get(r.PathValue("id"))
	if t == nil {
		writeError(w, pvcerr.NotFound("no task with id %q", r.PathValue("id")))
		return
	}

	resp := map[string]any{"state": t.State}
	switch t.State {
	case types.TaskPending:
		resp["current"] = 0
		resp["total"] = 1
		resp["status"] = "Pending job start"
	case types.TaskFailure:
		resp["current"] = 1
		resp["total"] = 1
		resp["status"] = t.Progress.Status
	default:
		resp["current"] = t.Progress.Current
		resp["total"] = t.Progress.Total
		resp["status"] = t.Progress.Status
	}
	if t.Progress.Result != nil {
		resp["result"] = t.Progress.Result
	}
	writeJSON(w, http.StatusOK, resp)
}
