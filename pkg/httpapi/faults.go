package httpapi

import (
	"net/http"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/fault"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
)

// handleListFaults implements GET /faults, sorted the way the Health /
// Fault Aggregator's default listing orders them.
func (s *Server) handleListFaults(w http.ResponseWriter, r *http.Request) {
	faults := s.deps.Faults.List()
	fault.SortByLastReportedDesc(faults)
	writeJSON(w, http.StatusOK, faults)
}

func (s *Server) handleGetFault(w http.ResponseWriter, r *http.Request) {
	f := s.deps.Faults.Get(r.PathValue("id"))
	if f == nil {
		writeError(w, pvcerr.NotFound("no fault with id %q", r.PathValue("id")))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

// handleAckFault implements PUT /faults/{id}: acknowledges a fault,
// transitioning new->ack. Idempotent.
func (s *Server) handleAckFault(w http.ResponseWriter, r *http.Request) {
	f := s.deps.Faults.Get(r.PathValue("id"))
	if f == nil {
		writeError(w, pvcerr.NotFound("no fault with id %q", r.PathValue("id")))
		return
	}
	fault.Acknowledge(f, time.Now())
	if err := s.deps.FaultWriter.SaveFault(f); err != nil {
		writeError(w, pvcerr.CoordinationLost(err))
		return
	}
	writeJSON(w, http.StatusOK, f)
}

func (s *Server) handleDeleteFault(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if f := s.deps.Faults.Get(id); f == nil {
		writeError(w, pvcerr.NotFound("no fault with id %q", id))
		return
	}
	if err := s.deps.FaultWriter.DeleteFault(id); err != nil {
		writeError(w, pvcerr.CoordinationLost(err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
