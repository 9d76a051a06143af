package httpapi

import (
	"net/http"
	"strconv"

	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

func (s *Server) findNode(name string) (*types.Node, error) {
	n := s.deps.Nodes.Get(name)
	if n == nil {
		return nil, pvcerr.NotFound("no node named %q", name)
	}
	return n, nil
}

// domainsOn returns every domain this Registry tracks whose Node or
// LastNode references name, the set Flush/Unflush need.
func (s *Server) domainsOn(name string) []*types.Domain {
	var out []*types.Domain
	for _, d := range s.deps.Domains.List() {
		if d.Node == name || d.LastNode == name {
			out = append(out, d)
		}
	}
	return out
}

func (s *Server) handleListNodes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Nodes.List())
}

func (s *Server) handleGetNode(w http.ResponseWriter, r *http.Request) {
	n, err := s.findNode(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type domainStateRequest struct {
	State types.DomainState `json:"state"`
	Wait  bool              `json:"wait"`
}

// handleDomainState implements POST /node/{name}/domain-state: only
// flush and ready (the request side of unflush) are valid targets an
// operator writes; flushed/unflush are reconciler-observed states.
func (s *Server) handleDomainState(w http.ResponseWriter, r *http.Request) {
	var req domainStateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if v := r.URL.Query().Get("wait"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			req.Wait = b
		}
	}
	n, err := s.findNode(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	domains := s.domainsOn(n.Name)

	switch req.State {
	case types.DomainStateFlush:
		err = s.deps.Machine.Flush(r.Context(), n, domains, req.Wait)
	case types.DomainStateReady:
		err = s.deps.Machine.Unflush(r.Context(), n, domains, req.Wait)
	default:
		writeError(w, pvcerr.Validation("domain-state must be %q or %q", types.DomainStateFlush, types.DomainStateReady))
		return
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

type coordinatorStateRequest struct {
	State types.CoordinatorState `json:"state"`
}

// handleCoordinatorState implements POST /node/{name}/coordinator-state.
// ZooKeeper's sequential-ephemeral election recipe has no "make node X
// win" primitive — only the current holder can voluntarily step aside
// and let the next contender's watch fire. So this handler only accepts
// requests addressed to this node's own name (an operator/CLI talks to
// each pvcd's own listen address, since each node's daemon is
// independently reachable) and only honors state=secondary,
// triggering this node's own Elector to resign; requesting a specific
// node become primary is done by asking the *current* primary to step
// down and letting the campaign queue pick the next contender.
func (s *Server) handleCoordinatorState(w http.ResponseWriter, r *http.Request) {
	var req coordinatorStateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	name := r.PathValue("name")
	if name != s.deps.Self {
		writeError(w, pvcerr.Validation("coordinator-state must be requested against the node's own address (this is %q, not %q)", s.deps.Self, name))
		return
	}
	if req.State != types.CoordinatorStateSecondary {
		writeError(w, pvcerr.Validation("coordinator-state only accepts %q (voluntary step-down); primacy is won by campaign order", types.CoordinatorStateSecondary))
		return
	}
	s.deps.Elector.Resign()
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "resign requested"})
}
