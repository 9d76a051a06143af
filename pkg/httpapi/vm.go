package httpapi

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// findDomainByName scans the domain collection for name; domains are
// keyed by UUID in coordination state but addressed by name over HTTP,
// the way the cluster-facing CLI and operators think about VMs.
func (s *Server) findDomainByName(name string) (*types.Domain, error) {
	for _, d := range s.deps.Domains.List() {
		if d.Name == name {
			return d, nil
		}
	}
	return nil, pvcerr.NotFound("no vm named %q", name)
}

func decodeBody(r *http.Request, v any) error {
	if r.Body == nil {
		return pvcerr.Validation("request body required")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return pvcerr.Validation("decoding request body: %v", err)
	}
	return nil
}

type defineVMRequest struct {
	Name                   string            `json:"name"`
	XML                    string            `json:"xml"`
	Node                   string            `json:"node"`
	NodeLimit              []string          `json:"node_limit"`
	NodeSelector           types.Selector    `json:"node_selector"`
	NodeAutostart          bool              `json:"node_autostart"`
	MigrationMethod        types.MigrationMethod `json:"migration_method"`
	MigrationMaxDowntimeMS int               `json:"migration_max_downtime_ms"`
	Profile                string            `json:"profile"`
}

// handleDefineVM implements POST /vm: defines a new domain record. The
// actual libvirt `define` call happens on the target node once its
// reconciler observes the new domain entity, matching the Node State
// Machine's target/observed split.
func (s *Server) handleDefineVM(w http.ResponseWriter, r *http.Request) {
	var req defineVMRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Name == "" || req.XML == "" || req.Node == "" {
		writeError(w, pvcerr.Validation("name, xml, and node are required"))
		return
	}
	if existing, _ := s.findDomainByName(req.Name); existing != nil {
		writeError(w, pvcerr.Validation("vm %q already defined", req.Name))
		return
	}

	d := &types.Domain{
		UUID:                   uuid.NewString(),
		Name:                   req.Name,
		XML:                    req.XML,
		State:                  types.DomainLifecycleStart,
		Node:                   req.Node,
		NodeLimit:              req.NodeLimit,
		NodeSelector:           req.NodeSelector,
		NodeAutostart:          req.NodeAutostart,
		MigrationMethod:        req.MigrationMethod,
		MigrationMaxDowntimeMS: req.MigrationMaxDowntimeMS,
		Profile:                req.Profile,
	}
	if d.MigrationMethod == "" {
		d.MigrationMethod = types.MigrationLive
	}

	if err := s.deps.DomainWriter.SaveDomain(d); err != nil {
		writeError(w, pvcerr.CoordinationLost(err))
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleListVMs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Domains.List())
}

func (s *Server) handleGetVM(w http.ResponseWriter, r *http.Request) {
	d, err := s.findDomainByName(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type vmStateRequest struct {
	State types.DomainLifecycleState `json:"state"`
}

// vmStateAllowed is the set of target states a direct /state request
// may write; migrate/unmigrate go through /node, and provision/import/
// restore/mirror/fail are set by the reconciler itself, never by a
// direct operator request.
var vmStateAllowed = map[types.DomainLifecycleState]bool{
	types.DomainLifecycleStart:    true,
	types.DomainLifecycleStop:     true,
	types.DomainLifecycleShutdown: true,
	types.DomainLifecycleRestart:  true,
	types.DomainLifecycleDisable:  true,
}

// handleVMState implements POST /vm/{name}/state: writes the domain's
// target lifecycle state. The owning node's reconciler observes it via
// watch and performs the libvirt call, then writes the observed state
// back — this handler never calls libvirt itself.
func (s *Server) handleVMState(w http.ResponseWriter, r *http.Request) {
	var req vmStateRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if !vmStateAllowed[req.State] {
		writeError(w, pvcerr.Validation("unsupported state %q for /vm/{name}/state", req.State))
		return
	}
	d, err := s.findDomainByName(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	d.State = req.State
	if err := s.deps.DomainWriter.SaveDomain(d); err != nil {
		writeError(w, pvcerr.CoordinationLost(err))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

type vmNodeRequest struct {
	Action    string `json:"action"` // "move", "migrate", "unmigrate"
	Node      string `json:"node"`
	Force     bool   `json:"force"`
	ForceLive bool   `json:"force_live"`
	Wait      bool   `json:"wait"` // accepted for wire compatibility; migrate/unmigrate already block until done
}

// handleVMNode implements POST /vm/{name}/node: move/migrate/unmigrate.
// move reassigns a stopped VM's node with no runtime action; migrate
// and unmigrate drive *migration.Controller directly and block for the
// duration of the move, matching the Migration Controller's
// whole-operation domain write-lock. A live migration that fails falls
// back to shutdown+restart unless force_live is set, in which case the
// failure is returned as-is.
func (s *Server) handleVMNode(w http.ResponseWriter, r *http.Request) {
	var req vmNodeRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	d, err := s.findDomainByName(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}

	switch req.Action {
	case "move":
		if req.Node == "" {
			writeError(w, pvcerr.Validation("node is required"))
			return
		}
		if d.State != types.DomainLifecycleStop && d.State != types.DomainLifecycleDisable {
			writeError(w, pvcerr.Precondition("vm %s must be stopped to move without migrating", d.Name))
			return
		}
		d.Node = req.Node
		d.LastNode = ""
		if err := s.deps.DomainWriter.SaveDomain(d); err != nil {
			writeError(w, pvcerr.CoordinationLost(err))
			return
		}
	case "migrate":
		if req.Node == "" {
			writeError(w, pvcerr.Validation("node is required"))
			return
		}
		if err := s.deps.Migrator.Migrate(r.Context(), d, req.Node, req.Force, req.ForceLive); err != nil {
			writeError(w, err)
			return
		}
	case "unmigrate":
		if err := s.deps.Migrator.Unmigrate(r.Context(), d, req.Force, req.ForceLive); err != nil {
			writeError(w, err)
			return
		}
	default:
		writeError(w, pvcerr.Validation("unknown action %q, want move/migrate/unmigrate", req.Action))
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// flushLocksEligible mirrors the rule that flush-locks is "accepted only when the VM is in
// {stop, disable, mirror}" rule.
var flushLocksEligible = map[types.DomainLifecycleState]bool{
	types.DomainLifecycleStop:    true,
	types.DomainLifecycleDisable: true,
	types.DomainLifecycleMirror:  true,
}

// handleVMLocks implements POST /vm/{name}/locks: enqueues the
// vm.flush_locks recovery task on the domain's owning node. Rejects
// VMs not in an eligible state with no task enqueued.
func (s *Server) handleVMLocks(w http.ResponseWriter, r *http.Request) {
	d, err := s.findDomainByName(r.PathValue("name"))
	if err != nil {
		writeError(w, err)
		return
	}
	if !flushLocksEligible[d.State] {
		writeError(w, pvcerr.Precondition("VM must be stopped to flush locks"))
		return
	}
	t := &types.Task{
		Name:       "vm.flush_locks",
		RoutingKey: d.Node,
		Kwargs:     map[string]any{"domain": d.UUID},
	}
	if err := s.deps.Bus.Enqueue(t); err != nil {
		writeError(w, err)
		return
	}
	taskAccepted(w, t)
}
