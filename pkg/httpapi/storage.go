package httpapi

import (
	"net/http"

	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

type addOSDRequest struct {
	Node       string `json:"node"`
	DataDevice string `json:"data_device"`
	DBDevice   string `json:"db_device"`
}

// handleAddOSD implements POST /storage/ceph/osd: enqueues osd.add on
// the primary, which is the only node that runs the Storage Executor
// against the shared Ceph cluster.
func (s *Server) handleAddOSD(w http.ResponseWriter, r *http.Request) {
	var req addOSDRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, err)
		return
	}
	if req.Node == "" || req.DataDevice == "" {
		writeError(w, pvcerr.Validation("node and data_device are required"))
		return
	}
	t := &types.Task{
		Name:       "osd.add",
		RoutingKey: types.PrimarySentinel,
		Kwargs: map[string]any{
			"node":        req.Node,
			"data_device": req.DataDevice,
			"db_device":   req.DBDevice,
		},
	}
	if err := s.deps.Bus.Enqueue(t); err != nil {
		writeError(w, err)
		return
	}
	taskAccepted(w, t)
}
