package entity

import (
	"encoding/json"
	"fmt"

	"github.com/parallelvirtualcluster/pvc/pkg/schema"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// writerClient is the slice of pkg/coord.Client a Writer needs to
// persist an entity: create the znode if absent, otherwise overwrite it.
type writerClient interface {
	Exists(path string) (bool, error)
	Create(path string, data []byte) error
	CreateRecursive(path string, data []byte) error
	Set(path string, data []byte) error
	Delete(path string) error
}

// Writer persists entity records into coordination state. Collection's
// watch loop picks the write back up and updates the in-memory cache and
// any registered hooks, so callers never need to update the cache
// themselves. Writer satisfies pkg/migration.DomainStore and
// pkg/taskbus.QueueMirror.
type Writer struct {
	c writerClient
}

// NewWriter constructs a Writer over c.
func NewWriter(c writerClient) *Writer {
	return &Writer{c: c}
}

func (w *Writer) put(path string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("entity: marshal %s: %w", path, err)
	}
	exists, err := w.c.Exists(path)
	if err != nil {
		return fmt.Errorf("entity: exists %s: %w", path, err)
	}
	if !exists {
		return w.c.CreateRecursive(path, data)
	}
	return w.c.Set(path, data)
}

// SaveNode persists n under its node path.
func (w *Writer) SaveNode(n *types.Node) error {
	return w.put(schema.Path(schema.KindNode, n.Name), n)
}

// SaveDomain persists d under its domain path, keyed by UUID.
func (w *Writer) SaveDomain(d *types.Domain) error {
	return w.put(schema.Path(schema.KindDomain, d.UUID), d)
}

// DeleteDomain removes d's record (undefine/remove).
func (w *Writer) DeleteDomain(uuid string) error {
	return w.c.Delete(schema.Path(schema.KindDomain, uuid))
}

// SaveNetwork persists n, keyed by its VNI.
func (w *Writer) SaveNetwork(n *types.Network) error {
	return w.put(schema.Path(schema.KindNetwork, fmt.Sprintf("%d", n.VNI)), n)
}

// SaveOSD persists o, keyed by its OSD id.
func (w *Writer) SaveOSD(o *types.OSD) error {
	return w.put(schema.Path(schema.KindCephOSD, o.ID), o)
}

// DeleteOSD removes an OSD record by id.
func (w *Writer) DeleteOSD(id string) error {
	return w.c.Delete(schema.Path(schema.KindCephOSD, id))
}

// SavePool persists p, keyed by its name.
func (w *Writer) SavePool(p *types.Pool) error {
	return w.put(schema.Path(schema.KindCephPool, p.Name), p)
}

// DeletePool removes a pool record by name.
func (w *Writer) DeletePool(name string) error {
	return w.c.Delete(schema.Path(schema.KindCephPool, name))
}

// SaveFault persists f, keyed by its content-hash id.
func (w *Writer) SaveFault(f *types.Fault) error {
	return w.put(schema.Path(schema.KindFault, f.ID), f)
}

// DeleteFault removes a fault record by id.
func (w *Writer) DeleteFault(id string) error {
	return w.c.Delete(schema.Path(schema.KindFault, id))
}

// SaveTask mirrors t into its resolved node's task queue, keyed by
// (node, task id). t.RoutingKey must already be resolved to a concrete
// node name (never the "primary" sentinel) by the time this is called.
func (w *Writer) SaveTask(t *types.Task) error {
	return w.put(schema.Path(schema.KindTask, t.RoutingKey, t.ID), t)
}
