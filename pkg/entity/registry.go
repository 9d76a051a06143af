package entity

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/parallelvirtualcluster/pvc/pkg/localcache"
	"github.com/parallelvirtualcluster/pvc/pkg/schema"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// Registry ties every entity Collection to one coordination client and
// one local cache, and is the facade the rest of the daemon depends on.
// It satisfies pkg/metrics.ClusterView by embedding *localcache.Cache.
type Registry struct {
	*localcache.Cache

	Nodes    *Collection[types.Node]
	Domains  *Collection[types.Domain]
	Networks *Collection[types.Network]
	OSDs     *Collection[types.OSD]
	Pools    *Collection[types.Pool]
	Faults   *Collection[types.Fault]
	Tasks    *Collection[types.Task]
}

func decodeJSON[T any](data []byte) (*T, error) {
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// NewRegistry constructs every Collection but does not start watching;
// call Run to begin.
func NewRegistry(c coordClient, cache *localcache.Cache) *Registry {
	r := &Registry{Cache: cache}

	r.Nodes = NewCollection(c, schema.Path(schema.KindNodes), decodeJSON[types.Node],
		cache.PutNode, cache.DeleteNode)
	r.Domains = NewCollection(c, schema.Path(schema.KindDomains), decodeJSON[types.Domain],
		cache.PutDomain, cache.DeleteDomain)
	r.Networks = NewCollection(c, schema.Path(schema.KindNetworks), decodeJSON[types.Network],
		func(n *types.Network) error { return cache.PutNetwork(n) },
		func(name string) error {
			vni, err := strconv.Atoi(name)
			if err != nil {
				return err
			}
			return cache.DeleteNetwork(vni)
		})
	r.OSDs = NewCollection(c, schema.Path(schema.KindCephOSDs), decodeJSON[types.OSD],
		cache.PutOSD, cache.DeleteOSD)
	r.Pools = NewCollection(c, schema.Path(schema.KindCephPools), decodeJSON[types.Pool],
		cache.PutPool, cache.DeletePool)
	r.Faults = NewCollection(c, schema.Path(schema.KindFaults), decodeJSON[types.Fault],
		cache.PutFault, cache.DeleteFault)
	r.Tasks = NewCollection(c, schema.Path(schema.KindTaskQueues), decodeJSON[types.Task],
		cache.PutTask, cache.DeleteTask)

	return r
}

// Run starts every collection's watch loop and blocks until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	go r.Nodes.Run(ctx)
	go r.Domains.Run(ctx)
	go r.Networks.Run(ctx)
	go r.OSDs.Run(ctx)
	go r.Pools.Run(ctx)
	go r.Faults.Run(ctx)
	go r.Tasks.Run(ctx)
	<-ctx.Done()
}
