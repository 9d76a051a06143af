package localcache

import (
	"encoding/json"
	"fmt"
	"net"
	"path/filepath"
	"sync/atomic"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
	bolt "go.etcd.io/bbolt"
)

var (
	bucketNodes   = []byte("nodes")
	bucketDomains = []byte("domains")
	bucketNetworks = []byte("networks")
	bucketOSDs    = []byte("osds")
	bucketPools   = []byte("pools")
	bucketFaults  = []byte("faults")
	bucketTasks   = []byte("tasks")
)

// Cache is the BoltDB-backed local read-copy store, adapted from the
// single-file-per-process-data-dir layout the node daemon already uses
// for everything else.
type Cache struct {
	db        *bolt.DB
	isPrimary int32 // atomic bool; set by pkg/election on takeover/relinquish
}

// Open opens (creating if absent) the cache file under dataDir.
func Open(dataDir string) (*Cache, error) {
	dbPath := filepath.Join(dataDir, "pvc-localcache.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("localcache: open: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, b := range [][]byte{bucketNodes, bucketDomains, bucketNetworks, bucketOSDs, bucketPools, bucketFaults, bucketTasks} {
			if _, err := tx.CreateBucketIfNotExists(b); err != nil {
				return fmt.Errorf("create bucket %s: %w", b, err)
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Cache{db: db}, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error { return c.db.Close() }

// SetPrimary records whether this node currently holds coordinator_state
// primary, called by pkg/election on every takeover/relinquish.
func (c *Cache) SetPrimary(primary bool) {
	var v int32
	if primary {
		v = 1
	}
	atomic.StoreInt32(&c.isPrimary, v)
}

// IsPrimary implements metrics.ClusterView.
func (c *Cache) IsPrimary() bool {
	return atomic.LoadInt32(&c.isPrimary) == 1
}

func put(db *bolt.DB, bucket []byte, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Put([]byte(key), data)
	})
}

func get[T any](db *bolt.DB, bucket []byte, key string) (*T, error) {
	var out T
	found := false
	err := db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucket).Get([]byte(key))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &out)
	})
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}
	return &out, nil
}

func list[T any](db *bolt.DB, bucket []byte) ([]*T, error) {
	var out []*T
	err := db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).ForEach(func(k, v []byte) error {
			var item T
			if err := json.Unmarshal(v, &item); err != nil {
				return err
			}
			out = append(out, &item)
			return nil
		})
	})
	return out, err
}

func del(db *bolt.DB, bucket []byte, key string) error {
	return db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucket).Delete([]byte(key))
	})
}

// Node operations

func (c *Cache) PutNode(n *types.Node) error          { return put(c.db, bucketNodes, n.Name, n) }
func (c *Cache) GetNode(name string) (*types.Node, error) { return get[types.Node](c.db, bucketNodes, name) }
func (c *Cache) ListNodes() []*types.Node {
	nodes, _ := list[types.Node](c.db, bucketNodes)
	return nodes
}
func (c *Cache) DeleteNode(name string) error { return del(c.db, bucketNodes, name) }

// Domain operations

func (c *Cache) PutDomain(d *types.Domain) error { return put(c.db, bucketDomains, d.UUID, d) }
func (c *Cache) GetDomain(uuid string) (*types.Domain, error) {
	return get[types.Domain](c.db, bucketDomains, uuid)
}
func (c *Cache) ListDomains() []*types.Domain {
	domains, _ := list[types.Domain](c.db, bucketDomains)
	return domains
}
func (c *Cache) DeleteDomain(uuid string) error { return del(c.db, bucketDomains, uuid) }

// Network operations

func (c *Cache) PutNetwork(n *types.Network) error {
	return put(c.db, bucketNetworks, fmt.Sprint(n.VNI), n)
}
func (c *Cache) GetNetwork(vni int) (*types.Network, error) {
	return get[types.Network](c.db, bucketNetworks, fmt.Sprint(vni))
}
func (c *Cache) ListNetworks() []*types.Network {
	networks, _ := list[types.Network](c.db, bucketNetworks)
	return networks
}
func (c *Cache) DeleteNetwork(vni int) error { return del(c.db, bucketNetworks, fmt.Sprint(vni)) }

// OSD operations

func (c *Cache) PutOSD(o *types.OSD) error { return put(c.db, bucketOSDs, o.ID, o) }
func (c *Cache) ListOSDs() []*types.OSD {
	osds, _ := list[types.OSD](c.db, bucketOSDs)
	return osds
}
func (c *Cache) DeleteOSD(id string) error { return del(c.db, bucketOSDs, id) }

// Pool operations

func (c *Cache) PutPool(p *types.Pool) error { return put(c.db, bucketPools, p.Name, p) }
func (c *Cache) ListPools() []*types.Pool {
	pools, _ := list[types.Pool](c.db, bucketPools)
	return pools
}
func (c *Cache) DeletePool(name string) error { return del(c.db, bucketPools, name) }

// Fault operations

func (c *Cache) PutFault(f *types.Fault) error { return put(c.db, bucketFaults, f.ID, f) }
func (c *Cache) ListFaults() []*types.Fault {
	faults, _ := list[types.Fault](c.db, bucketFaults)
	return faults
}
func (c *Cache) DeleteFault(id string) error { return del(c.db, bucketFaults, id) }

// Task operations

func (c *Cache) PutTask(t *types.Task) error { return put(c.db, bucketTasks, t.ID, t) }
func (c *Cache) ListTasks() []*types.Task {
	tasks, _ := list[types.Task](c.db, bucketTasks)
	return tasks
}
func (c *Cache) DeleteTask(id string) error { return del(c.db, bucketTasks, id) }

// PublishLease records an observed DHCP lease against its network,
// implementing pkg/floating.LeasePublisher. Leases are keyed by MAC
// within the network's DHCPLeases map, distinct from operator-declared
// DHCPReservations.
func (c *Cache) PublishLease(vni int, lease types.DHCPLease) error {
	n, err := c.GetNetwork(vni)
	if err != nil {
		return err
	}
	if n == nil {
		return fmt.Errorf("localcache: publish lease: no network with vni %d", vni)
	}
	if n.DHCPLeases == nil {
		n.DHCPLeases = make(map[string]types.DHCPLease)
	}
	n.DHCPLeases[lease.MAC] = lease
	return c.PutNetwork(n)
}

// DomainForSourceIP implements pkg/floating.MetadataStore: find the
// lease whose IP matches the metadata request's source address across
// every managed network, then resolve the owning domain by matching the
// lease's hostname against a domain name. Domain XML (where the real
// MAC-to-NIC binding lives) is out of scope here, so this
// relies on the convention that a DHCP reservation's hostname is set to
// the domain name it belongs to.
func (c *Cache) DomainForSourceIP(ip net.IP) (*types.Domain, bool) {
	want := ip.String()
	for _, n := range c.ListNetworks() {
		for _, lease := range n.DHCPLeases {
			if lease.IP != want {
				continue
			}
			for _, d := range c.ListDomains() {
				if d.Name == lease.Hostname {
					return d, true
				}
			}
		}
	}
	return nil, false
}
