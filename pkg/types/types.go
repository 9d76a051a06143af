// Package types holds the in-memory shapes of every entity the cluster
// core reasons about. Nothing here talks to ZooKeeper directly; pkg/entity
// and pkg/schema own that. Entities never hold pointers to each other —
// they reference peers by name/UUID and resolve through a registry, so
// the graph stays acyclic and trivially serializable.
package types

import "time"

type DaemonState string

const (
	DaemonStateInit   DaemonState = "init"
	DaemonStateRun    DaemonState = "run"
	DaemonStateStop   DaemonState = "stop"
	DaemonStateDead   DaemonState = "dead"
	DaemonStateFenced DaemonState = "fenced"
)

type CoordinatorState string

const (
	CoordinatorStateNone       CoordinatorState = "none"
	CoordinatorStateSecondary  CoordinatorState = "secondary"
	CoordinatorStateTakeover   CoordinatorState = "takeover"
	CoordinatorStatePrimary    CoordinatorState = "primary"
	CoordinatorStateRelinquish CoordinatorState = "relinquish"
)

type DomainState string

const (
	DomainStateReady   DomainState = "ready"
	DomainStateFlush   DomainState = "flush"
	DomainStateFlushed DomainState = "flushed"
	DomainStateUnflush DomainState = "unflush"
)

// PluginHealth is one named health plugin's most recent result on a node.
type PluginHealth struct {
	Name        string
	LastRun     time.Time
	HealthDelta int // 0-100, subtracted from the node's overall health
	Message     string
}

// Node is a hypervisor in the cluster, identified by short hostname.
type Node struct {
	Name                string
	DaemonState         DaemonState
	CoordinatorState    CoordinatorState
	DomainState         DomainState
	LastHeartbeat       time.Time
	PVCVersion          string
	Kernel              string
	Arch                string
	Load5               float64
	VCPUTotal           int
	VCPUAllocated       int
	MemoryTotalMB       int64
	MemoryUsedMB        int64
	MemoryFreeMB        int64
	MemoryAllocatedMB   int64
	MemoryProvisionedMB int64
	RunningDomains      []string // UUIDs of domains currently running here
	PluginHealth        []PluginHealth
	HealthPercent       int
}

// OverallHealth computes 100 minus the sum of plugin health deltas,
// floored at zero.
func (n *Node) OverallHealth() int {
	total := 0
	for _, p := range n.PluginHealth {
		total += p.HealthDelta
	}
	h := 100 - total
	if h < 0 {
		h = 0
	}
	return h
}

// Schedulable reports whether this node may receive new domain placements.
func (n *Node) Schedulable() bool {
	return n.DaemonState == DaemonStateRun && n.DomainState == DomainStateReady
}

// DomainLifecycleState is the user/operator-facing desired or observed
// state of a VM, distinct from DomainState (which is a *node*'s
// VM-hosting readiness, confusingly similar in name to the source
// system's own terminology).
type DomainLifecycleState string

const (
	DomainLifecycleStart     DomainLifecycleState = "start"
	DomainLifecycleStop      DomainLifecycleState = "stop"
	DomainLifecycleShutdown  DomainLifecycleState = "shutdown"
	DomainLifecycleRestart   DomainLifecycleState = "restart"
	DomainLifecycleDisable   DomainLifecycleState = "disable"
	DomainLifecycleMigrate   DomainLifecycleState = "migrate"
	DomainLifecycleUnmigrate DomainLifecycleState = "unmigrate"
	DomainLifecycleProvision DomainLifecycleState = "provision"
	DomainLifecycleImport    DomainLifecycleState = "import"
	DomainLifecycleRestore   DomainLifecycleState = "restore"
	DomainLifecycleMirror    DomainLifecycleState = "mirror"
	DomainLifecycleFail      DomainLifecycleState = "fail"
)

// Selector picks the scoring function the Placement Engine uses.
type Selector string

const (
	SelectorMem     Selector = "mem"
	SelectorMemProv Selector = "memprov"
	SelectorVCPUs   Selector = "vcpus"
	SelectorLoad    Selector = "load"
	SelectorVMs     Selector = "vms"
	SelectorNone    Selector = "none" // cluster-default, resolved by caller
)

// MigrationMethod controls how the Migration Controller moves a running VM.
type MigrationMethod string

const (
	MigrationLive     MigrationMethod = "live"
	MigrationShutdown MigrationMethod = "shutdown"
	MigrationNone     MigrationMethod = "none"
)

// Tag is an ordered, named annotation on a domain.
type Tag struct {
	Name      string
	Type      string
	Protected bool
}

// Snapshot is a point-in-time capture of a domain's XML plus its RBD
// volume snapshots.
type Snapshot struct {
	Name         string
	Timestamp    time.Time
	XML          string
	RBDSnapshots []string
}

// Domain is a libvirt-managed VM, identified by UUID; Name is unique
// cluster-wide.
type Domain struct {
	UUID                   string
	Name                   string
	XML                    string
	State                  DomainLifecycleState
	Node                   string
	LastNode               string // non-empty iff a "migrated-from" lineage holds
	FailedReason           string
	NodeLimit              []string // empty == any node
	NodeSelector           Selector
	NodeAutostart          bool // one-shot: cleared after it fires once
	MigrationMethod        MigrationMethod
	MigrationMaxDowntimeMS int
	Profile                string
	Tags                   []Tag
	Snapshots              []Snapshot
}

// HasMigratedFrom reports whether unmigrate is well-defined for this
// domain: only a domain with a recorded last_node can be sent back.
func (d *Domain) HasMigratedFrom() bool {
	return d.LastNode != ""
}

// InNodeLimit reports whether node is permitted to host this domain.
func (d *Domain) InNodeLimit(node string) bool {
	if len(d.NodeLimit) == 0 {
		return true
	}
	for _, n := range d.NodeLimit {
		if n == node {
			return true
		}
	}
	return false
}

// NetworkType distinguishes managed (PVC-operated DHCP/DNS/gateway)
// networks from bridged (pass-through) ones.
type NetworkType string

const (
	NetworkTypeManaged NetworkType = "managed"
	NetworkTypeBridged NetworkType = "bridged"
)

// ACLRule is one ordered firewall rule in a managed network's in/out list.
type ACLRule struct {
	Description string
	Order       int
	Rule        string
}

// DHCPReservation is operator-declared desired state: a MAC pinned to an
// IP/hostname. Kept distinct from the coordinator-observed lease map per
// VXNetworkInstance.py's model — collapsing the two loses the
// declared-vs-observed distinction the source relies on.
type DHCPReservation struct {
	MAC      string
	IP       string
	Hostname string
}

// DHCPLease is an observed lease that pkg/floating's DHCP responder
// handed out; it is not desired state. Leases are keyed by MAC, and a new
// lease for a MAC replaces that MAC's earlier one.
type DHCPLease struct {
	MAC       string
	IP        string
	Hostname  string
	ExpiresAt time.Time
}

// Network is identified by VNI.
type Network struct {
	VNI              int
	Type             NetworkType
	MTU              int
	DNSDomain        string
	NameServers      []string
	IPv4Network      string
	IPv4Gateway      string
	IPv4DHCPFlag     bool
	IPv4DHCPStart    string
	IPv4DHCPEnd      string
	IPv6Network      string
	IPv6Gateway      string
	IPv6DHCPFlag     bool
	ACLIn            []ACLRule
	ACLOut           []ACLRule
	DHCPReservations map[string]DHCPReservation // keyed by MAC
	DHCPLeases       map[string]DHCPLease       // keyed by MAC
}

// OSDStats mirrors what the Storage Executor reports back for an OSD.
type OSDStats struct {
	Up          bool
	In          bool
	Weight      float64
	Reweight    float64
	PGs         int
	KB          int64
	Utilization float64
	Var         float64
	Used        int64
	Avail       int64
	WrOps       int64
	WrData      int64
	RdOps       int64
	RdData      int64
	State       string
}

// OSD is one Ceph Object Storage Daemon.
type OSD struct {
	ID         string
	Node       string
	DataDevice string
	DBDevice   string // optional
	VGName     string
	LVName     string
	IsSplit    bool
	Stats      OSDStats
}

// PoolStats mirrors Ceph pool-level stats the Storage Executor reports.
type PoolStats struct {
	Used       int64
	Free       int64
	NumObjects int64
	ReadBytes  int64
	WriteBytes int64
	ReadOps    int64
	WriteOps   int64
}

// Pool is a Ceph storage pool.
type Pool struct {
	Name        string
	PGs         int
	Tier        string
	Replication string // e.g. "3" or "copies=3,min=2"
	Stats       PoolStats
}

// VolumeStats mirrors `rbd info`-derived metadata.
type VolumeStats struct {
	Format     int
	Features   []string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// Volume is an RBD volume within a pool.
type Volume struct {
	Pool  string
	Name  string
	SizeB int64
	Stats VolumeStats
}

// VolumeSnapshot is a named RBD snapshot of a volume.
type VolumeSnapshot struct {
	Pool      string
	Volume    string
	Name      string
	Timestamp time.Time
}

// FaultStatus tracks whether an operator has acknowledged a fault.
type FaultStatus string

const (
	FaultStatusNew FaultStatus = "new"
	FaultStatusAck FaultStatus = "ack"
)

// Fault is a deduplicated, ageable, acknowledgeable health event. ID is a
// stable content hash of (Kind, Subject, MessageTemplate) so recurrence
// of the same condition updates LastReported instead of duplicating it.
type Fault struct {
	ID              string
	Kind            string
	Subject         string
	MessageTemplate string
	Message         string
	HealthDelta     int
	Status          FaultStatus
	FirstReported   time.Time
	LastReported    time.Time
	AcknowledgedAt  time.Time
}

// TaskState is the terminal-or-not lifecycle state of a dispatched task.
type TaskState string

const (
	TaskPending TaskState = "pending"
	TaskStarted TaskState = "started"
	TaskSuccess TaskState = "success"
	TaskFailure TaskState = "failure"
)

// TaskProgress is the mutable status blob a worker overwrites as a task
// runs; Result is only present once set by the task itself.
type TaskProgress struct {
	Current int
	Total   int
	Status  string
	Result  map[string]any
}

// Task is a short-id, opaque-payload unit of work routed to one node's
// queue. RoutingKey is either a literal node name or the sentinel
// "primary", which pkg/taskbus resolves to the current primary's name at
// enqueue time, not at execution time.
type Task struct {
	ID         string
	Name       string // dotted, e.g. "vm.flush_locks", "osd.add"
	RoutingKey string
	Kwargs     map[string]any
	State      TaskState
	Progress   TaskProgress
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// PrimarySentinel is the routing key resolved to "whichever node is
// primary at enqueue time".
const PrimarySentinel = "primary"
