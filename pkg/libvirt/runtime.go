package libvirt

import (
	"context"
	"fmt"
	"net"
	"time"

	rlibvirt "github.com/digitalocean/go-libvirt"
	"github.com/digitalocean/go-libvirt/socket/dialers"
)

// DefaultSocketPath is the default libvirtd Unix socket.
const DefaultSocketPath = "/var/run/libvirt/libvirt-sock"

const dialTimeout = 5 * time.Second

// Runtime implements Domain lifecycle and migration operations against
// libvirtd: this node's own daemon over a local Unix socket, and any
// other node's daemon over a TCP URI when an operation names a remote
// target (LiveMigrate's destination, cold Start after a Shutdown
// migration).
type Runtime struct {
	localNode string
	local     *rlibvirt.Libvirt
}

// NewRuntime connects to the local libvirtd over socketPath ("" uses
// DefaultSocketPath) and returns a Runtime that treats localNode as
// "this node" for dispatching operations locally vs. over the wire.
func NewRuntime(localNode, socketPath string) (*Runtime, error) {
	if socketPath == "" {
		socketPath = DefaultSocketPath
	}
	l := rlibvirt.NewWithDialer(dialers.NewLocal(dialers.WithSocket(socketPath)))
	if err := l.Connect(); err != nil {
		return nil, fmt.Errorf("libvirt: connect to %s: %w", socketPath, err)
	}
	return &Runtime{localNode: localNode, local: l}, nil
}

// Close disconnects from the local libvirtd.
func (r *Runtime) Close() error {
	if r.local != nil {
		return r.local.Disconnect()
	}
	return nil
}

// conn returns the libvirt connection to use for node: the already-open
// local connection when node is this runtime's own node, otherwise a
// fresh TCP connection to that node's libvirtd that the caller must
// close.
func (r *Runtime) conn(node string) (conn *rlibvirt.Libvirt, closeFn func(), err error) {
	if node == "" || node == r.localNode {
		return r.local, func() {}, nil
	}
	dialer := dialers.NewRemote(node, dialers.UseCustomDialer(func() (net.Conn, error) {
		return net.DialTimeout("tcp", net.JoinHostPort(node, "16509"), dialTimeout)
	}))
	remote := rlibvirt.NewWithDialer(dialer)
	if err := remote.Connect(); err != nil {
		return nil, nil, fmt.Errorf("libvirt: connect to node %s: %w", node, err)
	}
	return remote, func() { _ = remote.Disconnect() }, nil
}

// migrateURI builds the destination libvirt connection URI for a live
// migration target node.
func migrateURI(targetNode string) string {
	return fmt.Sprintf("qemu+tcp://%s/system", targetNode)
}

// migrateFlags is the flag set used for every live migration: peer-to-
// peer (libvirtd on the source drives the whole migration rather than
// the client juggling both ends), persistent at the destination, and
// undefined at the source once the domain is running elsewhere.
func migrateFlags() uint64 {
	return uint64(rlibvirt.MigrateLive | rlibvirt.MigratePeer2peer | rlibvirt.MigratePersistDest | rlibvirt.MigrateUndefineSource)
}

func lookup(l *rlibvirt.Libvirt, uuid string) (rlibvirt.Domain, error) {
	parsed, err := rlibvirt.UUIDParse(uuid)
	if err != nil {
		return rlibvirt.Domain{}, fmt.Errorf("libvirt: parse uuid %s: %w", uuid, err)
	}
	return l.DomainLookupByUUID(parsed)
}

// Define creates (but does not start) a domain from xml, returning its
// UUID.
func (r *Runtime) Define(ctx context.Context, xml string) (string, error) {
	dom, err := r.local.DomainDefineXML(xml)
	if err != nil {
		return "", fmt.Errorf("libvirt: define domain: %w", err)
	}
	return rlibvirt.UUIDString(dom.UUID), nil
}

// Undefine removes a domain's persistent configuration; the domain must
// already be stopped.
func (r *Runtime) Undefine(ctx context.Context, uuid string) error {
	dom, err := lookup(r.local, uuid)
	if err != nil {
		return fmt.Errorf("libvirt: lookup domain %s: %w", uuid, err)
	}
	if err := r.local.DomainUndefine(dom); err != nil {
		return fmt.Errorf("libvirt: undefine domain %s: %w", uuid, err)
	}
	return nil
}

// Start implements migration.DomainRuntime: it defines (if xml is
// non-empty, i.e. this is a cold-migration landing on a fresh node) and
// creates the domain on node, which may be this runtime's own node or a
// remote one.
func (r *Runtime) Start(ctx context.Context, node, uuid, xml string) error {
	l, closeFn, err := r.conn(node)
	if err != nil {
		return err
	}
	defer closeFn()

	var dom rlibvirt.Domain
	if xml != "" {
		dom, err = l.DomainDefineXML(xml)
		if err != nil {
			return fmt.Errorf("libvirt: define domain %s on %s: %w", uuid, node, err)
		}
	} else {
		dom, err = lookup(l, uuid)
		if err != nil {
			return fmt.Errorf("libvirt: lookup domain %s on %s: %w", uuid, node, err)
		}
	}
	if err := l.DomainCreate(dom); err != nil {
		return fmt.Errorf("libvirt: start domain %s on %s: %w", uuid, node, err)
	}
	return nil
}

// Shutdown requests a graceful ACPI shutdown of the domain on this node.
func (r *Runtime) Shutdown(ctx context.Context, uuid string) error {
	dom, err := lookup(r.local, uuid)
	if err != nil {
		return fmt.Errorf("libvirt: lookup domain %s: %w", uuid, err)
	}
	if err := r.local.DomainShutdown(dom); err != nil {
		return fmt.Errorf("libvirt: shutdown domain %s: %w", uuid, err)
	}
	return nil
}

// Destroy forcibly powers off the domain on this node, for use when a
// graceful shutdown did not complete (e.g. from a task timeout, or
// pkg/fencing evacuating a node whose daemon is unresponsive but whose
// libvirtd still answers).
func (r *Runtime) Destroy(ctx context.Context, uuid string) error {
	dom, err := lookup(r.local, uuid)
	if err != nil {
		return fmt.Errorf("libvirt: lookup domain %s: %w", uuid, err)
	}
	if err := r.local.DomainDestroy(dom); err != nil {
		return fmt.Errorf("libvirt: destroy domain %s: %w", uuid, err)
	}
	return nil
}

// LiveMigrate implements migration.DomainRuntime: it sets the maximum
// tolerated downtime then performs a peer-to-peer, persistent-at-
// destination live migration to targetNode. Disk contents are not
// copied — every volume lives on the shared Ceph pool already reachable
// from targetNode, so only VM state transfers.
func (r *Runtime) LiveMigrate(ctx context.Context, uuid, xml, targetNode string, maxDowntimeMS int) error {
	dom, err := lookup(r.local, uuid)
	if err != nil {
		return fmt.Errorf("libvirt: lookup domain %s: %w", uuid, err)
	}

	if maxDowntimeMS > 0 {
		if err := r.local.DomainMigrateSetMaxDowntime(dom, uint64(maxDowntimeMS), 0); err != nil {
			return fmt.Errorf("libvirt: set max downtime for %s: %w", uuid, err)
		}
	}

	desturi := migrateURI(targetNode)
	flags := migrateFlags()
	if err := r.local.DomainMigrateToURI3(dom, desturi, nil, flags); err != nil {
		return fmt.Errorf("libvirt: migrate domain %s to %s: %w", uuid, targetNode, err)
	}
	return nil
}

// AttachDevice hot-attaches a device (e.g. an additional RBD disk or
// network interface) described by deviceXML to a running domain.
func (r *Runtime) AttachDevice(ctx context.Context, uuid, deviceXML string) error {
	dom, err := lookup(r.local, uuid)
	if err != nil {
		return fmt.Errorf("libvirt: lookup domain %s: %w", uuid, err)
	}
	if err := r.local.DomainAttachDevice(dom, deviceXML); err != nil {
		return fmt.Errorf("libvirt: attach device to %s: %w", uuid, err)
	}
	return nil
}

// DetachDevice hot-detaches a previously attached device.
func (r *Runtime) DetachDevice(ctx context.Context, uuid, deviceXML string) error {
	dom, err := lookup(r.local, uuid)
	if err != nil {
		return fmt.Errorf("libvirt: lookup domain %s: %w", uuid, err)
	}
	if err := r.local.DomainDetachDevice(dom, deviceXML); err != nil {
		return fmt.Errorf("libvirt: detach device from %s: %w", uuid, err)
	}
	return nil
}

// DomainStats reports the live CPU/memory/balloon counters libvirtd
// tracks for a running domain.
type DomainStats struct {
	CPUTimeNS    uint64
	MemoryKB     uint64
	MaxMemoryKB  uint64
	VCPUCount    uint
	SwapInBytes  uint64
	SwapOutBytes uint64
}

// GetDomainStats reads current resource usage for uuid on this node.
func (r *Runtime) GetDomainStats(ctx context.Context, uuid string) (DomainStats, error) {
	dom, err := lookup(r.local, uuid)
	if err != nil {
		return DomainStats{}, fmt.Errorf("libvirt: lookup domain %s: %w", uuid, err)
	}
	info, err := r.local.DomainGetInfo(dom)
	if err != nil {
		return DomainStats{}, fmt.Errorf("libvirt: get info for %s: %w", uuid, err)
	}
	return DomainStats{
		CPUTimeNS:   info.CPUTime,
		MemoryKB:    info.Memory,
		MaxMemoryKB: info.MaxMem,
		VCPUCount:   uint(info.NrVirtCPU),
	}, nil
}

// GetXMLDesc returns the current live (or, if the domain is stopped,
// persistent) domain XML, used to refresh types.Domain.XML after a
// define/migrate so the coordinator holds what libvirtd actually runs.
func (r *Runtime) GetXMLDesc(ctx context.Context, uuid string) (string, error) {
	dom, err := lookup(r.local, uuid)
	if err != nil {
		return "", fmt.Errorf("libvirt: lookup domain %s: %w", uuid, err)
	}
	return r.local.DomainGetXMLDesc(dom, 0)
}
