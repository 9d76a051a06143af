package migration

import (
	"context"
	"fmt"
	"strings"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// DomainRuntime is the slice of pkg/libvirt this package needs to move a
// running (or stopped) domain between nodes.
type DomainRuntime interface {
	LiveMigrate(ctx context.Context, uuid, xml, targetNode string, maxDowntimeMS int) error
	Shutdown(ctx context.Context, uuid string) error
	Start(ctx context.Context, node, uuid, xml string) error
}

// DiskLocker is the slice of pkg/storageexec this package needs so only
// one node ever has a domain's RBD volumes open for write at a time.
type DiskLocker interface {
	ClaimLocks(ctx context.Context, domainUUID string) error
	ReleaseLocks(ctx context.Context, domainUUID string) error
}

// DomainStore persists the post-migration Domain record (new Node,
// LastNode lineage). Implemented by pkg/entity against pkg/coord.
type DomainStore interface {
	SaveDomain(d *types.Domain) error
}

// Controller orchestrates domain migrations.
type Controller struct {
	runtime DomainRuntime
	locks   DiskLocker
	store   DomainStore
}

// New constructs a Controller.
func New(runtime DomainRuntime, locks DiskLocker, store DomainStore) *Controller {
	return &Controller{runtime: runtime, locks: locks, store: store}
}

// Migrate moves d to targetNode using d.MigrationMethod (or method, if
// force overrides it to something other than none). A live migration
// that fails falls back to shutdown+restart on targetNode unless
// forceLive is set, in which case the failure is returned as-is.
// After a successful move it sets d.LastNode to the node the domain left,
// establishing the lineage unmigrate relies on.
func (c *Controller) Migrate(ctx context.Context, d *types.Domain, targetNode string, force, forceLive bool) error {
	timer := metrics.NewTimer()
	method := d.MigrationMethod
	if method == types.MigrationNone && !force {
		metrics.MigrationsTotal.WithLabelValues(string(method), "rejected").Inc()
		return pvcerr.Precondition("domain %s has migration_method=none; pass force to override", d.Name)
	}
	if method == types.MigrationNone {
		method = types.MigrationLive
	}
	if targetNode == d.Node {
		return pvcerr.Validation("domain %s is already on node %s", d.Name, targetNode)
	}

	sourceNode := d.Node
	defer timer.ObserveDurationVec(metrics.MigrationDuration, string(method))

	if err := c.locks.ClaimLocks(ctx, d.UUID); err != nil {
		metrics.MigrationsTotal.WithLabelValues(string(method), "failure").Inc()
		return pvcerr.ExecutorFailure("storageexec", "claim locks", err)
	}

	err := c.move(ctx, d, targetNode, method, forceLive)
	if err != nil {
		_ = c.locks.ReleaseLocks(ctx, d.UUID)
		metrics.MigrationsTotal.WithLabelValues(string(method), "failure").Inc()
		return pvcerr.ExecutorFailure("libvirt", "migrate", err)
	}

	if err := c.locks.ReleaseLocks(ctx, d.UUID); err != nil {
		log.Error(fmt.Sprintf("migration: release locks for %s: %v", d.UUID, err))
	}

	d.LastNode = sourceNode
	d.Node = targetNode

	if err := c.store.SaveDomain(d); err != nil {
		metrics.MigrationsTotal.WithLabelValues(string(method), "failure").Inc()
		return pvcerr.CoordinationLost(err)
	}
	metrics.MigrationsTotal.WithLabelValues(string(method), "success").Inc()
	return nil
}

// move performs the actual domain relocation for method. A failed live
// migration falls back to a cold shutdown+start on targetNode unless
// forceLive is set.
func (c *Controller) move(ctx context.Context, d *types.Domain, targetNode string, method types.MigrationMethod, forceLive bool) error {
	switch method {
	case types.MigrationLive:
		err := c.runtime.LiveMigrate(ctx, d.UUID, d.XML, targetNode, d.MigrationMaxDowntimeMS)
		if err == nil {
			return nil
		}
		if forceLive {
			return err
		}
		log.Error(fmt.Sprintf("migration: live migrate %s to %s failed, falling back to shutdown: %v", d.Name, targetNode, err))
		return c.shutdownAndStart(ctx, d, targetNode)
	case types.MigrationShutdown:
		return c.shutdownAndStart(ctx, d, targetNode)
	default:
		return fmt.Errorf("unknown migration method %q", method)
	}
}

func (c *Controller) shutdownAndStart(ctx context.Context, d *types.Domain, targetNode string) error {
	if err := c.runtime.Shutdown(ctx, d.UUID); err != nil {
		return err
	}
	return c.runtime.Start(ctx, targetNode, d.UUID, d.XML)
}

// Unmigrate reverses the last recorded migration, moving d back to
// LastNode. Well-defined only when HasMigratedFrom is true (testable
// property); LastNode is cleared on success so a second
// Unmigrate call without an intervening Migrate fails cleanly.
func (c *Controller) Unmigrate(ctx context.Context, d *types.Domain, force, forceLive bool) error {
	if !d.HasMigratedFrom() {
		return pvcerr.Precondition("domain %s has no recorded last_node to unmigrate to", d.Name)
	}
	target := d.LastNode
	if err := c.Migrate(ctx, d, target, force, forceLive); err != nil {
		return err
	}
	d.LastNode = ""
	return c.store.SaveDomain(d)
}

// VolumeRenamer is the slice of pkg/storageexec this package needs to
// rename RBD volumes alongside a domain rename.
type VolumeRenamer interface {
	RenameVolume(ctx context.Context, pool, oldName, newName string) error
}

// RenameDomainVolumes renames every volume in volumeNames whose name
// contains oldDomainName as a literal substring, replacing only the
// first occurrence with newDomainName. This is a deliberate, surprising
// rule preserved from original_source/CephInstance.py: a volume whose
// name merely happens to contain the old domain name (e.g. "db-backup-db2"
// when renaming domain "db") gets renamed too, even though it may belong
// to a different, unrelated domain. Returns the names that were renamed.
func RenameDomainVolumes(ctx context.Context, renamer VolumeRenamer, pool, oldDomainName, newDomainName string, volumeNames []string) ([]string, error) {
	var renamed []string
	for _, v := range volumeNames {
		if !strings.Contains(v, oldDomainName) {
			continue
		}
		newName := strings.Replace(v, oldDomainName, newDomainName, 1)
		if err := renamer.RenameVolume(ctx, pool, v, newName); err != nil {
			return renamed, pvcerr.ExecutorFailure("storageexec", "rename volume "+v, err)
		}
		renamed = append(renamed, newName)
	}
	return renamed, nil
}
