package storageexec

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"

	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
)

// commandRunner abstracts exec.CommandContext so tests can substitute a
// fake instead of shelling out to a real ceph/rbd binary.
type commandRunner interface {
	Run(ctx context.Context, name string, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Executor implements the Storage Executor interface over the ceph/rbd
// CLIs.
type Executor struct {
	run commandRunner
}

// New constructs an Executor that shells out to the real ceph/rbd
// binaries on PATH.
func New() *Executor {
	return &Executor{run: execRunner{}}
}

func (e *Executor) ceph(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := e.run.Run(ctx, "ceph", args...)
	if err != nil {
		return "", pvcerr.ExecutorFailure("ceph", stderr, err)
	}
	return stdout, nil
}

func (e *Executor) rbd(ctx context.Context, args ...string) (string, error) {
	stdout, stderr, err := e.run.Run(ctx, "rbd", args...)
	if err != nil {
		return "", pvcerr.ExecutorFailure("rbd", stderr, err)
	}
	return stdout, nil
}

// ListOSDs runs `ceph osd ls` and returns the reported OSD ids.
func (e *Executor) ListOSDs(ctx context.Context) ([]string, error) {
	out, err := e.ceph(ctx, "osd", "ls", "--format", "json")
	if err != nil {
		return nil, err
	}
	return parseJSONStringArray(out)
}

// AddOSD provisions a new OSD on dataDevice, with an optional separate
// dbDevice for its RocksDB/WAL.
func (e *Executor) AddOSD(ctx context.Context, node, dataDevice, dbDevice string) error {
	args := []string{"osd", "new"}
	if dbDevice != "" {
		args = append(args, "--block.db", dbDevice)
	}
	args = append(args, dataDevice)
	_, err := e.ceph(ctx, args...)
	return err
}

// RemoveOSD removes osdID. When force is false it first runs a single
// `ceph osd safe-to-destroy` check and returns its error without touching
// the OSD; when force is true that check is skipped. Either way, once
// past it, RemoveOSD attempts every removal step (mark out, mark down,
// purge) even if an earlier step in
// the sequence fails, matching original_source/CephInstance.py's literal
// behavior: force does not mean "abort on first error", it means "skip
// the safety wait".
func (e *Executor) RemoveOSD(ctx context.Context, osdID string, force bool) error {
	var firstErr error
	record := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}

	if !force {
		record(e.waitSafeToDestroy(ctx, osdID))
		if firstErr != nil {
			return firstErr
		}
	}

	_, err := e.ceph(ctx, "osd", "out", osdID)
	record(err)
	_, err = e.ceph(ctx, "osd", "down", osdID)
	record(err)
	_, err = e.ceph(ctx, "osd", "purge", osdID, "--yes-i-really-mean-it")
	record(err)

	return firstErr
}

func (e *Executor) waitSafeToDestroy(ctx context.Context, osdID string) error {
	_, err := e.ceph(ctx, "osd", "safe-to-destroy", osdID)
	return err
}

// SetOSD / UnsetOSD toggle a global Ceph OSD flag, e.g. "noout", "noin".
func (e *Executor) SetOSD(ctx context.Context, flag string) error {
	_, err := e.ceph(ctx, "osd", "set", flag)
	return err
}

func (e *Executor) UnsetOSD(ctx context.Context, flag string) error {
	_, err := e.ceph(ctx, "osd", "unset", flag)
	return err
}

// OSDIn / OSDOut mark a single OSD in or out of the acting set.
func (e *Executor) OSDIn(ctx context.Context, osdID string) error {
	_, err := e.ceph(ctx, "osd", "in", osdID)
	return err
}

func (e *Executor) OSDOut(ctx context.Context, osdID string) error {
	_, err := e.ceph(ctx, "osd", "out", osdID)
	return err
}

// CreatePool creates a replicated pool with the given placement-group
// count.
func (e *Executor) CreatePool(ctx context.Context, name string, pgs int) error {
	_, err := e.ceph(ctx, "osd", "pool", "create", name, strconv.Itoa(pgs))
	return err
}

func (e *Executor) DeletePool(ctx context.Context, name string) error {
	_, err := e.ceph(ctx, "osd", "pool", "delete", name, name, "--yes-i-really-really-mean-it")
	return err
}

// CreateVolume creates an RBD image of sizeB bytes in pool.
func (e *Executor) CreateVolume(ctx context.Context, pool, name string, sizeB int64) error {
	_, err := e.rbd(ctx, "create", fmt.Sprintf("%s/%s", pool, name), "--size", strconv.FormatInt(sizeB/(1024*1024), 10))
	return err
}

func (e *Executor) DeleteVolume(ctx context.Context, pool, name string) error {
	_, err := e.rbd(ctx, "rm", fmt.Sprintf("%s/%s", pool, name))
	return err
}

// RenameVolume renames an RBD image within pool. See
// migration.RenameDomainVolumes for the substring-matching caller rule.
func (e *Executor) RenameVolume(ctx context.Context, pool, oldName, newName string) error {
	_, err := e.rbd(ctx, "rename", fmt.Sprintf("%s/%s", pool, oldName), fmt.Sprintf("%s/%s", pool, newName))
	return err
}

// CreateSnapshot creates a named RBD snapshot of volume.
func (e *Executor) CreateSnapshot(ctx context.Context, pool, volume, snapName string) error {
	_, err := e.rbd(ctx, "snap", "create", fmt.Sprintf("%s/%s@%s", pool, volume, snapName))
	return err
}

func (e *Executor) DeleteSnapshot(ctx context.Context, pool, volume, snapName string) error {
	_, err := e.rbd(ctx, "snap", "rm", fmt.Sprintf("%s/%s@%s", pool, volume, snapName))
	return err
}

// GetStatus runs `ceph status` for the cluster health summary.
func (e *Executor) GetStatus(ctx context.Context) (string, error) {
	return e.ceph(ctx, "status", "--format", "json")
}

// GetUtil returns raw `ceph osd df` output for capacity-planning callers.
func (e *Executor) GetUtil(ctx context.Context) (string, error) {
	return e.ceph(ctx, "osd", "df", "--format", "json")
}

// LockVolume/UnlockVolume implement the RBD exclusive-lock claim/release
// pkg/migration's DiskLocker uses to single-flight which node has a
// domain's disks open for write during a migration.
func (e *Executor) LockVolume(ctx context.Context, pool, name, lockID string) error {
	_, err := e.rbd(ctx, "lock", "add", fmt.Sprintf("%s/%s", pool, name), lockID)
	return err
}

func (e *Executor) UnlockVolume(ctx context.Context, pool, name, lockID, lockerClient string) error {
	_, err := e.rbd(ctx, "lock", "remove", fmt.Sprintf("%s/%s", pool, name), lockID, lockerClient)
	return err
}

// VolumeRef names one RBD volume backing part of a domain's disks.
type VolumeRef struct {
	Pool string
	Name string
}

// VolumeResolver reports which RBD volumes back a domain's disks, so
// DomainLocks knows what to lock/unlock without storageexec itself
// having to track domain-to-volume ownership.
type VolumeResolver func(domainUUID string) []VolumeRef

// DomainLocks adapts Executor's per-volume RBD locking into the
// per-domain pkg/migration.DiskLocker shape: claiming a domain's locks
// means claiming every volume backing it, using the domain's UUID as the
// lock cookie so a crashed claimer's lock is identifiable on inspection.
type DomainLocks struct {
	exec     *Executor
	resolver VolumeResolver
}

// NewDomainLocks constructs a DomainLocks over exec using resolver to map
// a domain UUID to its volumes.
func NewDomainLocks(exec *Executor, resolver VolumeResolver) *DomainLocks {
	return &DomainLocks{exec: exec, resolver: resolver}
}

// ClaimLocks locks every volume backing domainUUID. On a partial failure
// it unwinds any locks it already took before returning the error.
func (d *DomainLocks) ClaimLocks(ctx context.Context, domainUUID string) error {
	vols := d.resolver(domainUUID)
	for i, v := range vols {
		if err := d.exec.LockVolume(ctx, v.Pool, v.Name, domainUUID); err != nil {
			for _, claimed := range vols[:i] {
				_ = d.exec.UnlockVolume(ctx, claimed.Pool, claimed.Name, domainUUID, domainUUID)
			}
			return err
		}
	}
	return nil
}

// ReleaseLocks unlocks every volume backing domainUUID, continuing past
// any single volume's unlock failure so one stuck lock doesn't block
// releasing the rest.
func (d *DomainLocks) ReleaseLocks(ctx context.Context, domainUUID string) error {
	var firstErr error
	for _, v := range d.resolver(domainUUID) {
		if err := d.exec.UnlockVolume(ctx, v.Pool, v.Name, domainUUID, domainUUID); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// parseJSONStringArray decodes `ceph ... --format json` output shaped as
// a flat array, where each element may be a JSON number (osd ids) or a
// JSON string, into a slice of strings.
func parseJSONStringArray(raw string) ([]string, error) {
	var nums []json.Number
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.UseNumber()
	if err := dec.Decode(&nums); err != nil {
		return nil, fmt.Errorf("storageexec: decode ceph json array: %w", err)
	}
	out := make([]string, 0, len(nums))
	for _, n := range nums {
		out = append(out, n.String())
	}
	return out, nil
}
