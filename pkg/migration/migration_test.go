package migration

import (
	"context"
	"testing"

	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

type fakeRuntime struct {
	migrated, started, shutdown []string
	failNext                    bool
}

func (f *fakeRuntime) LiveMigrate(ctx context.Context, uuid, xml, targetNode string, maxDowntimeMS int) error {
	if f.failNext {
		return errTest
	}
	f.migrated = append(f.migrated, uuid+"->"+targetNode)
	return nil
}
func (f *fakeRuntime) Shutdown(ctx context.Context, uuid string) error {
	f.shutdown = append(f.shutdown, uuid)
	return nil
}
func (f *fakeRuntime) Start(ctx context.Context, node, uuid, xml string) error {
	f.started = append(f.started, uuid+"@"+node)
	return nil
}

var errTest = pvcerr.ExecutorFailure("libvirt", "boom", nil)

type fakeLocks struct{ claims, releases int }

func (f *fakeLocks) ClaimLocks(ctx context.Context, domainUUID string) error   { f.claims++; return nil }
func (f *fakeLocks) ReleaseLocks(ctx context.Context, domainUUID string) error { f.releases++; return nil }

type fakeStore struct{ saved *types.Domain }

func (f *fakeStore) SaveDomain(d *types.Domain) error { f.saved = d; return nil }

func TestMigrateSetsLastNodeAndMovesNode(t *testing.T) {
	rt := &fakeRuntime{}
	locks := &fakeLocks{}
	store := &fakeStore{}
	c := New(rt, locks, store)

	d := &types.Domain{UUID: "u1", Name: "web01", Node: "hv01", MigrationMethod: types.MigrationLive}
	require.NoError(t, c.Migrate(context.Background(), d, "hv02", false, false))

	require.Equal(t, "hv02", d.Node)
	require.Equal(t, "hv01", d.LastNode)
	require.Equal(t, 1, locks.claims)
	require.Equal(t, 1, locks.releases)
	require.Same(t, d, store.saved)
}

func TestMigrateRejectsNoneMethodWithoutForce(t *testing.T) {
	c := New(&fakeRuntime{}, &fakeLocks{}, &fakeStore{})
	d := &types.Domain{UUID: "u1", Node: "hv01", MigrationMethod: types.MigrationNone}

	err := c.Migrate(context.Background(), d, "hv02", false, false)
	require.Error(t, err)
	require.True(t, pvcerr.Is(err, pvcerr.KindPrecondition))
}

func TestMigrateFallsBackToShutdownWhenLiveFails(t *testing.T) {
	rt := &fakeRuntime{failNext: true}
	locks := &fakeLocks{}
	store := &fakeStore{}
	c := New(rt, locks, store)

	d := &types.Domain{UUID: "u1", Name: "vm1", Node: "hvA", MigrationMethod: types.MigrationLive}
	require.NoError(t, c.Migrate(context.Background(), d, "hvB", false, false))

	require.Empty(t, rt.migrated)
	require.Equal(t, []string{"u1"}, rt.shutdown)
	require.Equal(t, []string{"u1@hvB"}, rt.started)
	require.Equal(t, "hvB", d.Node)
	require.Equal(t, "hvA", d.LastNode)
}

func TestMigrateForceLiveFailsInsteadOfFallingBack(t *testing.T) {
	rt := &fakeRuntime{failNext: true}
	c := New(rt, &fakeLocks{}, &fakeStore{})

	d := &types.Domain{UUID: "u1", Node: "hvA", MigrationMethod: types.MigrationLive}
	err := c.Migrate(context.Background(), d, "hvB", false, true)

	require.Error(t, err)
	require.Empty(t, rt.shutdown)
	require.Equal(t, "hvA", d.Node)
}

func TestUnmigrateRequiresPriorMigration(t *testing.T) {
	c := New(&fakeRuntime{}, &fakeLocks{}, &fakeStore{})
	d := &types.Domain{UUID: "u1", Node: "hv02"} // LastNode empty: never migrated

	err := c.Unmigrate(context.Background(), d, false, false)
	require.Error(t, err)
	require.True(t, pvcerr.Is(err, pvcerr.KindPrecondition))
}

func TestUnmigrateReturnsToLastNodeAndClearsLineage(t *testing.T) {
	rt := &fakeRuntime{}
	c := New(rt, &fakeLocks{}, &fakeStore{})
	d := &types.Domain{UUID: "u1", Node: "hv02", LastNode: "hv01", MigrationMethod: types.MigrationLive}

	require.NoError(t, c.Unmigrate(context.Background(), d, false, false))
	require.Equal(t, "hv01", d.Node)
	require.Empty(t, d.LastNode)
}

type fakeRenamer struct{ renamed map[string]string }

func (f *fakeRenamer) RenameVolume(ctx context.Context, pool, oldName, newName string) error {
	if f.renamed == nil {
		f.renamed = make(map[string]string)
	}
	f.renamed[oldName] = newName
	return nil
}

func TestRenameDomainVolumesOnlyTouchesSubstringMatches(t *testing.T) {
	r := &fakeRenamer{}
	volumes := []string{"db", "db-backup-db2", "unrelated-volume"}

	renamed, err := RenameDomainVolumes(context.Background(), r, "vms", "db", "db-new", volumes)
	require.NoError(t, err)

	// "db" and "db-backup-db2" both contain "db" as a substring and get
	// touched; "unrelated-volume" does not, preserving the surprising
	// real-world rule from the original source.
	require.ElementsMatch(t, []string{"db-new", "db-new-backup-db2"}, renamed)
	require.Equal(t, "db-new", r.renamed["db"])
	require.Equal(t, "db-new-backup-db2", r.renamed["db-backup-db2"])
	require.NotContains(t, r.renamed, "unrelated-volume")
}
