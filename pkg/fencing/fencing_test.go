package fencing

import (
	"context"
	"testing"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

type fakePower struct{ cycled []string }

func (f *fakePower) PowerCycle(ctx context.Context, node string) error {
	f.cycled = append(f.cycled, node)
	return nil
}
func (f *fakePower) PowerStatus(ctx context.Context, node string) (string, error) { return "on", nil }

type fakeReleaser struct{ released bool }

func (r *fakeReleaser) Release() error { r.released = true; return nil }

type fakeLocker struct{ lastReleaser *fakeReleaser }

func (l *fakeLocker) AcquireLock(ctx context.Context, dir string) (Releaser, error) {
	l.lastReleaser = &fakeReleaser{}
	return l.lastReleaser, nil
}

type fakeWriter struct {
	savedNode    *types.Node
	savedDomains []*types.Domain
}

func (w *fakeWriter) SaveNode(n *types.Node) error { w.savedNode = n; return nil }
func (w *fakeWriter) SaveDomain(d *types.Domain) error {
	w.savedDomains = append(w.savedDomains, d)
	return nil
}

func TestFenceCyclesPowerMarksFencedAndRecovers(t *testing.T) {
	power := &fakePower{}
	locker := &fakeLocker{}
	writer := &fakeWriter{}
	m := New(power, locker, writer, func(node string) string { return "/pvc/nodes/" + node + "/fence-lock" })

	fenced := &types.Node{Name: "hv03", DaemonState: types.DaemonStateRun}
	survivor := &types.Node{Name: "hv04", DaemonState: types.DaemonStateRun, DomainState: types.DomainStateReady}
	running := &types.Domain{Name: "vm1", Node: "hv03", State: types.DomainLifecycleStart}
	stopped := &types.Domain{Name: "vm2", Node: "hv03", State: types.DomainLifecycleStop, NodeAutostart: false}

	require.NoError(t, m.Fence(context.Background(), fenced, []*types.Node{fenced, survivor}, []*types.Domain{running, stopped}))

	require.Equal(t, []string{"hv03"}, power.cycled)
	require.Equal(t, types.DaemonStateFenced, fenced.DaemonState)
	require.True(t, locker.lastReleaser.released)

	require.Equal(t, "hv04", running.Node)
	require.Equal(t, types.DomainLifecycleStart, running.State)
	require.Equal(t, "hv03", stopped.Node)
	require.Equal(t, types.DomainLifecycleStop, stopped.State)
	require.Len(t, writer.savedDomains, 1)
}

func TestSweepSkipsAlreadyFencedAndFreshHeartbeats(t *testing.T) {
	power := &fakePower{}
	locker := &fakeLocker{}
	writer := &fakeWriter{}
	m := New(power, locker, writer, func(node string) string { return "/lock/" + node })

	fresh := &types.Node{Name: "hv01", DaemonState: types.DaemonStateRun, LastHeartbeat: time.Now()}
	alreadyFenced := &types.Node{Name: "hv02", DaemonState: types.DaemonStateFenced, LastHeartbeat: time.Now().Add(-time.Hour)}
	stale := &types.Node{Name: "hv03", DaemonState: types.DaemonStateRun, LastHeartbeat: time.Now().Add(-time.Hour)}

	m.sweep(context.Background(), []*types.Node{fresh, alreadyFenced, stale}, nil)

	require.Equal(t, []string{"hv03"}, power.cycled)
}
