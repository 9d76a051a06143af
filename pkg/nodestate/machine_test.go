package nodestate

import (
	"context"
	"testing"

	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct{ saved []*types.Node }

func (f *fakeWriter) SaveNode(n *types.Node) error {
	f.saved = append(f.saved, n)
	return nil
}

type fakeMover struct {
	migrated, unmigrated []string
}

func (f *fakeMover) SelectTarget(d *types.Domain, excludeNode string) (string, error) {
	return "hv-target", nil
}
func (f *fakeMover) Migrate(ctx context.Context, d *types.Domain, targetNode string, force, forceLive bool) error {
	f.migrated = append(f.migrated, d.Name)
	d.LastNode = d.Node
	d.Node = targetNode
	return nil
}
func (f *fakeMover) Unmigrate(ctx context.Context, d *types.Domain, force, forceLive bool) error {
	f.unmigrated = append(f.unmigrated, d.Name)
	d.Node = d.LastNode
	d.LastNode = ""
	return nil
}

func TestFlushMovesEveryDomainOffTheNode(t *testing.T) {
	w := &fakeWriter{}
	mv := &fakeMover{}
	m := New(w, mv)

	n := &types.Node{Name: "hv01", DomainState: types.DomainStateReady}
	domains := []*types.Domain{
		{Name: "web01", Node: "hv01"},
		{Name: "web02", Node: "hv01"},
		{Name: "web03", Node: "hv02"}, // not on hv01, must be left alone
	}

	require.NoError(t, m.Flush(context.Background(), n, domains, true))

	require.Equal(t, types.DomainStateFlushed, n.DomainState)
	require.ElementsMatch(t, []string{"web01", "web02"}, mv.migrated)
	require.Equal(t, "hv-target", domains[0].Node)
	require.Equal(t, "hv01", domains[0].LastNode)
	require.Equal(t, "hv02", domains[2].Node, "domain not on the flushed node must not move")
}

func TestFlushRejectsIllegalStartState(t *testing.T) {
	m := New(&fakeWriter{}, &fakeMover{})
	n := &types.Node{Name: "hv01", DomainState: types.DomainStateFlushed}

	err := m.Flush(context.Background(), n, nil, true)
	require.Error(t, err)
	require.True(t, pvcerr.Is(err, pvcerr.KindPrecondition))
}

func TestUnflushRestoresOnlyDomainsLastOnThisNode(t *testing.T) {
	w := &fakeWriter{}
	mv := &fakeMover{}
	m := New(w, mv)

	n := &types.Node{Name: "hv01", DomainState: types.DomainStateFlushed}
	domains := []*types.Domain{
		{Name: "web01", Node: "hv-target", LastNode: "hv01"},
		{Name: "web02", Node: "hv-target", LastNode: "hv03"}, // migrated from elsewhere
	}

	require.NoError(t, m.Unflush(context.Background(), n, domains, true))

	require.Equal(t, types.DomainStateReady, n.DomainState)
	require.Equal(t, []string{"web01"}, mv.unmigrated)
	require.Equal(t, "hv01", domains[0].Node)
	require.Empty(t, domains[0].LastNode)
}

func TestDomainStateTransitionTable(t *testing.T) {
	require.True(t, CanTransitionDomainState(types.DomainStateReady, types.DomainStateFlush))
	require.False(t, CanTransitionDomainState(types.DomainStateReady, types.DomainStateFlushed))
	require.False(t, CanTransitionDomainState(types.DomainStateFlushed, types.DomainStateFlush))
}
