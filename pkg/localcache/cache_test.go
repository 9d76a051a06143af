package localcache

import (
	"testing"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func TestCachePutGetNode(t *testing.T) {
	c := newTestCache(t)

	n := &types.Node{Name: "hv01", DaemonState: types.DaemonStateRun}
	require.NoError(t, c.PutNode(n))

	got, err := c.GetNode("hv01")
	require.NoError(t, err)
	require.NotNil(t, got)
	require.Equal(t, types.DaemonStateRun, got.DaemonState)

	require.Len(t, c.ListNodes(), 1)

	require.NoError(t, c.DeleteNode("hv01"))
	got, err = c.GetNode("hv01")
	require.NoError(t, err)
	require.Nil(t, got)
}

func TestCacheIsPrimaryDefaultsFalse(t *testing.T) {
	c := newTestCache(t)
	require.False(t, c.IsPrimary())

	c.SetPrimary(true)
	require.True(t, c.IsPrimary())

	c.SetPrimary(false)
	require.False(t, c.IsPrimary())
}

func TestCacheListDomainsAndTasksRoundTrip(t *testing.T) {
	c := newTestCache(t)

	require.NoError(t, c.PutDomain(&types.Domain{UUID: "abc", Name: "web01"}))
	require.Len(t, c.ListDomains(), 1)

	require.NoError(t, c.PutTask(&types.Task{ID: "deadbeef", RoutingKey: "primary"}))
	tasks := c.ListTasks()
	require.Len(t, tasks, 1)
	require.Equal(t, "primary", tasks[0].RoutingKey)
}
