package fault

import (
	"testing"
	"time"

	"github.com/parallelvirtualcluster/pvc/pkg/types"
	"github.com/stretchr/testify/require"
)

func TestIDIsStableForSameInputs(t *testing.T) {
	a := ID("node_stale_heartbeat", "hv03", "heartbeat not seen in {duration}")
	b := ID("node_stale_heartbeat", "hv03", "heartbeat not seen in {duration}")
	require.Equal(t, a, b)
}

func TestIDDiffersOnSubject(t *testing.T) {
	a := ID("node_stale_heartbeat", "hv03", "tmpl")
	b := ID("node_stale_heartbeat", "hv04", "tmpl")
	require.NotEqual(t, a, b)
}

func TestReportRecurrenceUpdatesExistingInsteadOfDuplicating(t *testing.T) {
	t0 := time.Now()
	first := Report(nil, "node_stale_heartbeat", "hv03", "tmpl", "stale by 30s", 10, t0)
	require.Equal(t, types.FaultStatusNew, first.Status)

	t1 := t0.Add(time.Minute)
	second := Report(first, "node_stale_heartbeat", "hv03", "tmpl", "stale by 90s", 10, t1)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, t0, second.FirstReported)
	require.Equal(t, t1, second.LastReported)
	require.Equal(t, "stale by 90s", second.Message)
}

func TestReportDifferentConditionCreatesNewFault(t *testing.T) {
	t0 := time.Now()
	first := Report(nil, "node_stale_heartbeat", "hv03", "tmpl", "msg", 10, t0)
	other := Report(first, "osd_down", "osd.3", "tmpl2", "msg2", 20, t0)

	require.NotEqual(t, first.ID, other.ID)
}

func TestAcknowledgeIsIdempotent(t *testing.T) {
	f := Report(nil, "kind", "subject", "tmpl", "msg", 5, time.Now())
	t1 := time.Now().Add(time.Hour)
	Acknowledge(f, t1)
	require.Equal(t, types.FaultStatusAck, f.Status)
	require.Equal(t, t1, f.AcknowledgedAt)

	t2 := t1.Add(time.Hour)
	Acknowledge(f, t2)
	require.Equal(t, t1, f.AcknowledgedAt, "second Acknowledge call must not move the timestamp")
}

func TestSortByLastReportedDesc(t *testing.T) {
	now := time.Now()
	old := &types.Fault{ID: "a", LastReported: now.Add(-time.Hour)}
	mid := &types.Fault{ID: "b", LastReported: now.Add(-time.Minute)}
	newest := &types.Fault{ID: "c", LastReported: now}

	faults := []*types.Fault{old, newest, mid}
	SortByLastReportedDesc(faults)

	require.Equal(t, []string{"c", "b", "a"}, []string{faults[0].ID, faults[1].ID, faults[2].ID})
}
