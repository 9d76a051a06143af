package storageexec

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type call struct {
	name string
	args []string
}

type fakeRunner struct {
	calls   []call
	stdout  map[string]string // keyed by name+" "+args[0] for simple lookups
	failOn  map[string]string // same key -> stderr to fail with
	failErr error
}

func (f *fakeRunner) key(name string, args []string) string {
	if len(args) == 0 {
		return name
	}
	return name + " " + args[0]
}

func (f *fakeRunner) Run(ctx context.Context, name string, args ...string) (string, string, error) {
	f.calls = append(f.calls, call{name: name, args: args})
	k := f.key(name, args)
	if f.failOn != nil {
		if stderr, ok := f.failOn[k]; ok {
			err := f.failErr
			if err == nil {
				err = errors.New("exit status 1")
			}
			return "", stderr, err
		}
	}
	if f.stdout != nil {
		if out, ok := f.stdout[k]; ok {
			return out, "", nil
		}
	}
	return "", "", nil
}

func newTestExecutor(r *fakeRunner) *Executor {
	return &Executor{run: r}
}

func TestRemoveOSDWithoutForceStopsOnUnsafeToDestroy(t *testing.T) {
	r := &fakeRunner{failOn: map[string]string{"ceph osd": "osd.3 is not safe to destroy"}}
	e := newTestExecutor(r)

	err := e.RemoveOSD(context.Background(), "3", false)

	require.Error(t, err)
	// only the safe-to-destroy check ran; out/down/purge never attempted
	require.Len(t, r.calls, 1)
	require.Equal(t, []string{"osd", "safe-to-destroy", "3"}, r.calls[0].args)
}

func TestRemoveOSDWithForceSkipsSafetyPollButRunsEveryStep(t *testing.T) {
	r := &fakeRunner{}
	e := newTestExecutor(r)

	err := e.RemoveOSD(context.Background(), "3", true)

	require.NoError(t, err)
	require.Len(t, r.calls, 3)
	require.Equal(t, []string{"osd", "out", "3"}, r.calls[0].args)
	require.Equal(t, []string{"osd", "down", "3"}, r.calls[1].args)
	require.Equal(t, []string{"osd", "purge", "3", "--yes-i-really-mean-it"}, r.calls[2].args)
}

func TestRemoveOSDWithForceAttemptsAllStepsEvenAfterEarlyFailure(t *testing.T) {
	r := &fakeRunner{failOn: map[string]string{"ceph osd": "out failed"}}
	e := newTestExecutor(r)

	err := e.RemoveOSD(context.Background(), "3", true)

	require.Error(t, err)
	// "down" and "purge" still get attempted despite "out" failing first.
	require.Len(t, r.calls, 3)
	require.Equal(t, []string{"osd", "out", "3"}, r.calls[0].args)
	require.Equal(t, []string{"osd", "down", "3"}, r.calls[1].args)
	require.Equal(t, []string{"osd", "purge", "3", "--yes-i-really-mean-it"}, r.calls[2].args)
}

func TestCreateVolumeConvertsBytesToMegabytes(t *testing.T) {
	r := &fakeRunner{}
	e := newTestExecutor(r)

	require.NoError(t, e.CreateVolume(context.Background(), "vms", "db", 4*1024*1024*1024))

	require.Len(t, r.calls, 1)
	require.Equal(t, "rbd", r.calls[0].name)
	require.Equal(t, []string{"create", "vms/db", "--size", "4096"}, r.calls[0].args)
}

func TestRenameVolumeUsesPoolQualifiedNames(t *testing.T) {
	r := &fakeRunner{}
	e := newTestExecutor(r)

	require.NoError(t, e.RenameVolume(context.Background(), "vms", "db", "db-renamed"))

	require.Equal(t, []string{"rename", "vms/db", "vms/db-renamed"}, r.calls[0].args)
}

func TestListOSDsParsesJSONNumberArray(t *testing.T) {
	r := &fakeRunner{stdout: map[string]string{"ceph osd": "[0,1,2]"}}
	e := newTestExecutor(r)

	ids, err := e.ListOSDs(context.Background())

	require.NoError(t, err)
	require.Equal(t, []string{"0", "1", "2"}, ids)
}

func TestDomainLocksClaimReturnsLockFailure(t *testing.T) {
	r := &fakeRunner{failOn: map[string]string{"rbd lock": "lock busy"}}
	e := newTestExecutor(r)
	vols := []VolumeRef{{Pool: "vms", Name: "db-root"}}
	locks := NewDomainLocks(e, func(domainUUID string) []VolumeRef { return vols })

	err := locks.ClaimLocks(context.Background(), "uuid-1")

	require.Error(t, err)
}

func TestDomainLocksReleaseContinuesPastFirstFailure(t *testing.T) {
	r := &fakeRunner{failOn: map[string]string{"rbd lock": "lock not held"}}
	e := newTestExecutor(r)
	vols := []VolumeRef{
		{Pool: "vms", Name: "db-root"},
		{Pool: "vms", Name: "db-data"},
	}
	locks := NewDomainLocks(e, func(domainUUID string) []VolumeRef { return vols })

	err := locks.ReleaseLocks(context.Background(), "uuid-1")

	// both unlocks fail; the second is still attempted after the first.
	require.Error(t, err)
	require.Len(t, r.calls, 2)
}
