package libvirt

import (
	"testing"

	rlibvirt "github.com/digitalocean/go-libvirt"
	"github.com/stretchr/testify/require"
)

func TestMigrateURINamesDestinationNode(t *testing.T) {
	require.Equal(t, "qemu+tcp://hv02/system", migrateURI("hv02"))
}

func TestMigrateFlagsIncludeLiveAndPeerToPeer(t *testing.T) {
	flags := migrateFlags()
	require.NotZero(t, flags&uint64(rlibvirt.MigrateLive))
	require.NotZero(t, flags&uint64(rlibvirt.MigratePeer2peer))
	require.NotZero(t, flags&uint64(rlibvirt.MigratePersistDest))
	require.NotZero(t, flags&uint64(rlibvirt.MigrateUndefineSource))
}

func TestConnReturnsLocalConnectionForOwnNodeOrEmpty(t *testing.T) {
	r := &Runtime{localNode: "hv01", local: &rlibvirt.Libvirt{}}

	l, closeFn, err := r.conn("hv01")
	require.NoError(t, err)
	require.Same(t, r.local, l)
	closeFn()

	l, closeFn, err = r.conn("")
	require.NoError(t, err)
	require.Same(t, r.local, l)
	closeFn()
}
