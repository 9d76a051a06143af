package main

import (
	"context"
	"fmt"

	"github.com/parallelvirtualcluster/pvc/pkg/entity"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/storageexec"
	"github.com/parallelvirtualcluster/pvc/pkg/taskbus"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// taskHandler dispatches every task this node's subject receives. The
// task bus only ever delivers tasks this node is the RoutingKey for
// ("vm.flush_locks" to a domain's owning node, "osd.add" to whichever
// node won primary at enqueue time), so the two task kinds are handled
// in one switch rather than separate subscriptions.
func taskHandler(
	locks *storageexec.DomainLocks,
	exec *storageexec.Executor,
	writer *entity.Writer,
) taskbus.Handler {
	return func(t *types.Task) error {
		ctx := context.Background()
		switch t.Name {
		case "vm.flush_locks":
			return handleFlushLocks(ctx, t, locks)
		case "osd.add":
			return handleAddOSD(ctx, t, exec, writer)
		default:
			return pvcerr.Validation("unknown task %q", t.Name)
		}
	}
}

func handleFlushLocks(ctx context.Context, t *types.Task, locks *storageexec.DomainLocks) error {
	uuid, _ := t.Kwargs["domain"].(string)
	if uuid == "" {
		return pvcerr.Validation("vm.flush_locks: missing domain kwarg")
	}
	if err := locks.ReleaseLocks(ctx, uuid); err != nil {
		return err
	}
	return locks.ClaimLocks(ctx, uuid)
}

func handleAddOSD(ctx context.Context, t *types.Task, exec *storageexec.Executor, writer *entity.Writer) error {
	node, _ := t.Kwargs["node"].(string)
	dataDevice, _ := t.Kwargs["data_device"].(string)
	dbDevice, _ := t.Kwargs["db_device"].(string)
	if node == "" || dataDevice == "" {
		return pvcerr.Validation("osd.add: node and data_device are required")
	}

	if err := exec.AddOSD(ctx, node, dataDevice, dbDevice); err != nil {
		return err
	}

	ids, err := exec.ListOSDs(ctx)
	if err != nil {
		return err
	}
	for _, id := range ids {
		osd := &types.OSD{ID: id, Node: node, DataDevice: dataDevice, DBDevice: dbDevice}
		if err := writer.SaveOSD(osd); err != nil {
			return fmt.Errorf("osd.add: save osd %s: %w", id, err)
		}
	}
	return nil
}
