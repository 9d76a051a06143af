package taskbus

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
	"github.com/parallelvirtualcluster/pvc/pkg/types"
)

// subjectPrefix namespaces every per-node task subject.
const subjectPrefix = "pvc.tasks."

// Subject returns the NATS subject for a node's task queue.
func Subject(node string) string {
	return subjectPrefix + node
}

// NewID generates an 8-hex-character task id, short enough to read off
// a CLI prompt and collision-resistant enough for a cluster's daily task
// volume.
func NewID() (string, error) {
	var b [4]byte
	if _, err := rand.Read(b[:]); err != nil {
		return "", err
	}
	return hex.EncodeToString(b[:]), nil
}

// PrimaryResolver returns the current primary node's name, consulted
// exactly once per Enqueue call when RoutingKey is types.PrimarySentinel.
type PrimaryResolver func() (string, error)

// QueueMirror durably records a task under its resolved node's queue key
// in ZooKeeper; implemented by pkg/entity against pkg/coord. The Bus only
// writes the mirror and never reads it back.
type QueueMirror interface {
	SaveTask(t *types.Task) error
}

// Bus publishes tasks to per-node NATS subjects and mirrors them into
// ZooKeeper.
type Bus struct {
	conn    *nats.Conn
	mirror  QueueMirror
	primary PrimaryResolver
}

// New constructs a Bus over an already-connected NATS connection.
func New(conn *nats.Conn, mirror QueueMirror, primary PrimaryResolver) *Bus {
	return &Bus{conn: conn, mirror: mirror, primary: primary}
}

// Enqueue resolves t.RoutingKey (the literal sentinel "primary" becomes
// whichever node Bus.primary reports right now), assigns an id and
// timestamps if unset, mirrors the task into ZooKeeper, then publishes it
// to the resolved node's NATS subject.
func (b *Bus) Enqueue(t *types.Task) error {
	if t.ID == "" {
		id, err := NewID()
		if err != nil {
			return fmt.Errorf("taskbus: generate id: %w", err)
		}
		t.ID = id
	}
	now := time.Now()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if t.State == "" {
		t.State = types.TaskPending
	}

	if t.RoutingKey == types.PrimarySentinel {
		resolved, err := b.primary()
		if err != nil {
			return pvcerr.CoordinationLost(err)
		}
		t.RoutingKey = resolved
	}
	node := t.RoutingKey

	if err := b.mirror.SaveTask(t); err != nil {
		return pvcerr.CoordinationLost(err)
	}

	data, err := json.Marshal(t)
	if err != nil {
		return fmt.Errorf("taskbus: marshal task %s: %w", t.ID, err)
	}
	if err := b.conn.Publish(Subject(node), data); err != nil {
		return pvcerr.ExecutorFailure("nats", "publish", err)
	}

	metrics.TasksTotal.WithLabelValues(string(t.State)).Inc()
	metrics.TaskQueueDepth.WithLabelValues(node).Inc()
	return nil
}

// Handler processes one task delivered to this node's subject.
type Handler func(t *types.Task) error

// Subscribe registers fn against this node's task subject using a queue
// group so, if two processes on the same node somehow both subscribe,
// only one handles any given task.
func (b *Bus) Subscribe(node string, fn Handler) (*nats.Subscription, error) {
	return b.conn.QueueSubscribe(Subject(node), "pvc-workers-"+node, func(msg *nats.Msg) {
		var t types.Task
		if err := json.Unmarshal(msg.Data, &t); err != nil {
			return
		}
		timer := metrics.NewTimer()
		if err := fn(&t); err != nil {
			t.State = types.TaskFailure
			t.Progress.Status = err.Error()
		} else if t.State != types.TaskFailure {
			t.State = types.TaskSuccess
		}
		timer.ObserveDurationVec(metrics.TaskDuration, t.Name)
		if err := b.mirror.SaveTask(&t); err != nil {
			return
		}
	})
}
