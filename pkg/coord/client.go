// Package coord wraps a ZooKeeper session with the primitives the rest of
// the cluster core needs: scoped connection acquisition, recursive
// create/delete, data/children watches, write locks, and leader election.
// Every other coordination-facing package (pkg/entity, pkg/election,
// pkg/fencing, pkg/taskbus) talks to ZooKeeper only through this package.
package coord

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-zookeeper/zk"
	"github.com/parallelvirtualcluster/pvc/pkg/log"
	"github.com/parallelvirtualcluster/pvc/pkg/metrics"
)

// ErrSessionLost is returned (wrapped) from any in-flight call when the
// underlying ZooKeeper session expires. Callers must not retry the call
// themselves; they re-enter once Client reports Connected again.
var ErrSessionLost = errors.New("coord: zookeeper session lost")

// Config configures a Client.
type Config struct {
	Servers        []string
	SessionTimeout time.Duration
}

// Client owns one ZooKeeper session. It is safe for concurrent use.
type Client struct {
	cfg Config

	mu      sync.RWMutex
	conn    *zk.Conn
	events  <-chan zk.Event
	state   zk.State
	closeCh chan struct{}
}

// Dial opens a new ZooKeeper session and blocks until the first
// SyncConnected event or ctx is done.
func Dial(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.SessionTimeout == 0 {
		cfg.SessionTimeout = 10 * time.Second
	}
	conn, events, err := zk.Connect(cfg.Servers, cfg.SessionTimeout)
	if err != nil {
		return nil, fmt.Errorf("coord: dial: %w", err)
	}

	c := &Client{
		cfg:     cfg,
		conn:    conn,
		events:  events,
		closeCh: make(chan struct{}),
	}

	select {
	case <-c.connectedOnce():
		// connectedOnce consumed the HasSession event, so record it here
		// before watchSession becomes the only reader of the event channel.
		c.mu.Lock()
		c.state = zk.StateHasSession
		c.mu.Unlock()
		go c.watchSession()
		return c, nil
	case <-ctx.Done():
		conn.Close()
		return nil, ctx.Err()
	}
}

func (c *Client) connectedOnce() <-chan struct{} {
	ch := make(chan struct{})
	go func() {
		for ev := range c.events {
			if ev.Type == zk.EventSession && ev.State == zk.StateHasSession {
				close(ch)
				return
			}
		}
	}()
	return ch
}

func (c *Client) watchSession() {
	for ev := range c.events {
		if ev.Type != zk.EventSession {
			continue
		}
		c.mu.Lock()
		c.state = ev.State
		c.mu.Unlock()

		switch ev.State {
		case zk.StateExpired, zk.StateDisconnected:
			metrics.CoordSessionLostTotal.Inc()
			log.Warn(fmt.Sprintf("coord: session state changed to %s", ev.State))
		case zk.StateHasSession:
			log.Info("coord: session (re)established")
		}
	}
}

// Connected runs fn with a guarantee that the session was established
// when fn started, the scoped-session-management equivalent of a
// decorator: callers never touch the *zk.Conn directly; Client.Connected
// closes nothing itself (the
// session spans the Client's lifetime, not each call), but it is the
// single choke point that converts "session currently down" into
// ErrSessionLost instead of letting a confusing low-level error surface.
func (c *Client) Connected(ctx context.Context, fn func(ctx context.Context) error) error {
	c.mu.RLock()
	state := c.state
	c.mu.RUnlock()

	if state == zk.StateExpired {
		return ErrSessionLost
	}
	return fn(ctx)
}

// Close terminates the session. Ephemeral nodes owned by this session
// (primary lock, heartbeats) disappear once ZooKeeper notices.
func (c *Client) Close() error {
	close(c.closeCh)
	c.conn.Close()
	return nil
}

// IsConnected reports whether the session currently has a live
// connection, for health/readiness reporting.
func (c *Client) IsConnected() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state == zk.StateHasSession
}

func timed(op string, fn func() error) error {
	timer := metrics.NewTimer()
	err := fn()
	timer.ObserveDurationVec(metrics.CoordOpDuration, op)
	return err
}
