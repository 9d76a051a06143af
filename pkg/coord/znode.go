package coord

import (
	"fmt"
	"strings"

	"github.com/go-zookeeper/zk"
)

// Exists reports whether path currently exists.
func (c *Client) Exists(path string) (bool, error) {
	var ok bool
	err := timed("exists", func() error {
		var err error
		ok, _, err = c.conn.Exists(path)
		return err
	})
	return ok, wrap(err)
}

// Get returns the data stored at path.
func (c *Client) Get(path string) ([]byte, error) {
	var data []byte
	err := timed("get", func() error {
		var err error
		data, _, err = c.conn.Get(path)
		return err
	})
	return data, wrap(err)
}

// GetW returns the data at path plus a channel that fires once on the
// next change (data write, delete, or any child create/delete under it
// for a children watch — this is a data watch, so only writes/deletes).
func (c *Client) GetW(path string) ([]byte, <-chan zk.Event, error) {
	var data []byte
	var events <-chan zk.Event
	err := timed("getw", func() error {
		var err error
		var ev <-chan zk.Event
		data, _, ev, err = c.conn.GetW(path)
		events = ev
		return err
	})
	return data, events, wrap(err)
}

// Children lists the immediate children of path.
func (c *Client) Children(path string) ([]string, error) {
	var children []string
	err := timed("children", func() error {
		var err error
		children, _, err = c.conn.Children(path)
		return err
	})
	return children, wrap(err)
}

// ChildrenW lists children of path plus a channel that fires once when
// the child set changes.
func (c *Client) ChildrenW(path string) ([]string, <-chan zk.Event, error) {
	var children []string
	var events <-chan zk.Event
	err := timed("childrenw", func() error {
		var err error
		var ev <-chan zk.Event
		children, _, ev, err = c.conn.ChildrenW(path)
		events = ev
		return err
	})
	return children, events, wrap(err)
}

// Create creates a persistent node at path with data, creating no parents.
func (c *Client) Create(path string, data []byte) error {
	return wrap(timed("create", func() error {
		_, err := c.conn.Create(path, data, 0, zk.WorldACL(zk.PermAll))
		return err
	}))
}

// CreateEphemeral creates an ephemeral node tied to this session's
// lifetime, used for heartbeats and lock/election candidacy.
func (c *Client) CreateEphemeral(path string, data []byte) error {
	return wrap(timed("create_ephemeral", func() error {
		_, err := c.conn.Create(path, data, zk.FlagEphemeral, zk.WorldACL(zk.PermAll))
		return err
	}))
}

// CreateEphemeralSequential creates an ephemeral sequential node under
// parent, returning the full path ZooKeeper assigned it (parent+seq
// suffix). Used for the leader-election and write-lock recipes.
func (c *Client) CreateEphemeralSequential(pathPrefix string, data []byte) (string, error) {
	var created string
	err := timed("create_ephemeral_seq", func() error {
		var err error
		created, err = c.conn.Create(pathPrefix, data, zk.FlagEphemeral|zk.FlagSequence, zk.WorldACL(zk.PermAll))
		return err
	})
	return created, wrap(err)
}

// CreateRecursive creates path and every missing ancestor as empty
// persistent nodes, then writes data to the leaf. Safe to call when path
// (or any ancestor) already exists.
func (c *Client) CreateRecursive(path string, data []byte) error {
	parts := strings.Split(strings.TrimPrefix(path, "/"), "/")
	cur := ""
	for i, p := range parts {
		cur += "/" + p
		last := i == len(parts)-1
		ok, err := c.Exists(cur)
		if err != nil {
			return err
		}
		if ok {
			if last {
				return c.Set(cur, data)
			}
			continue
		}
		leafData := []byte{}
		if last {
			leafData = data
		}
		if err := c.Create(cur, leafData); err != nil && err != zk.ErrNodeExists {
			return wrap(err)
		}
	}
	return nil
}

// Set overwrites the data at path, ignoring the existing version (last
// writer wins — entity projections resolve conflicts at a higher level
// via watch-driven re-read, not via CAS here).
func (c *Client) Set(path string, data []byte) error {
	return wrap(timed("set", func() error {
		_, err := c.conn.Set(path, data, -1)
		return err
	}))
}

// Delete removes the node at path.
func (c *Client) Delete(path string) error {
	return wrap(timed("delete", func() error {
		return c.conn.Delete(path, -1)
	}))
}

// DeleteRecursive removes path and everything beneath it, children first.
func (c *Client) DeleteRecursive(path string) error {
	children, err := c.Children(path)
	if err != nil {
		if err == zk.ErrNoNode {
			return nil
		}
		return err
	}
	for _, child := range children {
		if err := c.DeleteRecursive(path + "/" + child); err != nil {
			return err
		}
	}
	if err := c.Delete(path); err != nil && err != zk.ErrNoNode {
		return err
	}
	return nil
}

// wrap maps the go-zookeeper sentinel for "no session" into ErrSessionLost
// so every caller classifies it the same way regardless of which
// operation surfaced it.
func wrap(err error) error {
	if err == nil {
		return nil
	}
	if err == zk.ErrConnectionClosed || err == zk.ErrSessionExpired {
		return fmt.Errorf("%w: %v", ErrSessionLost, err)
	}
	return err
}
