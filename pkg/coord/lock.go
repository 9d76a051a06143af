package coord

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/go-zookeeper/zk"
)

// Lock is a distributed write lock acquired via the standard ZooKeeper
// lock recipe: an ephemeral sequential child of lockDir, granted once its
// sequence number is the lowest among siblings. Used by pkg/fencing to
// single-flight power actions per node and by pkg/migration to single-
// flight disk-lock claims.
type Lock struct {
	c       *Client
	dir     string
	myPath  string
}

// AcquireLock blocks until the lock under dir is granted or ctx is done.
// dir is created if missing.
func (c *Client) AcquireLock(ctx context.Context, dir string) (*Lock, error) {
	if err := c.CreateRecursive(dir, nil); err != nil {
		return nil, err
	}
	myPath, err := c.CreateEphemeralSequential(dir+"/lock-", nil)
	if err != nil {
		return nil, err
	}
	l := &Lock{c: c, dir: dir, myPath: myPath}

	for {
		lowest, waitOn, err := l.lowestAndPredecessor()
		if err != nil {
			return nil, err
		}
		if lowest {
			return l, nil
		}

		_, _, events, err := c.conn.GetW(waitOn)
		if err != nil {
			if err == zk.ErrNoNode {
				continue // predecessor vanished between listing and watching; retry
			}
			return nil, wrap(err)
		}

		select {
		case <-events:
		case <-ctx.Done():
			_ = l.Release()
			return nil, ctx.Err()
		}
	}
}

// lowestAndPredecessor reports whether myPath currently holds the lowest
// sequence number, and if not, the full path of the immediate predecessor
// to watch.
func (l *Lock) lowestAndPredecessor() (bool, string, error) {
	children, err := l.c.Children(l.dir)
	if err != nil {
		return false, "", err
	}
	sort.Strings(children)
	myName := l.myPath[strings.LastIndex(l.myPath, "/")+1:]

	idx := -1
	for i, ch := range children {
		if ch == myName {
			idx = i
			break
		}
	}
	if idx == -1 {
		return false, "", fmt.Errorf("coord: lock node %s disappeared", l.myPath)
	}
	if idx == 0 {
		return true, "", nil
	}
	return false, l.dir + "/" + children[idx-1], nil
}

// Release gives up the lock by deleting the held ephemeral node.
func (l *Lock) Release() error {
	err := l.c.Delete(l.myPath)
	if err == zk.ErrNoNode {
		return nil
	}
	return err
}
