package coord

import (
	"context"
)

// Election wraps the same ephemeral-sequential recipe as Lock, but with
// names and a Campaign/Resign API matching how pkg/election talks about
// primary takeover, keeping the two recipes textually distinct even
// though they share an implementation.
type Election struct {
	lock *Lock
}

// Campaign blocks until this process becomes primary (lowest sequence
// number under dir) or ctx is done. The returned Election must be
// Resign()'d to relinquish primary status; losing the ZooKeeper session
// relinquishes it implicitly once the ephemeral node expires.
func (c *Client) Campaign(ctx context.Context, dir string) (*Election, error) {
	lock, err := c.AcquireLock(ctx, dir)
	if err != nil {
		return nil, err
	}
	return &Election{lock: lock}, nil
}

// Resign relinquishes primary status immediately, allowing the next-
// lowest candidate to take over.
func (e *Election) Resign() error {
	return e.lock.Release()
}
