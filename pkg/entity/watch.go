package entity

import (
	"context"
	"fmt"
	"sync"

	"github.com/parallelvirtualcluster/pvc/pkg/log"
)

// coordClient is the slice of pkg/coord.Client a Collection needs,
// narrowed so this package's tests can fake it without pulling in a real
// ZooKeeper session. GetSignal/ChildrenSignal erase zk.Event detail down
// to "something changed, re-read" since that's all a Collection ever does
// with a watch firing.
type coordClient interface {
	Get(path string) ([]byte, error)
	GetSignal(path string) ([]byte, <-chan struct{}, error)
	Children(path string) ([]string, error)
	ChildrenSignal(path string) ([]string, <-chan struct{}, error)
}

// update is one change delivered to a hook.
type update[T any] struct {
	Name    string
	Value   *T
	Deleted bool
}

// Hook receives every update a Collection observes, in delivery order,
// on its own goroutine — slow hooks only ever delay themselves, never the
// watcher loop or other hooks.
type Hook[T any] func(ctx context.Context, u update[T])

const hookQueueDepth = 256

// Collection watches one schema collection directory (e.g.
// schema.Path(KindNodes)) and keeps an in-memory map plus any registered
// hooks in sync with it. T is the decoded entity type.
type Collection[T any] struct {
	coord    coordClient
	basePath string
	decode   func([]byte) (*T, error)
	onWrite  func(*T) error
	onDelete func(name string) error

	mu    sync.RWMutex
	items map[string]*T

	hookMu sync.Mutex
	hooks  []chan update[T]
}

// NewCollection constructs a watcher for basePath. onWrite/onDelete are
// typically pkg/localcache Put*/Delete* methods; either may be nil.
func NewCollection[T any](
	c coordClient,
	basePath string,
	decode func([]byte) (*T, error),
	onWrite func(*T) error,
	onDelete func(name string) error,
) *Collection[T] {
	return &Collection[T]{
		coord:    c,
		basePath: basePath,
		decode:   decode,
		onWrite:  onWrite,
		onDelete: onDelete,
		items:    make(map[string]*T),
	}
}

// AddHook registers fn to receive every future update on its own
// goroutine with a bounded backlog; if the backlog fills, the oldest
// pending update for that hook is dropped rather than blocking the
// watcher — hooks that need every single transition must keep up.
func (c *Collection[T]) AddHook(ctx context.Context, fn Hook[T]) {
	ch := make(chan update[T], hookQueueDepth)
	c.hookMu.Lock()
	c.hooks = append(c.hooks, ch)
	c.hookMu.Unlock()

	go func() {
		for {
			select {
			case u := <-ch:
				fn(ctx, u)
			case <-ctx.Done():
				return
			}
		}
	}()
}

func (c *Collection[T]) dispatch(u update[T]) {
	c.hookMu.Lock()
	defer c.hookMu.Unlock()
	for _, ch := range c.hooks {
		select {
		case ch <- u:
		default:
			select {
			case <-ch: // drop oldest
			default:
			}
			select {
			case ch <- u:
			default:
			}
		}
	}
}

// Get returns the last-observed value for name, or nil if unknown.
func (c *Collection[T]) Get(name string) *T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.items[name]
}

// List returns every currently-known item.
func (c *Collection[T]) List() []*T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]*T, 0, len(c.items))
	for _, v := range c.items {
		out = append(out, v)
	}
	return out
}

// Run watches the collection's child set and each child's data until ctx
// is done, re-arming watches after every fire (ZooKeeper watches are
// one-shot). Intended to run in its own goroutine for the daemon's
// lifetime.
func (c *Collection[T]) Run(ctx context.Context) {
	childWatches := make(map[string]context.CancelFunc)
	defer func() {
		for _, cancel := range childWatches {
			cancel()
		}
	}()

	for {
		children, events, err := c.coord.ChildrenSignal(c.basePath)
		if err != nil {
			log.Error(fmt.Sprintf("entity: watch children of %s: %v", c.basePath, err))
			select {
			case <-ctx.Done():
				return
			default:
			}
			continue
		}

		seen := make(map[string]bool, len(children))
		for _, name := range children {
			seen[name] = true
			if _, ok := childWatches[name]; ok {
				continue
			}
			childCtx, cancel := context.WithCancel(ctx)
			childWatches[name] = cancel
			go c.watchChild(childCtx, name)
		}
		for name, cancel := range childWatches {
			if !seen[name] {
				cancel()
				delete(childWatches, name)
				c.remove(name)
			}
		}

		select {
		case <-events:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Collection[T]) watchChild(ctx context.Context, name string) {
	path := c.basePath + "/" + name
	for {
		data, events, err := c.coord.GetSignal(path)
		if err != nil {
			return // node likely deleted; Run's next children re-read will reconcile
		}
		c.store(name, data)

		select {
		case <-events:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Collection[T]) store(name string, data []byte) {
	val, err := c.decode(data)
	if err != nil {
		log.Error(fmt.Sprintf("entity: decode %s/%s: %v", c.basePath, name, err))
		return
	}
	c.mu.Lock()
	c.items[name] = val
	c.mu.Unlock()

	if c.onWrite != nil {
		if err := c.onWrite(val); err != nil {
			log.Error(fmt.Sprintf("entity: cache write %s/%s: %v", c.basePath, name, err))
		}
	}
	c.dispatch(update[T]{Name: name, Value: val})
}

func (c *Collection[T]) remove(name string) {
	c.mu.Lock()
	delete(c.items, name)
	c.mu.Unlock()

	if c.onDelete != nil {
		if err := c.onDelete(name); err != nil {
			log.Error(fmt.Sprintf("entity: cache delete %s/%s: %v", c.basePath, name, err))
		}
	}
	c.dispatch(update[T]{Name: name, Deleted: true})
}
