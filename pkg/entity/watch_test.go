package entity

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeCoord is an in-memory coordClient good enough to drive Collection's
// watch loop deterministically in tests: Fire() simulates a ZooKeeper
// watch event by closing the previously-returned signal channel.
type fakeCoord struct {
	mu       sync.Mutex
	data     map[string][]byte
	children []string
	sigCh    chan struct{}
	childSig chan struct{}
}

func newFakeCoord() *fakeCoord {
	return &fakeCoord{
		data:     make(map[string][]byte),
		sigCh:    make(chan struct{}, 1),
		childSig: make(chan struct{}, 1),
	}
}

func (f *fakeCoord) Get(path string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.data[path], nil
}

func (f *fakeCoord) GetSignal(path string) ([]byte, <-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{}, 1)
	f.sigCh = ch
	return f.data[path], ch, nil
}

func (f *fakeCoord) Children(path string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.children...), nil
}

func (f *fakeCoord) ChildrenSignal(path string) ([]string, <-chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch := make(chan struct{}, 1)
	f.childSig = ch
	return append([]string(nil), f.children...), ch, nil
}

func (f *fakeCoord) setChild(name string, data []byte) {
	f.mu.Lock()
	found := false
	for _, c := range f.children {
		if c == name {
			found = true
			break
		}
	}
	if !found {
		f.children = append(f.children, name)
	}
	f.data["/base/"+name] = data
	childSig := f.childSig
	f.mu.Unlock()
	select {
	case childSig <- struct{}{}:
	default:
	}
}

type fakeEntity struct {
	Name string `json:"name"`
}

func TestCollectionObservesNewChild(t *testing.T) {
	fc := newFakeCoord()
	var written []*fakeEntity
	var mu sync.Mutex

	col := NewCollection(fc, "/base", decodeJSON[fakeEntity],
		func(v *fakeEntity) error {
			mu.Lock()
			written = append(written, v)
			mu.Unlock()
			return nil
		}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go col.Run(ctx)

	data, _ := json.Marshal(fakeEntity{Name: "hv01"})
	fc.setChild("hv01", data)

	require.Eventually(t, func() bool {
		return col.Get("hv01") != nil
	}, time.Second, 5*time.Millisecond)

	require.Equal(t, "hv01", col.Get("hv01").Name)
	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(written) == 1
	}, time.Second, 5*time.Millisecond)
}

func TestCollectionHookReceivesUpdates(t *testing.T) {
	fc := newFakeCoord()
	col := NewCollection(fc, "/base", decodeJSON[fakeEntity], nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go col.Run(ctx)

	var got []string
	var mu sync.Mutex
	col.AddHook(ctx, func(_ context.Context, u update[fakeEntity]) {
		mu.Lock()
		got = append(got, u.Name)
		mu.Unlock()
	})

	data, _ := json.Marshal(fakeEntity{Name: "hv02"})
	fc.setChild("hv02", data)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) == 1 && got[0] == "hv02"
	}, time.Second, 5*time.Millisecond)
}
