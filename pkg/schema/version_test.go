package schema

import "testing"

type fakeUpgradeCtx struct {
	data map[string][]byte
}

func newFakeUpgradeCtx() *fakeUpgradeCtx {
	return &fakeUpgradeCtx{data: make(map[string][]byte)}
}

func (f *fakeUpgradeCtx) Exists(path string) (bool, error) {
	_, ok := f.data[path]
	return ok, nil
}

func (f *fakeUpgradeCtx) Create(path string, data []byte) error {
	f.data[path] = data
	return nil
}

func (f *fakeUpgradeCtx) Get(path string) ([]byte, error) {
	return f.data[path], nil
}

func (f *fakeUpgradeCtx) Set(path string, data []byte) error {
	f.data[path] = data
	return nil
}

func (f *fakeUpgradeCtx) Children(path string) ([]string, error) {
	return nil, nil
}

func TestUpgradeNeverRunsBackward(t *testing.T) {
	saved := steps
	defer func() { steps = saved }()
	steps = nil

	ran := []string{}
	RegisterUpgrade(0, 1, func(ctx UpgradeContext) error {
		ran = append(ran, "0->1")
		return nil
	})
	RegisterUpgrade(1, 2, func(ctx UpgradeContext) error {
		ran = append(ran, "1->2")
		return nil
	})

	ctx := newFakeUpgradeCtx()
	v, err := Upgrade(ctx, 1)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if v != 2 {
		t.Fatalf("expected version 2, got %d", v)
	}
	if len(ran) != 1 || ran[0] != "1->2" {
		t.Fatalf("expected only 1->2 to run starting from version 1, ran %v", ran)
	}
}

func TestUpgradeRejectsDowngrade(t *testing.T) {
	ctx := newFakeUpgradeCtx()
	if _, err := Upgrade(ctx, CurrentVersion+1); err == nil {
		t.Fatal("expected an error when stored version is newer than CurrentVersion")
	}
}

func TestPathPanicsOnArgMismatch(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected Path to panic on arg-count mismatch")
		}
	}()
	Path(KindNode) // wants one arg, given zero
}

func TestPathIsStableForSameArgs(t *testing.T) {
	a := Path(KindNode, "hv01")
	b := Path(KindNode, "hv01")
	if a != b {
		t.Fatalf("expected identical paths for identical args, got %q and %q", a, b)
	}
	if a != RootPrefix+"/nodes/hv01" {
		t.Fatalf("unexpected path shape: %q", a)
	}
}
