package schema

import (
	"fmt"
	"sort"
)

// CurrentVersion is the schema version this build writes and expects.
// Bump it, and add a matching Upgrade entry, whenever a path shape or
// node payload format changes.
const CurrentVersion = 1

// Upgrader applies one schema migration step. Implementations are
// registered here via RegisterUpgrade and do their I/O through the
// UpgradeContext they are given, so this package stays free of I/O. No
// package in this tree registers a step at CurrentVersion 1.
type Upgrader func(ctx UpgradeContext) error

// UpgradeContext is the minimal surface an Upgrader needs: a coordination
// client, narrowed to just Exists/Create/Get/Set/Children so pkg/schema never
// has to import pkg/coord (which in turn imports pkg/schema).
type UpgradeContext interface {
	Exists(path string) (bool, error)
	Create(path string, data []byte) error
	Get(path string) ([]byte, error)
	Set(path string, data []byte) error
	Children(path string) ([]string, error)
}

// step is one registered migration.
type step struct {
	From, To int
	Run      Upgrader
}

var steps []step

// RegisterUpgrade adds a migration step from version `from` to `to`, for
// example from an init() in the package that implements it. Steps are
// kept sorted by ascending `From` and must never run backward.
func RegisterUpgrade(from, to int, run Upgrader) {
	steps = append(steps, step{From: from, To: to, Run: run})
	sort.Slice(steps, func(i, j int) bool { return steps[i].From < steps[j].From })
}

// Upgrade follows the chain of registered steps starting at the stored
// version: it runs the step whose From equals the current version, moves
// to that step's To, and repeats, stopping at the first version no step
// starts from, and returns the version reached. It does not stop at
// CurrentVersion on its own; a registered chain is followed to its end.
// It refuses to run if
// the stored version is already newer than CurrentVersion — a downgrade
// is a deployment error, not something this package silently tolerates.
func Upgrade(ctx UpgradeContext, storedVersion int) (int, error) {
	if storedVersion > CurrentVersion {
		return storedVersion, fmt.Errorf("schema: stored version %d is newer than binary's %d", storedVersion, CurrentVersion)
	}
	v := storedVersion
	for _, s := range steps {
		if s.From < v {
			continue
		}
		if s.From > v {
			break
		}
		if err := s.Run(ctx); err != nil {
			return v, fmt.Errorf("schema: upgrade %d->%d: %w", s.From, s.To, err)
		}
		v = s.To
	}
	return v, nil
}
