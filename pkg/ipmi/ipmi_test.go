package ipmi

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

type fakeRunner struct {
	calls  [][]string
	stdout string
	err    error
}

func (f *fakeRunner) Run(ctx context.Context, args ...string) (string, string, error) {
	f.calls = append(f.calls, args)
	if f.err != nil {
		return "", "boom", f.err
	}
	return f.stdout, "", nil
}

func newTestController(r *fakeRunner) *Controller {
	return &Controller{creds: Credentials{Host: "bmc01", Username: "admin", Password: "secret"}, run: r}
}

func TestPowerStatusParsesOnState(t *testing.T) {
	r := &fakeRunner{stdout: "Chassis Power is on\n"}
	c := newTestController(r)

	on, err := c.PowerStatus(context.Background())

	require.NoError(t, err)
	require.True(t, on)
	require.Contains(t, r.calls[0], "status")
}

func TestPowerStatusParsesOffState(t *testing.T) {
	r := &fakeRunner{stdout: "Chassis Power is off\n"}
	c := newTestController(r)

	on, err := c.PowerStatus(context.Background())

	require.NoError(t, err)
	require.False(t, on)
}

func TestConnArgsNeverLeakPasswordIntoACustomVerbPosition(t *testing.T) {
	r := &fakeRunner{}
	c := newTestController(r)
	_, _ = c.PowerStatus(context.Background())

	args := r.calls[0]
	require.Equal(t, []string{"-I", "lanplus", "-H", "bmc01", "-U", "admin", "-P", "secret", "power", "status"}, args)
}

func TestPowerCycleFallsBackToExplicitOnAfterCycleFailure(t *testing.T) {
	calls := 0
	r := &fakeRunner{}
	c := newTestController(r)
	c.run = runnerFunc(func(ctx context.Context, args ...string) (string, string, error) {
		calls++
		if calls == 1 {
			return "", "chassis already off", errors.New("exit 1")
		}
		return "", "", nil
	})

	err := c.PowerCycle(context.Background())

	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestFleetPowerStatusResolvesPerNodeCredentials(t *testing.T) {
	resolved := map[string]Credentials{
		"hv01": {Host: "bmc-hv01", Username: "admin", Password: "a"},
	}
	seen := ""
	fleet := NewFleet(func(node string) (Credentials, error) {
		seen = node
		creds, ok := resolved[node]
		if !ok {
			return Credentials{}, errors.New("unknown node")
		}
		return creds, nil
	})

	_, err := fleet.PowerStatus(context.Background(), "hv02")
	require.Error(t, err)
	require.Equal(t, "hv02", seen)
}

type runnerFunc func(ctx context.Context, args ...string) (string, string, error)

func (f runnerFunc) Run(ctx context.Context, args ...string) (string, string, error) {
	return f(ctx, args...)
}
