package ipmi

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/parallelvirtualcluster/pvc/pkg/pvcerr"
)

// commandRunner abstracts exec.CommandContext so tests can substitute a
// fake instead of shelling out to a real ipmitool binary.
type commandRunner interface {
	Run(ctx context.Context, args ...string) (stdout string, stderr string, err error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, args ...string) (string, string, error) {
	cmd := exec.CommandContext(ctx, "ipmitool", args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	err := cmd.Run()
	return stdout.String(), stderr.String(), err
}

// Credentials names the BMC this Controller talks to.
type Credentials struct {
	Host     string
	Username string
	Password string
}

// Controller power-controls one node's BMC over IPMI.
type Controller struct {
	creds Credentials
	run   commandRunner
}

// New constructs a Controller against creds, shelling out to the real
// ipmitool binary on PATH.
func New(creds Credentials) *Controller {
	return &Controller{creds: creds, run: execRunner{}}
}

func (c *Controller) connArgs(verb ...string) []string {
	args := []string{
		"-I", "lanplus",
		"-H", c.creds.Host,
		"-U", c.creds.Username,
		"-P", c.creds.Password,
	}
	return append(args, verb...)
}

func (c *Controller) run_(ctx context.Context, verb ...string) (string, error) {
	stdout, stderr, err := c.run.Run(ctx, c.connArgs(verb...)...)
	if err != nil {
		return "", pvcerr.ExecutorFailure("ipmitool", stderr, err)
	}
	return stdout, nil
}

// PowerStatus reports whether the node's chassis is currently powered
// on, per pkg/fencing.PowerControl.
func (c *Controller) PowerStatus(ctx context.Context) (bool, error) {
	out, err := c.run_(ctx, "power", "status")
	if err != nil {
		return false, err
	}
	return strings.Contains(strings.ToLower(out), "is on"), nil
}

// PowerCycle hard power-cycles the node, per pkg/fencing.PowerControl.
// It issues "power cycle" and, if that fails for any reason, falls back
// to a single "power on" (some BMCs refuse "cycle" on a powered-off
// chassis).
func (c *Controller) PowerCycle(ctx context.Context) error {
	_, err := c.run_(ctx, "power", "cycle")
	if err == nil {
		return nil
	}
	if _, onErr := c.run_(ctx, "power", "on"); onErr != nil {
		return fmt.Errorf("ipmi: power cycle failed (%v) and power on retry failed: %w", err, onErr)
	}
	return nil
}

// PowerOff forcibly powers the node off.
func (c *Controller) PowerOff(ctx context.Context) error {
	_, err := c.run_(ctx, "power", "off")
	return err
}

// PowerOn powers the node on.
func (c *Controller) PowerOn(ctx context.Context) error {
	_, err := c.run_(ctx, "power", "on")
	return err
}

// CredentialResolver looks up a node's BMC credentials, implemented by
// pkg/pvcconfig against the cluster's node inventory.
type CredentialResolver func(node string) (Credentials, error)

// Fleet satisfies pkg/fencing.PowerControl across every node in the
// cluster, dialing each node's own BMC lazily via resolve.
type Fleet struct {
	resolve CredentialResolver
}

// NewFleet constructs a Fleet.
func NewFleet(resolve CredentialResolver) *Fleet {
	return &Fleet{resolve: resolve}
}

func (f *Fleet) controllerFor(node string) (*Controller, error) {
	creds, err := f.resolve(node)
	if err != nil {
		return nil, fmt.Errorf("ipmi: resolve credentials for %s: %w", node, err)
	}
	return New(creds), nil
}

// PowerCycle power-cycles node's BMC, per pkg/fencing.PowerControl.
func (f *Fleet) PowerCycle(ctx context.Context, node string) error {
	c, err := f.controllerFor(node)
	if err != nil {
		return err
	}
	return c.PowerCycle(ctx)
}

// PowerStatus reports node's chassis power state as the literal
// "on"/"off" strings pkg/fencing logs, per pkg/fencing.PowerControl.
func (f *Fleet) PowerStatus(ctx context.Context, node string) (string, error) {
	c, err := f.controllerFor(node)
	if err != nil {
		return "", err
	}
	on, err := c.PowerStatus(ctx)
	if err != nil {
		return "", err
	}
	if on {
		return "on", nil
	}
	return "off", nil
}
