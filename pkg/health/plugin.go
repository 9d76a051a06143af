package health

import (
	"context"
	"fmt"
)

// Plugin is a named node health probe. Unlike Checker's binary
// healthy/unhealthy, a Plugin reports a HealthDelta the way
// original_source's node health plugins do: a negative delta lowers the
// node's aggregate health score, a positive delta (rare; a self-healing
// condition clearing) raises it back. subject identifies what the delta
// applies to, for fault dedup (a node name, or "node/disk" for a
// per-resource check).
type Plugin interface {
	Name() string
	Check(ctx context.Context) (delta int, subject, message string, err error)
}

// CheckerPlugin adapts any Checker into a Plugin: unhealthy reports a
// fixed negative delta, healthy reports a zero delta (no fault, nothing
// to clear — the caller's fault store already drops faults that stop
// being reported).
type CheckerPlugin struct {
	PluginName  string
	Subject     string
	Delta       int
	Check_      Checker
	cfg         Config
	status      *Status
}

// NewCheckerPlugin wraps checker, reporting delta when it is
// unhealthy for cfg.Retries consecutive runs.
func NewCheckerPlugin(name, subject string, delta int, checker Checker, cfg Config) *CheckerPlugin {
	return &CheckerPlugin{
		PluginName: name,
		Subject:    subject,
		Delta:      delta,
		Check_:     checker,
		cfg:        cfg,
		status:     NewStatus(),
	}
}

func (p *CheckerPlugin) Name() string { return p.PluginName }

// Check runs the wrapped Checker, updates consecutive-failure
// bookkeeping, and only reports a nonzero delta once the failure
// threshold in cfg.Retries is crossed, mirroring Checker/Status's
// original debounce behavior.
func (p *CheckerPlugin) Check(ctx context.Context) (int, string, string, error) {
	result := p.Check_.Check(ctx)
	p.status.Update(result, p.cfg)

	if p.status.Healthy {
		return 0, p.Subject, result.Message, nil
	}
	return p.Delta, p.Subject, fmt.Sprintf("%s: %s", p.PluginName, result.Message), nil
}

// Runner polls a fixed set of Plugins on an interval and reports their
// deltas through Sink, so the fault aggregator (pkg/fault) never talks
// to individual checkers directly.
type Runner struct {
	plugins []Plugin
	sink    Sink
}

// Sink receives a health delta report for (kind, subject). kind is
// always "node_health" for Runner-driven reports, matching the
// node_health fault kind.
type Sink interface {
	ReportHealth(kind, subject, messageTemplate, message string, delta int)
}

// NewRunner builds a Runner over plugins, reporting through sink.
func NewRunner(sink Sink, plugins ...Plugin) *Runner {
	return &Runner{plugins: plugins, sink: sink}
}

// RunOnce executes every plugin once, synchronously, reporting each
// through the sink. Errors from an individual plugin are reported as a
// fixed -10 delta so a broken probe itself degrades node health rather
// than silently going unreported.
func (r *Runner) RunOnce(ctx context.Context) {
	for _, p := range r.plugins {
		delta, subject, message, err := p.Check(ctx)
		if err != nil {
			r.sink.ReportHealth("node_health", p.Name(), p.Name()+" probe error", err.Error(), -10)
			continue
		}
		if delta == 0 {
			continue
		}
		r.sink.ReportHealth("node_health", subject, p.Name(), message, delta)
	}
}
