// Package metrics exports Prometheus counters for gatehouse decisions and
// grant changes through the plugin hooks.
package metrics

import (
	"context"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/xraph/gatehouse"
	"github.com/xraph/gatehouse/plugin"
	"github.com/xraph/gatehouse/role"
)

// Compile-time hook checks.
var (
	_ plugin.Plugin             = (*Plugin)(nil)
	_ plugin.DecisionMade       = (*Plugin)(nil)
	_ plugin.ActionGrantChanged = (*Plugin)(nil)
	_ plugin.RoleAssigned       = (*Plugin)(nil)
	_ plugin.RoleUnassigned     = (*Plugin)(nil)
)

// Plugin counts authorization outcomes and grant mutations.
type Plugin struct {
	decisions    *prometheus.CounterVec
	evalSeconds  prometheus.Histogram
	grantChanges *prometheus.CounterVec
	roleChanges  *prometheus.CounterVec
}

var (
	defaultOnce   sync.Once
	defaultPlugin *Plugin
)

// New registers the collectors against registerer. A nil registerer uses
// the default Prometheus registerer, registering only once per process.
func New(registerer prometheus.Registerer) *Plugin {
	if registerer == nil {
		defaultOnce.Do(func() {
			defaultPlugin = build(prometheus.DefaultRegisterer)
		})
		return defaultPlugin
	}
	return build(registerer)
}

func build(registerer prometheus.Registerer) *Plugin {
	p := &Plugin{
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_decisions_total",
			Help: "Authorization decisions by outcome.",
		}, []string{"allowed"}),
		evalSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gatehouse_decision_duration_seconds",
			Help:    "Time spent evaluating authorization decisions.",
			Buckets: []float64{.00005, .0001, .00025, .0005, .001, .0025, .005, .01, .05},
		}),
		grantChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_grant_changes_total",
			Help: "Action grants registered or retracted, by kind.",
		}, []string{"kind", "granted"}),
		roleChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gatehouse_role_assignments_total",
			Help: "Roles granted to or taken from users.",
		}, []string{"op"}),
	}
	registerer.MustRegister(p.decisions, p.evalSeconds, p.grantChanges, p.roleChanges)
	return p
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return "metrics" }

// OnDecisionMade implements plugin.DecisionMade.
func (p *Plugin) OnDecisionMade(_ context.Context, _, decision any) error {
	d, ok := decision.(*gatehouse.Decision)
	if !ok || d == nil {
		return nil
	}
	p.decisions.WithLabelValues(strconv.FormatBool(d.Allowed)).Inc()
	p.evalSeconds.Observe(float64(d.EvalTimeNs) / 1e9)
	return nil
}

// OnActionGrantChanged implements plugin.ActionGrantChanged.
func (p *Plugin) OnActionGrantChanged(_ context.Context, c *plugin.GrantChange) error {
	p.grantChanges.WithLabelValues(string(c.Kind), strconv.FormatBool(c.Granted)).Inc()
	return nil
}

// OnRoleAssigned implements plugin.RoleAssigned.
func (p *Plugin) OnRoleAssigned(context.Context, int64, *role.Role) error {
	p.roleChanges.WithLabelValues("assign").Inc()
	return nil
}

// OnRoleUnassigned implements plugin.RoleUnassigned.
func (p *Plugin) OnRoleUnassigned(context.Context, int64, *role.Role) error {
	p.roleChanges.WithLabelValues("unassign").Inc()
	return nil
}
