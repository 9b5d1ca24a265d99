// Package metrics provides application-level counters using stdlib expvar.
// Counters are exported on the /debug/vars HTTP endpoint by the serve command.
package metrics

import "expvar"

// Operation counters.
var (
	ResolveTotal     = expvar.NewInt("erschema_resolve_total")
	ResolvePaused    = expvar.NewInt("erschema_resolve_paused_total")
	ResolveFailed    = expvar.NewInt("erschema_resolve_failed_total")
	DecisionsApplied = expvar.NewInt("erschema_decisions_applied_total")
	AdvisorFallbacks = expvar.NewInt("erschema_advisor_fallback_total")
	SchemasSaved     = expvar.NewInt("erschema_schemas_saved_total")
)

// Inc increments the given counter by 1.
func Inc(counter *expvar.Int) { counter.Add(1) }
