package taior

import (
	"github.com/uber-go/tally"

	"github.com/taior/taior/log"
	"github.com/taior/taior/telemetry"
)

// Metrics collects the node's runtime counters: live connections and
// circuits as resource gauges, and as bandwidth counters the onion bytes
// originated by Send (Outbound) and the payload bytes delivered to this
// node (Inbound). Grounded on the teacher's
// metrics.go/tally wiring, generalized from link/circuit-cell counts to
// this spec's connection/circuit/onion-byte counters.
type Metrics struct {
	Connections telemetry.ResourceMetric
	Circuits    telemetry.ResourceMetric
	Inbound     *telemetry.Bandwidth
	Outbound    *telemetry.Bandwidth
	CoverSent   tally.Counter
	CoverFailed tally.Counter
	Dropped     tally.Counter
}

// NewMetrics builds a Metrics recording stats on scope and logging to l.
func NewMetrics(scope tally.Scope, l log.Logger) *Metrics {
	return &Metrics{
		Connections: telemetry.NewResourceMetric(scope, l, "connections"),
		Circuits:    telemetry.NewResourceMetric(scope, l, "circuits"),
		Inbound:     telemetry.NewBandwidth(scope.Counter("inbound_bytes")),
		Outbound:    telemetry.NewBandwidth(scope.Counter("outbound_bytes")),
		CoverSent:   scope.Counter("cover_sent"),
		CoverFailed: scope.Counter("cover_failed"),
		Dropped:     scope.Counter("dropped_frames"),
	}
}
