package monitoring

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	reservations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "ticket_reservations_total",
			Help: "Stock reservation attempts by outcome",
		},
		[]string{"outcome"},
	)

	ledgerCorruptions = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "inventory_ledger_corruptions_total",
			Help: "Detected double releases or other ledger invariant violations",
		},
	)

	settlements = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_settled_total",
			Help: "Completed payments with a recorded revenue split",
		},
	)

	settledAmount = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payments_settled_amount_total",
			Help: "Gross amount of settled payments in currency units",
		},
	)

	orphanedCaptures = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_orphaned_captures_total",
			Help: "Completed gateway captures whose purchase was no longer pending",
		},
	)

	amountMismatches = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "payment_amount_mismatches_total",
			Help: "Gateway callbacks rejected because the observed amount differed",
		},
	)

	sweeperRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "event_sweeper_runs_total",
			Help: "Event status sweeps by outcome",
		},
		[]string{"outcome"},
	)

	sweptEvents = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "events_completed_total",
			Help: "Events transitioned to completed by the sweeper",
		},
	)

	gatewayRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gateway_requests_total",
			Help: "Outbound payment gateway calls by provider and outcome",
		},
		[]string{"provider", "outcome"},
	)
)

// TrackReservation records a stock reservation attempt.
func TrackReservation(outcome string) {
	reservations.WithLabelValues(outcome).Inc()
}

// TrackLedgerCorruption records a detected inventory invariant violation.
func TrackLedgerCorruption() {
	ledgerCorruptions.Inc()
}

// TrackSettlement records a completed revenue split.
func TrackSettlement(amount float64) {
	settlements.Inc()
	settledAmount.Add(amount)
}

// TrackOrphanedCapture records a capture applied to a payment whose purchase
// had already left the pending state.
func TrackOrphanedCapture() {
	orphanedCaptures.Inc()
}

// TrackAmountMismatch records a rejected gateway callback.
func TrackAmountMismatch() {
	amountMismatches.Inc()
}

// TrackSweep records one sweeper run and how many events it completed.
func TrackSweep(outcome string, completed int) {
	sweeperRuns.WithLabelValues(outcome).Inc()
	if completed > 0 {
		sweptEvents.Add(float64(completed))
	}
}

// TrackGatewayCall records an outbound gateway request.
func TrackGatewayCall(provider, outcome string) {
	gatewayRequests.WithLabelValues(provider, outcome).Inc()
}
