// Package metrics exposes the scan-pipeline counters on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ScansTotal counts scan submissions by outcome: "accepted" or one of
// the rejection reason codes.
var ScansTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateattend_scans_total",
		Help: "Scan submissions by outcome.",
	},
	[]string{"outcome"},
)

// SlotRecords counts persisted records by slot.
var SlotRecords = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "gateattend_slot_records_total",
		Help: "Attendance records created, by slot.",
	},
	[]string{"slot"},
)

// Accepted records a successful scan for a slot.
func Accepted(slot string) {
	ScansTotal.WithLabelValues("accepted").Inc()
	SlotRecords.WithLabelValues(slot).Inc()
}

// Rejected records a refused scan with its reason code.
func Rejected(reason string) {
	ScansTotal.WithLabelValues(reason).Inc()
}
