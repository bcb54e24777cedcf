package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestObserveBookingCounts(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewBookingMetrics(reg)

	m.ObserveBooking("success")
	m.ObserveBooking("success")
	m.ObserveBooking("conflict")
	m.ObserveSlotConflict()
	m.ObserveTransition("pending", "approved")

	if got := testutil.ToFloat64(m.bookingsTotal.WithLabelValues("success")); got != 2 {
		t.Errorf("bookings_total{success} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.slotConflicts); got != 1 {
		t.Errorf("slot_conflicts_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.transitionsTotal.WithLabelValues("pending", "approved")); got != 1 {
		t.Errorf("status_transitions_total = %v, want 1", got)
	}
}

func TestNilMetricsAreSafe(t *testing.T) {
	var m *BookingMetrics
	m.ObserveBooking("success")
	m.ObserveSlotConflict()
	m.ObserveTransition("pending", "rejected")
	m.ObserveBookingLatency(0.1)
}
