package slotpolicy

import (
	"testing"

	"github.com/barangay-bonliw/appointments/internal/civil"
)

func date(t *testing.T, s string) civil.Date {
	t.Helper()
	d, err := civil.ParseDate(s)
	if err != nil {
		t.Fatalf("parse date %q: %v", s, err)
	}
	return d
}

func tod(t *testing.T, s string) civil.TimeOfDay {
	t.Helper()
	v, err := civil.ParseTimeOfDay(s)
	if err != nil {
		t.Fatalf("parse time %q: %v", s, err)
	}
	return v
}

func TestWithinOfficeHours(t *testing.T) {
	p := Default()
	tests := []struct {
		time string
		want bool
	}{
		{"07:30", true},  // opening slot
		{"16:30", true},  // closing slot, inclusive
		{"09:00", true},
		{"07:00", false}, // before opening
		{"17:00", false}, // after closing
		{"09:15", false}, // off the 30-minute grid
	}
	for _, tt := range tests {
		if got := p.WithinOfficeHours(tod(t, tt.time)); got != tt.want {
			t.Errorf("WithinOfficeHours(%s) = %v, want %v", tt.time, got, tt.want)
		}
	}
}

func TestOfficeOpen(t *testing.T) {
	p := Default()
	if p.OfficeOpen(date(t, "2025-11-23")) { // Sunday
		t.Error("Sunday should be closed")
	}
	if !p.OfficeOpen(date(t, "2025-11-24")) { // Monday
		t.Error("Monday should be open")
	}
	if !p.OfficeOpen(date(t, "2025-11-22")) { // Saturday
		t.Error("Saturday should be open")
	}
}

func TestFutureEnoughUsesCalendarDays(t *testing.T) {
	p := Default()
	// Booking late in the evening: tomorrow must still be bookable even though
	// fewer than 24 hours remain.
	now := civil.DateTime{Date: date(t, "2025-11-20"), Time: tod(t, "23:59")}
	if !p.FutureEnough(date(t, "2025-11-21"), now) {
		t.Error("tomorrow should satisfy the lead time regardless of clock time")
	}
	if p.FutureEnough(date(t, "2025-11-20"), now) {
		t.Error("same day should fail the lead time")
	}
	if p.FutureEnough(date(t, "2025-11-19"), now) {
		t.Error("past date should fail the lead time")
	}
}

func TestValidateReasonOrder(t *testing.T) {
	p := Default()
	now := civil.DateTime{Date: date(t, "2025-11-20"), Time: tod(t, "10:00")}

	tests := []struct {
		name string
		date string
		time string
		want Reason
	}{
		{"bookable", "2025-11-24", "09:00", ReasonOK},
		{"sunday wins over bad time", "2025-11-23", "06:00", ReasonSundayClosed},
		{"outside hours", "2025-11-24", "17:00", ReasonOutsideHours},
		{"off grid", "2025-11-24", "09:10", ReasonOffGrid},
		{"too soon", "2025-11-20", "09:00", ReasonTooSoon},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Validate(date(t, tt.date), tod(t, tt.time), now)
			if got != tt.want {
				t.Fatalf("Validate = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSlotsGrid(t *testing.T) {
	p := Default()
	slots := p.Slots(date(t, "2025-11-24"))
	if len(slots) != 19 { // 07:30 .. 16:30 every 30 minutes
		t.Fatalf("expected 19 slots, got %d", len(slots))
	}
	if slots[0].String() != "07:30" || slots[len(slots)-1].String() != "16:30" {
		t.Fatalf("grid bounds wrong: %s .. %s", slots[0], slots[len(slots)-1])
	}
	if got := p.Slots(date(t, "2025-11-23")); got != nil {
		t.Fatalf("Sunday grid should be empty, got %d slots", len(got))
	}
}
