// Package slotpolicy decides whether a (date, time) pair is bookable. It is
// pure: callers inject the current office-local time instead of reading the
// system clock.
package slotpolicy

import (
	"time"

	"github.com/barangay-bonliw/appointments/internal/civil"
)

// Reason identifies why a slot was rejected. Values are stable and surface in
// API error payloads.
type Reason string

const (
	ReasonOK           Reason = ""
	ReasonSundayClosed Reason = "sunday-closed"
	ReasonOutsideHours Reason = "outside-hours"
	ReasonOffGrid      Reason = "off-grid-time"
	ReasonTooSoon      Reason = "too-soon"
)

// Policy holds the office scheduling rules.
type Policy struct {
	// OpenTime and CloseTime bound the bookable window, both inclusive.
	OpenTime  civil.TimeOfDay
	CloseTime civil.TimeOfDay
	// StepMinutes is the slot granularity.
	StepMinutes int
	// LeadDays is the minimum number of calendar days between the booking
	// request and the appointment date. 1 means "tomorrow or later".
	LeadDays int
}

// Default returns the office policy: 07:30-16:30 in 30-minute steps, Mon-Sat,
// bookable from the next calendar day.
func Default() Policy {
	return Policy{
		OpenTime:    civil.TimeOfDay{Hour: 7, Minute: 30},
		CloseTime:   civil.TimeOfDay{Hour: 16, Minute: 30},
		StepMinutes: 30,
		LeadDays:    1,
	}
}

// WithinOfficeHours reports whether t falls inside the bookable window and on
// the slot grid.
func (p Policy) WithinOfficeHours(t civil.TimeOfDay) bool {
	return p.insideWindow(t) && p.onGrid(t)
}

func (p Policy) insideWindow(t civil.TimeOfDay) bool {
	return t.Compare(p.OpenTime) >= 0 && t.Compare(p.CloseTime) <= 0
}

func (p Policy) onGrid(t civil.TimeOfDay) bool {
	return (t.Minutes()-p.OpenTime.Minutes())%p.StepMinutes == 0
}

// OfficeOpen reports whether the office is open on d. Sunday is the only
// closed day.
func (p Policy) OfficeOpen(d civil.Date) bool {
	return d.Weekday() != time.Sunday
}

// FutureEnough reports whether d satisfies the lead-time rule relative to the
// caller-supplied now. The comparison is by calendar date, not elapsed hours,
// so a booking made at 23:59 for the next day is still accepted.
func (p Policy) FutureEnough(d civil.Date, now civil.DateTime) bool {
	earliest := now.Date.AddDays(p.LeadDays)
	return d.Compare(earliest) >= 0
}

// Validate runs every policy check and returns the first failing reason, or
// ReasonOK when the slot is bookable.
func (p Policy) Validate(d civil.Date, t civil.TimeOfDay, now civil.DateTime) Reason {
	if !p.OfficeOpen(d) {
		return ReasonSundayClosed
	}
	if !p.insideWindow(t) {
		return ReasonOutsideHours
	}
	if !p.onGrid(t) {
		return ReasonOffGrid
	}
	if !p.FutureEnough(d, now) {
		return ReasonTooSoon
	}
	return ReasonOK
}

// Slots returns every bookable time of day for a single date, in order.
// The caller is expected to have checked OfficeOpen already; a closed day
// yields an empty grid.
func (p Policy) Slots(d civil.Date) []civil.TimeOfDay {
	if !p.OfficeOpen(d) {
		return nil
	}
	var out []civil.TimeOfDay
	for m := p.OpenTime.Minutes(); m <= p.CloseTime.Minutes(); m += p.StepMinutes {
		out = append(out, civil.TimeOfDay{Hour: m / 60, Minute: m % 60})
	}
	return out
}
