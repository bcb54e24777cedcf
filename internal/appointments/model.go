package appointments

import (
	"time"

	"github.com/google/uuid"

	"github.com/barangay-bonliw/appointments/internal/civil"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusRejected  Status = "rejected"
	StatusCompleted Status = "completed"
)

// Valid reports whether s is a known status value.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected, StatusCompleted:
		return true
	}
	return false
}

// Active reports whether the status occupies a slot. Only pending and approved
// appointments participate in conflict checks; rejected and completed rows
// free their slot by falling out of the conflict set.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusApproved
}

// Terminal reports whether the status admits no further transitions.
func (s Status) Terminal() bool {
	return s == StatusRejected || s == StatusCompleted
}

// CanTransitionTo reports whether the status graph allows s -> next:
//
//	pending  -> approved | rejected
//	approved -> completed | rejected
func (s Status) CanTransitionTo(next Status) bool {
	switch s {
	case StatusPending:
		return next == StatusApproved || next == StatusRejected
	case StatusApproved:
		return next == StatusCompleted || next == StatusRejected
	}
	return false
}

// ServiceCategoryDocumentRequest is the one category that additionally
// requires a document type.
const ServiceCategoryDocumentRequest = "Document Request"

// Appointment is a resident's booked slot at the barangay office.
type Appointment struct {
	ID              uuid.UUID       `json:"id"`
	ResidentID      string          `json:"residentId"`
	ServiceCategory string          `json:"serviceCategory"`
	DocumentType    string          `json:"documentType,omitempty"`
	Purpose         string          `json:"purpose"`
	Date            civil.Date      `json:"date"`
	Time            civil.TimeOfDay `json:"time"`
	Status          Status          `json:"status"`
	Notes           string          `json:"notes,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`

	// Resident contact details, populated only on the admin listing join.
	ResidentName  string `json:"residentName,omitempty"`
	ResidentEmail string `json:"residentEmail,omitempty"`
	ResidentPhone string `json:"residentPhone,omitempty"`
}

// Slot returns the appointment's (date, time) pair as a civil date-time.
func (a *Appointment) Slot() civil.DateTime {
	return civil.DateTime{Date: a.Date, Time: a.Time}
}
