package notify

import (
	"context"
	"fmt"

	"github.com/barangay-bonliw/appointments/internal/appointments"
	"github.com/barangay-bonliw/appointments/pkg/logging"
)

// ResidentDirectory resolves a resident id to their contact details.
type ResidentDirectory interface {
	ResidentContact(ctx context.Context, residentID string) (name, email string, err error)
}

// Service builds and sends appointment emails. Callers treat it as
// best-effort: errors are returned for logging but must never fail the
// operation that triggered the notification.
type Service struct {
	email     EmailSender
	residents ResidentDirectory
	logger    *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, residents ResidentDirectory, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, residents: residents, logger: logger}
}

// AppointmentCreated sends the booking confirmation email.
func (s *Service) AppointmentCreated(ctx context.Context, appt *appointments.Appointment) error {
	name, email, err := s.recipient(ctx, appt.ResidentID)
	if err != nil {
		return err
	}
	if email == "" {
		s.logger.Debug("resident has no email, skipping confirmation", "resident_id", appt.ResidentID)
		return nil
	}

	msg := EmailMessage{
		To:      email,
		ToName:  name,
		Subject: "Appointment Received - Barangay Bonliw",
		Body: fmt.Sprintf(
			"Dear %s,\n\nYour appointment request has been received.\n\n"+
				"Service: %s\nDate: %s\nTime: %s\nStatus: %s\n\n"+
				"You will be notified once the office reviews your request.\n\n"+
				"Barangay Bonliw Appointment System",
			name, serviceLine(appt), appt.Date, appt.Time, appt.Status),
	}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: appointment created email: %w", err)
	}
	return nil
}

// StatusChanged sends the status update email.
func (s *Service) StatusChanged(ctx context.Context, appt *appointments.Appointment, old appointments.Status) error {
	name, email, err := s.recipient(ctx, appt.ResidentID)
	if err != nil {
		return err
	}
	if email == "" {
		s.logger.Debug("resident has no email, skipping status update", "resident_id", appt.ResidentID)
		return nil
	}

	subject := "Appointment Update - Barangay Bonliw"
	if appt.Status == appointments.StatusApproved {
		subject = "Appointment Confirmed - Barangay Bonliw"
	}

	body := fmt.Sprintf(
		"Dear %s,\n\nThe status of your appointment on %s at %s changed from %s to %s.",
		name, appt.Date, appt.Time, old, appt.Status)
	if appt.Notes != "" {
		body += fmt.Sprintf("\n\nNotes from the office: %s", appt.Notes)
	}
	body += "\n\nBarangay Bonliw Appointment System"

	msg := EmailMessage{To: email, ToName: name, Subject: subject, Body: body}
	if err := s.email.Send(ctx, msg); err != nil {
		return fmt.Errorf("notify: status changed email: %w", err)
	}
	return nil
}

func (s *Service) recipient(ctx context.Context, residentID string) (string, string, error) {
	if s.residents == nil {
		return "", "", fmt.Errorf("notify: resident directory not configured")
	}
	name, email, err := s.residents.ResidentContact(ctx, residentID)
	if err != nil {
		return "", "", fmt.Errorf("notify: resolve resident %s: %w", residentID, err)
	}
	if name == "" {
		name = "Resident"
	}
	return name, email, nil
}

func serviceLine(appt *appointments.Appointment) string {
	if appt.DocumentType != "" {
		return appt.ServiceCategory + " (" + appt.DocumentType + ")"
	}
	return appt.ServiceCategory
}
