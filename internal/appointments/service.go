package appointments

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/barangay-bonliw/appointments/internal/civil"
	"github.com/barangay-bonliw/appointments/internal/identity"
	"github.com/barangay-bonliw/appointments/internal/observability/metrics"
	"github.com/barangay-bonliw/appointments/internal/slotpolicy"
	"github.com/barangay-bonliw/appointments/pkg/logging"
)

var tracer = otel.Tracer("barangay.internal.appointments")

// notifyTimeout bounds the detached context handed to the notifier.
const notifyTimeout = 15 * time.Second

// Clock supplies the current time. Injected so lead-time rules stay testable.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

func (f ClockFunc) Now() time.Time { return f() }

// OfficeClock returns a clock reading system time in the office's zone.
func OfficeClock() Clock {
	return ClockFunc(func() time.Time { return time.Now().In(civil.Office) })
}

// Notifier consumes appointment events. Implementations are best-effort; the
// service invokes them after commit on a detached context and only logs
// failures.
type Notifier interface {
	AppointmentCreated(ctx context.Context, appt *Appointment) error
	StatusChanged(ctx context.Context, appt *Appointment, old Status) error
}

// SlotCacheInvalidator drops cached availability for a date after a write.
type SlotCacheInvalidator interface {
	Invalidate(ctx context.Context, d civil.Date)
}

// Service implements the booking engine and the lifecycle manager. All slot
// exclusivity decisions run inside a single transaction with row locks taken
// by the store's conflict check.
type Service struct {
	store    *Store
	policy   slotpolicy.Policy
	clock    Clock
	notifier Notifier             // optional
	cache    SlotCacheInvalidator // optional
	metrics  *metrics.BookingMetrics
	logger   *logging.Logger
}

// NewService constructs the appointments service.
func NewService(store *Store, policy slotpolicy.Policy, clock Clock, notifier Notifier, cache SlotCacheInvalidator, m *metrics.BookingMetrics, logger *logging.Logger) *Service {
	if store == nil {
		panic("appointments: store required")
	}
	if clock == nil {
		clock = OfficeClock()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{
		store:    store,
		policy:   policy,
		clock:    clock,
		notifier: notifier,
		cache:    cache,
		metrics:  m,
		logger:   logger,
	}
}

// BookRequest carries the resident's booking input.
type BookRequest struct {
	ServiceCategory string          `json:"serviceCategory"`
	DocumentType    string          `json:"documentType,omitempty"`
	Purpose         string          `json:"purpose"`
	Date            civil.Date      `json:"date"`
	Time            civil.TimeOfDay `json:"time"`
}

// Book validates the request against the slot policy and creates a pending
// appointment. The conflict check and the insert share one transaction, so at
// most one active appointment can ever hold a slot.
func (s *Service) Book(ctx context.Context, actor identity.Identity, req BookRequest) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.book")
	defer span.End()
	span.SetAttributes(
		attribute.String("appointment.date", req.Date.String()),
		attribute.String("appointment.time", req.Time.String()),
	)
	started := s.clock.Now()

	if err := s.validateBookRequest(req); err != nil {
		s.metrics.ObserveBooking("invalid")
		return nil, err
	}
	now := civil.DateTimeOf(s.clock.Now().In(civil.Office))
	if reason := s.policy.Validate(req.Date, req.Time, now); reason != slotpolicy.ReasonOK {
		s.metrics.ObserveBooking("rejected")
		return nil, &ValidationError{Reason: policyReason(reason)}
	}

	appt := &Appointment{
		ResidentID:      actor.UserID,
		ServiceCategory: strings.TrimSpace(req.ServiceCategory),
		DocumentType:    strings.TrimSpace(req.DocumentType),
		Purpose:         strings.TrimSpace(req.Purpose),
		Date:            req.Date,
		Time:            req.Time,
		Status:          StatusPending,
	}

	err := s.inTx(ctx, func(tx Querier) error {
		taken, err := s.store.ExistsActiveConflict(ctx, tx, req.Date, req.Time, uuid.Nil)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		return s.store.Create(ctx, tx, appt)
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveBooking("conflict")
			s.metrics.ObserveSlotConflict()
		} else {
			s.metrics.ObserveBooking("error")
		}
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveBooking("success")
	s.metrics.ObserveBookingLatency(s.clock.Now().Sub(started).Seconds())
	s.invalidate(req.Date)
	s.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"resident_id", actor.UserID,
		"date", appt.Date.String(),
		"time", appt.Time.String(),
	)
	s.emit(func(ctx context.Context) error {
		return s.notifier.AppointmentCreated(ctx, appt)
	})
	return appt, nil
}

// SetStatus applies an admin-driven lifecycle transition. Transitions outside
// the graph (including out of rejected/completed) fail with
// ErrInvalidTransition instead of silently applying.
func (s *Service) SetStatus(ctx context.Context, actor identity.Identity, id uuid.UUID, next Status, notes string) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.set_status")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if !next.Valid() {
		return nil, &ValidationError{Reason: ReasonUnknownStatus, Field: "status"}
	}

	var (
		updated *Appointment
		old     Status
	)
	err := s.inTx(ctx, func(tx Querier) error {
		current, err := s.store.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		old = current.Status
		if !old.CanTransitionTo(next) {
			return ErrInvalidTransition
		}
		updated, err = s.store.UpdateStatus(ctx, tx, id, next, notes)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	s.metrics.ObserveTransition(string(old), string(next))
	// Rejecting or completing frees the slot for rebooking.
	if old.Active() && !next.Active() {
		s.invalidate(updated.Date)
	}
	s.logger.Info("appointment status changed",
		"appointment_id", id,
		"from", old,
		"to", next,
		"actor", actor.UserID,
	)
	s.emit(func(ctx context.Context) error {
		return s.notifier.StatusChanged(ctx, updated, old)
	})
	return updated, nil
}

// Reschedule moves a pending appointment to a new slot. The new slot must
// satisfy the booking policy, must not be earlier than the current slot, and
// must be free of active conflicts (excluding the appointment itself).
func (s *Service) Reschedule(ctx context.Context, actor identity.Identity, id uuid.UUID, newDate civil.Date, newTime civil.TimeOfDay) (*Appointment, error) {
	ctx, span := tracer.Start(ctx, "appointments.reschedule")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	now := civil.DateTimeOf(s.clock.Now().In(civil.Office))
	if reason := s.policy.Validate(newDate, newTime, now); reason != slotpolicy.ReasonOK {
		return nil, &ValidationError{Reason: policyReason(reason)}
	}

	var (
		updated *Appointment
		oldDate civil.Date
		moved   bool
	)
	err := s.inTx(ctx, func(tx Querier) error {
		current, err := s.store.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if current.Status != StatusPending {
			return ErrInvalidState
		}
		target := civil.DateTime{Date: newDate, Time: newTime}
		if target.Before(current.Slot()) {
			return &ValidationError{Reason: ReasonMovedEarlier}
		}
		if target.Compare(current.Slot()) == 0 {
			// No-op reschedule: same slot, nothing to write.
			updated = current
			return nil
		}
		taken, err := s.store.ExistsActiveConflict(ctx, tx, newDate, newTime, id)
		if err != nil {
			return err
		}
		if taken {
			return ErrSlotTaken
		}
		oldDate = current.Date
		updated, err = s.store.UpdateSchedule(ctx, tx, id, newDate, newTime)
		moved = err == nil
		return err
	})
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			s.metrics.ObserveSlotConflict()
		}
		span.RecordError(err)
		return nil, err
	}

	if moved {
		s.invalidate(oldDate)
		s.invalidate(newDate)
		s.logger.Info("appointment rescheduled",
			"appointment_id", id,
			"date", newDate.String(),
			"time", newTime.String(),
			"actor", actor.UserID,
		)
	}
	return updated, nil
}

// Cancel hard-deletes an appointment. Residents may delete only their own
// pending appointments; admins may delete any. A resident probing someone
// else's appointment gets ErrNotFound so existence is not leaked.
func (s *Service) Cancel(ctx context.Context, actor identity.Identity, id uuid.UUID) error {
	ctx, span := tracer.Start(ctx, "appointments.cancel")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id.String()))

	var freed civil.Date
	err := s.inTx(ctx, func(tx Querier) error {
		current, err := s.store.GetByIDForUpdate(ctx, tx, id)
		if err != nil {
			return err
		}
		if !actor.IsAdmin() {
			if current.ResidentID != actor.UserID {
				return ErrNotFound
			}
			if current.Status != StatusPending {
				return ErrForbidden
			}
		}
		freed = current.Date
		return s.store.Delete(ctx, tx, id)
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	s.invalidate(freed)
	s.logger.Info("appointment deleted", "appointment_id", id, "actor", actor.UserID)
	return nil
}

// Get returns a single appointment, hiding other residents' rows from
// non-admin callers.
func (s *Service) Get(ctx context.Context, actor identity.Identity, id uuid.UUID) (*Appointment, error) {
	appt, err := s.store.GetByID(ctx, nil, id)
	if err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && appt.ResidentID != actor.UserID {
		return nil, ErrNotFound
	}
	return appt, nil
}

// ListMine returns the caller's appointments, newest first.
func (s *Service) ListMine(ctx context.Context, actor identity.Identity) ([]*Appointment, error) {
	return s.store.ListByResident(ctx, actor.UserID)
}

// ListAll returns every appointment with resident details. Admin only.
func (s *Service) ListAll(ctx context.Context, actor identity.Identity, filter ListFilter) ([]*Appointment, error) {
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, &ValidationError{Reason: ReasonUnknownStatus, Field: "status"}
	}
	return s.store.ListAll(ctx, filter)
}

func (s *Service) validateBookRequest(req BookRequest) error {
	if strings.TrimSpace(req.ServiceCategory) == "" {
		return missingField("serviceCategory")
	}
	if strings.TrimSpace(req.Purpose) == "" {
		return missingField("purpose")
	}
	if strings.TrimSpace(req.ServiceCategory) == ServiceCategoryDocumentRequest &&
		strings.TrimSpace(req.DocumentType) == "" {
		return missingField("documentType")
	}
	if req.Date.IsZero() {
		return missingField("date")
	}
	return nil
}

// inTx runs fn inside a transaction, committing on nil and rolling back on
// error. A rollback after a failed commit is harmless.
func (s *Service) inTx(ctx context.Context, fn func(tx Querier) error) error {
	tx, err := s.store.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()
	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// emit runs a notifier call on a detached context so a canceled request or a
// slow mail provider can never fail a committed operation.
func (s *Service) emit(fn func(ctx context.Context) error) {
	if s.notifier == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), notifyTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			s.logger.Error("notification failed", "error", err)
		}
	}()
}

func (s *Service) invalidate(d civil.Date) {
	if s.cache == nil || d.IsZero() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	s.cache.Invalidate(ctx, d)
}

func policyReason(r slotpolicy.Reason) ValidationReason {
	switch r {
	case slotpolicy.ReasonSundayClosed:
		return ReasonSundayClosed
	case slotpolicy.ReasonOutsideHours:
		return ReasonOutsideHours
	case slotpolicy.ReasonOffGrid:
		return ReasonOffGrid
	case slotpolicy.ReasonTooSoon:
		return ReasonTooSoon
	default:
		return ValidationReason(r)
	}
}
