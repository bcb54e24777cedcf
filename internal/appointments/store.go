package appointments

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/barangay-bonliw/appointments/internal/civil"
)

// Querier is the subset of pgx used by store queries. Both pgxpool.Pool and
// pgx.Tx satisfy it, so a method can run standalone or inside a transaction.
type Querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PgxPool is the pool surface the store needs; pgxmock implements it too.
type PgxPool interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists appointments in Postgres. It is deliberately dumb: lifecycle
// legality and policy checks belong to the Service, not here.
type Store struct {
	pool PgxPool
}

// NewStore creates a store backed by a pgx pool.
func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Store{pool: pool}
}

// Begin opens a transaction on the underlying pool.
func (s *Store) Begin(ctx context.Context) (pgx.Tx, error) {
	return s.pool.Begin(ctx)
}

const appointmentColumns = `
	id, resident_id, service_category, document_type, purpose,
	appointment_date::text, appointment_time::text, status, notes,
	created_at, updated_at`

// Create inserts a new appointment row. Run it on the same Querier as the
// preceding ExistsActiveConflict so the check and the insert commit together.
func (s *Store) Create(ctx context.Context, q Querier, appt *Appointment) error {
	if q == nil {
		q = s.pool
	}
	if appt.ID == uuid.Nil {
		appt.ID = uuid.New()
	}
	query := `
		INSERT INTO appointments (
			id, resident_id, service_category, document_type, purpose,
			appointment_date, appointment_time, status, notes
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6::date, $7::time, $8, NULLIF($9, ''))
		RETURNING created_at, updated_at
	`
	err := q.QueryRow(ctx, query,
		appt.ID, appt.ResidentID, appt.ServiceCategory, appt.DocumentType,
		appt.Purpose, appt.Date.String(), appt.Time.String(), appt.Status, appt.Notes,
	).Scan(&appt.CreatedAt, &appt.UpdatedAt)
	if err != nil {
		if isActiveSlotConflict(err) {
			return ErrSlotTaken
		}
		return fmt.Errorf("appointments: insert: %w", err)
	}
	return nil
}

// GetByID loads a single appointment.
func (s *Store) GetByID(ctx context.Context, q Querier, id uuid.UUID) (*Appointment, error) {
	if q == nil {
		q = s.pool
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1`
	appt, err := scanAppointment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: get by id: %w", err)
	}
	return appt, nil
}

// GetByIDForUpdate loads a single appointment and row-locks it for the
// remainder of the transaction.
func (s *Store) GetByIDForUpdate(ctx context.Context, q Querier, id uuid.UUID) (*Appointment, error) {
	if q == nil {
		q = s.pool
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = $1 FOR UPDATE`
	appt, err := scanAppointment(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: get for update: %w", err)
	}
	return appt, nil
}

// ListByResident returns a resident's appointments, newest first.
func (s *Store) ListByResident(ctx context.Context, residentID string) ([]*Appointment, error) {
	query := `
		SELECT ` + appointmentColumns + `
		FROM appointments
		WHERE resident_id = $1
		ORDER BY created_at DESC, id DESC
	`
	rows, err := s.pool.Query(ctx, query, residentID)
	if err != nil {
		return nil, fmt.Errorf("appointments: list by resident: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows, false)
}

// ListFilter narrows the admin listing.
type ListFilter struct {
	Status Status
}

// ListAll returns every appointment with the resident's contact details
// joined, newest first. Admin-only; the service enforces the role.
func (s *Store) ListAll(ctx context.Context, filter ListFilter) ([]*Appointment, error) {
	query := `
		SELECT
			a.id, a.resident_id, a.service_category, a.document_type, a.purpose,
			a.appointment_date::text, a.appointment_time::text, a.status, a.notes,
			a.created_at, a.updated_at,
			r.full_name, COALESCE(r.email, ''), COALESCE(r.phone, '')
		FROM appointments a
		JOIN residents r ON r.id = a.resident_id
		WHERE ($1 = '' OR a.status = $1)
		ORDER BY a.created_at DESC, a.id DESC
	`
	rows, err := s.pool.Query(ctx, query, string(filter.Status))
	if err != nil {
		return nil, fmt.Errorf("appointments: list all: %w", err)
	}
	defer rows.Close()
	return collectAppointments(rows, true)
}

// UpdateStatus overwrites status and notes. No transition check here.
func (s *Store) UpdateStatus(ctx context.Context, q Querier, id uuid.UUID, status Status, notes string) (*Appointment, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE appointments
		SET status = $2, notes = NULLIF($3, ''), updated_at = now()
		WHERE id = $1
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(q.QueryRow(ctx, query, id, status, notes))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("appointments: update status: %w", err)
	}
	return appt, nil
}

// UpdateSchedule moves an appointment to a new (date, time).
func (s *Store) UpdateSchedule(ctx context.Context, q Querier, id uuid.UUID, d civil.Date, t civil.TimeOfDay) (*Appointment, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		UPDATE appointments
		SET appointment_date = $2::date, appointment_time = $3::time, updated_at = now()
		WHERE id = $1
		RETURNING ` + appointmentColumns
	appt, err := scanAppointment(q.QueryRow(ctx, query, id, d.String(), t.String()))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		if isActiveSlotConflict(err) {
			return nil, ErrSlotTaken
		}
		return nil, fmt.Errorf("appointments: update schedule: %w", err)
	}
	return appt, nil
}

// Delete hard-deletes the row. Under the direct-conflict-check design the
// row's absence is itself the slot release.
func (s *Store) Delete(ctx context.Context, q Querier, id uuid.UUID) error {
	if q == nil {
		q = s.pool
	}
	tag, err := q.Exec(ctx, `DELETE FROM appointments WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("appointments: delete: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// ExistsActiveConflict reports whether an active (pending or approved)
// appointment already occupies the slot. The matching rows are locked with
// FOR UPDATE, so callers MUST run this inside the same transaction as the
// insert or schedule update that follows; otherwise two concurrent bookings
// can both pass the check.
func (s *Store) ExistsActiveConflict(ctx context.Context, q Querier, d civil.Date, t civil.TimeOfDay, excluding uuid.UUID) (bool, error) {
	if q == nil {
		q = s.pool
	}
	query := `
		SELECT id FROM appointments
		WHERE appointment_date = $1::date
		  AND appointment_time = $2::time
		  AND status IN ('pending', 'approved')
		  AND ($3::uuid IS NULL OR id <> $3::uuid)
		LIMIT 1
		FOR UPDATE
	`
	var excludingArg any
	if excluding != uuid.Nil {
		excludingArg = excluding
	}
	var found uuid.UUID
	err := q.QueryRow(ctx, query, d.String(), t.String(), excludingArg).Scan(&found)
	if errors.Is(err, pgx.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("appointments: conflict check: %w", err)
	}
	return true, nil
}

// isActiveSlotConflict reports whether err is the active-slot partial unique
// index firing. The locked conflict check cannot stop two transactions that
// both find the slot free (FOR UPDATE locks no rows then), so the index is the
// backstop and its violation means the slot was taken at commit time.
func isActiveSlotConflict(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) &&
		pgErr.Code == "23505" &&
		pgErr.ConstraintName == "idx_appointments_active_slot"
}

// BookedTimes returns the occupied (active) times for a date, used by the
// availability projection.
func (s *Store) BookedTimes(ctx context.Context, d civil.Date) ([]civil.TimeOfDay, error) {
	query := `
		SELECT appointment_time::text FROM appointments
		WHERE appointment_date = $1::date AND status IN ('pending', 'approved')
		ORDER BY appointment_time
	`
	rows, err := s.pool.Query(ctx, query, d.String())
	if err != nil {
		return nil, fmt.Errorf("appointments: booked times: %w", err)
	}
	defer rows.Close()

	var out []civil.TimeOfDay
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, fmt.Errorf("appointments: scan booked time: %w", err)
		}
		t, err := civil.ParseTimeOfDay(raw)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// ResidentContact returns the resident's display name and email for
// notifications. A missing resident is not an error at this layer.
func (s *Store) ResidentContact(ctx context.Context, residentID string) (string, string, error) {
	var (
		name  string
		email *string
	)
	query := `SELECT full_name, email FROM residents WHERE id = $1`
	err := s.pool.QueryRow(ctx, query, residentID).Scan(&name, &email)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", "", nil
	}
	if err != nil {
		return "", "", fmt.Errorf("appointments: resident contact: %w", err)
	}
	if email == nil {
		return name, "", nil
	}
	return name, *email, nil
}

func scanAppointment(row pgx.Row) (*Appointment, error) {
	var (
		appt         Appointment
		rawDate      string
		rawTime      string
		documentType *string
		notes        *string
	)
	err := row.Scan(
		&appt.ID, &appt.ResidentID, &appt.ServiceCategory, &documentType,
		&appt.Purpose, &rawDate, &rawTime, &appt.Status, &notes,
		&appt.CreatedAt, &appt.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return finishAppointment(&appt, rawDate, rawTime, documentType, notes)
}

func collectAppointments(rows pgx.Rows, withResident bool) ([]*Appointment, error) {
	out := []*Appointment{}
	for rows.Next() {
		var (
			appt         Appointment
			rawDate      string
			rawTime      string
			documentType *string
			notes        *string
		)
		dest := []any{
			&appt.ID, &appt.ResidentID, &appt.ServiceCategory, &documentType,
			&appt.Purpose, &rawDate, &rawTime, &appt.Status, &notes,
			&appt.CreatedAt, &appt.UpdatedAt,
		}
		if withResident {
			dest = append(dest, &appt.ResidentName, &appt.ResidentEmail, &appt.ResidentPhone)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, fmt.Errorf("appointments: scan row: %w", err)
		}
		if _, err := finishAppointment(&appt, rawDate, rawTime, documentType, notes); err != nil {
			return nil, err
		}
		out = append(out, &appt)
	}
	return out, rows.Err()
}

func finishAppointment(appt *Appointment, rawDate, rawTime string, documentType, notes *string) (*Appointment, error) {
	d, err := civil.ParseDate(rawDate)
	if err != nil {
		return nil, err
	}
	t, err := civil.ParseTimeOfDay(rawTime)
	if err != nil {
		return nil, err
	}
	appt.Date = d
	appt.Time = t
	if documentType != nil {
		appt.DocumentType = *documentType
	}
	if notes != nil {
		appt.Notes = *notes
	}
	return appt, nil
}
