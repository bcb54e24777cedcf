// Package feed builds the role-dependent notification feed shown on the
// dashboard. Read-only; best kept separate from the booking core.
package feed

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/barangay-bonliw/appointments/internal/civil"
	"github.com/barangay-bonliw/appointments/internal/identity"
)

// Item is one feed entry.
type Item struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// Querier is the read-only pgx surface the feed needs.
type Querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Repository assembles feed items from the appointments tables.
type Repository struct {
	db Querier
}

func NewRepository(db Querier) *Repository {
	return &Repository{db: db}
}

// For returns the feed for the given caller. Admins see recent pending
// requests; residents see their status updates plus an upcoming reminder.
func (r *Repository) For(ctx context.Context, actor identity.Identity) ([]Item, error) {
	if actor.IsAdmin() {
		return r.adminFeed(ctx)
	}
	return r.residentFeed(ctx, actor.UserID)
}

func (r *Repository) adminFeed(ctx context.Context) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT res.full_name, a.appointment_date::text, a.appointment_time::text
		FROM appointments a
		JOIN residents res ON res.id = a.resident_id
		WHERE a.status = 'pending'
		ORDER BY a.created_at DESC
		LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("feed: pending appointments: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var name, rawDate, rawTime string
		if err := rows.Scan(&name, &rawDate, &rawTime); err != nil {
			return nil, fmt.Errorf("feed: scan pending: %w", err)
		}
		d, t, err := parseSlot(rawDate, rawTime)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{
			Type: "appointment",
			Text: fmt.Sprintf("New appointment: %s on %s at %s", name, formatDate(d), t),
		})
	}
	return items, rows.Err()
}

func (r *Repository) residentFeed(ctx context.Context, residentID string) ([]Item, error) {
	rows, err := r.db.Query(ctx, `
		SELECT status, appointment_date::text, appointment_time::text
		FROM appointments
		WHERE resident_id = $1 AND status <> 'pending'
		ORDER BY updated_at DESC
		LIMIT 10`, residentID)
	if err != nil {
		return nil, fmt.Errorf("feed: status updates: %w", err)
	}
	defer rows.Close()

	items := []Item{}
	for rows.Next() {
		var status, rawDate, rawTime string
		if err := rows.Scan(&status, &rawDate, &rawTime); err != nil {
			return nil, fmt.Errorf("feed: scan update: %w", err)
		}
		d, t, err := parseSlot(rawDate, rawTime)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{
			Type: "status",
			Text: fmt.Sprintf("Status update: %s for appointment on %s at %s", status, formatDate(d), t),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	upcoming, err := r.db.Query(ctx, `
		SELECT appointment_date::text, appointment_time::text
		FROM appointments
		WHERE resident_id = $1 AND status = 'approved' AND appointment_date >= CURRENT_DATE
		ORDER BY appointment_date, appointment_time
		LIMIT 1`, residentID)
	if err != nil {
		return nil, fmt.Errorf("feed: upcoming: %w", err)
	}
	defer upcoming.Close()

	if upcoming.Next() {
		var rawDate, rawTime string
		if err := upcoming.Scan(&rawDate, &rawTime); err != nil {
			return nil, fmt.Errorf("feed: scan upcoming: %w", err)
		}
		d, t, err := parseSlot(rawDate, rawTime)
		if err != nil {
			return nil, err
		}
		items = append(items, Item{
			Type: "reminder",
			Text: fmt.Sprintf("Reminder: Appointment at %s on %s", t, formatDate(d)),
		})
	}
	return items, upcoming.Err()
}

func parseSlot(rawDate, rawTime string) (civil.Date, civil.TimeOfDay, error) {
	d, err := civil.ParseDate(rawDate)
	if err != nil {
		return civil.Date{}, civil.TimeOfDay{}, err
	}
	t, err := civil.ParseTimeOfDay(rawTime)
	if err != nil {
		return civil.Date{}, civil.TimeOfDay{}, err
	}
	return d, t, nil
}

// formatDate renders "Mon Nov 24" the way the dashboard shows it.
func formatDate(d civil.Date) string {
	return d.In(civil.Office).Format("Mon Jan 2")
}
