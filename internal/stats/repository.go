// Package stats serves the admin reporting endpoints. Read-only aggregation;
// nothing here participates in booking decisions.
package stats

import (
	"context"
	"database/sql"
	"time"
)

// MonthCount is the number of appointments (or registrations) in one month.
type MonthCount struct {
	Month int `json:"month"`
	Count int `json:"count"`
}

// DayCount is the number of appointments in one day of a month.
type DayCount struct {
	Day   int `json:"day"`
	Count int `json:"count"`
}

// MonthlyReport groups appointment and registration counts by month.
type MonthlyReport struct {
	Year                int          `json:"year"`
	AppointmentsByMonth []MonthCount `json:"appointmentsByMonth"`
	ResidentsByMonth    []MonthCount `json:"residentsByMonth"`
}

// DailyReport groups appointment counts by day for one month.
type DailyReport struct {
	Year              int        `json:"year"`
	Month             int        `json:"month"`
	AppointmentsByDay []DayCount `json:"appointmentsByDay"`
}

// Repository runs the aggregation queries.
type Repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Monthly returns per-month appointment and resident-registration counts for
// a year, normalized so every month appears even when empty.
func (r *Repository) Monthly(ctx context.Context, year int) (*MonthlyReport, error) {
	appts, err := r.monthCounts(ctx, `
		SELECT EXTRACT(MONTH FROM appointment_date)::int AS month, COUNT(*)::int AS count
		FROM appointments
		WHERE EXTRACT(YEAR FROM appointment_date) = $1
		GROUP BY month ORDER BY month`, year)
	if err != nil {
		return nil, err
	}
	residents, err := r.monthCounts(ctx, `
		SELECT EXTRACT(MONTH FROM created_at)::int AS month, COUNT(*)::int AS count
		FROM residents
		WHERE EXTRACT(YEAR FROM created_at) = $1
		GROUP BY month ORDER BY month`, year)
	if err != nil {
		return nil, err
	}
	return &MonthlyReport{
		Year:                year,
		AppointmentsByMonth: normalizeMonths(appts),
		ResidentsByMonth:    normalizeMonths(residents),
	}, nil
}

// Daily returns per-day appointment counts for a month, normalized to the
// month's full length.
func (r *Repository) Daily(ctx context.Context, year int, month time.Month) (*DailyReport, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT EXTRACT(DAY FROM appointment_date)::int AS day, COUNT(*)::int AS count
		FROM appointments
		WHERE EXTRACT(YEAR FROM appointment_date) = $1
		  AND EXTRACT(MONTH FROM appointment_date) = $2
		GROUP BY day ORDER BY day`, year, int(month))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var day, count int
		if err := rows.Scan(&day, &count); err != nil {
			return nil, err
		}
		counts[day] = count
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
	out := make([]DayCount, 0, daysInMonth)
	for d := 1; d <= daysInMonth; d++ {
		out = append(out, DayCount{Day: d, Count: counts[d]})
	}
	return &DailyReport{Year: year, Month: int(month), AppointmentsByDay: out}, nil
}

func (r *Repository) monthCounts(ctx context.Context, query string, year int) (map[int]int, error) {
	rows, err := r.db.QueryContext(ctx, query, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	counts := map[int]int{}
	for rows.Next() {
		var month, count int
		if err := rows.Scan(&month, &count); err != nil {
			return nil, err
		}
		counts[month] = count
	}
	return counts, rows.Err()
}

func normalizeMonths(counts map[int]int) []MonthCount {
	out := make([]MonthCount, 0, 12)
	for m := 1; m <= 12; m++ {
		out = append(out, MonthCount{Month: m, Count: counts[m]})
	}
	return out
}
