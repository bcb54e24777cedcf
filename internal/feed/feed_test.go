package feed

import (
	"context"
	"strings"
	"testing"

	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/require"

	"github.com/barangay-bonliw/appointments/internal/identity"
)

func TestAdminFeedListsPendingRequests(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("WHERE a.status = 'pending'").
		WillReturnRows(pgxmock.NewRows([]string{"full_name", "appointment_date", "appointment_time"}).
			AddRow("Juan Dela Cruz", "2025-11-24", "09:00:00").
			AddRow("Maria Santos", "2025-11-25", "10:30:00"))

	repo := NewRepository(mock)
	items, err := repo.For(context.Background(), identity.Identity{UserID: "admin-1", Role: identity.RoleAdmin})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "appointment", items[0].Type)
	require.Contains(t, items[0].Text, "Juan Dela Cruz")
	require.Contains(t, items[0].Text, "09:00")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentFeedIncludesUpcomingReminder(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("status <> 'pending'").
		WithArgs("res-1").
		WillReturnRows(pgxmock.NewRows([]string{"status", "appointment_date", "appointment_time"}).
			AddRow("approved", "2025-11-24", "09:00:00"))
	mock.ExpectQuery("appointment_date >= CURRENT_DATE").
		WithArgs("res-1").
		WillReturnRows(pgxmock.NewRows([]string{"appointment_date", "appointment_time"}).
			AddRow("2025-11-24", "09:00:00"))

	repo := NewRepository(mock)
	items, err := repo.For(context.Background(), identity.Identity{UserID: "res-1", Role: identity.RoleResident})
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "status", items[0].Type)
	require.Equal(t, "reminder", items[1].Type)
	require.True(t, strings.HasPrefix(items[1].Text, "Reminder:"), items[1].Text)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestResidentFeedEmptyWhenNothingHappened(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery("status <> 'pending'").
		WithArgs("res-2").
		WillReturnRows(pgxmock.NewRows([]string{"status", "appointment_date", "appointment_time"}))
	mock.ExpectQuery("appointment_date >= CURRENT_DATE").
		WithArgs("res-2").
		WillReturnRows(pgxmock.NewRows([]string{"appointment_date", "appointment_time"}))

	repo := NewRepository(mock)
	items, err := repo.For(context.Background(), identity.Identity{UserID: "res-2", Role: identity.RoleResident})
	require.NoError(t, err)
	require.Empty(t, items)
	require.NoError(t, mock.ExpectationsWereMet())
}
