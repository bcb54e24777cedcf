package appointments

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"

	"github.com/barangay-bonliw/appointments/internal/identity"
)

func newTestHandler(t *testing.T) (http.Handler, pgxmock.PgxPoolIface) {
	t.Helper()
	svc, mock := newServiceWithMock(t)
	h := NewHandler(svc, nil)

	r := chi.NewRouter()
	r.Post("/api/appointments", h.Book)
	r.Get("/api/appointments/{id}", h.Get)
	r.Get("/api/appointments/mine", h.ListMine)
	r.Get("/api/appointments/all", h.ListAll)
	r.Put("/api/appointments/{id}/status", h.SetStatus)
	r.Put("/api/appointments/{id}/schedule", h.Reschedule)
	r.Delete("/api/appointments/{id}", h.Delete)
	return r, mock
}

func doRequest(t *testing.T, h http.Handler, actor identity.Identity, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	}
	req = req.WithContext(identity.WithIdentity(req.Context(), actor))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	out := map[string]any{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v (%s)", err, rec.Body.String())
	}
	return out
}

func TestHandlerBookCreated(t *testing.T) {
	h, mock := newTestHandler(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs("2025-11-24", "09:00", nil).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "r1", "Document Request", "Barangay Clearance",
			"employment", "2025-11-24", "09:00", StatusPending, "").
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))
	mock.ExpectCommit()

	body := `{"serviceCategory":"Document Request","documentType":"Barangay Clearance",` +
		`"purpose":"employment","date":"2025-11-24","time":"09:00"}`
	rec := doRequest(t, h, resident, http.MethodPost, "/api/appointments", body)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["message"] != "Appointment created successfully" {
		t.Errorf("message = %v", resp["message"])
	}
	if resp["appointmentId"] == nil || resp["appointment"] == nil {
		t.Errorf("incomplete response: %v", resp)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("expectations: %v", err)
	}
}

func TestHandlerBookMalformedBody(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(t, h, resident, http.MethodPost, "/api/appointments", "{not json")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerBookPolicyViolation(t *testing.T) {
	h, _ := newTestHandler(t)

	// Same-day booking violates the lead-time rule.
	body := `{"serviceCategory":"Document Request","documentType":"Barangay Clearance",` +
		`"purpose":"employment","date":"2025-11-20","time":"09:00"}`
	rec := doRequest(t, h, resident, http.MethodPost, "/api/appointments", body)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["reason"] != "too-soon" {
		t.Errorf("reason = %v, want too-soon", resp["reason"])
	}
}

func TestHandlerBookSlotConflict(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs("2025-11-24", "09:00", nil).
		WillReturnRows(pgxmock.NewRows([]string{"id"}).AddRow(uuid.New()))
	mock.ExpectRollback()

	body := `{"serviceCategory":"Document Request","documentType":"Barangay Clearance",` +
		`"purpose":"employment","date":"2025-11-24","time":"09:00"}`
	rec := doRequest(t, h, resident, http.MethodPost, "/api/appointments", body)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["reason"] != "slot-taken" {
		t.Errorf("reason = %v", resp["reason"])
	}
}

func TestHandlerBookRacedConflictIs409(t *testing.T) {
	h, mock := newTestHandler(t)

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT id FROM appointments").
		WithArgs("2025-11-24", "09:00", nil).
		WillReturnError(pgx.ErrNoRows)
	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "idx_appointments_active_slot"})
	mock.ExpectRollback()

	body := `{"serviceCategory":"Document Request","documentType":"Barangay Clearance",` +
		`"purpose":"employment","date":"2025-11-24","time":"09:00"}`
	rec := doRequest(t, h, resident, http.MethodPost, "/api/appointments", body)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409 (body = %s)", rec.Code, rec.Body.String())
	}
	if resp := decodeBody(t, rec); resp["reason"] != "slot-taken" {
		t.Errorf("reason = %v", resp["reason"])
	}
}

func TestHandlerSetStatusInvalidTransition(t *testing.T) {
	h, mock := newTestHandler(t)
	id := uuid.New()

	mock.ExpectBegin()
	mock.ExpectQuery("SELECT(.|\n)+FOR UPDATE").
		WithArgs(id).
		WillReturnRows(appointmentRow(id, "completed", "2025-11-24", "09:00:00"))
	mock.ExpectRollback()

	rec := doRequest(t, h, admin, http.MethodPut, "/api/appointments/"+id.String()+"/status",
		`{"status":"approved"}`)

	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if resp := decodeBody(t, rec); resp["reason"] != "invalid-transition" {
		t.Errorf("reason = %v", resp["reason"])
	}
}

func TestHandlerBadAppointmentID(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(t, h, admin, http.MethodPut, "/api/appointments/not-a-uuid/status",
		`{"status":"approved"}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerDeleteHidesForeignAppointment(t *testing.T) {
	h, mock := newTestHandler(t)
	id := uuid.New()

	other := appointmentRow(id, "pending", "2025-11-24", "09:00:00")
	// Belongs to a different resident.
	mock.ExpectBegin()
	mock.ExpectQuery("SELECT(.|\n)+FOR UPDATE").
		WithArgs(id).
		WillReturnRows(other)
	mock.ExpectRollback()

	actor := identity.Identity{UserID: "someone-else", Role: identity.RoleResident}
	rec := doRequest(t, h, actor, http.MethodDelete, "/api/appointments/"+id.String(), "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerGetHidesForeignAppointment(t *testing.T) {
	h, mock := newTestHandler(t)
	id := uuid.New()

	mock.ExpectQuery("FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(appointmentRow(id, "pending", "2025-11-24", "09:00:00"))

	actor := identity.Identity{UserID: "someone-else", Role: identity.RoleResident}
	rec := doRequest(t, h, actor, http.MethodGet, "/api/appointments/"+id.String(), "")

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestHandlerGetOwnAppointment(t *testing.T) {
	h, mock := newTestHandler(t)
	id := uuid.New()

	mock.ExpectQuery("FROM appointments WHERE id").
		WithArgs(id).
		WillReturnRows(appointmentRow(id, "approved", "2025-11-24", "09:00:00"))

	rec := doRequest(t, h, resident, http.MethodGet, "/api/appointments/"+id.String(), "")

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	resp := decodeBody(t, rec)
	if resp["status"] != "approved" {
		t.Errorf("status field = %v", resp["status"])
	}
}

func TestHandlerListAllRejectsUnknownStatusFilter(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doRequest(t, h, admin, http.MethodGet, "/api/appointments/all?status=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestHandlerMissingIdentity(t *testing.T) {
	h, _ := newTestHandler(t)
	req := httptest.NewRequest(http.MethodGet, "/api/appointments/mine", nil)
	req = req.WithContext(context.Background())
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}
