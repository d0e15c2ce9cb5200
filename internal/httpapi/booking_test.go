// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/booking"
	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
)

type fakeAppointments struct {
	bookResp *crmclient.AppointmentResponse
	bookErr  error
	free     crmclient.FreeSlotsResult
}

func (f *fakeAppointments) BookAppointment(ctx context.Context, req crmclient.AppointmentRequest) (*crmclient.AppointmentResponse, error) {
	return f.bookResp, f.bookErr
}

func (f *fakeAppointments) FreeSlots(ctx context.Context, locationID, calendarID string, windowStart, windowEnd time.Time, repIDs []string) crmclient.FreeSlotsResult {
	return f.free
}

func TestBookAppointmentSuccess(t *testing.T) {
	crm := &fakeAppointments{bookResp: &crmclient.AppointmentResponse{AppointmentID: "appt1", Status: "confirmed"}}
	h := newTestHandlers(Deps{Booker: booking.New(crm, "loc1", "cal1", "Via Roma 1")})

	body := `{"appointmentDate":"03-08-2026 09:00","contactId":"contact1"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookAppointment", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.bookAppointment(c)

	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), `"status":"booked"`)
}

func TestBookAppointmentRejectsMalformedDate(t *testing.T) {
	h := newTestHandlers(Deps{Booker: booking.New(&fakeAppointments{}, "loc1", "cal1", "Via Roma 1")})

	body := `{"appointmentDate":"not a date","contactId":"contact1"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookAppointment", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.bookAppointment(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookAppointmentAcceptsISODate(t *testing.T) {
	crm := &fakeAppointments{bookResp: &crmclient.AppointmentResponse{AppointmentID: "appt2"}}
	h := newTestHandlers(Deps{Booker: booking.New(crm, "loc1", "cal1", "Via Roma 1")})

	body := `{"appointmentDate":"2026-08-03 09:00","contactId":"contact1"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookAppointment", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.bookAppointment(c)

	require.Equal(t, http.StatusCreated, w.Code)
}

func TestBookAppointmentNoAlternatives(t *testing.T) {
	crm := &fakeAppointments{
		bookErr: errRecordNotFound,
		free:    crmclient.FreeSlotsResult{Empty: true},
	}
	h := newTestHandlers(Deps{Booker: booking.New(crm, "loc1", "cal1", "Via Roma 1")})

	body := `{"appointmentDate":"03-08-2026 09:00","contactId":"contact1"}`
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPost, "/bookAppointment", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")

	h.bookAppointment(c)

	require.Equal(t, http.StatusConflict, w.Code)
}
