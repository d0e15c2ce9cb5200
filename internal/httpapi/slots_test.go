// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/slots"
)

type fakeFreeSlotsFetcher struct {
	result crmclient.FreeSlotsResult
}

func (f *fakeFreeSlotsFetcher) FreeSlots(ctx context.Context, locationID, calendarID string, windowStart, windowEnd time.Time, repIDs []string) crmclient.FreeSlotsResult {
	return f.result
}

func TestAvailableSlotsOutboundReturnsRenderedText(t *testing.T) {
	fetcher := &fakeFreeSlotsFetcher{result: crmclient.FreeSlotsResult{
		Slots: []crmclient.RawSlot{
			{DatetimeUTC: time.Date(2026, 8, 3, 9, 0, 0, 0, time.UTC), RepID: "rep1"},
		},
	}}
	h := newTestHandlers(Deps{Slots: slots.New(fetcher), Router: &fakeRepRouter{reps: []string{"rep1"}}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/availableSlotsOutbound?service=boiler&province=RM&AppointmentDate=03-08-2026&Timeframe=09:00", nil)

	h.availableSlotsOutbound(c)

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "slots")
}

func TestAvailableSlotsOutboundRejectsBadDate(t *testing.T) {
	h := newTestHandlers(Deps{Slots: slots.New(&fakeFreeSlotsFetcher{}), Router: &fakeRepRouter{}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/availableSlotsOutbound?AppointmentDate=not-a-date", nil)

	h.availableSlotsOutbound(c)

	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAvailableSlotsOutboundRepLookupFailure(t *testing.T) {
	h := newTestHandlers(Deps{Slots: slots.New(&fakeFreeSlotsFetcher{}), Router: &fakeRepRouter{err: errRecordNotFound}})

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/availableSlotsOutbound?service=boiler&province=RM", nil)

	h.availableSlotsOutbound(c)

	require.Equal(t, http.StatusInternalServerError, w.Code)
}
