// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ristrutturiamolo/call-orchestrator/internal/slots"
	"github.com/ristrutturiamolo/call-orchestrator/internal/timeutil"
)

const outboundSlotsWindow = 7 * 24 * time.Hour
const inboundSlotsWindow = 48 * time.Hour

// availableSlotsOutbound implements `GET /availableSlotsOutbound` (spec
// §6): up to 15 chronological slots in a 7-day window starting at the
// given appointment date/time, filtered to the eligible reps for
// (service, province).
func (h *handlers) availableSlotsOutbound(c *gin.Context) {
	q := c.Request.URL.Query()
	service := q.Get("service")
	province := q.Get("province")

	windowStart, err := parseAppointmentWindow(q.Get("AppointmentDate"), q.Get("Timeframe"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	windowEnd := windowStart.Add(outboundSlotsWindow)

	reps, err := h.deps.Router.RepsFor(service, province)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "rep lookup failed"})
		return
	}

	result := h.deps.Slots.Fetch(c.Request.Context(), h.cfg.LocationID, h.cfg.CalendarID, windowStart, windowEnd, reps, slots.OutboundBound)
	if result.APIErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "slot fetch failed"})
		return
	}
	if result.Empty {
		c.JSON(http.StatusOK, gin.H{"slots": []string{}, "text": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"slots": result.Slots, "text": result.Display.Text})
}

// availableSlotsInbound implements `GET /availableSlotsInbound` (spec §6):
// 403 outside 08-20 Europe/Rome, else the formatted next-48h slot string
// across all reps.
func (h *handlers) availableSlotsInbound(c *gin.Context) {
	now := time.Now().UTC()
	if !timeutil.IsOperatingHours(now) {
		c.JSON(http.StatusForbidden, gin.H{"error": "outside operating hours"})
		return
	}

	result := h.deps.Slots.Fetch(c.Request.Context(), h.cfg.LocationID, h.cfg.CalendarID, now, now.Add(inboundSlotsWindow), nil, slots.OutboundBound)
	if result.APIErr != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "slot fetch failed"})
		return
	}
	if result.Empty {
		c.JSON(http.StatusOK, gin.H{"text": ""})
		return
	}
	c.JSON(http.StatusOK, gin.H{"text": result.Display.Text})
}

// parseAppointmentWindow accepts AppointmentDate as either DD-MM-YYYY or
// YYYY-MM-DD, combined with an HH:mm Timeframe, and returns the UTC instant
// (spec §6). Missing inputs default to now.
func parseAppointmentWindow(appointmentDate, timeframe string) (time.Time, error) {
	if appointmentDate == "" {
		return time.Now().UTC(), nil
	}
	if timeframe == "" {
		timeframe = "00:00"
	}

	if t, err := timeutil.ItalianToUTC(appointmentDate, timeframe); err == nil {
		return t, nil
	}

	parsed, err := time.Parse("2006-01-02", appointmentDate)
	if err != nil {
		return time.Time{}, err
	}
	dmy := parsed.Format("02-01-2006")
	return timeutil.ItalianToUTC(dmy, timeframe)
}
