// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ristrutturiamolo/call-orchestrator/internal/booking"
	"github.com/ristrutturiamolo/call-orchestrator/internal/timeutil"
)

type bookAppointmentBody struct {
	AppointmentDate string `json:"appointmentDate"`
	ContactID       string `json:"contactId"`
	Address         string `json:"address"`
	UserID          string `json:"userId"`
}

// bookAppointment implements `POST /bookAppointment` (spec §4.9/§6).
func (h *handlers) bookAppointment(c *gin.Context) {
	var body bookAppointmentBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	startUTC, err := parseFlexibleDateTime(body.AppointmentDate)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "appointmentDate must be DD-MM-YYYY HH:mm or YYYY-MM-DD HH:mm"})
		return
	}

	outcome := h.deps.Booker.Book(c.Request.Context(), booking.Request{
		StartTimeUTC: startUTC,
		ContactID:    body.ContactID,
		Address:      body.Address,
		UserID:       body.UserID,
	})

	switch {
	case outcome.Booked != nil:
		c.JSON(http.StatusCreated, gin.H{"status": "booked", "appointment": outcome.Booked})
	case outcome.NoAlternatives:
		c.JSON(http.StatusConflict, gin.H{"status": "booking_failed_no_alternatives"})
	case outcome.Err != nil:
		h.deps.Logger.Errorw("bookAppointment: failed", "contact_id", body.ContactID, "error", outcome.Err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "booking failed"})
	default:
		c.JSON(http.StatusOK, gin.H{"status": "booking_failed_alternatives_available", "slots": outcome.Alternatives})
	}
}

// parseFlexibleDateTime accepts "DD-MM-YYYY HH:mm" or "YYYY-MM-DD HH:mm"
// Europe/Rome civil times, returning the UTC instant (spec §4.9).
func parseFlexibleDateTime(value string) (time.Time, error) {
	if civil, err := time.ParseInLocation("02-01-2006 15:04", value, timeutil.Rome); err == nil {
		return civil.UTC(), nil
	}
	if civil, err := time.ParseInLocation("2006-01-02 15:04", value, timeutil.Rome); err == nil {
		return civil.UTC(), nil
	}
	return time.Time{}, fmt.Errorf("unparseable datetime %q", value)
}

type updateContactAddressBody struct {
	ContactID   string `json:"contactId"`
	FullAddress string `json:"fullAddress"`
}

// updateContactAddress implements `POST /updateContactAddress` (spec §6).
func (h *handlers) updateContactAddress(c *gin.Context) {
	var body updateContactAddressBody
	if err := c.ShouldBindJSON(&body); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "malformed request body"})
		return
	}

	if err := h.deps.CRM.UpdateContactAddress(c.Request.Context(), h.cfg.LocationID, body.ContactID, body.FullAddress); err != nil {
		h.deps.Logger.Errorw("updateContactAddress: failed", "contact_id", body.ContactID, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "update failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "updated"})
}
