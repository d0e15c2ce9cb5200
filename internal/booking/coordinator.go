// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package booking implements the Booking Coordinator (spec §4.9): validate
// a requested slot, book via the CRM with rep assignment, and on failure
// return the earliest alternatives from the next two available days.
package booking

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
)

// alternativesWindow bounds the fallback free-slots query to 7 days from
// the failed request's date (spec §4.9).
const alternativesWindow = 7 * 24 * time.Hour

// Appointments is the CRM dependency.
type Appointments interface {
	BookAppointment(ctx context.Context, req crmclient.AppointmentRequest) (*crmclient.AppointmentResponse, error)
	FreeSlots(ctx context.Context, locationID, calendarID string, windowStart, windowEnd time.Time, repIDs []string) crmclient.FreeSlotsResult
}

// Coordinator books appointments and computes fallback alternatives.
type Coordinator struct {
	crm                    Appointments
	locationID, calendarID string
	defaultAddress         string
}

var _ Appointments = (*crmclient.Client)(nil)

// New constructs a Coordinator.
func New(crm Appointments, locationID, calendarID, defaultAddress string) *Coordinator {
	return &Coordinator{crm: crm, locationID: locationID, calendarID: calendarID, defaultAddress: defaultAddress}
}

// Request is the normalized booking request (spec §4.9).
type Request struct {
	StartTimeUTC time.Time
	ContactID    string
	Address      string
	UserID       string
}

// Outcome is the tagged result of an attempted booking.
type Outcome struct {
	Booked       *crmclient.AppointmentResponse
	Alternatives []crmclient.RawSlot
	NoAlternatives bool
	Err          error
}

// Book attempts the primary booking and, on a non-2xx CRM response, falls
// back to alternatives from the next two available dates within a 7-day
// window (spec §4.9).
func (c *Coordinator) Book(ctx context.Context, req Request) Outcome {
	address := req.Address
	if address == "" {
		address = c.defaultAddress
	}

	resp, err := c.crm.BookAppointment(ctx, crmclient.AppointmentRequest{
		CalendarID:   c.calendarID,
		LocationID:   c.locationID,
		ContactID:    req.ContactID,
		StartTimeUTC: req.StartTimeUTC,
		Address:      address,
		UserID:       req.UserID,
	})
	if err == nil {
		return Outcome{Booked: resp}
	}

	var repFilter []string
	if req.UserID != "" {
		repFilter = []string{req.UserID}
	}

	windowStart := time.Date(req.StartTimeUTC.Year(), req.StartTimeUTC.Month(), req.StartTimeUTC.Day(), 0, 0, 0, 0, time.UTC)
	windowEnd := windowStart.Add(alternativesWindow)

	slotsRes := c.crm.FreeSlots(ctx, c.locationID, c.calendarID, windowStart, windowEnd, repFilter)
	if slotsRes.APIErr != nil {
		return Outcome{Err: fmt.Errorf("booking failed and alternatives lookup failed: %w", slotsRes.APIErr)}
	}

	candidates := filterAtOrAfter(slotsRes.Slots, req.StartTimeUTC)
	alternatives := firstTwoDistinctDates(candidates)
	if len(alternatives) == 0 {
		return Outcome{NoAlternatives: true}
	}
	return Outcome{Alternatives: alternatives}
}

func filterAtOrAfter(slots []crmclient.RawSlot, cutoff time.Time) []crmclient.RawSlot {
	var out []crmclient.RawSlot
	for _, s := range slots {
		if !s.DatetimeUTC.Before(cutoff) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DatetimeUTC.Before(out[j].DatetimeUTC) })
	return out
}

// firstTwoDistinctDates groups chronologically-sorted slots by UTC date and
// returns every slot from the first two distinct dates encountered (spec
// §4.9: "return all slots from the first TWO distinct available dates").
func firstTwoDistinctDates(slots []crmclient.RawSlot) []crmclient.RawSlot {
	var out []crmclient.RawSlot
	seenDates := map[string]bool{}
	for _, s := range slots {
		date := s.DatetimeUTC.Format("2006-01-02")
		if !seenDates[date] {
			if len(seenDates) == 2 {
				break
			}
			seenDates[date] = true
		}
		out = append(out, s)
	}
	return out
}
