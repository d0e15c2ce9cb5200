// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package slots implements the Slot Service (spec §4.4): fetch free slots
// from the CRM, bound them, and render the stable three-format display
// string the Media Bridge later parses to recover a rep id.
package slots

import (
	"context"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
)

// OutboundBound and AIInjectionBound are the two contexts the service is
// asked to render for (spec §4.4: "first 15 chronological slots for the
// outbound endpoint, first 3 for AI injection").
const (
	OutboundBound   = 15
	AIInjectionBound = 3
)

// FreeSlotsFetcher is the CRM dependency.
type FreeSlotsFetcher interface {
	FreeSlots(ctx context.Context, locationID, calendarID string, windowStart, windowEnd time.Time, repIDs []string) crmclient.FreeSlotsResult
}

// Service renders bounded slot displays for a (location, calendar) pair.
type Service struct {
	crm FreeSlotsFetcher
}

// compile-time assertion that crmclient.Client satisfies the narrower
// FreeSlotsFetcher the service actually depends on.
var _ FreeSlotsFetcher = (*crmclient.Client)(nil)

// New constructs a Service.
func New(crm FreeSlotsFetcher) *Service {
	return &Service{crm: crm}
}

// Result is the bounded, rendered outcome of a slot query.
type Result struct {
	Slots   []crmclient.RawSlot
	Display Rendered
	Empty   bool
	APIErr  error
}

// Fetch queries the CRM, bounds the result to `bound` chronological slots,
// and renders the display string (spec §4.4).
func (s *Service) Fetch(ctx context.Context, locationID, calendarID string, windowStart, windowEnd time.Time, repIDs []string, bound int) Result {
	res := s.crm.FreeSlots(ctx, locationID, calendarID, windowStart, windowEnd, repIDs)
	if res.APIErr != nil {
		return Result{APIErr: res.APIErr}
	}
	if res.Empty || len(res.Slots) == 0 {
		return Result{Empty: true}
	}

	bounded := res.Slots
	if bound > 0 && len(bounded) > bound {
		bounded = bounded[:bound]
	}

	return Result{
		Slots:   bounded,
		Display: Render(bounded),
	}
}
