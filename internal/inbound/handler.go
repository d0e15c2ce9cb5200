// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package inbound implements the Inbound Handler (spec §4.12): answers an
// incoming telephony call with availability already resolved and a
// voice-AI signed URL, then bridges it to the Media Bridge's WebSocket.
package inbound

import (
	"context"
	"fmt"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/slots"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telephony"
	"github.com/ristrutturiamolo/call-orchestrator/internal/timeutil"
	"github.com/ristrutturiamolo/call-orchestrator/internal/voiceai"
)

// IncomingCallStore persists the incoming_calls mirror row.
type IncomingCallStore interface {
	CreateIncomingCall(rec *store.IncomingCall) error
}

// Handler answers inbound telephony webhooks.
type Handler struct {
	slots       *slots.Service
	voiceai     *voiceai.Client
	calls       IncomingCallStore
	logger      telemetry.Logger
	locationID  string
	calendarID  string
	mediaWSURL  string
}

// Config carries the identifiers and the media WebSocket endpoint this
// handler bridges calls to.
type Config struct {
	LocationID string
	CalendarID string
	MediaWSURL string
}

// New constructs a Handler.
func New(slotSvc *slots.Service, voice *voiceai.Client, calls IncomingCallStore, logger telemetry.Logger, cfg Config) *Handler {
	return &Handler{
		slots: slotSvc, voiceai: voice, calls: calls, logger: logger,
		locationID: cfg.LocationID, calendarID: cfg.CalendarID, mediaWSURL: cfg.MediaWSURL,
	}
}

// Answer implements the full inbound flow (spec §4.12) and returns the
// TwiML document the telephony provider should execute.
func (h *Handler) Answer(ctx context.Context, callSID, callerNumber string) ([]byte, error) {
	windowStart, windowEnd := todayAndTomorrow(time.Now().UTC())
	slotResult := h.slots.Fetch(ctx, h.locationID, h.calendarID, windowStart, windowEnd, nil, slots.OutboundBound)
	if slotResult.APIErr != nil {
		h.logger.Warnw("inbound: slot fetch failed, proceeding without availability text", "call_sid", callSID, "error", slotResult.APIErr.Error())
	}

	signedURL, err := h.voiceai.SignedURL(ctx, voiceai.Inbound)
	if err != nil {
		return nil, fmt.Errorf("inbound: voice-ai signed url unobtainable: %w", err)
	}

	rec := &store.IncomingCall{
		CallSID:        callSID,
		CallerNumber:   callerNumber,
		Status:         "ringing",
		CreatedAt:      time.Now().UTC(),
		SignedURL:      signedURL,
		AvailableSlots: slotResult.Display.Text,
	}
	if err := h.calls.CreateIncomingCall(rec); err != nil {
		return nil, fmt.Errorf("inbound: failed to persist incoming call: %w", err)
	}

	return telephony.ConnectStreamTwiML(h.mediaWSURL, map[string]string{
		"callSid":      callSID,
		"callerNumber": callerNumber,
	})
}

// todayAndTomorrow returns Europe/Rome today 00:00 through tomorrow 23:59,
// expressed in UTC (spec §4.12: "today + next day").
func todayAndTomorrow(from time.Time) (time.Time, time.Time) {
	local := from.In(timeutil.Rome)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, timeutil.Rome)
	end := start.AddDate(0, 0, 2)
	return start.UTC(), end.UTC()
}
