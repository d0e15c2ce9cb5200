// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package intake

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/slots"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/timeutil"
	"github.com/ristrutturiamolo/call-orchestrator/internal/voiceai"
)

// NoSalesRepWorkflowID and CallScheduledWorkflowID are the CRM workflow ids
// referenced by spec §4.5; left as package vars so a composition root can
// override them from config without widening this package's surface.
var (
	NoSalesRepWorkflowID    = "no-sales-rep"
	CallScheduledWorkflowID = "call-scheduled"
)

// RepRouter resolves eligible reps for (service, province).
type RepRouter interface {
	RepsFor(service, province string) ([]string, error)
}

// QueueEnqueuer persists the resulting call_queue row.
type QueueEnqueuer interface {
	Enqueue(entry *store.CallQueueEntry) (uint64, error)
}

// Handler implements the Intake Endpoint's business flow (spec §4.5).
type Handler struct {
	crm       *crmclient.Client
	router    RepRouter
	slots     *slots.Service
	voiceai   *voiceai.Client
	queue     QueueEnqueuer
	notifier  *notifier.Notifier
	zips      timeutil.ZipLookup
	llm       timeutil.LLMProvinceFallback
	locationID string
	calendarID string
	logger     telemetry.Logger
}

// Config carries the CRM scoping identifiers the handler needs beyond its
// collaborators.
type Config struct {
	LocationID string
	CalendarID string
}

// New constructs a Handler.
func New(crm *crmclient.Client, router RepRouter, slotSvc *slots.Service, voice *voiceai.Client, queue QueueEnqueuer, notif *notifier.Notifier, zips timeutil.ZipLookup, llm timeutil.LLMProvinceFallback, cfg Config, logger telemetry.Logger) *Handler {
	return &Handler{
		crm: crm, router: router, slots: slotSvc, voiceai: voice,
		queue: queue, notifier: notif, zips: zips, llm: llm,
		locationID: cfg.LocationID, calendarID: cfg.CalendarID, logger: logger,
	}
}

// Outcome is the handler's result for the HTTP adapter to translate into a
// status code.
type Outcome struct {
	HTTPStatus int
	QueueID    uint64
	Message    string
}

// Submit runs the full intake validation + routing + enqueue flow (spec
// §4.5). requestID is used only for operator notifications.
func (h *Handler) Submit(ctx context.Context, req Request, requestID string) Outcome {
	abrupt := req.CustomData.IsAbruptEndingRetry

	// 1. Service required and valid.
	if !validServices[req.Service] {
		h.notify(ctx, notifier.SeverityNormal, req, requestID, "intake rejected: invalid or missing Service", nil)
		return Outcome{HTTPStatus: 400, Message: "Service is required and must be one of Infissi, Vetrate, Pergole"}
	}

	// 2. full_address required unless abrupt-retry.
	if req.FullAddress == "" && !abrupt {
		h.notify(ctx, notifier.SeverityNormal, req, requestID, "intake rejected: missing full_address", nil)
		return Outcome{HTTPStatus: 400, Message: "full_address is required"}
	}

	// 3. phone and contact_id required.
	if req.Phone == "" || req.ContactID == "" {
		h.notify(ctx, notifier.SeverityNormal, req, requestID, "intake rejected: missing phone or contact_id", nil)
		return Outcome{HTTPStatus: 400, Message: "phone and contact_id are required"}
	}

	// 4. CRM token for the location must be obtainable.
	if _, err := h.crm.ValidBearer(ctx, h.locationID); err != nil {
		h.notify(ctx, notifier.SeverityFatal, req, requestID, "intake: CRM token unobtainable", err)
		return Outcome{HTTPStatus: 500, Message: "CRM token unavailable"}
	}

	province := "unknown"
	if !abrupt {
		resolved, _, err := timeutil.ExtractProvince(ctx, req.FullAddress, h.zips, h.llm)
		if err != nil {
			h.logger.Warnw("intake: province extraction failed", "error", err.Error())
		} else {
			province = resolved
		}
	}

	reps, err := h.router.RepsFor(req.Service, province)
	if err != nil {
		h.notify(ctx, notifier.SeverityFatal, req, requestID, "intake: rep routing failed", err)
		return Outcome{HTTPStatus: 500, Message: "rep routing failed"}
	}
	if len(reps) == 0 && !abrupt {
		if addErr := h.crm.AddToWorkflow(ctx, h.locationID, req.ContactID, NoSalesRepWorkflowID); addErr != nil {
			h.logger.Warnw("intake: failed to tag no-sales-rep workflow", "error", addErr.Error())
		}
		h.notify(ctx, notifier.SeverityNormal, req, requestID, "intake rejected: no sales representatives available", nil)
		return Outcome{HTTPStatus: 400, Message: "No sales representatives available"}
	}

	windowStart, windowEnd := outboundWindow(time.Now().UTC())
	slotResult := h.slots.Fetch(ctx, h.locationID, h.calendarID, windowStart, windowEnd, reps, slots.OutboundBound)

	if len(reps) > 0 && (slotResult.APIErr != nil || slotResult.Empty) {
		h.notify(ctx, notifier.SeverityFatal, req, requestID, "intake: slot fetch failed or empty for an available rep set", slotResult.APIErr)
		return Outcome{HTTPStatus: 500, Message: "availability could not be determined"}
	}

	agentDir := voiceai.Outbound
	signedURL, err := h.voiceai.SignedURL(ctx, agentDir)
	if err != nil {
		h.notify(ctx, notifier.SeverityFatal, req, requestID, "intake: voice-AI signed url unobtainable", err)
		return Outcome{HTTPStatus: 500, Message: "voice AI unavailable"}
	}

	now := time.Now().UTC()
	var provincePtr *string
	if province != "" {
		provincePtr = &province
	}

	entry := &store.CallQueueEntry{
		ContactID:             req.ContactID,
		PhoneNumber:           req.Phone,
		FirstName:             req.FirstName,
		FullName:              req.FullName,
		Email:                 req.Email,
		Service:               req.Service,
		Province:              provincePtr,
		RetryStage:            0,
		Status:                store.QueueStatusPending,
		ScheduledAt:           now,
		CreatedAt:             now,
		AvailableSlotsText:    slotResult.Display.Text,
		InitialSignedURL:      signedURL,
		FirstAttemptTimestamp: now,
		CallOptionsBlob:       marshalCallOptionsSeed(req, abrupt),
	}

	id, err := h.queue.Enqueue(entry)
	if err != nil {
		h.notify(ctx, notifier.SeverityFatal, req, requestID, "intake: failed to enqueue call", err)
		return Outcome{HTTPStatus: 500, Message: "failed to enqueue call"}
	}

	if err := h.crm.AddToWorkflow(ctx, h.locationID, req.ContactID, CallScheduledWorkflowID); err != nil {
		h.logger.Warnw("intake: failed to tag call-scheduled workflow", "error", err.Error())
	}

	return Outcome{HTTPStatus: 202, QueueID: id, Message: "call scheduled"}
}

// outboundWindow returns tomorrow 08:30 Europe/Rome through +14 days 21:30,
// per spec §4.5.
func outboundWindow(from time.Time) (time.Time, time.Time) {
	local := from.In(timeutil.Rome)
	start := time.Date(local.Year(), local.Month(), local.Day(), 8, 30, 0, 0, timeutil.Rome).AddDate(0, 0, 1)
	end := start.AddDate(0, 0, 14)
	end = time.Date(end.Year(), end.Month(), end.Day(), 21, 30, 0, 0, timeutil.Rome)
	return start.UTC(), end.UTC()
}

func marshalCallOptionsSeed(req Request, abrupt bool) string {
	blob, err := json.Marshal(map[string]interface{}{
		"isAbruptEndingRetry":    abrupt,
		"originalConversationId": req.CustomData.OriginalConversationID,
		"pastCallSummary":        req.CustomData.PastCallSummary,
	})
	if err != nil {
		return "{}"
	}
	return string(blob)
}

func (h *Handler) notify(ctx context.Context, sev notifier.Severity, req Request, requestID, msg string, err error) {
	h.notifier.Send(ctx, notifier.Notification{
		Severity:  sev,
		RequestID: requestID,
		ContactID: req.ContactID,
		Phone:     req.Phone,
		Service:   req.Service,
		Message:   msg,
		Err:       err,
	})
}
