// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package queueworker implements the Queue Worker (spec §4.6): a single
// ticking task that claims due call_queue rows up to a concurrency cap,
// places telephony calls, and writes the calls row before any status
// callback can observe it.
package queueworker

import (
	"context"
	"fmt"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telephony"
)

// Queue is the persistence dependency.
type Queue interface {
	ClaimDue(limit int) ([]store.CallQueueEntry, error)
	DeleteQueueEntry(id uint64) error
	MarkQueueFailed(id uint64, lastErr string) error
	CreateCallRecord(rec *store.CallRecord) error
}

// Telephony places calls and reports the active-call count.
type Telephony interface {
	ActiveCallCount(ctx context.Context) (int, error)
	PlaceCall(ctx context.Context, opts telephony.CallOptions) (string, error)
}

// Worker is the singleton Queue Worker task.
type Worker struct {
	queue        Queue
	telephony    Telephony
	crm          *crmclient.Client
	notifier     *notifier.Notifier
	logger       telemetry.Logger
	maxActive    int
	tickInterval time.Duration
	locationID   string
	statusCBURL  string
	twimlURL     string
}

// Config carries the worker's tunables (spec §6/§7).
type Config struct {
	MaxActiveCalls      int
	TickInterval        time.Duration
	LocationID          string
	StatusCallbackURL   string
	TwimlURL            string
}

// New constructs a Worker.
func New(queue Queue, tel Telephony, crm *crmclient.Client, notif *notifier.Notifier, logger telemetry.Logger, cfg Config) *Worker {
	return &Worker{
		queue: queue, telephony: tel, crm: crm, notifier: notif, logger: logger,
		maxActive: cfg.MaxActiveCalls, tickInterval: cfg.TickInterval,
		locationID: cfg.LocationID, statusCBURL: cfg.StatusCallbackURL, twimlURL: cfg.TwimlURL,
	}
}

// Run ticks until ctx is cancelled (spec §5: "one singleton Queue Worker
// task ticks every N seconds").
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Tick(ctx)
		}
	}
}

// Tick runs a single claim-and-place cycle (spec §4.6).
func (w *Worker) Tick(ctx context.Context) {
	active, err := w.telephony.ActiveCallCount(ctx)
	if err != nil {
		w.logger.Warnw("queueworker: active call count failed, assuming cap saturated", "error", err.Error())
		return
	}

	available := w.maxActive - active
	if available <= 0 {
		return
	}

	rows, err := w.queue.ClaimDue(available)
	if err != nil {
		w.logger.Errorw("queueworker: claim due failed", "error", err.Error())
		return
	}

	for _, row := range rows {
		w.placeOne(ctx, row)
	}
}

func (w *Worker) placeOne(ctx context.Context, row store.CallQueueEntry) {
	if _, err := w.crm.ValidBearer(ctx, w.locationID); err != nil {
		w.failRow(ctx, row, fmt.Errorf("crm token unobtainable: %w", err))
		return
	}

	province := ""
	if row.Province != nil {
		province = *row.Province
	}

	opts := telephony.CallOptions{
		To:                row.PhoneNumber,
		StatusCallbackURL: w.statusCBURL,
		TwimlURL:          w.twimlURL,
		MachineDetection:  "DetectMessageEnd",
	}
	sid, err := w.telephony.PlaceCall(ctx, opts)
	if err != nil {
		w.failRow(ctx, row, fmt.Errorf("place call: %w", err))
		return
	}

	rec := &store.CallRecord{
		CallSID:               sid,
		To:                    row.PhoneNumber,
		ContactID:             row.ContactID,
		RetryCount:            row.RetryStage,
		Status:                "initiated",
		CreatedAt:             time.Now().UTC(),
		SignedURL:             row.InitialSignedURL,
		FullName:              row.FullName,
		FirstName:             row.FirstName,
		Email:                 row.Email,
		AvailableSlots:        row.AvailableSlotsText,
		FirstAttemptTimestamp: row.FirstAttemptTimestamp,
		Service:               row.Service,
		Province:              province,
		CallOptionsBlob:       row.CallOptionsBlob,
	}
	if err := w.queue.CreateCallRecord(rec); err != nil {
		// The call is already live at the provider; we cannot undo it, only
		// surface the inconsistency loudly (spec §4.6 ordering invariant).
		w.notifier.Send(ctx, notifier.Notification{
			Severity:  notifier.SeverityFatal,
			ContactID: row.ContactID,
			Phone:     row.PhoneNumber,
			Service:   row.Service,
			Province:  province,
			Message:   fmt.Sprintf("call %s placed but calls row could not be written", sid),
			Err:       err,
		})
		return
	}

	if err := w.crm.AddContactNote(ctx, w.locationID, row.ContactID, "Outbound call attempt in progress."); err != nil {
		w.logger.Warnw("queueworker: failed to append attempt note", "contact_id", row.ContactID, "error", err.Error())
	}

	if err := w.queue.DeleteQueueEntry(row.ID); err != nil {
		w.logger.Errorw("queueworker: failed to delete claimed row after success", "id", row.ID, "error", err.Error())
	}
}

func (w *Worker) failRow(ctx context.Context, row store.CallQueueEntry, err error) {
	if markErr := w.queue.MarkQueueFailed(row.ID, err.Error()); markErr != nil {
		w.logger.Errorw("queueworker: failed to mark row failed", "id", row.ID, "error", markErr.Error())
	}
	w.notifier.Send(ctx, notifier.Notification{
		Severity:  notifier.SeverityFatal,
		ContactID: row.ContactID,
		Phone:     row.PhoneNumber,
		Service:   row.Service,
		Message:   "queue worker failed to place call",
		Err:       err,
	})
}
