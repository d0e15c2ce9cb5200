// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package retry implements the Retry Scheduler (spec §4.7): classifies
// telephony status callbacks and, for retryable outcomes, computes the
// next attempt slot from the fixed 10-step schedule.
package retry

import (
	"context"
	"fmt"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telephony"
	"github.com/ristrutturiamolo/call-orchestrator/internal/timeutil"
)

// maxAttempts is the hard cap on total attempts (spec §4.7: "the 10th
// schedules nothing more").
const maxAttempts = 10

// CallStore is the persistence dependency.
type CallStore interface {
	GetCallRecord(callSID string) (*store.CallRecord, error)
	UpdateCallRecord(callSID string, updates map[string]interface{}) error
	TryLatchRetryScheduled(callSID string) (bool, error)
	Enqueue(entry *store.CallQueueEntry) (uint64, error)
}

// Hangup is the telephony dependency used when a machine is detected
// mid-call.
type Hangup interface {
	Hangup(ctx context.Context, callSID string) error
}

// Scheduler consumes status callbacks and drives the retry state machine.
type Scheduler struct {
	calls    CallStore
	hangup   Hangup
	notifier *notifier.Notifier
	logger   telemetry.Logger
}

// New constructs a Scheduler.
func New(calls CallStore, hangup Hangup, notif *notifier.Notifier, logger telemetry.Logger) *Scheduler {
	return &Scheduler{calls: calls, hangup: hangup, notifier: notif, logger: logger}
}

// StatusCallback is the telephony provider's status-callback payload (spec
// §4.7 input: CallSid, CallStatus, AnsweredBy, To).
type StatusCallback struct {
	CallSID    string
	CallStatus string
	AnsweredBy string
	To         string
}

// Handle processes a status callback. Always succeeds from the HTTP
// adapter's point of view (spec §6: "Always 200"); internal errors are
// logged and notified rather than surfaced.
func (s *Scheduler) Handle(ctx context.Context, cb StatusCallback) {
	rec, err := s.calls.GetCallRecord(cb.CallSID)
	if err != nil {
		s.logger.Warnw("retry: status callback for unknown call", "call_sid", cb.CallSID, "error", err.Error())
		return
	}

	outcome := telephony.Classify(cb.CallStatus, cb.AnsweredBy)

	updates := map[string]interface{}{"status": cb.CallStatus}
	if cb.AnsweredBy != "" {
		updates["answered_by"] = cb.AnsweredBy
	}
	if err := s.calls.UpdateCallRecord(cb.CallSID, updates); err != nil {
		s.logger.Warnw("retry: failed to update call record", "call_sid", cb.CallSID, "error", err.Error())
	}

	if !outcome.IsRetryable {
		return
	}

	if outcome.IsMachine && outcome.StillLive {
		if err := s.hangup.Hangup(ctx, cb.CallSID); err != nil {
			s.logger.Warnw("retry: failed to hang up machine-detected live call", "call_sid", cb.CallSID, "error", err.Error())
		}
	}

	won, err := s.calls.TryLatchRetryScheduled(cb.CallSID)
	if err != nil {
		s.logger.Errorw("retry: failed to latch retry_scheduled", "call_sid", cb.CallSID, "error", err.Error())
		return
	}
	if !won {
		// Duplicate callback for an already-scheduled retry: no-op (spec §4.7).
		return
	}

	nextIndex := rec.RetryCount + 1
	if nextIndex >= maxAttempts {
		s.notifier.Send(ctx, notifier.Notification{
			Severity:  notifier.SeverityWarning,
			ContactID: rec.ContactID,
			Phone:     rec.To,
			Service:   rec.Service,
			Province:  rec.Province,
			Message:   fmt.Sprintf("retry schedule exhausted for call %s after %d attempts", cb.CallSID, nextIndex),
		})
		return
	}

	if reason, stop := PermanentIssue("", rec.Province, nextIndex); stop {
		s.notifier.Send(ctx, notifier.Notification{
			Severity:  notifier.SeverityWarning,
			ContactID: rec.ContactID,
			Phone:     rec.To,
			Service:   rec.Service,
			Province:  rec.Province,
			Message:   fmt.Sprintf("retry schedule stopped for call %s: %s", cb.CallSID, reason),
		})
		return
	}

	scheduledAt := nextAttemptTime(nextIndex, time.Now().UTC())

	var provincePtr *string
	if rec.Province != "" {
		provincePtr = &rec.Province
	}

	entry := &store.CallQueueEntry{
		ContactID:             rec.ContactID,
		PhoneNumber:           rec.To,
		FirstName:             rec.FirstName,
		FullName:              rec.FullName,
		Email:                 rec.Email,
		Service:               rec.Service,
		Province:              provincePtr,
		RetryStage:            nextIndex,
		Status:                store.QueueStatusPending,
		ScheduledAt:           scheduledAt,
		AvailableSlotsText:    rec.AvailableSlots,
		InitialSignedURL:      rec.SignedURL,
		FirstAttemptTimestamp: rec.FirstAttemptTimestamp,
	}
	if _, err := s.calls.Enqueue(entry); err != nil {
		s.logger.Errorw("retry: failed to enqueue retry", "call_sid", cb.CallSID, "error", err.Error())
	}
}

// PermanentIssue reports whether a queue row's accumulated state is a
// "permanent issue" that should stop the retry sequence outright rather
// than schedule another attempt (spec §4.7): no sales reps could ever be
// routed, or the province has stayed unresolved for two or more attempts.
func PermanentIssue(reason string, province string, attemptIndex int) (string, bool) {
	if reason == "no_sales_reps" {
		return "no_sales_reps", true
	}
	if province == "unknown" && attemptIndex >= 2 {
		return "province_unresolved", true
	}
	return "", false
}

// nextAttemptTime implements the fixed 10-step schedule (spec §4.7).
func nextAttemptTime(nextIndex int, now time.Time) time.Time {
	switch nextIndex {
	case 1, 3, 5, 7, 9:
		return now
	case 2:
		return now.Add(1 * time.Hour)
	case 4:
		return timeutil.NextItalianClockTime(now, 9)
	case 6:
		return timeutil.NextItalianClockTime(now, 14)
	case 8:
		return timeutil.NextItalianClockTime(now, 19)
	default:
		return now
	}
}
