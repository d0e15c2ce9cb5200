// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package retry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/notifier"
	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
)

type fakeCallStore struct {
	rec          *store.CallRecord
	latchWins    bool
	enqueued     []*store.CallQueueEntry
	updates      []map[string]interface{}
}

func (f *fakeCallStore) GetCallRecord(callSID string) (*store.CallRecord, error) { return f.rec, nil }
func (f *fakeCallStore) UpdateCallRecord(callSID string, updates map[string]interface{}) error {
	f.updates = append(f.updates, updates)
	return nil
}
func (f *fakeCallStore) TryLatchRetryScheduled(callSID string) (bool, error) { return f.latchWins, nil }
func (f *fakeCallStore) Enqueue(entry *store.CallQueueEntry) (uint64, error) {
	f.enqueued = append(f.enqueued, entry)
	return 1, nil
}

type fakeHangup struct{ called bool }

func (f *fakeHangup) Hangup(ctx context.Context, callSID string) error {
	f.called = true
	return nil
}

func newScheduler(cs *fakeCallStore, h *fakeHangup) *Scheduler {
	return New(cs, h, notifier.New("http://example.invalid/webhook", telemetry.NewNop()), telemetry.NewNop())
}

func TestHandleHumanCompletionDoesNotRetry(t *testing.T) {
	cs := &fakeCallStore{rec: &store.CallRecord{CallSID: "CA1", RetryCount: 0}, latchWins: true}
	h := &fakeHangup{}
	newScheduler(cs, h).Handle(context.Background(), StatusCallback{CallSID: "CA1", CallStatus: "completed", AnsweredBy: "human"})
	require.Empty(t, cs.enqueued)
	require.False(t, h.called)
}

func TestHandleNoAnswerSchedulesRetry(t *testing.T) {
	cs := &fakeCallStore{rec: &store.CallRecord{CallSID: "CA1", RetryCount: 0}, latchWins: true}
	h := &fakeHangup{}
	newScheduler(cs, h).Handle(context.Background(), StatusCallback{CallSID: "CA1", CallStatus: "no-answer"})
	require.Len(t, cs.enqueued, 1)
	require.Equal(t, 1, cs.enqueued[0].RetryStage)
}

func TestHandleMachineMidCallHangsUpBeforeRetry(t *testing.T) {
	cs := &fakeCallStore{rec: &store.CallRecord{CallSID: "CA1", RetryCount: 0}, latchWins: true}
	h := &fakeHangup{}
	newScheduler(cs, h).Handle(context.Background(), StatusCallback{CallSID: "CA1", CallStatus: "in-progress", AnsweredBy: "machine_start"})
	require.True(t, h.called)
	require.Len(t, cs.enqueued, 1)
}

func TestHandleDuplicateCallbackIsNoOp(t *testing.T) {
	cs := &fakeCallStore{rec: &store.CallRecord{CallSID: "CA1", RetryCount: 0}, latchWins: false}
	h := &fakeHangup{}
	newScheduler(cs, h).Handle(context.Background(), StatusCallback{CallSID: "CA1", CallStatus: "no-answer"})
	require.Empty(t, cs.enqueued)
}

func TestHandleExhaustedScheduleDoesNotEnqueue(t *testing.T) {
	cs := &fakeCallStore{rec: &store.CallRecord{CallSID: "CA1", RetryCount: 9}, latchWins: true}
	h := &fakeHangup{}
	newScheduler(cs, h).Handle(context.Background(), StatusCallback{CallSID: "CA1", CallStatus: "busy"})
	require.Empty(t, cs.enqueued)
}

func TestNextAttemptTimeImmediateSteps(t *testing.T) {
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	for _, idx := range []int{1, 3, 5, 7, 9} {
		require.Equal(t, now, nextAttemptTime(idx, now))
	}
}

func TestNextAttemptTimeOneHourStep(t *testing.T) {
	now := time.Date(2026, 8, 3, 10, 0, 0, 0, time.UTC)
	require.Equal(t, now.Add(time.Hour), nextAttemptTime(2, now))
}

func TestPermanentIssueProvinceUnresolvedAfterTwoAttempts(t *testing.T) {
	reason, isPermanent := PermanentIssue("", "unknown", 2)
	require.True(t, isPermanent)
	require.Equal(t, "province_unresolved", reason)
}

func TestPermanentIssueNotTriggeredEarly(t *testing.T) {
	_, isPermanent := PermanentIssue("", "unknown", 1)
	require.False(t, isPermanent)
}
