// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func newTestConnector(t *testing.T) *Connector {
	t.Helper()
	c, err := Open(":memory:")
	require.NoError(t, err)
	return c
}

func TestMigrateIsIdempotent(t *testing.T) {
	c := newTestConnector(t)
	require.NoError(t, c.Migrate())
	require.NoError(t, c.Migrate())
}

func TestClaimDueOnlyTakesPendingAndDue(t *testing.T) {
	c := newTestConnector(t)
	now := time.Now().UTC()

	due := &CallQueueEntry{ContactID: "c1", PhoneNumber: "+390612345678", Service: ServiceInfissi,
		ScheduledAt: now.Add(-time.Minute), FirstAttemptTimestamp: now}
	future := &CallQueueEntry{ContactID: "c2", PhoneNumber: "+390612345679", Service: ServiceInfissi,
		ScheduledAt: now.Add(time.Hour), FirstAttemptTimestamp: now}

	_, err := c.Enqueue(due)
	require.NoError(t, err)
	_, err = c.Enqueue(future)
	require.NoError(t, err)

	claimed, err := c.ClaimDue(10)
	require.NoError(t, err)
	require.Len(t, claimed, 1)
	require.Equal(t, "c1", claimed[0].ContactID)
	require.Equal(t, QueueStatusProcessing, claimed[0].Status)

	// A second claim sees nothing new — the row is no longer pending.
	claimed2, err := c.ClaimDue(10)
	require.NoError(t, err)
	require.Len(t, claimed2, 0)
}

func TestClaimDueRespectsLimit(t *testing.T) {
	c := newTestConnector(t)
	now := time.Now().UTC()
	for i := 0; i < 5; i++ {
		_, err := c.Enqueue(&CallQueueEntry{ContactID: "c", PhoneNumber: "+1", Service: ServiceInfissi,
			ScheduledAt: now.Add(-time.Minute), FirstAttemptTimestamp: now})
		require.NoError(t, err)
	}
	claimed, err := c.ClaimDue(2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)
}

func TestTryLatchRetryScheduledIsOneWay(t *testing.T) {
	c := newTestConnector(t)
	rec := &CallRecord{CallSID: "CA1", Service: ServiceInfissi}
	require.NoError(t, c.CreateCallRecord(rec))

	won, err := c.TryLatchRetryScheduled("CA1")
	require.NoError(t, err)
	require.True(t, won)

	won2, err := c.TryLatchRetryScheduled("CA1")
	require.NoError(t, err)
	require.False(t, won2)
}
