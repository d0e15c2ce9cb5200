// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package slots

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
)

type fakeFetcher struct {
	result crmclient.FreeSlotsResult
}

func (f fakeFetcher) FreeSlots(ctx context.Context, locationID, calendarID string, windowStart, windowEnd time.Time, repIDs []string) crmclient.FreeSlotsResult {
	return f.result
}

func TestFetchBoundsToRequestedCount(t *testing.T) {
	var raw []crmclient.RawSlot
	base := time.Date(2026, 8, 3, 8, 0, 0, 0, time.UTC)
	for i := 0; i < 20; i++ {
		raw = append(raw, crmclient.RawSlot{DatetimeUTC: base.Add(time.Duration(i) * time.Hour), RepID: "rep-1"})
	}

	svc := New(fakeFetcher{result: crmclient.FreeSlotsResult{Slots: raw}})
	res := svc.Fetch(context.Background(), "loc", "cal", base, base.Add(24*time.Hour), []string{"rep-1"}, AIInjectionBound)
	require.NoError(t, res.APIErr)
	require.Len(t, res.Slots, AIInjectionBound)
}

func TestFetchPropagatesAPIError(t *testing.T) {
	svc := New(fakeFetcher{result: crmclient.FreeSlotsResult{APIErr: fmt.Errorf("boom")}})
	res := svc.Fetch(context.Background(), "loc", "cal", time.Now(), time.Now(), nil, OutboundBound)
	require.Error(t, res.APIErr)
}

func TestFetchReportsEmpty(t *testing.T) {
	svc := New(fakeFetcher{result: crmclient.FreeSlotsResult{Empty: true}})
	res := svc.Fetch(context.Background(), "loc", "cal", time.Now(), time.Now(), nil, OutboundBound)
	require.True(t, res.Empty)
}
