// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package slots

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
)

func mkSlot(iso, rep string) crmclient.RawSlot {
	t, err := time.Parse(time.RFC3339, iso)
	if err != nil {
		panic(err)
	}
	return crmclient.RawSlot{DatetimeUTC: t, RepID: rep}
}

func TestRenderSingleRep(t *testing.T) {
	r := Render([]crmclient.RawSlot{
		mkSlot("2026-08-03T08:00:00Z", "rep-1"),
		mkSlot("2026-08-03T09:00:00Z", "rep-1"),
	})
	require.Equal(t, SingleRep, r.Layout)
	require.Contains(t, r.Text, "Sales Rep: rep-1")
}

func TestRenderAbbreviatedTwoReps(t *testing.T) {
	r := Render([]crmclient.RawSlot{
		mkSlot("2026-08-03T08:00:00Z", "rep-1"),
		mkSlot("2026-08-03T09:00:00Z", "rep-2"),
	})
	require.Equal(t, Abbreviated, r.Layout)
	require.Len(t, r.LetterToRep, 2)
	require.Contains(t, r.Text, "Legend:")
}

func TestRenderGroupedFourReps(t *testing.T) {
	r := Render([]crmclient.RawSlot{
		mkSlot("2026-08-03T08:00:00Z", "rep-1"),
		mkSlot("2026-08-03T09:00:00Z", "rep-2"),
		mkSlot("2026-08-04T08:00:00Z", "rep-3"),
		mkSlot("2026-08-04T09:00:00Z", "rep-4"),
	})
	require.Equal(t, GroupedByRep, r.Layout)
	for _, rep := range []string{"rep-1", "rep-2", "rep-3", "rep-4"} {
		require.Contains(t, r.Text, rep)
	}
}

func TestResolveRepRecoversAssignment(t *testing.T) {
	r := Render([]crmclient.RawSlot{
		mkSlot("2026-08-03T08:00:00Z", "rep-1"),
		mkSlot("2026-08-03T09:00:00Z", "rep-2"),
	})
	dmy, hm := "03-08-2026", "11:00"
	rep, err := r.ResolveRep(dmy, hm)
	require.NoError(t, err)
	require.Equal(t, "rep-2", rep)
}

func TestResolveRepUnknownSlot(t *testing.T) {
	r := Render([]crmclient.RawSlot{mkSlot("2026-08-03T08:00:00Z", "rep-1")})
	_, err := r.ResolveRep("01-01-2030", "00:00")
	require.Error(t, err)
}
