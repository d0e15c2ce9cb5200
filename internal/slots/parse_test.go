// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package slots

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
)

func TestParseRepFromDisplaySingleRepTrailer(t *testing.T) {
	r := Render([]crmclient.RawSlot{
		mkSlot("2026-08-03T08:00:00Z", "rep-1"),
		mkSlot("2026-08-03T09:00:00Z", "rep-1"),
	})
	dmy, hm := "03-08-2026", "11:00"

	rep, err := ParseRepFromDisplay(r.Text, dmy, hm, "")

	require.NoError(t, err)
	require.Equal(t, "rep-1", rep)
}

func TestParseRepFromDisplayGroupedSection(t *testing.T) {
	r := Render([]crmclient.RawSlot{
		mkSlot("2026-08-03T08:00:00Z", "rep-1"),
		mkSlot("2026-08-03T09:00:00Z", "rep-2"),
		mkSlot("2026-08-04T08:00:00Z", "rep-3"),
		mkSlot("2026-08-04T09:00:00Z", "rep-4"),
	})
	dmy, hm := "04-08-2026", "11:00"

	rep, err := ParseRepFromDisplay(r.Text, dmy, hm, "")

	require.NoError(t, err)
	require.Equal(t, "rep-4", rep)
}

func TestParseRepFromDisplayGroupedSectionDisambiguatesSameDateDifferentTime(t *testing.T) {
	r := Render([]crmclient.RawSlot{
		mkSlot("2026-08-03T08:00:00Z", "rep-1"),
		mkSlot("2026-08-03T10:00:00Z", "rep-3"),
		mkSlot("2026-08-04T09:00:00Z", "rep-2"),
		mkSlot("2026-08-05T09:00:00Z", "rep-4"),
	})

	rep, err := ParseRepFromDisplay(r.Text, "03-08-2026", "12:00", "")

	require.NoError(t, err)
	require.Equal(t, "rep-3", rep)
}

func TestParseRepFromDisplayAbbreviatedLegend(t *testing.T) {
	r := Render([]crmclient.RawSlot{
		mkSlot("2026-08-03T08:00:00Z", "rep-1"),
		mkSlot("2026-08-03T09:00:00Z", "rep-2"),
	})

	rep, err := ParseRepFromDisplay(r.Text, "03-08-2026", "09:00", "B")

	require.NoError(t, err)
	require.Equal(t, "rep-2", rep)
}
