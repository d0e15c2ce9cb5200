// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package bridge

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
)

func TestParseChosenSlotWithLegendLetter(t *testing.T) {
	dmy, hm, letter := parseChosenSlot("17-03-2025 10:00 (A)")
	require.Equal(t, "17-03-2025", dmy)
	require.Equal(t, "10:00", hm)
	require.Equal(t, "A", letter)
}

func TestParseChosenSlotWithoutLetter(t *testing.T) {
	dmy, hm, letter := parseChosenSlot("17-03-2025 10:00")
	require.Equal(t, "17-03-2025", dmy)
	require.Equal(t, "10:00", hm)
	require.Empty(t, letter)
}

func TestParseChosenSlotRejectsMalformed(t *testing.T) {
	dmy, hm, letter := parseChosenSlot("not a date")
	require.Empty(t, dmy)
	require.Empty(t, hm)
	require.Empty(t, letter)
}

func TestAlternativesTextListsEachSlot(t *testing.T) {
	alts := []crmclient.RawSlot{
		{DatetimeUTC: time.Date(2025, 3, 18, 9, 0, 0, 0, time.UTC)},
		{DatetimeUTC: time.Date(2025, 3, 19, 9, 0, 0, 0, time.UTC)},
	}
	text := alternativesText(alts)
	require.Contains(t, text, "18-03-2025")
	require.Contains(t, text, "19-03-2025")
}

func TestBusinessNameByServiceMapsVetrateAndPergoleTogether(t *testing.T) {
	require.Equal(t, "Ristrutturiamolo", businessNameByService["Infissi"])
	require.Equal(t, "UNICOVETRATE", businessNameByService["Vetrate"])
	require.Equal(t, "UNICOVETRATE", businessNameByService["Pergole"])
}
