// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package crmclient

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNormalizeSlotsBareArray(t *testing.T) {
	body := []byte(`["2025-03-17T10:00:00Z", "2025-03-17T11:00:00Z"]`)

	slots, err := normalizeSlots(body)

	require.NoError(t, err)
	require.Len(t, slots, 2)
}

func TestNormalizeSlotsFreeSlotsWrapper(t *testing.T) {
	body := []byte(`{"freeSlots": ["2025-03-17T10:00:00Z"]}`)

	slots, err := normalizeSlots(body)

	require.NoError(t, err)
	require.Len(t, slots, 1)
}

func TestNormalizeSlotsPerDateMap(t *testing.T) {
	body := []byte(`{"2025-03-17": {"slots": ["2025-03-17T10:00:00Z", "2025-03-17T11:00:00Z"]}, "2025-03-18": {"slots": ["2025-03-18T09:00:00Z"]}}`)

	slots, err := normalizeSlots(body)

	require.NoError(t, err)
	require.Len(t, slots, 3)
}

func TestNormalizeSlotsMalformedBody(t *testing.T) {
	_, err := normalizeSlots([]byte(`not json`))

	require.Error(t, err)
}
