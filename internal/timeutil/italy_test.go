// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package timeutil

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestItalianUTCRoundTrip(t *testing.T) {
	cases := []struct{ dmy, hm string }{
		{"15-07-2025", "14:30"}, // summer, CEST
		{"15-01-2025", "09:00"}, // winter, CET
	}
	for _, tc := range cases {
		utc, err := ItalianToUTC(tc.dmy, tc.hm)
		require.NoError(t, err)
		gotDmy, gotHm := UTCToItalian(utc)
		require.Equal(t, tc.dmy, gotDmy)
		require.Equal(t, tc.hm, gotHm)
	}
}

func TestIsOperatingHours(t *testing.T) {
	morning, _ := ItalianToUTC("15-07-2025", "08:00")
	require.True(t, IsOperatingHours(morning))

	night, _ := ItalianToUTC("15-07-2025", "20:00")
	require.False(t, IsOperatingHours(night))

	early, _ := ItalianToUTC("15-07-2025", "07:59")
	require.False(t, IsOperatingHours(early))
}

func TestNextValidWorkdaySkipsWeekend(t *testing.T) {
	friday, _ := ItalianToUTC("18-07-2025", "10:00") // Friday
	next := NextValidWorkday(friday)
	require.Equal(t, "21-07-2025", next.Format("02-01-2006")) // Monday
}

func TestExtractProvinceDirectCode(t *testing.T) {
	code, ok, err := ExtractProvince(context.Background(), "Via Roma 1, 00100 Roma (RM)", nil, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "RM", code)
}

func TestExtractProvincePlaceholderShortCircuits(t *testing.T) {
	code, ok, err := ExtractProvince(context.Background(), "Follow-up call", nil, nil)
	require.NoError(t, err)
	require.False(t, ok)
	require.Empty(t, code)
}

type fakeZip struct{ province string }

func (f fakeZip) Lookup(_ context.Context, zip string) (string, bool, error) {
	if zip == "20100" {
		return f.province, true, nil
	}
	return "", false, nil
}

func TestExtractProvinceViaZip(t *testing.T) {
	code, ok, err := ExtractProvince(context.Background(), "Via Dante 5, 20100", fakeZip{province: "MI"}, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "MI", code)
}
