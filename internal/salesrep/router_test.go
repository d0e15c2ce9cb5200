// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package salesrep

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
)

type fakeRepLister struct{ reps []store.SalesRep }

func (f fakeRepLister) ActiveReps() ([]store.SalesRep, error) { return f.reps, nil }

func TestRepsForFiltersByServiceAndProvince(t *testing.T) {
	r := New(fakeRepLister{reps: []store.SalesRep{
		{GHLUserID: "u1", Services: "Infissi,Vetrate", Provinces: "RM,MI", Active: true},
		{GHLUserID: "u2", Services: "Pergole", Provinces: "RM", Active: true},
		{GHLUserID: "u3", Services: "Infissi", Provinces: "TO", Active: true},
	}})

	out, err := r.RepsFor("Infissi", "RM")
	require.NoError(t, err)
	require.Equal(t, []string{"u1"}, out)
}

func TestRepsForEmptyWhenNoMatch(t *testing.T) {
	r := New(fakeRepLister{reps: []store.SalesRep{
		{GHLUserID: "u1", Services: "Pergole", Provinces: "RM", Active: true},
	}})
	out, err := r.RepsFor("Infissi", "RM")
	require.NoError(t, err)
	require.Empty(t, out)
}
