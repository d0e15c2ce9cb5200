// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package salesrep implements the Sales-Rep Router (spec §4.3): given
// (service, province), return the ordered set of eligible rep handles.
package salesrep

import (
	"fmt"
	"sort"

	"github.com/ristrutturiamolo/call-orchestrator/internal/store"
)

// RepLister is the persistence dependency the router reads from.
type RepLister interface {
	ActiveReps() ([]store.SalesRep, error)
}

// Router filters active sales reps by (service, province).
type Router struct {
	reps RepLister
}

// New constructs a Router against the sales_reps table.
func New(reps RepLister) *Router {
	return &Router{reps: reps}
}

// RepsFor returns the ordered (by ghl_user_id, for determinism) set of
// eligible rep GHL user ids for (service, province). An empty result means
// intake must fail-closed unless the request is an abrupt-ending retry
// (spec §4.3).
func (r *Router) RepsFor(service, province string) ([]string, error) {
	reps, err := r.reps.ActiveReps()
	if err != nil {
		return nil, fmt.Errorf("reps for %s/%s: %w", service, province, err)
	}

	var out []string
	for _, rep := range reps {
		services := rep.ServicesSet()
		provinces := rep.ProvincesSet()
		if _, okService := services[service]; !okService {
			continue
		}
		if _, okProvince := provinces[province]; !okProvince {
			continue
		}
		out = append(out, rep.GHLUserID)
	}
	sort.Strings(out)
	return out, nil
}
