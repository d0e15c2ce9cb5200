// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package store

import (
	"fmt"
	"strings"
)

// ActiveReps returns every active sales rep, for the router to filter
// in-process (spec §4.3).
func (c *Connector) ActiveReps() ([]SalesRep, error) {
	var rows []SalesRep
	if err := c.DB.Where("active = ?", true).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("active reps: %w", err)
	}
	return rows, nil
}

// ServicesSet parses the comma-separated Services column into a set.
func (s SalesRep) ServicesSet() map[string]struct{} {
	return splitSet(s.Services)
}

// ProvincesSet parses the comma-separated Provinces column into a set.
func (s SalesRep) ProvincesSet() map[string]struct{} {
	return splitSet(s.Provinces)
}

func splitSet(csv string) map[string]struct{} {
	out := map[string]struct{}{}
	for _, part := range strings.Split(csv, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out[part] = struct{}{}
		}
	}
	return out
}

// UpsertSalesRep inserts or updates a sales rep keyed by ghl_user_id.
func (c *Connector) UpsertSalesRep(rep *SalesRep) error {
	var existing SalesRep
	err := c.DB.Where("ghl_user_id = ?", rep.GHLUserID).First(&existing).Error
	if err == nil {
		rep.ID = existing.ID
		return c.DB.Model(&SalesRep{}).Where("id = ?", existing.ID).Updates(rep).Error
	}
	return c.DB.Create(rep).Error
}
