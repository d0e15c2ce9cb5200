// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// GetCRMToken fetches the OAuth state for a location, or ErrNotFound.
func (c *Connector) GetCRMToken(locationID string) (*CRMToken, error) {
	var tok CRMToken
	err := c.DB.Where("location_id = ?", locationID).First(&tok).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get crm token %s: %w", locationID, err)
	}
	return &tok, nil
}

// UpsertCRMToken writes or refreshes the OAuth state for a location.
func (c *Connector) UpsertCRMToken(tok *CRMToken) error {
	var existing CRMToken
	err := c.DB.Where("location_id = ?", tok.LocationID).First(&existing).Error
	if err == nil {
		return c.DB.Model(&CRMToken{}).Where("location_id = ?", tok.LocationID).Updates(tok).Error
	}
	return c.DB.Create(tok).Error
}
