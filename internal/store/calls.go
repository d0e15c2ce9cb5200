// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package store

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

// ErrNotFound is returned when a keyed row does not exist.
var ErrNotFound = errors.New("not found")

// CreateCallRecord writes the calls row BEFORE any status callback can
// observe it (spec §4.6 ordering invariant, §8 testable property #1).
func (c *Connector) CreateCallRecord(rec *CallRecord) error {
	if err := c.DB.Create(rec).Error; err != nil {
		return fmt.Errorf("create call record: %w", err)
	}
	return nil
}

// GetCallRecord fetches a calls row by sid.
func (c *Connector) GetCallRecord(callSID string) (*CallRecord, error) {
	var rec CallRecord
	if err := c.DB.Where("call_sid = ?", callSID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get call record %s: %w", callSID, err)
	}
	return &rec, nil
}

// UpdateCallRecord persists arbitrary field updates to a calls row.
func (c *Connector) UpdateCallRecord(callSID string, updates map[string]interface{}) error {
	return c.DB.Model(&CallRecord{}).Where("call_sid = ?", callSID).Updates(updates).Error
}

// TryLatchRetryScheduled atomically sets retry_scheduled=true iff it was
// false, returning whether THIS call won the latch (spec §4.7, §8 testable
// property #2: at most one retry scheduled per sid across duplicate
// callbacks).
func (c *Connector) TryLatchRetryScheduled(callSID string) (bool, error) {
	res := c.DB.Model(&CallRecord{}).
		Where("call_sid = ? AND retry_scheduled = ?", callSID, false).
		Update("retry_scheduled", true)
	if res.Error != nil {
		return false, fmt.Errorf("latch retry_scheduled %s: %w", callSID, res.Error)
	}
	return res.RowsAffected == 1, nil
}

// LatestProvinceForContact returns the province recorded on the most recent
// CallRecord for a contact, used by the follow-up scheduler (spec §4.11
// step 3) when no saved province column is available.
func (c *Connector) LatestProvinceForContact(contactID string) (string, error) {
	var rec CallRecord
	err := c.DB.Where("contact_id = ? AND province <> ''", contactID).
		Order("created_at DESC").
		First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("latest province for %s: %w", contactID, err)
	}
	return rec.Province, nil
}

// CreateIncomingCall persists the inbound-call mirror row.
func (c *Connector) CreateIncomingCall(rec *IncomingCall) error {
	if err := c.DB.Create(rec).Error; err != nil {
		return fmt.Errorf("create incoming call: %w", err)
	}
	return nil
}

// UpdateIncomingCall persists field updates to an incoming_calls row.
func (c *Connector) UpdateIncomingCall(callSID string, updates map[string]interface{}) error {
	return c.DB.Model(&IncomingCall{}).Where("call_sid = ?", callSID).Updates(updates).Error
}

// GetIncomingCall fetches an incoming_calls row by sid.
func (c *Connector) GetIncomingCall(callSID string) (*IncomingCall, error) {
	var rec IncomingCall
	if err := c.DB.Where("call_sid = ?", callSID).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get incoming call %s: %w", callSID, err)
	}
	return &rec, nil
}
