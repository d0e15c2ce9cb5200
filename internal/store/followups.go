// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package store

import (
	"fmt"
	"time"
)

const FollowUpStatusPending = "pending"

// CreateFollowUp persists a deferred re-call intent.
func (c *Connector) CreateFollowUp(f *FollowUp) error {
	if f.Status == "" {
		f.Status = FollowUpStatusPending
	}
	if err := c.DB.Create(f).Error; err != nil {
		return fmt.Errorf("create follow up: %w", err)
	}
	return nil
}

// DueFollowUps returns pending follow-ups whose follow_up_at_utc <= now.
func (c *Connector) DueFollowUps(now time.Time) ([]FollowUp, error) {
	var rows []FollowUp
	err := c.DB.Where("status = ? AND follow_up_at_utc <= ?", FollowUpStatusPending, now).
		Order("follow_up_at_utc ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("due follow ups: %w", err)
	}
	return rows, nil
}

// StuckFollowUps returns pending follow-ups overdue by more than 24h, or
// overdue by more than 1h with a prior failure flag (spec §4.11 step 1).
func (c *Connector) StuckFollowUps(now time.Time) ([]FollowUp, error) {
	var rows []FollowUp
	stale24h := now.Add(-24 * time.Hour)
	stale1hFailed := now.Add(-1 * time.Hour)
	err := c.DB.Where("status = ? AND (follow_up_at_utc < ? OR (follow_up_at_utc < ? AND has_failed = ?))",
		FollowUpStatusPending, stale24h, stale1hFailed, true).
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("stuck follow ups: %w", err)
	}
	return rows, nil
}

// DeleteFollowUp removes a follow-up (on success, permanent failure, or
// stuck-cleanup).
func (c *Connector) DeleteFollowUp(id uint64) error {
	return c.DB.Delete(&FollowUp{}, id).Error
}

// MarkFollowUpFailed flags a follow-up as having seen at least one failed
// resubmission attempt, used by the 1h+failure stuck-cleanup rule.
func (c *Connector) MarkFollowUpFailed(id uint64) error {
	return c.DB.Model(&FollowUp{}).Where("id = ?", id).Update("has_failed", true).Error
}
