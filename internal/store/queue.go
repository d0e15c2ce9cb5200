// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package store

import (
	"fmt"
	"time"
)

// Enqueue inserts a new pending call_queue row and returns its id.
func (c *Connector) Enqueue(entry *CallQueueEntry) (uint64, error) {
	if entry.Status == "" {
		entry.Status = QueueStatusPending
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := c.DB.Create(entry).Error; err != nil {
		return 0, fmt.Errorf("enqueue call: %w", err)
	}
	return entry.ID, nil
}

// ClaimDue atomically moves up to `limit` oldest pending rows whose
// scheduled_at <= now into status=processing, stamping last_attempt_at.
// This is the single-worker two-statement claim protocol of spec §4.2:
// SELECT the candidate ids, then UPDATE by id. A production multi-worker
// deployment would need a skip-locked read; this spec assumes one worker.
func (c *Connector) ClaimDue(limit int) ([]CallQueueEntry, error) {
	if limit <= 0 {
		return nil, nil
	}
	now := time.Now().UTC()

	var candidates []CallQueueEntry
	if err := c.DB.
		Where("status = ? AND scheduled_at <= ?", QueueStatusPending, now).
		Order("id ASC").
		Limit(limit).
		Find(&candidates).Error; err != nil {
		return nil, fmt.Errorf("claim due: select: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	ids := make([]uint64, len(candidates))
	for i, row := range candidates {
		ids[i] = row.ID
	}

	if err := c.DB.Model(&CallQueueEntry{}).
		Where("id IN ?", ids).
		Updates(map[string]interface{}{
			"status":          QueueStatusProcessing,
			"last_attempt_at": now,
		}).Error; err != nil {
		return nil, fmt.Errorf("claim due: update: %w", err)
	}

	for i := range candidates {
		candidates[i].Status = QueueStatusProcessing
		candidates[i].LastAttemptAt = &now
	}
	return candidates, nil
}

// DeleteQueueEntry removes a queue row on successful dequeue.
func (c *Connector) DeleteQueueEntry(id uint64) error {
	return c.DB.Delete(&CallQueueEntry{}, id).Error
}

// MarkQueueFailed sets status=failed with last_error on a claimed row.
func (c *Connector) MarkQueueFailed(id uint64, lastErr string) error {
	return c.DB.Model(&CallQueueEntry{}).Where("id = ?", id).Updates(map[string]interface{}{
		"status":     QueueStatusFailed,
		"last_error": lastErr,
	}).Error
}
