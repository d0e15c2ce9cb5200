// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package store

import (
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Connector wraps the embedded database and the single-writer queue claim
// protocol (spec §4.2: SELECT then UPDATE by id — a single-worker
// assumption, not a multi-worker skip-locked claim).
type Connector struct {
	DB *gorm.DB
}

// Open opens (creating if absent) the SQLite file at path and runs the
// idempotent migration list.
func Open(path string) (*Connector, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open db %s: %w", path, err)
	}

	c := &Connector{DB: db}
	if err := c.Migrate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Migrate creates tables if absent and adds columns if absent. Each step
// tolerates "duplicate column name" as success, per spec §4.2/§7 — the
// definition of migration idempotence this system uses.
func (c *Connector) Migrate() error {
	models := []interface{}{
		&CallQueueEntry{},
		&CallRecord{},
		&IncomingCall{},
		&FollowUp{},
		&SalesRep{},
		&CRMToken{},
	}
	for _, m := range models {
		if err := c.DB.AutoMigrate(m); err != nil {
			if isDuplicateColumnErr(err) {
				continue
			}
			return fmt.Errorf("migrate %T: %w", m, err)
		}
	}
	return nil
}

func isDuplicateColumnErr(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "duplicate column")
}
