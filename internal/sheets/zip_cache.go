// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package sheets resolves Italian ZIP codes to province codes from a Google
// Sheet, with a 24h process-wide cache (spec §4.1 strategy b, §5 "read-mostly
// cache with 24h TTL; concurrent fetchers may double-fetch but must not
// corrupt").
package sheets

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/telemetry"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const cacheTTL = 24 * time.Hour

// ZipProvinceCache is a ZipLookup backed by a Google Sheet and an in-memory
// map refreshed at most every 24h.
type ZipProvinceCache struct {
	spreadsheetID string
	sheetRange    string
	logger        telemetry.Logger

	mu        sync.RWMutex
	byZip     map[string]string
	fetchedAt time.Time

	svc *sheets.Service
}

// New constructs a ZipProvinceCache against the given spreadsheet, using an
// API key for read-only access (matches the teacher's habit of a
// lightweight, credential-scoped client per external collaborator).
func New(ctx context.Context, apiKey, spreadsheetID, sheetRange string, logger telemetry.Logger) (*ZipProvinceCache, error) {
	svc, err := sheets.NewService(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("new sheets service: %w", err)
	}
	return &ZipProvinceCache{
		spreadsheetID: spreadsheetID,
		sheetRange:    sheetRange,
		logger:        logger,
		byZip:         map[string]string{},
		svc:           svc,
	}, nil
}

// Lookup resolves a 5-digit ZIP to a province code, refreshing the cache if
// stale. Concurrent callers may both refresh; the last writer simply wins,
// which is acceptable for a read-mostly mapping that rarely changes.
func (z *ZipProvinceCache) Lookup(ctx context.Context, zip string) (string, bool, error) {
	z.mu.RLock()
	stale := time.Since(z.fetchedAt) > cacheTTL
	province, found := z.byZip[zip]
	z.mu.RUnlock()

	if !stale {
		return province, found, nil
	}

	if err := z.refresh(ctx); err != nil {
		// Serve the stale cache on a refresh error rather than failing the
		// caller outright — a transient sheet-API hiccup shouldn't block
		// province resolution when we have last-known-good data.
		if found {
			return province, true, nil
		}
		return "", false, err
	}

	z.mu.RLock()
	province, found = z.byZip[zip]
	z.mu.RUnlock()
	return province, found, nil
}

func (z *ZipProvinceCache) refresh(ctx context.Context) error {
	resp, err := z.svc.Spreadsheets.Values.Get(z.spreadsheetID, z.sheetRange).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("fetch zip sheet: %w", err)
	}

	fresh := make(map[string]string, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) < 2 {
			continue
		}
		zip, _ := row[0].(string)
		province, _ := row[1].(string)
		zip = strings.TrimSpace(zip)
		province = strings.ToUpper(strings.TrimSpace(province))
		if zip != "" && province != "" {
			fresh[zip] = province
		}
	}

	z.mu.Lock()
	z.byZip = fresh
	z.fetchedAt = time.Now()
	z.mu.Unlock()

	z.logger.Infow("zip sheet cache refreshed", "entries", len(fresh))
	return nil
}
