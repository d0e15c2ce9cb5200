// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package crmclient

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// RawSlot is a single free slot returned by the CRM, before rep
// round-robin assignment.
type RawSlot struct {
	DatetimeUTC time.Time
	RepID       string // empty if the CRM response did not carry rep identity
}

// FreeSlotsResult is the tagged outcome of a free-slots query (spec §9's
// "Ok(slots) | Empty | ApiError" instead of null-means-error). The
// distinction drives the §4.5 fatal-path decision.
type FreeSlotsResult struct {
	Slots   []RawSlot
	Empty   bool
	APIErr  error
}

// FreeSlots queries the CRM's free-slots endpoint for a window, filtered to
// repIDs. The CRM may shape its response several ways; normalizeSlots
// collapses all of them (spec §4.4).
func (c *Client) FreeSlots(ctx context.Context, locationID, calendarID string, windowStart, windowEnd time.Time, repIDs []string) FreeSlotsResult {
	req, err := c.authorizedRequest(ctx, locationID)
	if err != nil {
		return FreeSlotsResult{APIErr: err}
	}

	resp, err := req.
		SetQueryParam("calendarId", calendarID).
		SetQueryParam("startDate", fmt.Sprintf("%d", windowStart.UnixMilli())).
		SetQueryParam("endDate", fmt.Sprintf("%d", windowEnd.UnixMilli())).
		SetQueryParam("userId", joinCSV(repIDs)).
		Get("/calendars/" + calendarID + "/free-slots")
	if err != nil {
		return FreeSlotsResult{APIErr: fmt.Errorf("crm free-slots request: %w", err)}
	}
	if resp.IsError() {
		return FreeSlotsResult{APIErr: fmt.Errorf("crm free-slots: status %d", resp.StatusCode())}
	}

	slots, err := normalizeSlots(resp.Body())
	if err != nil {
		return FreeSlotsResult{APIErr: err}
	}
	if len(slots) == 0 {
		return FreeSlotsResult{Empty: true}
	}

	assigned := roundRobinAssign(slots, repIDs)
	sort.Slice(assigned, func(i, j int) bool { return assigned[i].DatetimeUTC.Before(assigned[j].DatetimeUTC) })
	return FreeSlotsResult{Slots: assigned}
}

// normalizeSlots collapses the several response shapes the CRM free-slots
// endpoint may return (spec §4.4):
//   - {"YYYY-MM-DD": {"slots": ["2025-03-17T10:00:00Z", ...]}, ...}
//   - {"freeSlots": [...]}
//   - {"slots": [...]}
//   - a bare array of ISO strings
func normalizeSlots(body []byte) ([]RawSlot, error) {
	var bare []interface{}
	if err := json.Unmarshal(body, &bare); err == nil {
		return isoStringsToSlots(toStringSlice(bare)), nil
	}

	var raw map[string]interface{}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("crm free-slots: decode response: %w", err)
	}

	var isoStrings []string

	if fs, ok := raw["freeSlots"]; ok {
		isoStrings = append(isoStrings, toStringSlice(fs)...)
	}
	if s, ok := raw["slots"]; ok {
		isoStrings = append(isoStrings, toStringSlice(s)...)
	}

	// Per-date map shape: every top-level key that isn't a known wrapper key
	// and whose value looks like {"slots": [...]}.
	for key, val := range raw {
		if key == "freeSlots" || key == "slots" {
			continue
		}
		dayMap, ok := val.(map[string]interface{})
		if !ok {
			continue
		}
		if daySlots, ok := dayMap["slots"]; ok {
			isoStrings = append(isoStrings, toStringSlice(daySlots)...)
		}
	}

	return isoStringsToSlots(isoStrings), nil
}

func isoStringsToSlots(isoStrings []string) []RawSlot {
	out := make([]RawSlot, 0, len(isoStrings))
	for _, iso := range isoStrings {
		t, err := time.Parse(time.RFC3339, iso)
		if err != nil {
			continue
		}
		out = append(out, RawSlot{DatetimeUTC: t.UTC()})
	}
	return out
}

func toStringSlice(v interface{}) []string {
	arr, ok := v.([]interface{})
	if !ok {
		return nil
	}
	out := make([]string, 0, len(arr))
	for _, item := range arr {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// roundRobinAssign assigns a rep id to every slot lacking one, cycling
// through repIDs in order, so downstream booking can resolve a
// deterministic rep per slot (spec §4.4).
func roundRobinAssign(slots []RawSlot, repIDs []string) []RawSlot {
	if len(repIDs) == 0 {
		return slots
	}
	sort.Slice(slots, func(i, j int) bool { return slots[i].DatetimeUTC.Before(slots[j].DatetimeUTC) })
	for i := range slots {
		if slots[i].RepID == "" {
			slots[i].RepID = repIDs[i%len(repIDs)]
		}
	}
	return slots
}

func joinCSV(vals []string) string {
	out := ""
	for i, v := range vals {
		if i > 0 {
			out += ","
		}
		out += v
	}
	return out
}
