// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.

// Package timeutil converts between Italian civil wall-clock time and UTC,
// and provides the business-hours predicates used by intake, the media
// bridge, and the retry scheduler (spec §4.1).
package timeutil

import (
	"fmt"
	"time"
)

// Rome is the Europe/Rome location used throughout this module. Loaded once
// at package init; falls back to a fixed CET/CEST-unaware UTC+1 location if
// the tzdata database is unavailable (e.g. minimal containers), matching
// the teacher's defensive style of never letting a missing timezone
// database panic a request handler.
var Rome *time.Location

func init() {
	loc, err := time.LoadLocation("Europe/Rome")
	if err != nil {
		loc = time.FixedZone("CET", 1*60*60)
	}
	Rome = loc
}

// ItalianToUTC converts a civil (dmy, hm) wall-clock pair in Europe/Rome to
// the correct UTC instant, accounting for DST via the tzdata rules attached
// to Rome.
//
// dmy must be "DD-MM-YYYY" and hm must be "HH:mm".
func ItalianToUTC(dmy, hm string) (time.Time, error) {
	civil, err := time.ParseInLocation("02-01-2006 15:04", dmy+" "+hm, Rome)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse italian datetime %q %q: %w", dmy, hm, err)
	}
	return civil.UTC(), nil
}

// UTCToItalian renders a UTC instant as the (dmy, hm) civil pair an
// Italian reader would use.
func UTCToItalian(t time.Time) (dmy, hm string) {
	local := t.In(Rome)
	return local.Format("02-01-2006"), local.Format("15:04")
}

// IsOperatingHours is true iff 08:00 <= hour-of-day(Europe/Rome, now) < 20.
func IsOperatingHours(now time.Time) bool {
	hour := now.In(Rome).Hour()
	return hour >= 8 && hour < 20
}

// IsWithinItalianBusiness is true iff 09:00 <= hour < 20 Europe/Rome.
func IsWithinItalianBusiness(utcInstant time.Time) bool {
	hour := utcInstant.In(Rome).Hour()
	return hour >= 9 && hour < 20
}

// NextValidWorkday adds one calendar day, then skips Saturday/Sunday.
//
// Weekend detection here is UTC-based (an explicit, documented
// approximation per spec §4.1/§9 open question): the input's weekday is
// read off the instant directly rather than after converting to
// Europe/Rome, so results near midnight Saturday/Sunday in Rome time can be
// off by one day. This is preserved intentionally — downstream retry
// scheduling already depends on the current behavior and the spec
// instructs not to silently "fix" it.
func NextValidWorkday(d time.Time) time.Time {
	next := d.AddDate(0, 0, 1)
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// italianWeekdays gives the Italian weekday name for the slot-display
// contract ("<Weekday DD-MM-YYYY>", spec §4.4).
var italianWeekdays = map[time.Weekday]string{
	time.Sunday:    "Domenica",
	time.Monday:    "Lunedì",
	time.Tuesday:   "Martedì",
	time.Wednesday: "Mercoledì",
	time.Thursday:  "Giovedì",
	time.Friday:    "Venerdì",
	time.Saturday:  "Sabato",
}

// ItalianWeekday returns the Italian name of t's weekday in Europe/Rome.
func ItalianWeekday(t time.Time) string {
	return italianWeekdays[t.In(Rome).Weekday()]
}

// NextItalianClockTime returns the next UTC instant at which the Europe/Rome
// wall clock reads hour:00, strictly after `from`. Used by the retry
// schedule's "next 09:00/14:00/19:00 Europe/Rome" steps (spec §4.7).
func NextItalianClockTime(from time.Time, hour int) time.Time {
	local := from.In(Rome)
	candidate := time.Date(local.Year(), local.Month(), local.Day(), hour, 0, 0, 0, Rome)
	if !candidate.After(local) {
		candidate = candidate.AddDate(0, 0, 1)
	}
	return candidate.UTC()
}
