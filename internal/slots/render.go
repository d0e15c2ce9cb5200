// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package slots

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/ristrutturiamolo/call-orchestrator/internal/crmclient"
	"github.com/ristrutturiamolo/call-orchestrator/internal/timeutil"
)

// DisplayLayout names which of the three rendering strategies produced a
// Rendered value (spec §4.4's tagged-result design note). The layout is not
// persisted: only Text is stored, and ParseRepFromDisplay recovers the rep
// id from the text's shape.
type DisplayLayout int

const (
	SingleRep DisplayLayout = iota
	Abbreviated
	GroupedByRep
)

var letters = []string{"A", "B", "C"}

// Rendered is the slot display string plus the bookkeeping needed to
// recover a rep id from whichever option the AI reads back during a call
// (spec §4.8's function-call handling).
type Rendered struct {
	Text   string
	Layout DisplayLayout
	// LetterToRep maps "A"/"B"/"C" to rep id, populated only for Abbreviated.
	LetterToRep map[string]string
	// SlotToRep maps "<dmy> <hm>" to rep id, populated for every layout so a
	// caller can always recover a rep id from a parsed slot regardless of
	// which legend format produced the text.
	SlotToRep map[string]string
}

// Render renders the stable three-format slot display (spec §4.4).
func Render(slotsIn []crmclient.RawSlot) Rendered {
	slots := make([]crmclient.RawSlot, len(slotsIn))
	copy(slots, slotsIn)
	sort.Slice(slots, func(i, j int) bool { return slots[i].DatetimeUTC.Before(slots[j].DatetimeUTC) })

	reps := distinctReps(slots)
	slotToRep := make(map[string]string, len(slots))
	for _, s := range slots {
		dmy, hm := timeutil.UTCToItalian(s.DatetimeUTC)
		slotToRep[dmy+" "+hm] = s.RepID
	}

	switch {
	case len(reps) <= 1:
		return Rendered{
			Text:      renderSingleRep(slots, reps),
			Layout:    SingleRep,
			SlotToRep: slotToRep,
		}
	case len(reps) <= 3:
		text, legend := renderAbbreviated(slots, reps)
		return Rendered{
			Text:        text,
			Layout:      Abbreviated,
			LetterToRep: legend,
			SlotToRep:   slotToRep,
		}
	default:
		return Rendered{
			Text:      renderGroupedByRep(slots, reps),
			Layout:    GroupedByRep,
			SlotToRep: slotToRep,
		}
	}
}

func distinctReps(slots []crmclient.RawSlot) []string {
	seen := map[string]bool{}
	var out []string
	for _, s := range slots {
		if s.RepID == "" || seen[s.RepID] {
			continue
		}
		seen[s.RepID] = true
		out = append(out, s.RepID)
	}
	sort.Strings(out)
	return out
}

func groupByDate(slots []crmclient.RawSlot) (dates []string, byDate map[string][]crmclient.RawSlot) {
	byDate = map[string][]crmclient.RawSlot{}
	for _, s := range slots {
		dmy, _ := timeutil.UTCToItalian(s.DatetimeUTC)
		if _, ok := byDate[dmy]; !ok {
			dates = append(dates, dmy)
		}
		byDate[dmy] = append(byDate[dmy], s)
	}
	return dates, byDate
}

func renderSingleRep(slots []crmclient.RawSlot, reps []string) string {
	dates, byDate := groupByDate(slots)
	var b strings.Builder
	for _, dmy := range dates {
		b.WriteString(dateLabel(byDate[dmy][0].DatetimeUTC))
		b.WriteString(": ")
		times := make([]string, 0, len(byDate[dmy]))
		for _, s := range byDate[dmy] {
			_, hm := timeutil.UTCToItalian(s.DatetimeUTC)
			times = append(times, hm)
		}
		b.WriteString(strings.Join(times, ", "))
		b.WriteString("\n")
	}
	if len(reps) == 1 {
		b.WriteString(fmt.Sprintf("Sales Rep: %s", reps[0]))
	}
	return strings.TrimRight(b.String(), "\n")
}

func renderAbbreviated(slots []crmclient.RawSlot, reps []string) (string, map[string]string) {
	legend := make(map[string]string, len(reps))
	repLetter := make(map[string]string, len(reps))
	for i, rep := range reps {
		if i >= len(letters) {
			break
		}
		legend[letters[i]] = rep
		repLetter[rep] = letters[i]
	}

	dates, byDate := groupByDate(slots)
	var b strings.Builder
	for _, dmy := range dates {
		b.WriteString(dateLabel(byDate[dmy][0].DatetimeUTC))
		b.WriteString(": ")
		entries := make([]string, 0, len(byDate[dmy]))
		for _, s := range byDate[dmy] {
			_, hm := timeutil.UTCToItalian(s.DatetimeUTC)
			entries = append(entries, fmt.Sprintf("%s (%s)", hm, repLetter[s.RepID]))
		}
		b.WriteString(strings.Join(entries, ", "))
		b.WriteString("\n")
	}
	b.WriteString("Legend: ")
	legendEntries := make([]string, 0, len(reps))
	for i, rep := range reps {
		if i >= len(letters) {
			break
		}
		legendEntries = append(legendEntries, fmt.Sprintf("%s=%s", letters[i], rep))
	}
	b.WriteString(strings.Join(legendEntries, ", "))
	return b.String(), legend
}

func renderGroupedByRep(slots []crmclient.RawSlot, reps []string) string {
	byRep := map[string][]crmclient.RawSlot{}
	for _, s := range slots {
		byRep[s.RepID] = append(byRep[s.RepID], s)
	}

	var b strings.Builder
	for _, rep := range reps {
		b.WriteString(fmt.Sprintf("Sales Rep: %s\n", rep))
		dates, byDate := groupByDate(byRep[rep])
		for _, dmy := range dates {
			b.WriteString("  ")
			b.WriteString(dateLabel(byDate[dmy][0].DatetimeUTC))
			b.WriteString(": ")
			times := make([]string, 0, len(byDate[dmy]))
			for _, s := range byDate[dmy] {
				_, hm := timeutil.UTCToItalian(s.DatetimeUTC)
				times = append(times, hm)
			}
			b.WriteString(strings.Join(times, ", "))
			b.WriteString("\n")
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

// dateLabel renders "<Weekday DD-MM-YYYY>" for a slot's date, per the
// display contract (spec §4.4).
func dateLabel(t time.Time) string {
	dmy, _ := timeutil.UTCToItalian(t)
	return fmt.Sprintf("%s %s", timeutil.ItalianWeekday(t), dmy)
}
