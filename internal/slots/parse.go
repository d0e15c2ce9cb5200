// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package slots

import (
	"fmt"
	"regexp"
	"strings"
)

// legendLinePattern matches "Legend: A=rep-1, B=rep-2".
var legendLinePattern = regexp.MustCompile(`(?m)^Legend:\s*(.+)$`)

// salesRepTrailerPattern matches the single-rep trailer "Sales Rep: <id>".
var salesRepTrailerPattern = regexp.MustCompile(`Sales Rep:\s*(\S+)`)

// repSectionPattern matches the grouped-by-rep header "Sales Rep: <id>"
// that starts a section.
var repSectionPattern = regexp.MustCompile(`(?m)^Sales Rep:\s*(\S+)\s*$`)

// ParseRepFromDisplay recovers a rep id from a persisted display string
// (spec §4.8 step 9's three-step fallback, applied directly against the
// text the media bridge actually has on hand — the CallRecord's
// `available_slots` column — rather than the in-memory Rendered value from
// the request that produced it):
//  1. if the chosen time is suffixed "(X)", resolve X against the legend;
//  2. else if the text ends with a single "Sales Rep: <id>" trailer, use it;
//  3. else scan the rep-grouped sections for the one containing the date.
func ParseRepFromDisplay(text, dmy, hm, letterSuffix string) (string, error) {
	if letterSuffix != "" {
		if legend := legendLinePattern.FindStringSubmatch(text); legend != nil {
			for _, entry := range strings.Split(legend[1], ",") {
				parts := strings.SplitN(strings.TrimSpace(entry), "=", 2)
				if len(parts) == 2 && strings.EqualFold(parts[0], letterSuffix) {
					return parts[1], nil
				}
			}
		}
		return "", fmt.Errorf("slots: legend entry %q not found", letterSuffix)
	}

	// The single-rep layout's trailer is itself a "^Sales Rep: <id>$" line,
	// indistinguishable from a grouped-section header by repSectionPattern
	// alone — but it is the last thing in the text, with no date lines
	// after it, so check for that shape before the grouped-section scan.
	if m := salesRepTrailerPattern.FindStringSubmatchIndex(text); m != nil && m[1] == len(text) {
		return text[m[2]:m[3]], nil
	}

	sections := repSectionPattern.FindAllStringSubmatchIndex(text, -1)
	if len(sections) == 0 {
		return "", fmt.Errorf("slots: no rep identity recoverable from display text")
	}

	for i, sec := range sections {
		start := sec[1]
		end := len(text)
		if i+1 < len(sections) {
			end = sections[i+1][0]
		}
		section := text[start:end]
		for _, line := range strings.Split(section, "\n") {
			if strings.Contains(line, dmy) && strings.Contains(line, hm) {
				repMatch := repSectionPattern.FindStringSubmatch(text[sec[0]:sec[1]])
				if repMatch != nil {
					return repMatch[1], nil
				}
			}
		}
	}
	return "", fmt.Errorf("slots: no rep section contains slot %q %q", dmy, hm)
}
