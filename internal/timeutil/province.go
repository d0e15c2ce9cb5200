// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package timeutil

import (
	"context"
	"regexp"
	"strings"
)

// ProvinceCodes is the fixed 110-element set of Italian province codes.
var ProvinceCodes = map[string]struct{}{
	"AG": {}, "AL": {}, "AN": {}, "AO": {}, "AP": {}, "AQ": {}, "AR": {}, "AT": {}, "AV": {},
	"BA": {}, "BG": {}, "BI": {}, "BL": {}, "BN": {}, "BO": {}, "BR": {}, "BS": {}, "BT": {}, "BZ": {},
	"CA": {}, "CB": {}, "CE": {}, "CH": {}, "CI": {}, "CL": {}, "CN": {}, "CO": {}, "CR": {}, "CS": {}, "CT": {}, "CZ": {},
	"EN": {}, "FC": {}, "FE": {}, "FG": {}, "FI": {}, "FM": {}, "FR": {},
	"GE": {}, "GO": {}, "GR": {},
	"IM": {}, "IS": {},
	"KR": {},
	"LC": {}, "LE": {}, "LI": {}, "LO": {}, "LT": {}, "LU": {},
	"MB": {}, "MC": {}, "ME": {}, "MI": {}, "MN": {}, "MO": {}, "MS": {}, "MT": {},
	"NA": {}, "NO": {}, "NU": {},
	"OG": {}, "OR": {}, "OT": {},
	"PA": {}, "PC": {}, "PD": {}, "PE": {}, "PG": {}, "PI": {}, "PN": {}, "PO": {}, "PR": {}, "PT": {}, "PU": {}, "PV": {}, "PZ": {},
	"RA": {}, "RC": {}, "RE": {}, "RG": {}, "RI": {}, "RM": {}, "RN": {}, "RO": {},
	"SA": {}, "SI": {}, "SO": {}, "SP": {}, "SR": {}, "SS": {}, "SV": {},
	"TA": {}, "TE": {}, "TN": {}, "TO": {}, "TP": {}, "TR": {}, "TS": {}, "TV": {},
	"UD": {},
	"VA": {}, "VB": {}, "VC": {}, "VE": {}, "VI": {}, "VR": {}, "VS": {}, "VT": {}, "VV": {},
}

var (
	zipPattern        = regexp.MustCompile(`\b\d{5}\b`)
	placeholderAddr   = regexp.MustCompile(`(?i)\b(follow-up call|address tbd|n/a|unknown)\b`)
	directCodePattern = func(code string) *regexp.Regexp {
		return regexp.MustCompile(`(?i)\b` + code + `\b`)
	}
)

// ZipLookup resolves a 5-digit Italian postal code to a province code.
type ZipLookup interface {
	Lookup(ctx context.Context, zip string) (string, bool, error)
}

// LLMProvinceFallback asks a text LLM for the 2-letter province code as a
// last resort (spec §4.1 strategy c).
type LLMProvinceFallback interface {
	ExtractProvince(ctx context.Context, address string) (string, error)
}

// ExtractProvince implements the three-strategy cascade of spec §4.1:
// (a) direct 2-letter code with word boundary, (b) 5-digit ZIP lookup with
// a 24h cache, (c) LLM fallback. Placeholder addresses short-circuit to
// "unknown" (represented here as ("", false, nil)).
func ExtractProvince(ctx context.Context, address string, zips ZipLookup, llm LLMProvinceFallback) (string, bool, error) {
	if placeholderAddr.MatchString(address) {
		return "", false, nil
	}

	if code, ok := directProvinceCode(address); ok {
		return code, true, nil
	}

	if zips != nil {
		for _, zip := range zipPattern.FindAllString(address, -1) {
			if code, ok, err := zips.Lookup(ctx, zip); err == nil && ok {
				if _, valid := ProvinceCodes[strings.ToUpper(code)]; valid {
					return strings.ToUpper(code), true, nil
				}
			}
		}
	}

	if llm != nil {
		code, err := llm.ExtractProvince(ctx, address)
		if err == nil {
			code = strings.ToUpper(strings.TrimSpace(code))
			if _, valid := ProvinceCodes[code]; valid {
				return code, true, nil
			}
		}
	}

	return "", false, nil
}

// directProvinceCode scans for a standalone 2-letter province code (e.g. the
// "(RM)" in "Via Roma 1, 00100 Roma (RM)").
func directProvinceCode(address string) (string, bool) {
	upper := strings.ToUpper(address)
	for code := range ProvinceCodes {
		if directCodePattern(code).MatchString(upper) {
			return code, true
		}
	}
	return "", false
}
