// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package slots

import "fmt"

// ResolveRep recovers a rep id from the (dmy, hm) pair the AI read back
// during a call, against the Rendered value the display string was minted
// from (spec §4.8: "the Media Bridge parses the AI's chosen slot against
// it to recover the rep id").
func (r Rendered) ResolveRep(dmy, hm string) (string, error) {
	rep, ok := r.SlotToRep[dmy+" "+hm]
	if !ok {
		return "", fmt.Errorf("slots: no rep recorded for %s %s", dmy, hm)
	}
	return rep, nil
}
