// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package llmclient

import "time"

// retryBackoff returns a channel that fires after an exponentially growing
// delay, doubling from 250ms on each subsequent attempt.
func retryBackoff(attempt int) <-chan time.Time {
	delay := 250 * time.Millisecond
	for i := 1; i < attempt; i++ {
		delay *= 2
	}
	return time.After(delay)
}
