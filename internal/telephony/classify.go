// Copyright (c) 2023-2025 Ristrutturiamolo
// Licensed under GPL-2.0 with Ristrutturiamolo Additional Terms.
// See LICENSE.md or contact sales@ristrutturiamolo.it for commercial usage.
package telephony

// machineDetectionTokens are the AnsweredBy values that mean an answering
// machine picked up (spec §4.7).
var machineDetectionTokens = map[string]bool{
	"machine_start":          true,
	"fax":                    true,
	"machine_beep":           true,
	"machine_end_silence":    true,
	"machine_end_other":      true,
	"machine_end_beep":       true,
}

// terminalCallStatuses are CallStatus values that mean the call is no
// longer live.
var terminalCallStatuses = map[string]bool{
	"completed": true,
	"canceled":  true,
}

// retryableCallStatuses are non-machine CallStatus values that always
// warrant a retry.
var retryableCallStatuses = map[string]bool{
	"no-answer": true,
	"busy":      true,
	"failed":    true,
}

// Outcome is the Retry Scheduler's classification of a status callback.
type Outcome struct {
	IsMachine    bool
	IsRetryable  bool
	IsHumanFinal bool // terminal, human-handled, no retry
	StillLive    bool // call has not reached a terminal status and isn't a machine pickup
}

// Classify implements spec §4.7's classification table. A machine pickup is
// retryable whether it arrives on a terminal status or mid-call (in which
// case the caller must hang up before scheduling the retry, StillLive=true).
func Classify(callStatus, answeredBy string) Outcome {
	isMachine := machineDetectionTokens[answeredBy]
	isTerminal := terminalCallStatuses[callStatus]
	isRetryableStatus := retryableCallStatuses[callStatus]

	o := Outcome{IsMachine: isMachine}

	switch {
	case isMachine:
		o.IsRetryable = true
		o.StillLive = !isTerminal && !isRetryableStatus
	case isRetryableStatus:
		o.IsRetryable = true
	case isTerminal:
		o.IsHumanFinal = true
	}
	return o
}
