// Package spamguard applies the stateless heuristics that filter obvious bot
// traffic before a submission touches validation or a provider. It is a
// first-line filter, not a guarantee.
package spamguard

import "strings"

// MinElapsedSeconds is the minimum time a human plausibly needs between
// loading a form and submitting it. Exactly this many seconds passes.
const MinElapsedSeconds = 2

// Guard messages surfaced directly to the visitor.
const (
	honeypotMessage = "We could not process your submission."
	staleMessage    = "Please refresh and try again."
	tooFastMessage  = "Please wait a moment before submitting."
)

// Evaluate runs the checks in fixed order and returns the message for the
// first failure, or "" when the submission passes:
//
//  1. a non-empty honeypot value marks bot traffic that fills every field
//  2. a missing or non-positive start timestamp marks replayed form state
//  3. submitting faster than MinElapsedSeconds marks bot-speed input
func Evaluate(honeypotValue string, startedAt, now int64) string {
	if strings.TrimSpace(honeypotValue) != "" {
		return honeypotMessage
	}
	if startedAt <= 0 {
		return staleMessage
	}
	if now-startedAt < MinElapsedSeconds {
		return tooFastMessage
	}
	return ""
}
