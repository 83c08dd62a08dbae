package spamguard_test

import (
	"testing"

	"github.com/tentapress/forms/pkg/spamguard"
)

func TestEvaluate(t *testing.T) {
	const now = int64(1_700_000_000)

	cases := []struct {
		name      string
		honeypot  string
		startedAt int64
		want      string
	}{
		{"clean submission", "", now - 30, ""},
		{"exactly two seconds passes", "", now - 2, ""},
		{"one second fails", "", now - 1, "Please wait a moment before submitting."},
		{"instant submission fails", "", now, "Please wait a moment before submitting."},
		{"honeypot filled", "gotcha", now - 30, "We could not process your submission."},
		{"whitespace honeypot passes", "   ", now - 30, ""},
		{"missing start time", "", 0, "Please refresh and try again."},
		{"negative start time", "", -5, "Please refresh and try again."},
		{"honeypot checked before timing", "gotcha", 0, "We could not process your submission."},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := spamguard.Evaluate(tc.honeypot, tc.startedAt, now); got != tc.want {
				t.Fatalf("Evaluate(%q, %d, now) = %q, want %q", tc.honeypot, tc.startedAt, got, tc.want)
			}
		})
	}
}
