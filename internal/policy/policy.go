// Package policy derives operator-facing follow-up decisions from call
// content. Everything here is pure and deterministic.
package policy

import (
	"strings"
	"time"
)

// Escalation levels, in descending urgency.
const (
	EscalationHigh      = "High Priority"
	EscalationEmergency = "Emergency"
	EscalationStandard  = "Standard"
)

// escalationKeywords mark anger, complaints, or urgency in a call summary.
var escalationKeywords = []string{
	"angry", "frustrated", "complaint", "manager", "supervisor",
	"emergency", "urgent", "asap", "immediately", "problem",
}

// Escalation classifies a completed call. The keyword scan runs before the
// intent check: a summary that trips a keyword wins High Priority even when
// the intent alone would have classified as Emergency.
func Escalation(summary, intent string) string {
	summaryLower := strings.ToLower(summary)
	for _, kw := range escalationKeywords {
		if strings.Contains(summaryLower, kw) {
			return EscalationHigh
		}
	}
	if strings.Contains(strings.ToLower(intent), "emergency") {
		return EscalationEmergency
	}
	return EscalationStandard
}

// FollowUpDue computes the follow-up due date for an intent relative to now.
// The output is a calendar date with no time component; an empty intent has
// no follow-up. The four-hour emergency window is intent-gated, independent
// of the summary keyword scan.
func FollowUpDue(intent string, now time.Time) string {
	if strings.TrimSpace(intent) == "" {
		return ""
	}

	intentLower := strings.ToLower(intent)
	var due time.Time
	switch {
	case strings.Contains(intentLower, "emergency"):
		due = now.Add(4 * time.Hour)
	case strings.Contains(intentLower, "appointment") || strings.Contains(intentLower, "booking"):
		due = now.AddDate(0, 0, 1)
	case strings.Contains(intentLower, "quote") || strings.Contains(intentLower, "price"):
		due = now.AddDate(0, 0, 2)
	default:
		due = now.AddDate(0, 0, 3)
	}
	return due.Format("2006-01-02")
}
