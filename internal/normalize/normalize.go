// Package normalize holds the pure field-cleaning functions used by the event
// parser. Every function is total: bad input is tagged, never raised.
package normalize

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

const (
	maxTextLen   = 1000
	maxNameLen   = 100
	maxIntentLen = 50

	// InvalidPrefix tags a field value that failed validation. The original
	// input is carried after the tag so operators can still act on it.
	InvalidPrefix = "INVALID: "

	// CheckPrefix tags a numeric value that parsed but fell outside the
	// plausible range.
	CheckPrefix = "CHECK: "
)

var (
	emailRe    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	nonDigitRe = regexp.MustCompile(`\D`)

	titleCaser = cases.Title(language.English)
)

// validIntents is the advisory catalog of service categories. Unmatched
// values pass through verbatim; the catalog only canonicalizes casing.
var validIntents = []string{
	"Oil Change", "Tire Service", "Brake Service", "Engine Repair",
	"Transmission", "Battery", "Inspection", "General Inquiry",
	"Appointment Booking", "Price Quote", "Emergency",
}

// CleanText collapses internal whitespace and truncates to maxLen. A
// non-positive maxLen falls back to the default cell limit.
func CleanText(s string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = maxTextLen
	}
	return truncate(strings.Join(strings.Fields(s), " "), maxLen)
}

// truncate caps s at max bytes without splitting a multi-byte rune, so a
// truncated cell is still valid UTF-8.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := max
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut]
}

// FormatName title-cases each word and truncates to a reasonable name length.
func FormatName(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	return truncate(titleCaser.String(strings.ToLower(CleanText(s, maxNameLen))), maxNameLen)
}

// ValidateEmail lower-cases and validates against a standard email grammar.
// Non-matching non-empty input is tagged, not rejected: the result field
// always carries a printable value.
func ValidateEmail(s string) string {
	email := strings.ToLower(strings.TrimSpace(s))
	if email == "" {
		return ""
	}
	if emailRe.MatchString(email) {
		return email
	}
	return InvalidPrefix + email
}

// ValidatePhone canonicalizes a phone number to the wire format used
// everywhere in this system: a plus-prefixed compact digit string. Ten-digit
// input assumes the North American country code; eleven digits with a leading
// 1 are accepted as-is. Anything else is tagged. Idempotent: applying it to
// its own output returns the same value.
func ValidatePhone(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}
	if strings.HasPrefix(raw, InvalidPrefix) {
		return raw
	}

	digits := nonDigitRe.ReplaceAllString(raw, "")
	switch {
	case len(digits) == 10:
		return "+1" + digits
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return InvalidPrefix + raw
	}
}

// FormatDialNumber prepares a stored target number for an outbound call
// request. It shares ValidatePhone's canonical format but is best-effort:
// a number that doesn't match the known lengths is still dialed with the
// region default prepended rather than dropped from the batch.
func FormatDialNumber(s string) string {
	digits := nonDigitRe.ReplaceAllString(s, "")
	switch {
	case len(digits) == 11 && digits[0] == '1':
		return "+" + digits
	default:
		return "+1" + digits
	}
}

// ValidateIntent matches case-insensitively against the service catalog and
// returns the canonical casing on a hit. Unmatched non-empty values pass
// through truncated; the catalog is advisory, not enforced.
func ValidateIntent(s string) string {
	intent := strings.TrimSpace(s)
	if intent == "" {
		return "Unknown"
	}
	for _, valid := range validIntents {
		if strings.EqualFold(intent, valid) {
			return valid
		}
	}
	return truncate(intent, maxIntentLen)
}

// ParseNumeric parses a locale-formatted number such as a vehicle mileage.
// Values outside [0, 999999] are retained but tagged for review, with the
// original separators preserved in the tag. Non-numeric input is tagged
// invalid. Never fails.
func ParseNumeric(s string) string {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return ""
	}

	numeric := strings.ReplaceAll(raw, ",", "")
	numeric = strings.ReplaceAll(numeric, " ", "")
	val, err := strconv.ParseFloat(numeric, 64)
	if err != nil {
		return InvalidPrefix + truncate(raw, 20)
	}

	if val < 0 || val > 999999 {
		return CheckPrefix + raw
	}
	return groupDigits(int64(val))
}

// groupDigits renders n with comma thousands separators.
func groupDigits(n int64) string {
	s := strconv.FormatInt(n, 10)
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	var b strings.Builder
	for i, c := range s {
		if i > 0 && (len(s)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(c)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// ParseTimestamp normalizes an ISO 8601 timestamp to the store's
// "2006-01-02 15:04:05" form. Absent or unparseable input yields the current
// time so every result row carries a usable timestamp.
func ParseTimestamp(s string, now time.Time) string {
	const layout = "2006-01-02 15:04:05"
	if s == "" {
		return now.Format(layout)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return now.Format(layout)
	}
	return t.Format(layout)
}
