// Package event classifies inbound webhook payloads and extracts the
// canonical result record. The upstream platform has shipped at least three
// payload shapes for the same logical report; parsing is a fixed-order tagged
// dispatch across those variants, never duck-typed field probing.
package event

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/normalize"
	"github.com/sells-group/outreach-cli/internal/policy"
)

// Event types this system acts on. Everything else is acknowledged and
// dropped.
const (
	TypeEndOfCallReport = "end-of-call-report"
	TypeStatusUpdate    = "status-update"
)

// ErrMalformedPayload is returned when the webhook body is not a JSON object.
// It is the only error the parsing path produces; missing fields inside an
// object degrade to empty values instead.
var ErrMalformedPayload = eris.New("event: payload is not a JSON object")

const rawExcerptLen = 500

// Decode parses a webhook body into a payload object.
func Decode(body []byte) (map[string]any, error) {
	var payload map[string]any
	if err := json.Unmarshal(body, &payload); err != nil || payload == nil {
		return nil, ErrMalformedPayload
	}
	return payload, nil
}

// Classify returns the event type plus the correlation and agent identifiers,
// reading top-level fields first and the message wrapper second. All three
// may be empty.
func Classify(payload map[string]any) (eventType, correlationID, agentID string) {
	eventType = str(payload, "type")
	if eventType == "" {
		eventType = str(dig(payload, "message"), "type")
	}

	correlationID = str(dig(payload, "call"), "id")
	if correlationID == "" {
		correlationID = str(dig(payload, "message", "call"), "id")
	}

	agentID = str(dig(payload, "call", "assistant"), "id")
	if agentID == "" {
		agentID = str(dig(payload, "message", "call", "assistant"), "id")
	}
	return eventType, correlationID, agentID
}

// variant is one recognized payload shape. Matchers are tried in declaration
// order; each is total: once selected, its extraction path cannot
// half-apply and fall through to another variant.
type variant struct {
	name    string
	match   func(payload map[string]any) bool
	extract func(payload map[string]any) (call, analysis map[string]any)
}

var variants = []variant{
	{
		// Event type at the top level, call/analysis read directly.
		name: "direct",
		match: func(p map[string]any) bool {
			return str(p, "type") == TypeEndOfCallReport
		},
		extract: func(p map[string]any) (map[string]any, map[string]any) {
			return dig(p, "call"), dig(p, "analysis")
		},
	},
	{
		// Event type nested one level under a message wrapper.
		name: "wrapped",
		match: func(p map[string]any) bool {
			return str(dig(p, "message"), "type") == TypeEndOfCallReport
		},
		extract: func(p map[string]any) (map[string]any, map[string]any) {
			return dig(p, "message", "call"), dig(p, "message", "analysis")
		},
	},
	{
		// Legacy flat shape: summary and structured data at the top level.
		name:  "legacy",
		match: func(p map[string]any) bool { return true },
		extract: func(p map[string]any) (map[string]any, map[string]any) {
			return dig(p, "call"), map[string]any{
				"summary":        str(dig(p, "summary"), "text"),
				"structuredData": dig(p, "structured"),
			}
		},
	},
}

// Parse extracts the canonical result row from an end-of-call payload. Every
// scalar runs through the field normalizer; missing fields default to empty
// and never fail the parse.
func Parse(payload map[string]any, now time.Time) model.ResultRow {
	var call, analysis map[string]any
	for _, v := range variants {
		if v.match(payload) {
			call, analysis = v.extract(payload)
			break
		}
	}

	structured := dig(analysis, "structuredData")
	summary := normalize.CleanText(str(analysis, "summary"), 0)

	// Snake_case keys are current; PascalCase aliases survive from an older
	// extraction schema and are honored as fallbacks.
	intent := normalize.ValidateIntent(pick(structured, "caller_intent", "CallerIntent"))

	callStatus := str(call, "status")
	if callStatus == "" {
		callStatus = "unknown"
	}

	return model.ResultRow{
		Timestamp:         normalize.ParseTimestamp(pick(call, "created_at", "createdAt"), now),
		CorrelationID:     str(call, "id"),
		Summary:           summary,
		Name:              normalize.FormatName(pick(structured, "customer_name", "Name")),
		Email:             normalize.ValidateEmail(pick(structured, "customer_email", "Email")),
		Phone:             normalize.ValidatePhone(pick(structured, "customer_phone", "PhoneNumber")),
		Intent:            intent,
		VehicleMake:       normalize.CleanText(pick(structured, "vehicle_make", "VehicleMake"), 0),
		VehicleModel:      normalize.CleanText(pick(structured, "vehicle_model", "VehicleModel"), 0),
		VehicleMileage:    normalize.ParseNumeric(pick(structured, "vehicle_km", "VehicleKM")),
		EscalationStatus:  policy.Escalation(summary, intent),
		FollowUpDue:       policy.FollowUpDue(pick(structured, "caller_intent", "CallerIntent"), now),
		CallDuration:      str(call, "duration"),
		CallStatus:        callStatus,
		RawPayloadExcerpt: rawExcerpt(payload),
	}
}

// pick returns the first non-empty value among the aliased keys.
func pick(m map[string]any, keys ...string) string {
	for _, key := range keys {
		if v := str(m, key); v != "" {
			return v
		}
	}
	return ""
}

// str reads a scalar field as a string, coercing JSON numbers so numeric
// cells (durations, mileages) don't vanish.
func str(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		if v == float64(int64(v)) {
			return fmt.Sprintf("%d", int64(v))
		}
		return fmt.Sprintf("%g", v)
	case bool:
		return fmt.Sprintf("%t", v)
	default:
		return ""
	}
}

// dig walks nested payload objects, returning nil when any hop is absent or
// not an object.
func dig(m map[string]any, path ...string) map[string]any {
	cur := m
	for _, key := range path {
		next, ok := cur[key].(map[string]any)
		if !ok {
			return nil
		}
		cur = next
	}
	return cur
}

func rawExcerpt(payload map[string]any) string {
	raw, err := json.Marshal(payload)
	if err != nil {
		return ""
	}
	if len(raw) > rawExcerptLen {
		raw = raw[:rawExcerptLen]
	}
	return string(raw)
}
