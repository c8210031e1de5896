// Package phone recovers the caller's phone number from inbound call events.
// The number may be absent, present in any of several payload locations, or
// recoverable only through a secondary platform lookup; the resolver walks a
// fixed fallback chain and treats total absence as a normal outcome.
package phone

import (
	"context"

	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/normalize"
	"github.com/sells-group/outreach-cli/pkg/vapi"
)

// CallFetcher is the slice of the platform client the resolver needs.
type CallFetcher interface {
	GetCall(ctx context.Context, callID string) (*vapi.Call, error)
}

// Resolver resolves caller numbers through the payload fallback chain, the
// process-local cache, and (when a platform credential is configured) the
// call-detail lookup.
type Resolver struct {
	cache   Cache
	fetcher CallFetcher // nil when no lookup credential is configured
}

// NewResolver creates a Resolver. fetcher may be nil, which disables the
// secondary lookup stage.
func NewResolver(cache Cache, fetcher CallFetcher) *Resolver {
	return &Resolver{cache: cache, fetcher: fetcher}
}

// payloadPaths is the resolution order within the payload itself. First
// non-empty candidate that survives phone validation wins.
var payloadPaths = [][]string{
	// Nested call object's customer number.
	{"message", "call", "customer", "number"},
	{"call", "customer", "number"},
	// The call object's raw "from".
	{"message", "call", "from"},
	{"call", "from"},
	// Alternate call-object fields some platform versions populate instead.
	{"message", "call", "caller"},
	{"call", "caller"},
	{"message", "call", "sourceNumber"},
	{"call", "sourceNumber"},
	{"message", "call", "outboundCallerId"},
	{"call", "outboundCallerId"},
	// Top-level convenience fields.
	{"customer", "number"},
	{"from"},
	{"phoneNumber"},
}

// Resolve returns the canonical caller number for an event payload, or ""
// when the full chain misses. A miss is not an error: the field stays empty.
func (r *Resolver) Resolve(ctx context.Context, payload map[string]any, correlationID string) string {
	if number := extractFromPayload(payload); number != "" {
		r.cache.Put(correlationID, number)
		return number
	}

	if correlationID == "" {
		return ""
	}

	if number, ok := r.cache.Get(correlationID); ok {
		return number
	}

	if r.fetcher == nil {
		return ""
	}

	call, err := r.fetcher.GetCall(ctx, correlationID)
	if err != nil {
		zap.L().Warn("phone: call detail lookup failed",
			zap.String("correlation_id", correlationID),
			zap.Error(err),
		)
		return ""
	}

	for _, candidate := range []string{call.Customer.Number, call.From} {
		if number := canonical(candidate); number != "" {
			r.cache.Put(correlationID, number)
			return number
		}
	}
	return ""
}

// WarmFromStatusUpdate opportunistically caches the caller number carried by a
// lightweight status-update event, so the end-of-call report can resolve it
// without the secondary lookup. Absence of warming never blocks resolution.
func (r *Resolver) WarmFromStatusUpdate(payload map[string]any, correlationID string) bool {
	if correlationID == "" {
		return false
	}
	number := extractFromPayload(payload)
	if number == "" {
		return false
	}
	r.cache.Put(correlationID, number)
	return true
}

func extractFromPayload(payload map[string]any) string {
	for _, path := range payloadPaths {
		if number := canonical(dig(payload, path...)); number != "" {
			return number
		}
	}
	return ""
}

// canonical validates a candidate and returns its wire form, or "" if the
// candidate is empty or fails validation.
func canonical(raw string) string {
	if raw == "" {
		return ""
	}
	number := normalize.ValidatePhone(raw)
	if number == "" || number[0] != '+' {
		return ""
	}
	return number
}

// dig walks nested objects and returns the string leaf at path, or "".
func dig(m map[string]any, path ...string) string {
	cur := any(m)
	for _, key := range path {
		obj, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		cur, ok = obj[key]
		if !ok {
			return ""
		}
	}
	s, _ := cur.(string)
	return s
}
