// Package store persists campaign call records and parsed call results. The
// production backing store is a spreadsheet addressed by row position; sqlite
// and postgres backends exist for local runs and self-hosted deployments and
// emulate the same row-addressed contract.
package store

import (
	"context"

	"github.com/sells-group/outreach-cli/internal/model"
)

// Outcome is the result of a lookup that must distinguish "confirmed absent"
// from "could not check". Callers that would swallow a lookup failure as
// absence get to make that call explicitly.
type Outcome int

const (
	OutcomeFound Outcome = iota
	OutcomeNotFound
	OutcomeLookupFailed
)

// CampaignStore holds the outbound campaign's call records, one row per
// contact, in the ten-column wire order of model.CampaignColumns.
type CampaignStore interface {
	// EnsureHeaders writes the column header row if missing or stale.
	EnsureHeaders(ctx context.Context) error

	// Append adds records to the end of the campaign, status QUEUED.
	Append(ctx context.Context, records []model.CallRecord) error

	// ListQueued returns all records with status QUEUED, row numbers set.
	ListQueued(ctx context.Context) ([]model.CallRecord, error)

	// GetRow fetches one record by its positional locator.
	GetRow(ctx context.Context, rowNumber int) (model.CallRecord, error)

	// UpdateRow writes the full ten-column row at rec.RowNumber. Updates are
	// row-granular: callers must read-modify-write to avoid clobbering
	// columns they did not intend to touch.
	UpdateRow(ctx context.Context, rec model.CallRecord) error

	// FindByCorrelationID locates the record dispatched with the given
	// correlation id.
	FindByCorrelationID(ctx context.Context, correlationID string) (model.CallRecord, Outcome, error)

	// StatusCounts tallies records per status.
	StatusCounts(ctx context.Context) (map[model.CallStatus]int, error)

	// Ping verifies the store is reachable.
	Ping(ctx context.Context) error

	Close() error
}

// Migrator is implemented by the database-backed stores, which create their
// schema instead of writing a header row.
type Migrator interface {
	Migrate(ctx context.Context) error
}

// ResultStore holds one row per processed end-of-call report, in the
// fifteen-column wire order of model.ResultColumns.
type ResultStore interface {
	EnsureHeaders(ctx context.Context) error

	// AppendResult appends a parsed result, routed by agent id.
	AppendResult(ctx context.Context, agentID string, row model.ResultRow) error

	// HasResult checks whether a correlation id was already recorded, so a
	// redelivered webhook doesn't double-append.
	HasResult(ctx context.Context, correlationID string) (Outcome, error)

	Ping(ctx context.Context) error

	Close() error
}
