package store

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/model"
)

// MergeFields are the event-derived fields overlaid onto a campaign record.
// Empty fields are left untouched.
type MergeFields struct {
	CallSummary       string
	CallerPhoneNumber string
	Notes             string
}

// MergeEvent correlates an inbound result event back to its campaign record
// and merges the supplied fields, forcing status SUMMARY_RECEIVED. The write
// is a read-modify-write of the full row because store updates are
// row-granular.
//
// A missing correlation id is not an error: the event belongs to a call this
// system did not place, or raced ahead of the dispatch write. It is logged
// and reported as merged=false with zero writes performed.
//
// MergeEvent is idempotent: a row whose status cannot move to SUMMARY_RECEIVED
// has already absorbed an earlier merge and is left untouched, so redelivered
// events never rewrite a terminal row.
func MergeEvent(ctx context.Context, cs CampaignStore, correlationID string, fields MergeFields) (bool, error) {
	rec, outcome, err := cs.FindByCorrelationID(ctx, correlationID)
	switch outcome {
	case OutcomeLookupFailed:
		return false, eris.Wrapf(err, "store: correlation lookup %s", correlationID)
	case OutcomeNotFound:
		zap.L().Warn("store: no campaign record for correlation id",
			zap.String("correlation_id", correlationID),
		)
		return false, nil
	}

	current, err := cs.GetRow(ctx, rec.RowNumber)
	if err != nil {
		return false, eris.Wrapf(err, "store: read row %d", rec.RowNumber)
	}

	if !current.Status.CanTransition(model.StatusSummaryReceived) {
		zap.L().Debug("store: row already terminal, skipping merge",
			zap.String("correlation_id", correlationID),
			zap.Int("row", current.RowNumber),
		)
		return false, nil
	}

	if fields.CallSummary != "" {
		current.CallSummary = fields.CallSummary
	}
	if fields.CallerPhoneNumber != "" {
		current.CallerPhoneNumber = fields.CallerPhoneNumber
	}
	if fields.Notes != "" {
		current.Notes = fields.Notes
	}
	current.Status = model.StatusSummaryReceived

	if err := cs.UpdateRow(ctx, current); err != nil {
		return false, eris.Wrapf(err, "store: merge row %d", current.RowNumber)
	}
	return true, nil
}
