// Package ingest turns inbound webhook deliveries into result rows and
// campaign record updates.
package ingest

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/event"
	"github.com/sells-group/outreach-cli/internal/normalize"
	"github.com/sells-group/outreach-cli/internal/phone"
	"github.com/sells-group/outreach-cli/internal/store"
)

// Ack statuses rendered by the HTTP layer.
const (
	StatusSuccess   = "success"
	StatusIgnored   = "ignored"
	StatusDuplicate = "duplicate"
	StatusError     = "error"
)

// Ack is the webhook response body. An error Ack maps to HTTP 500; everything
// else acknowledges with 200.
type Ack struct {
	Status    string `json:"status"`
	CallID    string `json:"call_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"`
	Message   string `json:"message,omitempty"`
}

// Service processes webhook events: full processing for end-of-call reports,
// cache warming for status updates, acknowledgement for everything else.
type Service struct {
	results  store.ResultStore
	campaign store.CampaignStore
	resolver *phone.Resolver
	log      *zap.Logger
	now      func() time.Time
}

// New creates an ingestion service.
func New(results store.ResultStore, campaign store.CampaignStore, resolver *phone.Resolver) *Service {
	return &Service{
		results:  results,
		campaign: campaign,
		resolver: resolver,
		log:      zap.L().With(zap.String("component", "ingest")),
		now:      time.Now,
	}
}

// Handle processes one webhook delivery. A non-nil error always pairs with a
// StatusError Ack.
func (s *Service) Handle(ctx context.Context, body []byte) (Ack, error) {
	payload, err := event.Decode(body)
	if err != nil {
		return Ack{Status: StatusError, Message: "payload is not a JSON object"}, err
	}

	eventType, correlationID, agentID := event.Classify(payload)
	log := s.log.With(
		zap.String("event_type", eventType),
		zap.String("call_id", correlationID),
	)

	switch eventType {
	case event.TypeStatusUpdate:
		if s.resolver.WarmFromStatusUpdate(payload, correlationID) {
			log.Debug("phone cache warmed from status update")
		}
		return Ack{Status: StatusSuccess, CallID: correlationID, Timestamp: s.timestamp()}, nil

	case event.TypeEndOfCallReport:
		return s.handleReport(ctx, log, payload, correlationID, agentID)

	default:
		log.Debug("ignoring event")
		return Ack{Status: StatusIgnored, CallID: correlationID}, nil
	}
}

func (s *Service) handleReport(ctx context.Context, log *zap.Logger, payload map[string]any, correlationID, agentID string) (Ack, error) {
	row := event.Parse(payload, s.now())

	// The structured data rarely carries a usable phone; fall back to the
	// resolver's payload-scan, cache, and secondary-lookup chain.
	if row.Phone == "" || strings.HasPrefix(row.Phone, normalize.InvalidPrefix) {
		if resolved := s.resolver.Resolve(ctx, payload, correlationID); resolved != "" {
			row.Phone = resolved
		}
	}

	outcome, err := s.results.HasResult(ctx, correlationID)
	if err != nil {
		// A failed duplicate check must not drop the event; worst case is a
		// repeated row, which downstream consumers dedupe by correlation id.
		log.Warn("duplicate check failed, treating as new", zap.Error(err))
	}
	duplicate := outcome == store.OutcomeFound

	if !duplicate {
		if err := s.results.AppendResult(ctx, agentID, row); err != nil {
			return Ack{Status: StatusError, Message: "failed to record result"},
				eris.Wrap(err, "ingest: append result")
		}
	}

	// The merge runs on duplicates too: a redelivery usually means an earlier
	// attempt appended the result row but failed before the campaign write, so
	// the merge is exactly the operation the redelivery exists to repair. It
	// no-ops once the row is terminal.
	merged, err := store.MergeEvent(ctx, s.campaign, correlationID, store.MergeFields{
		CallSummary:       row.Summary,
		CallerPhoneNumber: row.Phone,
	})
	if err != nil {
		return Ack{Status: StatusError, Message: "failed to update campaign record"},
			eris.Wrap(err, "ingest: merge event")
	}

	if duplicate {
		log.Info("duplicate end-of-call report",
			zap.Bool("campaign_row_updated", merged),
		)
		return Ack{Status: StatusDuplicate, CallID: correlationID, Timestamp: row.Timestamp}, nil
	}

	log.Info("end-of-call report processed",
		zap.String("agent_id", agentID),
		zap.Bool("campaign_row_updated", merged),
	)
	return Ack{Status: StatusSuccess, CallID: correlationID, Timestamp: row.Timestamp}, nil
}

func (s *Service) timestamp() string {
	return s.now().Format("2006-01-02 15:04:05")
}
