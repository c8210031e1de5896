package store

import (
	"context"
	"fmt"
	"slices"

	"github.com/rotisserie/eris"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/resilience"
	"github.com/sells-group/outreach-cli/pkg/sheets"
)

// SheetsCampaignStore implements CampaignStore on a spreadsheet tab. Rows are
// addressed positionally; row 1 is the header, data starts at row 2.
//
// Correlation lookup scans the full id column linearly. That is a deliberate
// O(n) choice: campaigns run in the hundreds of rows and the spreadsheet API
// offers no server-side filter worth the complexity.
type SheetsCampaignStore struct {
	client    sheets.Client
	sheetName string
	retry     resilience.RetryConfig
}

// NewSheetsCampaignStore creates a campaign store on one spreadsheet tab.
func NewSheetsCampaignStore(client sheets.Client, sheetName string) *SheetsCampaignStore {
	retry := resilience.DefaultRetryConfig()
	// Rate limiting is the only retriable store failure; everything else
	// surfaces immediately.
	retry.ShouldRetry = sheets.IsRateLimited
	retry.OnRetry = resilience.RetryLogger("sheets", "campaign")

	return &SheetsCampaignStore{
		client:    client,
		sheetName: sheetName,
		retry:     retry,
	}
}

func (s *SheetsCampaignStore) EnsureHeaders(ctx context.Context) error {
	headerRange := fmt.Sprintf("%s!1:1", s.sheetName)

	existing, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([][]string, error) {
		return s.client.GetRange(ctx, headerRange)
	})
	if err != nil {
		return eris.Wrap(err, "store: read campaign headers")
	}

	if len(existing) > 0 && slices.Equal(existing[0], model.CampaignColumns) {
		return nil
	}

	err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.client.UpdateRange(ctx, headerRange, [][]string{model.CampaignColumns})
	})
	return eris.Wrap(err, "store: write campaign headers")
}

func (s *SheetsCampaignStore) Append(ctx context.Context, records []model.CallRecord) error {
	if len(records) == 0 {
		return nil
	}
	rows := make([][]string, len(records))
	for i, rec := range records {
		rows[i] = rec.Row()
	}

	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.client.AppendRows(ctx, s.dataRange(), rows)
	})
	return eris.Wrap(err, "store: append campaign rows")
}

func (s *SheetsCampaignStore) ListQueued(ctx context.Context) ([]model.CallRecord, error) {
	records, err := s.allRecords(ctx)
	if err != nil {
		return nil, err
	}

	queued := records[:0]
	for _, rec := range records {
		if rec.Status == model.StatusQueued {
			queued = append(queued, rec)
		}
	}
	return queued, nil
}

func (s *SheetsCampaignStore) GetRow(ctx context.Context, rowNumber int) (model.CallRecord, error) {
	rows, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([][]string, error) {
		return s.client.GetRange(ctx, s.rowRange(rowNumber))
	})
	if err != nil {
		return model.CallRecord{}, eris.Wrapf(err, "store: read row %d", rowNumber)
	}
	if len(rows) == 0 {
		return model.RecordFromRow(nil, rowNumber), nil
	}
	return model.RecordFromRow(rows[0], rowNumber), nil
}

func (s *SheetsCampaignStore) UpdateRow(ctx context.Context, rec model.CallRecord) error {
	if rec.RowNumber < 2 {
		return eris.Errorf("store: refusing to write row %d", rec.RowNumber)
	}
	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.client.UpdateRange(ctx, s.rowRange(rec.RowNumber), [][]string{rec.Row()})
	})
	return eris.Wrapf(err, "store: update row %d", rec.RowNumber)
}

func (s *SheetsCampaignStore) FindByCorrelationID(ctx context.Context, correlationID string) (model.CallRecord, Outcome, error) {
	if correlationID == "" {
		return model.CallRecord{}, OutcomeNotFound, nil
	}

	records, err := s.allRecords(ctx)
	if err != nil {
		return model.CallRecord{}, OutcomeLookupFailed, err
	}
	for _, rec := range records {
		if rec.CorrelationID == correlationID {
			return rec, OutcomeFound, nil
		}
	}
	return model.CallRecord{}, OutcomeNotFound, nil
}

func (s *SheetsCampaignStore) StatusCounts(ctx context.Context) (map[model.CallStatus]int, error) {
	records, err := s.allRecords(ctx)
	if err != nil {
		return nil, err
	}
	counts := make(map[model.CallStatus]int)
	for _, rec := range records {
		if rec.Status != "" {
			counts[rec.Status]++
		}
	}
	return counts, nil
}

func (s *SheetsCampaignStore) Ping(ctx context.Context) error {
	_, err := s.client.GetRange(ctx, fmt.Sprintf("%s!A1:A1", s.sheetName))
	return eris.Wrap(err, "store: ping campaign sheet")
}

func (s *SheetsCampaignStore) Close() error { return nil }

func (s *SheetsCampaignStore) allRecords(ctx context.Context) ([]model.CallRecord, error) {
	rows, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([][]string, error) {
		return s.client.GetRange(ctx, s.dataRange())
	})
	if err != nil {
		return nil, eris.Wrap(err, "store: read campaign sheet")
	}
	if len(rows) <= 1 {
		return nil, nil
	}

	records := make([]model.CallRecord, 0, len(rows)-1)
	for i, row := range rows[1:] {
		records = append(records, model.RecordFromRow(row, i+2))
	}
	return records, nil
}

func (s *SheetsCampaignStore) dataRange() string {
	return fmt.Sprintf("%s!A:J", s.sheetName)
}

func (s *SheetsCampaignStore) rowRange(rowNumber int) string {
	return fmt.Sprintf("%s!A%d:J%d", s.sheetName, rowNumber, rowNumber)
}

// SheetsResultStore implements ResultStore on spreadsheet tabs, one tab per
// agent. Unknown agent ids land on the default tab.
type SheetsResultStore struct {
	client     sheets.Client
	defaultTab string
	agentTabs  map[string]string
	retry      resilience.RetryConfig
}

// NewSheetsResultStore creates a result store. agentTabs maps agent ids to
// tab names and may be nil.
func NewSheetsResultStore(client sheets.Client, defaultTab string, agentTabs map[string]string) *SheetsResultStore {
	retry := resilience.DefaultRetryConfig()
	retry.ShouldRetry = sheets.IsRateLimited
	retry.OnRetry = resilience.RetryLogger("sheets", "results")

	return &SheetsResultStore{
		client:     client,
		defaultTab: defaultTab,
		agentTabs:  agentTabs,
		retry:      retry,
	}
}

func (s *SheetsResultStore) EnsureHeaders(ctx context.Context) error {
	tabs := []string{s.defaultTab}
	for _, tab := range s.agentTabs {
		if !slices.Contains(tabs, tab) {
			tabs = append(tabs, tab)
		}
	}

	for _, tab := range tabs {
		headerRange := fmt.Sprintf("%s!1:1", tab)
		existing, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([][]string, error) {
			return s.client.GetRange(ctx, headerRange)
		})
		if err != nil {
			return eris.Wrapf(err, "store: read result headers %s", tab)
		}
		if len(existing) > 0 && slices.Equal(existing[0], model.ResultColumns) {
			continue
		}
		err = resilience.Do(ctx, s.retry, func(ctx context.Context) error {
			return s.client.UpdateRange(ctx, headerRange, [][]string{model.ResultColumns})
		})
		if err != nil {
			return eris.Wrapf(err, "store: write result headers %s", tab)
		}
	}
	return nil
}

func (s *SheetsResultStore) AppendResult(ctx context.Context, agentID string, row model.ResultRow) error {
	tab := s.defaultTab
	if mapped, ok := s.agentTabs[agentID]; ok {
		tab = mapped
	}

	err := resilience.Do(ctx, s.retry, func(ctx context.Context) error {
		return s.client.AppendRows(ctx, fmt.Sprintf("%s!A:A", tab), [][]string{row.Row()})
	})
	return eris.Wrapf(err, "store: append result %s", row.CorrelationID)
}

// HasResult scans the correlation id column of every tab. Linear, same
// reasoning as the campaign-side scan.
func (s *SheetsResultStore) HasResult(ctx context.Context, correlationID string) (Outcome, error) {
	if correlationID == "" {
		return OutcomeNotFound, nil
	}

	tabs := []string{s.defaultTab}
	for _, tab := range s.agentTabs {
		if !slices.Contains(tabs, tab) {
			tabs = append(tabs, tab)
		}
	}

	for _, tab := range tabs {
		rows, err := resilience.DoVal(ctx, s.retry, func(ctx context.Context) ([][]string, error) {
			return s.client.GetRange(ctx, fmt.Sprintf("%s!B:B", tab))
		})
		if err != nil {
			return OutcomeLookupFailed, eris.Wrapf(err, "store: scan results %s", tab)
		}
		for _, row := range rows {
			if len(row) > 0 && row[0] == correlationID {
				return OutcomeFound, nil
			}
		}
	}
	return OutcomeNotFound, nil
}

func (s *SheetsResultStore) Ping(ctx context.Context) error {
	_, err := s.client.GetRange(ctx, fmt.Sprintf("%s!A1:A1", s.defaultTab))
	return eris.Wrap(err, "store: ping result sheet")
}

func (s *SheetsResultStore) Close() error { return nil }
