package store

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

// newMockPostgresStore creates a PostgresStore backed by pgxmock for unit testing.
func newMockPostgresStore(t *testing.T) (*PostgresStore, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool(pgxmock.QueryMatcherOption(pgxmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { mock.Close() })

	return NewPostgresWithPool(mock), mock
}

func TestPostgresStore_FindByCorrelationID_NotFound(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM campaign_calls WHERE correlation_id = \$1`).
		WithArgs("call-missing").
		WillReturnError(pgx.ErrNoRows)

	_, outcome, err := s.FindByCorrelationID(context.Background(), "call-missing")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByCorrelationID_EmptyID(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	// No query expected: an empty correlation id never matches a row.
	_, outcome, err := s.FindByCorrelationID(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByCorrelationID_Found(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"row_number", "contact_name", "target_phone_number", "caller_phone_number",
		"attempt_count", "status", "last_called_at", "next_call_time",
		"call_summary", "correlation_id", "notes",
	}).AddRow(7, "Jordan Smith", "+15551234567", "+15559876543",
		1, "COMPLETED", "2025-06-01 10:00:00", "", "", "call-abc", "")

	mock.ExpectQuery(`FROM campaign_calls WHERE correlation_id = \$1`).
		WithArgs("call-abc").
		WillReturnRows(rows)

	rec, outcome, err := s.FindByCorrelationID(context.Background(), "call-abc")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, outcome)
	assert.Equal(t, 7, rec.RowNumber)
	assert.Equal(t, model.StatusCompleted, rec.Status)
	assert.Equal(t, "Jordan Smith", rec.ContactName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_FindByCorrelationID_QueryError(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`FROM campaign_calls WHERE correlation_id = \$1`).
		WithArgs("call-abc").
		WillReturnError(assert.AnError)

	_, outcome, err := s.FindByCorrelationID(context.Background(), "call-abc")
	require.Error(t, err)
	assert.Equal(t, OutcomeLookupFailed, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRow(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE campaign_calls SET`).
		WithArgs("Jordan Smith", "+15551234567", "", 2, "CALLING",
			"2025-06-01 10:00:00", "", "", "call-abc", "", 7).
		WillReturnResult(pgxmock.NewResult("UPDATE", 1))

	err := s.UpdateRow(context.Background(), model.CallRecord{
		RowNumber:         7,
		ContactName:       "Jordan Smith",
		TargetPhoneNumber: "+15551234567",
		AttemptCount:      2,
		Status:            model.StatusCalling,
		LastCalledAt:      "2025-06-01 10:00:00",
		CorrelationID:     "call-abc",
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_UpdateRow_Missing(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`UPDATE campaign_calls SET`).
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), 99).
		WillReturnResult(pgxmock.NewResult("UPDATE", 0))

	err := s.UpdateRow(context.Background(), model.CallRecord{RowNumber: 99, Status: model.StatusQueued})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_ListQueued(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{
		"row_number", "contact_name", "target_phone_number", "caller_phone_number",
		"attempt_count", "status", "last_called_at", "next_call_time",
		"call_summary", "correlation_id", "notes",
	}).
		AddRow(2, "Alice", "+15551111111", "", 0, "QUEUED", "", "", "", "", "").
		AddRow(5, "Bob", "+15552222222", "", 1, "QUEUED", "", "", "", "", "")

	mock.ExpectQuery(`FROM campaign_calls WHERE status = \$1`).
		WithArgs("QUEUED").
		WillReturnRows(rows)

	records, err := s.ListQueued(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, 2, records[0].RowNumber)
	assert.Equal(t, "Bob", records[1].ContactName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_StatusCounts(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	rows := pgxmock.NewRows([]string{"status", "count"}).
		AddRow("QUEUED", int64(3)).
		AddRow("COMPLETED", int64(2))

	mock.ExpectQuery(`SELECT status, COUNT\(\*\) FROM campaign_calls`).
		WillReturnRows(rows)

	counts, err := s.StatusCounts(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, counts[model.StatusQueued])
	assert.Equal(t, 2, counts[model.StatusCompleted])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectExec(`INSERT INTO call_results`).
		WithArgs(pgxmock.AnyArg(), "agent-1", "2025-06-01 10:00:00", "call-abc",
			"Customer asked for a quote.", "Jordan Smith", "jordan@example.com",
			"+15551234567", "Quote", "Toyota", "Camry", "45,000",
			"Standard", "2025-06-03", "182", "completed", `{"type":"end-of-call-report"}`).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	err := s.AppendResult(context.Background(), "agent-1", model.ResultRow{
		Timestamp:         "2025-06-01 10:00:00",
		CorrelationID:     "call-abc",
		Summary:           "Customer asked for a quote.",
		Name:              "Jordan Smith",
		Email:             "jordan@example.com",
		Phone:             "+15551234567",
		Intent:            "Quote",
		VehicleMake:       "Toyota",
		VehicleModel:      "Camry",
		VehicleMileage:    "45,000",
		EscalationStatus:  "Standard",
		FollowUpDue:       "2025-06-03",
		CallDuration:      "182",
		CallStatus:        "completed",
		RawPayloadExcerpt: `{"type":"end-of-call-report"}`,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_HasResult(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM call_results WHERE correlation_id = \$1`).
		WithArgs("call-abc").
		WillReturnRows(pgxmock.NewRows([]string{"1"}).AddRow(1))

	outcome, err := s.HasResult(context.Background(), "call-abc")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_HasResult_LookupFailed(t *testing.T) {
	s, mock := newMockPostgresStore(t)

	mock.ExpectQuery(`SELECT 1 FROM call_results WHERE correlation_id = \$1`).
		WithArgs("call-abc").
		WillReturnError(assert.AnError)

	outcome, err := s.HasResult(context.Background(), "call-abc")
	require.Error(t, err)
	assert.Equal(t, OutcomeLookupFailed, outcome)
	assert.NoError(t, mock.ExpectationsWereMet())
}
