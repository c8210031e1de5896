package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLite(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.Migrate(context.Background()))
	return s
}

func TestSQLiteStore_AppendAndListQueued(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	err := s.Append(ctx, []model.CallRecord{
		{ContactName: "Alice", TargetPhoneNumber: "+15551111111", Status: model.StatusQueued},
		{ContactName: "Bob", TargetPhoneNumber: "+15552222222", Status: model.StatusCompleted},
		{ContactName: "Carol", TargetPhoneNumber: "+15553333333", Status: model.StatusQueued},
	})
	require.NoError(t, err)

	queued, err := s.ListQueued(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 2)
	assert.Equal(t, "Alice", queued[0].ContactName)
	assert.Equal(t, "Carol", queued[1].ContactName)
	assert.Greater(t, queued[0].RowNumber, 0)
}

func TestSQLiteStore_UpdateRowRoundTrip(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []model.CallRecord{
		{ContactName: "Alice", TargetPhoneNumber: "+15551111111", Status: model.StatusQueued},
	}))

	queued, err := s.ListQueued(ctx)
	require.NoError(t, err)
	require.Len(t, queued, 1)

	rec := queued[0]
	rec.Status = model.StatusCalling
	rec.AttemptCount = 1
	rec.CorrelationID = "call-abc"
	rec.LastCalledAt = "2025-06-01 10:00:00"
	require.NoError(t, s.UpdateRow(ctx, rec))

	got, err := s.GetRow(ctx, rec.RowNumber)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCalling, got.Status)
	assert.Equal(t, 1, got.AttemptCount)
	assert.Equal(t, "call-abc", got.CorrelationID)
}

func TestSQLiteStore_UpdateRow_Missing(t *testing.T) {
	s := newTestSQLiteStore(t)

	err := s.UpdateRow(context.Background(), model.CallRecord{RowNumber: 42, Status: model.StatusQueued})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
}

func TestSQLiteStore_FindByCorrelationID(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []model.CallRecord{
		{ContactName: "Alice", Status: model.StatusCompleted, CorrelationID: "call-abc"},
	}))

	rec, outcome, err := s.FindByCorrelationID(ctx, "call-abc")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, outcome)
	assert.Equal(t, "Alice", rec.ContactName)

	_, outcome, err = s.FindByCorrelationID(ctx, "call-xyz")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)

	_, outcome, err = s.FindByCorrelationID(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
}

func TestSQLiteStore_StatusCounts(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, []model.CallRecord{
		{Status: model.StatusQueued},
		{Status: model.StatusQueued},
		{Status: model.StatusCompleted},
		{Status: model.StatusFailed},
	}))

	counts, err := s.StatusCounts(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, counts[model.StatusQueued])
	assert.Equal(t, 1, counts[model.StatusCompleted])
	assert.Equal(t, 1, counts[model.StatusFailed])
}

func TestSQLiteStore_Results(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	outcome, err := s.HasResult(ctx, "call-abc")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)

	err = s.AppendResult(ctx, "agent-1", model.ResultRow{
		Timestamp:     "2025-06-01 10:00:00",
		CorrelationID: "call-abc",
		Summary:       "Customer asked for a quote.",
	})
	require.NoError(t, err)

	outcome, err = s.HasResult(ctx, "call-abc")
	require.NoError(t, err)
	assert.Equal(t, OutcomeFound, outcome)

	// Empty correlation ids never count as duplicates.
	outcome, err = s.HasResult(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, OutcomeNotFound, outcome)
}

func TestSQLiteStore_MigrateIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	require.NoError(t, s.Migrate(context.Background()))
}
