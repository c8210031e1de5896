package campaign

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/vapi"
)

// fakeCampaignStore is an in-memory CampaignStore safe for concurrent use.
type fakeCampaignStore struct {
	mu      sync.Mutex
	rows    map[int]model.CallRecord
	updates []model.CallRecord
	listErr error
}

func newFakeCampaignStore(recs ...model.CallRecord) *fakeCampaignStore {
	s := &fakeCampaignStore{rows: make(map[int]model.CallRecord)}
	for _, r := range recs {
		s.rows[r.RowNumber] = r
	}
	return s
}

func (s *fakeCampaignStore) EnsureHeaders(ctx context.Context) error { return nil }

func (s *fakeCampaignStore) Append(ctx context.Context, records []model.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range records {
		s.rows[len(s.rows)+2] = r
	}
	return nil
}

func (s *fakeCampaignStore) ListQueued(ctx context.Context) ([]model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var queued []model.CallRecord
	for row := 2; row < len(s.rows)+2; row++ {
		if rec, ok := s.rows[row]; ok && rec.Status == model.StatusQueued {
			queued = append(queued, rec)
		}
	}
	return queued, nil
}

func (s *fakeCampaignStore) GetRow(ctx context.Context, rowNumber int) (model.CallRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rows[rowNumber], nil
}

func (s *fakeCampaignStore) UpdateRow(ctx context.Context, rec model.CallRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows[rec.RowNumber] = rec
	s.updates = append(s.updates, rec)
	return nil
}

func (s *fakeCampaignStore) FindByCorrelationID(ctx context.Context, correlationID string) (model.CallRecord, store.Outcome, error) {
	return model.CallRecord{}, store.OutcomeNotFound, nil
}

func (s *fakeCampaignStore) StatusCounts(ctx context.Context) (map[model.CallStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[model.CallStatus]int)
	for _, rec := range s.rows {
		counts[rec.Status]++
	}
	return counts, nil
}

func (s *fakeCampaignStore) Ping(ctx context.Context) error { return nil }
func (s *fakeCampaignStore) Close() error                   { return nil }

func (s *fakeCampaignStore) updatesFor(rowNumber int) []model.CallRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.CallRecord
	for _, rec := range s.updates {
		if rec.RowNumber == rowNumber {
			out = append(out, rec)
		}
	}
	return out
}

// fakeCaller returns canned call ids, or an error after the first n successes.
type fakeCaller struct {
	mu      sync.Mutex
	calls   int
	failAll bool
	block   chan struct{} // when set, CreateCall waits on it
}

func (c *fakeCaller) CreateCall(ctx context.Context, req vapi.CreateCallRequest) (*vapi.Call, error) {
	if c.block != nil {
		<-c.block
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.failAll {
		return nil, eris.New("vapi: create call: status 500")
	}
	return &vapi.Call{ID: "call-" + req.Customer.Name, Status: "queued"}, nil
}

func (c *fakeCaller) GetCall(ctx context.Context, id string) (*vapi.Call, error) {
	return &vapi.Call{ID: id}, nil
}

func (c *fakeCaller) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func queuedRecord(row int, name string) model.CallRecord {
	return model.CallRecord{
		RowNumber:         row,
		ContactName:       name,
		TargetPhoneNumber: "+1555000" + name,
		Status:            model.StatusQueued,
	}
}

func testConfig() Config {
	return Config{
		BatchSize:     10,
		BatchInterval: time.Hour, // ticks never fire during tests
		CallDelay:     time.Millisecond,
	}
}

// startBatch marks the dispatcher running without launching the schedule
// goroutine, so ProcessBatch can be driven directly.
func startBatch(d *Dispatcher) *bool {
	cancelled := new(bool)
	d.mu.Lock()
	d.running = true
	d.cancel = func() { *cancelled = true }
	d.mu.Unlock()
	return cancelled
}

func TestProcessBatch_DispatchesQueuedRecords(t *testing.T) {
	fake := newFakeCampaignStore(queuedRecord(2, "alice"), queuedRecord(3, "bob"))
	caller := &fakeCaller{}
	d := New(fake, caller, testConfig())
	startBatch(d)

	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.Equal(t, 2, caller.callCount())

	// Each record gets two writes: CALLING before the request, the outcome after.
	updates := fake.updatesFor(2)
	require.Len(t, updates, 2)
	assert.Equal(t, model.StatusCalling, updates[0].Status)
	assert.Equal(t, 1, updates[0].AttemptCount)
	assert.NotEmpty(t, updates[0].LastCalledAt)
	assert.Equal(t, model.StatusCompleted, updates[1].Status)
	assert.Equal(t, "call-alice", updates[1].CorrelationID)
}

func TestProcessBatch_FailureMarksFailedWithNote(t *testing.T) {
	fake := newFakeCampaignStore(queuedRecord(2, "alice"))
	caller := &fakeCaller{failAll: true}
	d := New(fake, caller, testConfig())
	startBatch(d)

	require.NoError(t, d.ProcessBatch(context.Background()))

	updates := fake.updatesFor(2)
	require.Len(t, updates, 2)
	assert.Equal(t, model.StatusFailed, updates[1].Status)
	assert.Contains(t, updates[1].Notes, "dispatch failed")
	assert.Equal(t, 1, updates[1].AttemptCount)
	assert.Empty(t, updates[1].CorrelationID)

	// Failures are not retried: a second batch finds nothing queued.
	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.Equal(t, 1, caller.callCount())
}

func TestProcessBatch_EmptyQueueStopsCampaign(t *testing.T) {
	fake := newFakeCampaignStore()
	d := New(fake, &fakeCaller{}, testConfig())
	cancelled := startBatch(d)

	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.False(t, d.Running())
	assert.True(t, *cancelled)
}

func TestProcessBatch_NoOpWhenNotRunning(t *testing.T) {
	fake := newFakeCampaignStore(queuedRecord(2, "alice"))
	caller := &fakeCaller{}
	d := New(fake, caller, testConfig())

	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.Zero(t, caller.callCount())
	assert.Empty(t, fake.updatesFor(2))
}

func TestProcessBatch_RespectsBatchSize(t *testing.T) {
	fake := newFakeCampaignStore(
		queuedRecord(2, "alice"), queuedRecord(3, "bob"), queuedRecord(4, "carol"))
	caller := &fakeCaller{}
	cfg := testConfig()
	cfg.BatchSize = 2
	d := New(fake, caller, cfg)
	startBatch(d)

	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.Equal(t, 2, caller.callCount())
	assert.Empty(t, fake.updatesFor(4))
}

func TestProcessBatch_TargetCountLimitsTotalCalls(t *testing.T) {
	fake := newFakeCampaignStore(
		queuedRecord(2, "alice"), queuedRecord(3, "bob"), queuedRecord(4, "carol"))
	caller := &fakeCaller{}
	d := New(fake, caller, testConfig())
	cancelled := startBatch(d)
	d.mu.Lock()
	d.remaining = 2
	d.mu.Unlock()

	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.Equal(t, 2, caller.callCount())

	// The target is exhausted, so the next batch ends the campaign.
	require.NoError(t, d.ProcessBatch(context.Background()))
	assert.False(t, d.Running())
	assert.True(t, *cancelled)
	assert.Equal(t, 2, caller.callCount())
}

func TestStartStop(t *testing.T) {
	fake := newFakeCampaignStore(queuedRecord(2, "alice"))
	caller := &fakeCaller{block: make(chan struct{})}
	d := New(fake, caller, testConfig())

	require.NoError(t, d.Start(context.Background(), 0))
	assert.True(t, d.Running())

	err := d.Start(context.Background(), 0)
	assert.ErrorIs(t, err, ErrAlreadyRunning)

	require.NoError(t, d.Stop())
	assert.False(t, d.Running())
	assert.ErrorIs(t, d.Stop(), ErrNotRunning)

	close(caller.block) // let the in-flight dispatch finish
}

func TestStatus(t *testing.T) {
	fake := newFakeCampaignStore(
		queuedRecord(2, "alice"),
		model.CallRecord{RowNumber: 3, Status: model.StatusCompleted},
	)
	d := New(fake, &fakeCaller{}, testConfig())

	status, err := d.Status(context.Background())
	require.NoError(t, err)
	assert.False(t, status.Running)
	assert.Equal(t, 1, status.Counts[model.StatusQueued])
	assert.Equal(t, 1, status.Counts[model.StatusCompleted])
	assert.Equal(t, 10, status.BatchSize)
}
