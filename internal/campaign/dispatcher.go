// Package campaign drives outbound call dispatch: it walks QUEUED records,
// places calls through the upstream calling API, and records per-record
// outcomes in the campaign store.
package campaign

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/outreach-cli/internal/model"
	"github.com/sells-group/outreach-cli/internal/normalize"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/vapi"
)

var (
	// ErrAlreadyRunning is returned by Start when a campaign is active.
	ErrAlreadyRunning = eris.New("campaign: already running")
	// ErrNotRunning is returned by Stop when no campaign is active.
	ErrNotRunning = eris.New("campaign: not running")
)

const timeLayout = "2006-01-02 15:04:05"

// Config controls batch sizing and pacing.
type Config struct {
	BatchSize     int
	BatchInterval time.Duration
	CallDelay     time.Duration

	PhoneNumberID string
	AssistantID   string
}

// DefaultConfig returns the dispatch settings used when none are configured.
func DefaultConfig() Config {
	return Config{
		BatchSize:     10,
		BatchInterval: 1 * time.Minute,
		CallDelay:     2 * time.Second,
	}
}

// Status is a point-in-time campaign snapshot.
type Status struct {
	Running       bool                     `json:"running"`
	Counts        map[model.CallStatus]int `json:"counts"`
	BatchSize     int                      `json:"batch_size"`
	BatchInterval string                   `json:"batch_interval"`
}

// Dispatcher runs one campaign at a time. The running flag and the schedule
// are guarded by mu; batch work runs outside the lock so Stop never waits on
// network I/O.
type Dispatcher struct {
	store   store.CampaignStore
	caller  vapi.Client
	cfg     Config
	limiter *rate.Limiter
	log     *zap.Logger
	now     func() time.Time

	mu        sync.Mutex
	running   bool
	remaining int // -1 means no target count
	cancel    context.CancelFunc
}

// New creates a Dispatcher. The caller places outbound calls; the store holds
// the campaign records.
func New(cs store.CampaignStore, caller vapi.Client, cfg Config) *Dispatcher {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultConfig().BatchSize
	}
	if cfg.BatchInterval <= 0 {
		cfg.BatchInterval = DefaultConfig().BatchInterval
	}
	if cfg.CallDelay <= 0 {
		cfg.CallDelay = DefaultConfig().CallDelay
	}
	return &Dispatcher{
		store:     cs,
		caller:    caller,
		cfg:       cfg,
		limiter:   rate.NewLimiter(rate.Every(cfg.CallDelay), 1),
		log:       zap.L().With(zap.String("component", "campaign.dispatcher")),
		now:       time.Now,
		remaining: -1,
	}
}

// Start begins a campaign. targetCount limits how many calls the campaign
// places in total; zero or negative means all queued records. The first batch
// runs immediately, then on every tick until the queue drains or Stop is
// called.
func (d *Dispatcher) Start(ctx context.Context, targetCount int) error {
	d.mu.Lock()
	if d.running {
		d.mu.Unlock()
		return ErrAlreadyRunning
	}

	queued, err := d.store.ListQueued(ctx)
	if err != nil {
		d.mu.Unlock()
		return eris.Wrap(err, "campaign: load queued records")
	}

	d.running = true
	d.remaining = -1
	if targetCount > 0 && targetCount < len(queued) {
		d.remaining = targetCount
	}

	scheduleCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	d.cancel = cancel
	d.mu.Unlock()

	d.log.Info("campaign started",
		zap.Int("queued", len(queued)),
		zap.Int("target_count", targetCount),
		zap.Duration("interval", d.cfg.BatchInterval),
	)

	go d.run(scheduleCtx)
	return nil
}

// Stop ends the campaign. It takes effect before the next scheduled batch;
// dispatches already in flight run to completion.
func (d *Dispatcher) Stop() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.running {
		return ErrNotRunning
	}
	d.stopLocked()
	d.log.Info("campaign stopped")
	return nil
}

// stopLocked flips the flag and cancels the schedule. Caller holds mu.
func (d *Dispatcher) stopLocked() {
	d.running = false
	if d.cancel != nil {
		d.cancel()
		d.cancel = nil
	}
}

// Running reports whether a campaign is active.
func (d *Dispatcher) Running() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.running
}

// Status returns the running flag plus per-status record counts.
func (d *Dispatcher) Status(ctx context.Context) (Status, error) {
	counts, err := d.store.StatusCounts(ctx)
	if err != nil {
		return Status{}, eris.Wrap(err, "campaign: status counts")
	}
	return Status{
		Running:       d.Running(),
		Counts:        counts,
		BatchSize:     d.cfg.BatchSize,
		BatchInterval: d.cfg.BatchInterval.String(),
	}, nil
}

// run is the schedule loop. One invocation at a time: the immediate batch and
// every tick execute sequentially on this goroutine.
func (d *Dispatcher) run(ctx context.Context) {
	if err := d.ProcessBatch(ctx); err != nil {
		d.log.Error("batch failed", zap.Error(err))
	}

	ticker := time.NewTicker(d.cfg.BatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := d.ProcessBatch(ctx); err != nil {
				d.log.Error("batch failed", zap.Error(err))
			}
		}
	}
}

// ProcessBatch dispatches up to BatchSize queued records. An empty queue ends
// the campaign; that is natural completion, not an error.
func (d *Dispatcher) ProcessBatch(ctx context.Context) error {
	d.mu.Lock()
	if !d.running {
		d.mu.Unlock()
		return nil
	}
	allowed := d.cfg.BatchSize
	if d.remaining >= 0 && d.remaining < allowed {
		allowed = d.remaining
	}
	d.mu.Unlock()

	queued, err := d.store.ListQueued(ctx)
	if err != nil {
		return eris.Wrap(err, "campaign: load queued records")
	}

	if len(queued) == 0 || allowed == 0 {
		d.mu.Lock()
		if d.running {
			d.stopLocked()
			d.log.Info("campaign complete", zap.Int("still_queued", len(queued)))
		}
		d.mu.Unlock()
		return nil
	}

	if len(queued) > allowed {
		queued = queued[:allowed]
	}

	for _, rec := range queued {
		if err := d.limiter.Wait(ctx); err != nil {
			return nil // schedule cancelled mid-batch pause
		}
		d.dispatch(ctx, rec)

		d.mu.Lock()
		if d.remaining > 0 {
			d.remaining--
		}
		d.mu.Unlock()
	}
	return nil
}

// dispatch places one call and records the outcome. Failures mark the record
// FAILED with a note; re-queueing is an explicit operator action.
func (d *Dispatcher) dispatch(ctx context.Context, rec model.CallRecord) {
	log := d.log.With(
		zap.Int("row", rec.RowNumber),
		zap.String("contact", rec.ContactName),
	)

	rec.Status = model.StatusCalling
	rec.AttemptCount++
	rec.LastCalledAt = d.now().Format(timeLayout)
	if err := d.store.UpdateRow(ctx, rec); err != nil {
		log.Error("mark calling", zap.Error(err))
		return
	}

	call, err := d.caller.CreateCall(ctx, vapi.CreateCallRequest{
		PhoneNumberID: d.cfg.PhoneNumberID,
		AssistantID:   d.cfg.AssistantID,
		Customer: vapi.Customer{
			Number: normalize.FormatDialNumber(rec.TargetPhoneNumber),
			Name:   rec.ContactName,
		},
		Metadata: map[string]string{
			"campaign_row": fmt.Sprintf("%d", rec.RowNumber),
		},
	})
	if err != nil {
		rec.Status = model.StatusFailed
		rec.Notes = fmt.Sprintf("dispatch failed: %s", eris.Cause(err).Error())
		log.Warn("call dispatch failed", zap.Error(err))
	} else {
		rec.Status = model.StatusCompleted
		rec.CorrelationID = call.ID
		log.Info("call dispatched", zap.String("call_id", call.ID))
	}

	if err := d.store.UpdateRow(ctx, rec); err != nil {
		log.Error("record outcome", zap.Error(err))
	}
}
