package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/outreach-cli/internal/campaign"
	"github.com/sells-group/outreach-cli/internal/ingest"
	"github.com/sells-group/outreach-cli/internal/phone"
	"github.com/sells-group/outreach-cli/internal/store"
	"github.com/sells-group/outreach-cli/pkg/sheets"
	"github.com/sells-group/outreach-cli/pkg/vapi"
)

// env holds the wired application components for one command invocation.
type env struct {
	campaignStore store.CampaignStore
	resultStore   store.ResultStore
	migrator      store.Migrator // nil for the sheets backend
	caller        vapi.Client
	dispatcher    *campaign.Dispatcher
	ingest        *ingest.Service
}

// newStoreEnv wires just the stores, enough for migrate/status/enqueue.
func newStoreEnv(ctx context.Context) (*env, error) {
	e := &env{}

	switch cfg.Store.Driver {
	case "sheets":
		client := sheets.NewClient(cfg.Sheets.Token, cfg.Sheets.SpreadsheetID,
			sheets.WithBaseURL(cfg.Sheets.BaseURL))
		e.campaignStore = store.NewSheetsCampaignStore(client, cfg.Sheets.CampaignTab)
		e.resultStore = store.NewSheetsResultStore(client, cfg.Sheets.ResultsTab, cfg.Sheets.AgentTabs)

	case "sqlite":
		s, err := store.NewSQLite(cfg.Store.SQLitePath)
		if err != nil {
			return nil, err
		}
		e.campaignStore = s
		e.resultStore = s
		e.migrator = s

	case "postgres":
		s, err := store.NewPostgres(ctx, cfg.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		e.campaignStore = s
		e.resultStore = s
		e.migrator = s

	default:
		return nil, eris.Errorf("unknown store driver %q", cfg.Store.Driver)
	}

	zap.L().Info("store ready", zap.String("driver", cfg.Store.Driver))
	return e, nil
}

// newServeEnv wires the full serving stack on top of the stores.
func newServeEnv(ctx context.Context) (*env, error) {
	e, err := newStoreEnv(ctx)
	if err != nil {
		return nil, err
	}

	e.caller = vapi.NewClient(cfg.Vapi.Key, vapi.WithBaseURL(cfg.Vapi.BaseURL))

	e.dispatcher = campaign.New(e.campaignStore, e.caller, campaign.Config{
		BatchSize:     cfg.Campaign.BatchSize,
		BatchInterval: time.Duration(cfg.Campaign.BatchIntervalSecs) * time.Second,
		CallDelay:     time.Duration(cfg.Campaign.CallDelaySecs) * time.Second,
		PhoneNumberID: cfg.Vapi.PhoneNumberID,
		AssistantID:   cfg.Vapi.AssistantID,
	})

	cache := phone.NewMemoryCache(time.Duration(cfg.Webhook.PhoneCacheTTLHours) * time.Hour)
	// The secondary call-detail lookup only runs when a Vapi credential is
	// configured.
	var fetcher phone.CallFetcher
	if cfg.Vapi.Key != "" {
		fetcher = e.caller
	}
	resolver := phone.NewResolver(cache, fetcher)

	e.ingest = ingest.New(e.resultStore, e.campaignStore, resolver)
	return e, nil
}

// Close releases store connections. Sheets stores close to a no-op.
func (e *env) Close() {
	if e.campaignStore != nil {
		if err := e.campaignStore.Close(); err != nil {
			zap.L().Warn("close campaign store", zap.Error(err))
		}
	}
	// The database backends share one handle between both stores.
	if e.resultStore != nil && any(e.resultStore) != any(e.campaignStore) {
		if err := e.resultStore.Close(); err != nil {
			zap.L().Warn("close result store", zap.Error(err))
		}
	}
}
