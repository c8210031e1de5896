package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/outreach-cli/internal/campaign"
	"github.com/sells-group/outreach-cli/internal/ingest"
	"github.com/sells-group/outreach-cli/internal/store"
)

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the webhook server and campaign control API",
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate("serve"); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		env, err := newServeEnv(ctx)
		if err != nil {
			return err
		}
		defer env.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: newRouter(env, cfg.Webhook.Secret),
		}

		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			zap.L().Info("starting server", zap.Int("port", port))
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return eris.Wrap(err, "server listen")
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			zap.L().Info("shutting down server")
			if env.dispatcher.Running() {
				_ = env.dispatcher.Stop()
			}
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})

		return g.Wait()
	},
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "server port (default from config)")
	rootCmd.AddCommand(serveCmd)
}

// newRouter builds the HTTP surface: the inbound webhook, the campaign
// control API, and the health check.
func newRouter(env *env, webhookSecret string) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{"GET", "POST"},
		AllowedHeaders: []string{"Content-Type", "X-Webhook-Secret"},
	}))

	r.Post("/webhook", handleWebhook(env.ingest, webhookSecret))
	r.Post("/campaign/start", handleCampaignStart(env.dispatcher))
	r.Post("/campaign/stop", handleCampaignStop(env.dispatcher))
	r.Get("/campaign/status", handleCampaignStatus(env.dispatcher))
	r.Get("/health", handleHealth(env.campaignStore))

	return r
}

// requestLogger logs one line per request through the global zap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		zap.L().Info("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

const maxWebhookBody = 1 << 20 // 1 MiB

func handleWebhook(svc *ingest.Service, secret string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if secret != "" && r.Header.Get("X-Webhook-Secret") != secret {
			writeJSON(w, http.StatusUnauthorized, ingest.Ack{
				Status:  ingest.StatusError,
				Message: "invalid webhook secret",
			})
			return
		}

		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			writeJSON(w, http.StatusBadRequest, ingest.Ack{
				Status:  ingest.StatusError,
				Message: "unreadable request body",
			})
			return
		}

		ack, err := svc.Handle(r.Context(), body)
		if err != nil {
			zap.L().Error("webhook processing failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, ack)
			return
		}
		writeJSON(w, http.StatusOK, ack)
	}
}

func handleCampaignStart(d *campaign.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			TargetCount int `json:"target_count"`
		}
		if r.ContentLength > 0 {
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
				return
			}
		}

		switch err := d.Start(r.Context(), req.TargetCount); {
		case errors.Is(err, campaign.ErrAlreadyRunning):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "campaign already running"})
		case err != nil:
			zap.L().Error("campaign start failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to start campaign"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"status":       "started",
				"target_count": req.TargetCount,
			})
		}
	}
}

func handleCampaignStop(d *campaign.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch err := d.Stop(); {
		case errors.Is(err, campaign.ErrNotRunning):
			writeJSON(w, http.StatusConflict, map[string]string{"error": "no campaign running"})
		case err != nil:
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to stop campaign"})
		default:
			writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
		}
	}
}

func handleCampaignStatus(d *campaign.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		status, err := d.Status(r.Context())
		if err != nil {
			zap.L().Error("campaign status failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to read campaign status"})
			return
		}
		writeJSON(w, http.StatusOK, status)
	}
}

// handleHealth reports degraded, not down, when the store is unreachable: the
// process can still receive webhooks and retry store writes.
func handleHealth(cs store.CampaignStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]string{"status": "ok", "store": "ok"}
		if err := cs.Ping(r.Context()); err != nil {
			zap.L().Warn("store health check failed", zap.Error(err))
			resp["status"] = "degraded"
			resp["store"] = "unreachable"
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
