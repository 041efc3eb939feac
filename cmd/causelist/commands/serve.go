package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/use-agent/causelist/api"
	"github.com/use-agent/causelist/api/handler"
	"github.com/use-agent/causelist/browser"
	"github.com/use-agent/causelist/cache"
	"github.com/use-agent/causelist/captcha"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/webhook"
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves the HTTP API; runs are queued and executed one at a time.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		slog.Info("causelist starting",
			"host", cfg.Server.Host,
			"port", cfg.Server.Port,
			"mode", cfg.Server.Mode,
			"browser", cfg.Browser.Engine,
		)

		// ── 1. Orchestrator with HTTP-driven manual CAPTCHA entry ──────
		var prompter *captcha.ChannelPrompter
		var p captcha.Prompter
		if cfg.Captcha.Manual != "none" {
			prompter = captcha.NewChannelPrompter()
			p = prompter
		}
		a, err := newApp(p)
		if err != nil {
			return err
		}
		defer a.Close()

		// ── 2. Queue, cache, webhook ────────────────────────────────────
		q := handler.NewQueue(a.orch, webhook.New(cfg.Webhook.URL, cfg.Webhook.Secret), 16)
		q.Start(ctx)

		courts := cache.New(16, cfg.Cache.CourtsTTL)
		defer courts.Close()

		// ── 3. Router ───────────────────────────────────────────────────
		router := api.NewRouter(ctx, api.Deps{
			Config:   cfg,
			Queue:    q,
			Courts:   courts,
			CacheKey: cache.Key(profile.BaseURL, profile.ComplexLabel),
			Prompter: prompter,
			History:  a.history,
			Metrics:  a.metrics,
			Probe:    portalProbe(profile.BaseURL, cfg.Browser.Proxy),
			Started:  time.Now(),
		})

		// ── 4. HTTP server with graceful shutdown ───────────────────────
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		srv := &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
		}

		errc := make(chan error, 1)
		go func() {
			slog.Info("HTTP server listening", "addr", addr)
			errc <- srv.ListenAndServe()
		}()

		select {
		case err := <-errc:
			if !errors.Is(err, http.ErrServerClosed) {
				return err
			}
			return nil
		case <-ctx.Done():
			slog.Info("shutdown signal received")
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("HTTP server forced shutdown", "error", err)
		} else {
			slog.Info("HTTP server drained gracefully")
		}
		slog.Info("causelist stopped")
		return nil
	},
}

func portalProbe(url, proxy string) handler.ProbeFunc {
	return func(ctx context.Context) (*models.PortalProbe, error) {
		res, err := browser.Probe(ctx, url, proxy)
		if err != nil {
			return nil, err
		}
		return &models.PortalProbe{StatusCode: res.StatusCode, Title: res.Title, LatencyMS: res.LatencyMS}, nil
	}
}
