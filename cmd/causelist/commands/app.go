package commands

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/use-agent/causelist/browser"
	"github.com/use-agent/causelist/captcha"
	"github.com/use-agent/causelist/extract"
	"github.com/use-agent/causelist/metrics"
	"github.com/use-agent/causelist/portal"
	"github.com/use-agent/causelist/render"
	"github.com/use-agent/causelist/store"
)

// app is the wired orchestrator plus what must be released after it.
type app struct {
	orch    *portal.Orchestrator
	history *store.History
	metrics *metrics.Metrics
}

func (a *app) Close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			slog.Warn("closing history failed", "error", err)
		}
	}
}

// newApp wires config → launcher → solver → orchestrator. prompter may be nil
// to disable manual CAPTCHA entry.
func newApp(prompter captcha.Prompter) (*app, error) {
	// ── 1. Output layout ────────────────────────────────────────────
	layout := store.Layout{Root: cfg.Output.Root}
	if err := layout.EnsureDirs(); err != nil {
		return nil, err
	}

	// ── 2. Browser ──────────────────────────────────────────────────
	launcher := browser.NewLauncher(cfg.Browser, cfg.Portal, profile.Headers)

	// ── 3. CAPTCHA solver ───────────────────────────────────────────
	m := metrics.New()
	solver := &captcha.Solver{
		Prompter:    prompter,
		Attempts:    cfg.Captcha.Attempts,
		RetryDelay:  cfg.Captcha.RetryDelay,
		SettleDelay: cfg.Captcha.SettleDelay,
		Limiter:     captcha.NewThrottle(cfg.Captcha.Throttle),
		OnAttempt:   m.CaptchaAttempt,
	}
	if cfg.Captcha.APIKey != "" {
		solver.Recognizer = captcha.NewOpenAIRecognizer(cfg.Captcha.BaseURL, cfg.Captcha.APIKey, cfg.Captcha.Model, cfg.Captcha.Timeout)
	} else {
		slog.Warn("no recognition API key configured, every captcha needs a human")
	}
	if cfg.Captcha.Preprocess {
		solver.Enhance = captcha.Enhance
	}
	if solver.Recognizer == nil && prompter == nil {
		return nil, fmt.Errorf("captcha: neither recognition nor manual entry is configured")
	}

	// ── 4. Orchestrator ─────────────────────────────────────────────
	timing := portal.TimingFrom(cfg.Portal)
	orch := portal.New(launcher, profile, timing, solver, layout)
	orch.DateWindow = cfg.Portal.DateWindowDays
	orch.Metrics = m
	orch.Render = render.Chain{
		render.PDF{Layout: layout},
		render.Markdown{Layout: layout, Converter: extract.NewMarkdownConverter(), Domain: domainOf(profile.BaseURL)},
	}

	a := &app{orch: orch, metrics: m}

	// ── 5. Optional history ─────────────────────────────────────────
	if cfg.Output.HistoryDB != "" {
		h, err := store.OpenHistory(cfg.Output.HistoryDB)
		if err != nil {
			return nil, err
		}
		orch.History = h
		a.history = h
	}
	return a, nil
}

func domainOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
