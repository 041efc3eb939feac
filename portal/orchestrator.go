package portal

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/use-agent/causelist/browser"
	"github.com/use-agent/causelist/config"
	"github.com/use-agent/causelist/domprint"
	"github.com/use-agent/causelist/metrics"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/poll"
	"github.com/use-agent/causelist/render"
	"github.com/use-agent/causelist/store"
)

// Orchestrator runs courts one after another over a single browser session.
// It is not safe for concurrent use; callers serialise runs.
type Orchestrator struct {
	Opener  browser.Opener
	Profile config.Profile
	Timing  Timing

	Form    *FormNavigator
	Captcha *CaptchaStage
	Search  *SearchExecutor

	Render  render.Generator // nil disables documents
	Layout  store.Layout
	History *store.History   // optional
	Metrics *metrics.Metrics // optional

	// DateWindow is the allowed distance in days from today.
	DateWindow int
	Now        func() time.Time
}

// New wires an orchestrator from its collaborators.
func New(opener browser.Opener, profile config.Profile, timing Timing, solver Solver, layout store.Layout) *Orchestrator {
	return &Orchestrator{
		Opener:  opener,
		Profile: profile,
		Timing:  timing,
		Form:    &FormNavigator{Profile: profile, Timing: timing},
		Captcha: &CaptchaStage{Solver: solver, Layout: layout},
		Search:  &SearchExecutor{Timing: timing},
		Layout:  layout,

		DateWindow: 30,
	}
}

func (o *Orchestrator) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// Run searches every criteria in order and returns exactly one outcome per
// criteria, in the same order. Per-court failures become Error outcomes.
// An error is returned only when no court could be attempted: invalid
// input, no browser, or the portal failing to load.
//
// The browser session is released exactly once on every path.
func (o *Orchestrator) Run(ctx context.Context, criteria []models.SearchCriteria) (outcomes []models.ScrapeOutcome, err error) {
	runID := uuid.NewString()
	log := slog.With("run", runID)
	defer func() { o.Metrics.Run(err) }()

	// ── 1. Validate before touching the browser ─────────────────────
	if len(criteria) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeInvalidInput, "no courts requested", nil)
	}
	now := o.now()
	for _, c := range criteria {
		if err := c.Validate(now, o.DateWindow); err != nil {
			return nil, err
		}
	}

	// ── 2. Open the session; released on every path below ──────────
	h, err := o.Opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			log.Warn("browser session close failed", "error", cerr)
		}
	}()

	// ── 3. Initial navigation is fatal ──────────────────────────────
	if err := h.Navigate(ctx, o.Profile.BaseURL); err != nil {
		return nil, err
	}

	// ── 4. Remember the form's structure for result disambiguation ──
	rules := Rules{
		NoCasePhrases: o.Profile.NoCasePhrases,
		FormMarkers:   o.Profile.FormMarkers,
		Threshold:     domprint.DefaultThreshold,
	}
	if html, err := h.HTML(ctx); err == nil {
		rules.FormPrint = domprint.Of(html)
	}

	// ── 5. One court at a time ──────────────────────────────────────
	outcomes = make([]models.ScrapeOutcome, 0, len(criteria))
	for i, c := range criteria {
		log.Info("processing court", "index", i+1, "of", len(criteria), "court", c.Court.Label, "value", c.Court.Value)
		outcomes = append(outcomes, o.processCourt(ctx, h, c, rules))

		if i < len(criteria)-1 {
			o.returnToForm(ctx, h)
		}
	}

	// ── 6. History (best-effort) ────────────────────────────────────
	if o.History != nil {
		if err := o.History.Record(ctx, runID, outcomes...); err != nil {
			log.Warn("recording history failed", "error", err)
		}
	}

	log.Info("run complete", "courts", len(outcomes))
	return outcomes, nil
}

// processCourt never fails: every error becomes an Error outcome.
func (o *Orchestrator) processCourt(ctx context.Context, page browser.Page, c models.SearchCriteria, rules Rules) models.ScrapeOutcome {
	start := time.Now()

	out, err := o.searchCourt(ctx, page, c, rules)
	if err != nil {
		slog.Warn("court failed", "court", c.Court.Label, "code", models.CodeOf(err), "error", err)
		out = models.ErrorOutcome(c, err)
	}

	o.Metrics.Outcome(out.Status, time.Since(start))
	if path, err := o.Layout.WriteOutcome(&out); err != nil {
		slog.Warn("writing outcome record failed", "court", c.Court.Label, "error", err)
	} else {
		slog.Debug("outcome recorded", "path", path)
	}
	return out
}

func (o *Orchestrator) searchCourt(ctx context.Context, page browser.Page, c models.SearchCriteria, rules Rules) (models.ScrapeOutcome, error) {
	if err := o.Form.Prepare(ctx, page, c); err != nil {
		return models.ScrapeOutcome{}, err
	}
	if _, err := o.Captcha.Run(ctx, page); err != nil {
		return models.ScrapeOutcome{}, err
	}

	v, err := o.Search.Run(ctx, page, rules)
	if err != nil {
		return models.ScrapeOutcome{}, err
	}

	out := models.ScrapeOutcome{
		Court:    c.Court.Label,
		CourtID:  c.Court.Value,
		Date:     c.DateString(),
		CaseType: c.CaseType,
		Status:   v.Status,
		Payload:  v.Payload,
		Info: &models.PageInfo{
			Timestamp: o.now(),
			URL:       page.URL(ctx),
			Title:     v.Page.Title,
			Tables:    v.Page.Tables,
		},
	}
	slog.Info("court classified", "court", c.Court.Label, "status", out.Status, "tables", v.Page.Tables)

	if out.Status == models.StatusSuccess && out.Payload != "" && o.Render != nil {
		path, err := o.Render.Generate(ctx, render.Document{
			HTML:       out.Payload,
			Name:       store.BaseName(c.Court.Label, c.Court.Value, c.DateString(), c.CaseType),
			CourtLabel: c.Court.Label,
			Date:       c.DateString(),
			Printer:    page,
		})
		if err != nil {
			slog.Warn("document unavailable, keeping raw result", "court", c.Court.Label, "error", err)
		} else {
			out.PDFPath = path
		}
	}
	return out, nil
}

// returnToForm follows the page's back link, or reloads the form when there
// is none or it does not lead back. Failures are left for the next court's
// preparation to report.
func (o *Orchestrator) returnToForm(ctx context.Context, page browser.Page) {
	if back, err := find(ctx, page, BackLink); err == nil {
		if err := back.Click(ctx); err == nil && o.formReady(ctx, page) {
			slog.Debug("returned to form via back link")
			return
		}
	}

	slog.Debug("reloading form", "url", o.Profile.BaseURL)
	if err := page.Navigate(ctx, o.Profile.BaseURL); err != nil {
		slog.Warn("could not return to the search form", "error", err)
	}
}

func (o *Orchestrator) formReady(ctx context.Context, page browser.Page) bool {
	ok, _ := poll.Until(ctx, o.Timing.ReturnInterval, max(o.Timing.ReturnAttempts, 1), func(ctx context.Context) bool {
		_, err := find(ctx, page, CourtSelect)
		return err == nil
	})
	return ok
}

// FetchCourts opens a session, selects the court complex and returns the
// court options without the placeholder.
func (o *Orchestrator) FetchCourts(ctx context.Context) ([]models.CourtOption, error) {
	h, err := o.Opener.Open(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := h.Close(); cerr != nil {
			slog.Warn("browser session close failed", "error", cerr)
		}
	}()

	if err := h.Navigate(ctx, o.Profile.BaseURL); err != nil {
		return nil, err
	}
	if err := o.Form.SelectComplex(ctx, h); err != nil {
		return nil, err
	}

	opts, ok := o.Form.WaitForCourts(ctx, h)
	courts := o.Form.CourtOptions(opts)
	if !ok || len(courts) == 0 {
		return nil, models.NewScrapeError(models.ErrCodeElementNotFound,
			fmt.Sprintf("court list never populated (%d options)", len(opts)), nil)
	}
	slog.Info("fetched courts", "count", len(courts))
	return courts, nil
}
