package portal

import (
	"context"
	"log/slog"

	"github.com/use-agent/causelist/browser"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/poll"
)

// SearchExecutor submits the prepared form and classifies what comes back.
type SearchExecutor struct {
	Timing Timing
}

// Run submits, waits (bounded, non-fatal) for a results table and
// classifies the page. A page that still looks like the input form is read
// once more after RecaptureDelay; the second reading is final.
func (e *SearchExecutor) Run(ctx context.Context, page browser.Page, rules Rules) (Verdict, error) {
	if err := e.Submit(ctx, page); err != nil {
		return Verdict{}, err
	}
	e.WaitForResults(ctx, page)

	v, err := e.capture(ctx, page, rules)
	if err != nil {
		return Verdict{}, err
	}
	if !v.FormPage {
		return v, nil
	}

	slog.Warn("captured the search form instead of results, re-capturing", "delay", e.Timing.RecaptureDelay)
	if err := poll.Sleep(ctx, e.Timing.RecaptureDelay); err != nil {
		return Verdict{}, models.NewScrapeError(models.ErrCodeTimeout, "interrupted before re-capture", err)
	}
	v, err = e.capture(ctx, page, rules)
	if err != nil {
		return Verdict{}, err
	}
	if v.FormPage {
		slog.Warn("result page still shows the search form; keeping no document")
	}
	return v, nil
}

// Submit clicks the first submit control found.
func (e *SearchExecutor) Submit(ctx context.Context, page browser.Page) error {
	btn, err := find(ctx, page, SubmitButton)
	if err != nil {
		return err
	}
	if err := btn.Click(ctx); err != nil {
		return models.NewScrapeError(models.ErrCodeElementNotFound, "search could not be submitted", err)
	}
	return nil
}

// WaitForResults polls for a results table. Not finding one is expected for
// some empty results and only logged.
func (e *SearchExecutor) WaitForResults(ctx context.Context, page browser.Page) bool {
	ok, attempts := poll.Until(ctx, e.Timing.ResultInterval, e.Timing.ResultAttempts, func(ctx context.Context) bool {
		_, err := find(ctx, page, ResultTable)
		return err == nil
	})
	if !ok {
		slog.Warn("no results table appeared", "attempts", attempts)
	}
	return ok
}

func (e *SearchExecutor) capture(ctx context.Context, page browser.Page, rules Rules) (Verdict, error) {
	html, err := page.HTML(ctx)
	if err != nil {
		return Verdict{}, err
	}
	if rules.URL == "" {
		rules.URL = page.URL(ctx)
	}
	return Classify(html, rules), nil
}
