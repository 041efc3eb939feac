package portal

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/use-agent/causelist/browser"
	"github.com/use-agent/causelist/config"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/poll"
)

// FormNavigator brings the live form to the point where the CAPTCHA can be
// solved and the query submitted.
type FormNavigator struct {
	Profile config.Profile
	Timing  Timing
}

// Prepare re-asserts the court complex, waits for and selects the court,
// enters the date and picks the case type. The first failing step aborts
// preparation for this court.
func (n *FormNavigator) Prepare(ctx context.Context, page browser.Page, c models.SearchCriteria) error {
	if err := n.SelectComplex(ctx, page); err != nil {
		return err
	}
	n.WaitForCourts(ctx, page)

	if err := n.SelectCourt(ctx, page, c.Court); err != nil {
		return err
	}
	if err := n.EnterDate(ctx, page, c.DateString()); err != nil {
		return err
	}
	return n.SelectCaseType(ctx, page, c.CaseType)
}

// SelectComplex selects the configured court complex by its label, falling
// back to the first real option. A page without a complex dropdown is
// accepted as-is.
func (n *FormNavigator) SelectComplex(ctx context.Context, page browser.Page) error {
	el, err := find(ctx, page, ComplexSelect)
	if err != nil {
		if models.HasCode(err, models.ErrCodeTimeout) {
			return err
		}
		slog.Debug("no court complex dropdown, skipping")
		return nil
	}

	label := n.Profile.ComplexLabel
	if label != "" {
		if err := el.SelectText(ctx, label); err == nil {
			slog.Debug("selected court complex", "complex", label)
			return n.settle(ctx)
		}
		slog.Warn("court complex not offered, using first option", "complex", label)
	}

	if err := el.SelectIndex(ctx, 1); err != nil {
		return models.NewScrapeError(models.ErrCodeElementNotFound, "court complex could not be selected", err)
	}
	return n.settle(ctx)
}

// WaitForCourts polls the court dropdown until it offers more than its
// placeholder. Running out of attempts is only a warning; the last options
// seen are returned either way.
func (n *FormNavigator) WaitForCourts(ctx context.Context, page browser.Page) ([]models.CourtOption, bool) {
	var opts []models.CourtOption
	ok, attempts := poll.Until(ctx, n.Timing.PollInterval, n.Timing.PollAttempts, func(ctx context.Context) bool {
		el, err := find(ctx, page, CourtSelect)
		if err != nil {
			return false
		}
		o, err := el.Options(ctx)
		if err != nil {
			return false
		}
		opts = o
		return len(o) > 1
	})
	if !ok {
		slog.Warn("court dropdown did not populate, continuing", "attempts", attempts, "options", len(opts))
		return opts, false
	}
	slog.Debug("court dropdown populated", "attempts", attempts, "options", len(opts))
	return opts, true
}

// SelectCourt selects the court by its value.
func (n *FormNavigator) SelectCourt(ctx context.Context, page browser.Page, court models.CourtOption) error {
	el, err := find(ctx, page, CourtSelect)
	if err != nil {
		return err
	}
	if err := el.SelectValue(ctx, court.Value); err != nil {
		return models.NewScrapeError(models.ErrCodeElementNotFound,
			fmt.Sprintf("court %q is not offered", court.Value), err)
	}
	return n.settle(ctx)
}

// EnterDate writes date into the read-only date control and fires its
// change event.
func (n *FormNavigator) EnterDate(ctx context.Context, page browser.Page, date string) error {
	el, err := find(ctx, page, DateInput)
	if err != nil {
		return err
	}
	if err := el.SetValue(ctx, date); err != nil {
		return models.NewScrapeError(models.ErrCodeElementNotFound, "date could not be set", err)
	}
	return n.settle(ctx)
}

// SelectCaseType checks the radio for caseType unless it already is.
func (n *FormNavigator) SelectCaseType(ctx context.Context, page browser.Page, caseType models.CaseType) error {
	code, ok := n.Profile.CaseTypeCode(string(caseType))
	if !ok {
		return models.NewScrapeError(models.ErrCodeInvalidInput,
			fmt.Sprintf("no portal code for case type %q", caseType), nil)
	}
	chain, err := caseTypeChain(code)
	if err != nil {
		return models.NewScrapeError(models.ErrCodeInvalidInput, "invalid case type code", err)
	}

	el, err := find(ctx, page, chain)
	if err != nil {
		return err
	}
	if checked, err := el.Checked(ctx); err == nil && checked {
		return nil
	}
	if err := el.Click(ctx); err != nil {
		return models.NewScrapeError(models.ErrCodeElementNotFound, "case type could not be selected", err)
	}
	return n.settle(ctx)
}

// CourtOptions drops the placeholder entry from opts.
func (n *FormNavigator) CourtOptions(opts []models.CourtOption) []models.CourtOption {
	placeholder := strings.ToLower(strings.TrimSpace(n.Profile.CourtPlaceholder))
	out := make([]models.CourtOption, 0, len(opts))
	for _, o := range opts {
		if strings.TrimSpace(o.Value) == "" {
			continue
		}
		if placeholder != "" && strings.Contains(strings.ToLower(o.Label), placeholder) {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (n *FormNavigator) settle(ctx context.Context) error {
	if err := poll.Sleep(ctx, n.Timing.SettleDelay); err != nil {
		return models.NewScrapeError(models.ErrCodeTimeout, "interrupted", err)
	}
	return nil
}
