package portal

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/use-agent/causelist/browser"
	"github.com/use-agent/causelist/captcha"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/store"
)

// Solver turns a saved CAPTCHA image into the text to enter.
type Solver interface {
	Solve(ctx context.Context, imagePath string) (*captcha.Result, error)
}

// CaptchaStage captures the CAPTCHA image, solves it and fills the answer
// into the form.
type CaptchaStage struct {
	Solver Solver
	Layout store.Layout
	Now    func() time.Time
}

// Run returns the answer that was entered. A missing image or input field is
// fatal for the court.
func (s *CaptchaStage) Run(ctx context.Context, page browser.Page) (*captcha.Result, error) {
	img, err := find(ctx, page, CaptchaImage)
	if err != nil {
		return nil, err
	}
	png, err := img.Screenshot(ctx)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeElementNotFound, "captcha image could not be captured", err)
	}

	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	path, err := s.Layout.WriteFile(store.KindCaptcha, filepath.Base(s.Layout.CaptchaPath(now())), png)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeInternal, "captcha image could not be saved", err)
	}
	slog.Debug("captcha captured", "path", path)

	res, err := s.Solver.Solve(ctx, path)
	if err != nil {
		return nil, err
	}

	input, err := find(ctx, page, CaptchaInput)
	if err != nil {
		return nil, err
	}
	if err := input.Fill(ctx, res.Text); err != nil {
		return nil, models.NewScrapeError(models.ErrCodeElementNotFound, "captcha answer could not be entered", err)
	}
	slog.Info("captcha entered", "text", res.Text, "manual", res.Manual)
	return res, nil
}
