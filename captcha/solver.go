package captcha

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/poll"
	"golang.org/x/time/rate"
)

// Recognizer transcribes a CAPTCHA image. It may be slow and may fail
// transiently.
type Recognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// Prompter asks a human to read the CAPTCHA image at imagePath. It may block
// until an answer arrives; ctx is the only bound.
type Prompter interface {
	Prompt(ctx context.Context, imagePath string) (string, error)
}

// Attempt is one automated recognition try.
type Attempt struct {
	ImagePath string
	Text      string // cleaned; empty when the call failed
	Index     int
	Err       error
}

// Result is the answer to enter and how it was obtained.
type Result struct {
	Text     string
	Manual   bool
	Attempts []Attempt
}

// Attempt outcomes reported to OnAttempt.
const (
	OutcomeValid    = "valid"
	OutcomeRejected = "rejected"
	OutcomeError    = "error"
	OutcomeManual   = "manual"
)

// Solver runs Captured → Recognized → Validated | Rejected → retry or
// manual fallback.
type Solver struct {
	Recognizer Recognizer // nil goes straight to the prompter
	Prompter   Prompter   // nil makes exhaustion fatal

	Attempts    int
	RetryDelay  time.Duration // after a failed call
	SettleDelay time.Duration // after every call, before reading it

	// Limiter spaces recognition calls. Nil means no throttling.
	Limiter *rate.Limiter

	// Enhance, when set, preprocesses the image before recognition and
	// returns the path to use instead.
	Enhance func(path string) (string, error)

	// OnAttempt observes every attempt outcome.
	OnAttempt func(outcome string)
}

// NewThrottle returns a limiter allowing one call per interval.
func NewThrottle(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// Solve produces an answer for the image at imagePath. Automated attempts
// run first; if none yields a valid answer the prompter is asked exactly
// once and its answer is returned as-is.
func (s *Solver) Solve(ctx context.Context, imagePath string) (*Result, error) {
	res := &Result{}

	if s.Recognizer != nil {
		path := imagePath
		if s.Enhance != nil {
			if enhanced, err := s.Enhance(imagePath); err != nil {
				slog.Warn("captcha preprocessing failed, using original image", "error", err)
			} else {
				path = enhanced
			}
		}

		text, err := s.recognize(ctx, path, res)
		if err != nil {
			return nil, err
		}
		if text != "" {
			res.Text = text
			return res, nil
		}
		slog.Warn("captcha recognition exhausted", "attempts", len(res.Attempts), "image", imagePath)
	}

	if s.Prompter == nil {
		return nil, models.NewScrapeError(
			models.ErrCodeCaptchaUnresolved,
			fmt.Sprintf("no valid answer after %d attempts and no manual fallback", len(res.Attempts)),
			nil,
		)
	}

	slog.Info("waiting for manual captcha entry", "image", imagePath)
	s.observe(OutcomeManual)
	text, err := s.Prompter.Prompt(ctx, imagePath)
	if err != nil {
		return nil, models.NewScrapeError(models.ErrCodeCaptchaUnresolved, "manual captcha entry failed", err)
	}
	res.Text = strings.TrimSpace(text)
	res.Manual = true
	return res, nil
}

// recognize returns the first valid cleaned answer, or "" when every attempt
// failed or was rejected. Only context errors are returned.
func (s *Solver) recognize(ctx context.Context, path string, res *Result) (string, error) {
	attempts := max(s.Attempts, 1)
	for i := 1; i <= attempts; i++ {
		if s.Limiter != nil {
			if err := s.Limiter.Wait(ctx); err != nil {
				return "", ctxErr(ctx, err)
			}
		}

		raw, err := s.Recognizer.Recognize(ctx, path)
		if sleepErr := poll.Sleep(ctx, s.SettleDelay); sleepErr != nil {
			return "", ctxErr(ctx, sleepErr)
		}

		a := Attempt{ImagePath: path, Index: i, Err: err}
		if err != nil {
			res.Attempts = append(res.Attempts, a)
			s.observe(OutcomeError)
			slog.Warn("captcha recognition failed", "attempt", i, "of", attempts, "error", err)
			if i < attempts {
				if sleepErr := poll.Sleep(ctx, s.RetryDelay); sleepErr != nil {
					return "", ctxErr(ctx, sleepErr)
				}
			}
			continue
		}

		a.Text = Clean(raw)
		res.Attempts = append(res.Attempts, a)
		if Valid(a.Text) {
			s.observe(OutcomeValid)
			slog.Info("captcha recognized", "attempt", i, "text", a.Text)
			return a.Text, nil
		}
		s.observe(OutcomeRejected)
		slog.Warn("captcha answer rejected", "attempt", i, "of", attempts, "text", a.Text)
	}
	return "", nil
}

func (s *Solver) observe(outcome string) {
	if s.OnAttempt != nil {
		s.OnAttempt(outcome)
	}
}

func ctxErr(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		err = ctx.Err()
	}
	code := models.ErrCodeCaptchaUnresolved
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		code = models.ErrCodeTimeout
	}
	return models.NewScrapeError(code, "captcha recognition interrupted", err)
}
