package browser

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
	"github.com/use-agent/causelist/locator"
	"github.com/use-agent/causelist/models"
	"github.com/use-agent/causelist/poll"
)

// Session is one rod browser page. It has a single owner for its lifetime.
type Session struct {
	browser *rod.Browser
	page    *rod.Page
	router  *rod.HijackRouter
	owned   bool
	nav     NavPolicy

	// load performs one page load; nil means navigateOnce.
	load func(ctx context.Context, url string) error

	closeOnce sync.Once
	closeErr  error
}

// Close stops request interception, closes the page and, for browsers the
// session launched itself, kills the browser. It is safe to call on a nil or
// partially-initialised session and more than once.
func (s *Session) Close() error {
	if s == nil {
		return nil
	}
	s.closeOnce.Do(func() {
		if s.router != nil {
			_ = s.router.Stop()
		}
		if s.page != nil {
			if err := s.page.Close(); err != nil {
				slog.Debug("close page", "error", err)
			}
		}
		if s.owned && s.browser != nil {
			s.closeErr = s.browser.Close()
		}
		slog.Info("browser session closed")
	})
	return s.closeErr
}

// Navigate loads url and waits for the load event. Transient failures are
// retried up to the policy's attempt bound with a fixed back-off; the last
// failure is returned as NAVIGATION_FAILED. A per-attempt deadline counts as
// a failed attempt; only ctx ending gives SCRAPE_TIMEOUT.
func (s *Session) Navigate(ctx context.Context, url string) error {
	attempts := max(s.nav.Attempts, 1)
	load := s.load
	if load == nil {
		load = s.navigateOnce
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err = load(ctx, url); err == nil {
			return nil
		}
		slog.Warn("navigation failed", "url", url, "attempt", attempt, "of", attempts, "error", err)

		if attempt < attempts && poll.Sleep(ctx, s.nav.Backoff) != nil {
			break
		}
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return categorizeError(ctxErr, models.ErrCodeNavigation, fmt.Sprintf("loading %s interrupted", url))
	}
	return models.NewScrapeError(models.ErrCodeNavigation,
		fmt.Sprintf("failed to load %s after %d attempts", url, attempts), err)
}

func (s *Session) navigateOnce(ctx context.Context, url string) error {
	if s.nav.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.nav.Timeout)
		defer cancel()
	}
	p := s.page.Context(ctx)
	if err := p.Navigate(url); err != nil {
		return err
	}
	return p.WaitLoad()
}

// Find resolves c against the current document without waiting.
func (s *Session) Find(ctx context.Context, c locator.Candidate) (Element, error) {
	p := s.page.Context(ctx)

	var (
		has bool
		el  *rod.Element
		err error
	)
	switch c.Kind {
	case locator.CSS:
		has, el, err = p.Has(c.Query)
	case locator.XPath:
		has, el, err = p.HasX(c.Query)
	case locator.Text:
		has, el, err = p.HasR(c.Query, c.Pattern)
	default:
		return nil, fmt.Errorf("unsupported locator kind %v", c.Kind)
	}
	if err != nil {
		return nil, err
	}
	if !has {
		return nil, locator.ErrNoMatch
	}
	return &element{el: el}, nil
}

// HTML returns the rendered document.
func (s *Session) HTML(ctx context.Context) (string, error) {
	html, err := s.page.Context(ctx).HTML()
	if err != nil {
		return "", categorizeError(err, models.ErrCodeInternal, "failed to extract page HTML")
	}
	return html, nil
}

// URL returns the current location, or "" when it cannot be read.
func (s *Session) URL(ctx context.Context) string {
	info, err := s.page.Context(ctx).Info()
	if err != nil {
		return ""
	}
	return info.URL
}

// PrintPDF loads html into a scratch tab of the same browser and prints it.
func (s *Session) PrintPDF(ctx context.Context, html string) ([]byte, error) {
	tab, err := s.browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, fmt.Errorf("create print tab: %w", err)
	}
	defer func() { _ = tab.Close() }()

	t := tab.Context(ctx)
	if err := t.SetDocumentContent(html); err != nil {
		return nil, fmt.Errorf("set document: %w", err)
	}
	if err := t.WaitLoad(); err != nil {
		slog.Debug("print tab did not report load", "error", err)
	}

	r, err := t.PDF(&proto.PagePrintToPDF{
		PrintBackground: true,
	})
	if err != nil {
		return nil, fmt.Errorf("print: %w", err)
	}
	return io.ReadAll(r)
}
