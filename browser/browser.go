// Package browser owns the single browser automation handle a run works
// through. Stages talk to the live page only through the Page and Element
// interfaces, so they can be exercised against fakes.
package browser

import (
	"context"

	"github.com/use-agent/causelist/locator"
	"github.com/use-agent/causelist/models"
)

// Page is the live document a run drives.
type Page interface {
	// Navigate loads url and waits for the document to finish loading.
	Navigate(ctx context.Context, url string) error

	// Find resolves one candidate without waiting. It returns
	// locator.ErrNoMatch when nothing matches.
	Find(ctx context.Context, c locator.Candidate) (Element, error)

	// HTML returns the rendered document.
	HTML(ctx context.Context) (string, error)

	// URL returns the current document location.
	URL(ctx context.Context) string

	// PrintPDF renders html in a scratch tab and returns the PDF bytes.
	PrintPDF(ctx context.Context, html string) ([]byte, error)
}

// Element is a control on the live page.
type Element interface {
	Click(ctx context.Context) error

	// Fill clears the control and types text into it.
	Fill(ctx context.Context, text string) error

	// SetValue assigns value programmatically and dispatches a change
	// event. Used for read-only controls such as date pickers.
	SetValue(ctx context.Context, value string) error

	SelectValue(ctx context.Context, value string) error
	SelectText(ctx context.Context, text string) error
	SelectIndex(ctx context.Context, index int) error

	// Options lists a select element's options in document order.
	Options(ctx context.Context) ([]models.CourtOption, error)

	Checked(ctx context.Context) (bool, error)

	// Screenshot captures the element as PNG.
	Screenshot(ctx context.Context) ([]byte, error)
}

// Handle is an open session: a page plus the obligation to close it.
type Handle interface {
	Page
	Close() error
}

// Opener starts sessions.
type Opener interface {
	Open(ctx context.Context) (Handle, error)
}
