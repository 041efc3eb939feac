package browser

import (
	"context"
	"errors"
	"fmt"

	"github.com/use-agent/causelist/models"
)

// categorizeError maps context errors to SCRAPE_TIMEOUT and everything else
// to code.
func categorizeError(err error, code, message string) *models.ScrapeError {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return models.NewScrapeError(models.ErrCodeTimeout, fmt.Sprintf("%s: timed out", message), err)
	}
	return models.NewScrapeError(code, message, err)
}
