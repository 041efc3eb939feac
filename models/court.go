package models

import (
	"fmt"
	"strings"
	"time"
)

// DateLayout is the portal's date format (MM/DD/YYYY).
const DateLayout = "01/02/2006"

// CourtOption is one entry of the portal's dependent court dropdown.
// Value is the portal's opaque id and the identity of the option; Label is
// display text only and may repeat or be truncated.
type CourtOption struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// CaseType selects between the two cause-list kinds the portal publishes.
type CaseType string

const (
	CaseTypeCivil    CaseType = "civil"
	CaseTypeCriminal CaseType = "criminal"
)

// ParseCaseType accepts "civil" or "criminal" in any case.
func ParseCaseType(s string) (CaseType, error) {
	switch CaseType(strings.ToLower(strings.TrimSpace(s))) {
	case CaseTypeCivil:
		return CaseTypeCivil, nil
	case CaseTypeCriminal:
		return CaseTypeCriminal, nil
	}
	return "", NewScrapeError(ErrCodeInvalidInput, fmt.Sprintf("unknown case type %q", s), nil)
}

// ParseDate parses a MM/DD/YYYY date.
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(DateLayout, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, NewScrapeError(ErrCodeInvalidInput, fmt.Sprintf("date %q is not MM/DD/YYYY", s), err)
	}
	return d, nil
}

// SearchCriteria is one court/date/case-type query.
type SearchCriteria struct {
	Court    CourtOption
	Date     time.Time
	CaseType CaseType
}

// DateString renders the criteria date in the portal's format.
func (c SearchCriteria) DateString() string {
	return c.Date.Format(DateLayout)
}

// Validate checks the criteria before any navigation happens. The date must
// fall within window days of now (calendar days, inclusive).
func (c SearchCriteria) Validate(now time.Time, window int) error {
	if strings.TrimSpace(c.Court.Value) == "" {
		return NewScrapeError(ErrCodeInvalidInput, "court value is required", nil)
	}
	if c.CaseType != CaseTypeCivil && c.CaseType != CaseTypeCriminal {
		return NewScrapeError(ErrCodeInvalidInput, fmt.Sprintf("unknown case type %q", c.CaseType), nil)
	}
	if c.Date.IsZero() {
		return NewScrapeError(ErrCodeInvalidInput, "date is required", nil)
	}
	today := truncateDay(now)
	day := truncateDay(c.Date)
	lo := today.AddDate(0, 0, -window)
	hi := today.AddDate(0, 0, window)
	if day.Before(lo) || day.After(hi) {
		return NewScrapeError(ErrCodeInvalidInput,
			fmt.Sprintf("date %s is outside the %d-day window around %s",
				c.DateString(), window, today.Format(DateLayout)), nil)
	}
	return nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
