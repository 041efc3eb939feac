package models

import (
	"errors"
	"fmt"
)

// Error codes used in outcome records, API responses and internal error handling.
const (
	// ErrCodeEnvironment means no browser automation engine could be started.
	// Fatal to the whole run.
	ErrCodeEnvironment = "ENVIRONMENT_ERROR"

	// ErrCodeNavigation means a page failed to load after bounded retries.
	ErrCodeNavigation = "NAVIGATION_FAILED"

	// ErrCodeElementNotFound means no candidate locator matched a required control.
	ErrCodeElementNotFound = "ELEMENT_NOT_FOUND"

	// ErrCodeCaptchaUnresolved means automated recognition was exhausted.
	ErrCodeCaptchaUnresolved = "CAPTCHA_UNRESOLVED"

	// ErrCodeAmbiguousResult means the result page could not be classified.
	ErrCodeAmbiguousResult = "AMBIGUOUS_RESULT"

	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeTimeout      = "SCRAPE_TIMEOUT"
	ErrCodeBusy         = "BUSY"
	ErrCodeRateLimited  = "RATE_LIMITED"
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeInternal     = "INTERNAL_ERROR"
)

// ErrorDetail is the structured error in API responses.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ScrapeError is the internal error type carrying an error code.
// It implements the error interface and supports error wrapping via Unwrap.
type ScrapeError struct {
	Code    string
	Message string
	Err     error // wrapped original error
}

func (e *ScrapeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *ScrapeError) Unwrap() error {
	return e.Err
}

// NewScrapeError creates a new ScrapeError.
func NewScrapeError(code, message string, err error) *ScrapeError {
	return &ScrapeError{Code: code, Message: message, Err: err}
}

// ToDetail converts an internal error to an API-facing ErrorDetail.
func (e *ScrapeError) ToDetail() *ErrorDetail {
	return &ErrorDetail{Code: e.Code, Message: e.Message}
}

// HasCode reports whether any ScrapeError in err's chain carries code.
func HasCode(err error, code string) bool {
	var se *ScrapeError
	for err != nil {
		if !errors.As(err, &se) {
			return false
		}
		if se.Code == code {
			return true
		}
		err = se.Err
	}
	return false
}

// CodeOf returns the code of the outermost ScrapeError in err's chain,
// or ErrCodeInternal when there is none.
func CodeOf(err error) string {
	var se *ScrapeError
	if errors.As(err, &se) {
		return se.Code
	}
	return ErrCodeInternal
}
