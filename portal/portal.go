// Package portal drives the cause-list search form: dependent dropdowns,
// date and case type, CAPTCHA, submission and result classification, one
// court at a time over a single browser session.
package portal

import (
	"time"

	"github.com/use-agent/causelist/config"
)

// Timing bounds every wait in a run. Zero values make waits immediate,
// which tests rely on.
type Timing struct {
	// PollInterval and PollAttempts bound the court dropdown wait.
	PollInterval time.Duration
	PollAttempts int

	// ResultInterval and ResultAttempts bound the results table wait.
	ResultInterval time.Duration
	ResultAttempts int

	// ReturnInterval and ReturnAttempts bound the wait for the form after
	// following the back link.
	ReturnInterval time.Duration
	ReturnAttempts int

	// RecaptureDelay precedes the second read of a page that still looks
	// like the form.
	RecaptureDelay time.Duration

	// SettleDelay follows each form interaction.
	SettleDelay time.Duration
}

// DefaultTiming is 2s x 10 for the dropdown, 15s for results and 10s for
// the way back to the form.
func DefaultTiming() Timing {
	return Timing{
		PollInterval:   2 * time.Second,
		PollAttempts:   10,
		ResultInterval: 500 * time.Millisecond,
		ResultAttempts: 30,
		ReturnInterval: 500 * time.Millisecond,
		ReturnAttempts: 20,
		RecaptureDelay: 5 * time.Second,
		SettleDelay:    time.Second,
	}
}

// TimingFrom derives Timing from configuration.
func TimingFrom(cfg config.PortalConfig) Timing {
	t := DefaultTiming()
	t.PollInterval = cfg.PollInterval
	t.PollAttempts = cfg.PollAttempts
	t.RecaptureDelay = cfg.RecaptureDelay
	t.SettleDelay = cfg.SettleDelay
	if cfg.ResultTimeout > 0 {
		t.ResultAttempts = max(int(cfg.ResultTimeout/t.ResultInterval), 1)
	}
	return t
}
