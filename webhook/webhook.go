package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-resty/resty/v2"
)

// EventCompleted is sent when a cause-list job finishes.
const EventCompleted = "causelist.completed"

// SignatureHeader carries "sha256=<hex>" of the request body.
const SignatureHeader = "X-Causelist-Signature"

// Event is the payload sent to webhook endpoints.
type Event struct {
	Type      string `json:"type"`
	JobID     string `json:"job_id"`
	Timestamp int64  `json:"timestamp"`
	Data      any    `json:"data"`
}

// Notifier delivers events to one endpoint.
type Notifier struct {
	URL    string
	Secret string

	// Delays between attempts of DeliverAsync; the first entry is usually 0.
	Delays []time.Duration

	client *resty.Client
}

// New returns a Notifier for url. An empty url yields nil, and a nil
// Notifier drops every event.
func New(url, secret string) *Notifier {
	if url == "" {
		return nil
	}
	return &Notifier{
		URL:    url,
		Secret: secret,
		Delays: []time.Duration{0, time.Second, 5 * time.Second, 30 * time.Second},
		client: resty.New().
			SetTimeout(10*time.Second).
			SetHeader("Content-Type", "application/json").
			SetHeader("User-Agent", "Causelist-Webhook/1.0"),
	}
}

// Sign returns the signature header value for body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// Deliver sends event once. The body is signed when a secret is set.
func (n *Notifier) Deliver(ctx context.Context, event *Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("webhook: marshal event: %w", err)
	}

	req := n.client.R().SetContext(ctx).SetBody(body)
	if n.Secret != "" {
		req.SetHeader(SignatureHeader, Sign(n.Secret, body))
	}

	resp, err := req.Post(n.URL)
	if err != nil {
		return fmt.Errorf("webhook: deliver: %w", err)
	}
	if resp.StatusCode() >= 400 {
		return fmt.Errorf("webhook: endpoint returned status %d", resp.StatusCode())
	}
	return nil
}

// DeliverAsync sends event in the background, retrying after each of
// Delays. The returned channel is closed when delivery ends either way.
func (n *Notifier) DeliverAsync(event *Event) <-chan struct{} {
	done := make(chan struct{})
	if n == nil {
		close(done)
		return done
	}

	go func() {
		defer close(done)
		for attempt, delay := range n.Delays {
			if delay > 0 {
				time.Sleep(delay)
			}
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			err := n.Deliver(ctx, event)
			cancel()
			if err == nil {
				slog.Info("webhook delivered",
					"url", n.URL,
					"event", event.Type,
					"job_id", event.JobID,
					"attempt", attempt+1,
				)
				return
			}
			slog.Warn("webhook delivery failed",
				"url", n.URL,
				"event", event.Type,
				"job_id", event.JobID,
				"attempt", attempt+1,
				"error", err,
			)
		}
		slog.Error("webhook delivery exhausted all retries",
			"url", n.URL,
			"event", event.Type,
			"job_id", event.JobID,
		)
	}()
	return done
}
