package queue

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/openvisit/visitor-portal/internal/model"
)

// WebhookSource is the slice of the webhook repository the dispatcher
// needs: the enabled endpoints for an event, and a sink for recording
// attempts.  *repository.WebhookRepo satisfies it.
type WebhookSource interface {
	ListEnabledForEvent(ctx context.Context, event string) ([]model.Webhook, error)
	RecordDelivery(ctx context.Context, d *model.WebhookDelivery) error
}

// Dispatcher fans a visit event out to every matching webhook.  Each
// endpoint gets up to MaxAttempts POSTs with a fixed backoff between
// attempts; every attempt is recorded so the dashboard can show the
// delivery history.  One slow or failing endpoint delays but never
// aborts delivery to the others.
type Dispatcher struct {
	Source      WebhookSource
	Client      *http.Client
	MaxAttempts int
	Backoff     time.Duration
}

// NewDispatcher builds a dispatcher with production defaults: three
// attempts, two second backoff, ten second request timeout.
func NewDispatcher(source WebhookSource) *Dispatcher {
	return &Dispatcher{
		Source:      source,
		Client:      &http.Client{Timeout: 10 * time.Second},
		MaxAttempts: 3,
		Backoff:     2 * time.Second,
	}
}

// DispatchEvent delivers ev to all enabled webhooks whose event filter
// matches.  The returned error covers only the webhook listing; an
// individual endpoint failing after all attempts is recorded and
// logged, not propagated.
func (d *Dispatcher) DispatchEvent(ctx context.Context, ev VisitEvent) error {
	hooks, err := d.Source.ListEnabledForEvent(ctx, ev.Event)
	if err != nil {
		return fmt.Errorf("list webhooks: %w", err)
	}
	if len(hooks) == 0 {
		return nil
	}
	body, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	for _, hook := range hooks {
		d.deliver(ctx, hook, ev.Event, body)
	}
	return nil
}

// deliver POSTs the payload to one webhook, retrying on transport
// errors and 5xx responses.  4xx responses are the endpoint's verdict
// and are not retried.
func (d *Dispatcher) deliver(ctx context.Context, hook model.Webhook, event string, body []byte) {
	for attempt := 1; attempt <= d.MaxAttempts; attempt++ {
		status, derr := d.post(ctx, hook, event, body)
		rec := &model.WebhookDelivery{
			WebhookID:  hook.ID,
			Event:      event,
			Attempt:    attempt,
			StatusCode: status,
		}
		if derr != nil {
			rec.Error = derr.Error()
		}
		if err := d.Source.RecordDelivery(ctx, rec); err != nil {
			log.Printf("webhook-dispatch: record delivery for hook %d failed: %v", hook.ID, err)
		}
		if derr == nil && status >= 200 && status < 300 {
			return
		}
		if derr == nil && status >= 400 && status < 500 {
			log.Printf("webhook-dispatch: hook %d rejected %s with %d; not retrying", hook.ID, event, status)
			return
		}
		if attempt < d.MaxAttempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(d.Backoff):
			}
		}
	}
	log.Printf("webhook-dispatch: hook %d exhausted %d attempts for %s", hook.ID, d.MaxAttempts, event)
}

func (d *Dispatcher) post(ctx context.Context, hook model.Webhook, event string, body []byte) (int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hook.URL, bytes.NewReader(body))
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Portal-Event", event)
	req.Header.Set("X-Portal-Signature", "sha256="+Sign(hook.Secret, body))
	resp, err := d.Client.Do(req)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()
	return resp.StatusCode, nil
}

// Sign computes the hex HMAC-SHA256 of body under the webhook secret.
// Receivers recompute it to authenticate deliveries.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
