package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/resilience"
)

// Webhook posts each notification as JSON to a URL. Transient statuses are
// retried under the policy.
type Webhook struct {
	url    string
	client *http.Client
	policy resilience.Policy
}

// NewWebhook returns a webhook notifier posting to url.
func NewWebhook(url string, policy resilience.Policy) *Webhook {
	return &Webhook{url: url, client: &http.Client{}, policy: policy}
}

func (w *Webhook) Notify(ctx context.Context, payload map[string]any) {
	if err := w.send(ctx, payload); err != nil {
		zap.L().Error("notify: webhook delivery failed",
			zap.String("url", w.url),
			zap.Error(err),
		)
	}
}

func (w *Webhook) send(ctx context.Context, payload map[string]any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return eris.Wrap(err, "notify: marshal payload")
	}

	_, err = resilience.Call(ctx, w.policy, "notify", func(ctx context.Context) (struct{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(body))
		if err != nil {
			return struct{}{}, eris.Wrap(err, "notify: create webhook request")
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := w.client.Do(req)
		if err != nil {
			return struct{}{}, resilience.NewTransientError(eris.Wrap(err, "notify: webhook request"), 0)
		}
		defer resp.Body.Close() //nolint:errcheck
		_, _ = io.Copy(io.Discard, resp.Body)

		if resp.StatusCode >= 400 {
			err := eris.Errorf("notify: webhook returned status %d", resp.StatusCode)
			if resilience.IsTransientHTTPStatus(resp.StatusCode) {
				return struct{}{}, resilience.NewTransientError(err, resp.StatusCode)
			}
			return struct{}{}, err
		}
		return struct{}{}, nil
	})
	return err
}
