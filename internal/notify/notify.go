// Package notify delivers best-effort notifications about unresolved fields.
// Delivery failures are logged and never returned to the caller.
package notify

import (
	"context"
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/config"
	"github.com/bertel/migration-tool/internal/resilience"
)

// Notifier is the notification sink.
type Notifier interface {
	Notify(ctx context.Context, payload map[string]any)
}

// Noop drops every notification.
type Noop struct{}

func (Noop) Notify(context.Context, map[string]any) {}

// New builds the notifier selected by cfg.Notify.Driver. An unconfigured
// driver yields Noop.
func New(ctx context.Context, cfg *config.Config) (Notifier, error) {
	timeout := time.Duration(cfg.Notify.TimeoutSecs) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	switch strings.ToLower(cfg.Notify.Driver) {
	case "", "none", "noop":
		return Noop{}, nil
	case "webhook":
		if cfg.Notify.WebhookURL == "" {
			zap.L().Warn("notify: webhook driver without url, notifications disabled")
			return Noop{}, nil
		}
		return NewWebhook(cfg.Notify.WebhookURL, resilience.NewPolicy("webhook", cfg.Resilience, timeout)), nil
	case "redis":
		if cfg.Notify.RedisURL == "" {
			zap.L().Warn("notify: redis driver without url, notifications disabled")
			return Noop{}, nil
		}
		return NewRedisStream(ctx, cfg.Notify.RedisURL, cfg.Notify.RedisStream, timeout)
	default:
		return nil, eris.Errorf("notify: unknown driver %q", cfg.Notify.Driver)
	}
}
