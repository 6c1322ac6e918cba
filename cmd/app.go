package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/agent"
	"github.com/bertel/migration-tool/internal/classify"
	"github.com/bertel/migration-tool/internal/config"
	"github.com/bertel/migration-tool/internal/coordinator"
	"github.com/bertel/migration-tool/internal/notify"
	"github.com/bertel/migration-tool/internal/store"
	"github.com/bertel/migration-tool/internal/telemetry"
	anthropicpkg "github.com/bertel/migration-tool/pkg/anthropic"
)

// appEnv holds the collaborators shared by the serve and ingest commands.
type appEnv struct {
	Backend     store.Backend
	Notifier    notify.Notifier
	Metrics     *telemetry.Metrics
	Coordinator *coordinator.Coordinator
}

// Close drains pending notifications and releases the backend.
func (a *appEnv) Close() {
	if a.Coordinator != nil {
		a.Coordinator.Wait()
	}
	if c, ok := a.Notifier.(interface{ Close() error }); ok {
		_ = c.Close()
	}
	if a.Backend != nil {
		_ = a.Backend.Close()
	}
}

// initApp validates cfg for mode, opens the backend, applies the schema,
// and builds the coordinator. Callers should defer env.Close().
func initApp(ctx context.Context, c *config.Config, mode string) (*appEnv, error) {
	if err := c.Validate(mode); err != nil {
		return nil, err
	}

	backend, err := store.Open(ctx, c)
	if err != nil {
		return nil, eris.Wrap(err, "open store")
	}
	if backend.Enabled() {
		if err := backend.Migrate(ctx); err != nil {
			_ = backend.Close()
			return nil, eris.Wrap(err, "migrate store")
		}
	}

	notifier, err := notify.New(ctx, c)
	if err != nil {
		_ = backend.Close()
		return nil, eris.Wrap(err, "init notifier")
	}

	var client anthropicpkg.Client
	if c.Anthropic.Key != "" {
		client = anthropicpkg.NewClient(c.Anthropic.Key)
	}
	guidance := classify.NewGuidance()
	service := classify.New(c, client, guidance)
	metrics := telemetry.NewMetrics()

	co := coordinator.New(coordinator.Options{
		Backend:               backend,
		Service:               service,
		Registry:              agent.NewRegistry(agent.Deps{Backend: backend, Service: service}),
		Notifier:              notifier,
		Guidance:              guidance,
		Events:                telemetry.NewEventLog(c.Telemetry.Retention),
		Metrics:               metrics,
		MaxConcurrentAgents:   c.Coordinator.MaxConcurrentAgents,
		CallTimeout:           time.Duration(c.Coordinator.CallTimeoutSecs) * time.Second,
		VerificationThreshold: c.Verification.Threshold,
	})

	zap.L().Info("coordinator ready",
		zap.String("classifier", service.Name()),
		zap.Bool("store_enabled", backend.Enabled()),
		zap.String("notify", c.Notify.Driver),
	)

	return &appEnv{
		Backend:     backend,
		Notifier:    notifier,
		Metrics:     metrics,
		Coordinator: co,
	}, nil
}
