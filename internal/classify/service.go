// Package classify routes canonical record fields to agents and extracts
// per-agent domain records from routed fragments. A deterministic rule set
// and a Claude-backed service implement the same Service contract.
package classify

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/bertel/migration-tool/internal/config"
	"github.com/bertel/migration-tool/internal/model"
	"github.com/bertel/migration-tool/internal/resilience"
	"github.com/bertel/migration-tool/pkg/anthropic"
)

// ErrUnsupportedShape is returned when TransformFragment is asked to fill a
// type it does not know for the given agent.
var ErrUnsupportedShape = eris.New("classify: unsupported transformation shape")

// Service assigns fields to agents and extracts domain records.
type Service interface {
	// ClassifyFields assigns each field to at most one agent. Unassigned
	// fields are returned as leftovers.
	ClassifyFields(ctx context.Context, fields map[string]any, descriptors []model.AgentDescriptor) (*model.RoutingDecision, error)

	// TransformFragment fills out, a pointer to the agent's
	// model.*Transformation, from the agent's routed fragment.
	TransformFragment(ctx context.Context, agent string, payload map[string]any, out any, snapshot map[string]any) error

	Name() string
}

// New builds the configured service. "auto" and "anthropic" use Claude when
// a client is available and fall back to the rule set on any error.
func New(cfg *config.Config, client anthropic.Client, guidance *Guidance) Service {
	rules := NewRuleBased()
	switch cfg.Classifier.Provider {
	case "rule":
		return rules
	case "anthropic", "auto", "":
		if client == nil {
			zap.L().Warn("classify: no anthropic key configured, using rule-based classification",
				zap.String("provider", cfg.Classifier.Provider))
			return rules
		}
		timeout := time.Duration(cfg.Classifier.TimeoutSecs) * time.Second
		svc := NewAnthropicService(client, cfg.Anthropic, guidance).
			WithPolicy(resilience.NewPolicy("anthropic", cfg.Resilience, timeout))
		return NewFallback(svc, rules)
	default:
		zap.L().Warn("classify: unknown provider, using rule-based classification",
			zap.String("provider", cfg.Classifier.Provider))
		return rules
	}
}

// Fallback retries every failed primary call with a secondary service.
type Fallback struct {
	primary   Service
	secondary Service
}

// NewFallback wraps primary with secondary.
func NewFallback(primary, secondary Service) *Fallback {
	return &Fallback{primary: primary, secondary: secondary}
}

func (f *Fallback) Name() string {
	return f.primary.Name() + "+" + f.secondary.Name()
}

func (f *Fallback) ClassifyFields(ctx context.Context, fields map[string]any, descriptors []model.AgentDescriptor) (*model.RoutingDecision, error) {
	decision, err := f.primary.ClassifyFields(ctx, fields, descriptors)
	if err == nil {
		return decision, nil
	}
	zap.L().Warn("classify: primary classification failed, falling back",
		zap.String("primary", f.primary.Name()),
		zap.Error(err),
	)
	return f.secondary.ClassifyFields(ctx, fields, descriptors)
}

func (f *Fallback) TransformFragment(ctx context.Context, agent string, payload map[string]any, out any, snapshot map[string]any) error {
	err := f.primary.TransformFragment(ctx, agent, payload, out, snapshot)
	if err == nil {
		return nil
	}
	zap.L().Warn("classify: primary transformation failed, falling back",
		zap.String("primary", f.primary.Name()),
		zap.String("agent", agent),
		zap.Error(err),
	)
	return f.secondary.TransformFragment(ctx, agent, payload, out, snapshot)
}
