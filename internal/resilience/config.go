package resilience

import (
	"context"
	"time"

	"github.com/bertel/migration-tool/internal/config"
)

// Policy bundles the per-call timeout, retry, and breaker applied around one
// external collaborator.
type Policy struct {
	Service string
	Timeout time.Duration
	Retry   RetryConfig
	Breaker *CircuitBreaker
}

// NewPolicy builds a Policy for service from configuration.
func NewPolicy(service string, cfg config.ResilienceConfig, timeout time.Duration) Policy {
	retry := DefaultRetryConfig()
	if cfg.MaxAttempts > 0 {
		retry.MaxAttempts = cfg.MaxAttempts
	}
	if cfg.InitialBackoffMs > 0 {
		retry.InitialBackoff = time.Duration(cfg.InitialBackoffMs) * time.Millisecond
	}
	if cfg.MaxBackoffMs > 0 {
		retry.MaxBackoff = time.Duration(cfg.MaxBackoffMs) * time.Millisecond
	}

	breaker := DefaultCircuitBreakerConfig()
	if cfg.FailureThreshold > 0 {
		breaker.FailureThreshold = cfg.FailureThreshold
	}
	if cfg.ResetTimeoutSecs > 0 {
		breaker.ResetTimeout = time.Duration(cfg.ResetTimeoutSecs) * time.Second
	}
	// Validation errors and constraint violations should not open the circuit.
	breaker.ShouldTrip = IsTransient

	return Policy{
		Service: service,
		Timeout: timeout,
		Retry:   retry,
		Breaker: NewCircuitBreaker(breaker),
	}
}

// Call runs fn under p: each attempt gets its own timeout, transient failures
// are retried, and the whole call is rejected while the breaker is open.
func Call[T any](ctx context.Context, p Policy, operation string, fn func(ctx context.Context) (T, error)) (T, error) {
	retry := p.Retry
	if retry.OnRetry == nil {
		retry.OnRetry = RetryLogger(p.Service, operation)
	}

	attempt := func(ctx context.Context) (T, error) {
		if p.Timeout <= 0 {
			return fn(ctx)
		}
		callCtx, cancel := context.WithTimeout(ctx, p.Timeout)
		defer cancel()
		return fn(callCtx)
	}

	if p.Breaker == nil {
		return DoVal(ctx, retry, attempt)
	}
	return ExecuteVal(ctx, p.Breaker, func(ctx context.Context) (T, error) {
		return DoVal(ctx, retry, attempt)
	})
}
