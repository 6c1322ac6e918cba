package agent

import (
	"context"
	"strings"
	"sync"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bertel/migration-tool/internal/normalize"
	"github.com/bertel/migration-tool/internal/store"
)

// Resolver looks up reference codes and creates them when absent. Results,
// including unresolved ones, are cached for the resolver's lifetime and
// concurrent requests for one key share a single backend round-trip, so a
// key is created at most once.
type Resolver struct {
	backend store.Backend
	group   singleflight.Group

	mu    sync.RWMutex
	cache map[string]string
}

// NewResolver returns an empty resolver over backend.
func NewResolver(backend store.Backend) *Resolver {
	return &Resolver{backend: backend, cache: make(map[string]string)}
}

// DisplayName derives a human-readable name from a normalized code:
// "carte_bancaire" becomes "Carte Bancaire".
func DisplayName(code string) string {
	return cases.Title(language.French).String(strings.ReplaceAll(code, "_", " "))
}

func (r *Resolver) cached(key string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.cache[key]
	return id, ok
}

func (r *Resolver) remember(key, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.cache[key] = id
}

// resolve returns the cached id for key or runs fetch once for all
// concurrent callers. The shared fetch is detached from the first caller's
// cancellation; each caller still stops waiting when its own ctx ends.
// Errors are not cached.
func (r *Resolver) resolve(ctx context.Context, key string, fetch func(context.Context) (string, error)) (string, error) {
	if id, ok := r.cached(key); ok {
		return id, nil
	}
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		if id, ok := r.cached(key); ok {
			return id, nil
		}
		id, err := fetch(shared)
		if err != nil {
			return "", err
		}
		r.remember(key, id)
		return id, nil
	})
	select {
	case <-ctx.Done():
		return "", eris.Wrapf(ctx.Err(), "resolver: %s", strings.ReplaceAll(key, "\x00", "/"))
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	}
}

// Ensure returns the id of code in domain, creating it when absent. An
// empty id with a nil error means the code could not be resolved.
func (r *Resolver) Ensure(ctx context.Context, domain, code string, opts store.CodeOptions) (string, error) {
	normalized := normalize.NormalizeCode(code)
	if normalized == "" {
		return "", nil
	}
	if opts.Name == "" {
		opts.Name = DisplayName(normalized)
	}
	return r.resolve(ctx, domain+"\x00"+normalized, func(ctx context.Context) (string, error) {
		id, err := r.backend.Lookup(ctx, store.CodeTable(domain), normalized)
		if err != nil || id != "" {
			return id, err
		}
		id, err = r.backend.EnsureCode(ctx, domain, normalized, opts)
		if err != nil {
			return "", err
		}
		if id != "" {
			zap.L().Debug("resolver: created reference code",
				zap.String("domain", domain),
				zap.String("code", normalized),
			)
		}
		return id, nil
	})
}

// Lookup returns the id of an existing code without creating it. Only hits
// are cached so a later Ensure can still create the code.
func (r *Resolver) Lookup(ctx context.Context, domain, code string) (string, error) {
	normalized := normalize.NormalizeCode(code)
	if normalized == "" {
		return "", nil
	}
	key := domain + "\x00" + normalized
	if id, ok := r.cached(key); ok {
		return id, nil
	}
	id, err := r.backend.Lookup(ctx, store.CodeTable(domain), normalized)
	if err != nil {
		return "", err
	}
	if id != "" {
		r.remember(key, id)
	}
	return id, nil
}

// EnsureAmenity resolves an amenity, creating it when absent.
func (r *Resolver) EnsureAmenity(ctx context.Context, code, name, familyCode string) (string, error) {
	normalized := normalize.NormalizeCode(code)
	if normalized == "" {
		return "", nil
	}
	if name == "" {
		name = DisplayName(normalized)
	}
	return r.resolve(ctx, "amenity\x00"+normalized, func(ctx context.Context) (string, error) {
		return r.backend.EnsureAmenity(ctx, normalized, name, familyCode)
	})
}

// EnsureLanguage resolves a language, creating it when absent.
func (r *Resolver) EnsureLanguage(ctx context.Context, code, name string) (string, error) {
	normalized := normalize.NormalizeCode(code)
	if normalized == "" {
		return "", nil
	}
	return r.resolve(ctx, "ref_language\x00"+normalized, func(ctx context.Context) (string, error) {
		return r.backend.EnsureLanguage(ctx, normalized, name)
	})
}
