package registry

import (
	"context"
	"slices"
	"sync"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/log"
	"github.com/LerianStudio/lib-gated/gated/opentelemetry/metrics"
)

// Authorizer answers authorization lookups. *Registry and View implement it.
type Authorizer interface {
	IsAuthorized(id gated.Identity) bool
}

// AuthorizerFunc adapts a function to Authorizer.
type AuthorizerFunc func(id gated.Identity) bool

// IsAuthorized calls f(id).
func (f AuthorizerFunc) IsAuthorized(id gated.Identity) bool {
	return f(id)
}

// Registry is the process-wide authorization store. The zero value is not usable;
// create one with New.
type Registry struct {
	mu         sync.RWMutex
	authorized map[gated.Identity]struct{}
	logger     log.Logger
	metrics    *metrics.MetricsFactory
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the registry logger.
func WithLogger(logger log.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithMetricsFactory enables the authorization_changes_total counter.
func WithMetricsFactory(factory *metrics.MetricsFactory) Option {
	return func(r *Registry) {
		r.metrics = factory
	}
}

// New creates an empty Registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		authorized: make(map[gated.Identity]struct{}),
		logger:     log.NewNop(),
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

// Grant marks id as authorized.
func (r *Registry) Grant(ctx context.Context, id gated.Identity) {
	r.mu.Lock()
	_, already := r.authorized[id]
	r.authorized[id] = struct{}{}
	r.mu.Unlock()

	r.recordChange(ctx, "grant", id, !already)
}

// Revoke marks id as unauthorized.
func (r *Registry) Revoke(ctx context.Context, id gated.Identity) {
	r.mu.Lock()
	_, present := r.authorized[id]
	delete(r.authorized, id)
	r.mu.Unlock()

	r.recordChange(ctx, "revoke", id, present)
}

// IsAuthorized reports whether id is currently authorized.
func (r *Registry) IsAuthorized(id gated.Identity) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.authorized[id]

	return ok
}

// Authorized returns the authorized identities in ascending order.
func (r *Registry) Authorized() []gated.Identity {
	r.mu.RLock()
	out := make([]gated.Identity, 0, len(r.authorized))

	for id := range r.authorized {
		out = append(out, id)
	}
	r.mu.RUnlock()

	slices.Sort(out)

	return out
}

// View is a lock-free Authorizer over registry state pinned by Hold.
type View struct {
	authorized map[gated.Identity]struct{}
}

// IsAuthorized reports whether id was authorized when the view was taken.
func (v View) IsAuthorized(id gated.Identity) bool {
	_, ok := v.authorized[id]
	return ok
}

// Hold pins the registry: Grant and Revoke block until release is called.
// Lookups through the returned View take no lock, so they are safe from the
// goroutine holding the pin. release is idempotent.
func (r *Registry) Hold() (View, func()) {
	r.mu.RLock()

	var once sync.Once

	return View{authorized: r.authorized}, func() {
		once.Do(r.mu.RUnlock)
	}
}

func (r *Registry) recordChange(ctx context.Context, action string, id gated.Identity, changed bool) {
	if !changed {
		r.logger.Log(ctx, log.LevelDebug, "authorization unchanged",
			log.String("action", action), log.Stringer("identity", id))

		return
	}

	r.logger.Log(ctx, log.LevelInfo, "authorization changed",
		log.String("action", action), log.Stringer("identity", id))

	if r.metrics == nil {
		return
	}

	if err := r.metrics.RecordAuthorizationChange(ctx, action); err != nil {
		r.logger.Log(ctx, log.LevelWarn, "failed to record authorization change", log.Err(err))
	}
}
