package reserve

import (
	"context"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/circuitbreaker"
	"github.com/shopspring/decimal"
	"github.com/sony/gobreaker"
)

// rejection carries a definitive upstream answer through the breaker as a
// successful call so it does not count towards tripping.
type rejection struct {
	err error
}

type breakerSource struct {
	src     Source
	manager circuitbreaker.Manager
	name    string
}

type breakerBalancer struct {
	breakerSource
	balancer Balancer
}

// WithCircuitBreaker guards src with the named breaker of manager, created
// with config when absent. While the breaker is open, calls fail fast with
// ErrUpstreamUnavailable. Rejections (see IsRejection) do not count as
// failures. The result implements Balancer when src does.
func WithCircuitBreaker(src Source, manager circuitbreaker.Manager, name string, config circuitbreaker.Config) Source {
	manager.GetOrCreate(name, config)

	guarded := breakerSource{src: src, manager: manager, name: name}

	if b, ok := src.(Balancer); ok {
		return &breakerBalancer{breakerSource: guarded, balancer: b}
	}

	return &guarded
}

func (s *breakerSource) Pull(ctx context.Context, from gated.Identity, amount decimal.Decimal) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.src.Pull(ctx, from, amount)
	})

	return err
}

func (s *breakerSource) Push(ctx context.Context, to gated.Identity, amount decimal.Decimal) error {
	_, err := s.execute(func() (any, error) {
		return nil, s.src.Push(ctx, to, amount)
	})

	return err
}

func (s *breakerSource) Decimals() int32 {
	return s.src.Decimals()
}

func (s *breakerBalancer) ReserveBalance(ctx context.Context) (decimal.Decimal, error) {
	result, err := s.execute(func() (any, error) {
		return s.balancer.ReserveBalance(ctx)
	})
	if err != nil {
		return decimal.Zero, err
	}

	balance, _ := result.(decimal.Decimal)

	return balance, nil
}

func (s *breakerSource) execute(fn func() (any, error)) (any, error) {
	result, err := s.manager.Execute(s.name, func() (any, error) {
		result, err := fn()
		if err != nil && IsRejection(err) {
			return rejection{err: err}, nil
		}

		return result, err
	})

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return nil, fmt.Errorf("%w: %w", ErrUpstreamUnavailable, err)
	}

	if err != nil {
		return nil, err
	}

	if r, ok := result.(rejection); ok {
		return nil, r.err
	}

	return result, nil
}
