package reserve

import (
	"context"
	"errors"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/shopspring/decimal"
)

var (
	// ErrInsufficientBalance is returned by Pull when the holder's external balance is too low.
	ErrInsufficientBalance = errors.New("reserve: insufficient external balance")
	// ErrInsufficientAllowance is returned by Pull when the holder has not approved enough value.
	ErrInsufficientAllowance = errors.New("reserve: insufficient allowance")
	// ErrInsufficientReserve is returned by Push when the reserve cannot cover the amount.
	ErrInsufficientReserve = errors.New("reserve: insufficient reserve")
	// ErrInvalidAmount is returned for amounts that are not positive whole base units.
	ErrInvalidAmount = errors.New("reserve: amount must be a positive whole number of base units")
	// ErrBalanceUnsupported is returned by BalanceOf when the source cannot report its reserve.
	ErrBalanceUnsupported = errors.New("reserve: source does not report a reserve balance")
	// ErrUpstreamUnavailable is returned while the circuit breaker guarding a source is open.
	ErrUpstreamUnavailable = constant.ErrUpstreamUnavailable
)

// Source is the external fungible value source held in reserve.
type Source interface {
	// Pull moves amount from the holder's external balance into the reserve.
	Pull(ctx context.Context, from gated.Identity, amount decimal.Decimal) error
	// Push moves amount from the reserve to the holder's external balance.
	Push(ctx context.Context, to gated.Identity, amount decimal.Decimal) error
	// Decimals is the precision of one whole external unit.
	Decimals() int32
}

// Balancer is implemented by sources that can report the reserve they hold.
type Balancer interface {
	ReserveBalance(ctx context.Context) (decimal.Decimal, error)
}

// BalanceOf returns the reserve held by src, or ErrBalanceUnsupported.
func BalanceOf(ctx context.Context, src Source) (decimal.Decimal, error) {
	b, ok := src.(Balancer)
	if !ok {
		return decimal.Zero, ErrBalanceUnsupported
	}

	return b.ReserveBalance(ctx)
}

// IsRejection reports whether err is a definitive answer from the source
// about the request, as opposed to a failure to reach it.
func IsRejection(err error) bool {
	return errors.Is(err, ErrInsufficientBalance) ||
		errors.Is(err, ErrInsufficientAllowance) ||
		errors.Is(err, ErrInsufficientReserve) ||
		errors.Is(err, ErrInvalidAmount)
}

func validAmount(amount decimal.Decimal) bool {
	return amount.IsPositive() && gated.AmountWithinBounds(amount) && amount.IsInteger()
}
