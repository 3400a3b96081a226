//go:build unit

package wrapper

import (
	"context"
	"errors"
	"testing"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/assert"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/LerianStudio/lib-gated/gated/reserve"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var errUpstreamDown = errors.New("upstream down")

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

// faultySource injects failures in front of a reserve.Memory.
type faultySource struct {
	*reserve.Memory
	pullErr error
	pushErr error
}

func (s *faultySource) Pull(ctx context.Context, from gated.Identity, amount decimal.Decimal) error {
	if s.pullErr != nil {
		return s.pullErr
	}

	return s.Memory.Pull(ctx, from, amount)
}

func (s *faultySource) Push(ctx context.Context, to gated.Identity, amount decimal.Decimal) error {
	if s.pushErr != nil {
		return s.pushErr
	}

	return s.Memory.Push(ctx, to, amount)
}

type fixture struct {
	reg     *registry.Registry
	ledger  *ledger.Ledger
	source  *faultySource
	adapter *Adapter
}

func newFixture(t *testing.T, authorized ...gated.Identity) *fixture {
	t.Helper()

	reg := registry.New()
	for _, id := range authorized {
		reg.Grant(context.Background(), id)
	}

	l, err := ledger.New(reg, ledger.WithDecimals(6))
	require.NoError(t, err)

	src := &faultySource{Memory: reserve.NewMemory(6)}

	a, err := New(l, src)
	require.NoError(t, err)

	return &fixture{reg: reg, ledger: l, source: src, adapter: a}
}

func (f *fixture) requireBacked(t *testing.T) {
	t.Helper()
	require.NoError(t, f.adapter.CheckBacking(context.Background()))
}

func TestNew(t *testing.T) {
	l, err := ledger.New(registry.New(), ledger.WithDecimals(6))
	require.NoError(t, err)

	_, err = New(nil, reserve.NewMemory(6))
	require.ErrorIs(t, err, ErrNilLedger)

	_, err = New(l, nil)
	require.ErrorIs(t, err, ErrNilSource)

	var typedNil *reserve.Memory

	_, err = New(l, typedNil)
	require.ErrorIs(t, err, ErrNilSource)

	_, err = New(l, reserve.NewMemory(18))
	require.ErrorIs(t, err, ErrPrecisionMismatch)

	a, err := New(l, reserve.NewMemory(6))
	require.NoError(t, err)
	require.Equal(t, int32(6), a.Decimals())
}

func TestWrap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")
	require.NoError(t, f.source.Credit("U1", amt(150)))

	receipt, err := f.adapter.Wrap(ctx, "U1", amt(100))
	require.NoError(t, err)
	require.Equal(t, []ledger.Posting{ledger.Issue("U1", amt(100))}, receipt.Postings)

	require.True(t, f.ledger.BalanceOf("U1").Equal(amt(100)))
	require.True(t, f.source.BalanceOf("U1").Equal(amt(50)))

	held, err := f.adapter.Reserve(ctx)
	require.NoError(t, err)
	require.True(t, held.Equal(amt(100)))
	f.requireBacked(t)
}

func TestWrap_UnauthorizedPullsNothing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	require.NoError(t, f.source.Credit("U3", amt(100)))

	_, err := f.adapter.Wrap(ctx, "U3", amt(100))
	require.ErrorIs(t, err, ledger.DestinationNotAuthorized("U3"))

	require.True(t, f.source.BalanceOf("U3").Equal(amt(100)))
	require.True(t, f.ledger.TotalSupply().IsZero())
	f.requireBacked(t)
}

func TestWrap_UpstreamFailures(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		pullErr  error
		credit   int64
		want     []error
		notWant  error
	}{
		{name: "opaque failure", pullErr: errUpstreamDown, credit: 100, want: []error{ErrUpstream, errUpstreamDown}},
		{name: "insufficient external balance", credit: 10, want: []error{ErrUpstream, reserve.ErrInsufficientBalance}},
		{name: "breaker open", pullErr: reserve.ErrUpstreamUnavailable, credit: 100, want: []error{reserve.ErrUpstreamUnavailable}, notWant: ErrUpstream},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, "U1")
			require.NoError(t, f.source.Credit("U1", amt(tt.credit)))
			f.source.pullErr = tt.pullErr

			_, err := f.adapter.Wrap(ctx, "U1", amt(100))
			for _, want := range tt.want {
				require.ErrorIs(t, err, want)
			}

			if tt.notWant != nil {
				require.NotErrorIs(t, err, tt.notWant)
			}

			require.True(t, f.ledger.TotalSupply().IsZero())
			require.True(t, f.source.BalanceOf("U1").Equal(amt(tt.credit)))
		})
	}
}

func TestWrap_InvalidAmount(t *testing.T) {
	f := newFixture(t, "U1")

	_, err := f.adapter.Wrap(context.Background(), "U1", decimal.Zero)
	require.ErrorIs(t, err, ledger.ErrInvalidInput)
}

func TestUnwrap(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")
	require.NoError(t, f.source.Credit("U1", amt(100)))

	_, err := f.adapter.Wrap(ctx, "U1", amt(100))
	require.NoError(t, err)

	receipt, err := f.adapter.Unwrap(ctx, "U1", amt(30))
	require.NoError(t, err)
	require.Equal(t, []ledger.Posting{ledger.Redeem("U1", amt(30))}, receipt.Postings)

	require.True(t, f.ledger.BalanceOf("U1").Equal(amt(70)))
	require.True(t, f.source.BalanceOf("U1").Equal(amt(30)))
	f.requireBacked(t)
}

func TestUnwrap_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")
	require.NoError(t, f.source.Credit("U1", amt(100)))

	_, err := f.adapter.Wrap(ctx, "U1", amt(100))
	require.NoError(t, err)

	_, err = f.adapter.Unwrap(ctx, "U1", amt(101))
	require.ErrorIs(t, err, ledger.InsufficientBalance("U1", amt(101), amt(100)))

	f.reg.Revoke(ctx, "U1")

	_, err = f.adapter.Unwrap(ctx, "U1", amt(1))
	require.ErrorIs(t, err, ledger.SourceNotAuthorized("U1"))

	require.True(t, f.ledger.BalanceOf("U1").Equal(amt(100)))
	require.True(t, f.source.BalanceOf("U1").IsZero())
	f.requireBacked(t)
}

func TestUnwrap_PushFailureDiscardsRedemption(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")
	require.NoError(t, f.source.Credit("U1", amt(100)))

	_, err := f.adapter.Wrap(ctx, "U1", amt(100))
	require.NoError(t, err)

	f.source.pushErr = errUpstreamDown

	_, err = f.adapter.Unwrap(ctx, "U1", amt(40))
	require.ErrorIs(t, err, ErrUpstream)
	require.ErrorIs(t, err, errUpstreamDown)

	var resp gated.Response
	require.ErrorAs(t, gated.ValidateBusinessError(err, constant.EntityLedger), &resp)
	require.Equal(t, "0203", resp.Code)

	require.True(t, f.ledger.BalanceOf("U1").Equal(amt(100)))
	f.requireBacked(t)
}

func TestMintAndBurn_KeepBacking(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")
	require.NoError(t, f.source.Credit("T", amt(1000)))

	receipt, err := f.adapter.Mint(ctx, "T", "U1", amt(400))
	require.NoError(t, err)
	require.Equal(t, []ledger.Posting{ledger.Issue("U1", amt(400))}, receipt.Postings)

	require.True(t, f.ledger.BalanceOf("U1").Equal(amt(400)))
	require.True(t, f.source.BalanceOf("T").Equal(amt(600)))
	require.True(t, f.source.BalanceOf("U1").IsZero())
	f.requireBacked(t)

	_, err = f.adapter.Burn(ctx, "U1", "T", amt(150))
	require.NoError(t, err)

	require.True(t, f.ledger.BalanceOf("U1").Equal(amt(250)))
	require.True(t, f.source.BalanceOf("T").Equal(amt(750)))
	require.True(t, f.source.BalanceOf("U1").IsZero())
	f.requireBacked(t)
}

func TestMint_Rejections(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")
	require.NoError(t, f.source.Credit("T", amt(10)))

	_, err := f.adapter.Mint(ctx, "T", "U2", amt(5))
	require.ErrorIs(t, err, ledger.DestinationNotAuthorized("U2"))

	_, err = f.adapter.Mint(ctx, "T", "U1", amt(11))
	require.ErrorIs(t, err, ErrUpstream)
	require.ErrorIs(t, err, reserve.ErrInsufficientBalance)

	_, err = f.adapter.Mint(ctx, " T", "U1", amt(1))
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	_, err = f.adapter.Burn(ctx, "U1", "", amt(1))
	require.ErrorIs(t, err, ledger.ErrInvalidInput)

	require.True(t, f.ledger.TotalSupply().IsZero())
	require.True(t, f.source.BalanceOf("T").Equal(amt(10)))
	f.requireBacked(t)
}

func TestWrapTx_RefundedWhenLaterStepFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")
	require.NoError(t, f.source.Credit("U1", amt(100)))

	_, err := f.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		if err := f.adapter.WrapTx(tx, "U1", amt(100)); err != nil {
			return err
		}

		return tx.Transfer("U1", "U9", amt(100))
	})
	require.ErrorIs(t, err, ledger.DestinationNotAuthorized("U9"))

	require.True(t, f.source.BalanceOf("U1").Equal(amt(100)))
	require.True(t, f.ledger.TotalSupply().IsZero())
	f.requireBacked(t)
}

func TestUnwrapTx_NothingPaidOutWhenLaterStepFails(t *testing.T) {
	ctx := context.Background()

	reg := registry.New()
	reg.Grant(ctx, "U1")

	l, err := ledger.New(reg)
	require.NoError(t, err)

	src := reserve.NewMemory(0, reserve.WithAllowances())
	require.NoError(t, src.Credit("U1", amt(100)))
	src.Approve("U1", amt(100))

	a, err := New(l, src)
	require.NoError(t, err)

	_, err = a.Wrap(ctx, "U1", amt(100))
	require.NoError(t, err)

	_, err = l.Atomic(ctx, func(tx *ledger.Tx) error {
		if err := a.UnwrapTx(tx, "U1", amt(50)); err != nil {
			return err
		}

		return tx.Transfer("U1", "U3", amt(10))
	})
	require.ErrorIs(t, err, ledger.DestinationNotAuthorized("U3"))
	require.NotErrorIs(t, err, ledger.ErrCompensationFailed)

	require.True(t, src.BalanceOf("U1").IsZero())
	require.True(t, l.BalanceOf("U1").Equal(amt(100)))
	require.True(t, l.TotalSupply().Equal(amt(100)))
	require.NoError(t, a.CheckBacking(ctx))
}

func TestUnwrapTx_PushWaitsForCommit(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1", "U2")
	require.NoError(t, f.source.Credit("U1", amt(100)))

	_, err := f.adapter.Wrap(ctx, "U1", amt(100))
	require.NoError(t, err)

	_, err = f.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		if err := f.adapter.UnwrapTx(tx, "U1", amt(60)); err != nil {
			return err
		}

		require.True(t, f.source.BalanceOf("U1").IsZero())

		return tx.Transfer("U1", "U2", amt(40))
	})
	require.NoError(t, err)

	require.True(t, f.source.BalanceOf("U1").Equal(amt(60)))
	require.True(t, f.ledger.BalanceOf("U2").Equal(amt(40)))
	f.requireBacked(t)
}

func TestUnwrapTx_SecondPushFailureReclaimsFirst(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1", "U2")
	require.NoError(t, f.source.Credit("U1", amt(100)))

	_, err := f.adapter.Wrap(ctx, "U1", amt(100))
	require.NoError(t, err)

	_, err = f.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		if err := tx.Transfer("U1", "U2", amt(50)); err != nil {
			return err
		}

		if err := f.adapter.UnwrapTx(tx, "U1", amt(50)); err != nil {
			return err
		}

		tx.BeforeCommit(func(context.Context) error {
			f.source.pushErr = errUpstreamDown
			return nil
		})

		return f.adapter.UnwrapTx(tx, "U2", amt(50))
	})
	require.ErrorIs(t, err, errUpstreamDown)

	f.source.pushErr = nil

	require.True(t, f.source.BalanceOf("U1").IsZero())
	require.True(t, f.source.BalanceOf("U2").IsZero())
	require.True(t, f.ledger.BalanceOf("U1").Equal(amt(100)))
	f.requireBacked(t)
}

func TestWrapTx_RefundFailureIsReported(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")
	require.NoError(t, f.source.Credit("U1", amt(100)))

	_, err := f.ledger.Atomic(ctx, func(tx *ledger.Tx) error {
		if err := f.adapter.WrapTx(tx, "U1", amt(100)); err != nil {
			return err
		}

		f.source.pushErr = errUpstreamDown

		return tx.Transfer("U1", "U9", amt(1))
	})
	require.ErrorIs(t, err, ledger.ErrDestinationNotAuthorized)
	require.ErrorIs(t, err, ledger.ErrCompensationFailed)
	require.ErrorIs(t, err, errUpstreamDown)
}

func TestCheckBacking_Mismatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, "U1")

	_, err := f.ledger.Issue(ctx, "U1", amt(5))
	require.NoError(t, err)

	err = f.adapter.CheckBacking(ctx)
	require.ErrorIs(t, err, assert.ErrAssertionFailed)
}

type blindSource struct{}

func (blindSource) Pull(context.Context, gated.Identity, decimal.Decimal) error { return nil }
func (blindSource) Push(context.Context, gated.Identity, decimal.Decimal) error { return nil }
func (blindSource) Decimals() int32 { return 6 }

func TestReserve_Unsupported(t *testing.T) {
	l, err := ledger.New(registry.New(), ledger.WithDecimals(6))
	require.NoError(t, err)

	a, err := New(l, blindSource{})
	require.NoError(t, err)

	_, err = a.Reserve(context.Background())
	require.ErrorIs(t, err, reserve.ErrBalanceUnsupported)

	require.ErrorIs(t, a.CheckBacking(context.Background()), reserve.ErrBalanceUnsupported)
}
