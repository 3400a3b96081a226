//go:build unit

package bundle

import (
	"context"
	"testing"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/LerianStudio/lib-gated/gated/reserve"
	"github.com/LerianStudio/lib-gated/gated/wrapper"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func transfer(caller, src, dst gated.Identity, amount int64) Step {
	return Step{Op: OpTransfer, Caller: caller, Source: src, Destination: dst, Amount: amt(amount)}
}

func wrap(id gated.Identity, amount int64) Step {
	return Step{Op: OpWrap, Destination: id, Amount: amt(amount)}
}

func unwrap(id gated.Identity, amount int64) Step {
	return Step{Op: OpUnwrap, Source: id, Amount: amt(amount)}
}

type world struct {
	reg      *registry.Registry
	ledger   *ledger.Ledger
	source   *reserve.Memory
	adapter  *wrapper.Adapter
	executor *Executor
}

func newWorld(t *testing.T, authorized ...gated.Identity) *world {
	t.Helper()

	return newWorldWithSource(t, reserve.NewMemory(0), authorized...)
}

func newWorldWithSource(t *testing.T, src *reserve.Memory, authorized ...gated.Identity) *world {
	t.Helper()

	reg := registry.New()
	for _, id := range authorized {
		reg.Grant(context.Background(), id)
	}

	l, err := ledger.New(reg, ledger.WithDecimals(0))
	require.NoError(t, err)

	adapter, err := wrapper.New(l, src)
	require.NoError(t, err)

	return &world{
		reg:      reg,
		ledger:   l,
		source:   src,
		adapter:  adapter,
		executor: NewExecutor(l, WithAdapter(adapter)),
	}
}

func (w *world) fund(t *testing.T, id gated.Identity, amount int64) {
	t.Helper()

	authorized := w.reg.IsAuthorized(id)
	w.reg.Grant(context.Background(), id)

	_, err := w.ledger.Issue(context.Background(), id, amt(amount))
	require.NoError(t, err)

	if !authorized {
		w.reg.Revoke(context.Background(), id)
	}
}

func (w *world) requireInvariants(t *testing.T) {
	t.Helper()

	sum := decimal.Zero
	for _, balance := range w.ledger.Balances() {
		sum = sum.Add(balance)
	}

	require.True(t, sum.Equal(w.ledger.TotalSupply()), "conservation: sum=%s supply=%s", sum, w.ledger.TotalSupply())
}
