//go:build unit

package ledger

import (
	"context"
	"testing"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func amt(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func newTestLedger(t *testing.T, authorized ...gated.Identity) (*Ledger, *registry.Registry) {
	t.Helper()

	reg := registry.New()
	for _, id := range authorized {
		reg.Grant(context.Background(), id)
	}

	l, err := New(reg)
	require.NoError(t, err)

	return l, reg
}

func requireConserved(t *testing.T, l *Ledger) {
	t.Helper()

	sum := decimal.Zero
	for _, balance := range l.Balances() {
		require.False(t, balance.IsNegative())
		sum = sum.Add(balance)
	}

	require.True(t, sum.Equal(l.TotalSupply()), "sum=%s supply=%s", sum, l.TotalSupply())
}
