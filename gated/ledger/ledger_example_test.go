//go:build unit

package ledger_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/shopspring/decimal"
)

func ExampleLedger_Transfer() {
	ctx := context.Background()

	reg := registry.New()
	reg.Grant(ctx, "alice")
	reg.Grant(ctx, "bob")

	l, _ := ledger.New(reg, ledger.WithDecimals(0))
	_, _ = l.Issue(ctx, "alice", decimal.NewFromInt(100))

	_, err := l.Transfer(ctx, "alice", "bob", decimal.NewFromInt(40))
	fmt.Println(err == nil)
	fmt.Println(l.BalanceOf("alice"), l.BalanceOf("bob"))

	// mallory was never granted, so she cannot receive.
	_, err = l.Transfer(ctx, "bob", "mallory", decimal.NewFromInt(1))
	fmt.Println(errors.Is(err, ledger.ErrDestinationNotAuthorized))

	// A revoked holder keeps its balance but cannot send it.
	reg.Revoke(ctx, "bob")

	_, err = l.Transfer(ctx, "bob", "alice", decimal.NewFromInt(1))
	fmt.Println(errors.Is(err, ledger.ErrSourceNotAuthorized))
	fmt.Println(l.BalanceOf("bob"))

	// Output:
	// true
	// 60 40
	// true
	// true
	// 40
}

func ExampleLedger_Atomic() {
	ctx := context.Background()

	reg := registry.New()
	reg.Grant(ctx, "alice")
	reg.Grant(ctx, "bob")

	l, _ := ledger.New(reg, ledger.WithDecimals(0))
	_, _ = l.Issue(ctx, "alice", decimal.NewFromInt(100))

	_, err := l.Atomic(ctx, func(tx *ledger.Tx) error {
		if err := tx.Transfer("alice", "bob", decimal.NewFromInt(30)); err != nil {
			return err
		}

		return tx.Transfer("bob", "mallory", decimal.NewFromInt(10))
	})

	fmt.Println(errors.Is(err, ledger.ErrDestinationNotAuthorized))
	fmt.Println(l.BalanceOf("alice"), l.BalanceOf("bob"), l.TotalSupply())

	// Output:
	// true
	// 100 0 100
}
