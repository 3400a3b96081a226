//go:build unit

package bundle_test

import (
	"context"
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-gated/gated/bundle"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/LerianStudio/lib-gated/gated/reserve"
	"github.com/LerianStudio/lib-gated/gated/wrapper"
	"github.com/shopspring/decimal"
)

func ExampleAnalyze() {
	ctx := context.Background()

	reg := registry.New()
	reg.Grant(ctx, "alice")
	reg.Grant(ctx, "bob")

	steps := []bundle.Step{
		{Op: bundle.OpTransfer, Caller: "router", Source: "alice", Destination: "pool", Amount: decimal.NewFromInt(10)},
		{Op: bundle.OpTransfer, Caller: "router", Source: "pool", Destination: "bob", Amount: decimal.NewFromInt(10)},
	}

	analysis := bundle.Analyze(steps, reg)

	fmt.Println(analysis.Required)
	fmt.Println(analysis.Relays, analysis.Intermediaries)
	fmt.Println(analysis.Violation.Hop, analysis.Violation.Identity, analysis.Violation.Role)

	// Output:
	// [alice pool bob]
	// [router] [pool]
	// 0 pool destination
}

func ExampleExecutor_Execute() {
	ctx := context.Background()

	reg := registry.New()
	reg.Grant(ctx, "alice")
	reg.Grant(ctx, "bob")

	l, _ := ledger.New(reg, ledger.WithDecimals(0))

	source := reserve.NewMemory(0)
	_ = source.Credit("alice", decimal.NewFromInt(100))

	adapter, _ := wrapper.New(l, source)
	executor := bundle.NewExecutor(l, bundle.WithAdapter(adapter))

	result, err := executor.Execute(ctx, bundle.Bundle{Steps: []bundle.Step{
		{Op: bundle.OpWrap, Destination: "alice", Amount: decimal.NewFromInt(100)},
		{Op: bundle.OpTransfer, Caller: "router", Source: "alice", Destination: "bob", Amount: decimal.NewFromInt(30)},
		{Op: bundle.OpUnwrap, Source: "bob", Amount: decimal.NewFromInt(10)},
	}})
	fmt.Println(err == nil, len(result.Receipt.Postings))
	fmt.Println(l.BalanceOf("alice"), l.BalanceOf("bob"), source.BalanceOf("bob"))

	// The failing last hop undoes every earlier one, including the unwrap.
	_, err = executor.Execute(ctx, bundle.Bundle{Steps: []bundle.Step{
		{Op: bundle.OpUnwrap, Source: "bob", Amount: decimal.NewFromInt(20)},
		{Op: bundle.OpTransfer, Source: "alice", Destination: "mallory", Amount: decimal.NewFromInt(1)},
	}})

	var hopErr *bundle.HopError
	fmt.Println(errors.As(err, &hopErr), hopErr.Index, errors.Is(err, ledger.ErrDestinationNotAuthorized))
	fmt.Println(l.BalanceOf("bob"), source.BalanceOf("bob"))

	// Output:
	// true 3
	// 70 20 10
	// true 1 true
	// 20 10
}
