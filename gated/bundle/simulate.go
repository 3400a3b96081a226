package bundle

import (
	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/registry"
	"github.com/shopspring/decimal"
)

// BalanceReader reads committed or staged balances. *ledger.Ledger and
// *ledger.Tx implement it.
type BalanceReader interface {
	BalanceOf(id gated.Identity) decimal.Decimal
}

// Simulation is the predicted outcome of a sequence.
type Simulation struct {
	Analysis
	// Balances holds the final balance of every identity the sequence touches.
	// It is empty when Err is set.
	Balances map[gated.Identity]decimal.Decimal `json:"balances,omitempty"`
	// Err is the *HopError the executor would report, assuming the external
	// value source accepts every pull and push.
	Err error `json:"-"`
}

// Simulate replays steps against authz and balances without mutating
// anything, applying the same checks in the same order as the executor.
func Simulate(steps []Step, authz registry.Authorizer, balances BalanceReader) Simulation {
	sim := Simulation{Analysis: Analyze(steps, authz)}

	if err := Validate(steps); err != nil {
		sim.Err = err
		return sim
	}

	staged := make(map[gated.Identity]decimal.Decimal)

	balanceOf := func(id gated.Identity) decimal.Decimal {
		if balance, ok := staged[id]; ok {
			return balance
		}

		return balances.BalanceOf(id)
	}

	for hop, step := range steps {
		if err := simulateHop(step.Posting(), authz, balanceOf, staged); err != nil {
			sim.Err = &HopError{Index: hop, Step: step, Err: err}
			return sim
		}
	}

	sim.Balances = staged

	return sim
}

func simulateHop(
	posting ledger.Posting,
	authz registry.Authorizer,
	balanceOf func(gated.Identity) decimal.Decimal,
	staged map[gated.Identity]decimal.Decimal,
) error {
	source, hasSource := posting.GatedSource()
	if hasSource && !authz.IsAuthorized(source) {
		return ledger.SourceNotAuthorized(source)
	}

	destination, hasDestination := posting.GatedDestination()
	if hasDestination && !authz.IsAuthorized(destination) {
		return ledger.DestinationNotAuthorized(destination)
	}

	if hasSource {
		available := balanceOf(source)
		if available.LessThan(posting.Amount) {
			return ledger.InsufficientBalance(source, posting.Amount, available)
		}

		staged[source] = available.Sub(posting.Amount)
	}

	if hasDestination {
		staged[destination] = balanceOf(destination).Add(posting.Amount)
	}

	return nil
}
