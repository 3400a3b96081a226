package bundle

import (
	"fmt"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Op is a bundle step operation.
type Op string

const (
	// OpTransfer moves ledger value from Source to Destination.
	OpTransfer Op = "TRANSFER"
	// OpWrap pulls external value from Destination and issues it to Destination.
	OpWrap Op = "WRAP"
	// OpUnwrap redeems from Source and pushes the external value to Source.
	OpUnwrap Op = "UNWRAP"
)

// Step is one hop of a bundle. Caller is the agent relaying the call and is
// never gated.
type Step struct {
	Op          Op              `json:"op"`
	Caller      gated.Identity  `json:"caller,omitempty"`
	Source      gated.Identity  `json:"source,omitempty"`
	Destination gated.Identity  `json:"destination,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// Posting returns the ledger posting the step records.
func (s Step) Posting() ledger.Posting {
	switch s.Op {
	case OpWrap:
		return ledger.Posting{Kind: ledger.KindIssue, Source: s.Source, Destination: s.Destination, Amount: s.Amount}
	case OpUnwrap:
		return ledger.Posting{Kind: ledger.KindRedeem, Source: s.Source, Destination: s.Destination, Amount: s.Amount}
	default:
		return ledger.Posting{Kind: ledger.KindTransfer, Source: s.Source, Destination: s.Destination, Amount: s.Amount}
	}
}

// Validate checks the step shape.
func (s Step) Validate() error {
	switch s.Op {
	case OpTransfer, OpWrap, OpUnwrap:
	default:
		return ledger.InvalidInput("op", fmt.Sprintf("unsupported bundle operation %q", s.Op))
	}

	if !s.Caller.IsZero() {
		if _, err := gated.ParseIdentity(string(s.Caller)); err != nil {
			return ledger.InvalidInput("caller", "caller identity is invalid")
		}
	}

	return s.Posting().Validate()
}

// Bundle is an ordered sequence of steps executed atomically.
type Bundle struct {
	ID    uuid.UUID `json:"id"`
	Steps []Step    `json:"steps"`
}

// Validate checks the bundle size and every step. The first invalid step is
// reported as a *HopError.
func Validate(steps []Step) error {
	if len(steps) == 0 {
		return ledger.InvalidInput("steps", "a bundle needs at least one step")
	}

	if len(steps) > constant.MaxBundleSteps {
		return ledger.InvalidInput("steps", fmt.Sprintf("a bundle accepts at most %d steps", constant.MaxBundleSteps))
	}

	for i, step := range steps {
		if err := step.Validate(); err != nil {
			return &HopError{Index: i, Step: step, Err: err}
		}
	}

	return nil
}
