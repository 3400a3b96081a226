package gateway

import (
	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/bundle"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// AmountInput carries a single-identity operation: issue, redeem, wrap or unwrap.
type AmountInput struct {
	Identity string `json:"identity" validate:"required,identity"`
	Amount   string `json:"amount"   validate:"required,positive_amount"`
}

// TransferInput is the body of POST /v1/transfers.
type TransferInput struct {
	Source      string `json:"source"           validate:"required,identity"`
	Destination string `json:"destination"      validate:"required,identity"`
	Amount      string `json:"amount"           validate:"required,positive_amount"`
	Caller      string `json:"caller,omitempty" validate:"omitempty,identity"`
}

// StepInput is one bundle hop.
type StepInput struct {
	Op          string `json:"op"                    validate:"required,oneof=TRANSFER WRAP UNWRAP"`
	Caller      string `json:"caller,omitempty"      validate:"omitempty,identity"`
	Source      string `json:"source,omitempty"      validate:"omitempty,identity"`
	Destination string `json:"destination,omitempty" validate:"omitempty,identity"`
	Amount      string `json:"amount"                validate:"required,positive_amount"`
}

// BundleInput is the body of POST /v1/bundles and /v1/bundles/analyze.
type BundleInput struct {
	ID    string      `json:"id,omitempty" validate:"omitempty,uuid"`
	Steps []StepInput `json:"steps"        validate:"required,max=64,dive"`
}

// AuthorizationOutput reports the authorization state of an identity.
type AuthorizationOutput struct {
	Identity   gated.Identity `json:"identity"`
	Authorized bool           `json:"authorized"`
}

// AuthorizationList is the body of GET /v1/authorizations.
type AuthorizationList struct {
	Items []gated.Identity `json:"items"`
}

// BalanceOutput is the body of GET /v1/balances/:identity.
type BalanceOutput struct {
	Identity   gated.Identity  `json:"identity"`
	Balance    decimal.Decimal `json:"balance"`
	Authorized bool            `json:"authorized"`
	Decimals   int32           `json:"decimals"`
}

// SupplyOutput is the body of GET /v1/supply. Reserve is omitted when no
// adapter is configured.
type SupplyOutput struct {
	Supply   decimal.Decimal  `json:"supply"`
	Reserve  *decimal.Decimal `json:"reserve,omitempty"`
	Decimals int32            `json:"decimals"`
}

// BundleOutput is the body of a committed bundle.
type BundleOutput struct {
	BundleID uuid.UUID       `json:"bundleId"`
	Receipt  ledger.Receipt  `json:"receipt"`
	Analysis bundle.Analysis `json:"analysis"`
}

// HopFailure names the hop a simulation would abort at.
type HopFailure struct {
	Hop     int    `json:"hop"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message"`
}

// AnalysisOutput is the body of POST /v1/bundles/analyze.
type AnalysisOutput struct {
	bundle.Analysis
	Balances map[gated.Identity]decimal.Decimal `json:"balances,omitempty"`
	Failure  *HopFailure                        `json:"failure,omitempty"`
}

// toStep expects in to have passed validation.
func (in StepInput) toStep() bundle.Step {
	return bundle.Step{
		Op:          bundle.Op(in.Op),
		Caller:      gated.Identity(in.Caller),
		Source:      gated.Identity(in.Source),
		Destination: gated.Identity(in.Destination),
		Amount:      decimal.RequireFromString(in.Amount),
	}
}

func (in BundleInput) toBundle() bundle.Bundle {
	b := bundle.Bundle{Steps: make([]bundle.Step, 0, len(in.Steps))}

	if in.ID != "" {
		b.ID = uuid.MustParse(in.ID)
	}

	for _, s := range in.Steps {
		b.Steps = append(b.Steps, s.toStep())
	}

	return b
}
