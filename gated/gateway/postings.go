package gateway

import (
	"context"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/LerianStudio/lib-gated/gated/log"
	libHTTP "github.com/LerianStudio/lib-gated/gated/net/http"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// GetBalance handles GET /v1/balances/:identity. Revoked identities still
// report their frozen balance.
func (h *Handler) GetBalance(c *fiber.Ctx) error {
	id, err := identityParam(c)
	if err != nil {
		return h.invalid(c, err)
	}

	return libHTTP.OK(c, BalanceOutput{
		Identity:   id,
		Balance:    h.ledger.BalanceOf(id),
		Authorized: h.registry.IsAuthorized(id),
		Decimals:   h.ledger.Decimals(),
	})
}

// GetSupply handles GET /v1/supply.
func (h *Handler) GetSupply(c *fiber.Ctx) error {
	out := SupplyOutput{
		Supply:   h.ledger.TotalSupply(),
		Decimals: h.ledger.Decimals(),
	}

	if h.adapter != nil {
		reserve, err := h.adapter.Reserve(c.UserContext())
		if err != nil {
			return h.fail(c, constant.EntityLedger, err)
		}

		out.Reserve = &reserve
	}

	return libHTTP.OK(c, out)
}

// Transfer handles POST /v1/transfers.
func (h *Handler) Transfer(c *fiber.Ctx) error {
	var in TransferInput
	if err := libHTTP.ParseBodyAndValidate(c, &in); err != nil {
		return h.invalid(c, err)
	}

	caller := in.Caller
	if caller == "" {
		caller = c.Get(constant.HeaderCaller)
	}

	ctx := c.UserContext()

	receipt, err := h.ledger.Transfer(ctx,
		gated.Identity(in.Source), gated.Identity(in.Destination), decimal.RequireFromString(in.Amount))
	if err != nil {
		return h.fail(c, constant.EntityLedger, err)
	}

	if caller != "" {
		h.requestLogger(c).Log(ctx, log.LevelDebug, "transfer relayed",
			log.String("caller", caller), log.Stringer("receipt_id", receipt.ID))
	}

	return libHTTP.Created(c, receipt)
}

// Wrap handles POST /v1/wraps.
func (h *Handler) Wrap(c *fiber.Ctx) error {
	return h.amountOperation(c, h.adapter != nil, errAdapterDisabled, func(ctx context.Context, id gated.Identity, amount decimal.Decimal) (ledger.Receipt, error) {
		return h.adapter.Wrap(ctx, id, amount)
	})
}

// Unwrap handles POST /v1/unwraps.
func (h *Handler) Unwrap(c *fiber.Ctx) error {
	return h.amountOperation(c, h.adapter != nil, errAdapterDisabled, func(ctx context.Context, id gated.Identity, amount decimal.Decimal) (ledger.Receipt, error) {
		return h.adapter.Unwrap(ctx, id, amount)
	})
}

// Issue handles POST /v1/issues. With an adapter the treasury funds the reserve.
func (h *Handler) Issue(c *fiber.Ctx) error {
	op := h.ledger.Issue
	if h.adapter != nil {
		op = func(ctx context.Context, id gated.Identity, amount decimal.Decimal) (ledger.Receipt, error) {
			return h.adapter.Mint(ctx, h.treasury, id, amount)
		}
	}

	return h.amountOperation(c, h.reserveOperator, errReserveOperationsDisabled, op)
}

// Redeem handles POST /v1/redemptions. With an adapter the reserve pays the
// treasury.
func (h *Handler) Redeem(c *fiber.Ctx) error {
	op := h.ledger.Redeem
	if h.adapter != nil {
		op = func(ctx context.Context, id gated.Identity, amount decimal.Decimal) (ledger.Receipt, error) {
			return h.adapter.Burn(ctx, id, h.treasury, amount)
		}
	}

	return h.amountOperation(c, h.reserveOperator, errReserveOperationsDisabled, op)
}

type amountFunc func(ctx context.Context, id gated.Identity, amount decimal.Decimal) (ledger.Receipt, error)

func (h *Handler) amountOperation(c *fiber.Ctx, enabled bool, disabled error, op amountFunc) error {
	if !enabled {
		return libHTTP.RenderError(c, disabled)
	}

	var in AmountInput
	if err := libHTTP.ParseBodyAndValidate(c, &in); err != nil {
		return h.invalid(c, err)
	}

	receipt, err := op(c.UserContext(), gated.Identity(in.Identity), decimal.RequireFromString(in.Amount))
	if err != nil {
		return h.fail(c, constant.EntityLedger, err)
	}

	return libHTTP.Created(c, receipt)
}
