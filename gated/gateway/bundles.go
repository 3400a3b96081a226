package gateway

import (
	"errors"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/bundle"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	libHTTP "github.com/LerianStudio/lib-gated/gated/net/http"
	"github.com/gofiber/fiber/v2"
)

// ExecuteBundle handles POST /v1/bundles. The bundle commits as a whole or
// not at all; a failing hop is named in the error message.
func (h *Handler) ExecuteBundle(c *fiber.Ctx) error {
	var in BundleInput
	if err := libHTTP.ParseBodyAndValidate(c, &in); err != nil {
		return h.invalid(c, err)
	}

	result, err := h.executor.Execute(c.UserContext(), in.toBundle())
	if err != nil {
		return h.fail(c, constant.EntityBundle, err)
	}

	return libHTTP.Created(c, BundleOutput{
		BundleID: result.BundleID,
		Receipt:  result.Receipt,
		Analysis: result.Analysis,
	})
}

// AnalyzeBundle handles POST /v1/bundles/analyze. It predicts the outcome
// against current state without mutating anything.
func (h *Handler) AnalyzeBundle(c *fiber.Ctx) error {
	var in BundleInput
	if err := libHTTP.ParseBodyAndValidate(c, &in); err != nil {
		return h.invalid(c, err)
	}

	b := in.toBundle()
	sim := bundle.Simulate(b.Steps, h.registry, h.ledger)

	out := AnalysisOutput{Analysis: sim.Analysis, Balances: sim.Balances}

	if sim.Err != nil {
		failure := &HopFailure{Hop: -1, Message: sim.Err.Error()}

		var hopErr *bundle.HopError
		if errors.As(sim.Err, &hopErr) {
			failure.Hop = hopErr.Index
		}

		var business gated.Response
		if errors.As(gated.ValidateBusinessError(sim.Err, constant.EntityBundle), &business) {
			failure.Code = business.Code
		}

		out.Failure = failure
	}

	return libHTTP.OK(c, out)
}
