package gateway

import (
	"errors"
	"net/http"

	"github.com/LerianStudio/lib-gated/gated"
	"github.com/LerianStudio/lib-gated/gated/bundle"
	"github.com/LerianStudio/lib-gated/gated/log"
	libHTTP "github.com/LerianStudio/lib-gated/gated/net/http"
	"github.com/gofiber/fiber/v2"
)

var errAdapterDisabled = libHTTP.ErrorResponse{
	Status:  http.StatusNotImplemented,
	Title:   "wrap_unavailable",
	Message: "Wrapping is not configured on this gateway.",
}

var errReserveOperationsDisabled = libHTTP.ErrorResponse{
	Status:  http.StatusForbidden,
	Title:   "operation_disabled",
	Message: "Operator issue and redeem are disabled on this gateway.",
}

// fail renders err. Business errors keep their code; anything else is logged
// and rendered as a generic 500.
func (h *Handler) fail(c *fiber.Ctx, entity string, err error) error {
	if errors.Is(err, bundle.ErrWrapUnavailable) {
		return libHTTP.RenderError(c, errAdapterDisabled)
	}

	mapped := gated.ValidateBusinessError(err, entity)

	var business gated.Response
	if !errors.As(mapped, &business) {
		ctx := c.UserContext()
		h.requestLogger(c).Log(ctx, log.LevelError, "request failed",
			log.String("method", c.Method()),
			log.String("path", c.Path()),
			log.Err(err))
	}

	return libHTTP.RenderError(c, mapped)
}

func (h *Handler) invalid(c *fiber.Ctx, err error) error {
	return libHTTP.RenderError(c, libHTTP.InvalidInput(err))
}

func (h *Handler) requestLogger(c *fiber.Ctx) log.Logger {
	if logger := gated.NewLoggerFromContext(c.UserContext()); logger != nil {
		if _, nop := logger.(log.Nop); !nop {
			return logger
		}
	}

	return h.logger
}
