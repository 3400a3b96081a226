package http

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	libLog "github.com/LerianStudio/lib-gated/gated/log"
	libOpentelemetry "github.com/LerianStudio/lib-gated/gated/opentelemetry"
	"github.com/gofiber/fiber/v2"
	"go.opentelemetry.io/otel/trace"
)

// ErrorResponse is the error body returned by every endpoint.
// Status selects the HTTP status and is not serialized.
type ErrorResponse struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Title   string `json:"title"`
	Message string `json:"message"`
}

// Error allows ErrorResponse to satisfy the error interface.
func (e ErrorResponse) Error() string {
	return e.Message
}

var businessStatus = map[string]int{
	constant.ErrSourceNotAuthorized.Error():      http.StatusForbidden,
	constant.ErrDestinationNotAuthorized.Error(): http.StatusForbidden,
	constant.ErrInsufficientBalance.Error():      http.StatusUnprocessableEntity,
	constant.ErrInvalidInput.Error():             http.StatusBadRequest,
	constant.ErrUpstreamFailure.Error():          http.StatusBadGateway,
	constant.ErrUpstreamUnavailable.Error():      http.StatusServiceUnavailable,
	constant.ErrBundleRejected.Error():           http.StatusUnprocessableEntity,
	constant.ErrIdempotencyConflict.Error():      http.StatusConflict,
}

// StatusForCode returns the HTTP status for a business error code, or 500 for
// codes it does not know.
func StatusForCode(code string) int {
	if status, ok := businessStatus[code]; ok {
		return status
	}

	return http.StatusInternalServerError
}

// InvalidInput builds a 400 response carrying the invalid input business code.
func InvalidInput(err error) ErrorResponse {
	return ErrorResponse{
		Status:  http.StatusBadRequest,
		Code:    constant.ErrInvalidInput.Error(),
		Title:   "Invalid Input",
		Message: err.Error(),
	}
}

// RenderError writes all transport errors through a single, stable contract.
// Business errors keep their code and get the status from StatusForCode;
// anything unrecognized becomes a generic 500.
func RenderError(c *fiber.Ctx, err error) error {
	if err == nil {
		return nil
	}

	var resp ErrorResponse
	if errors.As(err, &resp) {
		return renderResponse(c, resp)
	}

	var presp *ErrorResponse
	if errors.As(err, &presp) && presp != nil {
		return renderResponse(c, *presp)
	}

	var business gated.Response
	if errors.As(err, &business) {
		return renderResponse(c, ErrorResponse{
			Status:  StatusForCode(business.Code),
			Code:    business.Code,
			Title:   business.Title,
			Message: business.Message,
		})
	}

	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return RespondError(c, fiberErr.Code, constant.DefaultErrorTitle, fiberErr.Message)
	}

	return RespondError(c, http.StatusInternalServerError, constant.DefaultErrorTitle, constant.DefaultInternalErrorMessage)
}

func renderResponse(c *fiber.Ctx, resp ErrorResponse) error {
	status := resp.Status
	if status < http.StatusContinue || status > 599 {
		status = http.StatusInternalServerError
	}

	if resp.Code == "" {
		resp.Code = strconv.Itoa(status)
	}

	if resp.Title == "" {
		resp.Title = constant.DefaultErrorTitle
	}

	if resp.Message == "" {
		resp.Message = http.StatusText(status)
	}

	return Respond(c, status, resp)
}

// FiberErrorHandler is the fiber.Config ErrorHandler. Unexpected errors are
// logged with the request logger and recorded on the active span.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	ctx := c.UserContext()
	if ctx == nil {
		ctx = context.Background()
	}

	span := trace.SpanFromContext(ctx)
	libOpentelemetry.RecordError(span, "handler error", err)

	var fe *fiber.Error
	if !errors.As(err, &fe) {
		logger := gated.NewLoggerFromContext(ctx)
		logger.Log(ctx, libLog.LevelError, "handler error",
			libLog.String("method", c.Method()),
			libLog.String("path", c.Path()),
			libLog.Err(err),
		)
	}

	return RenderError(c, err)
}
