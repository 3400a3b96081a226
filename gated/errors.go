package gated

import (
	"errors"

	constant "github.com/LerianStudio/lib-gated/gated/constants"
)

// Response is a business error with a code, title and message.
type Response struct {
	EntityType string `json:"entityType,omitempty"`
	Title      string `json:"title,omitempty"`
	Message    string `json:"message,omitempty"`
	Code       string `json:"code,omitempty"`
	Err        error  `json:"err,omitempty"`
}

func (e Response) Error() string {
	return e.Message
}

// Unwrap returns the underlying error.
func (e Response) Unwrap() error {
	return e.Err
}

type businessError struct {
	sentinel error
	title    string
	message  string
}

var businessErrors = []businessError{
	{
		sentinel: constant.ErrSourceNotAuthorized,
		title:    "Source Not Authorized",
		message:  "The source participant is not authorized to move gated balances.",
	},
	{
		sentinel: constant.ErrDestinationNotAuthorized,
		title:    "Destination Not Authorized",
		message:  "The destination participant is not authorized to receive gated balances.",
	},
	{
		sentinel: constant.ErrInsufficientBalance,
		title:    "Insufficient Balance",
		message:  "The source balance is lower than the requested amount.",
	},
	{
		sentinel: constant.ErrUpstreamFailure,
		title:    "Upstream Failure",
		message:  "The external value source rejected the operation.",
	},
	{
		sentinel: constant.ErrUpstreamUnavailable,
		title:    "Upstream Unavailable",
		message:  "The external value source is temporarily unavailable. Please try again later.",
	},
	{
		sentinel: constant.ErrBundleRejected,
		title:    "Bundle Rejected",
		message:  "The bundle failed and none of its steps were applied.",
	},
	{
		sentinel: constant.ErrIdempotencyConflict,
		title:    "Idempotency Conflict",
		message:  "A request with the same idempotency key is already being processed.",
	},
	{
		sentinel: constant.ErrInvalidInput,
		title:    "Invalid Input",
		message:  "The request contains invalid values. Please check the fields and try again.",
	},
}

// ValidateBusinessError maps err to a Response when it matches one of the
// business error codes in gated/constants, and returns err unchanged otherwise.
// The message of a matched error keeps the original detail (identity, amounts)
// unless err is the bare sentinel.
func ValidateBusinessError(err error, entityType string) error {
	if err == nil {
		return nil
	}

	var existing Response
	if errors.As(err, &existing) {
		return existing
	}

	for _, be := range businessErrors {
		if !errors.Is(err, be.sentinel) {
			continue
		}

		message := be.message
		if err != be.sentinel { //nolint:errorlint // identity comparison against the bare sentinel
			message = err.Error()
		}

		return Response{
			EntityType: entityType,
			Code:       be.sentinel.Error(),
			Title:      be.title,
			Message:    message,
			Err:        err,
		}
	}

	return err
}
