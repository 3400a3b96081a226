package ledger

import (
	"errors"
	"fmt"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/shopspring/decimal"
)

// ErrorCode is a business error code reported by ledger operations.
type ErrorCode string

const (
	// CodeSourceNotAuthorized indicates the debited participant is not authorized.
	CodeSourceNotAuthorized ErrorCode = "0201"
	// CodeDestinationNotAuthorized indicates the credited participant is not authorized.
	CodeDestinationNotAuthorized ErrorCode = "0202"
	// CodeInsufficientBalance indicates the source balance cannot cover the amount.
	CodeInsufficientBalance ErrorCode = "0018"
	// CodeInvalidInput indicates the posting is malformed.
	CodeInvalidInput ErrorCode = "1001"
)

var codeSentinels = map[ErrorCode]error{
	CodeSourceNotAuthorized:      constant.ErrSourceNotAuthorized,
	CodeDestinationNotAuthorized: constant.ErrDestinationNotAuthorized,
	CodeInsufficientBalance:      constant.ErrInsufficientBalance,
	CodeInvalidInput:             constant.ErrInvalidInput,
}

// Code-only targets for errors.Is. They match any DomainError with the same code.
var (
	ErrSourceNotAuthorized      = &DomainError{Code: CodeSourceNotAuthorized}
	ErrDestinationNotAuthorized = &DomainError{Code: CodeDestinationNotAuthorized}
	ErrInsufficientBalance      = &DomainError{Code: CodeInsufficientBalance}
	ErrInvalidInput             = &DomainError{Code: CodeInvalidInput}
)

var (
	// ErrNilAuthorizer is returned by New when no authorization source is given.
	ErrNilAuthorizer = errors.New("ledger: authorizer is nil")
	// ErrNilUnitOfWork is returned by Atomic when fn is nil.
	ErrNilUnitOfWork = errors.New("ledger: unit of work is nil")
	// ErrTxDone is returned when a Tx is used after its unit of work returned.
	ErrTxDone = errors.New("ledger: transaction already finished")
	// ErrPanicRecovered wraps a panic raised inside a unit of work.
	ErrPanicRecovered = errors.New("ledger: panic recovered in unit of work")
	// ErrCompensationFailed is joined to the cause when a rollback compensation fails.
	ErrCompensationFailed = errors.New("ledger: compensation failed")
	// ErrInvalidDecimals is returned for a precision outside [0, constant.MaxDecimals].
	ErrInvalidDecimals = errors.New("ledger: invalid decimals")
)

// DomainError is a structured ledger rejection.
//
// errors.Is matches another *DomainError by code, and also by identity when
// the target names one. It also matches the business sentinel of its code in
// gated/constants, which is how gated.ValidateBusinessError classifies it.
type DomainError struct {
	Code      ErrorCode
	Field     string
	Identity  gated.Identity
	Requested decimal.Decimal
	Available decimal.Decimal
	Message   string
}

// Error returns the formatted domain error string.
func (e *DomainError) Error() string {
	if e.Message == "" {
		return string(e.Code)
	}

	if e.Field == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}

	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Message, e.Field)
}

// Is reports whether target denotes the same rejection.
func (e *DomainError) Is(target error) bool {
	if t, ok := target.(*DomainError); ok {
		if t == nil || t.Code != e.Code {
			return false
		}

		return t.Identity == "" || t.Identity == e.Identity
	}

	sentinel, ok := codeSentinels[e.Code]

	return ok && target == sentinel //nolint:errorlint // sentinel identity comparison
}

// SourceNotAuthorized reports that id cannot act as the debited side.
func SourceNotAuthorized(id gated.Identity) error {
	return &DomainError{
		Code:     CodeSourceNotAuthorized,
		Field:    "source",
		Identity: id,
		Message:  fmt.Sprintf("source %q is not authorized", id),
	}
}

// DestinationNotAuthorized reports that id cannot act as the credited side.
func DestinationNotAuthorized(id gated.Identity) error {
	return &DomainError{
		Code:     CodeDestinationNotAuthorized,
		Field:    "destination",
		Identity: id,
		Message:  fmt.Sprintf("destination %q is not authorized", id),
	}
}

// InsufficientBalance reports that id holds less than requested.
func InsufficientBalance(id gated.Identity, requested, available decimal.Decimal) error {
	return &DomainError{
		Code:      CodeInsufficientBalance,
		Field:     "source",
		Identity:  id,
		Requested: requested,
		Available: available,
		Message:   fmt.Sprintf("balance of %q is %s, requested %s", id, available, requested),
	}
}

// InvalidInput reports a malformed field.
func InvalidInput(field, message string) error {
	return &DomainError{Code: CodeInvalidInput, Field: field, Message: message}
}
