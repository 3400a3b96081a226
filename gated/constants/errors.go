package constant

import "errors"

var (
	// ErrInsufficientBalance maps to business error code 0018.
	ErrInsufficientBalance = errors.New("0018")
	// ErrSourceNotAuthorized maps to business error code 0201.
	ErrSourceNotAuthorized = errors.New("0201")
	// ErrDestinationNotAuthorized maps to business error code 0202.
	ErrDestinationNotAuthorized = errors.New("0202")
	// ErrUpstreamFailure maps to business error code 0203.
	ErrUpstreamFailure = errors.New("0203")
	// ErrUpstreamUnavailable maps to business error code 0204.
	ErrUpstreamUnavailable = errors.New("0204")
	// ErrBundleRejected maps to business error code 0205.
	ErrBundleRejected = errors.New("0205")
	// ErrIdempotencyConflict maps to business error code 0206.
	ErrIdempotencyConflict = errors.New("0206")
	// ErrInvalidInput maps to business error code 1001.
	ErrInvalidInput = errors.New("1001")
)
