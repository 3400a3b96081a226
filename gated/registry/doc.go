// Package registry holds the authorization flag of every participant.
//
// An identity is authorized only after Grant and until Revoke; unknown
// identities are unauthorized. Grant and Revoke are idempotent and the last
// write wins. Hold pins the current state so that a composed sequence of
// ledger operations observes one consistent set of flags.
package registry
