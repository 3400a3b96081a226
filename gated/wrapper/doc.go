// Package wrapper converts external reserve value into gated ledger balance
// and back at a 1:1 rate.
//
// Wrap pulls from the holder into the reserve and issues the same amount;
// Unwrap redeems and pushes the amount back out. Each runs as one ledger
// unit of work, so a failure on either side leaves both unchanged. Mint and
// Burn do the same for operator issuance, with a treasury identity on the
// external side.
package wrapper
