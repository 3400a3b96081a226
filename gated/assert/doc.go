// Package assert checks ledger invariants at commit time. A failed check is
// logged, counted in assertion_failed_total, recorded on the active span and
// returned as an *AssertionError instead of panicking.
package assert
