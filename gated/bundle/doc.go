// Package bundle composes ledger operations into atomic multi-hop sequences
// and predicts their outcome.
//
// A bundle succeeds iff, at every hop, the source and destination recorded by
// the ledger are authorized and the source balance suffices. A caller that
// only relays a hop is never recorded and needs no authorization; an
// intermediary that receives value at one hop and forwards it at a later one
// is recorded on both hops and must be authorized for both.
//
// Analyze inspects authorization alone, Simulate adds balances and reports the
// exact first failure, and Executor runs the bundle as one ledger unit of work
// with the registry pinned.
package bundle
