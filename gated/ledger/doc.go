// Package ledger implements the gated balance ledger.
//
// Every balance-changing posting is checked against an authorization source
// on both of its gated sides before anything is mutated: the source first,
// then the destination, then the source balance. Issue postings have no
// source and redeem postings have no destination, so value entering or
// leaving through the reserve is only gated on the participant side.
//
// Mutations are serialized. A unit of work started with Atomic stages its
// postings on an overlay and commits them in one step, or discards them and
// runs the registered compensations in reverse order.
package ledger
