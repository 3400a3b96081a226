// Package events publishes ledger commits to downstream consumers.
//
// LedgerHook turns every committed receipt into an Event and hands it to a
// Publisher. Publishing happens after the commit, so a failed publish is
// logged and never changes ledger state.
package events
