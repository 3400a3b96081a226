package events

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/LerianStudio/lib-gated/gated/ledger"
	"github.com/google/uuid"
)

// TypeLedgerCommitted is the type of events emitted for committed receipts.
const TypeLedgerCommitted = "ledger.committed"

// Event is the message emitted for a committed unit of work.
type Event struct {
	ID         uuid.UUID        `json:"id"`
	Type       string           `json:"type"`
	ReceiptID  uuid.UUID        `json:"receiptId"`
	Postings   []ledger.Posting `json:"postings"`
	OccurredAt time.Time        `json:"occurredAt"`
}

// FromReceipt builds the commit event of receipt.
func FromReceipt(receipt ledger.Receipt) Event {
	return Event{
		ID:         uuid.New(),
		Type:       TypeLedgerCommitted,
		ReceiptID:  receipt.ID,
		Postings:   slices.Clone(receipt.Postings),
		OccurredAt: receipt.CommittedAt,
	}
}

// Publisher delivers events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Recorder is an in-memory Publisher.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{}
}

// Publish records event.
func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = append(r.events, event)

	return nil
}

// Events returns the recorded events in publish order.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()

	return slices.Clone(r.events)
}

// Reset drops every recorded event.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.events = nil
}
