package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/LerianStudio/lib-gated/gated"
	constant "github.com/LerianStudio/lib-gated/gated/constants"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Kind identifies a posting variant.
type Kind string

const (
	// KindIssue credits a destination and increases supply. It has no source.
	KindIssue Kind = "ISSUE"
	// KindRedeem debits a source and decreases supply. It has no destination.
	KindRedeem Kind = "REDEEM"
	// KindTransfer moves value between two participants.
	KindTransfer Kind = "TRANSFER"
)

// String returns the kind name.
func (k Kind) String() string {
	return string(k)
}

// Posting is a single balance change. Source is empty for KindIssue and
// Destination is empty for KindRedeem; the reserve side is never a participant.
type Posting struct {
	Kind        Kind            `json:"kind"`
	Source      gated.Identity  `json:"source,omitempty"`
	Destination gated.Identity  `json:"destination,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
}

// Issue builds an issue posting.
func Issue(destination gated.Identity, amount decimal.Decimal) Posting {
	return Posting{Kind: KindIssue, Destination: destination, Amount: amount}
}

// Redeem builds a redeem posting.
func Redeem(source gated.Identity, amount decimal.Decimal) Posting {
	return Posting{Kind: KindRedeem, Source: source, Amount: amount}
}

// Transfer builds a transfer posting.
func Transfer(source, destination gated.Identity, amount decimal.Decimal) Posting {
	return Posting{Kind: KindTransfer, Source: source, Destination: destination, Amount: amount}
}

// GatedSource returns the debited participant, if the variant has one.
func (p Posting) GatedSource() (gated.Identity, bool) {
	switch p.Kind {
	case KindRedeem, KindTransfer:
		return p.Source, true
	default:
		return "", false
	}
}

// GatedDestination returns the credited participant, if the variant has one.
func (p Posting) GatedDestination() (gated.Identity, bool) {
	switch p.Kind {
	case KindIssue, KindTransfer:
		return p.Destination, true
	default:
		return "", false
	}
}

// Validate checks the posting shape. Amounts must be positive whole base units.
func (p Posting) Validate() error {
	switch p.Kind {
	case KindIssue:
		if !p.Source.IsZero() {
			return InvalidInput("source", "issue postings have no source")
		}
	case KindRedeem:
		if !p.Destination.IsZero() {
			return InvalidInput("destination", "redeem postings have no destination")
		}
	case KindTransfer:
	default:
		return InvalidInput("kind", "unknown posting kind "+strings.TrimSpace(string(p.Kind)))
	}

	if src, ok := p.GatedSource(); ok {
		if _, err := gated.ParseIdentity(string(src)); err != nil || string(src) != strings.TrimSpace(string(src)) {
			return InvalidInput("source", "source identity is invalid")
		}
	}

	if dst, ok := p.GatedDestination(); ok {
		if _, err := gated.ParseIdentity(string(dst)); err != nil || string(dst) != strings.TrimSpace(string(dst)) {
			return InvalidInput("destination", "destination identity is invalid")
		}
	}

	if !p.Amount.IsPositive() {
		return InvalidInput("amount", "amount must be greater than zero")
	}

	if !gated.AmountWithinBounds(p.Amount) {
		return InvalidInput("amount", fmt.Sprintf("amount exceeds %d digits", constant.MaxAmountDigits))
	}

	if !p.Amount.IsInteger() {
		return InvalidInput("amount", "amount must be a whole number of base units")
	}

	return nil
}

// Receipt describes a committed unit of work.
type Receipt struct {
	ID          uuid.UUID `json:"id"`
	Postings    []Posting `json:"postings"`
	CommittedAt time.Time `json:"committedAt"`
}
