package ledger

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// InvalidTransactionTypeError reports a raw record whose kind has no mapping
// into the action taxonomy, or whose fields are unusable for its kind.
type InvalidTransactionTypeError struct {
	TransactionID uuid.UUID
	Kind          entities.TransactionKind
	Reason        string
}

func (e *InvalidTransactionTypeError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("transaction %s: invalid transaction type %q: %s", e.TransactionID, e.Kind, e.Reason)
	}
	return fmt.Sprintf("transaction %s: invalid transaction type %q", e.TransactionID, e.Kind)
}

// MissingLinkedTransactionError reports a trade or transfer leg whose paired
// counterpart record is absent from the stream.
type MissingLinkedTransactionError struct {
	TransactionID uuid.UUID
	LinkID        uuid.UUID
}

func (e *MissingLinkedTransactionError) Error() string {
	return fmt.Sprintf("transaction %s: linked transaction %s not found", e.TransactionID, e.LinkID)
}

// InsufficientHoldingsError reports a disposal that exceeds the units held in
// the (account, asset) pair. The replay that produced it halts; no partial
// mutation of the portfolio survives.
type InsufficientHoldingsError struct {
	TransactionID uuid.UUID
	AccountID     uuid.UUID
	AssetID       int32
	Requested     decimal.Decimal
	Available     decimal.Decimal
}

func (e *InsufficientHoldingsError) Error() string {
	return fmt.Sprintf("transaction %s: insufficient holdings of asset %d in account %s: requested %s, available %s",
		e.TransactionID, e.AssetID, e.AccountID, e.Requested, e.Available)
}

// RateUnavailableError reports a trade that requires an exchange rate with no
// observation at or before the trade date.
type RateUnavailableError struct {
	TransactionID uuid.UUID
	Pair          entities.AssetPair
	At            time.Time
}

func (e *RateUnavailableError) Error() string {
	return fmt.Sprintf("transaction %s: no rate for pair %d/%d at or before %s",
		e.TransactionID, e.Pair.From, e.Pair.To, e.At.Format(time.RFC3339))
}

// OutOfOrderEventError reports an action stream that violates the required
// (date, transaction id) ordering.
type OutOfOrderEventError struct {
	TransactionID uuid.UUID
	At            time.Time
	Previous      time.Time
}

func (e *OutOfOrderEventError) Error() string {
	return fmt.Sprintf("transaction %s: event at %s arrived after %s",
		e.TransactionID, e.At.Format(time.RFC3339), e.Previous.Format(time.RFC3339))
}
