package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Action is one classified ledger event. The set of implementations is
// closed: every variant lives in this package and carries the unexported
// marker method, so the reducer's type switch covers the whole taxonomy and
// an unhandled variant is a programming error rather than silent data loss.
type Action interface {
	isAction()
	// TransactionID is the id of the raw record the action was built from
	// (the disposal leg for paired actions). It is the replay tie-breaker
	// for actions sharing a date.
	TransactionID() uuid.UUID
	// Date is the instant the action takes effect.
	Date() time.Time
}

type actionBase struct {
	TxID uuid.UUID
	At   time.Time
}

func (a actionBase) isAction()                {}
func (a actionBase) TransactionID() uuid.UUID { return a.TxID }
func (a actionBase) Date() time.Time          { return a.At }

// AssetPurchase acquires units of an asset, opening a new lot and spending
// cash when a cash leg is present (CashAssetID != 0).
type AssetPurchase struct {
	actionBase
	AccountID   uuid.UUID
	AssetID     int32
	Units       decimal.Decimal
	UnitPrice   decimal.Decimal
	Fees        decimal.Decimal
	CashAssetID int32
	CashAmount  decimal.Decimal
}

// AssetSale disposes units FIFO at the sale price, realizing gain and
// crediting cash when a cash leg is present.
type AssetSale struct {
	actionBase
	AccountID   uuid.UUID
	AssetID     int32
	Units       decimal.Decimal
	UnitPrice   decimal.Decimal
	Fees        decimal.Decimal
	CashAssetID int32
	CashAmount  decimal.Decimal
}

// AssetTrade swaps one asset for another inside an account: a fair-value
// disposal of the source asset at its market rate, paired with an acquisition
// of the destination asset carrying the disposal's fair value as cost basis.
type AssetTrade struct {
	actionBase
	AccountID uuid.UUID
	FromAsset int32
	FromUnits decimal.Decimal
	ToAsset   int32
	ToUnits   decimal.Decimal
	Fees      decimal.Decimal
}

// AssetTransferIn brings units into an account from outside the ledger with a
// known acquisition price.
type AssetTransferIn struct {
	actionBase
	AccountID uuid.UUID
	AssetID   int32
	Units     decimal.Decimal
	UnitPrice decimal.Decimal
	Fees      decimal.Decimal
}

// AssetTransferOut moves units FIFO out of an account. When ToAccountID is
// set the move is internal: the carved lots land in the destination account
// with acquisition date and unit price preserved and no gain realized. When
// ToAccountID is nil the units leave the ledger.
type AssetTransferOut struct {
	actionBase
	FromAccountID uuid.UUID
	ToAccountID   *uuid.UUID
	AssetID       int32
	Units         decimal.Decimal
	Fees          decimal.Decimal
}

// AssetBalanceTransfer is an administrative quantity correction: the held
// quantity changes by Delta without FIFO consumption and without gain or
// loss impact.
type AssetBalanceTransfer struct {
	actionBase
	AccountID uuid.UUID
	AssetID   int32
	Delta     decimal.Decimal
}

// AssetDividend acquires units with zero cost basis; their eventual disposal
// realizes the full proceeds as gain.
type AssetDividend struct {
	actionBase
	AccountID uuid.UUID
	AssetID   int32
	Units     decimal.Decimal
}

// CashDividend credits cash paid out for holding OriginAssetID.
type CashDividend struct {
	actionBase
	AccountID     uuid.UUID
	OriginAssetID int32
	CashAssetID   int32
	Amount        decimal.Decimal
}

// CashTransferIn credits a cash balance.
type CashTransferIn struct {
	actionBase
	AccountID   uuid.UUID
	CashAssetID int32
	Amount      decimal.Decimal
	Fees        decimal.Decimal
}

// CashTransferOut debits a cash balance.
type CashTransferOut struct {
	actionBase
	AccountID   uuid.UUID
	CashAssetID int32
	Amount      decimal.Decimal
	Fees        decimal.Decimal
}

// AccountFees charges account-level fees against a cash balance.
type AccountFees struct {
	actionBase
	AccountID   uuid.UUID
	CashAssetID int32
	Amount      decimal.Decimal
}
