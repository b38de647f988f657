package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// TransactionKind identifies the raw transaction type stored in the database.
type TransactionKind string

const (
	KindAssetPurchase        TransactionKind = "asset_purchase"
	KindAssetSale            TransactionKind = "asset_sale"
	KindAssetTradeIn         TransactionKind = "asset_trade_in"
	KindAssetTradeOut        TransactionKind = "asset_trade_out"
	KindAssetTransferIn      TransactionKind = "asset_transfer_in"
	KindAssetTransferOut     TransactionKind = "asset_transfer_out"
	KindAssetBalanceTransfer TransactionKind = "asset_balance_transfer"
	KindAssetDividend        TransactionKind = "asset_dividend"
	KindCashDividend         TransactionKind = "cash_dividend"
	KindCashTransferIn       TransactionKind = "cash_transfer_in"
	KindCashTransferOut      TransactionKind = "cash_transfer_out"
	KindAccountFees          TransactionKind = "account_fees"
)

// TransactionRecord is one raw transaction row as produced by the persistence
// layer. Quantity is expressed in units of AssetID; UnitPrice, CashAmount and
// Fee are expressed in units of CashAssetID (or the reference currency when no
// cash asset applies). LinkID pairs the two legs of a trade or an internal
// transfer.
type TransactionRecord struct {
	ID          uuid.UUID        `db:"id" json:"id"`
	UserID      uuid.UUID        `db:"user_id" json:"user_id"`
	AccountID   uuid.UUID        `db:"account_id" json:"account_id"`
	Kind        TransactionKind  `db:"kind" json:"kind"`
	AssetID     int32            `db:"asset_id" json:"asset_id"`
	CashAssetID *int32           `db:"cash_asset_id" json:"cash_asset_id,omitempty"`
	Quantity    decimal.Decimal  `db:"quantity" json:"quantity"`
	UnitPrice   *decimal.Decimal `db:"unit_price" json:"unit_price,omitempty"`
	CashAmount  *decimal.Decimal `db:"cash_amount" json:"cash_amount,omitempty"`
	Fee         *decimal.Decimal `db:"fee" json:"fee,omitempty"`
	LinkID      *uuid.UUID       `db:"link_id" json:"link_id,omitempty"`
	Date        time.Time        `db:"date" json:"date"`
	Description *string          `db:"description" json:"description,omitempty"`
}

// Asset is a tradable instrument or currency. BasePairID is the asset this
// asset's rates are quoted against (for example a stock quoted in USD).
type Asset struct {
	ID         int32  `db:"id" json:"id"`
	Ticker     string `db:"ticker" json:"ticker"`
	Name       string `db:"name" json:"name"`
	BasePairID *int32 `db:"base_pair_id" json:"base_pair_id,omitempty"`
}

// Account is one investment account owned by a user.
type Account struct {
	ID     uuid.UUID `db:"id" json:"id"`
	UserID uuid.UUID `db:"user_id" json:"user_id"`
	Name   string    `db:"name" json:"name"`
}

// AssetPair identifies a directed rate pair: one unit of From is worth
// Rate units of To.
type AssetPair struct {
	From int32 `db:"from" json:"from"`
	To   int32 `db:"to" json:"to"`
}

// AssetRate is a single observation of an exchange rate.
type AssetRate struct {
	Rate       decimal.Decimal `db:"rate" json:"rate"`
	RecordedAt time.Time       `db:"recorded_at" json:"recorded_at"`
}

// AssetPairRate is a rate observation together with the pair it belongs to,
// as stored in the rate series table.
type AssetPairRate struct {
	Pair1      int32           `db:"pair1" json:"pair1"`
	Pair2      int32           `db:"pair2" json:"pair2"`
	Rate       decimal.Decimal `db:"rate" json:"rate"`
	RecordedAt time.Time       `db:"recorded_at" json:"recorded_at"`
}

// Pair returns the directed pair of the observation.
func (r AssetPairRate) Pair() AssetPair {
	return AssetPair{From: r.Pair1, To: r.Pair2}
}

// Holding is the units of one asset held in one account, aggregated directly
// by the persistence layer without a full ledger replay.
type Holding struct {
	AccountID uuid.UUID       `db:"account_id" json:"account_id"`
	AssetID   int32           `db:"asset_id" json:"asset_id"`
	Units     decimal.Decimal `db:"units" json:"units"`
}
