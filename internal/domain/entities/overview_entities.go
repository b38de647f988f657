package entities

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PositionOverview is the gain breakdown of one still-open lot.
type PositionOverview struct {
	AcquiredAt     time.Time        `json:"acquired_at"`
	UnitPrice      decimal.Decimal  `json:"unit_price"`
	Acquired       decimal.Decimal  `json:"quantity_acquired"`
	Remaining      decimal.Decimal  `json:"quantity_remaining"`
	Sold           decimal.Decimal  `json:"quantity_sold"`
	Fees           decimal.Decimal  `json:"fees"`
	Dividend       bool             `json:"is_dividend"`
	Proceeds       decimal.Decimal  `json:"sale_proceeds"`
	TotalCostBasis decimal.Decimal  `json:"total_cost_basis"`
	UnitCostBasis  decimal.Decimal  `json:"unit_cost_basis"`
	RealizedGain   decimal.Decimal  `json:"realized_gain"`
	UnrealizedGain *decimal.Decimal `json:"unrealized_gain,omitempty"`
	TotalGain      *decimal.Decimal `json:"total_gain,omitempty"`
}

// AssetOverview is the computed overview of one (account, asset) pair.
// UnrealizedGain and TotalGain are nil when no exchange rate at or before the
// as-of date exists for the asset; the rest of the figures remain valid.
type AssetOverview struct {
	AccountID      uuid.UUID          `json:"account_id"`
	AssetID        int32              `json:"asset_id"`
	Units          decimal.Decimal    `json:"total_units"`
	TotalFees      decimal.Decimal    `json:"total_fees"`
	RealizedGain   decimal.Decimal    `json:"realized_gain"`
	UnrealizedGain *decimal.Decimal   `json:"unrealized_gain,omitempty"`
	TotalGain      *decimal.Decimal   `json:"total_gain,omitempty"`
	TotalCostBasis decimal.Decimal    `json:"total_cost_basis"`
	UnitCostBasis  decimal.Decimal    `json:"unit_cost_basis"`
	CashDividends  decimal.Decimal    `json:"cash_dividends"`
	Positions      []PositionOverview `json:"positions"`
}

// CashOverview is the computed overview of one (account, currency) pair.
type CashOverview struct {
	AccountID uuid.UUID       `json:"account_id"`
	AssetID   int32           `json:"asset_id"`
	Balance   decimal.Decimal `json:"balance"`
	Fees      decimal.Decimal `json:"fees"`
	Dividends decimal.Decimal `json:"dividends"`
}

// PortfolioOverview is the full overview of a user's portfolio valued in the
// reference asset at the as-of instant.
type PortfolioOverview struct {
	ReferenceAssetID int32           `json:"reference_asset_id"`
	AsOf             time.Time       `json:"as_of"`
	Assets           []AssetOverview `json:"assets"`
	Cash             []CashOverview  `json:"cash"`
}
