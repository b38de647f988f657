package ledger

import (
	"bytes"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// RateSource answers historical exchange-rate lookups. Lookup returns the
// most recent observation not later than the given instant; it must never
// answer with a rate recorded after it. Implementations used during replay
// are expected to be prefetched and purely in-memory so the reduction never
// blocks.
type RateSource interface {
	Lookup(pair entities.AssetPair, atOrBefore time.Time) (entities.AssetRate, bool)
}

// Replay reduces the actions into a fresh portfolio. Actions are ordered by
// (date ascending, transaction id ascending) first, so two replays of the
// same set produce identical state regardless of input order. refAssetID is
// the asset trades are fair-valued in; rates serves those valuations.
//
// A failing action aborts the replay with the state untouched by it: every
// apply validates before mutating, so no partial mutation survives an error.
func Replay(actions []Action, refAssetID int32, rates RateSource) (*Portfolio, error) {
	ordered := make([]Action, len(actions))
	copy(ordered, actions)
	SortActions(ordered)
	return ReplayOrdered(ordered, refAssetID, rates)
}

// ReplayOrdered is Replay for a caller that already holds a sorted stream.
// Ordering is verified; a violation fails with OutOfOrderEventError.
func ReplayOrdered(actions []Action, refAssetID int32, rates RateSource) (*Portfolio, error) {
	for i := 1; i < len(actions); i++ {
		if actionLess(actions[i], actions[i-1]) {
			return nil, &OutOfOrderEventError{
				TransactionID: actions[i].TransactionID(),
				At:            actions[i].Date(),
				Previous:      actions[i-1].Date(),
			}
		}
	}

	p := NewPortfolio()
	for _, action := range actions {
		if err := p.Apply(action, refAssetID, rates); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// SortActions fixes the deterministic total order used by the replay:
// date ascending, transaction id ascending as the tie-break.
func SortActions(actions []Action) {
	sort.SliceStable(actions, func(i, j int) bool {
		return actionLess(actions[i], actions[j])
	})
}

func actionLess(a, b Action) bool {
	if !a.Date().Equal(b.Date()) {
		return a.Date().Before(b.Date())
	}
	ai, bi := a.TransactionID(), b.TransactionID()
	return bytes.Compare(ai[:], bi[:]) < 0
}

// Apply transitions the portfolio by one action. The application is atomic:
// every variant validates against the current state before the first
// mutation, so on error the portfolio is exactly as it was.
func (p *Portfolio) Apply(action Action, refAssetID int32, rates RateSource) error {
	switch a := action.(type) {
	case *AssetPurchase:
		lot := newLot(a.At, a.UnitPrice, a.Units, a.Fees)
		p.assetPortfolio(a.AccountID, a.AssetID).addLot(lot)
		if a.CashAssetID != 0 {
			p.cashPortfolio(a.AccountID, a.CashAssetID).addBalance(a.CashAmount.Neg())
		}
		return nil

	case *AssetSale:
		ap := p.lookupAsset(a.AccountID, a.AssetID)
		if ap == nil || ap.Units.LessThan(a.Units) {
			return &InsufficientHoldingsError{
				TransactionID: a.TxID,
				AccountID:     a.AccountID,
				AssetID:       a.AssetID,
				Requested:     a.Units,
				Available:     availableUnits(ap),
			}
		}
		ap.sell(a.Units, a.UnitPrice, a.Fees)
		if a.CashAssetID != 0 {
			p.cashPortfolio(a.AccountID, a.CashAssetID).addBalance(a.CashAmount)
		}
		return nil

	case *AssetTrade:
		rate, ok := tradeRate(a, refAssetID, rates)
		if !ok {
			return &RateUnavailableError{
				TransactionID: a.TxID,
				Pair:          entities.AssetPair{From: a.FromAsset, To: refAssetID},
				At:            a.At,
			}
		}
		ap := p.lookupAsset(a.AccountID, a.FromAsset)
		if ap == nil || ap.Units.LessThan(a.FromUnits) {
			return &InsufficientHoldingsError{
				TransactionID: a.TxID,
				AccountID:     a.AccountID,
				AssetID:       a.FromAsset,
				Requested:     a.FromUnits,
				Available:     availableUnits(ap),
			}
		}
		// Disposal at fair value realizes gain exactly like a sale; the
		// same fair value becomes the destination lot's cost basis.
		ap.sell(a.FromUnits, rate, a.Fees)
		fairValue := a.FromUnits.Mul(rate)
		unitPrice := decimal.Zero
		if a.ToUnits.IsPositive() {
			unitPrice = fairValue.Div(a.ToUnits)
		}
		p.assetPortfolio(a.AccountID, a.ToAsset).addLot(newLot(a.At, unitPrice, a.ToUnits, decimal.Zero))
		return nil

	case *AssetTransferIn:
		lot := newLot(a.At, a.UnitPrice, a.Units, a.Fees)
		p.assetPortfolio(a.AccountID, a.AssetID).addLot(lot)
		return nil

	case *AssetTransferOut:
		ap := p.lookupAsset(a.FromAccountID, a.AssetID)
		if ap == nil || ap.Units.LessThan(a.Units) {
			return &InsufficientHoldingsError{
				TransactionID: a.TxID,
				AccountID:     a.FromAccountID,
				AssetID:       a.AssetID,
				Requested:     a.Units,
				Available:     availableUnits(ap),
			}
		}
		moved := ap.remove(a.Units, a.Fees)
		if a.ToAccountID != nil {
			dest := p.assetPortfolio(*a.ToAccountID, a.AssetID)
			for _, lot := range moved {
				dest.addLot(lot)
			}
		}
		return nil

	case *AssetBalanceTransfer:
		if a.Delta.IsNegative() {
			ap := p.lookupAsset(a.AccountID, a.AssetID)
			if ap == nil || ap.Units.LessThan(a.Delta.Neg()) {
				return &InsufficientHoldingsError{
					TransactionID: a.TxID,
					AccountID:     a.AccountID,
					AssetID:       a.AssetID,
					Requested:     a.Delta.Neg(),
					Available:     availableUnits(ap),
				}
			}
		}
		p.assetPortfolio(a.AccountID, a.AssetID).adjust(a.Delta, a.At)
		return nil

	case *AssetDividend:
		p.assetPortfolio(a.AccountID, a.AssetID).addLot(newDividendLot(a.At, a.Units))
		return nil

	case *CashDividend:
		p.assetPortfolio(a.AccountID, a.OriginAssetID).addCashDividends(a.Amount)
		cp := p.cashPortfolio(a.AccountID, a.CashAssetID)
		cp.addBalance(a.Amount)
		cp.addDividends(a.Amount)
		return nil

	case *CashTransferIn:
		cp := p.cashPortfolio(a.AccountID, a.CashAssetID)
		cp.addBalance(a.Amount)
		cp.addFees(a.Fees)
		return nil

	case *CashTransferOut:
		cp := p.cashPortfolio(a.AccountID, a.CashAssetID)
		cp.addBalance(a.Amount.Neg())
		cp.addFees(a.Fees)
		return nil

	case *AccountFees:
		cp := p.cashPortfolio(a.AccountID, a.CashAssetID)
		cp.addBalance(a.Amount.Neg())
		cp.addFees(a.Amount)
		return nil

	default:
		return &InvalidTransactionTypeError{
			TransactionID: action.TransactionID(),
			Reason:        "unhandled action variant",
		}
	}
}

func availableUnits(ap *AssetPortfolio) decimal.Decimal {
	if ap == nil {
		return decimal.Zero
	}
	return ap.Units
}

// tradeRate resolves the fair-market rate of the traded-away asset in the
// reference asset. Trading the reference asset itself values at one.
func tradeRate(a *AssetTrade, refAssetID int32, rates RateSource) (decimal.Decimal, bool) {
	if a.FromAsset == refAssetID {
		return decimal.NewFromInt(1), true
	}
	if rates == nil {
		return decimal.Zero, false
	}
	observed, ok := rates.Lookup(entities.AssetPair{From: a.FromAsset, To: refAssetID}, a.At)
	if !ok {
		return decimal.Zero, false
	}
	return observed.Rate, true
}
