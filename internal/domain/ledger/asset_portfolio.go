package ledger

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// AssetPortfolio tracks the open lots and running aggregates of one
// (account, asset) pair. Lots are kept oldest-first and consumed from the
// front, which makes the slice the FIFO queue for disposals.
//
// Invariant: Units equals the sum of Remaining over all lots.
type AssetPortfolio struct {
	Lots []*Lot
	// Units is the total quantity still held.
	Units decimal.Decimal
	// Fees paid across all lots, acquisitions and disposals included.
	Fees decimal.Decimal
	// RealizedGain locked in by disposals.
	RealizedGain decimal.Decimal
	// CashDividends received in cash for holding this asset.
	CashDividends decimal.Decimal
}

func newAssetPortfolio() *AssetPortfolio {
	return &AssetPortfolio{}
}

// addLot inserts a lot keeping the oldest-first order. An acquisition with
// the same date, unit price and dividend flag as an existing lot folds into
// it, so repeated same-day fills occupy one FIFO slot.
func (ap *AssetPortfolio) addLot(l *Lot) {
	ap.Units = ap.Units.Add(l.Remaining)
	ap.Fees = ap.Fees.Add(l.Fees)

	for _, existing := range ap.Lots {
		if existing.sameIdentity(l) {
			existing.merge(l)
			return
		}
	}

	idx := sort.Search(len(ap.Lots), func(i int) bool {
		return ap.Lots[i].AcquiredAt.After(l.AcquiredAt)
	})
	ap.Lots = append(ap.Lots, nil)
	copy(ap.Lots[idx+1:], ap.Lots[idx:])
	ap.Lots[idx] = l
}

// sell consumes quantity oldest-first at the given price, distributing fees
// pro-rata over the consumed slices. The caller has already verified that
// quantity <= Units.
func (ap *AssetPortfolio) sell(quantity, price, fees decimal.Decimal) {
	left := quantity
	for _, lot := range ap.Lots {
		if !left.IsPositive() {
			break
		}
		if !lot.Remaining.IsPositive() {
			continue
		}
		consumed := decimal.Min(lot.Remaining, left)
		feeShare := decimal.Zero
		if quantity.IsPositive() {
			feeShare = fees.Mul(consumed).Div(quantity)
		}
		before := lot.RealizedGain
		lot.sell(consumed, price, feeShare)
		ap.RealizedGain = ap.RealizedGain.Add(lot.RealizedGain.Sub(before))
		left = left.Sub(consumed)
	}
	ap.Units = ap.Units.Sub(quantity)
	ap.Fees = ap.Fees.Add(fees)
}

// remove carves quantity out of the portfolio oldest-first for a transfer and
// returns the carved lots with acquisition date and unit price preserved.
// No gain is realized; transfer fees are spread pro-rata over the moved lots.
// The caller has already verified that quantity <= Units.
func (ap *AssetPortfolio) remove(quantity, fees decimal.Decimal) []*Lot {
	var moved []*Lot
	left := quantity
	for _, lot := range ap.Lots {
		if !left.IsPositive() {
			break
		}
		if !lot.Remaining.IsPositive() {
			continue
		}
		taking := decimal.Min(lot.Remaining, left)
		transferFee := decimal.Zero
		if quantity.IsPositive() {
			transferFee = fees.Mul(taking).Div(quantity)
		}
		feesBefore := lot.Fees
		carved := lot.split(taking, transferFee)
		ap.Fees = ap.Fees.Sub(feesBefore.Sub(lot.Fees))
		moved = append(moved, carved)
		left = left.Sub(taking)
	}
	ap.Units = ap.Units.Sub(quantity)
	return moved
}

// adjust applies an administrative quantity correction without consuming or
// creating FIFO slots and without gain or loss impact. Positive deltas grow
// the newest lot; negative deltas shrink lots oldest-first, reducing Acquired
// and Remaining in step so the cost-basis math stays untouched.
func (ap *AssetPortfolio) adjust(delta decimal.Decimal, at time.Time) {
	if delta.IsPositive() {
		if len(ap.Lots) == 0 {
			// Nothing to attach the correction to; it becomes a
			// zero-cost holding.
			ap.addLot(newLot(at, decimal.Zero, delta, decimal.Zero))
			return
		}
		newest := ap.Lots[len(ap.Lots)-1]
		newest.Acquired = newest.Acquired.Add(delta)
		newest.Remaining = newest.Remaining.Add(delta)
		ap.Units = ap.Units.Add(delta)
		return
	}

	left := delta.Neg()
	for _, lot := range ap.Lots {
		if !left.IsPositive() {
			break
		}
		if !lot.Remaining.IsPositive() {
			continue
		}
		taking := decimal.Min(lot.Remaining, left)
		lot.Remaining = lot.Remaining.Sub(taking)
		lot.Acquired = lot.Acquired.Sub(taking)
		left = left.Sub(taking)
	}
	ap.Units = ap.Units.Add(delta)
}

// addCashDividends records cash received for holding this asset.
func (ap *AssetPortfolio) addCashDividends(amount decimal.Decimal) {
	ap.CashDividends = ap.CashDividends.Add(amount)
}

// OpenLots returns the lots with remaining quantity, oldest first.
func (ap *AssetPortfolio) OpenLots() []*Lot {
	var open []*Lot
	for _, lot := range ap.Lots {
		if lot.Remaining.IsPositive() {
			open = append(open, lot)
		}
	}
	return open
}

// TotalCostBasis is the acquisition value of all still-open lots.
func (ap *AssetPortfolio) TotalCostBasis() decimal.Decimal {
	total := decimal.Zero
	for _, lot := range ap.Lots {
		if lot.Remaining.IsPositive() {
			total = total.Add(lot.CostBasis())
		}
	}
	return total
}

// UnitCostBasis is the average acquisition value per still-held unit.
func (ap *AssetPortfolio) UnitCostBasis() decimal.Decimal {
	if !ap.Units.IsPositive() {
		return decimal.Zero
	}
	return ap.TotalCostBasis().Div(ap.Units)
}

// UnrealizedGain is the paper gain of all open lots against the current rate.
func (ap *AssetPortfolio) UnrealizedGain(rate decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, lot := range ap.Lots {
		total = total.Add(lot.UnrealizedGain(rate))
	}
	return total
}

// isEmpty reports whether the portfolio carries no information worth showing:
// no lots ever recorded and no cash dividends received.
func (ap *AssetPortfolio) isEmpty() bool {
	return len(ap.Lots) == 0 && ap.CashDividends.IsZero()
}

func (ap *AssetPortfolio) clone() *AssetPortfolio {
	c := &AssetPortfolio{
		Units:         ap.Units,
		Fees:          ap.Fees,
		RealizedGain:  ap.RealizedGain,
		CashDividends: ap.CashDividends,
	}
	for _, lot := range ap.Lots {
		c.Lots = append(c.Lots, lot.clone())
	}
	return c
}
