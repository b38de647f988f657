package ledger

import (
	"time"

	"github.com/shopspring/decimal"
)

// Lot is one quantity of an asset acquired at a single point in time within
// one account. Disposals drain Remaining towards zero; a lot is never removed
// from its portfolio, so the full acquisition history stays auditable.
//
// Invariant: 0 <= Remaining <= Acquired.
type Lot struct {
	AcquiredAt time.Time
	// UnitPrice is the acquisition price per unit in the reference currency.
	// Zero for dividend lots.
	UnitPrice decimal.Decimal
	Acquired  decimal.Decimal
	Remaining decimal.Decimal
	// Fees attributed to this lot at acquisition, plus pro-rata shares of
	// disposal fees charged against it.
	Fees decimal.Decimal
	// Dividend marks a lot acquired with zero cost basis; its full disposal
	// proceeds realize as gain.
	Dividend bool
	// RealizedGain accumulated by this lot's disposals.
	RealizedGain decimal.Decimal
	// Proceeds is the gross value received for the sold part of the lot.
	Proceeds decimal.Decimal
}

func newLot(acquiredAt time.Time, unitPrice, quantity, fees decimal.Decimal) *Lot {
	return &Lot{
		AcquiredAt: acquiredAt,
		UnitPrice:  unitPrice,
		Acquired:   quantity,
		Remaining:  quantity,
		Fees:       fees,
	}
}

func newDividendLot(acquiredAt time.Time, quantity decimal.Decimal) *Lot {
	l := newLot(acquiredAt, decimal.Zero, quantity, decimal.Zero)
	l.Dividend = true
	return l
}

// Sold returns the quantity already disposed of.
func (l *Lot) Sold() decimal.Decimal {
	return l.Acquired.Sub(l.Remaining)
}

// sell drains quantity from the lot at the given price. feeShare is this
// lot's pro-rata share of the disposal fees; it reduces the realized gain.
// The caller guarantees quantity <= Remaining.
func (l *Lot) sell(quantity, price, feeShare decimal.Decimal) {
	l.Remaining = l.Remaining.Sub(quantity)
	l.Proceeds = l.Proceeds.Add(quantity.Mul(price))
	l.RealizedGain = l.RealizedGain.Add(quantity.Mul(price.Sub(l.UnitPrice)).Sub(feeShare))
	l.Fees = l.Fees.Add(feeShare)
}

// split carves quantity out of the lot for a transfer, preserving the
// acquisition date and unit price so the cost basis survives the move.
// transferFee is the share of the transfer fees carried by the new lot.
// The caller guarantees 0 < quantity <= Remaining.
func (l *Lot) split(quantity, transferFee decimal.Decimal) *Lot {
	movedFees := decimal.Zero
	if l.Remaining.IsPositive() {
		movedFees = l.Fees.Mul(quantity).Div(l.Remaining)
	}
	l.Remaining = l.Remaining.Sub(quantity)
	l.Acquired = l.Acquired.Sub(quantity)
	l.Fees = l.Fees.Sub(movedFees)

	moved := newLot(l.AcquiredAt, l.UnitPrice, quantity, movedFees.Add(transferFee))
	moved.Dividend = l.Dividend
	return moved
}

// merge folds another acquisition with identical date, price and dividend
// flag into this lot.
func (l *Lot) merge(other *Lot) {
	l.Acquired = l.Acquired.Add(other.Acquired)
	l.Remaining = l.Remaining.Add(other.Remaining)
	l.Fees = l.Fees.Add(other.Fees)
}

// sameIdentity reports whether two lots represent acquisitions that can be
// merged into one FIFO slot.
func (l *Lot) sameIdentity(other *Lot) bool {
	return l.AcquiredAt.Equal(other.AcquiredAt) &&
		l.UnitPrice.Equal(other.UnitPrice) &&
		l.Dividend == other.Dividend
}

// CostBasis is the acquisition value of the still-open part of the lot:
// remaining units at the unit price plus the attributable share of fees.
func (l *Lot) CostBasis() decimal.Decimal {
	basis := l.Remaining.Mul(l.UnitPrice)
	if l.Acquired.IsPositive() {
		basis = basis.Add(l.Fees.Mul(l.Remaining).Div(l.Acquired))
	}
	return basis
}

// UnrealizedGain is the paper gain of the open part of the lot against the
// given current rate.
func (l *Lot) UnrealizedGain(rate decimal.Decimal) decimal.Decimal {
	return l.Remaining.Mul(rate.Sub(l.UnitPrice))
}

// clone returns a deep copy of the lot.
func (l *Lot) clone() *Lot {
	c := *l
	return &c
}
