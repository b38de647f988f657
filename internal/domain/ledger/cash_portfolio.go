package ledger

import "github.com/shopspring/decimal"

// CashPortfolio tracks the running cash figures of one (account, currency)
// pair. Cash has no cost basis, so no lots are kept.
type CashPortfolio struct {
	Balance   decimal.Decimal
	Fees      decimal.Decimal
	Dividends decimal.Decimal
}

func newCashPortfolio() *CashPortfolio {
	return &CashPortfolio{}
}

func (cp *CashPortfolio) addBalance(amount decimal.Decimal) {
	cp.Balance = cp.Balance.Add(amount)
}

func (cp *CashPortfolio) addFees(amount decimal.Decimal) {
	cp.Fees = cp.Fees.Add(amount)
}

func (cp *CashPortfolio) addDividends(amount decimal.Decimal) {
	cp.Dividends = cp.Dividends.Add(amount)
}

func (cp *CashPortfolio) isEmpty() bool {
	return cp.Balance.IsZero() && cp.Fees.IsZero() && cp.Dividends.IsZero()
}

func (cp *CashPortfolio) clone() *CashPortfolio {
	c := *cp
	return &c
}
