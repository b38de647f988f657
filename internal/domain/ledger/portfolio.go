package ledger

import (
	"sort"

	"github.com/google/uuid"
)

// AccountPortfolio groups the per-asset and per-currency portfolios of one
// account.
type AccountPortfolio struct {
	AssetPortfolios map[int32]*AssetPortfolio
	CashPortfolios  map[int32]*CashPortfolio
}

func newAccountPortfolio() *AccountPortfolio {
	return &AccountPortfolio{
		AssetPortfolios: make(map[int32]*AssetPortfolio),
		CashPortfolios:  make(map[int32]*CashPortfolio),
	}
}

// Portfolio is the full replay state of one user: every account's open lots
// and cash balances. It is owned exclusively by the replay that builds it and
// is treated as an immutable snapshot afterwards.
type Portfolio struct {
	Accounts map[uuid.UUID]*AccountPortfolio
}

// NewPortfolio returns an empty portfolio.
func NewPortfolio() *Portfolio {
	return &Portfolio{Accounts: make(map[uuid.UUID]*AccountPortfolio)}
}

func (p *Portfolio) account(id uuid.UUID) *AccountPortfolio {
	acc, ok := p.Accounts[id]
	if !ok {
		acc = newAccountPortfolio()
		p.Accounts[id] = acc
	}
	return acc
}

func (p *Portfolio) assetPortfolio(accountID uuid.UUID, assetID int32) *AssetPortfolio {
	acc := p.account(accountID)
	ap, ok := acc.AssetPortfolios[assetID]
	if !ok {
		ap = newAssetPortfolio()
		acc.AssetPortfolios[assetID] = ap
	}
	return ap
}

func (p *Portfolio) cashPortfolio(accountID uuid.UUID, assetID int32) *CashPortfolio {
	acc := p.account(accountID)
	cp, ok := acc.CashPortfolios[assetID]
	if !ok {
		cp = newCashPortfolio()
		acc.CashPortfolios[assetID] = cp
	}
	return cp
}

// lookupAsset returns the asset portfolio without creating one.
func (p *Portfolio) lookupAsset(accountID uuid.UUID, assetID int32) *AssetPortfolio {
	if acc, ok := p.Accounts[accountID]; ok {
		return acc.AssetPortfolios[assetID]
	}
	return nil
}

// AssetIDs returns the account's asset portfolio keys in ascending order.
func (a *AccountPortfolio) AssetIDs() []int32 {
	ids := make([]int32, 0, len(a.AssetPortfolios))
	for id := range a.AssetPortfolios {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// CashAssetIDs returns the account's cash portfolio keys in ascending order.
func (a *AccountPortfolio) CashAssetIDs() []int32 {
	ids := make([]int32, 0, len(a.CashPortfolios))
	for id := range a.CashPortfolios {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Prune drops asset portfolios that never held anything and zero-valued cash
// portfolios, then removes accounts left without content.
func (p *Portfolio) Prune() {
	for accountID, acc := range p.Accounts {
		for assetID, ap := range acc.AssetPortfolios {
			if ap.isEmpty() {
				delete(acc.AssetPortfolios, assetID)
			}
		}
		for assetID, cp := range acc.CashPortfolios {
			if cp.isEmpty() {
				delete(acc.CashPortfolios, assetID)
			}
		}
		if len(acc.AssetPortfolios) == 0 && len(acc.CashPortfolios) == 0 {
			delete(p.Accounts, accountID)
		}
	}
}

// AssetIDs returns every asset id that appears in an asset portfolio, sorted.
func (p *Portfolio) AssetIDs() []int32 {
	seen := make(map[int32]struct{})
	for _, acc := range p.Accounts {
		for assetID := range acc.AssetPortfolios {
			seen[assetID] = struct{}{}
		}
	}
	ids := make([]int32, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// AccountIDs returns the account ids in a deterministic order.
func (p *Portfolio) AccountIDs() []uuid.UUID {
	ids := make([]uuid.UUID, 0, len(p.Accounts))
	for id := range p.Accounts {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids
}

// Clone returns a deep copy of the portfolio.
func (p *Portfolio) Clone() *Portfolio {
	c := NewPortfolio()
	for accountID, acc := range p.Accounts {
		cacc := newAccountPortfolio()
		for assetID, ap := range acc.AssetPortfolios {
			cacc.AssetPortfolios[assetID] = ap.clone()
		}
		for assetID, cp := range acc.CashPortfolios {
			cacc.CashPortfolios[assetID] = cp.clone()
		}
		c.Accounts[accountID] = cacc
	}
	return c
}
