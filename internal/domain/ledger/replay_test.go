package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

const refAsset = int32(100)

// fixedRates serves lookups from a static table, respecting the at-or-before
// contract.
type fixedRates struct {
	rates map[entities.AssetPair]entities.AssetRate
}

func (f *fixedRates) Lookup(pair entities.AssetPair, atOrBefore time.Time) (entities.AssetRate, bool) {
	rate, ok := f.rates[pair]
	if !ok || rate.RecordedAt.After(atOrBefore) {
		return entities.AssetRate{}, false
	}
	return rate, true
}

func ratesAt(at time.Time, pairs map[entities.AssetPair]string) *fixedRates {
	f := &fixedRates{rates: make(map[entities.AssetPair]entities.AssetRate)}
	for pair, rate := range pairs {
		f.rates[pair] = entities.AssetRate{Rate: dec(rate), RecordedAt: at}
	}
	return f
}

func base(n int) actionBase {
	// Deterministic ids so the date tie-break is stable across runs.
	return actionBase{
		TxID: uuid.MustParse(uuid.NewMD5(uuid.NameSpaceOID, []byte{byte(n)}).String()),
		At:   day(n),
	}
}

func TestReplay_PurchaseThenSaleFIFO(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("10"), UnitPrice: dec("1")},
		&AssetPurchase{actionBase: base(2), AccountID: account, AssetID: 1, Units: dec("5"), UnitPrice: dec("2")},
		&AssetSale{actionBase: base(3), AccountID: account, AssetID: 1, Units: dec("12"), UnitPrice: dec("3")},
	}

	p, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)

	ap := p.Accounts[account].AssetPortfolios[1]
	assert.True(t, ap.RealizedGain.Equal(dec("22")))
	assert.True(t, ap.Units.Equal(dec("3")))
	assert.True(t, ap.UnitCostBasis().Equal(dec("2")))
}

func TestReplay_CashLegsMoveWithTheAsset(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&CashTransferIn{actionBase: base(1), AccountID: account, CashAssetID: refAsset, Amount: dec("1000")},
		&AssetPurchase{
			actionBase: base(2), AccountID: account, AssetID: 1,
			Units: dec("10"), UnitPrice: dec("50"), Fees: dec("5"),
			CashAssetID: refAsset, CashAmount: dec("505"),
		},
		&AssetSale{
			actionBase: base(3), AccountID: account, AssetID: 1,
			Units: dec("4"), UnitPrice: dec("60"),
			CashAssetID: refAsset, CashAmount: dec("240"),
		},
	}

	p, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)

	cp := p.Accounts[account].CashPortfolios[refAsset]
	assert.True(t, cp.Balance.Equal(dec("735")), "balance: %s", cp.Balance)
}

func TestReplay_OversellFailsAtomically(t *testing.T) {
	account := uuid.New()
	p, err := Replay([]Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("5"), UnitPrice: dec("10")},
	}, refAsset, nil)
	require.NoError(t, err)

	before := p.Clone()
	err = p.Apply(&AssetSale{
		actionBase: base(2), AccountID: account, AssetID: 1,
		Units: dec("8"), UnitPrice: dec("12"),
	}, refAsset, nil)

	var insufficient *InsufficientHoldingsError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, insufficient.Requested.Equal(dec("8")))
	assert.True(t, insufficient.Available.Equal(dec("5")))
	assert.Equal(t, before, p)
}

func TestReplay_OversellOfUnknownAssetLeavesNoTrace(t *testing.T) {
	account := uuid.New()
	p := NewPortfolio()

	err := p.Apply(&AssetSale{
		actionBase: base(1), AccountID: account, AssetID: 1,
		Units: dec("1"), UnitPrice: dec("10"),
	}, refAsset, nil)

	var insufficient *InsufficientHoldingsError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, insufficient.Available.IsZero())
	assert.Empty(t, p.Accounts)
}

func TestReplay_InternalTransferPreservesCostBasis(t *testing.T) {
	from, to := uuid.New(), uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: from, AssetID: 1, Units: dec("10"), UnitPrice: dec("5"), Fees: dec("2")},
		&AssetTransferOut{actionBase: base(2), FromAccountID: from, ToAccountID: &to, AssetID: 1, Units: dec("4")},
	}

	p, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)

	source := p.Accounts[from].AssetPortfolios[1]
	dest := p.Accounts[to].AssetPortfolios[1]

	assert.True(t, source.Units.Equal(dec("6")))
	assert.True(t, dest.Units.Equal(dec("4")))
	assert.True(t, source.RealizedGain.IsZero())
	assert.True(t, dest.RealizedGain.IsZero())

	// The moved lot keeps its acquisition identity.
	require.Len(t, dest.Lots, 1)
	assert.Equal(t, day(1), dest.Lots[0].AcquiredAt)
	assert.True(t, dest.Lots[0].UnitPrice.Equal(dec("5")))

	combined := source.TotalCostBasis().Add(dest.TotalCostBasis())
	assert.True(t, combined.Equal(dec("52")), "combined basis: %s", combined)
}

func TestReplay_ExternalTransferOutDropsUnits(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("10"), UnitPrice: dec("5")},
		&AssetTransferOut{actionBase: base(2), FromAccountID: account, AssetID: 1, Units: dec("10")},
	}

	p, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)

	ap := p.Accounts[account].AssetPortfolios[1]
	assert.True(t, ap.Units.IsZero())
	assert.True(t, ap.RealizedGain.IsZero())
	assert.Len(t, p.Accounts, 1)
}

func TestReplay_TradeRealizesAtFairValue(t *testing.T) {
	account := uuid.New()
	rates := ratesAt(day(2), map[entities.AssetPair]string{
		{From: 1, To: refAsset}: "150",
	})
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("10"), UnitPrice: dec("100")},
		&AssetTrade{actionBase: base(3), AccountID: account, FromAsset: 1, FromUnits: dec("2"), ToAsset: 2, ToUnits: dec("40")},
	}

	p, err := Replay(actions, refAsset, rates)
	require.NoError(t, err)

	source := p.Accounts[account].AssetPortfolios[1]
	dest := p.Accounts[account].AssetPortfolios[2]

	assert.True(t, source.RealizedGain.Equal(dec("100")), "realized: %s", source.RealizedGain)
	assert.True(t, source.Units.Equal(dec("8")))

	// 2 units at 150 spread over 40 received units.
	require.Len(t, dest.Lots, 1)
	assert.True(t, dest.Lots[0].UnitPrice.Equal(dec("7.5")))
	assert.True(t, dest.Units.Equal(dec("40")))
}

func TestReplay_TradeWithoutRateFails(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("10"), UnitPrice: dec("100")},
		&AssetTrade{actionBase: base(2), AccountID: account, FromAsset: 1, FromUnits: dec("2"), ToAsset: 2, ToUnits: dec("40")},
	}

	_, err := Replay(actions, refAsset, ratesAt(day(1), nil))

	var unavailable *RateUnavailableError
	require.True(t, errors.As(err, &unavailable))
	assert.Equal(t, entities.AssetPair{From: 1, To: refAsset}, unavailable.Pair)
	assert.Equal(t, day(2), unavailable.At)
}

func TestReplay_TradeRateMustPredateTheTrade(t *testing.T) {
	account := uuid.New()
	// Only observation is recorded after the trade date.
	rates := ratesAt(day(5), map[entities.AssetPair]string{
		{From: 1, To: refAsset}: "150",
	})
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("10"), UnitPrice: dec("100")},
		&AssetTrade{actionBase: base(2), AccountID: account, FromAsset: 1, FromUnits: dec("2"), ToAsset: 2, ToUnits: dec("40")},
	}

	_, err := Replay(actions, refAsset, rates)

	var unavailable *RateUnavailableError
	assert.True(t, errors.As(err, &unavailable))
}

func TestReplay_TradingReferenceAssetNeedsNoRate(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: refAsset, Units: dec("100"), UnitPrice: dec("1")},
		&AssetTrade{actionBase: base(2), AccountID: account, FromAsset: refAsset, FromUnits: dec("100"), ToAsset: 2, ToUnits: dec("4")},
	}

	p, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)

	dest := p.Accounts[account].AssetPortfolios[2]
	assert.True(t, dest.Lots[0].UnitPrice.Equal(dec("25")))
}

func TestReplay_DividendActions(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetDividend{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("3")},
		&CashDividend{actionBase: base(2), AccountID: account, OriginAssetID: 1, CashAssetID: refAsset, Amount: dec("25")},
	}

	p, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)

	ap := p.Accounts[account].AssetPortfolios[1]
	assert.True(t, ap.Units.Equal(dec("3")))
	assert.True(t, ap.TotalCostBasis().IsZero())
	assert.True(t, ap.CashDividends.Equal(dec("25")))

	cp := p.Accounts[account].CashPortfolios[refAsset]
	assert.True(t, cp.Balance.Equal(dec("25")))
	assert.True(t, cp.Dividends.Equal(dec("25")))
}

func TestReplay_DeterministicAcrossInputOrder(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("10"), UnitPrice: dec("1")},
		&AssetPurchase{actionBase: base(2), AccountID: account, AssetID: 1, Units: dec("5"), UnitPrice: dec("2")},
		&AssetSale{actionBase: base(3), AccountID: account, AssetID: 1, Units: dec("12"), UnitPrice: dec("3")},
		&CashTransferIn{actionBase: base(4), AccountID: account, CashAssetID: refAsset, Amount: dec("100")},
	}
	shuffled := []Action{actions[2], actions[3], actions[0], actions[1]}

	p1, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)
	p2, err := Replay(shuffled, refAsset, nil)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
}

func TestReplay_SameDayTieBreaksOnTransactionID(t *testing.T) {
	account := uuid.New()
	purchase := &AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("5"), UnitPrice: dec("1")}
	sale := &AssetSale{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("5"), UnitPrice: dec("2")}
	// Force the sale to order after the purchase on the shared date.
	purchase.TxID = uuid.MustParse("00000000-0000-0000-0000-000000000001")
	sale.TxID = uuid.MustParse("00000000-0000-0000-0000-000000000002")

	p1, err := Replay([]Action{sale, purchase}, refAsset, nil)
	require.NoError(t, err)
	p2, err := Replay([]Action{purchase, sale}, refAsset, nil)
	require.NoError(t, err)

	assert.Equal(t, p1, p2)
	assert.True(t, p1.Accounts[account].AssetPortfolios[1].Units.IsZero())
}

func TestReplayOrdered_RejectsOutOfOrderStream(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(2), AccountID: account, AssetID: 1, Units: dec("5"), UnitPrice: dec("1")},
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("5"), UnitPrice: dec("1")},
	}

	_, err := ReplayOrdered(actions, refAsset, nil)

	var outOfOrder *OutOfOrderEventError
	require.True(t, errors.As(err, &outOfOrder))
	assert.Equal(t, day(1), outOfOrder.At)
	assert.Equal(t, day(2), outOfOrder.Previous)
}

func TestReplay_BalanceTransferShrinkIsNotAGain(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("10"), UnitPrice: dec("5")},
		&AssetBalanceTransfer{actionBase: base(2), AccountID: account, AssetID: 1, Delta: dec("-4")},
	}

	p, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)

	ap := p.Accounts[account].AssetPortfolios[1]
	assert.True(t, ap.Units.Equal(dec("6")))
	assert.True(t, ap.RealizedGain.IsZero())
	assert.True(t, ap.TotalCostBasis().Equal(dec("30")))
}

func TestReplay_BalanceTransferCannotOverdraw(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&AssetPurchase{actionBase: base(1), AccountID: account, AssetID: 1, Units: dec("3"), UnitPrice: dec("5")},
		&AssetBalanceTransfer{actionBase: base(2), AccountID: account, AssetID: 1, Delta: dec("-4")},
	}

	_, err := Replay(actions, refAsset, nil)

	var insufficient *InsufficientHoldingsError
	require.True(t, errors.As(err, &insufficient))
	assert.True(t, insufficient.Requested.Equal(dec("4")))
}

func TestReplay_AccountFeesDebitCash(t *testing.T) {
	account := uuid.New()
	actions := []Action{
		&CashTransferIn{actionBase: base(1), AccountID: account, CashAssetID: refAsset, Amount: dec("100")},
		&AccountFees{actionBase: base(2), AccountID: account, CashAssetID: refAsset, Amount: dec("9.90")},
		&CashTransferOut{actionBase: base(3), AccountID: account, CashAssetID: refAsset, Amount: dec("50"), Fees: dec("0.10")},
	}

	p, err := Replay(actions, refAsset, nil)
	require.NoError(t, err)

	cp := p.Accounts[account].CashPortfolios[refAsset]
	assert.True(t, cp.Balance.Equal(dec("40.10")), "balance: %s", cp.Balance)
	assert.True(t, cp.Fees.Equal(dec("10.00")), "fees: %s", cp.Fees)
}

func TestPortfolio_PruneDropsEmptyEntries(t *testing.T) {
	account := uuid.New()
	p := NewPortfolio()

	// A portfolio touched by a lookup-miss pattern: created, never filled.
	p.assetPortfolio(account, 1)
	p.cashPortfolio(account, refAsset)
	require.NoError(t, p.Apply(&AssetPurchase{
		actionBase: base(1), AccountID: account, AssetID: 2,
		Units: dec("1"), UnitPrice: dec("1"),
	}, refAsset, nil))

	p.Prune()

	require.Contains(t, p.Accounts, account)
	assert.NotContains(t, p.Accounts[account].AssetPortfolios, int32(1))
	assert.Contains(t, p.Accounts[account].AssetPortfolios, int32(2))
	assert.NotContains(t, p.Accounts[account].CashPortfolios, refAsset)
}
