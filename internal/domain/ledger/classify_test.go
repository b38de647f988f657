package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

func record(kind entities.TransactionKind, assetID int32, quantity string, date time.Time) entities.TransactionRecord {
	return entities.TransactionRecord{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		AccountID: uuid.New(),
		Kind:      kind,
		AssetID:   assetID,
		Quantity:  dec(quantity),
		Date:      date,
	}
}

func withPrice(r entities.TransactionRecord, price string) entities.TransactionRecord {
	p := dec(price)
	r.UnitPrice = &p
	return r
}

func withLink(r entities.TransactionRecord, link uuid.UUID) entities.TransactionRecord {
	r.LinkID = &link
	return r
}

func TestClassify_PurchaseWithCashLeg(t *testing.T) {
	r := withPrice(record(entities.KindAssetPurchase, 1, "10", day(1)), "5")
	cash := int32(100)
	fee := dec("2")
	r.CashAssetID = &cash
	r.Fee = &fee

	actions, errs := Classify([]entities.TransactionRecord{r})
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	purchase, ok := actions[0].(*AssetPurchase)
	require.True(t, ok)
	assert.Equal(t, r.ID, purchase.TransactionID())
	assert.True(t, purchase.Units.Equal(dec("10")))
	assert.True(t, purchase.UnitPrice.Equal(dec("5")))
	assert.Equal(t, int32(100), purchase.CashAssetID)
	// No explicit cash amount: units at price plus the fee.
	assert.True(t, purchase.CashAmount.Equal(dec("52")))
}

func TestClassify_PurchaseWithoutPriceFails(t *testing.T) {
	r := record(entities.KindAssetPurchase, 1, "10", day(1))

	actions, errs := Classify([]entities.TransactionRecord{r})
	assert.Empty(t, actions)
	require.Len(t, errs, 1)

	var invalid *InvalidTransactionTypeError
	require.True(t, errors.As(errs[0], &invalid))
	assert.Equal(t, r.ID, invalid.TransactionID)
}

func TestClassify_TradeLegsJoinIntoOneAction(t *testing.T) {
	link := uuid.New()
	out := withLink(record(entities.KindAssetTradeOut, 1, "2", day(1)), link)
	in := withLink(record(entities.KindAssetTradeIn, 2, "40", day(1)), link)
	outFee, inFee := dec("1"), dec("0.5")
	out.Fee = &outFee
	in.Fee = &inFee

	actions, errs := Classify([]entities.TransactionRecord{out, in})
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	trade, ok := actions[0].(*AssetTrade)
	require.True(t, ok)
	assert.Equal(t, out.ID, trade.TransactionID())
	assert.Equal(t, int32(1), trade.FromAsset)
	assert.Equal(t, int32(2), trade.ToAsset)
	assert.True(t, trade.FromUnits.Equal(dec("2")))
	assert.True(t, trade.ToUnits.Equal(dec("40")))
	assert.True(t, trade.Fees.Equal(dec("1.5")))
}

func TestClassify_TradeLegsJoinRegardlessOfInputOrder(t *testing.T) {
	link := uuid.New()
	out := withLink(record(entities.KindAssetTradeOut, 1, "2", day(1)), link)
	in := withLink(record(entities.KindAssetTradeIn, 2, "40", day(1)), link)

	actions, errs := Classify([]entities.TransactionRecord{in, out})
	require.Empty(t, errs)
	require.Len(t, actions, 1)
	assert.IsType(t, &AssetTrade{}, actions[0])
}

func TestClassify_OrphanTradeInFails(t *testing.T) {
	in := withLink(record(entities.KindAssetTradeIn, 2, "40", day(1)), uuid.New())

	actions, errs := Classify([]entities.TransactionRecord{in})
	assert.Empty(t, actions)
	require.Len(t, errs, 1)

	var missing *MissingLinkedTransactionError
	require.True(t, errors.As(errs[0], &missing))
	assert.Equal(t, in.ID, missing.TransactionID)
	assert.Equal(t, *in.LinkID, missing.LinkID)
}

func TestClassify_OrphanTradeOutFails(t *testing.T) {
	out := withLink(record(entities.KindAssetTradeOut, 1, "2", day(1)), uuid.New())

	_, errs := Classify([]entities.TransactionRecord{out})
	require.Len(t, errs, 1)

	var missing *MissingLinkedTransactionError
	assert.True(t, errors.As(errs[0], &missing))
}

func TestClassify_LinkedTransferBecomesInternalMove(t *testing.T) {
	link := uuid.New()
	out := withLink(record(entities.KindAssetTransferOut, 1, "4", day(1)), link)
	in := withLink(record(entities.KindAssetTransferIn, 1, "4", day(1)), link)

	actions, errs := Classify([]entities.TransactionRecord{out, in})
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	transfer, ok := actions[0].(*AssetTransferOut)
	require.True(t, ok)
	assert.Equal(t, out.AccountID, transfer.FromAccountID)
	require.NotNil(t, transfer.ToAccountID)
	assert.Equal(t, in.AccountID, *transfer.ToAccountID)
}

func TestClassify_LinkedTransferJoinsRegardlessOfInputOrder(t *testing.T) {
	link := uuid.New()
	out := withLink(record(entities.KindAssetTransferOut, 1, "4", day(1)), link)
	in := withLink(record(entities.KindAssetTransferIn, 1, "4", day(1)), link)

	actions, errs := Classify([]entities.TransactionRecord{in, out})
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	transfer, ok := actions[0].(*AssetTransferOut)
	require.True(t, ok)
	require.NotNil(t, transfer.ToAccountID)
	assert.Equal(t, in.AccountID, *transfer.ToAccountID)
}

func TestClassify_DuplicateOutLegClaimsInLegOnlyOnce(t *testing.T) {
	link := uuid.New()
	first := withLink(record(entities.KindAssetTradeOut, 1, "2", day(1)), link)
	second := withLink(record(entities.KindAssetTradeOut, 1, "3", day(1)), link)
	in := withLink(record(entities.KindAssetTradeIn, 2, "40", day(1)), link)

	actions, errs := Classify([]entities.TransactionRecord{first, second, in})
	require.Len(t, actions, 1)
	require.Len(t, errs, 1)

	trade, ok := actions[0].(*AssetTrade)
	require.True(t, ok)
	assert.Equal(t, first.ID, trade.TransactionID())

	var missing *MissingLinkedTransactionError
	require.True(t, errors.As(errs[0], &missing))
	assert.Equal(t, second.ID, missing.TransactionID)
}

func TestClassify_UnlinkedTransferOutLeavesLedger(t *testing.T) {
	out := record(entities.KindAssetTransferOut, 1, "4", day(1))

	actions, errs := Classify([]entities.TransactionRecord{out})
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	transfer, ok := actions[0].(*AssetTransferOut)
	require.True(t, ok)
	assert.Nil(t, transfer.ToAccountID)
}

func TestClassify_UnlinkedTransferInRequiresPrice(t *testing.T) {
	in := record(entities.KindAssetTransferIn, 1, "4", day(1))

	_, errs := Classify([]entities.TransactionRecord{in})
	require.Len(t, errs, 1)
	var invalid *InvalidTransactionTypeError
	assert.True(t, errors.As(errs[0], &invalid))

	actions, errs := Classify([]entities.TransactionRecord{withPrice(in, "7")})
	require.Empty(t, errs)
	require.Len(t, actions, 1)
	transferIn, ok := actions[0].(*AssetTransferIn)
	require.True(t, ok)
	assert.True(t, transferIn.UnitPrice.Equal(dec("7")))
}

func TestClassify_CashDividendRequiresCashAsset(t *testing.T) {
	r := record(entities.KindCashDividend, 1, "25", day(1))

	_, errs := Classify([]entities.TransactionRecord{r})
	require.Len(t, errs, 1)

	cash := int32(100)
	r.CashAssetID = &cash
	actions, errs := Classify([]entities.TransactionRecord{r})
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	dividend, ok := actions[0].(*CashDividend)
	require.True(t, ok)
	assert.Equal(t, int32(1), dividend.OriginAssetID)
	assert.Equal(t, int32(100), dividend.CashAssetID)
	assert.True(t, dividend.Amount.Equal(dec("25")))
}

func TestClassify_UnknownKindFails(t *testing.T) {
	r := record(entities.TransactionKind("margin_call"), 1, "1", day(1))

	actions, errs := Classify([]entities.TransactionRecord{r})
	assert.Empty(t, actions)
	require.Len(t, errs, 1)

	var invalid *InvalidTransactionTypeError
	require.True(t, errors.As(errs[0], &invalid))
	assert.Equal(t, entities.TransactionKind("margin_call"), invalid.Kind)
}

func TestClassify_BadRecordDoesNotPoisonOthers(t *testing.T) {
	good := withPrice(record(entities.KindAssetPurchase, 1, "10", day(1)), "5")
	bad := record(entities.TransactionKind("margin_call"), 1, "1", day(2))
	sale := withPrice(record(entities.KindAssetSale, 1, "3", day(3)), "6")

	actions, errs := Classify([]entities.TransactionRecord{good, bad, sale})
	assert.Len(t, errs, 1)
	require.Len(t, actions, 2)
	assert.IsType(t, &AssetPurchase{}, actions[0])
	assert.IsType(t, &AssetSale{}, actions[1])
}

func TestClassify_SaleCashAmountDeductsFee(t *testing.T) {
	r := withPrice(record(entities.KindAssetSale, 1, "10", day(1)), "5")
	cash := int32(100)
	fee := dec("3")
	r.CashAssetID = &cash
	r.Fee = &fee

	actions, errs := Classify([]entities.TransactionRecord{r})
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	sale := actions[0].(*AssetSale)
	assert.True(t, sale.CashAmount.Equal(dec("47")))
}

func TestClassify_ExplicitCashAmountWins(t *testing.T) {
	r := withPrice(record(entities.KindAssetSale, 1, "10", day(1)), "5")
	cash := int32(100)
	amount := dec("48.5")
	r.CashAssetID = &cash
	r.CashAmount = &amount

	actions, errs := Classify([]entities.TransactionRecord{r})
	require.Empty(t, errs)

	sale := actions[0].(*AssetSale)
	assert.True(t, sale.CashAmount.Equal(dec("48.5")))
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

func TestClassify_AccountFees(t *testing.T) {
	r := record(entities.KindAccountFees, 100, "9.90", day(1))
	r.Fee = decPtr("0")

	actions, errs := Classify([]entities.TransactionRecord{r})
	require.Empty(t, errs)
	require.Len(t, actions, 1)

	fees, ok := actions[0].(*AccountFees)
	require.True(t, ok)
	assert.Equal(t, int32(100), fees.CashAssetID)
	assert.True(t, fees.Amount.Equal(dec("9.90")))
}
