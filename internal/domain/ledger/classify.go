package ledger

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// Classify maps raw transaction records onto the closed action taxonomy.
// Trade legs and internal transfer legs are joined through their link id into
// a single action keyed by the disposal leg.
//
// A record that cannot be classified yields an error carrying its id and
// produces no action; the remaining records are still classified. Callers
// deciding to proceed despite errors do so knowing the replayed totals no
// longer reflect the full history.
func Classify(records []entities.TransactionRecord) ([]Action, []error) {
	byLink := make(map[uuid.UUID][]*entities.TransactionRecord)
	for i := range records {
		if records[i].LinkID != nil {
			byLink[*records[i].LinkID] = append(byLink[*records[i].LinkID], &records[i])
		}
	}

	consumed := make(map[uuid.UUID]bool)
	actions := make([]Action, 0, len(records))
	var errs []error
	var inLegs []*entities.TransactionRecord

	for i := range records {
		r := &records[i]
		if consumed[r.ID] {
			continue
		}

		// An in leg is claimed by its out leg, which may sit anywhere in
		// the slice. Hold it back until every out leg has resolved.
		if isInLeg(r) {
			inLegs = append(inLegs, r)
			continue
		}

		action, err := classifyRecord(r, byLink, consumed)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if action != nil {
			actions = append(actions, action)
		}
	}

	// Any in leg still unclaimed has no out leg.
	for _, r := range inLegs {
		if !consumed[r.ID] {
			errs = append(errs, missingLink(r))
		}
	}
	return actions, errs
}

// isInLeg reports whether the record is the acquisition half of a trade or
// the receiving half of an internal transfer.
func isInLeg(r *entities.TransactionRecord) bool {
	switch r.Kind {
	case entities.KindAssetTradeIn:
		return true
	case entities.KindAssetTransferIn:
		return r.LinkID != nil
	}
	return false
}

func classifyRecord(r *entities.TransactionRecord, byLink map[uuid.UUID][]*entities.TransactionRecord, consumed map[uuid.UUID]bool) (Action, error) {
	base := actionBase{TxID: r.ID, At: r.Date}

	switch r.Kind {
	case entities.KindAssetPurchase:
		price, err := requirePrice(r)
		if err != nil {
			return nil, err
		}
		a := &AssetPurchase{
			actionBase: base,
			AccountID:  r.AccountID,
			AssetID:    r.AssetID,
			Units:      r.Quantity,
			UnitPrice:  price,
			Fees:       fee(r),
		}
		if r.CashAssetID != nil {
			a.CashAssetID = *r.CashAssetID
			a.CashAmount = cashAmount(r, r.Quantity.Mul(price).Add(fee(r)))
		}
		return a, nil

	case entities.KindAssetSale:
		price, err := requirePrice(r)
		if err != nil {
			return nil, err
		}
		a := &AssetSale{
			actionBase: base,
			AccountID:  r.AccountID,
			AssetID:    r.AssetID,
			Units:      r.Quantity,
			UnitPrice:  price,
			Fees:       fee(r),
		}
		if r.CashAssetID != nil {
			a.CashAssetID = *r.CashAssetID
			a.CashAmount = cashAmount(r, r.Quantity.Mul(price).Sub(fee(r)))
		}
		return a, nil

	case entities.KindAssetTradeOut:
		in, err := counterpart(r, entities.KindAssetTradeIn, byLink, consumed)
		if err != nil {
			return nil, err
		}
		consumed[in.ID] = true
		return &AssetTrade{
			actionBase: base,
			AccountID:  r.AccountID,
			FromAsset:  r.AssetID,
			FromUnits:  r.Quantity,
			ToAsset:    in.AssetID,
			ToUnits:    in.Quantity,
			Fees:       fee(r).Add(fee(in)),
		}, nil

	case entities.KindAssetTransferOut:
		if r.LinkID == nil {
			return &AssetTransferOut{
				actionBase:    base,
				FromAccountID: r.AccountID,
				AssetID:       r.AssetID,
				Units:         r.Quantity,
				Fees:          fee(r),
			}, nil
		}
		in, err := counterpart(r, entities.KindAssetTransferIn, byLink, consumed)
		if err != nil {
			return nil, err
		}
		consumed[in.ID] = true
		to := in.AccountID
		return &AssetTransferOut{
			actionBase:    base,
			FromAccountID: r.AccountID,
			ToAccountID:   &to,
			AssetID:       r.AssetID,
			Units:         r.Quantity,
			Fees:          fee(r).Add(fee(in)),
		}, nil

	case entities.KindAssetTransferIn:
		// Linked in legs never reach here; Classify holds them back for
		// their out leg. An unlinked one is an external deposit.
		price, err := requirePrice(r)
		if err != nil {
			return nil, err
		}
		return &AssetTransferIn{
			actionBase: base,
			AccountID:  r.AccountID,
			AssetID:    r.AssetID,
			Units:      r.Quantity,
			UnitPrice:  price,
			Fees:       fee(r),
		}, nil

	case entities.KindAssetBalanceTransfer:
		return &AssetBalanceTransfer{
			actionBase: base,
			AccountID:  r.AccountID,
			AssetID:    r.AssetID,
			Delta:      r.Quantity,
		}, nil

	case entities.KindAssetDividend:
		return &AssetDividend{
			actionBase: base,
			AccountID:  r.AccountID,
			AssetID:    r.AssetID,
			Units:      r.Quantity,
		}, nil

	case entities.KindCashDividend:
		if r.CashAssetID == nil {
			return nil, &InvalidTransactionTypeError{
				TransactionID: r.ID,
				Kind:          r.Kind,
				Reason:        "cash dividend requires a cash asset",
			}
		}
		return &CashDividend{
			actionBase:    base,
			AccountID:     r.AccountID,
			OriginAssetID: r.AssetID,
			CashAssetID:   *r.CashAssetID,
			Amount:        r.Quantity,
		}, nil

	case entities.KindCashTransferIn:
		return &CashTransferIn{
			actionBase:  base,
			AccountID:   r.AccountID,
			CashAssetID: r.AssetID,
			Amount:      r.Quantity,
			Fees:        fee(r),
		}, nil

	case entities.KindCashTransferOut:
		return &CashTransferOut{
			actionBase:  base,
			AccountID:   r.AccountID,
			CashAssetID: r.AssetID,
			Amount:      r.Quantity,
			Fees:        fee(r),
		}, nil

	case entities.KindAccountFees:
		return &AccountFees{
			actionBase:  base,
			AccountID:   r.AccountID,
			CashAssetID: r.AssetID,
			Amount:      r.Quantity,
		}, nil

	default:
		return nil, &InvalidTransactionTypeError{TransactionID: r.ID, Kind: r.Kind}
	}
}

// counterpart resolves the linked leg of a trade or internal transfer.
// Legs already claimed by an earlier out leg are not reusable.
func counterpart(r *entities.TransactionRecord, kind entities.TransactionKind, byLink map[uuid.UUID][]*entities.TransactionRecord, consumed map[uuid.UUID]bool) (*entities.TransactionRecord, error) {
	if r.LinkID == nil {
		return nil, missingLink(r)
	}
	for _, candidate := range byLink[*r.LinkID] {
		if candidate.ID != r.ID && candidate.Kind == kind && !consumed[candidate.ID] {
			return candidate, nil
		}
	}
	return nil, missingLink(r)
}

func missingLink(r *entities.TransactionRecord) error {
	linkID := uuid.Nil
	if r.LinkID != nil {
		linkID = *r.LinkID
	}
	return &MissingLinkedTransactionError{TransactionID: r.ID, LinkID: linkID}
}

func requirePrice(r *entities.TransactionRecord) (decimal.Decimal, error) {
	if r.UnitPrice == nil {
		return decimal.Zero, &InvalidTransactionTypeError{
			TransactionID: r.ID,
			Kind:          r.Kind,
			Reason:        "unit price is required",
		}
	}
	return *r.UnitPrice, nil
}

func fee(r *entities.TransactionRecord) decimal.Decimal {
	if r.Fee == nil {
		return decimal.Zero
	}
	return *r.Fee
}

func cashAmount(r *entities.TransactionRecord, fallback decimal.Decimal) decimal.Decimal {
	if r.CashAmount != nil {
		return *r.CashAmount
	}
	return fallback
}
