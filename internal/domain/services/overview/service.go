package overview

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/domain/ledger"
	"github.com/portfolio-service/portfolio_service/internal/domain/services/rates"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// Service rebuilds portfolio state from the transaction ledger and values it
// against a reference asset. Every overview replays the full history; nothing
// is read from materialized balances.
type Service struct {
	txRepo TransactionRepository
	rates  RateResolver
	logger *logger.Logger
	tracer trace.Tracer
}

// TransactionRepository interface for ledger persistence
type TransactionRepository interface {
	GetByUserID(ctx context.Context, userID uuid.UUID, until time.Time) ([]entities.TransactionRecord, error)
	GetHoldings(ctx context.Context, userID uuid.UUID) ([]entities.Holding, error)
}

// RateResolver interface for historical and spot rate resolution
type RateResolver interface {
	HistoricalSet(ctx context.Context, assetIDs []int32, referenceAssetID int32, until time.Time) (*rates.RateSet, error)
	SpotRates(ctx context.Context, assetIDs []int32, referenceAssetID int32, atOrBefore time.Time) (map[int32]entities.AssetRate, error)
}

// NewService creates a new overview service
func NewService(txRepo TransactionRepository, rateResolver RateResolver, logger *logger.Logger) *Service {
	return &Service{
		txRepo: txRepo,
		rates:  rateResolver,
		logger: logger,
		tracer: otel.Tracer("overview-service"),
	}
}

// GetOverview replays the user's ledger up to asOf and returns the valued
// portfolio. A zero asOf means now. Classification and replay errors abort
// the request; an unavailable valuation rate does not, the affected asset is
// reported with nil gains instead.
func (s *Service) GetOverview(ctx context.Context, userID uuid.UUID, referenceAssetID int32, asOf time.Time) (*entities.PortfolioOverview, error) {
	ctx, span := s.tracer.Start(ctx, "overview.get",
		trace.WithAttributes(
			attribute.String("user_id", userID.String()),
			attribute.Int("reference_asset_id", int(referenceAssetID)),
		))
	defer span.End()

	if asOf.IsZero() {
		asOf = time.Now()
	}

	portfolio, err := s.replay(ctx, userID, referenceAssetID, asOf)
	if err != nil {
		return nil, err
	}

	spot, err := s.rates.SpotRates(ctx, portfolio.AssetIDs(), referenceAssetID, asOf)
	if err != nil {
		return nil, fmt.Errorf("resolve valuation rates: %w", err)
	}

	return buildOverview(portfolio, referenceAssetID, asOf, spot), nil
}

// GetHoldings returns the user's current per-account asset holdings,
// aggregated by the persistence layer without a replay.
func (s *Service) GetHoldings(ctx context.Context, userID uuid.UUID) ([]entities.Holding, error) {
	ctx, span := s.tracer.Start(ctx, "overview.holdings",
		trace.WithAttributes(attribute.String("user_id", userID.String())))
	defer span.End()

	holdings, err := s.txRepo.GetHoldings(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get holdings: %w", err)
	}
	return holdings, nil
}

// replay loads the ledger, classifies it into actions, prefetches the rate
// series the replay may consult, and folds the actions into a portfolio.
func (s *Service) replay(ctx context.Context, userID uuid.UUID, referenceAssetID int32, until time.Time) (*ledger.Portfolio, error) {
	start := time.Now()

	records, err := s.txRepo.GetByUserID(ctx, userID, until)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}

	actions, classifyErrs := ledger.Classify(records)
	if len(classifyErrs) > 0 {
		metrics.RecordReplayError("classify")
		s.logger.Error("Ledger classification failed",
			"user_id", userID.String(),
			"errors", len(classifyErrs))
		return nil, fmt.Errorf("classify ledger: %w", errors.Join(classifyErrs...))
	}

	rateSet, err := s.rates.HistoricalSet(ctx, tradedAssetIDs(actions), referenceAssetID, until)
	if err != nil {
		return nil, fmt.Errorf("prefetch rates: %w", err)
	}

	portfolio, err := ledger.Replay(actions, referenceAssetID, rateSet)
	if err != nil {
		metrics.RecordReplayError("replay")
		return nil, fmt.Errorf("replay ledger: %w", err)
	}
	portfolio.Prune()

	metrics.RecordReplay(time.Since(start), len(records))
	s.logger.Debug("Replayed ledger",
		"user_id", userID.String(),
		"transactions", len(records),
		"duration_ms", time.Since(start).Milliseconds())

	return portfolio, nil
}

// tradedAssetIDs lists every asset an action touches, so the historical
// prefetch covers all pairs a trade conversion might need.
func tradedAssetIDs(actions []ledger.Action) []int32 {
	seen := make(map[int32]struct{})
	add := func(id int32) { seen[id] = struct{}{} }
	for _, action := range actions {
		switch a := action.(type) {
		case *ledger.AssetPurchase:
			add(a.AssetID)
		case *ledger.AssetSale:
			add(a.AssetID)
		case *ledger.AssetTrade:
			add(a.FromAsset)
			add(a.ToAsset)
		case *ledger.AssetTransferIn:
			add(a.AssetID)
		case *ledger.AssetTransferOut:
			add(a.AssetID)
		case *ledger.AssetBalanceTransfer:
			add(a.AssetID)
		case *ledger.AssetDividend:
			add(a.AssetID)
		}
	}
	ids := make([]int32, 0, len(seen))
	for id := range seen {
		ids = append(ids, id)
	}
	return ids
}

// buildOverview flattens replayed state into the valued response, one entry
// per (account, asset) pair plus one per cash balance. Assets without a spot
// rate keep their cost figures and carry nil gains.
func buildOverview(portfolio *ledger.Portfolio, referenceAssetID int32, asOf time.Time, spot map[int32]entities.AssetRate) *entities.PortfolioOverview {
	overview := &entities.PortfolioOverview{
		ReferenceAssetID: referenceAssetID,
		AsOf:             asOf,
		Assets:           []entities.AssetOverview{},
		Cash:             []entities.CashOverview{},
	}

	for _, accountID := range portfolio.AccountIDs() {
		account := portfolio.Accounts[accountID]
		for _, assetID := range account.AssetIDs() {
			ap := account.AssetPortfolios[assetID]
			asset := entities.AssetOverview{
				AccountID:      accountID,
				AssetID:        assetID,
				Units:          ap.Units,
				TotalFees:      ap.Fees,
				RealizedGain:   ap.RealizedGain,
				TotalCostBasis: ap.TotalCostBasis(),
				UnitCostBasis:  ap.UnitCostBasis(),
				CashDividends:  ap.CashDividends,
			}

			rate, haveRate := spot[assetID]
			for _, lot := range ap.OpenLots() {
				position := entities.PositionOverview{
					AcquiredAt:     lot.AcquiredAt,
					UnitPrice:      lot.UnitPrice,
					Acquired:       lot.Acquired,
					Remaining:      lot.Remaining,
					Sold:           lot.Sold(),
					Fees:           lot.Fees,
					Dividend:       lot.Dividend,
					Proceeds:       lot.Proceeds,
					TotalCostBasis: lot.CostBasis(),
					RealizedGain:   lot.RealizedGain,
				}
				if lot.Remaining.IsPositive() {
					position.UnitCostBasis = position.TotalCostBasis.Div(lot.Remaining)
				}
				if haveRate {
					unrealized := lot.UnrealizedGain(rate.Rate)
					total := lot.RealizedGain.Add(unrealized)
					position.UnrealizedGain = &unrealized
					position.TotalGain = &total
				}
				asset.Positions = append(asset.Positions, position)
			}

			if haveRate {
				unrealized := ap.UnrealizedGain(rate.Rate)
				total := ap.RealizedGain.Add(unrealized).Add(ap.CashDividends)
				asset.UnrealizedGain = &unrealized
				asset.TotalGain = &total
			}
			overview.Assets = append(overview.Assets, asset)
		}

		for _, cashAssetID := range account.CashAssetIDs() {
			cp := account.CashPortfolios[cashAssetID]
			overview.Cash = append(overview.Cash, entities.CashOverview{
				AccountID: accountID,
				AssetID:   cashAssetID,
				Balance:   cp.Balance,
				Fees:      cp.Fees,
				Dividends: cp.Dividends,
			})
		}
	}

	return overview
}
