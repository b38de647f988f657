package rates

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/pkg/logger"
	"github.com/portfolio-service/portfolio_service/pkg/metrics"
)

// Service resolves exchange rates between assets and the user's reference
// asset. Historical lookups are prefetched into a RateSet so ledger replays
// stay free of I/O; spot lookups go through the cache first.
type Service struct {
	rateRepo  RateRepository
	assetRepo AssetRepository
	cache     RateCache
	logger    *logger.Logger
}

// RateRepository interface for rate series persistence
type RateRepository interface {
	GetPairRates(ctx context.Context, pairs []entities.AssetPair, until time.Time) ([]entities.AssetPairRate, error)
	GetLatestRates(ctx context.Context, pairs []entities.AssetPair, atOrBefore time.Time) ([]entities.AssetPairRate, error)
	ListActivePairs(ctx context.Context) ([]entities.AssetPair, error)
}

// AssetRepository interface for asset metadata
type AssetRepository interface {
	GetBasePairs(ctx context.Context, assetIDs []int32) (map[int32]int32, error)
}

// RateCache interface for short-lived spot rate caching. A nil cache entry
// means miss, not zero rate.
type RateCache interface {
	Get(ctx context.Context, pair entities.AssetPair) (*entities.AssetRate, error)
	Set(ctx context.Context, pair entities.AssetPair, rate entities.AssetRate) error
}

// spotCacheWindow bounds how far in the past an as-of instant may lie while
// the latest-rate cache is still consulted. Older instants bypass the cache
// entirely; it only ever holds current observations.
const spotCacheWindow = time.Minute

// NewService creates a new rates service. cache may be nil to disable spot
// rate caching.
func NewService(rateRepo RateRepository, assetRepo AssetRepository, cache RateCache, logger *logger.Logger) *Service {
	return &Service{
		rateRepo:  rateRepo,
		assetRepo: assetRepo,
		cache:     cache,
		logger:    logger,
	}
}

// HistoricalSet prefetches every rate series a replay over the given assets
// could consult: each asset against its base pair and each base pair against
// the reference asset, up to and including the given instant.
func (s *Service) HistoricalSet(ctx context.Context, assetIDs []int32, referenceAssetID int32, until time.Time) (*RateSet, error) {
	basePairs, err := s.assetRepo.GetBasePairs(ctx, assetIDs)
	if err != nil {
		return nil, fmt.Errorf("get base pairs: %w", err)
	}

	pairs := resolutionPairs(assetIDs, referenceAssetID, basePairs)
	if len(pairs) == 0 {
		return NewRateSet(nil, basePairs), nil
	}

	observations, err := s.rateRepo.GetPairRates(ctx, pairs, until)
	if err != nil {
		return nil, fmt.Errorf("get pair rates: %w", err)
	}
	s.logger.Debug("Prefetched historical rates",
		"pairs", len(pairs),
		"observations", len(observations),
		"until", until.Format(time.RFC3339))

	return NewRateSet(observations, basePairs), nil
}

// SpotRates resolves the latest known rate from each asset to the reference
// asset, chaining through base pairs when no direct quote exists. Assets with
// no resolvable rate are absent from the result rather than reported as an
// error; valuation degrades per asset.
func (s *Service) SpotRates(ctx context.Context, assetIDs []int32, referenceAssetID int32, atOrBefore time.Time) (map[int32]entities.AssetRate, error) {
	resolved := make(map[int32]entities.AssetRate, len(assetIDs))
	missing := make([]int32, 0, len(assetIDs))
	useCache := atOrBefore.IsZero() || time.Since(atOrBefore) < spotCacheWindow

	for _, assetID := range assetIDs {
		if assetID == referenceAssetID {
			resolved[assetID] = entities.AssetRate{Rate: decimal.NewFromInt(1), RecordedAt: atOrBefore}
			continue
		}
		if useCache {
			if rate, ok := s.cachedRate(ctx, entities.AssetPair{From: assetID, To: referenceAssetID}, atOrBefore); ok {
				resolved[assetID] = rate
				continue
			}
		}
		missing = append(missing, assetID)
	}
	if len(missing) == 0 {
		return resolved, nil
	}

	basePairs, err := s.assetRepo.GetBasePairs(ctx, missing)
	if err != nil {
		return nil, fmt.Errorf("get base pairs: %w", err)
	}
	pairs := resolutionPairs(missing, referenceAssetID, basePairs)
	observations, err := s.rateRepo.GetLatestRates(ctx, pairs, atOrBefore)
	if err != nil {
		return nil, fmt.Errorf("get latest rates: %w", err)
	}

	set := NewRateSet(observations, basePairs)
	lookupAt := atOrBefore
	if lookupAt.IsZero() {
		lookupAt = time.Now()
	}
	for _, assetID := range missing {
		pair := entities.AssetPair{From: assetID, To: referenceAssetID}
		rate, ok := set.Lookup(pair, lookupAt)
		metrics.RecordRateLookup(ok)
		if !ok {
			s.logger.Warn("No rate available for asset", "asset_id", assetID, "reference_asset_id", referenceAssetID)
			continue
		}
		resolved[assetID] = rate
		if useCache {
			s.storeRate(ctx, pair, rate)
		}
	}
	return resolved, nil
}

// WarmCache resolves the latest rate for every actively quoted pair and
// stores it in the cache. Invoked on a schedule by the rate cache worker.
func (s *Service) WarmCache(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	pairs, err := s.rateRepo.ListActivePairs(ctx)
	if err != nil {
		return fmt.Errorf("list active pairs: %w", err)
	}
	if len(pairs) == 0 {
		return nil
	}
	observations, err := s.rateRepo.GetLatestRates(ctx, pairs, time.Time{})
	if err != nil {
		return fmt.Errorf("get latest rates: %w", err)
	}
	for _, obs := range observations {
		s.storeRate(ctx, obs.Pair(), entities.AssetRate{Rate: obs.Rate, RecordedAt: obs.RecordedAt})
	}
	s.logger.Info("Warmed rate cache", "pairs", len(pairs), "rates", len(observations))
	return nil
}

// cachedRate serves a cached spot rate, treating entries recorded after the
// as-of instant as misses so a lookup never sees a rate from its own future.
func (s *Service) cachedRate(ctx context.Context, pair entities.AssetPair, atOrBefore time.Time) (entities.AssetRate, bool) {
	if s.cache == nil {
		return entities.AssetRate{}, false
	}
	rate, err := s.cache.Get(ctx, pair)
	if err != nil {
		s.logger.Warn("Rate cache read failed", "error", err, "from", pair.From, "to", pair.To)
		return entities.AssetRate{}, false
	}
	hit := rate != nil && (atOrBefore.IsZero() || !rate.RecordedAt.After(atOrBefore))
	metrics.RecordRateCacheLookup(hit)
	if !hit {
		return entities.AssetRate{}, false
	}
	return *rate, true
}

func (s *Service) storeRate(ctx context.Context, pair entities.AssetPair, rate entities.AssetRate) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Set(ctx, pair, rate); err != nil {
		s.logger.Warn("Rate cache write failed", "error", err, "from", pair.From, "to", pair.To)
	}
}

// resolutionPairs lists the direct pairs worth fetching to resolve the given
// assets against the reference: asset→base for quoted assets plus base→ref
// for each distinct base, with degenerate pairs filtered out.
func resolutionPairs(assetIDs []int32, referenceAssetID int32, basePairs map[int32]int32) []entities.AssetPair {
	seen := make(map[entities.AssetPair]struct{})
	var pairs []entities.AssetPair
	add := func(pair entities.AssetPair) {
		if pair.From == pair.To {
			return
		}
		if _, ok := seen[pair]; ok {
			return
		}
		seen[pair] = struct{}{}
		pairs = append(pairs, pair)
	}
	for _, assetID := range assetIDs {
		if assetID == referenceAssetID {
			continue
		}
		add(entities.AssetPair{From: assetID, To: referenceAssetID})
		if base, ok := basePairs[assetID]; ok {
			add(entities.AssetPair{From: assetID, To: base})
			add(entities.AssetPair{From: base, To: referenceAssetID})
		}
	}
	return pairs
}
