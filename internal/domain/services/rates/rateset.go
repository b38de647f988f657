package rates

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// RateSet is a prefetched, purely in-memory view over historical rate series.
// It satisfies ledger.RateSource: lookups are binary searches over per-pair
// series sorted by observation time, so a replay consulting it never blocks.
//
// When a pair has no direct series, the lookup chains through the From
// asset's base pair (asset→base times base→reference), mirroring how quotes
// are stored: instruments against their trading currency, currencies against
// each other.
type RateSet struct {
	series    map[entities.AssetPair][]entities.AssetRate
	basePairs map[int32]int32
}

// NewRateSet builds a rate set from raw observations. basePairs maps an asset
// to the asset its quotes are denominated in; it may be nil when no chaining
// is needed.
func NewRateSet(observations []entities.AssetPairRate, basePairs map[int32]int32) *RateSet {
	s := &RateSet{
		series:    make(map[entities.AssetPair][]entities.AssetRate),
		basePairs: basePairs,
	}
	for _, obs := range observations {
		pair := obs.Pair()
		s.series[pair] = append(s.series[pair], entities.AssetRate{Rate: obs.Rate, RecordedAt: obs.RecordedAt})
	}
	for pair := range s.series {
		sort.Slice(s.series[pair], func(i, j int) bool {
			return s.series[pair][i].RecordedAt.Before(s.series[pair][j].RecordedAt)
		})
	}
	return s
}

// Lookup returns the most recent observation for the pair not later than the
// given instant. A rate recorded after atOrBefore is never returned.
func (s *RateSet) Lookup(pair entities.AssetPair, atOrBefore time.Time) (entities.AssetRate, bool) {
	if pair.From == pair.To {
		return entities.AssetRate{Rate: decimal.NewFromInt(1), RecordedAt: atOrBefore}, true
	}

	if rate, ok := s.direct(pair, atOrBefore); ok {
		return rate, true
	}

	base, ok := s.basePairs[pair.From]
	if !ok || base == pair.From || base == pair.To {
		return entities.AssetRate{}, false
	}
	leg1, ok := s.direct(entities.AssetPair{From: pair.From, To: base}, atOrBefore)
	if !ok {
		return entities.AssetRate{}, false
	}
	leg2, ok := s.Lookup(entities.AssetPair{From: base, To: pair.To}, atOrBefore)
	if !ok {
		return entities.AssetRate{}, false
	}
	return entities.AssetRate{
		Rate:       leg1.Rate.Mul(leg2.Rate),
		RecordedAt: leg1.RecordedAt,
	}, true
}

func (s *RateSet) direct(pair entities.AssetPair, atOrBefore time.Time) (entities.AssetRate, bool) {
	series := s.series[pair]
	// First index recorded strictly after the instant; the answer sits just
	// before it.
	idx := sort.Search(len(series), func(i int) bool {
		return series[i].RecordedAt.After(atOrBefore)
	})
	if idx == 0 {
		return entities.AssetRate{}, false
	}
	return series[idx-1], true
}
