package repositories

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// RateRepository handles exchange rate series persistence
type RateRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewRateRepository creates a new rate repository
func NewRateRepository(db *sqlx.DB, logger *zap.Logger) *RateRepository {
	return &RateRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("rate-repository"),
	}
}

// GetPairRates returns the full observation series for the given pairs up to
// and including the given instant, ordered by observation time.
func (r *RateRepository) GetPairRates(ctx context.Context, pairs []entities.AssetPair, until time.Time) ([]entities.AssetPairRate, error) {
	ctx, span := r.tracer.Start(ctx, "rate_repo.get_pair_rates", trace.WithAttributes(
		attribute.Int("pairs", len(pairs)),
	))
	defer span.End()

	if len(pairs) == 0 {
		return nil, nil
	}
	defer observeQuery("select", "asset_rates")()

	condition, args := pairCondition(pairs, 2)
	query := fmt.Sprintf(`
		SELECT pair1, pair2, rate, recorded_at
		FROM asset_rates
		WHERE recorded_at <= $1 AND (%s)
		ORDER BY pair1, pair2, recorded_at ASC
	`, condition)
	args = append([]interface{}{until}, args...)

	var rates []entities.AssetPairRate
	if err := r.db.SelectContext(ctx, &rates, query, args...); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to query pair rates", zap.Error(err))
		return nil, fmt.Errorf("failed to query pair rates: %w", err)
	}

	span.SetAttributes(attribute.Int("observations", len(rates)))
	return rates, nil
}

// GetLatestRates returns the single most recent observation per pair. A zero
// atOrBefore places no upper bound on the observation time.
func (r *RateRepository) GetLatestRates(ctx context.Context, pairs []entities.AssetPair, atOrBefore time.Time) ([]entities.AssetPairRate, error) {
	ctx, span := r.tracer.Start(ctx, "rate_repo.get_latest_rates", trace.WithAttributes(
		attribute.Int("pairs", len(pairs)),
	))
	defer span.End()

	if len(pairs) == 0 {
		return nil, nil
	}
	defer observeQuery("select", "asset_rates")()

	bound := atOrBefore
	if bound.IsZero() {
		bound = time.Now().Add(time.Hour)
	}

	condition, args := pairCondition(pairs, 2)
	query := fmt.Sprintf(`
		SELECT DISTINCT ON (pair1, pair2) pair1, pair2, rate, recorded_at
		FROM asset_rates
		WHERE recorded_at <= $1 AND (%s)
		ORDER BY pair1, pair2, recorded_at DESC
	`, condition)
	args = append([]interface{}{bound}, args...)

	var rates []entities.AssetPairRate
	if err := r.db.SelectContext(ctx, &rates, query, args...); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to query latest rates", zap.Error(err))
		return nil, fmt.Errorf("failed to query latest rates: %w", err)
	}

	return rates, nil
}

// ListActivePairs returns every directed pair with at least one observation.
func (r *RateRepository) ListActivePairs(ctx context.Context) ([]entities.AssetPair, error) {
	ctx, span := r.tracer.Start(ctx, "rate_repo.list_active_pairs")
	defer span.End()
	defer observeQuery("select", "asset_rates")()

	query := `
		SELECT DISTINCT pair1 AS "from", pair2 AS "to"
		FROM asset_rates
		ORDER BY pair1, pair2
	`

	var pairs []entities.AssetPair
	if err := r.db.SelectContext(ctx, &pairs, query); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to list active pairs", zap.Error(err))
		return nil, fmt.Errorf("failed to list active pairs: %w", err)
	}

	return pairs, nil
}

// Insert stores one rate observation.
func (r *RateRepository) Insert(ctx context.Context, rate *entities.AssetPairRate) error {
	ctx, span := r.tracer.Start(ctx, "rate_repo.insert")
	defer span.End()
	defer observeQuery("insert", "asset_rates")()

	query := `
		INSERT INTO asset_rates (pair1, pair2, rate, recorded_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (pair1, pair2, recorded_at) DO UPDATE SET rate = EXCLUDED.rate
	`

	if _, err := r.db.ExecContext(ctx, query, rate.Pair1, rate.Pair2, rate.Rate, rate.RecordedAt); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to insert rate: %w", err)
	}
	return nil
}

// pairCondition builds an OR chain matching the given directed pairs, with
// placeholders starting at firstArg.
func pairCondition(pairs []entities.AssetPair, firstArg int) (string, []interface{}) {
	clauses := make([]string, 0, len(pairs))
	args := make([]interface{}, 0, len(pairs)*2)
	idx := firstArg
	for _, pair := range pairs {
		clauses = append(clauses, fmt.Sprintf("(pair1 = $%d AND pair2 = $%d)", idx, idx+1))
		args = append(args, pair.From, pair.To)
		idx += 2
	}
	return strings.Join(clauses, " OR "), args
}
