package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// ErrAssetNotFound is returned when no asset matches the lookup.
var ErrAssetNotFound = errors.New("asset not found")

// AssetRepository handles asset metadata persistence
type AssetRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewAssetRepository creates a new asset repository
func NewAssetRepository(db *sqlx.DB, logger *zap.Logger) *AssetRepository {
	return &AssetRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("asset-repository"),
	}
}

// GetByID returns one asset by id.
func (r *AssetRepository) GetByID(ctx context.Context, id int32) (*entities.Asset, error) {
	ctx, span := r.tracer.Start(ctx, "asset_repo.get_by_id", trace.WithAttributes(
		attribute.Int("asset_id", int(id)),
	))
	defer span.End()
	defer observeQuery("select", "assets")()

	var asset entities.Asset
	err := r.db.GetContext(ctx, &asset, `
		SELECT id, ticker, name, base_pair_id FROM assets WHERE id = $1
	`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	return &asset, nil
}

// GetByTicker returns one asset by its ticker symbol.
func (r *AssetRepository) GetByTicker(ctx context.Context, ticker string) (*entities.Asset, error) {
	ctx, span := r.tracer.Start(ctx, "asset_repo.get_by_ticker", trace.WithAttributes(
		attribute.String("ticker", ticker),
	))
	defer span.End()
	defer observeQuery("select", "assets")()

	var asset entities.Asset
	err := r.db.GetContext(ctx, &asset, `
		SELECT id, ticker, name, base_pair_id FROM assets WHERE ticker = $1
	`, ticker)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssetNotFound
	}
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to query asset: %w", err)
	}
	return &asset, nil
}

// GetBasePairs maps each of the given assets to the asset its rates are
// quoted against. Assets without a base pair are absent from the result.
func (r *AssetRepository) GetBasePairs(ctx context.Context, assetIDs []int32) (map[int32]int32, error) {
	ctx, span := r.tracer.Start(ctx, "asset_repo.get_base_pairs", trace.WithAttributes(
		attribute.Int("assets", len(assetIDs)),
	))
	defer span.End()

	if len(assetIDs) == 0 {
		return map[int32]int32{}, nil
	}
	defer observeQuery("select", "assets")()

	rows, err := r.db.QueryContext(ctx, `
		SELECT id, base_pair_id FROM assets
		WHERE id = ANY($1) AND base_pair_id IS NOT NULL
	`, pq.Array(assetIDs))
	if err != nil {
		span.RecordError(err)
		r.logger.Error("failed to query base pairs", zap.Error(err))
		return nil, fmt.Errorf("failed to query base pairs: %w", err)
	}
	defer rows.Close()

	basePairs := make(map[int32]int32, len(assetIDs))
	for rows.Next() {
		var id, base int32
		if err := rows.Scan(&id, &base); err != nil {
			return nil, fmt.Errorf("failed to scan base pair: %w", err)
		}
		basePairs[id] = base
	}
	return basePairs, rows.Err()
}

// List returns all known assets ordered by ticker.
func (r *AssetRepository) List(ctx context.Context) ([]entities.Asset, error) {
	ctx, span := r.tracer.Start(ctx, "asset_repo.list")
	defer span.End()
	defer observeQuery("select", "assets")()

	var assets []entities.Asset
	if err := r.db.SelectContext(ctx, &assets, `
		SELECT id, ticker, name, base_pair_id FROM assets ORDER BY ticker
	`); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("failed to list assets: %w", err)
	}
	return assets, nil
}
