package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// TransactionRepository handles transaction ledger persistence
type TransactionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewTransactionRepository creates a new transaction repository
func NewTransactionRepository(db *sqlx.DB, logger *zap.Logger) *TransactionRepository {
	return &TransactionRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("transaction-repository"),
	}
}

// GetByUserID returns the user's full transaction history up to and including
// the given instant, ordered the way the replay consumes it.
func (r *TransactionRepository) GetByUserID(ctx context.Context, userID uuid.UUID, until time.Time) ([]entities.TransactionRecord, error) {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.get_by_user", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
	))
	defer span.End()
	defer observeQuery("select", "transactions")()

	query := `
		SELECT id, user_id, account_id, kind, asset_id, cash_asset_id,
		       quantity, unit_price, cash_amount, fee, link_id, date, description
		FROM transactions
		WHERE user_id = $1 AND date <= $2
		ORDER BY date ASC, id ASC
	`

	var records []entities.TransactionRecord
	if err := r.db.SelectContext(ctx, &records, query, userID, until); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to query transactions",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}

	span.SetAttributes(attribute.Int("transactions", len(records)))
	return records, nil
}

// GetHoldings aggregates the user's current units per account and asset
// directly in SQL, without replaying the ledger. Linked transfer legs cancel
// out by summing both sides.
func (r *TransactionRepository) GetHoldings(ctx context.Context, userID uuid.UUID) ([]entities.Holding, error) {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.get_holdings", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
	))
	defer span.End()
	defer observeQuery("select", "transactions")()

	query := `
		SELECT account_id, asset_id, SUM(
			CASE kind
				WHEN 'asset_purchase'         THEN quantity
				WHEN 'asset_trade_in'         THEN quantity
				WHEN 'asset_transfer_in'      THEN quantity
				WHEN 'asset_dividend'         THEN quantity
				WHEN 'asset_balance_transfer' THEN quantity
				WHEN 'asset_sale'             THEN -quantity
				WHEN 'asset_trade_out'        THEN -quantity
				WHEN 'asset_transfer_out'     THEN -quantity
				ELSE 0
			END
		) AS units
		FROM transactions
		WHERE user_id = $1
		GROUP BY account_id, asset_id
		HAVING SUM(
			CASE kind
				WHEN 'asset_purchase'         THEN quantity
				WHEN 'asset_trade_in'         THEN quantity
				WHEN 'asset_transfer_in'      THEN quantity
				WHEN 'asset_dividend'         THEN quantity
				WHEN 'asset_balance_transfer' THEN quantity
				WHEN 'asset_sale'             THEN -quantity
				WHEN 'asset_trade_out'        THEN -quantity
				WHEN 'asset_transfer_out'     THEN -quantity
				ELSE 0
			END
		) <> 0
		ORDER BY account_id, asset_id
	`

	var holdings []entities.Holding
	if err := r.db.SelectContext(ctx, &holdings, query, userID); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to aggregate holdings",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("failed to aggregate holdings: %w", err)
	}

	return holdings, nil
}

// Create inserts a transaction record.
func (r *TransactionRepository) Create(ctx context.Context, record *entities.TransactionRecord) error {
	ctx, span := r.tracer.Start(ctx, "transaction_repo.create", trace.WithAttributes(
		attribute.String("transaction_id", record.ID.String()),
		attribute.String("kind", string(record.Kind)),
	))
	defer span.End()
	defer observeQuery("insert", "transactions")()

	query := `
		INSERT INTO transactions (
			id, user_id, account_id, kind, asset_id, cash_asset_id,
			quantity, unit_price, cash_amount, fee, link_id, date, description
		) VALUES (
			:id, :user_id, :account_id, :kind, :asset_id, :cash_asset_id,
			:quantity, :unit_price, :cash_amount, :fee, :link_id, :date, :description
		)
	`

	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to create transaction",
			zap.Error(err),
			zap.String("transaction_id", record.ID.String()),
		)
		return fmt.Errorf("failed to create transaction: %w", err)
	}

	r.logger.Info("transaction created",
		zap.String("transaction_id", record.ID.String()),
		zap.String("user_id", record.UserID.String()),
		zap.String("kind", string(record.Kind)),
	)
	return nil
}
