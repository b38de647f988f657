package repositories

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
)

// AccountRepository handles investment account persistence
type AccountRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
	tracer trace.Tracer
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *sqlx.DB, logger *zap.Logger) *AccountRepository {
	return &AccountRepository{
		db:     db,
		logger: logger,
		tracer: otel.Tracer("account-repository"),
	}
}

// GetByUserID returns all accounts owned by the user.
func (r *AccountRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]entities.Account, error) {
	ctx, span := r.tracer.Start(ctx, "account_repo.get_by_user", trace.WithAttributes(
		attribute.String("user_id", userID.String()),
	))
	defer span.End()
	defer observeQuery("select", "accounts")()

	var accounts []entities.Account
	if err := r.db.SelectContext(ctx, &accounts, `
		SELECT id, user_id, name FROM accounts WHERE user_id = $1 ORDER BY name
	`, userID); err != nil {
		span.RecordError(err)
		r.logger.Error("failed to query accounts",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("failed to query accounts: %w", err)
	}
	return accounts, nil
}

// Create inserts an account.
func (r *AccountRepository) Create(ctx context.Context, account *entities.Account) error {
	ctx, span := r.tracer.Start(ctx, "account_repo.create", trace.WithAttributes(
		attribute.String("account_id", account.ID.String()),
	))
	defer span.End()
	defer observeQuery("insert", "accounts")()

	if _, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (id, user_id, name) VALUES ($1, $2, $3)
	`, account.ID, account.UserID, account.Name); err != nil {
		span.RecordError(err)
		return fmt.Errorf("failed to create account: %w", err)
	}
	return nil
}
