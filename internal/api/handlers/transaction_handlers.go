package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	apperrors "github.com/portfolio-service/portfolio_service/pkg/errors"
)

// TransactionStore is the persistence surface the transaction handlers need
type TransactionStore interface {
	Create(ctx context.Context, record *entities.TransactionRecord) error
	GetByUserID(ctx context.Context, userID uuid.UUID, until time.Time) ([]entities.TransactionRecord, error)
}

// TransactionHandler records and lists raw ledger transactions
type TransactionHandler struct {
	store  TransactionStore
	logger *zap.Logger
}

// NewTransactionHandler creates a new transaction handler
func NewTransactionHandler(store TransactionStore, logger *zap.Logger) *TransactionHandler {
	return &TransactionHandler{
		store:  store,
		logger: logger,
	}
}

// CreateTransactionRequest is the payload for recording a transaction
type CreateTransactionRequest struct {
	UserID      uuid.UUID        `json:"user_id" binding:"required"`
	AccountID   uuid.UUID        `json:"account_id" binding:"required"`
	Kind        string           `json:"kind" binding:"required"`
	AssetID     int32            `json:"asset_id" binding:"required"`
	CashAssetID *int32           `json:"cash_asset_id"`
	Quantity    decimal.Decimal  `json:"quantity" binding:"required"`
	UnitPrice   *decimal.Decimal `json:"unit_price"`
	CashAmount  *decimal.Decimal `json:"cash_amount"`
	Fee         *decimal.Decimal `json:"fee"`
	LinkID      *uuid.UUID       `json:"link_id"`
	Date        time.Time        `json:"date" binding:"required"`
	Description *string          `json:"description"`
}

var validKinds = map[entities.TransactionKind]struct{}{
	entities.KindAssetPurchase:        {},
	entities.KindAssetSale:            {},
	entities.KindAssetTradeIn:         {},
	entities.KindAssetTradeOut:        {},
	entities.KindAssetTransferIn:      {},
	entities.KindAssetTransferOut:     {},
	entities.KindAssetBalanceTransfer: {},
	entities.KindAssetDividend:        {},
	entities.KindCashDividend:         {},
	entities.KindCashTransferIn:       {},
	entities.KindCashTransferOut:      {},
	entities.KindAccountFees:          {},
}

// Create records a new ledger transaction.
// @Summary Record a transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Param request body CreateTransactionRequest true "Transaction"
// @Success 201 {object} entities.TransactionRecord
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/transactions [post]
func (h *TransactionHandler) Create(c *gin.Context) {
	var req CreateTransactionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.ErrCodeValidation, err.Error()))
		return
	}

	kind := entities.TransactionKind(req.Kind)
	if _, ok := validKinds[kind]; !ok {
		respondError(c, apperrors.NewWithDetails(apperrors.ErrCodeInvalidInput, "unknown transaction kind", map[string]interface{}{
			"kind": req.Kind,
		}))
		return
	}

	if req.Quantity.IsNegative() {
		respondError(c, apperrors.New(apperrors.ErrCodeValidation, "quantity must not be negative"))
		return
	}

	record := &entities.TransactionRecord{
		ID:          uuid.New(),
		UserID:      req.UserID,
		AccountID:   req.AccountID,
		Kind:        kind,
		AssetID:     req.AssetID,
		CashAssetID: req.CashAssetID,
		Quantity:    req.Quantity,
		UnitPrice:   req.UnitPrice,
		CashAmount:  req.CashAmount,
		Fee:         req.Fee,
		LinkID:      req.LinkID,
		Date:        req.Date,
		Description: req.Description,
	}

	if err := h.store.Create(c.Request.Context(), record); err != nil {
		h.logger.Error("transaction create failed",
			zap.String("user_id", req.UserID.String()),
			zap.String("kind", req.Kind),
			zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, record)
}

// List returns the user's raw transactions in replay order.
// @Summary List transactions
// @Tags transactions
// @Produce json
// @Param user_id query string true "User ID"
// @Param as_of query string false "Upper bound on transaction date (RFC3339)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/transactions [get]
func (h *TransactionHandler) List(c *gin.Context) {
	userID, appErr := parseUserID(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	until, appErr := parseAsOf(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}
	if until.IsZero() {
		until = time.Now().UTC()
	}

	records, err := h.store.GetByUserID(c.Request.Context(), userID, until)
	if err != nil {
		h.logger.Error("transaction list failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"transactions": records,
	})
}
