package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	apperrors "github.com/portfolio-service/portfolio_service/pkg/errors"
)

// AccountStore is the persistence surface the account handlers need
type AccountStore interface {
	Create(ctx context.Context, account *entities.Account) error
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]entities.Account, error)
}

// AccountHandler manages investment accounts
type AccountHandler struct {
	store  AccountStore
	logger *zap.Logger
}

// NewAccountHandler creates a new account handler
func NewAccountHandler(store AccountStore, logger *zap.Logger) *AccountHandler {
	return &AccountHandler{
		store:  store,
		logger: logger,
	}
}

// CreateAccountRequest is the payload for opening an account
type CreateAccountRequest struct {
	UserID uuid.UUID `json:"user_id" binding:"required"`
	Name   string    `json:"name" binding:"required"`
}

// Create opens a new account for a user.
// @Summary Create an account
// @Tags accounts
// @Accept json
// @Produce json
// @Param request body CreateAccountRequest true "Account"
// @Success 201 {object} entities.Account
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/accounts [post]
func (h *AccountHandler) Create(c *gin.Context) {
	var req CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.ErrCodeValidation, err.Error()))
		return
	}

	account := &entities.Account{
		ID:     uuid.New(),
		UserID: req.UserID,
		Name:   req.Name,
	}

	if err := h.store.Create(c.Request.Context(), account); err != nil {
		h.logger.Error("account create failed",
			zap.String("user_id", req.UserID.String()),
			zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, account)
}

// List returns the user's accounts.
// @Summary List accounts
// @Tags accounts
// @Produce json
// @Param user_id query string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/accounts [get]
func (h *AccountHandler) List(c *gin.Context) {
	userID, appErr := parseUserID(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	accounts, err := h.store.GetByUserID(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("account list failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"accounts": accounts,
	})
}
