package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	apperrors "github.com/portfolio-service/portfolio_service/pkg/errors"
)

// RateStore is the persistence surface the rate handlers need
type RateStore interface {
	Insert(ctx context.Context, rate *entities.AssetPairRate) error
}

// RateHandler records exchange rate observations
type RateHandler struct {
	store  RateStore
	logger *zap.Logger
}

// NewRateHandler creates a new rate handler
func NewRateHandler(store RateStore, logger *zap.Logger) *RateHandler {
	return &RateHandler{
		store:  store,
		logger: logger,
	}
}

// CreateRateRequest is the payload for recording a rate observation
type CreateRateRequest struct {
	Pair1      int32           `json:"pair1" binding:"required"`
	Pair2      int32           `json:"pair2" binding:"required"`
	Rate       decimal.Decimal `json:"rate" binding:"required"`
	RecordedAt time.Time       `json:"recorded_at" binding:"required"`
}

// Create records a rate observation for a directed pair.
// @Summary Record a rate observation
// @Tags rates
// @Accept json
// @Produce json
// @Param request body CreateRateRequest true "Rate observation"
// @Success 201 {object} entities.AssetPairRate
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/rates [post]
func (h *RateHandler) Create(c *gin.Context) {
	var req CreateRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, apperrors.New(apperrors.ErrCodeValidation, err.Error()))
		return
	}

	if !req.Rate.IsPositive() {
		respondError(c, apperrors.New(apperrors.ErrCodeValidation, "rate must be positive"))
		return
	}
	if req.Pair1 == req.Pair2 {
		respondError(c, apperrors.New(apperrors.ErrCodeValidation, "pair1 and pair2 must differ"))
		return
	}

	rate := &entities.AssetPairRate{
		Pair1:      req.Pair1,
		Pair2:      req.Pair2,
		Rate:       req.Rate,
		RecordedAt: req.RecordedAt,
	}

	if err := h.store.Insert(c.Request.Context(), rate); err != nil {
		h.logger.Error("rate insert failed",
			zap.Int32("pair1", req.Pair1),
			zap.Int32("pair2", req.Pair2),
			zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, rate)
}
