package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/entities"
	"github.com/portfolio-service/portfolio_service/internal/infrastructure/repositories"
	apperrors "github.com/portfolio-service/portfolio_service/pkg/errors"
)

// AssetStore is the persistence surface the asset handlers need
type AssetStore interface {
	List(ctx context.Context) ([]entities.Asset, error)
	GetByTicker(ctx context.Context, ticker string) (*entities.Asset, error)
}

// AssetHandler serves the tradable asset catalog
type AssetHandler struct {
	store  AssetStore
	logger *zap.Logger
}

// NewAssetHandler creates a new asset handler
func NewAssetHandler(store AssetStore, logger *zap.Logger) *AssetHandler {
	return &AssetHandler{
		store:  store,
		logger: logger,
	}
}

// List returns every known asset.
// @Summary List assets
// @Tags assets
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /api/v1/assets [get]
func (h *AssetHandler) List(c *gin.Context) {
	assets, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("asset list failed", zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"assets": assets})
}

// GetByTicker looks up one asset by its ticker symbol.
// @Summary Get asset by ticker
// @Tags assets
// @Produce json
// @Param ticker path string true "Ticker symbol"
// @Success 200 {object} entities.Asset
// @Failure 404 {object} map[string]interface{}
// @Router /api/v1/assets/{ticker} [get]
func (h *AssetHandler) GetByTicker(c *gin.Context) {
	ticker := c.Param("ticker")

	asset, err := h.store.GetByTicker(c.Request.Context(), ticker)
	if err != nil {
		if errors.Is(err, repositories.ErrAssetNotFound) {
			respondError(c, apperrors.NotFound(apperrors.ErrCodeAssetNotFound, "asset"))
			return
		}
		h.logger.Error("asset lookup failed",
			zap.String("ticker", ticker),
			zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, asset)
}
