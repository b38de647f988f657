package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/portfolio-service/portfolio_service/internal/domain/services/overview"
)

// PortfolioHandler serves replayed portfolio views
type PortfolioHandler struct {
	overview        *overview.Service
	defaultRefAsset int32
	logger          *zap.Logger
}

// NewPortfolioHandler creates a new portfolio handler
func NewPortfolioHandler(overviewService *overview.Service, defaultRefAsset int32, logger *zap.Logger) *PortfolioHandler {
	return &PortfolioHandler{
		overview:        overviewService,
		defaultRefAsset: defaultRefAsset,
		logger:          logger,
	}
}

// GetOverview replays the user's ledger and returns the valued portfolio.
// @Summary Get portfolio overview
// @Description Replays the transaction ledger and values holdings against a reference asset
// @Tags portfolio
// @Produce json
// @Param user_id query string true "User ID"
// @Param reference_asset_id query int false "Reference asset for valuation"
// @Param as_of query string false "Valuation instant (RFC3339), defaults to now"
// @Success 200 {object} entities.PortfolioOverview
// @Failure 400 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/portfolio/overview [get]
func (h *PortfolioHandler) GetOverview(c *gin.Context) {
	userID, appErr := parseUserID(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	refAsset, appErr := parseReferenceAsset(c, h.defaultRefAsset)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	asOf, appErr := parseAsOf(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	result, err := h.overview.GetOverview(c.Request.Context(), userID, refAsset, asOf)
	if err != nil {
		h.logger.Error("portfolio overview failed",
			zap.String("user_id", userID.String()),
			zap.Int32("reference_asset_id", refAsset),
			zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetHoldings returns current units per account and asset without replay.
// @Summary Get current holdings
// @Description Aggregates units per (account, asset) directly from the ledger store
// @Tags portfolio
// @Produce json
// @Param user_id query string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]interface{}
// @Router /api/v1/portfolio/holdings [get]
func (h *PortfolioHandler) GetHoldings(c *gin.Context) {
	userID, appErr := parseUserID(c)
	if appErr != nil {
		respondError(c, appErr)
		return
	}

	holdings, err := h.overview.GetHoldings(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("holdings lookup failed",
			zap.String("user_id", userID.String()),
			zap.Error(err))
		respondServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"holdings": holdings,
	})
}
