package handlers

import (
	"errors"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/portfolio-service/portfolio_service/internal/domain/ledger"
	apperrors "github.com/portfolio-service/portfolio_service/pkg/errors"
	"github.com/portfolio-service/portfolio_service/pkg/tracing"
)

// getRequestID extracts request ID from context
func getRequestID(c *gin.Context) string {
	if reqID, exists := c.Get("request_id"); exists {
		if id, ok := reqID.(string); ok {
			return id
		}
	}
	return ""
}

// parseUserID reads and validates the user_id query parameter
func parseUserID(c *gin.Context) (uuid.UUID, *apperrors.AppError) {
	raw := c.Query("user_id")
	if raw == "" {
		return uuid.Nil, apperrors.New(apperrors.ErrCodeMissingField, "user_id is required")
	}

	userID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, apperrors.New(apperrors.ErrCodeInvalidInput, "user_id must be a valid UUID")
	}

	return userID, nil
}

// parseAsOf reads the optional as_of query parameter. A zero time means
// "value the portfolio now".
func parseAsOf(c *gin.Context) (time.Time, *apperrors.AppError) {
	raw := c.Query("as_of")
	if raw == "" {
		return time.Time{}, nil
	}

	asOf, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		return time.Time{}, apperrors.New(apperrors.ErrCodeInvalidInput, "as_of must be an RFC3339 timestamp")
	}

	return asOf, nil
}

// parseReferenceAsset reads the optional reference_asset_id query parameter,
// falling back to the configured default.
func parseReferenceAsset(c *gin.Context, fallback int32) (int32, *apperrors.AppError) {
	raw := c.Query("reference_asset_id")
	if raw == "" {
		return fallback, nil
	}

	id, err := strconv.ParseInt(raw, 10, 32)
	if err != nil || id <= 0 {
		return 0, apperrors.New(apperrors.ErrCodeInvalidInput, "reference_asset_id must be a positive integer")
	}

	return int32(id), nil
}

// respondError sends a standardized error response
func respondError(c *gin.Context, appErr *apperrors.AppError) {
	c.JSON(appErr.StatusCode, gin.H{
		"error":      appErr,
		"request_id": getRequestID(c),
	})
}

// respondServiceError records the failure on the request span and sends the
// mapped error response.
func respondServiceError(c *gin.Context, err error) {
	tracing.RecordError(c, err)
	respondError(c, mapServiceError(err))
}

// mapServiceError converts domain and infrastructure errors into the
// service-level error carried on the wire. Ledger taxonomy errors keep the
// offending transaction id in the details payload.
func mapServiceError(err error) *apperrors.AppError {
	var invalidType *ledger.InvalidTransactionTypeError
	if errors.As(err, &invalidType) {
		return apperrors.NewWithDetails(apperrors.ErrCodeInvalidTransaction, invalidType.Error(), map[string]interface{}{
			"transaction_id": invalidType.TransactionID.String(),
			"kind":           string(invalidType.Kind),
		})
	}

	var missingLink *ledger.MissingLinkedTransactionError
	if errors.As(err, &missingLink) {
		return apperrors.NewWithDetails(apperrors.ErrCodeMissingLinkedTx, missingLink.Error(), map[string]interface{}{
			"transaction_id": missingLink.TransactionID.String(),
			"link_id":        missingLink.LinkID.String(),
		})
	}

	var insufficient *ledger.InsufficientHoldingsError
	if errors.As(err, &insufficient) {
		return apperrors.NewWithDetails(apperrors.ErrCodeInsufficientUnits, insufficient.Error(), map[string]interface{}{
			"transaction_id": insufficient.TransactionID.String(),
			"account_id":     insufficient.AccountID.String(),
			"asset_id":       insufficient.AssetID,
			"requested":      insufficient.Requested.String(),
			"available":      insufficient.Available.String(),
		})
	}

	var rateUnavailable *ledger.RateUnavailableError
	if errors.As(err, &rateUnavailable) {
		return apperrors.NewWithDetails(apperrors.ErrCodeRateUnavailable, rateUnavailable.Error(), map[string]interface{}{
			"transaction_id": rateUnavailable.TransactionID.String(),
			"from":           rateUnavailable.Pair.From,
			"to":             rateUnavailable.Pair.To,
		})
	}

	var outOfOrder *ledger.OutOfOrderEventError
	if errors.As(err, &outOfOrder) {
		return apperrors.NewWithDetails(apperrors.ErrCodeOutOfOrderEvent, outOfOrder.Error(), map[string]interface{}{
			"transaction_id": outOfOrder.TransactionID.String(),
		})
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	return apperrors.Internal("internal server error")
}
