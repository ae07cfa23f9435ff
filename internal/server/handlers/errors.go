package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/nogal/internal/domain/wizard"
	"github.com/mamadbah2/nogal/internal/domain/yield"
	"github.com/mamadbah2/nogal/internal/repository"
	"github.com/mamadbah2/nogal/internal/repository/remote"
	"github.com/mamadbah2/nogal/internal/service/mutation"
	"github.com/mamadbah2/nogal/internal/service/registration"
	"github.com/mamadbah2/nogal/internal/service/reporting"
)

// statusFor maps service errors to HTTP status codes.
func statusFor(err error) int {
	var apiErr *remote.APIError
	switch {
	case errors.Is(err, repository.ErrNotFound),
		errors.Is(err, reporting.ErrCampaignNotFound),
		errors.Is(err, registration.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, repository.ErrInvalidInput),
		errors.Is(err, yield.ErrInvalidCurve),
		errors.Is(err, wizard.ErrNotEditable),
		errors.Is(err, wizard.ErrUnknownKind),
		errors.Is(err, registration.ErrCampaignMismatch):
		return http.StatusBadRequest
	case errors.Is(err, wizard.ErrInvalidTransition),
		errors.Is(err, wizard.ErrGuardFailed):
		return http.StatusConflict
	case errors.Is(err, reporting.ErrArchiveDisabled),
		errors.Is(err, mutation.ErrQueueFull),
		errors.Is(err, mutation.ErrQueueClosed):
		return http.StatusServiceUnavailable
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// respondError writes {"error": "..."}. Server-side failures are logged and
// their details hidden.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError && status != http.StatusServiceUnavailable {
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
		if status == http.StatusBadGateway {
			c.JSON(status, gin.H{"error": "upstream farm api failed"})
			return
		}
		c.JSON(status, gin.H{"error": "internal error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindJSON decodes the request body and answers 400 when it is malformed.
func bindJSON(c *gin.Context, logger *zap.Logger, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		logger.Warn("invalid request body", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
		return false
	}
	return true
}
