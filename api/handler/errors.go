package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/causelist/models"
)

// detail converts any error to an API-facing ErrorDetail.
func detail(err error) *models.ErrorDetail {
	var se *models.ScrapeError
	if errors.As(err, &se) {
		return &models.ErrorDetail{Code: se.Code, Message: err.Error()}
	}
	return &models.ErrorDetail{Code: models.ErrCodeInternal, Message: err.Error()}
}

// respondError maps err to the matching HTTP status and writes a structured
// JSON error response.
func respondError(c *gin.Context, err error) {
	d := detail(err)
	c.JSON(statusFor(d.Code), models.ErrorResponse{Error: d})
}

func abort(c *gin.Context, code, message string) {
	c.AbortWithStatusJSON(statusFor(code), models.ErrorResponse{
		Error: &models.ErrorDetail{Code: code, Message: message},
	})
}

// statusFor translates error codes to HTTP status codes.
func statusFor(code string) int {
	switch code {
	case models.ErrCodeTimeout:
		return http.StatusGatewayTimeout // 504
	case models.ErrCodeNavigation, models.ErrCodeElementNotFound:
		return http.StatusBadGateway // 502
	case models.ErrCodeEnvironment:
		return http.StatusServiceUnavailable // 503
	case models.ErrCodeInvalidInput:
		return http.StatusBadRequest // 400
	case models.ErrCodeBusy:
		return http.StatusConflict // 409
	case models.ErrCodeNotFound:
		return http.StatusNotFound // 404
	case models.ErrCodeRateLimited:
		return http.StatusTooManyRequests // 429
	case models.ErrCodeUnauthorized:
		return http.StatusUnauthorized // 401
	default:
		return http.StatusInternalServerError // 500
	}
}
