package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spiralshops/relevance/internal/domain"
)

// Response is the envelope every API endpoint answers with
type Response struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     string      `json:"error,omitempty"`
	Duration  int64       `json:"duration"` // milliseconds
	Timestamp string      `json:"timestamp"`
	RequestID string      `json:"requestId,omitempty"`
}

func respondOK(c *gin.Context, start time.Time, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Success:   true,
		Data:      data,
		Duration:  time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: GetRequestID(c),
	})
}

func respondError(c *gin.Context, start time.Time, status int, message string) {
	c.AbortWithStatusJSON(status, Response{
		Success:   false,
		Error:     message,
		Duration:  time.Since(start).Milliseconds(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		RequestID: GetRequestID(c),
	})
}

// statusFor maps domain errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	case errors.Is(err, domain.ErrCatalogUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
