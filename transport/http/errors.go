package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/layer-3/tutti/core"
	"github.com/layer-3/tutti/internal/logger"
)

// statusFor maps domain errors to HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, core.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, core.ErrInvalidOrExpiredToken),
		errors.Is(err, core.ErrIdentityMismatch):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// writeError aborts the request with the mapped status.
// Internal errors are logged and never echoed to the client.
func writeError(c *gin.Context, log *logger.Logger, err error) {
	status := statusFor(err)
	msg := http.StatusText(status)
	switch status {
	case http.StatusInternalServerError:
		log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = "internal server error"
	case http.StatusUnauthorized:
		msg = "unauthorized"
	case http.StatusBadRequest:
		msg = err.Error()
	case http.StatusConflict:
		msg = "already exists"
	case http.StatusNotFound:
		msg = "not found"
	case http.StatusForbidden:
		msg = "forbidden"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// writeValidationError answers 400 with per-field messages
func writeValidationError(c *gin.Context, err error) {
	var errs validation.Errors
	if !errors.As(err, &errs) {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	fields := make(map[string]string, len(errs))
	for name, fieldErr := range errs {
		fields[name] = fieldErr.Error()
	}
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
		"error":  "validation failed",
		"fields": fields,
	})
}

// bind decodes the JSON body and runs validate on it
func bind[T any](c *gin.Context, validate func(T) error) (T, bool) {
	var req T
	if err := c.ShouldBindJSON(&req); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return req, false
	}
	if err := validate(req); err != nil {
		writeValidationError(c, err)
		return req, false
	}
	return req, true
}
