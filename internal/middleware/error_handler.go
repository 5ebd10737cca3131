package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shakthivel10/FSND/internal/models"
	"github.com/shakthivel10/FSND/internal/services"
	"go.uber.org/zap"
)

// ErrorResponse represents the standard error response format
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

const (
	msgBadRequest       = "bad request"
	msgNotFound         = "not found"
	msgMethodNotAllowed = "method not allowed"
	msgConflict         = "A drink with the same title already exists"
	msgTooManyRequests  = "too many requests"
	msgUnprocessable    = "unprocessable"
)

// ErrorHandler is a middleware that handles errors in a centralized way
func ErrorHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		// Check if there are any errors
		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last().Err
		status, message := classify(err)

		logger := GetLogger(c)
		if status == http.StatusUnprocessableEntity {
			logger.Error("Request failed", zap.Int("status", status), zap.Error(err))
		} else {
			logger.Info("Request rejected", zap.Int("status", status), zap.Error(err))
		}

		c.AbortWithStatusJSON(status, ErrorResponse{
			Success: false,
			Error:   status,
			Message: message,
		})
	}
}

// Abort renders the error envelope for status straight away.
func Abort(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, ErrorResponse{Success: false, Error: status, Message: message})
}

// NotFoundHandler answers unknown routes.
func NotFoundHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		Abort(c, http.StatusNotFound, msgNotFound)
	}
}

// MethodNotAllowedHandler answers known routes hit with the wrong method.
func MethodNotAllowedHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		Abort(c, http.StatusMethodNotAllowed, msgMethodNotAllowed)
	}
}

func classify(err error) (int, string) {
	var (
		authErr          *services.AuthError
		validationErr    *ValidationError
		notFoundErr      *NotFoundError
		rateLimitErr     *RateLimitError
		unprocessableErr *UnprocessableError
	)
	switch {
	case errors.As(err, &authErr):
		return authErr.Status, authErr.Code
	case errors.As(err, &validationErr):
		return http.StatusBadRequest, orDefault(validationErr.Message, msgBadRequest)
	case errors.As(err, &notFoundErr):
		return http.StatusNotFound, orDefault(notFoundErr.Message, msgNotFound)
	case errors.Is(err, models.ErrDrinkNotFound),
		errors.Is(err, models.ErrVenueNotFound),
		errors.Is(err, models.ErrArtistNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, models.ErrDrinkTitleTaken):
		return http.StatusConflict, msgConflict
	case errors.As(err, &rateLimitErr):
		return http.StatusTooManyRequests, orDefault(rateLimitErr.Message, msgTooManyRequests)
	case errors.As(err, &unprocessableErr):
		return http.StatusUnprocessableEntity, orDefault(unprocessableErr.Message, msgUnprocessable)
	}
	return http.StatusUnprocessableEntity, msgUnprocessable
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Custom error types for different error scenarios

// ValidationError is a malformed request. Message is shown to the client
// when set; Err is only logged.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return orDefault(e.Message, msgBadRequest) + ": " + e.Err.Error()
	}
	return orDefault(e.Message, msgBadRequest)
}

func (e *ValidationError) Unwrap() error { return e.Err }

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return orDefault(e.Message, msgNotFound)
}

type RateLimitError struct {
	Message string
}

func (e *RateLimitError) Error() string {
	return orDefault(e.Message, msgTooManyRequests)
}

// UnprocessableError is a failed operation with a client facing Message.
type UnprocessableError struct {
	Message string
	Err     error
}

func (e *UnprocessableError) Error() string {
	if e.Err != nil {
		return orDefault(e.Message, msgUnprocessable) + ": " + e.Err.Error()
	}
	return orDefault(e.Message, msgUnprocessable)
}

func (e *UnprocessableError) Unwrap() error { return e.Err }
