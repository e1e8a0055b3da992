package intake

import (
	"fmt"
	"net/http"

	"intake/internal/models"
)

// ServiceError represents errors from the intake service with HTTP context
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	RetryAfter int // seconds, only for rate limited errors
	Err        error
}

func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// Error constructors for common service errors

func NewInvalidRequestError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInvalidRequest,
		Message:    message,
		StatusCode: http.StatusBadRequest,
		Err:        err,
	}
}

func NewValidationError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeValidation,
		Message:    message,
		StatusCode: http.StatusUnprocessableEntity,
		Err:        err,
	}
}

func NewRateLimitedError(retryAfter int) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeRateLimited,
		Message:    "Too many requests",
		StatusCode: http.StatusTooManyRequests,
		RetryAfter: retryAfter,
	}
}

// NewInvalidCaptchaError carries no vendor detail; the client only learns
// that the proof was not accepted.
func NewInvalidCaptchaError() *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInvalidCaptcha,
		Message:    "CAPTCHA verification failed",
		StatusCode: http.StatusBadRequest,
	}
}

func NewInternalError(message string, err error) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeInternalError,
		Message:    message,
		StatusCode: http.StatusInternalServerError,
		Err:        err,
	}
}

func NewNotFoundError(message string) *ServiceError {
	return &ServiceError{
		Code:       models.ErrorCodeNotFound,
		Message:    message,
		StatusCode: http.StatusNotFound,
	}
}
