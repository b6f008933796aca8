// Package errors defines the error taxonomy shared across the engine and
// maps errors to HTTP status codes at the service boundary.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrInvalidInput           = errors.New("invalid input")
	ErrSegmentationFailed     = errors.New("all segmentation strategies failed")
	ErrStrategyTimeout        = errors.New("segmentation strategy timed out")
	ErrStrategyFailed         = errors.New("segmentation strategy failed")
	ErrDictionaryEntryInvalid = errors.New("dictionary entry invalid")
	ErrDictionaryUnavailable  = errors.New("dictionary unavailable")
	ErrRankingConfigInvalid   = errors.New("ranking config invalid")
	ErrTimeout                = errors.New("operation timed out")
	ErrInternal               = errors.New("internal error")
)

type AppError struct {
	Err        error
	Message    string
	StatusCode int
}

func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(sentinel error, statusCode int, message string) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    message,
		StatusCode: statusCode,
	}
}

func Newf(sentinel error, statusCode int, format string, args ...any) *AppError {
	return &AppError{
		Err:        sentinel,
		Message:    fmt.Sprintf(format, args...),
		StatusCode: statusCode,
	}
}

func HTTPStatusCode(err error) int {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.StatusCode
	}

	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrRankingConfigInvalid):
		return http.StatusBadRequest
	case errors.Is(err, ErrDictionaryEntryInvalid):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ErrSegmentationFailed):
		return http.StatusBadGateway
	case errors.Is(err, ErrDictionaryUnavailable), errors.Is(err, ErrTimeout):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
