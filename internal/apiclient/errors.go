package apiclient

import (
	"fmt"
	"net/http"

	"charchat-client/internal/models"
)

// APIError - ошибка, полученная от REST API (не-2xx статус или success=false).
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api error: status %d", e.Status)
	}
	if e.Code != "" {
		return fmt.Sprintf("api error: %s (status: %d, code: %s)", e.Message, e.Status, e.Code)
	}
	return fmt.Sprintf("api error: %s (status: %d)", e.Message, e.Status)
}

// Unwrap сопоставляет HTTP статус со стандартными ошибками из models.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return models.ErrUnauthorized
	case http.StatusForbidden:
		return models.ErrForbidden
	case http.StatusNotFound:
		return models.ErrNotFound
	case http.StatusConflict:
		return models.ErrConflict
	case http.StatusPaymentRequired:
		return models.ErrInsufficientTokens
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return models.ErrInvalidInput
	}
	if e.Status >= http.StatusInternalServerError {
		return models.ErrInternalServer
	}
	return nil
}
