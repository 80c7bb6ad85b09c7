package models

import "errors"

// Application-wide standard errors
var (
	// Общие ошибки запросов
	ErrNotFound       = errors.New("resource not found")
	ErrInvalidInput   = errors.New("invalid input data")
	ErrConflict       = errors.New("resource already exists")
	ErrInternalServer = errors.New("internal server error")

	// User & Authentication Errors
	ErrUnauthorized       = errors.New("unauthorized") // Authentication required or failed
	ErrForbidden          = errors.New("forbidden")    // Authenticated, but lacks permission
	ErrInvalidCredentials = errors.New("invalid email or password")

	// Token Errors
	ErrNoToken        = errors.New("no auth token in storage")
	ErrTokenMalformed = errors.New("token is malformed")
	ErrTokenExpired   = errors.New("token has expired")

	// Billing
	ErrInsufficientTokens = errors.New("not enough tokens")

	// Realtime channel
	ErrNotConnected = errors.New("notification channel is not connected")
)

// FieldError описывает незаполненное или неверное поле формы.
// Unwrap возвращает ErrInvalidInput, чтобы вызывающий код мог использовать errors.Is.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return "invalid input data: " + e.Field + " " + e.Reason
}

func (e *FieldError) Unwrap() error { return ErrInvalidInput }

// Required возвращает FieldError для пустого обязательного поля.
func Required(field string) error {
	return &FieldError{Field: field, Reason: "is required"}
}
