package session

import (
	"strings"

	"charchat-client/internal/models"
)

const minPasswordLength = 8

// ValidateLogin проверяет заполненность формы входа. Ошибка означает, что запрос в сеть не отправляется.
func ValidateLogin(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" {
		return models.Required("email")
	}
	if !strings.Contains(email, "@") {
		return &models.FieldError{Field: "email", Reason: "must be a valid email"}
	}
	if password == "" {
		return models.Required("password")
	}
	return nil
}

// ValidateRegister проверяет форму регистрации.
func ValidateRegister(req models.RegisterRequest) error {
	if err := ValidateLogin(req.Email, req.Password); err != nil {
		return err
	}
	if strings.TrimSpace(req.Username) == "" {
		return models.Required("username")
	}
	if len(req.Password) < minPasswordLength {
		return &models.FieldError{Field: "password", Reason: "must be at least 8 characters"}
	}
	return nil
}
