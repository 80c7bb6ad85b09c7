package models

import "time"

// TokenPair - access и refresh токены, выданные при входе или обновлении.
type TokenPair struct {
	AccessToken  string    `json:"token"`
	RefreshToken string    `json:"refreshToken"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

// AuthResult - ответ /auth/login, /auth/register и /auth/refresh.
type AuthResult struct {
	TokenPair
	User *User `json:"user,omitempty"`
}

// LoginRequest - тело запроса /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// RegisterRequest - тело запроса /auth/register.
type RegisterRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest - тело запроса /auth/refresh и /auth/logout.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

// PasswordChange - тело запроса PUT /users/me/password.
type PasswordChange struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}
