package models

import "time"

// Определяем константы для ролей
const (
	RoleUser    = "user"
	RoleCreator = "creator"
	RoleAdmin   = "admin"
)

// User - профиль пользователя в том виде, в котором его отдает backend.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Username     string    `json:"username"`
	DisplayName  string    `json:"displayName"`
	AvatarURL    string    `json:"avatarUrl,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	Locale       string    `json:"locale,omitempty"`
	Roles        []string  `json:"roles"`
	TokenBalance int64     `json:"tokenBalance"`
	CreatorLevel int       `json:"creatorLevel"`
	CreatedAt    time.Time `json:"createdAt"`
}

// HasRole проверяет, есть ли у пользователя указанная роль.
func (u *User) HasRole(role string) bool {
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// ProfileUpdate - частичное обновление профиля. Nil поля не изменяются.
type ProfileUpdate struct {
	DisplayName *string `json:"displayName,omitempty"`
	Bio         *string `json:"bio,omitempty"`
	AvatarURL   *string `json:"avatarUrl,omitempty"`
	Locale      *string `json:"locale,omitempty"`
}

// TokenBalance - остаток внутренней валюты пользователя.
type TokenBalance struct {
	Balance int64 `json:"balance"`
}
