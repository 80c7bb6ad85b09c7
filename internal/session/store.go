package session

import "context"

// State - все, что клиент хранит между запусками: токены и локаль.
type State struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
	Locale       string `json:"locale,omitempty"`
}

// Store - долговременное хранилище состояния сессии.
// Реализации также удовлетворяют apiclient.TokenStore и apiclient.LocaleSource.
type Store interface {
	Load(ctx context.Context) (State, error)
	Save(ctx context.Context, st State) error
	AccessToken(ctx context.Context) (string, error)
	// ClearTokens удаляет токены, сохраняя локаль.
	ClearTokens(ctx context.Context) error
	Locale(ctx context.Context) string
}
