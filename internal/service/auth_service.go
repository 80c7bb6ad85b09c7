package service

import (
	"context"

	"charchat-client/internal/models"
)

// AuthService - эндпоинты /auth/*.
type AuthService struct {
	api APIClient
}

// NewAuthService создает AuthService.
func NewAuthService(api APIClient) *AuthService {
	return &AuthService{api: api}
}

// Login - POST /auth/login.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := s.api.Post(ctx, "/auth/login", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Register - POST /auth/register.
func (s *AuthService) Register(ctx context.Context, req models.RegisterRequest) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := s.api.Post(ctx, "/auth/register", req, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Refresh - POST /auth/refresh.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*models.AuthResult, error) {
	var res models.AuthResult
	if err := s.api.Post(ctx, "/auth/refresh", models.RefreshRequest{RefreshToken: refreshToken}, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

// Me - GET /auth/me.
func (s *AuthService) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := s.api.Get(ctx, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// Logout - POST /auth/logout, отзывает refresh токен.
func (s *AuthService) Logout(ctx context.Context, refreshToken string) error {
	return s.api.Post(ctx, "/auth/logout", models.RefreshRequest{RefreshToken: refreshToken}, nil)
}
