package service

import (
	"context"

	"charchat-client/internal/models"
)

// UserService - профиль и баланс пользователя.
type UserService struct {
	api APIClient
}

func NewUserService(api APIClient) *UserService {
	return &UserService{api: api}
}

// Get - GET /users/:id (публичный профиль).
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	id, err := requireID("user id", id)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := s.api.Get(ctx, "/users/"+id, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// UpdateProfile - PUT /users/me.
func (s *UserService) UpdateProfile(ctx context.Context, upd models.ProfileUpdate) (*models.User, error) {
	if upd.DisplayName != nil && *upd.DisplayName == "" {
		return nil, models.Required("displayName")
	}
	var u models.User
	if err := s.api.Put(ctx, "/users/me", upd, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ChangePassword - PUT /users/me/password.
func (s *UserService) ChangePassword(ctx context.Context, req models.PasswordChange) error {
	if req.CurrentPassword == "" {
		return models.Required("currentPassword")
	}
	if req.NewPassword == "" {
		return models.Required("newPassword")
	}
	return s.api.Put(ctx, "/users/me/password", req, nil)
}

// TokenBalance - GET /users/me/tokens.
func (s *UserService) TokenBalance(ctx context.Context) (int64, error) {
	var b models.TokenBalance
	if err := s.api.Get(ctx, "/users/me/tokens", nil, &b); err != nil {
		return 0, err
	}
	return b.Balance, nil
}
