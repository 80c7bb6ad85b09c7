package service

import (
	"context"
	"strings"

	"charchat-client/internal/models"
)

// CharacterService - каталог персонажей.
type CharacterService struct {
	api APIClient
}

func NewCharacterService(api APIClient) *CharacterService {
	return &CharacterService{api: api}
}

// List - GET /characters.
func (s *CharacterService) List(ctx context.Context, params models.ListParams) (*models.Page[models.Character], error) {
	var page models.Page[models.Character]
	if err := s.api.Get(ctx, "/characters", params.Query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get - GET /characters/:id.
func (s *CharacterService) Get(ctx context.Context, id string) (*models.Character, error) {
	id, err := requireID("character id", id)
	if err != nil {
		return nil, err
	}
	var c models.Character
	if err := s.api.Get(ctx, "/characters/"+id, nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Create - POST /characters.
func (s *CharacterService) Create(ctx context.Context, in models.CharacterInput) (*models.Character, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	var c models.Character
	if err := s.api.Post(ctx, "/characters", in, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Update - PUT /characters/:id.
func (s *CharacterService) Update(ctx context.Context, id string, in models.CharacterInput) (*models.Character, error) {
	id, err := requireID("character id", id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	var c models.Character
	if err := s.api.Put(ctx, "/characters/"+id, in, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete - DELETE /characters/:id.
func (s *CharacterService) Delete(ctx context.Context, id string) error {
	id, err := requireID("character id", id)
	if err != nil {
		return err
	}
	return s.api.Delete(ctx, "/characters/"+id, nil)
}

// Like - POST /characters/:id/like (переключает лайк).
func (s *CharacterService) Like(ctx context.Context, id string) (*models.LikeResult, error) {
	id, err := requireID("character id", id)
	if err != nil {
		return nil, err
	}
	var res models.LikeResult
	if err := s.api.Post(ctx, "/characters/"+id+"/like", nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}
