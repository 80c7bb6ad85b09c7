package service

import (
	"bytes"
	"context"
	"io"
	"strings"

	"charchat-client/internal/models"
)

// BannerService - промо-баннеры.
type BannerService struct {
	api APIClient
}

func NewBannerService(api APIClient) *BannerService {
	return &BannerService{api: api}
}

// Active - GET /banners. Сервер уже отфильтровал баннеры по расписанию и отсортировал по order.
func (s *BannerService) Active(ctx context.Context) ([]models.Banner, error) {
	var banners []models.Banner
	if err := s.api.Get(ctx, "/banners", nil, &banners); err != nil {
		return nil, err
	}
	return banners, nil
}

// PersonaService - персоны пользователя.
type PersonaService struct {
	api APIClient
}

func NewPersonaService(api APIClient) *PersonaService {
	return &PersonaService{api: api}
}

// List - GET /personas.
func (s *PersonaService) List(ctx context.Context) ([]models.PersonaPreset, error) {
	var list []models.PersonaPreset
	if err := s.api.Get(ctx, "/personas", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Create - POST /personas.
func (s *PersonaService) Create(ctx context.Context, in models.PersonaInput) (*models.PersonaPreset, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	var p models.PersonaPreset
	if err := s.api.Post(ctx, "/personas", in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Update - PUT /personas/:id.
func (s *PersonaService) Update(ctx context.Context, id string, in models.PersonaInput) (*models.PersonaPreset, error) {
	id, err := requireID("persona id", id)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	var p models.PersonaPreset
	if err := s.api.Put(ctx, "/personas/"+id, in, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Delete - DELETE /personas/:id.
func (s *PersonaService) Delete(ctx context.Context, id string) error {
	id, err := requireID("persona id", id)
	if err != nil {
		return err
	}
	return s.api.Delete(ctx, "/personas/"+id, nil)
}

// WorldService - миры (сеттинги).
type WorldService struct {
	api APIClient
}

func NewWorldService(api APIClient) *WorldService {
	return &WorldService{api: api}
}

// List - GET /worlds.
func (s *WorldService) List(ctx context.Context, params models.ListParams) (*models.Page[models.World], error) {
	var page models.Page[models.World]
	if err := s.api.Get(ctx, "/worlds", params.Query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Get - GET /worlds/:id.
func (s *WorldService) Get(ctx context.Context, id string) (*models.World, error) {
	id, err := requireID("world id", id)
	if err != nil {
		return nil, err
	}
	var w models.World
	if err := s.api.Get(ctx, "/worlds/"+id, nil, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// Create - POST /worlds.
func (s *WorldService) Create(ctx context.Context, in models.WorldInput) (*models.World, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, models.Required("name")
	}
	var w models.World
	if err := s.api.Post(ctx, "/worlds", in, &w); err != nil {
		return nil, err
	}
	return &w, nil
}

// ImageService - загрузка изображений (аватары персонажей и т.п.).
type ImageService struct {
	api APIClient
}

func NewImageService(api APIClient) *ImageService {
	return &ImageService{api: api}
}

// List - GET /images.
func (s *ImageService) List(ctx context.Context) ([]models.ImageAsset, error) {
	var list []models.ImageAsset
	if err := s.api.Get(ctx, "/images", nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// Upload - POST /images (multipart, поле "file"). Пустой файл не отправляется.
func (s *ImageService) Upload(ctx context.Context, fileName string, content io.Reader) (*models.ImageAsset, error) {
	if strings.TrimSpace(fileName) == "" {
		return nil, models.Required("fileName")
	}
	raw, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, &models.FieldError{Field: "file", Reason: "is empty"}
	}
	var img models.ImageAsset
	if err := s.api.Upload(ctx, "/images", "file", fileName, bytes.NewReader(raw), &img); err != nil {
		return nil, err
	}
	return &img, nil
}

// Delete - DELETE /images/:id.
func (s *ImageService) Delete(ctx context.Context, id string) error {
	id, err := requireID("image id", id)
	if err != nil {
		return err
	}
	return s.api.Delete(ctx, "/images/"+id, nil)
}
