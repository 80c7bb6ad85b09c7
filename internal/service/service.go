// Package service содержит тонкие обертки над REST API: по одной на ресурс.
// Никакого кэширования, батчинга или повторов - только проверка формы и прямой вызов эндпоинта.
package service

import (
	"context"
	"io"
	"net/url"
	"strings"

	"charchat-client/internal/apiclient"
	"charchat-client/internal/models"
)

// APIClient - подмножество apiclient.Client, используемое сервисами.
type APIClient interface {
	Get(ctx context.Context, path string, query url.Values, out any) error
	Post(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	Patch(ctx context.Context, path string, body, out any) error
	Delete(ctx context.Context, path string, out any) error
	Upload(ctx context.Context, path, field, fileName string, content io.Reader, out any) error
}

var _ APIClient = (*apiclient.Client)(nil)

// Services - набор всех сервисов поверх одного клиента.
type Services struct {
	Auth          *AuthService
	Users         *UserService
	Characters    *CharacterService
	Chats         *ChatService
	Payments      *PaymentService
	Notifications *NotificationService
	Banners       *BannerService
	Personas      *PersonaService
	Worlds        *WorldService
	Images        *ImageService
}

// NewServices создает все сервисы.
func NewServices(api APIClient) *Services {
	return &Services{
		Auth:          NewAuthService(api),
		Users:         NewUserService(api),
		Characters:    NewCharacterService(api),
		Chats:         NewChatService(api),
		Payments:      NewPaymentService(api),
		Notifications: NewNotificationService(api),
		Banners:       NewBannerService(api),
		Personas:      NewPersonaService(api),
		Worlds:        NewWorldService(api),
		Images:        NewImageService(api),
	}
}

// requireID проверяет, что идентификатор в пути не пустой, и экранирует его.
func requireID(field, id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", models.Required(field)
	}
	return url.PathEscape(id), nil
}
