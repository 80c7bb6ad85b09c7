package service

import (
	"context"
	"strings"

	"charchat-client/internal/models"
)

// ChatService - диалоги и сообщения.
type ChatService struct {
	api APIClient
}

func NewChatService(api APIClient) *ChatService {
	return &ChatService{api: api}
}

// List - GET /chat.
func (s *ChatService) List(ctx context.Context, params models.ListParams) (*models.Page[models.Chat], error) {
	var page models.Page[models.Chat]
	if err := s.api.Get(ctx, "/chat", params.Query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Start - POST /chat, начинает диалог с персонажем.
func (s *ChatService) Start(ctx context.Context, req models.StartChatRequest) (*models.Chat, error) {
	if strings.TrimSpace(req.CharacterID) == "" {
		return nil, models.Required("characterId")
	}
	var c models.Chat
	if err := s.api.Post(ctx, "/chat", req, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Get - GET /chat/:id.
func (s *ChatService) Get(ctx context.Context, chatID string) (*models.Chat, error) {
	id, err := requireID("chat id", chatID)
	if err != nil {
		return nil, err
	}
	var c models.Chat
	if err := s.api.Get(ctx, "/chat/"+id, nil, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

// Delete - DELETE /chat/:id.
func (s *ChatService) Delete(ctx context.Context, chatID string) error {
	id, err := requireID("chat id", chatID)
	if err != nil {
		return err
	}
	return s.api.Delete(ctx, "/chat/"+id, nil)
}

// Messages - GET /chat/:id/messages.
func (s *ChatService) Messages(ctx context.Context, chatID string, params models.ListParams) (*models.Page[models.Message], error) {
	id, err := requireID("chat id", chatID)
	if err != nil {
		return nil, err
	}
	var page models.Page[models.Message]
	if err := s.api.Get(ctx, "/chat/"+id+"/messages", params.Query(), &page); err != nil {
		return nil, err
	}
	return &page, nil
}

// Send - POST /chat/:id/messages. Списывает токены за ход.
func (s *ChatService) Send(ctx context.Context, chatID, content string) (*models.ChatTurn, error) {
	id, err := requireID("chat id", chatID)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(content) == "" {
		return nil, models.Required("content")
	}
	var turn models.ChatTurn
	if err := s.api.Post(ctx, "/chat/"+id+"/messages", models.SendMessageRequest{Content: content}, &turn); err != nil {
		return nil, err
	}
	return &turn, nil
}
