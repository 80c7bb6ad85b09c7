package devserver

import (
	"sort"

	"github.com/google/uuid"

	"charchat-client/internal/models"
)

func (s *memoryStore) startChat(userID string, req models.StartChatRequest) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.characters[req.CharacterID]
	if !ok || (!c.IsPublic && c.CreatorID != userID) {
		return nil, models.ErrNotFound
	}
	if req.PersonaID != "" {
		p, ok := s.personas[req.PersonaID]
		if !ok || p.UserID != userID {
			return nil, &models.FieldError{Field: "personaId", Reason: "does not exist"}
		}
	}

	now := s.timestamp()
	chat := &models.Chat{
		ID:            uuid.NewString(),
		UserID:        userID,
		CharacterID:   c.ID,
		CharacterName: c.Name,
		PersonaID:     req.PersonaID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if c.Greeting != "" {
		s.messages[chat.ID] = []models.Message{{
			ID:        uuid.NewString(),
			ChatID:    chat.ID,
			Sender:    models.SenderCharacter,
			Content:   c.Greeting,
			CreatedAt: now,
		}}
		chat.LastMessage = c.Greeting
		chat.MessagesCount = 1
	}
	c.ChatsCount++
	s.chats[chat.ID] = chat
	out := *chat
	return &out, nil
}

// listChats - диалоги пользователя, последние активные первыми.
func (s *memoryStore) listChats(userID string, params models.ListParams) models.Page[models.Chat] {
	s.mu.Lock()
	defer s.mu.Unlock()
	items := make([]models.Chat, 0)
	for _, c := range s.chats {
		if c.UserID == userID {
			items = append(items, *c)
		}
	}
	sort.SliceStable(items, func(i, j int) bool {
		if !items[i].UpdatedAt.Equal(items[j].UpdatedAt) {
			return items[i].UpdatedAt.After(items[j].UpdatedAt)
		}
		return items[i].ID < items[j].ID
	})
	return models.Paginate(items, params)
}

func (s *memoryStore) getChat(userID, chatID string) (*models.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok || c.UserID != userID {
		return nil, models.ErrNotFound
	}
	out := *c
	return &out, nil
}

func (s *memoryStore) deleteChat(userID, chatID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok || c.UserID != userID {
		return models.ErrNotFound
	}
	delete(s.chats, chatID)
	delete(s.messages, chatID)
	return nil
}

// listMessages - история диалога от старых сообщений к новым.
func (s *memoryStore) listMessages(userID, chatID string, params models.ListParams) (models.Page[models.Message], error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.chats[chatID]
	if !ok || c.UserID != userID {
		return models.Page[models.Message]{}, models.ErrNotFound
	}
	return models.Paginate(s.messages[chatID], params), nil
}

// turnContext - все, что нужно Responder для ответа.
type turnContext struct {
	chat      models.Chat
	character models.Character
	history   []models.Message
}

// prepareTurn проверяет доступ к диалогу и достаточность баланса без списания.
func (s *memoryStore) prepareTurn(userID, chatID string, cost int64) (*turnContext, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok || chat.UserID != userID {
		return nil, models.ErrNotFound
	}
	rec, ok := s.users[userID]
	if !ok {
		return nil, models.ErrNotFound
	}
	if rec.user.TokenBalance < cost {
		return nil, models.ErrInsufficientTokens
	}
	tc := &turnContext{
		chat:    *chat,
		history: append([]models.Message(nil), s.messages[chatID]...),
	}
	if c, ok := s.characters[chat.CharacterID]; ok {
		tc.character = cloneCharacter(c)
	} else {
		tc.character = models.Character{ID: chat.CharacterID, Name: chat.CharacterName}
	}
	return tc, nil
}

// commitTurn атомарно списывает токены и сохраняет сообщение пользователя и ответ.
func (s *memoryStore) commitTurn(userID, chatID, content, reply string, cost int64) (*models.ChatTurn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	chat, ok := s.chats[chatID]
	if !ok || chat.UserID != userID {
		return nil, models.ErrNotFound
	}
	balance, err := s.adjustBalanceLocked(userID, -cost)
	if err != nil {
		return nil, err
	}

	now := s.timestamp()
	userMsg := models.Message{
		ID:        uuid.NewString(),
		ChatID:    chatID,
		Sender:    models.SenderUser,
		Content:   content,
		CreatedAt: now,
	}
	replyMsg := models.Message{
		ID:         uuid.NewString(),
		ChatID:     chatID,
		Sender:     models.SenderCharacter,
		Content:    reply,
		TokensUsed: cost,
		CreatedAt:  now,
	}
	s.messages[chatID] = append(s.messages[chatID], userMsg, replyMsg)
	chat.LastMessage = reply
	chat.MessagesCount += 2
	chat.UpdatedAt = now

	return &models.ChatTurn{
		UserMessage:  userMsg,
		Reply:        replyMsg,
		TokensUsed:   cost,
		TokenBalance: balance,
	}, nil
}
