package models

import "time"

// Роли отправителя сообщения
const (
	SenderUser      = "user"
	SenderCharacter = "character"
)

// Chat - диалог пользователя с персонажем.
type Chat struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	CharacterID   string    `json:"characterId"`
	CharacterName string    `json:"characterName,omitempty"`
	PersonaID     string    `json:"personaId,omitempty"`
	LastMessage   string    `json:"lastMessage,omitempty"`
	MessagesCount int       `json:"messagesCount"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Message - одна реплика в диалоге.
type Message struct {
	ID         string    `json:"id"`
	ChatID     string    `json:"chatId"`
	Sender     string    `json:"sender"`
	Content    string    `json:"content"`
	TokensUsed int64     `json:"tokensUsed,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
}

// StartChatRequest - тело POST /chat.
type StartChatRequest struct {
	CharacterID string `json:"characterId"`
	PersonaID   string `json:"personaId,omitempty"`
}

// SendMessageRequest - тело POST /chat/:id/messages.
type SendMessageRequest struct {
	Content string `json:"content"`
}

// ChatTurn - результат одного хода: реплика пользователя, ответ персонажа и списание токенов.
type ChatTurn struct {
	UserMessage  Message `json:"userMessage"`
	Reply        Message `json:"reply"`
	TokensUsed   int64   `json:"tokensUsed"`
	TokenBalance int64   `json:"tokenBalance"`
}
