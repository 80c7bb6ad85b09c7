package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	openaigo "github.com/sashabaranov/go-openai"

	"charchat-client/internal/models"
)

// ErrGenerationFailed - ответ персонажа не удалось сгенерировать.
var ErrGenerationFailed = errors.New("character reply generation failed")

// historyWindow - сколько последних сообщений диалога уходит в модель.
const historyWindow = 20

// Responder генерирует ответ персонажа на реплику пользователя.
type Responder interface {
	Reply(ctx context.Context, character models.Character, history []models.Message, userInput string) (string, error)
}

// EchoResponder отвечает детерминированно, без внешних вызовов.
type EchoResponder struct{}

func (EchoResponder) Reply(_ context.Context, character models.Character, _ []models.Message, userInput string) (string, error) {
	return fmt.Sprintf("%s: %s", character.Name, userInput), nil
}

// openAIResponder использует OpenAI-совместимый chat completions API.
type openAIResponder struct {
	client *openaigo.Client
	model  string
	logger zerolog.Logger
}

// NewOpenAIResponder создает Responder поверх go-openai.
func NewOpenAIResponder(apiKey, baseURL, model string, logger zerolog.Logger) Responder {
	cfg := openaigo.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	cfg.HTTPClient = &http.Client{Timeout: 60 * time.Second}
	return &openAIResponder{
		client: openaigo.NewClientWithConfig(cfg),
		model:  model,
		logger: logger.With().Str("component", "OpenAIResponder").Logger(),
	}
}

func (r *openAIResponder) Reply(ctx context.Context, character models.Character, history []models.Message, userInput string) (string, error) {
	messages := []openaigo.ChatCompletionMessage{
		{Role: openaigo.ChatMessageRoleSystem, Content: systemPrompt(character)},
	}
	if len(history) > historyWindow {
		history = history[len(history)-historyWindow:]
	}
	for _, m := range history {
		role := openaigo.ChatMessageRoleAssistant
		if m.Sender == models.SenderUser {
			role = openaigo.ChatMessageRoleUser
		}
		messages = append(messages, openaigo.ChatCompletionMessage{Role: role, Content: m.Content})
	}
	messages = append(messages, openaigo.ChatCompletionMessage{Role: openaigo.ChatMessageRoleUser, Content: userInput})

	start := time.Now()
	resp, err := r.client.CreateChatCompletion(ctx, openaigo.ChatCompletionRequest{
		Model:    r.model,
		Messages: messages,
	})
	if err != nil {
		r.logger.Error().Err(err).Dur("duration", time.Since(start)).Msg("AI request failed")
		return "", fmt.Errorf("%w: %v", ErrGenerationFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return "", fmt.Errorf("%w: empty response", ErrGenerationFailed)
	}
	r.logger.Debug().
		Dur("duration", time.Since(start)).
		Int("promptTokens", resp.Usage.PromptTokens).
		Int("completionTokens", resp.Usage.CompletionTokens).
		Msg("AI reply received")
	return resp.Choices[0].Message.Content, nil
}

func systemPrompt(c models.Character) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You are %s. Stay in character.", c.Name)
	if c.Description != "" {
		fmt.Fprintf(&b, "\nDescription: %s", c.Description)
	}
	if c.Personality != "" {
		fmt.Fprintf(&b, "\nPersonality: %s", c.Personality)
	}
	return b.String()
}
