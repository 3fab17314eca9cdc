// ABOUTME: Explicitly owned chat session with conversation history
// ABOUTME: Created once at startup and passed by reference into message handling
package llm

import (
	"context"
	"errors"
	"strings"
	"sync"

	openai "github.com/sashabaranov/go-openai"

	"github.com/harper/marcusbot/internal/models"
)

// DefaultMaxTurns bounds how much history is replayed to the model
const DefaultMaxTurns = 50

// ChatSession keeps the history of one conversation
type ChatSession struct {
	client   *GeminiClient
	model    string
	maxTurns int

	mu      sync.Mutex
	history []models.Turn
}

func newChatSession(client *GeminiClient, model string) *ChatSession {
	return &ChatSession{client: client, model: model, maxTurns: DefaultMaxTurns}
}

// Send sends text with the history as context. The exchange is appended to
// the history only when the call succeeds.
func (s *ChatSession) Send(ctx context.Context, text string) (*models.Response, error) {
	if strings.TrimSpace(text) == "" {
		return nil, errors.New("chat message cannot be empty")
	}

	s.mu.Lock()
	messages := make([]openai.ChatCompletionMessage, 0, 2*len(s.history)+1)
	for _, t := range s.history {
		messages = append(messages,
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: t.UserMessage},
			openai.ChatCompletionMessage{Role: openai.ChatMessageRoleAssistant, Content: t.AIResponse},
		)
	}
	s.mu.Unlock()
	messages = append(messages, openai.ChatCompletionMessage{Role: openai.ChatMessageRoleUser, Content: text})

	reply, err := s.client.complete(ctx, s.model, messages, 0)
	if err != nil {
		return nil, err
	}

	turn, err := models.NewTurn(text, reply)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.history = append(s.history, *turn)
	if over := len(s.history) - s.maxTurns; over > 0 {
		s.history = append([]models.Turn(nil), s.history[over:]...)
	}
	s.mu.Unlock()

	return models.TextResponse(reply), nil
}

// History returns a copy of the recorded turns
func (s *ChatSession) History() []models.Turn {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Turn(nil), s.history...)
}
