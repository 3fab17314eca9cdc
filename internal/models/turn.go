// ABOUTME: Turn represents a single exchange between a chat user and the AI backend
// ABOUTME: Chat sessions keep an ordered history of turns to replay as context
package models

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Turn represents a single conversation turn
type Turn struct {
	TurnID      string    `json:"turn_id"`
	Timestamp   time.Time `json:"timestamp"`
	UserMessage string    `json:"user_message"`
	AIResponse  string    `json:"ai_response"`
}

// NewTurn creates a new Turn with validation
func NewTurn(userMessage, aiResponse string) (*Turn, error) {
	if strings.TrimSpace(userMessage) == "" {
		return nil, errors.New("user message cannot be empty")
	}
	return &Turn{
		TurnID:      generateTurnID(),
		Timestamp:   time.Now().UTC(),
		UserMessage: userMessage,
		AIResponse:  aiResponse,
	}, nil
}

// generateTurnID generates a unique turn identifier
func generateTurnID() string {
	return fmt.Sprintf("turn_%s_%s", time.Now().Format("20060102_150405"), uuid.New().String()[:8])
}
