package models

import (
	"time"

	"github.com/google/uuid"
)

type ChatMode string

const (
	ChatModeSpiritual ChatMode = "spiritual"
	ChatModeStudent   ChatMode = "student"
)

func (m ChatMode) Valid() bool {
	return m == ChatModeSpiritual || m == ChatModeStudent
}

// ChatMessage represents a single turn in a conversation.
type ChatMessage struct {
	Role  string `json:"role"` // "user" or "model"
	Text  string `json:"text"`
	Image string `json:"image,omitempty"` // data URI
}

// ChatSession is a persisted snapshot of a conversation.
type ChatSession struct {
	ID         uuid.UUID     `json:"id"`
	UserID     uuid.UUID     `json:"-"`
	Title      string        `json:"title"`
	Mode       ChatMode      `json:"mode"`
	ClassLevel string        `json:"class_level,omitempty"`
	Messages   []ChatMessage `json:"messages"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

type StartChatRequest struct {
	Mode       ChatMode `json:"mode" validate:"required,oneof=spiritual student"`
	ClassLevel string   `json:"class_level"`
}

type SendMessageRequest struct {
	Text  string `json:"text" validate:"max=4000"`
	Image string `json:"image" validate:"omitempty,data_uri"`
}
