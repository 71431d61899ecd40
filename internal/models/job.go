package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// MailJob is a queued e-mail delivery handled by the worker pool.
type MailJob struct {
	ID         uuid.UUID       `json:"id"`
	Type       string          `json:"type"`
	To         string          `json:"to"`
	Payload    json.RawMessage `json:"payload"`
	RetryCount int             `json:"retry_count"`
	CreatedAt  time.Time       `json:"created_at"`
}

const (
	MailPasswordReset = "password-reset"
	MailInquiry       = "inquiry-notification"
	MailWeeklyDigest  = "weekly-digest"
)

type PasswordResetMail struct {
	Token string `json:"token"`
}

type InquiryMail struct {
	Inquiry Inquiry `json:"inquiry"`
}

type WeeklyDigestMail struct {
	Name         string `json:"name"`
	QuizCount    int    `json:"quiz_count"`
	AverageScore int    `json:"average_score"`
}

// WebSocket message types
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type ExamEvent struct {
	State    string `json:"state"`
	Scope    string `json:"scope"`
	ErrorMsg string `json:"error_message,omitempty"`
}

type ChatSavedEvent struct {
	SessionID uuid.UUID `json:"session_id"`
	Title     string    `json:"title"`
	Messages  int       `json:"messages"`
}

type SessionChangedEvent struct {
	Event string `json:"event"` // "signed_in" | "signed_out" | "password_reset"
}

// API Error response
type APIError struct {
	Code      string            `json:"code"`
	Message   string            `json:"message"`
	Fields    map[string]string `json:"fields,omitempty"`
	RequestID string            `json:"request_id"`
}

type ErrorResponse struct {
	Error APIError `json:"error"`
}
