package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"

	"sciencebindu-backend/internal/models"
)

const (
	msgChatNotUnderstood = "বুঝতে পারিনি।"
	chatTitleRunes       = 30
)

// StudentClasses are the class levels the tutor persona accepts.
var StudentClasses = []string{
	"Class 5", "Class 6", "Class 7", "Class 8", "Class 9 (Science)", "Class 10 (SSC)", "HSC",
}

type textGenerator interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

type chatSessionRepo interface {
	Upsert(ctx context.Context, s *models.ChatSession) error
	ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error)
	GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ChatSession, error)
	Delete(ctx context.Context, id, userID uuid.UUID) (bool, error)
}

type profileReader interface {
	GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error)
}

// Conversation is the in-progress chat held in Redis. Its ID doubles as the
// chat_sessions row id once a checkpoint has been written.
type Conversation struct {
	ID         uuid.UUID            `json:"id"`
	Mode       models.ChatMode      `json:"mode"`
	ClassLevel string               `json:"class_level,omitempty"`
	Name       string               `json:"name"`
	Age        int                  `json:"age"`
	Messages   []models.ChatMessage `json:"messages"`
}

type ChatService struct {
	gemini    textGenerator
	sessions  chatSessionRepo
	profiles  profileReader
	redis     *redis.Client
	ttl       time.Duration
	publisher updatePublisher
}

func NewChatService(gemini textGenerator, sessions chatSessionRepo, profiles profileReader, redisClient *redis.Client, ttl time.Duration, publisher updatePublisher) *ChatService {
	return &ChatService{
		gemini:    gemini,
		sessions:  sessions,
		profiles:  profiles,
		redis:     redisClient,
		ttl:       ttl,
		publisher: publisher,
	}
}

// ShouldCheckpoint reports whether growing a transcript from before to after
// messages crossed a multiple of four. Nothing is saved below two messages.
func ShouldCheckpoint(before, after int) bool {
	return after >= 2 && after/4 > before/4
}

// SessionTitle is the first message truncated to 30 characters plus an ellipsis.
func SessionTitle(messages []models.ChatMessage) string {
	if len(messages) == 0 {
		return "..."
	}
	r := []rune(messages[0].Text)
	if len(r) > chatTitleRunes {
		r = r[:chatTitleRunes]
	}
	return string(r) + "..."
}

func validStudentClass(class string) bool {
	for _, c := range StudentClasses {
		if c == class {
			return true
		}
	}
	return false
}

func systemInstruction(conv *Conversation) string {
	if conv.Mode == models.ChatModeStudent && conv.ClassLevel != "" {
		return fmt.Sprintf("You are 'Hidayah Tutor', an academic companion for %s in %s. Solve problems step-by-step using KaTeX format.", conv.Name, conv.ClassLevel)
	}
	return fmt.Sprintf("You are HidayahAI, a spiritual guide for %s, age %d. Use a gentle, Islamic tone in Bengali.", conv.Name, conv.Age)
}

// Start opens a fresh conversation with a model greeting, replacing any active one.
func (s *ChatService) Start(ctx context.Context, userID uuid.UUID, req models.StartChatRequest) (*Conversation, error) {
	if !req.Mode.Valid() {
		return nil, &ValidationError{Fields: map[string]string{"mode": "must be spiritual or student"}}
	}
	if req.Mode == models.ChatModeStudent && !validStudentClass(req.ClassLevel) {
		return nil, &ValidationError{Fields: map[string]string{"class_level": "must be one of " + strings.Join(StudentClasses, ", ")}}
	}

	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	conv := &Conversation{
		ID:   uuid.New(),
		Mode: req.Mode,
		Name: profile.Name,
		Age:  profile.Age,
	}
	if req.Mode == models.ChatModeStudent {
		conv.ClassLevel = req.ClassLevel
	}

	greeting, err := s.gemini.Generate(ctx, GenerateRequest{
		Prompt:            fmt.Sprintf("Say Salam and a warm welcome to %s in Bengali.", conv.Name),
		SystemInstruction: systemInstruction(conv),
	})
	if err != nil || strings.TrimSpace(greeting) == "" {
		if err != nil {
			log.Printf("Chat greeting failed for user %s: %v", userID, err)
		}
		greeting = fmt.Sprintf("আসসালামু আলাইকুম %s! আমি হিদায়াহ এআই।", conv.Name)
	}
	conv.Messages = []models.ChatMessage{{Role: "model", Text: greeting}}

	if err := s.saveActive(ctx, userID, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Send appends the learner's turn and the model's reply. AI failures append a
// fixed error turn instead of failing the request, and skip the checkpoint.
func (s *ChatService) Send(ctx context.Context, userID uuid.UUID, req models.SendMessageRequest) (*Conversation, error) {
	text := strings.TrimSpace(req.Text)
	if text == "" && req.Image == "" {
		return nil, &ValidationError{Fields: map[string]string{"text": "Message text or image is required"}}
	}

	var image *InlineImage
	if req.Image != "" {
		img, err := ParseDataURI(req.Image)
		if err != nil {
			return nil, &ValidationError{Fields: map[string]string{"image": err.Error()}}
		}
		image = img
	}

	conv, err := s.Current(ctx, userID)
	if err != nil {
		return nil, err
	}

	history := conv.Messages
	before := len(history)
	conv.Messages = append(conv.Messages, models.ChatMessage{Role: "user", Text: text, Image: req.Image})

	reply, err := s.gemini.Generate(ctx, GenerateRequest{
		Prompt:            fmt.Sprintf("Current chat: %s. Answer in Bengali.", text),
		SystemInstruction: systemInstruction(conv),
		Image:             image,
		History:           history,
	})
	if err != nil {
		log.Printf("Chat reply failed for user %s: %v", userID, err)
		conv.Messages = append(conv.Messages, models.ChatMessage{Role: "model", Text: msgAIFailed})
		if err := s.saveActive(ctx, userID, conv); err != nil {
			return nil, err
		}
		return conv, nil
	}

	if strings.TrimSpace(reply) == "" {
		reply = msgChatNotUnderstood
	}
	conv.Messages = append(conv.Messages, models.ChatMessage{Role: "model", Text: reply})

	if err := s.saveActive(ctx, userID, conv); err != nil {
		return nil, err
	}
	if ShouldCheckpoint(before, len(conv.Messages)) {
		s.checkpoint(ctx, userID, conv)
	}
	return conv, nil
}

// checkpoint persists the conversation. Failures are logged and swallowed.
func (s *ChatService) checkpoint(ctx context.Context, userID uuid.UUID, conv *Conversation) {
	session := &models.ChatSession{
		ID:         conv.ID,
		UserID:     userID,
		Title:      SessionTitle(conv.Messages),
		Mode:       conv.Mode,
		ClassLevel: conv.ClassLevel,
		Messages:   conv.Messages,
	}
	if err := s.sessions.Upsert(ctx, session); err != nil {
		log.Printf("Chat checkpoint failed for session %s: %v", conv.ID, err)
		return
	}

	if s.publisher != nil {
		s.publisher.PublishUpdate(ctx, userID, models.WSMessage{
			Type: "chat_saved",
			Payload: models.ChatSavedEvent{
				SessionID: session.ID,
				Title:     session.Title,
				Messages:  len(session.Messages),
			},
		})
	}
}

// Current returns the active conversation.
func (s *ChatService) Current(ctx context.Context, userID uuid.UUID) (*Conversation, error) {
	raw, err := s.redis.Get(ctx, activeChatKey(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, &NotFoundError{Message: "No active conversation"}
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	conv := &Conversation{}
	if err := json.Unmarshal(raw, conv); err != nil {
		return nil, fmt.Errorf("failed to decode conversation: %w", err)
	}
	return conv, nil
}

// Load makes a saved session the active conversation, restoring its mode.
func (s *ChatService) Load(ctx context.Context, userID, sessionID uuid.UUID) (*Conversation, error) {
	session, err := s.Get(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	profile, err := s.profiles.GetProfile(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load profile: %w", err)
	}

	conv := &Conversation{
		ID:         session.ID,
		Mode:       session.Mode,
		ClassLevel: session.ClassLevel,
		Name:       profile.Name,
		Age:        profile.Age,
		Messages:   session.Messages,
	}
	if err := s.saveActive(ctx, userID, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

func (s *ChatService) List(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	return s.sessions.ListByUser(ctx, userID)
}

func (s *ChatService) Get(ctx context.Context, userID, sessionID uuid.UUID) (*models.ChatSession, error) {
	session, err := s.sessions.GetByID(ctx, sessionID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, &NotFoundError{Message: "Chat session not found"}
	}
	if err != nil {
		return nil, err
	}
	return session, nil
}

// Delete removes a saved session. If it is also the active conversation the
// active copy is dropped so it cannot be checkpointed back into existence.
func (s *ChatService) Delete(ctx context.Context, userID, sessionID uuid.UUID) error {
	deleted, err := s.sessions.Delete(ctx, sessionID, userID)
	if err != nil {
		return err
	}
	if !deleted {
		return &NotFoundError{Message: "Chat session not found"}
	}

	if conv, err := s.Current(ctx, userID); err == nil && conv.ID == sessionID {
		s.redis.Del(ctx, activeChatKey(userID))
	}
	return nil
}

func (s *ChatService) saveActive(ctx context.Context, userID uuid.UUID, conv *Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return err
	}
	if err := s.redis.Set(ctx, activeChatKey(userID), data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store conversation: %w", err)
	}
	return nil
}

func activeChatKey(userID uuid.UUID) string {
	return "chat:active:" + userID.String()
}
