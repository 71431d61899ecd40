package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sciencebindu-backend/internal/models"
)

type ChatSessionRepo struct {
	pool *pgxpool.Pool
}

func NewChatSessionRepo(pool *pgxpool.Pool) *ChatSessionRepo {
	return &ChatSessionRepo{pool: pool}
}

// Upsert writes the latest snapshot of a conversation. The first checkpoint
// inserts the row; later checkpoints replace its title and messages.
func (r *ChatSessionRepo) Upsert(ctx context.Context, s *models.ChatSession) error {
	messages, err := json.Marshal(s.Messages)
	if err != nil {
		return fmt.Errorf("failed to encode messages: %w", err)
	}

	query := `
		INSERT INTO chat_sessions (id, user_id, title, mode, class_level, messages)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET title = EXCLUDED.title, messages = EXCLUDED.messages, updated_at = NOW()
		WHERE chat_sessions.user_id = EXCLUDED.user_id
		RETURNING created_at, updated_at`

	return r.pool.QueryRow(ctx, query, s.ID, s.UserID, s.Title, string(s.Mode), s.ClassLevel, messages).
		Scan(&s.CreatedAt, &s.UpdatedAt)
}

// ListByUser returns sessions newest first.
func (r *ChatSessionRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.ChatSession, error) {
	query := `SELECT id, user_id, title, mode, class_level, messages, created_at, updated_at
		FROM chat_sessions WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	sessions := []models.ChatSession{}
	for rows.Next() {
		var s models.ChatSession
		var raw []byte
		if err := rows.Scan(&s.ID, &s.UserID, &s.Title, &s.Mode, &s.ClassLevel, &raw, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(raw, &s.Messages); err != nil {
			return nil, fmt.Errorf("failed to decode messages for session %s: %w", s.ID, err)
		}
		sessions = append(sessions, s)
	}
	return sessions, rows.Err()
}

// GetByID returns a session owned by userID.
func (r *ChatSessionRepo) GetByID(ctx context.Context, id, userID uuid.UUID) (*models.ChatSession, error) {
	s := &models.ChatSession{}
	var raw []byte
	query := `SELECT id, user_id, title, mode, class_level, messages, created_at, updated_at
		FROM chat_sessions WHERE id = $1 AND user_id = $2`

	err := r.pool.QueryRow(ctx, query, id, userID).Scan(&s.ID, &s.UserID, &s.Title, &s.Mode, &s.ClassLevel, &raw, &s.CreatedAt, &s.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, &s.Messages); err != nil {
		return nil, fmt.Errorf("failed to decode messages: %w", err)
	}
	return s, nil
}

// Delete removes a session owned by userID. It reports whether a row was deleted.
func (r *ChatSessionRepo) Delete(ctx context.Context, id, userID uuid.UUID) (bool, error) {
	tag, err := r.pool.Exec(ctx, "DELETE FROM chat_sessions WHERE id = $1 AND user_id = $2", id, userID)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() > 0, nil
}
