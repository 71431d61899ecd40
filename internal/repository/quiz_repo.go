package repository

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sciencebindu-backend/internal/models"
)

var ErrInvalidScore = errors.New("score must lie within [0, total_questions]")

type QuizResultRepo struct {
	pool *pgxpool.Pool
}

func NewQuizResultRepo(pool *pgxpool.Pool) *QuizResultRepo {
	return &QuizResultRepo{pool: pool}
}

func (r *QuizResultRepo) Create(ctx context.Context, res *models.QuizResult) error {
	if res.Score < 0 || res.Score > res.TotalQuestions {
		return ErrInvalidScore
	}

	res.ID = uuid.New()
	query := `INSERT INTO quiz_results (id, user_id, date, score, total_questions, category, level)
		VALUES ($1, $2, $3, $4, $5, $6, $7) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		res.ID, res.UserID, res.Date, res.Score, res.TotalQuestions, res.Category, res.Level,
	).Scan(&res.CreatedAt)
}

// ListByUser returns the user's results, most recent first. No rows yields an empty slice.
func (r *QuizResultRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]models.QuizResult, error) {
	query := `SELECT id, user_id, date, score, total_questions, category, level, created_at
		FROM quiz_results WHERE user_id = $1 ORDER BY created_at DESC`

	rows, err := r.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	results := []models.QuizResult{}
	for rows.Next() {
		var q models.QuizResult
		if err := rows.Scan(&q.ID, &q.UserID, &q.Date, &q.Score, &q.TotalQuestions, &q.Category, &q.Level, &q.CreatedAt); err != nil {
			return nil, err
		}
		results = append(results, q)
	}
	return results, rows.Err()
}
