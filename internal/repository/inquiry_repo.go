package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sciencebindu-backend/internal/models"
)

type InquiryRepo struct {
	pool *pgxpool.Pool
}

func NewInquiryRepo(pool *pgxpool.Pool) *InquiryRepo {
	return &InquiryRepo{pool: pool}
}

func (r *InquiryRepo) Create(ctx context.Context, in *models.Inquiry) error {
	in.ID = uuid.New()
	query := `INSERT INTO inquiries (id, user_id, name, email, subject, message)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at`

	return r.pool.QueryRow(ctx, query,
		in.ID, in.UserID, in.Name, in.Email, in.Subject, in.Message,
	).Scan(&in.CreatedAt)
}
