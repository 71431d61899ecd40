package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"sciencebindu-backend/internal/models"
)

// ErrProfileCreate marks a sign-up whose account row succeeded but profile row did not.
var ErrProfileCreate = errors.New("profile insert failed")

type UserRepo struct {
	pool *pgxpool.Pool
}

// DigestRecipient is a learner with recent quiz activity.
type DigestRecipient struct {
	ID           uuid.UUID
	Email        string
	Name         string
	QuizCount    int
	AverageScore float64
}

func NewUserRepo(pool *pgxpool.Pool) *UserRepo {
	return &UserRepo{pool: pool}
}

// CreateWithProfile inserts the account and its profile atomically.
func (r *UserRepo) CreateWithProfile(ctx context.Context, user *models.User, profile *models.Profile) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin sign-up transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	user.ID = uuid.New()
	err = tx.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash) VALUES ($1, $2, $3) RETURNING created_at`,
		user.ID, user.Email, user.PasswordHash,
	).Scan(&user.CreatedAt)
	if err != nil {
		return err
	}

	profile.ID = user.ID
	err = tx.QueryRow(ctx,
		`INSERT INTO profiles (id, name, age, birth_year, profession, address)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING created_at, updated_at`,
		profile.ID, profile.Name, profile.Age, profile.BirthYear, profile.Profession, profile.Address,
	).Scan(&profile.CreatedAt, &profile.UpdatedAt)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProfileCreate, err)
	}

	return tx.Commit(ctx)
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, created_at FROM users WHERE lower(email) = lower($1)`

	err := r.pool.QueryRow(ctx, query, email).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	user := &models.User{}
	query := `SELECT id, email, password_hash, created_at FROM users WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, id).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepo) UpdatePassword(ctx context.Context, userID uuid.UUID, passwordHash string) error {
	_, err := r.pool.Exec(ctx, "UPDATE users SET password_hash = $1 WHERE id = $2", passwordHash, userID)
	return err
}

func (r *UserRepo) GetProfile(ctx context.Context, userID uuid.UUID) (*models.Profile, error) {
	p := &models.Profile{}
	query := `SELECT id, name, age, birth_year, profession, address, created_at, updated_at
		FROM profiles WHERE id = $1`

	err := r.pool.QueryRow(ctx, query, userID).Scan(
		&p.ID, &p.Name, &p.Age, &p.BirthYear, &p.Profession, &p.Address, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, p *models.Profile) error {
	query := `UPDATE profiles SET name = $1, profession = $2, address = $3, age = $4, birth_year = $5, updated_at = NOW()
		WHERE id = $6 RETURNING updated_at`
	return r.pool.QueryRow(ctx, query, p.Name, p.Profession, p.Address, p.Age, p.BirthYear, p.ID).Scan(&p.UpdatedAt)
}

// ListDigestRecipients returns learners who completed at least one quiz since the given time.
func (r *UserRepo) ListDigestRecipients(ctx context.Context, since time.Time) ([]DigestRecipient, error) {
	query := `
		SELECT u.id, u.email, p.name, COUNT(q.id),
			COALESCE(AVG(q.score::float / NULLIF(q.total_questions, 0)) * 100, 0)
		FROM users u
		JOIN profiles p ON p.id = u.id
		JOIN quiz_results q ON q.user_id = u.id
		WHERE q.created_at >= $1
		GROUP BY u.id, u.email, p.name`

	rows, err := r.pool.Query(ctx, query, since)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var recipients []DigestRecipient
	for rows.Next() {
		var d DigestRecipient
		if err := rows.Scan(&d.ID, &d.Email, &d.Name, &d.QuizCount, &d.AverageScore); err != nil {
			return nil, err
		}
		recipients = append(recipients, d)
	}
	return recipients, rows.Err()
}
