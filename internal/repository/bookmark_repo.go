package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type BookmarkRepo struct {
	pool *pgxpool.Pool
}

func NewBookmarkRepo(pool *pgxpool.Pool) *BookmarkRepo {
	return &BookmarkRepo{pool: pool}
}

// Toggle removes the bookmark when present and inserts it otherwise.
// It reports whether the post is bookmarked after the call.
func (r *BookmarkRepo) Toggle(ctx context.Context, userID uuid.UUID, blogID int) (bool, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return false, err
	}
	defer tx.Rollback(ctx)

	tag, err := tx.Exec(ctx, "DELETE FROM bookmarks WHERE user_id = $1 AND blog_id = $2", userID, blogID)
	if err != nil {
		return false, err
	}

	bookmarked := false
	if tag.RowsAffected() == 0 {
		if _, err := tx.Exec(ctx,
			"INSERT INTO bookmarks (user_id, blog_id) VALUES ($1, $2) ON CONFLICT DO NOTHING",
			userID, blogID,
		); err != nil {
			return false, err
		}
		bookmarked = true
	}

	if err := tx.Commit(ctx); err != nil {
		return false, err
	}
	return bookmarked, nil
}

func (r *BookmarkRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]int, error) {
	rows, err := r.pool.Query(ctx, "SELECT blog_id FROM bookmarks WHERE user_id = $1 ORDER BY created_at", userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := []int{}
	for rows.Next() {
		var id int
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
