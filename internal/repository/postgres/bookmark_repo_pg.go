package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

type BookmarkRepository struct {
	db *sqlx.DB
}

func NewBookmarkRepo(db *sqlx.DB) *BookmarkRepository {
	return &BookmarkRepository{db: db}
}

// Add returns sql.ErrNoRows when the bookmark already exists.
func (r *BookmarkRepository) Add(ctx context.Context, userID, projectID uuid.UUID) (*domain.Bookmark, error) {
	const query = `
		INSERT INTO bookmarks (user_id, project_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, project_id) DO NOTHING
		RETURNING user_id, project_id, created_at
	`
	var bookmark domain.Bookmark
	if err := conn(ctx, r.db).GetContext(ctx, &bookmark, query, userID, projectID); err != nil {
		return nil, err
	}
	return &bookmark, nil
}

func (r *BookmarkRepository) Remove(ctx context.Context, userID, projectID uuid.UUID) error {
	const query = `
		DELETE FROM bookmarks
		WHERE user_id = $1 AND project_id = $2
	`
	result, err := conn(ctx, r.db).ExecContext(ctx, query, userID, projectID)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (r *BookmarkRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.BookmarkListItem, error) {
	const query = `
		SELECT
			b.user_id,
			b.project_id,
			b.created_at,
			p.title AS project_title,
			p.status AS project_status,
			p.nature AS project_nature,
			p.state AS project_state
		FROM bookmarks b
		JOIN projects p ON p.id = b.project_id
		WHERE b.user_id = $1
		ORDER BY b.created_at DESC, b.project_id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := conn(ctx, r.db).QueryxContext(ctx, query, userID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]domain.BookmarkListItem, 0)
	for rows.Next() {
		var item domain.BookmarkListItem
		if err := rows.StructScan(&item); err != nil {
			return nil, err
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (r *BookmarkRepository) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var count int64
	if err := conn(ctx, r.db).GetContext(ctx, &count, `SELECT COUNT(*) FROM bookmarks WHERE user_id = $1`, userID); err != nil {
		return 0, err
	}
	return count, nil
}

func (r *BookmarkRepository) RemoveProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM bookmarks WHERE project_id = $1`, projectID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *BookmarkRepository) RemoveUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM bookmarks WHERE user_id = $1`, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

var _ ports.BookmarkRepository = (*BookmarkRepository)(nil)
