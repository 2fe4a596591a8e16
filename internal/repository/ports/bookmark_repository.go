package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/sci-com/scicom-api/internal/domain"
)

type BookmarkRepository interface {
	Add(ctx context.Context, userID, projectID uuid.UUID) (*domain.Bookmark, error)
	Remove(ctx context.Context, userID, projectID uuid.UUID) error
	ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.BookmarkListItem, error)
	CountByUser(ctx context.Context, userID uuid.UUID) (int64, error)
	RemoveProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	RemoveUser(ctx context.Context, userID uuid.UUID) (int64, error)
}
