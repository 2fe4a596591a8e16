package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
)

type ProjectRepository interface {
	Create(ctx context.Context, creatorID uuid.UUID, fields domain.ProjectFields) (*domain.Project, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
	Update(ctx context.Context, id uuid.UUID, fields domain.ProjectFields) (*domain.Project, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error)
	SetFile(ctx context.Context, id uuid.UUID, file string) (*domain.Project, error)
	Delete(ctx context.Context, id uuid.UUID) error
	// List matches filter; a non-nil scope restricts the result to projects
	// created by, or applied to by, that user.
	List(ctx context.Context, filter query.Predicate, scope *ProjectScope, limit, offset int) ([]domain.Project, int64, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.Project, error)
	ListIDsByCreator(ctx context.Context, creatorID uuid.UUID) ([]uuid.UUID, error)
	ListAccepted(ctx context.Context, applicantID uuid.UUID) ([]domain.Project, error)
}

type ProjectScope struct {
	CreatorID   *uuid.UUID
	ApplicantID *uuid.UUID
}
