package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
)

type ApplicationRepository interface {
	Create(ctx context.Context, applicantID, projectID uuid.UUID, answers domain.Answers) (*domain.Application, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error)
	ListByApplicant(ctx context.Context, applicantID uuid.UUID, filter query.Predicate, limit, offset int) ([]domain.Application, int64, error)
	ListByCreator(ctx context.Context, creatorID uuid.UUID, filter query.Predicate, limit, offset int) ([]domain.Application, int64, error)
	ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Application, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.ApplicationStatus) (*domain.Application, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	DeleteByApplicant(ctx context.Context, applicantID uuid.UUID) (int64, error)
}
