package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
)

type NewUser struct {
	Username     string
	Email        string
	PasswordHash []byte
	PasswordSalt []byte
	IsPolitician bool
}

type UserRepository interface {
	Create(ctx context.Context, user NewUser) (*domain.User, error)
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error
	MarkVerified(ctx context.Context, id uuid.UUID) error
	Search(ctx context.Context, filter query.Predicate, limit, offset int) ([]domain.User, int64, error)
	Delete(ctx context.Context, id uuid.UUID) error
}
