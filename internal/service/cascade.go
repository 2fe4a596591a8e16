package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

// The entity services reach each other's records only through these.

type ApplicationCleaner interface {
	DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	DeleteByApplicant(ctx context.Context, applicantID uuid.UUID) (int64, error)
}

type BookmarkCleaner interface {
	RemoveProject(ctx context.Context, projectID uuid.UUID) (int64, error)
	RemoveUser(ctx context.Context, userID uuid.UUID) (int64, error)
}

type ProjectCleaner interface {
	ListIDsByCreator(ctx context.Context, creatorID uuid.UUID) ([]uuid.UUID, error)
	Delete(ctx context.Context, id uuid.UUID) error
}

type ProjectLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error)
}

type UserLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
}

// TokenRevoker drops the single-use tokens held by an account.
type TokenRevoker interface {
	Revoke(ctx context.Context, subject string) error
}

type directTx struct{}

func (directTx) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func transactorOrDirect(tx ports.Transactor) ports.Transactor {
	if tx == nil {
		return directTx{}
	}
	return tx
}

// StatusMailer notifies applicants about status changes.
type StatusMailer interface {
	SendApplicationStatus(ctx context.Context, email, projectTitle string, status domain.ApplicationStatus) error
	SendProjectStatus(ctx context.Context, email, projectTitle string, status domain.ProjectStatus) error
}

// purgeProject deletes a project after the applications and bookmarks that
// reference it. Callers run it inside a transaction.
func purgeProject(ctx context.Context, id uuid.UUID, applications ApplicationCleaner, bookmarks BookmarkCleaner, projects ProjectCleaner) error {
	if _, err := applications.DeleteByProject(ctx, id); err != nil {
		return err
	}
	if _, err := bookmarks.RemoveProject(ctx, id); err != nil {
		return err
	}
	if err := projects.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrProjectNotFound
		}
		return err
	}
	return nil
}
