package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

var (
	ErrBookmarkAlreadyExists = errors.New("project already bookmarked")
	ErrBookmarkNotFound      = errors.New("bookmark not found")
)

type BookmarkService struct {
	bookmarks ports.BookmarkRepository
	projects  ProjectLookup
}

type BookmarkListResult struct {
	Items      []domain.BookmarkListItem
	Total      int64
	TotalPages int
}

func NewBookmarkService(bookmarkRepo ports.BookmarkRepository, projects ProjectLookup) *BookmarkService {
	return &BookmarkService{
		bookmarks: bookmarkRepo,
		projects:  projects,
	}
}

// Save bookmarks a project for a student.
func (s *BookmarkService) Save(ctx context.Context, caller *domain.User, projectID uuid.UUID) (*domain.Bookmark, error) {
	if caller.IsPolitician {
		return nil, ErrForbidden
	}
	if _, err := s.projects.FindByID(ctx, projectID); err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}

	bookmark, err := s.bookmarks.Add(ctx, caller.ID, projectID)
	if err != nil {
		switch {
		case isNotFound(err), isUniqueViolation(err):
			return nil, ErrBookmarkAlreadyExists
		default:
			return nil, err
		}
	}
	return bookmark, nil
}

func (s *BookmarkService) Remove(ctx context.Context, caller *domain.User, projectID uuid.UUID) error {
	if err := s.bookmarks.Remove(ctx, caller.ID, projectID); err != nil {
		if isNotFound(err) {
			return ErrBookmarkNotFound
		}
		return err
	}
	return nil
}

func (s *BookmarkService) List(ctx context.Context, caller *domain.User, params query.Params) (*BookmarkListResult, error) {
	page, err := query.Page(params)
	if err != nil {
		return nil, err
	}

	items, err := s.bookmarks.ListByUser(ctx, caller.ID, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}

	total, err := s.bookmarks.CountByUser(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	return &BookmarkListResult{
		Items:      items,
		Total:      total,
		TotalPages: page.TotalPages(total),
	}, nil
}
