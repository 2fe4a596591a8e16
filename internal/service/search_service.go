package service

import (
	"context"

	"github.com/google/uuid"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

// searchLimit caps the rows fetched per search term.
const searchLimit = 50

type ProjectFinder interface {
	List(ctx context.Context, filter query.Predicate, scope *ports.ProjectScope, limit, offset int) ([]domain.Project, int64, error)
}

type UserFinder interface {
	Search(ctx context.Context, filter query.Predicate, limit, offset int) ([]domain.User, int64, error)
}

type SearchService struct {
	projects ProjectFinder
	users    UserFinder
}

type SearchResult struct {
	Projects []domain.Project `json:"projects"`
	Users    []domain.User    `json:"users,omitempty"`
}

func NewSearchService(projects ProjectFinder, users UserFinder) *SearchService {
	return &SearchService{projects: projects, users: users}
}

// Search runs one project query per term and merges the hits in the order
// they were first seen. Users whose name matches are included when the term
// is the only criterion.
func (s *SearchService) Search(ctx context.Context, req query.SearchRequest) (*SearchResult, error) {
	predicates, err := query.ProjectSearchQueries(req)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{Projects: make([]domain.Project, 0)}
	seen := make(map[uuid.UUID]struct{})
	for _, pred := range predicates {
		projects, _, err := s.projects.List(ctx, pred, nil, searchLimit, 0)
		if err != nil {
			return nil, err
		}
		for _, p := range projects {
			if _, ok := seen[p.ID]; ok {
				continue
			}
			seen[p.ID] = struct{}{}
			result.Projects = append(result.Projects, p)
		}
	}

	if !req.OnlyTerm() {
		return result, nil
	}
	result.Users = make([]domain.User, 0)
	seenUsers := make(map[uuid.UUID]struct{})
	for _, pred := range query.UserNameQueries(*req.SearchTerm) {
		users, _, err := s.users.Search(ctx, pred, searchLimit, 0)
		if err != nil {
			return nil, err
		}
		for _, u := range users {
			if _, ok := seenUsers[u.ID]; ok {
				continue
			}
			seenUsers[u.ID] = struct{}{}
			result.Users = append(result.Users, u)
		}
	}
	return result, nil
}
