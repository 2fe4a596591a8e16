package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/media"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

var (
	ErrProjectNotFound         = errors.New("project not found")
	ErrInvalidStatusTransition = errors.New("project can only be completed once closed")
	ErrProjectCreatorOnly      = errors.New("only the creator may manage this project")
	ErrPoliticianOnly          = errors.New("only politicians may create projects")
)

type ProjectServiceConfig struct {
	Bucket           string
	DocumentMaxBytes int64
	// Transactor groups the deletes of a project cascade. Without one each
	// delete commits on its own.
	Transactor ports.Transactor
}

type ProjectService struct {
	projects     ports.ProjectRepository
	applications ports.ApplicationRepository
	bookmarks    BookmarkCleaner
	users        UserLookup
	storage      ports.ObjectStorage
	mailer       StatusMailer
	tx           ports.Transactor
	logger       *zap.Logger

	bucket           string
	documentMaxBytes int64
	now              func() time.Time
}

// ProjectInput carries the writable project fields. Nil fields are left
// unset on create and untouched on update.
type ProjectInput struct {
	Title       *string
	Description *string
	From        *time.Time
	To          *time.Time
	Nature      *string
	State       *string
	Tags        []string
	Salary      *float64
	Questions   []string
}

type ProjectListResult struct {
	Results    []domain.Project
	Total      int64
	TotalPages int
}

func NewProjectService(
	projects ports.ProjectRepository,
	applications ports.ApplicationRepository,
	bookmarks BookmarkCleaner,
	users UserLookup,
	storage ports.ObjectStorage,
	mailer StatusMailer,
	logger *zap.Logger,
	cfg ProjectServiceConfig,
) *ProjectService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProjectService{
		projects:         projects,
		applications:     applications,
		bookmarks:        bookmarks,
		users:            users,
		storage:          storage,
		mailer:           mailer,
		tx:               transactorOrDirect(cfg.Transactor),
		logger:           logger,
		bucket:           strings.TrimSpace(cfg.Bucket),
		documentMaxBytes: cfg.DocumentMaxBytes,
		now:              time.Now,
	}
}

func (s *ProjectService) Create(ctx context.Context, caller *domain.User, input ProjectInput) (*domain.Project, error) {
	if !caller.IsPolitician {
		return nil, ErrPoliticianOnly
	}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}
	from := s.now().UTC()
	if input.From != nil {
		from = *input.From
	}
	fields, err := projectFields(input, from)
	if err != nil {
		return nil, err
	}
	if fields.From == nil {
		fields.From = &from
	}
	return s.projects.Create(ctx, caller.ID, fields)
}

// Get returns the project. The creator also receives the applications.
func (s *ProjectService) Get(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.ProjectDetail, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	detail := &domain.ProjectDetail{Project: *project}
	if project.IsCreator(caller.ID) {
		applications, err := s.applications.ListByProject(ctx, id)
		if err != nil {
			return nil, err
		}
		detail.Applications = applications
	}
	return detail, nil
}

func (s *ProjectService) Update(ctx context.Context, caller *domain.User, id uuid.UUID, input ProjectInput) (*domain.Project, error) {
	project, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, fmt.Errorf("%w: title must not be empty", ErrValidation)
	}
	from := project.From
	if input.From != nil {
		from = *input.From
	}
	if input.To == nil && project.To != nil && !project.To.After(from) {
		return nil, fmt.Errorf("%w: to must be after from", ErrValidation)
	}
	fields, err := projectFields(input, from)
	if err != nil {
		return nil, err
	}
	updated, err := s.projects.Update(ctx, id, fields)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return updated, nil
}

// SetStatus changes the project status and mails every applicant. A project
// can only be completed once it is closed.
func (s *ProjectService) SetStatus(ctx context.Context, caller *domain.User, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	project, err := s.owned(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if status == domain.ProjectStatusCompleted && project.Status != domain.ProjectStatusClosed {
		return nil, ErrInvalidStatusTransition
	}

	updated, err := s.projects.SetStatus(ctx, id, status)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	s.notifyApplicants(ctx, updated)
	return updated, nil
}

func (s *ProjectService) Delete(ctx context.Context, caller *domain.User, id uuid.UUID) error {
	project, err := s.owned(ctx, caller, id)
	if err != nil {
		return err
	}
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return purgeProject(ctx, id, s.applications, s.bookmarks, s.projects)
	})
	if err != nil {
		return err
	}
	if project.File != nil && *project.File != "" {
		if err := s.storage.Remove(ctx, s.bucket, *project.File); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			s.logger.Warn("remove project file", zap.String("project_id", id.String()), zap.Error(err))
		}
	}
	return nil
}

// List filters projects by the query parameters. Without a filter it lists
// the caller's own projects: created ones for a politician, applied-to ones
// for a student.
func (s *ProjectService) List(ctx context.Context, caller *domain.User, params query.Params) (*ProjectListResult, error) {
	filter, err := query.ProjectListQuery(params)
	if err != nil {
		return nil, err
	}
	page, err := query.Page(params)
	if err != nil {
		return nil, err
	}

	var scope *ports.ProjectScope
	if filter.Empty() {
		id := caller.ID
		if caller.IsPolitician {
			scope = &ports.ProjectScope{CreatorID: &id}
		} else {
			scope = &ports.ProjectScope{ApplicantID: &id}
		}
	}

	projects, total, err := s.projects.List(ctx, filter, scope, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return &ProjectListResult{Results: projects, Total: total, TotalPages: page.TotalPages(total)}, nil
}

// UploadFile stores a PDF attachment for the project.
func (s *ProjectService) UploadFile(ctx context.Context, caller *domain.User, id uuid.UUID, upload media.Upload) (*domain.Project, error) {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return nil, err
	}
	prepared, err := prepareDocumentForUpload(upload, s.documentMaxBytes)
	if err != nil {
		return nil, err
	}
	object := id.String() + "/file" + prepared.extension
	if _, err := s.storage.Upload(ctx, s.bucket, object, prepared.contentType, prepared.reader, prepared.size); err != nil {
		return nil, err
	}
	updated, err := s.projects.SetFile(ctx, id, object)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return updated, nil
}

func (s *ProjectService) OpenFile(ctx context.Context, id uuid.UUID) (io.ReadCloser, ports.ObjectInfo, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, ports.ObjectInfo{}, err
	}
	if project.File == nil || *project.File == "" {
		return nil, ports.ObjectInfo{}, ErrFileNotFound
	}
	body, info, err := s.storage.Open(ctx, s.bucket, *project.File)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return nil, ports.ObjectInfo{}, ErrFileNotFound
		}
		return nil, ports.ObjectInfo{}, err
	}
	return body, info, nil
}

// Applications lists the applications a project received. Creator only.
func (s *ProjectService) Applications(ctx context.Context, caller *domain.User, id uuid.UUID) ([]domain.Application, error) {
	if _, err := s.owned(ctx, caller, id); err != nil {
		return nil, err
	}
	return s.applications.ListByProject(ctx, id)
}

func (s *ProjectService) find(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) owned(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Project, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if !project.IsCreator(caller.ID) {
		return nil, ErrProjectCreatorOnly
	}
	return project, nil
}

func (s *ProjectService) notifyApplicants(ctx context.Context, project *domain.Project) {
	if s.mailer == nil {
		return
	}
	applications, err := s.applications.ListByProject(ctx, project.ID)
	if err != nil {
		s.logger.Warn("list applicants for status mail", zap.String("project_id", project.ID.String()), zap.Error(err))
		return
	}
	for _, application := range applications {
		applicant, err := s.users.FindByID(ctx, application.ApplicantID)
		if err != nil {
			s.logger.Warn("load applicant for status mail", zap.String("application_id", application.ID.String()), zap.Error(err))
			continue
		}
		if err := s.mailer.SendProjectStatus(ctx, applicant.Email, project.Title, project.Status); err != nil {
			s.logger.Warn("send project status mail", zap.String("application_id", application.ID.String()), zap.Error(err))
		}
	}
}

// projectFields validates input against the effective start date from.
func projectFields(input ProjectInput, from time.Time) (domain.ProjectFields, error) {
	fields := domain.ProjectFields{
		Title:       trimmed(input.Title),
		Description: trimmed(input.Description),
		From:        input.From,
		To:          input.To,
		State:       trimmed(input.State),
		Salary:      input.Salary,
	}
	if input.Nature != nil {
		nature := domain.ProjectNature(strings.TrimSpace(*input.Nature))
		if !nature.Valid() {
			return fields, fmt.Errorf("%w: unknown nature %q", ErrValidation, *input.Nature)
		}
		fields.Nature = &nature
	}
	if fields.State != nil && !domain.IsGermanState(*fields.State) {
		return fields, fmt.Errorf("%w: unknown state %q", ErrValidation, *fields.State)
	}
	if fields.Salary != nil && (*fields.Salary < 0 || math.IsNaN(*fields.Salary) || math.IsInf(*fields.Salary, 0)) {
		return fields, fmt.Errorf("%w: salary must not be negative", ErrValidation)
	}
	if fields.To != nil && !fields.To.After(from) {
		return fields, fmt.Errorf("%w: to must be after from", ErrValidation)
	}
	if input.Tags != nil {
		fields.Tags = cleanList(input.Tags)
	}
	if input.Questions != nil {
		fields.Questions = uniqueList(input.Questions)
	}
	return fields, nil
}

func uniqueList(values []string) []string {
	seen := make(map[string]struct{}, len(values))
	out := make([]string, 0, len(values))
	for _, v := range cleanList(values) {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
