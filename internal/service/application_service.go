package service

import (
	"context"
	"errors"
	"sort"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

var (
	ErrApplicationNotFound   = errors.New("application not found")
	ErrApplicationExists     = errors.New("already applied to this project")
	ErrApplicationNotPending = errors.New("application is no longer pending")
	ErrProjectNotOpen        = errors.New("project is not open for applications")
	ErrStudentOnly           = errors.New("only students may apply to projects")
)

// AnswersMismatchError reports questions without an answer and answers to
// unknown questions.
type AnswersMismatchError struct {
	Missing []string
	Unknown []string
}

func (e *AnswersMismatchError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing answers: "+strings.Join(e.Missing, ", "))
	}
	if len(e.Unknown) > 0 {
		parts = append(parts, "unknown questions: "+strings.Join(e.Unknown, ", "))
	}
	return strings.Join(parts, "; ")
}

func (e *AnswersMismatchError) Unwrap() error {
	return ErrValidation
}

type ApplicationService struct {
	applications ports.ApplicationRepository
	projects     ProjectLookup
	users        UserLookup
	mailer       StatusMailer
	logger       *zap.Logger
}

type ApplicationListResult struct {
	Results    []domain.Application
	Total      int64
	TotalPages int
}

func NewApplicationService(
	applications ports.ApplicationRepository,
	projects ProjectLookup,
	users UserLookup,
	mailer StatusMailer,
	logger *zap.Logger,
) *ApplicationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ApplicationService{
		applications: applications,
		projects:     projects,
		users:        users,
		mailer:       mailer,
		logger:       logger,
	}
}

// Apply submits a student's answers to an open project. Every question of the
// project must be answered and nothing else.
func (s *ApplicationService) Apply(ctx context.Context, caller *domain.User, projectID uuid.UUID, answers map[string]string) (*domain.Application, error) {
	if caller.IsPolitician {
		return nil, ErrStudentOnly
	}
	project, err := s.project(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if project.Status != domain.ProjectStatusOpen {
		return nil, ErrProjectNotOpen
	}
	if err := checkAnswers(project, answers); err != nil {
		return nil, err
	}

	stored := make(domain.Answers, len(answers))
	for q, a := range answers {
		stored[q] = strings.TrimSpace(a)
	}
	application, err := s.applications.Create(ctx, caller.ID, projectID, stored)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrApplicationExists
		}
		return nil, err
	}
	return application, nil
}

// Get returns an application to its applicant or to the project creator.
func (s *ApplicationService) Get(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Application, error) {
	application, _, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return application, nil
}

// List returns the applications a student submitted or a politician
// received, optionally filtered by status.
func (s *ApplicationService) List(ctx context.Context, caller *domain.User, params query.Params) (*ApplicationListResult, error) {
	filter, err := query.ApplicationListQuery(params)
	if err != nil {
		return nil, err
	}
	page, err := query.Page(params)
	if err != nil {
		return nil, err
	}

	var (
		results []domain.Application
		total   int64
	)
	if caller.IsPolitician {
		results, total, err = s.applications.ListByCreator(ctx, caller.ID, filter, page.Limit, page.Offset)
	} else {
		results, total, err = s.applications.ListByApplicant(ctx, caller.ID, filter, page.Limit, page.Offset)
	}
	if err != nil {
		return nil, err
	}
	return &ApplicationListResult{Results: results, Total: total, TotalPages: page.TotalPages(total)}, nil
}

func (s *ApplicationService) Accept(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Application, error) {
	return s.decide(ctx, caller, id, domain.ApplicationStatusAccepted)
}

func (s *ApplicationService) Reject(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Application, error) {
	return s.decide(ctx, caller, id, domain.ApplicationStatusRejected)
}

// Withdraw deletes a pending application. Applicant only.
func (s *ApplicationService) Withdraw(ctx context.Context, caller *domain.User, id uuid.UUID) error {
	application, _, err := s.visible(ctx, caller, id)
	if err != nil {
		return err
	}
	if application.ApplicantID != caller.ID {
		return ErrForbidden
	}
	if !application.IsPending() {
		return ErrApplicationNotPending
	}
	if err := s.applications.Delete(ctx, id); err != nil {
		if isNotFound(err) {
			return ErrApplicationNotFound
		}
		return err
	}
	return nil
}

func (s *ApplicationService) decide(ctx context.Context, caller *domain.User, id uuid.UUID, status domain.ApplicationStatus) (*domain.Application, error) {
	application, project, err := s.visible(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !project.IsCreator(caller.ID) {
		return nil, ErrForbidden
	}
	if !application.IsPending() {
		return nil, ErrApplicationNotPending
	}

	updated, err := s.applications.SetStatus(ctx, id, status)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	s.notifyApplicant(ctx, updated, project)
	return updated, nil
}

// visible loads an application the caller is a party to. Everyone else gets
// ErrApplicationNotFound.
func (s *ApplicationService) visible(ctx context.Context, caller *domain.User, id uuid.UUID) (*domain.Application, *domain.Project, error) {
	application, err := s.applications.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrApplicationNotFound
		}
		return nil, nil, err
	}
	project, err := s.projects.FindByID(ctx, application.ProjectID)
	if err != nil {
		if isNotFound(err) {
			return nil, nil, ErrApplicationNotFound
		}
		return nil, nil, err
	}
	if application.ApplicantID != caller.ID && !project.IsCreator(caller.ID) {
		return nil, nil, ErrApplicationNotFound
	}
	return application, project, nil
}

func (s *ApplicationService) project(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	project, err := s.projects.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, err
	}
	return project, nil
}

func (s *ApplicationService) notifyApplicant(ctx context.Context, application *domain.Application, project *domain.Project) {
	if s.mailer == nil {
		return
	}
	applicant, err := s.users.FindByID(ctx, application.ApplicantID)
	if err != nil {
		s.logger.Warn("load applicant for decision mail", zap.String("application_id", application.ID.String()), zap.Error(err))
		return
	}
	if err := s.mailer.SendApplicationStatus(ctx, applicant.Email, project.Title, application.Status); err != nil {
		s.logger.Warn("send application status mail", zap.String("application_id", application.ID.String()), zap.Error(err))
	}
}

func checkAnswers(project *domain.Project, answers map[string]string) error {
	var mismatch AnswersMismatchError
	for _, q := range project.Questions {
		if a, ok := answers[q]; !ok || strings.TrimSpace(a) == "" {
			mismatch.Missing = append(mismatch.Missing, q)
		}
	}
	for q := range answers {
		if !project.HasQuestion(q) {
			mismatch.Unknown = append(mismatch.Unknown, q)
		}
	}
	if len(mismatch.Missing) == 0 && len(mismatch.Unknown) == 0 {
		return nil
	}
	sort.Strings(mismatch.Unknown)
	return &mismatch
}
