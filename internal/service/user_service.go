package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/media"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrFileNotFound = errors.New("file not found")
)

// FieldsNotAllowedError lists profile fields the caller's role may not set.
type FieldsNotAllowedError struct {
	Fields []string
}

func (e *FieldsNotAllowedError) Error() string {
	return "fields not allowed for this role: " + strings.Join(e.Fields, ", ")
}

func (e *FieldsNotAllowedError) Unwrap() error {
	return ErrValidation
}

type UserServiceConfig struct {
	Bucket             string
	AvatarMaxBytes     int64
	DocumentMaxBytes   int64
	ImageProcessor     media.Processor
	AvatarMaxDimension int
	// Tokens, when set, revokes the account's pending tokens on delete.
	Tokens TokenRevoker
	// Transactor groups the deletes of an account cascade.
	Transactor ports.Transactor
}

type UserService struct {
	users        ports.UserRepository
	projects     ports.ProjectRepository
	applications ApplicationCleaner
	bookmarks    BookmarkCleaner
	storage      ports.ObjectStorage
	tokens       TokenRevoker
	tx           ports.Transactor
	logger       *zap.Logger

	bucket             string
	documentMaxBytes   int64
	imageProcessor     media.Processor
	avatarMaxDimension int
}

type ProfileInput struct {
	FirstName  *string
	LastName   *string
	Phone      *string
	Website    *string
	LinkedIn   *string
	City       *string
	State      *string
	Title      *string
	Position   *string
	University *string
	Major      []string

	Avatar *media.Upload
	CV     *media.Upload
}

type UserSearchResult struct {
	// Self is set instead of Results when no filter was supplied.
	Self       *domain.User
	Results    []domain.User
	Total      int64
	TotalPages int
}

func NewUserService(
	users ports.UserRepository,
	projects ports.ProjectRepository,
	applications ApplicationCleaner,
	bookmarks BookmarkCleaner,
	storage ports.ObjectStorage,
	logger *zap.Logger,
	cfg UserServiceConfig,
) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	maxDimension := cfg.AvatarMaxDimension
	if maxDimension <= 0 {
		maxDimension = media.DefaultMaxDimension
	}
	processor := cfg.ImageProcessor
	if processor == nil {
		processor = media.NewFFMPEGProcessor("", maxDimension, cfg.AvatarMaxBytes)
	}
	return &UserService{
		users:              users,
		projects:           projects,
		applications:       applications,
		bookmarks:          bookmarks,
		storage:            storage,
		tokens:             cfg.Tokens,
		tx:                 transactorOrDirect(cfg.Transactor),
		logger:             logger,
		bucket:             strings.TrimSpace(cfg.Bucket),
		documentMaxBytes:   cfg.DocumentMaxBytes,
		imageProcessor:     processor,
		avatarMaxDimension: maxDimension,
	}
}

// Search filters users by the query parameters. Without any filter the
// caller's own profile is returned.
func (s *UserService) Search(ctx context.Context, caller *domain.User, params query.Params) (*UserSearchResult, error) {
	filter, err := query.UserSearchQuery(params)
	if err != nil {
		return nil, err
	}
	if filter.Empty() {
		return &UserSearchResult{Self: caller}, nil
	}
	page, err := query.Page(params)
	if err != nil {
		return nil, err
	}

	users, total, err := s.users.Search(ctx, filter, page.Limit, page.Offset)
	if err != nil {
		return nil, err
	}
	return &UserSearchResult{Results: users, Total: total, TotalPages: page.TotalPages(total)}, nil
}

func (s *UserService) Get(ctx context.Context, username string) (*domain.User, error) {
	user, err := s.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Update applies the profile fields the caller's role may change and stores
// any uploaded avatar or CV.
func (s *UserService) Update(ctx context.Context, caller *domain.User, input ProfileInput) (*domain.User, error) {
	if err := checkRoleFields(caller, input); err != nil {
		return nil, err
	}
	if input.State != nil && !domain.IsGermanState(strings.TrimSpace(*input.State)) {
		return nil, fmt.Errorf("%w: unknown state %q", ErrValidation, *input.State)
	}

	update := domain.ProfileUpdate{
		FirstName:  trimmed(input.FirstName),
		LastName:   trimmed(input.LastName),
		Phone:      trimmed(input.Phone),
		Website:    trimmed(input.Website),
		LinkedIn:   trimmed(input.LinkedIn),
		City:       trimmed(input.City),
		State:      trimmed(input.State),
		Title:      trimmed(input.Title),
		Position:   trimmed(input.Position),
		University: trimmed(input.University),
	}
	if input.Major != nil {
		update.Major = cleanList(input.Major)
	}

	if input.Avatar != nil {
		prepared, err := prepareImageForUpload(ctx, s.imageProcessor, *input.Avatar, s.avatarMaxDimension)
		if err != nil {
			return nil, err
		}
		object, err := s.store(ctx, caller.Username+"/avatar"+prepared.extension, prepared)
		if err != nil {
			return nil, err
		}
		update.Avatar = &object
	}
	if input.CV != nil {
		prepared, err := prepareDocumentForUpload(*input.CV, s.documentMaxBytes)
		if err != nil {
			return nil, err
		}
		object, err := s.store(ctx, caller.Username+"/CV.pdf", prepared)
		if err != nil {
			return nil, err
		}
		update.CV = &object
	}

	user, err := s.users.UpdateProfile(ctx, caller.ID, update)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return user, nil
}

// Delete removes the caller together with everything that depends on the
// account: a politician's projects, a student's applications, and bookmarks.
func (s *UserService) Delete(ctx context.Context, caller *domain.User) error {
	if err := s.tx.WithinTx(ctx, func(ctx context.Context) error {
		return s.purgeAccount(ctx, caller)
	}); err != nil {
		return err
	}

	for _, object := range []*string{caller.Avatar, caller.CV} {
		if object == nil || *object == "" {
			continue
		}
		if err := s.storage.Remove(ctx, s.bucket, *object); err != nil && !errors.Is(err, ports.ErrObjectNotFound) {
			s.logger.Warn("remove user file", zap.String("object", *object), zap.Error(err))
		}
	}
	return nil
}

func (s *UserService) purgeAccount(ctx context.Context, caller *domain.User) error {
	if caller.IsPolitician {
		ids, err := s.projects.ListIDsByCreator(ctx, caller.ID)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := purgeProject(ctx, id, s.applications, s.bookmarks, s.projects); err != nil && !errors.Is(err, ErrProjectNotFound) {
				return err
			}
		}
	} else {
		if _, err := s.applications.DeleteByApplicant(ctx, caller.ID); err != nil {
			return err
		}
	}
	if _, err := s.bookmarks.RemoveUser(ctx, caller.ID); err != nil {
		return err
	}
	if s.tokens != nil {
		if err := s.tokens.Revoke(ctx, caller.Email); err != nil {
			return fmt.Errorf("revoke tokens: %w", err)
		}
	}

	if err := s.users.Delete(ctx, caller.ID); err != nil {
		if isNotFound(err) {
			return ErrUserNotFound
		}
		return err
	}
	return nil
}

// Projects lists the projects a politician created, or the projects a
// student was accepted to.
func (s *UserService) Projects(ctx context.Context, username string) ([]domain.Project, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, err
	}
	if user.IsPolitician {
		return s.projects.ListByCreator(ctx, user.ID)
	}
	return s.projects.ListAccepted(ctx, user.ID)
}

func (s *UserService) OpenAvatar(ctx context.Context, username string) (io.ReadCloser, ports.ObjectInfo, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, ports.ObjectInfo{}, err
	}
	return s.open(ctx, user.Avatar)
}

func (s *UserService) OpenCV(ctx context.Context, username string) (io.ReadCloser, ports.ObjectInfo, error) {
	user, err := s.Get(ctx, username)
	if err != nil {
		return nil, ports.ObjectInfo{}, err
	}
	return s.open(ctx, user.CV)
}

func (s *UserService) open(ctx context.Context, object *string) (io.ReadCloser, ports.ObjectInfo, error) {
	if object == nil || *object == "" {
		return nil, ports.ObjectInfo{}, ErrFileNotFound
	}
	body, info, err := s.storage.Open(ctx, s.bucket, *object)
	if err != nil {
		if errors.Is(err, ports.ErrObjectNotFound) {
			return nil, ports.ObjectInfo{}, ErrFileNotFound
		}
		return nil, ports.ObjectInfo{}, err
	}
	return body, info, nil
}

func (s *UserService) store(ctx context.Context, object string, prepared *preparedUpload) (string, error) {
	if _, err := s.storage.Upload(ctx, s.bucket, object, prepared.contentType, prepared.reader, prepared.size); err != nil {
		return "", err
	}
	return object, nil
}

func checkRoleFields(caller *domain.User, input ProfileInput) error {
	var denied []string
	if caller.IsPolitician {
		if input.Major != nil {
			denied = append(denied, "major")
		}
		if input.University != nil {
			denied = append(denied, "university")
		}
		if input.CV != nil {
			denied = append(denied, "CV")
		}
	} else if input.Position != nil {
		denied = append(denied, "position")
	}
	if len(denied) > 0 {
		return &FieldsNotAllowedError{Fields: denied}
	}
	return nil
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	t := strings.TrimSpace(*v)
	return &t
}

func cleanList(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if t := strings.TrimSpace(v); t != "" {
			out = append(out, t)
		}
	}
	return out
}
