package service

import (
	"bytes"
	"context"
	"database/sql"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

type fakeTokenRepo struct {
	tokens map[string]domain.Token

	upsertCalls  int
	existsCalls  int
	consumeCalls int
	err          error
}

func newFakeTokenRepo() *fakeTokenRepo {
	return &fakeTokenRepo{tokens: make(map[string]domain.Token)}
}

func tokenKey(subject string, purpose domain.TokenPurpose) string {
	return string(purpose) + ":" + subject
}

func (f *fakeTokenRepo) Upsert(ctx context.Context, token domain.Token) error {
	f.upsertCalls++
	if f.err != nil {
		return f.err
	}
	f.tokens[tokenKey(token.Subject, token.Purpose)] = token
	return nil
}

func (f *fakeTokenRepo) Exists(ctx context.Context, match domain.TokenMatch) (bool, error) {
	f.existsCalls++
	if f.err != nil {
		return false, f.err
	}
	token, ok := f.tokens[tokenKey(match.Subject, match.Purpose)]
	return ok && token.Secret == match.Secret && !token.Expired(time.Now()), nil
}

func (f *fakeTokenRepo) Consume(ctx context.Context, match domain.TokenMatch) (bool, error) {
	f.consumeCalls++
	if f.err != nil {
		return false, f.err
	}
	key := tokenKey(match.Subject, match.Purpose)
	token, ok := f.tokens[key]
	if !ok || token.Secret != match.Secret || token.Expired(time.Now()) {
		return false, nil
	}
	delete(f.tokens, key)
	return true, nil
}

func (f *fakeTokenRepo) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	var n int64
	for key, token := range f.tokens {
		if token.Expired(now) {
			delete(f.tokens, key)
			n++
		}
	}
	return n, nil
}

func (f *fakeTokenRepo) DeleteSubject(ctx context.Context, subject string) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	var n int64
	for key, token := range f.tokens {
		if token.Subject == subject {
			delete(f.tokens, key)
			n++
		}
	}
	return n, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*domain.User

	createInputs []ports.NewUser
	createErr    error

	updateProfileInput struct {
		id     uuid.UUID
		update domain.ProfileUpdate
	}
	updatePasswordInput struct {
		id   uuid.UUID
		hash []byte
		salt []byte
	}
	verified []uuid.UUID
	deleted  []uuid.UUID

	searchInputs []struct {
		filter query.Predicate
		limit  int
		offset int
	}
	searchResults [][]domain.User
	searchTotal   int64
}

func newFakeUserRepo(users ...*domain.User) *fakeUserRepo {
	f := &fakeUserRepo{users: make(map[uuid.UUID]*domain.User)}
	for _, u := range users {
		f.users[u.ID] = u
	}
	return f
}

func (f *fakeUserRepo) Create(ctx context.Context, user ports.NewUser) (*domain.User, error) {
	f.createInputs = append(f.createInputs, user)
	if f.createErr != nil {
		return nil, f.createErr
	}
	for _, existing := range f.users {
		if existing.Username == user.Username || existing.Email == user.Email {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	created := &domain.User{
		ID:           uuid.New(),
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: append([]byte(nil), user.PasswordHash...),
		PasswordSalt: append([]byte(nil), user.PasswordSalt...),
		IsPolitician: user.IsPolitician,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}
	f.users[created.ID] = created
	clone := *created
	return &clone, nil
}

func (f *fakeUserRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if u, ok := f.users[id]; ok {
		clone := *u
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range f.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range f.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeUserRepo) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	f.updateProfileInput.id = id
	f.updateProfileInput.update = update
	u, ok := f.users[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if update.Avatar != nil {
		u.Avatar = update.Avatar
	}
	if update.CV != nil {
		u.CV = update.CV
	}
	if update.FirstName != nil {
		u.FirstName = update.FirstName
	}
	if update.Major != nil {
		u.Major = update.Major
	}
	clone := *u
	return &clone, nil
}

func (f *fakeUserRepo) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	f.updatePasswordInput.id = id
	f.updatePasswordInput.hash = append([]byte(nil), passwordHash...)
	f.updatePasswordInput.salt = append([]byte(nil), passwordSalt...)
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.PasswordHash = f.updatePasswordInput.hash
	u.PasswordSalt = f.updatePasswordInput.salt
	return nil
}

func (f *fakeUserRepo) MarkVerified(ctx context.Context, id uuid.UUID) error {
	u, ok := f.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Verified = true
	f.verified = append(f.verified, id)
	return nil
}

func (f *fakeUserRepo) Search(ctx context.Context, filter query.Predicate, limit, offset int) ([]domain.User, int64, error) {
	f.searchInputs = append(f.searchInputs, struct {
		filter query.Predicate
		limit  int
		offset int
	}{filter: filter, limit: limit, offset: offset})
	i := len(f.searchInputs) - 1
	if i < len(f.searchResults) {
		return f.searchResults[i], f.searchTotal, nil
	}
	return []domain.User{}, f.searchTotal, nil
}

func (f *fakeUserRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.users, id)
	f.deleted = append(f.deleted, id)
	return nil
}

type fakeSessionRepo struct {
	sessions map[string]*domain.Session

	createErr        error
	deactivatedUsers []uuid.UUID
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: make(map[string]*domain.Session)}
}

func (f *fakeSessionRepo) CreateSession(ctx context.Context, userID uuid.UUID, token string, expiresAt time.Time) (*domain.Session, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	session := &domain.Session{ID: int64(len(f.sessions) + 1), UserID: userID, Token: token, ExpiresAt: expiresAt, IsActive: true}
	f.sessions[token] = session
	return session, nil
}

func (f *fakeSessionRepo) DeactivateSession(ctx context.Context, token string) error {
	session, ok := f.sessions[token]
	if !ok || !session.IsActive {
		return sql.ErrNoRows
	}
	session.IsActive = false
	return nil
}

func (f *fakeSessionRepo) DeactivateUserSessions(ctx context.Context, userID uuid.UUID) error {
	f.deactivatedUsers = append(f.deactivatedUsers, userID)
	for _, session := range f.sessions {
		if session.UserID == userID {
			session.IsActive = false
		}
	}
	return nil
}

func (f *fakeSessionRepo) FindActiveSession(ctx context.Context, token string) (*domain.Session, error) {
	session, ok := f.sessions[token]
	if !ok || !session.IsActive {
		return nil, sql.ErrNoRows
	}
	clone := *session
	return &clone, nil
}

func (f *fakeSessionRepo) DeleteExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	return 0, nil
}

type fakeStorage struct {
	objects map[string][]byte
	types   map[string]string

	uploaded []string
	removed  []string
	err      error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{objects: make(map[string][]byte), types: make(map[string]string)}
}

func (f *fakeStorage) Upload(ctx context.Context, bucket, objectName, contentType string, reader io.Reader, size int64) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	key := bucket + "/" + objectName
	f.objects[key] = data
	f.types[key] = contentType
	f.uploaded = append(f.uploaded, key)
	return key, nil
}

func (f *fakeStorage) Open(ctx context.Context, bucket, objectName string) (io.ReadCloser, ports.ObjectInfo, error) {
	key := bucket + "/" + objectName
	data, ok := f.objects[key]
	if !ok {
		return nil, ports.ObjectInfo{}, ports.ErrObjectNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), ports.ObjectInfo{ContentType: f.types[key], Size: int64(len(data))}, nil
}

func (f *fakeStorage) Remove(ctx context.Context, bucket, objectName string) error {
	key := bucket + "/" + objectName
	if _, ok := f.objects[key]; !ok {
		return ports.ErrObjectNotFound
	}
	delete(f.objects, key)
	f.removed = append(f.removed, key)
	return nil
}

type sentMail struct {
	kind   string
	email  string
	token  string
	title  string
	status string
}

type fakeMailer struct {
	sent []sentMail
	err  error
}

func (f *fakeMailer) SendVerification(ctx context.Context, email, username, token string) error {
	f.sent = append(f.sent, sentMail{kind: "verification", email: email, token: token})
	return f.err
}

func (f *fakeMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	f.sent = append(f.sent, sentMail{kind: "reset", email: email, token: token})
	return f.err
}

func (f *fakeMailer) SendApplicationStatus(ctx context.Context, email, projectTitle string, status domain.ApplicationStatus) error {
	f.sent = append(f.sent, sentMail{kind: "application", email: email, title: projectTitle, status: string(status)})
	return f.err
}

func (f *fakeMailer) SendProjectStatus(ctx context.Context, email, projectTitle string, status domain.ProjectStatus) error {
	f.sent = append(f.sent, sentMail{kind: "project", email: email, title: projectTitle, status: string(status)})
	return f.err
}

func (f *fakeMailer) last() sentMail {
	if len(f.sent) == 0 {
		return sentMail{}
	}
	return f.sent[len(f.sent)-1]
}

type fakeProjectRepo struct {
	projects map[uuid.UUID]*domain.Project

	created   []domain.ProjectFields
	updated   []domain.ProjectFields
	deleted   []uuid.UUID
	listCalls []struct {
		filter query.Predicate
		scope  *ports.ProjectScope
		limit  int
		offset int
	}
	listResults [][]domain.Project
	accepted    []domain.Project
}

func newFakeProjectRepo(projects ...*domain.Project) *fakeProjectRepo {
	f := &fakeProjectRepo{projects: make(map[uuid.UUID]*domain.Project)}
	for _, p := range projects {
		f.projects[p.ID] = p
	}
	return f
}

func (f *fakeProjectRepo) Create(ctx context.Context, creatorID uuid.UUID, fields domain.ProjectFields) (*domain.Project, error) {
	f.created = append(f.created, fields)
	project := &domain.Project{
		ID:        uuid.New(),
		Title:     *fields.Title,
		Status:    domain.ProjectStatusOpen,
		CreatorID: creatorID,
		Nature:    domain.ProjectNatureInternship,
		State:     "Bayern",
		Questions: fields.Questions,
		Tags:      fields.Tags,
	}
	if fields.From != nil {
		project.From = *fields.From
	}
	if fields.Nature != nil {
		project.Nature = *fields.Nature
	}
	f.projects[project.ID] = project
	clone := *project
	return &clone, nil
}

func (f *fakeProjectRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	if p, ok := f.projects[id]; ok {
		clone := *p
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProjectRepo) Update(ctx context.Context, id uuid.UUID, fields domain.ProjectFields) (*domain.Project, error) {
	f.updated = append(f.updated, fields)
	p, ok := f.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	if fields.Title != nil {
		p.Title = *fields.Title
	}
	if fields.To != nil {
		p.To = fields.To
	}
	clone := *p
	return &clone, nil
}

func (f *fakeProjectRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	p.Status = status
	clone := *p
	return &clone, nil
}

func (f *fakeProjectRepo) SetFile(ctx context.Context, id uuid.UUID, file string) (*domain.Project, error) {
	p, ok := f.projects[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	p.File = &file
	clone := *p
	return &clone, nil
}

func (f *fakeProjectRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.projects[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.projects, id)
	f.deleted = append(f.deleted, id)
	return nil
}

func (f *fakeProjectRepo) List(ctx context.Context, filter query.Predicate, scope *ports.ProjectScope, limit, offset int) ([]domain.Project, int64, error) {
	f.listCalls = append(f.listCalls, struct {
		filter query.Predicate
		scope  *ports.ProjectScope
		limit  int
		offset int
	}{filter: filter, scope: scope, limit: limit, offset: offset})
	i := len(f.listCalls) - 1
	if i < len(f.listResults) {
		return f.listResults[i], int64(len(f.listResults[i])), nil
	}
	return []domain.Project{}, 0, nil
}

func (f *fakeProjectRepo) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.Project, error) {
	out := make([]domain.Project, 0)
	for _, p := range f.projects {
		if p.CreatorID == creatorID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakeProjectRepo) ListIDsByCreator(ctx context.Context, creatorID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	for id, p := range f.projects {
		if p.CreatorID == creatorID {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i].String() < ids[j].String() })
	return ids, nil
}

func (f *fakeProjectRepo) ListAccepted(ctx context.Context, applicantID uuid.UUID) ([]domain.Project, error) {
	return f.accepted, nil
}

type fakeApplicationRepo struct {
	applications map[uuid.UUID]*domain.Application

	deletedByProject   []uuid.UUID
	deletedByApplicant []uuid.UUID
	listByApplicant    []query.Predicate
	listByCreator      []query.Predicate
}

func newFakeApplicationRepo(applications ...*domain.Application) *fakeApplicationRepo {
	f := &fakeApplicationRepo{applications: make(map[uuid.UUID]*domain.Application)}
	for _, a := range applications {
		f.applications[a.ID] = a
	}
	return f
}

func (f *fakeApplicationRepo) Create(ctx context.Context, applicantID, projectID uuid.UUID, answers domain.Answers) (*domain.Application, error) {
	for _, a := range f.applications {
		if a.ApplicantID == applicantID && a.ProjectID == projectID {
			return nil, &pgconn.PgError{Code: "23505"}
		}
	}
	application := &domain.Application{
		ID:          uuid.New(),
		ApplicantID: applicantID,
		ProjectID:   projectID,
		Status:      domain.ApplicationStatusPending,
		Answers:     answers,
	}
	f.applications[application.ID] = application
	clone := *application
	return &clone, nil
}

func (f *fakeApplicationRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	if a, ok := f.applications[id]; ok {
		clone := *a
		return &clone, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeApplicationRepo) ListByApplicant(ctx context.Context, applicantID uuid.UUID, filter query.Predicate, limit, offset int) ([]domain.Application, int64, error) {
	f.listByApplicant = append(f.listByApplicant, filter)
	out := make([]domain.Application, 0)
	for _, a := range f.applications {
		if a.ApplicantID == applicantID {
			out = append(out, *a)
		}
	}
	return out, int64(len(out)), nil
}

func (f *fakeApplicationRepo) ListByCreator(ctx context.Context, creatorID uuid.UUID, filter query.Predicate, limit, offset int) ([]domain.Application, int64, error) {
	f.listByCreator = append(f.listByCreator, filter)
	return []domain.Application{}, 0, nil
}

func (f *fakeApplicationRepo) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Application, error) {
	out := make([]domain.Application, 0)
	for _, a := range f.applications {
		if a.ProjectID == projectID {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (f *fakeApplicationRepo) SetStatus(ctx context.Context, id uuid.UUID, status domain.ApplicationStatus) (*domain.Application, error) {
	a, ok := f.applications[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	a.Status = status
	clone := *a
	return &clone, nil
}

func (f *fakeApplicationRepo) Delete(ctx context.Context, id uuid.UUID) error {
	if _, ok := f.applications[id]; !ok {
		return sql.ErrNoRows
	}
	delete(f.applications, id)
	return nil
}

func (f *fakeApplicationRepo) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	f.deletedByProject = append(f.deletedByProject, projectID)
	var n int64
	for id, a := range f.applications {
		if a.ProjectID == projectID {
			delete(f.applications, id)
			n++
		}
	}
	return n, nil
}

func (f *fakeApplicationRepo) DeleteByApplicant(ctx context.Context, applicantID uuid.UUID) (int64, error) {
	f.deletedByApplicant = append(f.deletedByApplicant, applicantID)
	var n int64
	for id, a := range f.applications {
		if a.ApplicantID == applicantID {
			delete(f.applications, id)
			n++
		}
	}
	return n, nil
}

type fakeBookmarkRepo struct {
	bookmarks map[[2]uuid.UUID]domain.Bookmark

	removedProjects []uuid.UUID
	removedUsers    []uuid.UUID
	removeErr       error
}

func newFakeBookmarkRepo() *fakeBookmarkRepo {
	return &fakeBookmarkRepo{bookmarks: make(map[[2]uuid.UUID]domain.Bookmark)}
}

func (f *fakeBookmarkRepo) Add(ctx context.Context, userID, projectID uuid.UUID) (*domain.Bookmark, error) {
	key := [2]uuid.UUID{userID, projectID}
	if _, ok := f.bookmarks[key]; ok {
		return nil, sql.ErrNoRows
	}
	bookmark := domain.Bookmark{UserID: userID, ProjectID: projectID, CreatedAt: time.Now()}
	f.bookmarks[key] = bookmark
	return &bookmark, nil
}

func (f *fakeBookmarkRepo) Remove(ctx context.Context, userID, projectID uuid.UUID) error {
	key := [2]uuid.UUID{userID, projectID}
	if _, ok := f.bookmarks[key]; !ok {
		return sql.ErrNoRows
	}
	delete(f.bookmarks, key)
	return nil
}

func (f *fakeBookmarkRepo) ListByUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.BookmarkListItem, error) {
	out := make([]domain.BookmarkListItem, 0)
	for key, b := range f.bookmarks {
		if key[0] == userID {
			out = append(out, domain.BookmarkListItem{Bookmark: b})
		}
	}
	return out, nil
}

func (f *fakeBookmarkRepo) CountByUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	var n int64
	for key := range f.bookmarks {
		if key[0] == userID {
			n++
		}
	}
	return n, nil
}

func (f *fakeBookmarkRepo) RemoveProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	if f.removeErr != nil {
		return 0, f.removeErr
	}
	f.removedProjects = append(f.removedProjects, projectID)
	var n int64
	for key := range f.bookmarks {
		if key[1] == projectID {
			delete(f.bookmarks, key)
			n++
		}
	}
	return n, nil
}

func (f *fakeBookmarkRepo) RemoveUser(ctx context.Context, userID uuid.UUID) (int64, error) {
	if f.removeErr != nil {
		return 0, f.removeErr
	}
	f.removedUsers = append(f.removedUsers, userID)
	var n int64
	for key := range f.bookmarks {
		if key[0] == userID {
			delete(f.bookmarks, key)
			n++
		}
	}
	return n, nil
}

func newStudent(username string) *domain.User {
	return &domain.User{ID: uuid.New(), Username: username, Email: username + "@tum.de", Verified: true}
}

func newPolitician(username string) *domain.User {
	return &domain.User{ID: uuid.New(), Username: username, Email: username + "@bundestag.de", IsPolitician: true, Verified: true}
}

// fakeTransactor records whether the work it ran was committed.
type fakeTransactor struct {
	calls      int
	committed  int
	rolledBack int
}

func (f *fakeTransactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	f.calls++
	if err := fn(ctx); err != nil {
		f.rolledBack++
		return err
	}
	f.committed++
	return nil
}

type fakeRevoker struct {
	subjects []string
	err      error
}

func (f *fakeRevoker) Revoke(ctx context.Context, subject string) error {
	f.subjects = append(f.subjects, subject)
	return f.err
}
