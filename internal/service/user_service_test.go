package service

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/media"
	"github.com/sci-com/scicom-api/internal/query"
)

type userFixture struct {
	users        *fakeUserRepo
	projects     *fakeProjectRepo
	applications *fakeApplicationRepo
	bookmarks    *fakeBookmarkRepo
	storage      *fakeStorage
	processor    *stubImageProcessor
	tokens       *fakeRevoker
	tx           *fakeTransactor
	svc          *UserService
}

func newUserFixture(users ...*domain.User) *userFixture {
	f := &userFixture{
		users:        newFakeUserRepo(users...),
		projects:     newFakeProjectRepo(),
		applications: newFakeApplicationRepo(),
		bookmarks:    newFakeBookmarkRepo(),
		storage:      newFakeStorage(),
		processor:    &stubImageProcessor{output: []byte("png-bytes"), contentType: "image/png"},
		tokens:       &fakeRevoker{},
		tx:           &fakeTransactor{},
	}
	f.svc = NewUserService(f.users, f.projects, f.applications, f.bookmarks, f.storage, nil, UserServiceConfig{
		Bucket:             "users",
		ImageProcessor:     f.processor,
		AvatarMaxDimension: 256,
		Tokens:             f.tokens,
		Transactor:         f.tx,
	})
	return f
}

func strPtr(s string) *string { return &s }

func TestUserSearchWithoutFilterReturnsCaller(t *testing.T) {
	caller := newStudent("anna")
	f := newUserFixture(caller)

	result, err := f.svc.Search(context.Background(), caller, query.Params{"page": "2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Self == nil || result.Self.ID != caller.ID {
		t.Fatalf("expected caller profile, got %+v", result)
	}
	if len(f.users.searchInputs) != 0 {
		t.Fatal("repository must not be queried without a filter")
	}
}

func TestUserSearchPaginates(t *testing.T) {
	caller := newStudent("anna")
	f := newUserFixture(caller)
	f.users.searchResults = [][]domain.User{{*newPolitician("mp")}}
	f.users.searchTotal = 21

	result, err := f.svc.Search(context.Background(), caller, query.Params{"name": "mp", "page": "3"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.TotalPages != 3 || len(result.Results) != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	in := f.users.searchInputs[0]
	if in.limit != query.PageSize || in.offset != 20 {
		t.Fatalf("expected limit %d offset 20, got %d %d", query.PageSize, in.limit, in.offset)
	}
}

func TestUserSearchRejectsInvalidQuery(t *testing.T) {
	caller := newStudent("anna")
	f := newUserFixture(caller)

	_, err := f.svc.Search(context.Background(), caller, query.Params{"state": "Atlantis"})
	var verr *query.ValidationError
	if !errors.As(err, &verr) || verr.Fields[0] != "state" {
		t.Fatalf("expected validation error on state, got %v", err)
	}
}

func TestUpdateRejectsFieldsOfOtherRole(t *testing.T) {
	politician := newPolitician("mp")
	student := newStudent("anna")
	f := newUserFixture(politician, student)
	ctx := context.Background()

	_, err := f.svc.Update(ctx, politician, ProfileInput{Major: []string{"Physics"}, University: strPtr("TUM")})
	var denied *FieldsNotAllowedError
	if !errors.As(err, &denied) || strings.Join(denied.Fields, ",") != "major,university" {
		t.Fatalf("expected major and university to be rejected, got %v", err)
	}
	if !errors.Is(err, ErrValidation) {
		t.Fatal("role errors must be validation errors")
	}

	_, err = f.svc.Update(ctx, student, ProfileInput{Position: strPtr("MdB")})
	if !errors.As(err, &denied) || denied.Fields[0] != "position" {
		t.Fatalf("expected position to be rejected, got %v", err)
	}
}

func TestUpdateStoresAvatarAndCV(t *testing.T) {
	student := newStudent("anna")
	f := newUserFixture(student)

	user, err := f.svc.Update(context.Background(), student, ProfileInput{
		FirstName: strPtr("  Anna "),
		Major:     []string{"Physics", " "},
		Avatar:    &media.Upload{Reader: strings.NewReader("raw"), FileName: "me.png"},
		CV:        &media.Upload{Reader: strings.NewReader("%PDF-1.4 cv"), FileName: "cv.pdf"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.processor.calls != 1 || f.processor.lastMax != 256 {
		t.Fatalf("expected avatar to be processed at 256px, got %d calls max %d", f.processor.calls, f.processor.lastMax)
	}
	if user.Avatar == nil || *user.Avatar != "anna/avatar.png" {
		t.Fatalf("unexpected avatar %v", user.Avatar)
	}
	if user.CV == nil || *user.CV != "anna/CV.pdf" {
		t.Fatalf("unexpected CV %v", user.CV)
	}
	if string(f.storage.objects["users/anna/avatar.png"]) != "png-bytes" {
		t.Fatal("expected processed avatar to be uploaded")
	}
	update := f.users.updateProfileInput.update
	if *update.FirstName != "Anna" || len(update.Major) != 1 {
		t.Fatalf("expected trimmed fields, got %+v", update)
	}
}

func TestUpdateRejectsNonPDFCV(t *testing.T) {
	student := newStudent("anna")
	f := newUserFixture(student)

	_, err := f.svc.Update(context.Background(), student, ProfileInput{
		CV: &media.Upload{Reader: strings.NewReader("plain text")},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if len(f.storage.uploaded) != 0 {
		t.Fatal("nothing must be uploaded")
	}
}

func TestUpdateRejectsUnsupportedAvatar(t *testing.T) {
	student := newStudent("anna")
	f := newUserFixture(student)
	f.processor.err = media.ErrUnsupportedImage

	_, err := f.svc.Update(context.Background(), student, ProfileInput{
		Avatar: &media.Upload{Reader: strings.NewReader("x")},
	})
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestDeletePoliticianCascades(t *testing.T) {
	politician := newPolitician("mp")
	f := newUserFixture(politician)
	own := &domain.Project{ID: uuid.New(), CreatorID: politician.ID, Title: "own"}
	other := &domain.Project{ID: uuid.New(), CreatorID: uuid.New(), Title: "other"}
	f.projects.projects[own.ID] = own
	f.projects.projects[other.ID] = other
	f.applications.applications[uuid.New()] = &domain.Application{ID: uuid.New(), ProjectID: own.ID}

	if err := f.svc.Delete(context.Background(), politician); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := f.projects.projects[own.ID]; ok {
		t.Fatal("expected own project to be removed")
	}
	if _, ok := f.projects.projects[other.ID]; !ok {
		t.Fatal("other projects must survive")
	}
	if len(f.applications.applications) != 0 {
		t.Fatal("expected applications of removed projects to be deleted")
	}
	if len(f.bookmarks.removedProjects) != 1 || f.bookmarks.removedProjects[0] != own.ID {
		t.Fatal("expected bookmarks of removed projects to be deleted")
	}
	if len(f.users.deleted) != 1 {
		t.Fatal("expected user to be deleted")
	}
}

func TestDeleteStudentCascades(t *testing.T) {
	student := newStudent("anna")
	student.Avatar = strPtr("anna/avatar.png")
	f := newUserFixture(student)
	f.storage.objects["users/anna/avatar.png"] = []byte("img")

	if err := f.svc.Delete(context.Background(), student); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(f.applications.deletedByApplicant) != 1 || len(f.bookmarks.removedUsers) != 1 {
		t.Fatal("expected applications and bookmarks of the student to be deleted")
	}
	if len(f.storage.removed) != 1 {
		t.Fatal("expected avatar to be removed from storage")
	}
	if len(f.tokens.subjects) != 1 || f.tokens.subjects[0] != student.Email {
		t.Fatalf("expected tokens of %s to be revoked, got %v", student.Email, f.tokens.subjects)
	}
	if f.tx.calls != 1 || f.tx.committed != 1 {
		t.Fatalf("expected the cascade to commit in one transaction, got %+v", f.tx)
	}
}

func TestDeleteRevokesPendingTokens(t *testing.T) {
	student := newStudent("anna")
	f := newUserFixture(student)
	repo := newFakeTokenRepo()
	tokens := NewTokenService(repo, nil)
	f.svc.tokens = tokens
	ctx := context.Background()

	if _, err := tokens.Issue(ctx, student.Email, domain.TokenPurposePasswordReset); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Issue(ctx, student.Email, domain.TokenPurposeEmailVerification); err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := tokens.Issue(ctx, "other@tum.de", domain.TokenPurposePasswordReset); err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := f.svc.Delete(ctx, student); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(repo.tokens) != 1 {
		t.Fatalf("expected only the other account's token to remain, got %v", repo.tokens)
	}
}

func TestDeleteFailureRollsBackCascade(t *testing.T) {
	student := newStudent("anna")
	student.Avatar = strPtr("anna/avatar.png")
	f := newUserFixture(student)
	f.storage.objects["users/anna/avatar.png"] = []byte("img")
	boom := errors.New("bookmarks unavailable")
	f.bookmarks.removeErr = boom

	if err := f.svc.Delete(context.Background(), student); !errors.Is(err, boom) {
		t.Fatalf("expected bookmark error, got %v", err)
	}
	if f.tx.rolledBack != 1 || f.tx.committed != 0 {
		t.Fatalf("expected the cascade to roll back, got %+v", f.tx)
	}
	if len(f.users.deleted) != 0 || len(f.tokens.subjects) != 0 {
		t.Fatal("account must survive a failed cascade")
	}
	if len(f.storage.removed) != 0 {
		t.Fatal("files must only be removed after the cascade commits")
	}
}

func TestUserProjectsByRole(t *testing.T) {
	politician := newPolitician("mp")
	student := newStudent("anna")
	f := newUserFixture(politician, student)
	project := &domain.Project{ID: uuid.New(), CreatorID: politician.ID, Title: "p"}
	f.projects.projects[project.ID] = project
	f.projects.accepted = []domain.Project{{ID: uuid.New(), Title: "accepted"}}
	ctx := context.Background()

	created, err := f.svc.Projects(ctx, "mp")
	if err != nil || len(created) != 1 || created[0].ID != project.ID {
		t.Fatalf("expected created projects, got %v %v", created, err)
	}
	accepted, err := f.svc.Projects(ctx, "anna")
	if err != nil || len(accepted) != 1 || accepted[0].Title != "accepted" {
		t.Fatalf("expected accepted projects, got %v %v", accepted, err)
	}
	if _, err := f.svc.Projects(ctx, "ghost"); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestOpenAvatar(t *testing.T) {
	student := newStudent("anna")
	f := newUserFixture(student)
	ctx := context.Background()

	if _, _, err := f.svc.OpenAvatar(ctx, "anna"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}

	student.Avatar = strPtr("anna/avatar.png")
	f.storage.objects["users/anna/avatar.png"] = []byte("img")
	f.storage.types["users/anna/avatar.png"] = "image/png"
	body, info, err := f.svc.OpenAvatar(ctx, "anna")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer body.Close()
	data, _ := io.ReadAll(body)
	if string(data) != "img" || info.ContentType != "image/png" {
		t.Fatalf("unexpected object %q %+v", data, info)
	}

	if _, _, err := f.svc.OpenCV(ctx, "anna"); !errors.Is(err, ErrFileNotFound) {
		t.Fatalf("expected ErrFileNotFound, got %v", err)
	}
}
