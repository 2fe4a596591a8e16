package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

const applicationColumnList = `a.id, a.applicant_id, a.project_id, a.status, a.answers, a.created_at, a.updated_at`

type ApplicationRepository struct {
	db *sqlx.DB
}

func NewApplicationRepo(db *sqlx.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db}
}

func (r *ApplicationRepository) Create(ctx context.Context, applicantID, projectID uuid.UUID, answers domain.Answers) (*domain.Application, error) {
	const query = `
        INSERT INTO applications AS a (applicant_id, project_id, answers)
        VALUES ($1, $2, $3)
        RETURNING ` + applicationColumnList
	var application domain.Application
	if err := conn(ctx, r.db).QueryRowxContext(ctx, query, applicantID, projectID, answers).StructScan(&application); err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Application, error) {
	query := `SELECT ` + applicationColumnList + ` FROM applications a WHERE a.id = $1`
	var application domain.Application
	if err := conn(ctx, r.db).GetContext(ctx, &application, query, id); err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *ApplicationRepository) list(ctx context.Context, from, scope string, owner uuid.UUID, filter query.Predicate, limit, offset int) ([]domain.Application, int64, error) {
	var args sqlArgs
	clause, err := where(filter, applicationColumns, &args, scope+" = "+args.bind(owner))
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := conn(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM `+from+` `+clause, args.values...); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + applicationColumnList + ` FROM ` + from + ` ` + clause +
		` ORDER BY a.created_at DESC, a.id DESC LIMIT ` + args.bind(limit) + ` OFFSET ` + args.bind(offset)
	applications := make([]domain.Application, 0)
	if err := conn(ctx, r.db).SelectContext(ctx, &applications, listQuery, args.values...); err != nil {
		return nil, 0, err
	}
	return applications, total, nil
}

func (r *ApplicationRepository) ListByApplicant(ctx context.Context, applicantID uuid.UUID, filter query.Predicate, limit, offset int) ([]domain.Application, int64, error) {
	return r.list(ctx, "applications a", "a.applicant_id", applicantID, filter, limit, offset)
}

func (r *ApplicationRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID, filter query.Predicate, limit, offset int) ([]domain.Application, int64, error) {
	return r.list(ctx, "applications a JOIN projects p ON p.id = a.project_id", "p.creator_id", creatorID, filter, limit, offset)
}

func (r *ApplicationRepository) ListByProject(ctx context.Context, projectID uuid.UUID) ([]domain.Application, error) {
	query := `SELECT ` + applicationColumnList + ` FROM applications a WHERE a.project_id = $1 ORDER BY a.created_at ASC`
	applications := make([]domain.Application, 0)
	if err := conn(ctx, r.db).SelectContext(ctx, &applications, query, projectID); err != nil {
		return nil, err
	}
	return applications, nil
}

func (r *ApplicationRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.ApplicationStatus) (*domain.Application, error) {
	const query = `
        UPDATE applications AS a SET status = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + applicationColumnList
	var application domain.Application
	if err := conn(ctx, r.db).QueryRowxContext(ctx, query, id, status).StructScan(&application); err != nil {
		return nil, err
	}
	return &application, nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execAffecting(ctx, r.db, `DELETE FROM applications WHERE id = $1`, id)
}

func (r *ApplicationRepository) DeleteByProject(ctx context.Context, projectID uuid.UUID) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM applications WHERE project_id = $1`, projectID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *ApplicationRepository) DeleteByApplicant(ctx context.Context, applicantID uuid.UUID) (int64, error) {
	result, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM applications WHERE applicant_id = $1`, applicantID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

var _ ports.ApplicationRepository = (*ApplicationRepository)(nil)
