package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

const projectColumnList = `p.id, p.title, p.description, p.status, p.file, p.creator_id, p.from_date, p.to_date,
        p.nature, p.state, p.tags, p.salary, p.questions, p.created_at, p.updated_at`

type ProjectRepository struct {
	db *sqlx.DB
}

func NewProjectRepo(db *sqlx.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func optionalArray(values []string) any {
	if values == nil {
		return nil
	}
	return pq.Array(values)
}

func (r *ProjectRepository) Create(ctx context.Context, creatorID uuid.UUID, fields domain.ProjectFields) (*domain.Project, error) {
	const query = `
        INSERT INTO projects AS p (title, description, creator_id, from_date, to_date, nature, state, tags, salary, questions)
        VALUES ($1, $2, $3, COALESCE($4, NOW()), $5, COALESCE($6, 'internship'), COALESCE($7, 'Bayern'),
                COALESCE($8, '{}'::text[]), COALESCE($9, 0), COALESCE($10, '{}'::text[]))
        RETURNING ` + projectColumnList
	row := conn(ctx, r.db).QueryRowxContext(ctx, query,
		fields.Title, fields.Description, creatorID, fields.From, fields.To, fields.Nature, fields.State,
		optionalArray(fields.Tags), fields.Salary, optionalArray(fields.Questions))
	var project domain.Project
	if err := row.StructScan(&project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.Project, error) {
	query := `SELECT ` + projectColumnList + ` FROM projects p WHERE p.id = $1`
	var project domain.Project
	if err := conn(ctx, r.db).GetContext(ctx, &project, query, id); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Update(ctx context.Context, id uuid.UUID, fields domain.ProjectFields) (*domain.Project, error) {
	const query = `
        UPDATE projects AS p
        SET title = COALESCE($2, title),
            description = COALESCE($3, description),
            from_date = COALESCE($4, from_date),
            to_date = COALESCE($5, to_date),
            nature = COALESCE($6, nature),
            state = COALESCE($7, state),
            tags = COALESCE($8, tags),
            salary = COALESCE($9, salary),
            questions = COALESCE($10, questions),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + projectColumnList
	row := conn(ctx, r.db).QueryRowxContext(ctx, query, id,
		fields.Title, fields.Description, fields.From, fields.To, fields.Nature, fields.State,
		optionalArray(fields.Tags), fields.Salary, optionalArray(fields.Questions))
	var project domain.Project
	if err := row.StructScan(&project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.ProjectStatus) (*domain.Project, error) {
	const query = `
        UPDATE projects AS p SET status = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + projectColumnList
	var project domain.Project
	if err := conn(ctx, r.db).QueryRowxContext(ctx, query, id, status).StructScan(&project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) SetFile(ctx context.Context, id uuid.UUID, file string) (*domain.Project, error) {
	const query = `
        UPDATE projects AS p SET file = $2, updated_at = NOW()
        WHERE id = $1
        RETURNING ` + projectColumnList
	var project domain.Project
	if err := conn(ctx, r.db).QueryRowxContext(ctx, query, id, file).StructScan(&project); err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *ProjectRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execAffecting(ctx, r.db, `DELETE FROM projects WHERE id = $1`, id)
}

func (r *ProjectRepository) List(ctx context.Context, filter query.Predicate, scope *ports.ProjectScope, limit, offset int) ([]domain.Project, int64, error) {
	var args sqlArgs
	var extra []string
	if scope != nil && scope.CreatorID != nil {
		extra = append(extra, "p.creator_id = "+args.bind(*scope.CreatorID))
	}
	if scope != nil && scope.ApplicantID != nil {
		extra = append(extra, "EXISTS (SELECT 1 FROM applications a WHERE a.project_id = p.id AND a.applicant_id = "+args.bind(*scope.ApplicantID)+")")
	}
	clause, err := where(filter, projectColumns, &args, extra...)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := conn(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM projects p `+clause, args.values...); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + projectColumnList + ` FROM projects p ` + clause +
		` ORDER BY p.created_at DESC, p.id DESC LIMIT ` + args.bind(limit) + ` OFFSET ` + args.bind(offset)
	projects := make([]domain.Project, 0)
	if err := conn(ctx, r.db).SelectContext(ctx, &projects, listQuery, args.values...); err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

func (r *ProjectRepository) ListIDsByCreator(ctx context.Context, creatorID uuid.UUID) ([]uuid.UUID, error) {
	ids := make([]uuid.UUID, 0)
	if err := conn(ctx, r.db).SelectContext(ctx, &ids, `SELECT id FROM projects WHERE creator_id = $1`, creatorID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *ProjectRepository) ListByCreator(ctx context.Context, creatorID uuid.UUID) ([]domain.Project, error) {
	query := `SELECT ` + projectColumnList + ` FROM projects p WHERE p.creator_id = $1 ORDER BY p.created_at DESC`
	projects := make([]domain.Project, 0)
	if err := conn(ctx, r.db).SelectContext(ctx, &projects, query, creatorID); err != nil {
		return nil, err
	}
	return projects, nil
}

func (r *ProjectRepository) ListAccepted(ctx context.Context, applicantID uuid.UUID) ([]domain.Project, error) {
	query := `SELECT ` + projectColumnList + `
        FROM projects p
        JOIN applications a ON a.project_id = p.id
        WHERE a.applicant_id = $1 AND a.status = 'accepted'
        ORDER BY p.from_date DESC`
	projects := make([]domain.Project, 0)
	if err := conn(ctx, r.db).SelectContext(ctx, &projects, query, applicantID); err != nil {
		return nil, err
	}
	return projects, nil
}

var _ ports.ProjectRepository = (*ProjectRepository)(nil)
