package postgres

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sci-com/scicom-api/internal/domain"
	"github.com/sci-com/scicom-api/internal/query"
	"github.com/sci-com/scicom-api/internal/repository/ports"
)

const userColumnList = `u.id, u.username, u.email, u.password_hash, u.password_salt, u.is_politician, u.verified,
        u.first_name, u.last_name, u.avatar, u.phone, u.website, u.linkedin, u.city, u.state, u.title,
        u.major, u.university, u.cv, u.position, u.created_at, u.updated_at`

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, user ports.NewUser) (*domain.User, error) {
	const query = `
        INSERT INTO users AS u (username, email, password_hash, password_salt, is_politician)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING ` + userColumnList
	row := conn(ctx, r.db).QueryRowxContext(ctx, query, user.Username, user.Email, user.PasswordHash, user.PasswordSalt, user.IsPolitician)
	var created domain.User
	if err := row.StructScan(&created); err != nil {
		return nil, err
	}
	return &created, nil
}

func (r *UserRepository) findOne(ctx context.Context, clause string, arg any) (*domain.User, error) {
	query := `SELECT ` + userColumnList + ` FROM users u WHERE ` + clause
	var user domain.User
	if err := conn(ctx, r.db).GetContext(ctx, &user, query, arg); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, "u.id = $1", id)
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "u.username = $1", username)
}

func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "lower(u.email) = lower($1)", email)
}

func (r *UserRepository) UpdateProfile(ctx context.Context, id uuid.UUID, update domain.ProfileUpdate) (*domain.User, error) {
	const query = `
        UPDATE users AS u
        SET first_name = COALESCE($2, first_name),
            last_name = COALESCE($3, last_name),
            phone = COALESCE($4, phone),
            website = COALESCE($5, website),
            linkedin = COALESCE($6, linkedin),
            city = COALESCE($7, city),
            state = COALESCE($8, state),
            title = COALESCE($9, title),
            position = COALESCE($10, position),
            major = COALESCE($11, major),
            university = COALESCE($12, university),
            avatar = COALESCE($13, avatar),
            cv = COALESCE($14, cv),
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + userColumnList
	var major any
	if update.Major != nil {
		major = pq.Array(update.Major)
	}
	row := conn(ctx, r.db).QueryRowxContext(ctx, query, id,
		update.FirstName, update.LastName, update.Phone, update.Website, update.LinkedIn,
		update.City, update.State, update.Title, update.Position, major, update.University,
		update.Avatar, update.CV)
	var user domain.User
	if err := row.StructScan(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) UpdatePassword(ctx context.Context, id uuid.UUID, passwordHash, passwordSalt []byte) error {
	const query = `
        UPDATE users
        SET password_hash = $2,
            password_salt = $3,
            updated_at = NOW()
        WHERE id = $1
    `
	return execAffecting(ctx, r.db, query, id, passwordHash, passwordSalt)
}

func (r *UserRepository) MarkVerified(ctx context.Context, id uuid.UUID) error {
	const query = `
        UPDATE users SET verified = true, updated_at = NOW()
        WHERE id = $1
    `
	return execAffecting(ctx, r.db, query, id)
}

func (r *UserRepository) Search(ctx context.Context, filter query.Predicate, limit, offset int) ([]domain.User, int64, error) {
	var args sqlArgs
	clause, err := where(filter, userColumns, &args)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	if err := conn(ctx, r.db).GetContext(ctx, &total, `SELECT COUNT(*) FROM users u `+clause, args.values...); err != nil {
		return nil, 0, err
	}

	listQuery := `SELECT ` + userColumnList + ` FROM users u ` + clause +
		` ORDER BY u.username ASC LIMIT ` + args.bind(limit) + ` OFFSET ` + args.bind(offset)
	users := make([]domain.User, 0)
	if err := conn(ctx, r.db).SelectContext(ctx, &users, listQuery, args.values...); err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return execAffecting(ctx, r.db, `DELETE FROM users WHERE id = $1`, id)
}

// execAffecting runs a statement that must touch at least one row.
func execAffecting(ctx context.Context, db sqlx.ExecerContext, query string, args ...any) error {
	result, err := db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

var _ ports.UserRepository = (*UserRepository)(nil)
