package postgres

import (
	"context"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/oksasatya/go-user-directory/internal/domain/entity"
	"github.com/oksasatya/go-user-directory/internal/domain/repository"
	"github.com/oksasatya/go-user-directory/pkg/apperror"
)

const (
	usersTable = "users"

	// SQLSTATE unique_violation
	uniqueViolation = "23505"
)

var userColumns = []string{"id", "name", "email", "address", "created_at", "updated_at"}

type UserRepository struct {
	pool *pgxpool.Pool
	qb   sq.StatementBuilderType
}

func NewUserRepository(pool *pgxpool.Pool) *UserRepository {
	return &UserRepository{
		pool: pool,
		qb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func scanUser(row pgx.Row, u *entity.User) error {
	return row.Scan(&u.ID, &u.Name, &u.Email, &u.Address, &u.CreatedAt, &u.UpdatedAt)
}

// mapErr turns driver errors into tagged application errors.
func mapErr(err error, op, conflictMsg string) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return apperror.NotFound("User not found")
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperror.Wrap(err, apperror.KindConflict, conflictMsg)
	}
	return apperror.Wrap(err, apperror.KindUnexpected, op)
}

func (r *UserRepository) Create(ctx context.Context, u *entity.User) error {
	query, args, err := r.qb.Insert(usersTable).
		Columns("name", "email", "address").
		Values(u.Name, u.Email, u.Address).
		Suffix("RETURNING id, created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert user: %w", err)
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapErr(err, "insert user", "User with this email already exists")
	}
	return nil
}

func (r *UserRepository) List(ctx context.Context, offset, limit int) ([]entity.User, error) {
	query, args, err := r.qb.Select(userColumns...).
		From(usersTable).
		OrderBy("created_at DESC", "id DESC").
		Offset(uint64(offset)).
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list users: %w", err)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, mapErr(err, "list users", "")
	}
	defer rows.Close()

	users := make([]entity.User, 0, limit)
	for rows.Next() {
		var u entity.User
		if err := scanUser(rows, &u); err != nil {
			return nil, mapErr(err, "scan user", "")
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, mapErr(err, "list users", "")
	}
	return users, nil
}

func (r *UserRepository) Count(ctx context.Context) (int64, error) {
	query, args, err := r.qb.Select("COUNT(*)").From(usersTable).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count users: %w", err)
	}
	var total int64
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, mapErr(err, "count users", "")
	}
	return total, nil
}

func (r *UserRepository) getOne(ctx context.Context, where sq.Eq, op string) (*entity.User, error) {
	query, args, err := r.qb.Select(userColumns...).
		From(usersTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", op, err)
	}
	u := &entity.User{}
	if err := scanUser(r.pool.QueryRow(ctx, query, args...), u); err != nil {
		return nil, mapErr(err, op, "")
	}
	return u, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id string) (*entity.User, error) {
	return r.getOne(ctx, sq.Eq{"id": id}, "get user by id")
}

func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	return r.getOne(ctx, sq.Eq{"email": email}, "get user by email")
}

// Update writes all editable fields of u and refreshes updated_at.
func (r *UserRepository) Update(ctx context.Context, u *entity.User) error {
	query, args, err := r.qb.Update(usersTable).
		Set("name", u.Name).
		Set("email", u.Email).
		Set("address", u.Address).
		Set("updated_at", sq.Expr("GREATEST(now(), created_at)")).
		Where(sq.Eq{"id": u.ID}).
		Suffix("RETURNING created_at, updated_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build update user: %w", err)
	}
	if err := r.pool.QueryRow(ctx, query, args...).Scan(&u.CreatedAt, &u.UpdatedAt); err != nil {
		return mapErr(err, "update user", "Email already exists")
	}
	return nil
}

func (r *UserRepository) Delete(ctx context.Context, id string) error {
	query, args, err := r.qb.Delete(usersTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete user: %w", err)
	}
	tag, err := r.pool.Exec(ctx, query, args...)
	if err != nil {
		return mapErr(err, "delete user", "")
	}
	if tag.RowsAffected() == 0 {
		return apperror.NotFound("User not found")
	}
	return nil
}

func (r *UserRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

var _ repository.UserRepository = (*UserRepository)(nil)
