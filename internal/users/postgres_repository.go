package users

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pemaismais/Projeto-LerDort-backend/internal/models"
)

const uniqueViolation = "23505"

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
	id          TEXT PRIMARY KEY,
	sub         TEXT NOT NULL UNIQUE,
	email       TEXT NOT NULL DEFAULT '',
	name        TEXT NOT NULL DEFAULT '',
	picture_url TEXT NOT NULL DEFAULT '',
	roles       TEXT[] NOT NULL DEFAULT '{}',
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
)`

const selectUser = `SELECT id, sub, email, name, picture_url, roles, created_at, updated_at FROM users`

// PostgresRepository implements Repository on a pgx pool. The UNIQUE
// constraint on sub backs the duplicate detection in Create.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Migrate creates the users table when it does not exist yet.
func (r *PostgresRepository) Migrate(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createUsersTable); err != nil {
		return fmt.Errorf("create users table: %w", err)
	}
	return nil
}

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Sub, &u.Email, &u.Name, &u.PictureURL, &u.Roles, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *PostgresRepository) FindBySub(ctx context.Context, sub string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE sub = $1`, sub))
}

func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	return scanUser(r.pool.QueryRow(ctx, selectUser+` WHERE id = $1`, id))
}

func (r *PostgresRepository) Create(ctx context.Context, u *models.User) error {
	roles := u.Roles
	if roles == nil {
		roles = []string{}
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO users (id, sub, email, name, picture_url, roles, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		u.ID, u.Sub, u.Email, u.Name, u.PictureURL, roles, u.CreatedAt, u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			return ErrDuplicateSubject
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (r *PostgresRepository) UpdateProfile(ctx context.Context, id, name, picture string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET name = $2, picture_url = $3, updated_at = $4 WHERE id = $1`,
		id, name, picture, time.Now().UTC(),
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PostgresRepository) ExistsByID(ctx context.Context, id string) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)`, id).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *PostgresRepository) DeleteByID(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
