package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ayush/media-reviews/backend/internal/models"
)

// uniqueViolation is the SQLSTATE PostgreSQL reports for a duplicate key.
const uniqueViolation = "23505"

// PostgresStore handles users, catalog and review persistence in PostgreSQL.
type PostgresStore struct {
	pool *pgxpool.Pool
}

func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id              BIGSERIAL PRIMARY KEY,
		username        VARCHAR(50)  UNIQUE NOT NULL,
		first_name      VARCHAR(50)  NOT NULL DEFAULT '',
		last_name       VARCHAR(50)  NOT NULL DEFAULT '',
		email           VARCHAR(254) UNIQUE NOT NULL,
		hashed_password VARCHAR(255) NOT NULL,
		role            VARCHAR(50)  NOT NULL DEFAULT 'user'
	)`,
	`CREATE TABLE IF NOT EXISTS categories (
		id   BIGSERIAL PRIMARY KEY,
		name VARCHAR(50) UNIQUE NOT NULL,
		slug VARCHAR(50) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS genres (
		id   BIGSERIAL PRIMARY KEY,
		name VARCHAR(50) UNIQUE NOT NULL,
		slug VARCHAR(50) UNIQUE NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS titles (
		id          BIGSERIAL PRIMARY KEY,
		name        VARCHAR(50)  UNIQUE NOT NULL,
		year        SMALLINT     NOT NULL,
		description VARCHAR(500) NOT NULL DEFAULT '',
		category_id BIGINT       REFERENCES categories(id) ON DELETE SET NULL,
		poster_key  TEXT         NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		id        BIGSERIAL PRIMARY KEY,
		title_id  BIGINT      NOT NULL REFERENCES titles(id) ON DELETE CASCADE,
		author_id BIGINT      NOT NULL REFERENCES users(id)  ON DELETE CASCADE,
		text      TEXT        NOT NULL,
		score     SMALLINT    NOT NULL CHECK (score BETWEEN 1 AND 10),
		pub_date  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS reviews_title_id_idx ON reviews (title_id)`,
	`CREATE TABLE IF NOT EXISTS comments (
		id        BIGSERIAL PRIMARY KEY,
		review_id BIGINT      NOT NULL REFERENCES reviews(id) ON DELETE CASCADE,
		author_id BIGINT      NOT NULL REFERENCES users(id)   ON DELETE CASCADE,
		text      TEXT        NOT NULL,
		pub_date  TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE INDEX IF NOT EXISTS comments_review_id_idx ON comments (review_id)`,
}

// Migrate creates the tables if they don't exist.
func (s *PostgresStore) Migrate(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

// translate maps driver errors onto the model sentinels handlers switch on.
func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return models.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return fmt.Errorf("%w: %s", models.ErrConflict, pgErr.ConstraintName)
	}
	return err
}

const userColumns = `id, username, first_name, last_name, email, hashed_password, role`

func scanUser(row pgx.Row) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.ID, &u.Username, &u.FirstName, &u.LastName, &u.Email, &u.HashedPassword, &u.Role)
	if err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

// CreateUser inserts u and returns it with its assigned id. A taken username
// or email yields models.ErrConflict.
func (s *PostgresStore) CreateUser(ctx context.Context, u *models.User) (*models.User, error) {
	created, err := scanUser(s.pool.QueryRow(ctx,
		`INSERT INTO users (username, first_name, last_name, email, hashed_password, role)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		u.Username, u.FirstName, u.LastName, u.Email, u.HashedPassword, u.Role,
	))
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return created, nil
}

func (s *PostgresStore) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (s *PostgresStore) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	return scanUser(s.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1`, username))
}

// ListUsers returns every user, or only those with the given role when role
// is non-empty.
func (s *PostgresStore) ListUsers(ctx context.Context, role string) ([]models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users`
	var args []any
	if role != "" {
		query += ` WHERE role = $1`
		args = append(args, role)
	}
	rows, err := s.pool.Query(ctx, query+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	users := []models.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

// UpdateUser writes the self-editable columns of u. Role is never written
// here, so a concurrent role change is not reverted by a profile edit.
func (s *PostgresStore) UpdateUser(ctx context.Context, u *models.User) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET first_name = $2, last_name = $3, hashed_password = $4
		 WHERE id = $1`,
		u.ID, u.FirstName, u.LastName, u.HashedPassword,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", translate(err))
	}
	if tag.RowsAffected() == 0 {
		return models.ErrNotFound
	}
	return nil
}
