package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	_ "github.com/lib/pq"
)

// dbtx defines the interface for database and transactions
type dbtx interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresConfig holds the configuration for connecting to a Postgres database
type PostgresConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DB       string
}

// PostgresStore implements the Store interface using a Postgres database
type PostgresStore struct {
	db dbtx
}

// NewPostgresDB creates a new Postgres database connection
func NewPostgresDB(cfg PostgresConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		cfg.Host,
		cfg.Port,
		cfg.User,
		cfg.Password,
		cfg.DB))
	if err != nil {
		return nil, fmt.Errorf("connect to postgres: %w", err)
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	return db, nil
}

// NewPostgresStore creates a new PostgresStore instance
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, email, name, COALESCE(image_url, ''), email_verified,
		provider, COALESCE(provider_id, ''), COALESCE(password, ''), created_at, updated_at`

// GetUser retrieves a user by id
func (s *PostgresStore) GetUser(ctx context.Context, id int64) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id=$1`, id)

	return scanUser(row)
}

// GetUserByEmail retrieves a user by email
func (s *PostgresStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email=$1`, email)

	return scanUser(row)
}

// CreateUser inserts a new user and returns the stored row
func (s *PostgresStore) CreateUser(ctx context.Context, r CreateUserRequest) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`INSERT INTO users (email, name, image_url, email_verified, provider, provider_id)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+userColumns,
		r.Email,
		r.Name,
		r.ImageURL,
		r.EmailVerified,
		r.Provider,
		r.ProviderID)

	usr, err := scanUser(row)
	if err != nil {
		return User{}, fmt.Errorf("insert user: %w", err)
	}

	return usr, nil
}

// UpdateUser updates the mutable profile fields and returns the stored row
func (s *PostgresStore) UpdateUser(ctx context.Context, r UpdateUserRequest) (User, error) {
	row := s.db.QueryRowContext(ctx,
		`UPDATE users SET name=$2, image_url=$3, updated_at=now()
		 WHERE id=$1
		 RETURNING `+userColumns,
		r.ID,
		r.Name,
		r.ImageURL)

	usr, err := scanUser(row)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrNotFound
		}

		return User{}, fmt.Errorf("update user: %w", err)
	}

	return usr, nil
}

// WithTx executes the given function within a database transaction
func (s *PostgresStore) WithTx(ctx context.Context, fn func(tx Store) error) error {
	db, ok := s.db.(*sql.DB)
	if !ok {
		return errors.New("already in transaction")
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	sx := &PostgresStore{db: tx}
	if err = fn(sx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("rollback: %v after: %w", rbErr, err)
		}

		return fmt.Errorf("transaction: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}

func scanUser(row *sql.Row) (User, error) {
	var usr User
	err := row.Scan(
		&usr.ID,
		&usr.Email,
		&usr.Name,
		&usr.ImageURL,
		&usr.EmailVerified,
		&usr.Provider,
		&usr.ProviderID,
		&usr.Password,
		&usr.CreatedAt,
		&usr.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, ErrNotFound
		}

		return User{}, fmt.Errorf("scan: %w", err)
	}

	return usr, nil
}
