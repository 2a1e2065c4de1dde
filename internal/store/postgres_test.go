package store

import (
	"context"
	"database/sql"
	"log"
	"os"
	"testing"

	"github.com/skillshare/auth-go/internal/testdb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	db  *sql.DB
	pgs *PostgresStore
)

const migrationsFolder = "../../db/migrations"

func TestMain(m *testing.M) {
	res, close := testdb.StartPostgres(context.Background(), testdb.PostgresStartRequest{
		User:     "test",
		Password: "test",
		DB:       "test",
	})
	defer close()

	var err error
	db, err = NewPostgresDB(PostgresConfig{
		Host:     res.Host,
		Port:     res.Port,
		User:     "test",
		Password: "test",
		DB:       "test",
	})
	if err != nil {
		log.Fatal("failed to connect to postgres:", err)
	}

	pgs = NewPostgresStore(db)
	os.Exit(m.Run())
}

func TestCreateUser(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)

	usr, err := pgs.CreateUser(t.Context(), CreateUserRequest{
		Email:         "test@example.com",
		Name:          "Test User",
		ImageURL:      "http://example.com/picture.jpg",
		EmailVerified: true,
		Provider:      "google",
		ProviderID:    "sub-123",
	})
	require.NoError(t, err)
	require.NotZero(t, usr.ID)

	assert.Equal(t, "test@example.com", usr.Email)
	assert.Equal(t, "Test User", usr.Name)
	assert.Equal(t, "http://example.com/picture.jpg", usr.ImageURL)
	assert.True(t, usr.EmailVerified)
	assert.Equal(t, "google", usr.Provider)
	assert.Equal(t, "sub-123", usr.ProviderID)
	assert.Empty(t, usr.Password)
	assert.False(t, usr.CreatedAt.IsZero())
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)

	req := CreateUserRequest{
		Email:    "dup@example.com",
		Name:     "First",
		Provider: "google",
	}
	_, err := pgs.CreateUser(t.Context(), req)
	require.NoError(t, err)

	req.Name = "Second"
	_, err = pgs.CreateUser(t.Context(), req)
	require.Error(t, err)
}

func TestGetUser(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)
	userID := testdb.Query(t, db,
		"INSERT INTO users (email, name, provider, provider_id) VALUES ($1, $2, $3, $4) RETURNING id",
		"test@example.com", "Test User", "github", "42").AsInt64()

	usr, err := pgs.GetUser(t.Context(), userID)
	require.NoError(t, err)

	assert.Equal(t, userID, usr.ID)
	assert.Equal(t, "test@example.com", usr.Email)
	assert.Equal(t, "github", usr.Provider)
	assert.Empty(t, usr.ImageURL)
}

func TestGetUser_NotFound(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)

	_, err := pgs.GetUser(t.Context(), 99999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetUserByEmail(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)
	userID := testdb.Query(t, db,
		"INSERT INTO users (email, name, provider) VALUES ($1, $2, $3) RETURNING id",
		"byemail@example.com", "Test User", "google").AsInt64()

	usr, err := pgs.GetUserByEmail(t.Context(), "byemail@example.com")
	require.NoError(t, err)
	assert.Equal(t, userID, usr.ID)

	_, err = pgs.GetUserByEmail(t.Context(), "missing@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestUpdateUser(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)
	userID := testdb.Query(t, db,
		"INSERT INTO users (email, name, provider) VALUES ($1, $2, $3) RETURNING id",
		"update@example.com", "Old Name", "google").AsInt64()

	usr, err := pgs.UpdateUser(t.Context(), UpdateUserRequest{
		ID:       userID,
		Name:     "New Name",
		ImageURL: "http://example.com/new.jpg",
	})
	require.NoError(t, err)

	assert.Equal(t, "New Name", usr.Name)
	assert.Equal(t, "http://example.com/new.jpg", usr.ImageURL)
	assert.Equal(t, "update@example.com", usr.Email)

	name := testdb.Query(t, db, "SELECT name FROM users WHERE id=$1", userID).AsString()
	assert.Equal(t, "New Name", name)
}

func TestUpdateUser_NotFound(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)

	_, err := pgs.UpdateUser(t.Context(), UpdateUserRequest{
		ID:   99999,
		Name: "Nobody",
	})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestWithTx(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)

	err := pgs.WithTx(t.Context(), func(tx Store) error {
		_, err := tx.CreateUser(t.Context(), CreateUserRequest{
			Email:    "tx@example.com",
			Name:     "Tx User",
			Provider: "google",
		})
		return err
	})
	require.NoError(t, err)

	var count int
	err = db.QueryRowContext(t.Context(), "SELECT COUNT(*) FROM users WHERE email=$1", "tx@example.com").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestWithTxRollback(t *testing.T) {
	testdb.RunMigrations(t, db, migrationsFolder)

	err := pgs.WithTx(t.Context(), func(tx Store) error {
		_, err := tx.CreateUser(t.Context(), CreateUserRequest{
			Email:    "rollback@example.com",
			Name:     "Tx User",
			Provider: "google",
		})
		if err != nil {
			return err
		}

		return assert.AnError
	})
	require.Error(t, err)

	var count int
	err = db.QueryRowContext(t.Context(), "SELECT COUNT(*) FROM users WHERE email=$1", "rollback@example.com").Scan(&count)
	require.NoError(t, err)
	assert.Equal(t, 0, count)
}
