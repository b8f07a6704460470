package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gatekeeper/internal/common"
	"github.com/dmitrijs2005/gatekeeper/internal/identity/models"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const userID = "0b6f1b9e-3c1a-4f43-9d55-0d8f6b1c2a77"

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock, *sql.DB) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	return NewPostgresRepository(db), mock, db
}

const insertQuery = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*username,\s*email,\s*first_name,\s*last_name,\s*gender,\s*password_hash,\s*salt\)\s*VALUES\s*\(\$1,.*\$8\)\s*RETURNING\s+created_at\s*$`

func newUser() *models.User {
	return &models.User{
		ID:           userID,
		Username:     "alice",
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Liddell",
		PasswordHash: []byte("hash"),
		Salt:         []byte("salt"),
	}
}

func TestCreate_Success(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	created := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	mock.ExpectQuery(insertQuery).
		WithArgs(userID, "alice", "alice@example.com", "Alice", "Liddell",
			sql.NullString{}, []byte("hash"), []byte("salt")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(created))

	got, err := repo.Create(context.Background(), newUser())
	require.NoError(t, err)
	assert.Equal(t, userID, got.ID)
	assert.Equal(t, created, got.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestCreate_GeneratesID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WithArgs(sqlmock.AnyArg(), "alice", "alice@example.com", "Alice", "Liddell",
			sql.NullString{String: "female", Valid: true}, []byte("hash"), []byte("salt")).
		WillReturnRows(sqlmock.NewRows([]string{"created_at"}).AddRow(time.Now()))

	u := newUser()
	u.ID = ""
	u.Gender = "female"
	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Len(t, got.ID, 36)
}

func TestCreate_Duplicate(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).
		WillReturnError(&pgconn.PgError{Code: "23505", Message: "duplicate key"})

	_, err := repo.Create(context.Background(), newUser())
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(insertQuery).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), newUser())
	if err == nil || !regexp.MustCompile(`db error: .*db down`).MatchString(err.Error()) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

var userColumns = []string{"id", "username", "email", "first_name", "last_name", "gender", "password_hash", "salt", "created_at"}

func TestGetByEmail_Found(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID, "alice", "alice@example.com", "Alice", "Liddell", nil, []byte("h"), []byte("s"), time.Now()))

	got, err := repo.GetByEmail(context.Background(), "alice@example.com")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Empty(t, got.Gender)
	assert.Equal(t, []byte("h"), got.PasswordHash)
}

func TestGetByEmail_NotFound(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT\s+id,.*WHERE\s+email`).WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByEmail(context.Background(), "nobody@example.com")
	assert.ErrorIs(t, err, common.ErrorNotFound)
}

func TestGetByID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	mock.ExpectQuery(q).
		WithArgs(userID).
		WillReturnRows(sqlmock.NewRows(userColumns).
			AddRow(userID, "alice", "alice@example.com", "Alice", "Liddell", "female", []byte("h"), []byte("s"), time.Now()))

	got, err := repo.GetByID(context.Background(), userID)
	require.NoError(t, err)
	assert.Equal(t, "female", got.Gender)
}

func TestGetByID_MalformedID(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	_, err := repo.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, common.ErrorNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestList(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	q := `(?s)^SELECT\s+id,.*FROM\s+users\s+ORDER\s+BY\s+created_at,\s*id\s+LIMIT\s+\$1\s+OFFSET\s+\$2\s*$`
	now := time.Now()
	mock.ExpectQuery(q).
		WithArgs(10, 20).
		WillReturnRows(sqlmock.NewRows([]string{"id", "username", "email", "first_name", "last_name", "gender", "created_at"}).
			AddRow("u-1", "alice", "a@example.com", "Alice", "L", "female", now).
			AddRow("u-2", "bob", "b@example.com", "Bob", "M", nil, now))

	got, err := repo.List(context.Background(), 10, 20)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "bob", got[1].Username)
	assert.Empty(t, got[1].Gender)
}

func TestList_QueryError(t *testing.T) {
	repo, mock, db := newRepoWithMock(t)
	defer db.Close()

	mock.ExpectQuery(`(?s)^SELECT`).WillReturnError(errors.New("boom"))

	_, err := repo.List(context.Background(), 1, 0)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "db error")
}
