package users

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/dmitrijs2005/gophauth/internal/server/models"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	insertQ       = `(?s)^INSERT\s+INTO\s+users\s*\(id,\s*name,\s*email,\s*password_hash,\s*created_at,\s*updated_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3,\s*\$4,\s*\$5,\s*\$6\)\s*$`
	selectByEmail = `(?s)^SELECT\s+id,\s*name,\s*email,\s*password_hash,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+email\s*=\s*\$1\s*$`
	selectByID    = `(?s)^SELECT\s+id,\s*name,\s*email,\s*password_hash,\s*created_at,\s*updated_at\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\s*$`
	updateQ       = `(?s)^UPDATE\s+users\s+SET\s+password_hash\s*=\s*\$2,\s*updated_at\s*=\s*\$3\s+WHERE\s+id\s*=\s*\$1\s+AND\s+password_hash\s*=\s*\$4\s*$`
	existsQ       = `(?s)^SELECT\s+EXISTS\(SELECT\s+1\s+FROM\s+users\s+WHERE\s+id\s*=\s*\$1\)$`
)

var userColumns = []string{"id", "name", "email", "password_hash", "created_at", "updated_at"}

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

func sampleUser() *models.User {
	now := time.Date(2026, 10, 19, 12, 0, 0, 0, time.UTC)
	return &models.User{
		ID:           "3f1c2b1e-8c1d-4a0e-9a43-0d6c3f1b9a10",
		Name:         "Alice",
		Email:        "a@x.com",
		PasswordHash: "$2a$12$hash",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

func TestPostgresCreate_Success(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := sampleUser()

	mock.ExpectExec(insertQ).
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnResult(sqlmock.NewResult(0, 1))

	got, err := repo.Create(context.Background(), u)
	require.NoError(t, err)
	assert.Equal(t, u, got)
}

func TestPostgresCreate_DuplicateEmail(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := sampleUser()

	mock.ExpectExec(insertQ).
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})

	_, err := repo.Create(context.Background(), u)
	require.ErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestPostgresCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	u := sampleUser()

	mock.ExpectExec(insertQ).
		WithArgs(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt).
		WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), u)
	require.Error(t, err)
	assert.Regexp(t, regexp.MustCompile(`db error: .*db down`), err.Error())
	assert.NotErrorIs(t, err, common.ErrorAlreadyExists)
}

func TestPostgresGetUserByEmail(t *testing.T) {
	u := sampleUser()

	tests := []struct {
		name    string
		setup   func(mock sqlmock.Sqlmock)
		want    *models.User
		wantErr error
	}{
		{
			name: "found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByEmail).WithArgs(u.Email).
					WillReturnRows(sqlmock.NewRows(userColumns).
						AddRow(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt))
			},
			want: u,
		},
		{
			name: "not found",
			setup: func(mock sqlmock.Sqlmock) {
				mock.ExpectQuery(selectByEmail).WithArgs(u.Email).WillReturnError(sql.ErrNoRows)
			},
			wantErr: common.ErrorNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo, mock := newRepoWithMock(t)
			tt.setup(mock)

			got, err := repo.GetUserByEmail(context.Background(), u.Email)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPostgresGetUserByID(t *testing.T) {
	u := sampleUser()

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(selectByID).WithArgs(u.ID).
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(u.ID, u.Name, u.Email, u.PasswordHash, u.CreatedAt, u.UpdatedAt))

		got, err := repo.GetUserByID(context.Background(), u.ID)
		require.NoError(t, err)
		assert.Equal(t, u, got)
	})

	t.Run("not a uuid", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(selectByID).WithArgs("garbage").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

		_, err := repo.GetUserByID(context.Background(), "garbage")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(selectByID).WithArgs(u.ID).WillReturnError(errors.New("db err"))

		_, err := repo.GetUserByID(context.Background(), u.ID)
		require.Error(t, err)
		assert.Regexp(t, `db error: .*db err`, err.Error())
	})
}

func TestPostgresUpdatePassword(t *testing.T) {
	t.Run("updated", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(updateQ).WithArgs("u-1", "new-hash", sqlmock.AnyArg(), "old-hash").
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, repo.UpdatePassword(context.Background(), "u-1", "old-hash", "new-hash"))
	})

	t.Run("hash changed meanwhile", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(updateQ).WithArgs("u-1", "new-hash", sqlmock.AnyArg(), "old-hash").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(existsQ).WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := repo.UpdatePassword(context.Background(), "u-1", "old-hash", "new-hash")
		require.ErrorIs(t, err, common.ErrVersionConflict)
	})

	t.Run("no such user", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(updateQ).WithArgs("u-1", "new-hash", sqlmock.AnyArg(), "old-hash").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(existsQ).WithArgs("u-1").
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := repo.UpdatePassword(context.Background(), "u-1", "old-hash", "new-hash")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("invalid uuid", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(updateQ).WithArgs("nope", "new-hash", sqlmock.AnyArg(), "old-hash").
			WillReturnError(&pgconn.PgError{Code: pgerrcode.InvalidTextRepresentation})

		err := repo.UpdatePassword(context.Background(), "nope", "old-hash", "new-hash")
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(updateQ).WithArgs("u-1", "new-hash", sqlmock.AnyArg(), "old-hash").
			WillReturnError(errors.New("db err"))

		err := repo.UpdatePassword(context.Background(), "u-1", "old-hash", "new-hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrorNotFound)
		assert.NotErrorIs(t, err, common.ErrVersionConflict)
	})

	t.Run("existence check fails", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(updateQ).WithArgs("u-1", "new-hash", sqlmock.AnyArg(), "old-hash").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery(existsQ).WithArgs("u-1").WillReturnError(errors.New("db err"))

		err := repo.UpdatePassword(context.Background(), "u-1", "old-hash", "new-hash")
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrVersionConflict)
	})
}
