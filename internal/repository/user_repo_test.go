package repository

import (
	"context"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	mysqldriver "github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shopease/internal/model"
	"shopease/pkg/utils"
)

func TestUserRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	user := &model.User{
		Username:     "asha",
		Email:        "asha@example.com",
		PasswordHash: "hash",
		Salt:         "salt",
		IsActive:     true,
	}

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), user))
	assert.Equal(t, uint64(1), user.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUserRepository_CreateDuplicate(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectBegin()
	mock.ExpectExec("INSERT INTO `users`").
		WillReturnError(&mysqldriver.MySQLError{Number: 1062, Message: "Duplicate entry 'asha' for key 'idx_users_username'"})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &model.User{Username: "asha", Email: "asha@example.com"})
	require.Error(t, err)
	assert.Equal(t, utils.KindConflict, utils.KindOf(err))
}

func TestUserRepository_GetByIDNotFound(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT \\* FROM `users` WHERE id = \\?").
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err := repo.GetByID(context.Background(), 3)
	assert.ErrorIs(t, err, utils.ErrUserNotFound)
}

func TestUserRepository_ExistsByEmail(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT count\\(\\*\\) FROM `users` WHERE email = \\?").
		WithArgs("asha@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	exists, err := repo.ExistsByEmail(context.Background(), "asha@example.com")
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestUserRepository_Identities(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)

	mock.ExpectQuery("SELECT `username`,`email` FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"username", "email"}).
			AddRow("asha", "asha@example.com").
			AddRow("ravi", "ravi@example.com"))

	var seen []string
	err := repo.Identities(context.Background(), func(username, email string) {
		seen = append(seen, username, email)
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"asha", "asha@example.com", "ravi", "ravi@example.com"}, seen)
}
