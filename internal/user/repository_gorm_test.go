package user

import (
	"context"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newSQLiteRepository(t *testing.T) *GormRepository {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&User{}))
	return NewGormRepository(db)
}

func newMockRepository(t *testing.T) (*GormRepository, sqlmock.Sqlmock) {
	t.Helper()

	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	db, err := gorm.Open(postgres.New(postgres.Config{Conn: sqlDB}), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Discard,
	})
	require.NoError(t, err)
	return NewGormRepository(db), mock
}

func TestGormRepository_CRUDRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	users, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, users)
	assert.NotNil(t, users)

	gh := "https://github.com/ada"
	created, err := repo.Create(ctx, User{
		Email:     "ada@example.com",
		FirstName: "Ada",
		LastName:  "Lovelace",
		Social:    &Social{Github: &gh},
	})
	require.NoError(t, err)
	require.NotZero(t, created.ID)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created, fetched)

	updated, err := repo.Update(ctx, created.ID, Payload{FirstName: strPtr("Augusta")})
	require.NoError(t, err)
	assert.Equal(t, "Augusta", updated.FirstName)
	assert.Equal(t, "Lovelace", updated.LastName)
	assert.Equal(t, "ada@example.com", updated.Email)
	require.NotNil(t, updated.Social)
	assert.Equal(t, gh, *updated.Social.Github)

	fetched, err = repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, updated, fetched)

	require.NoError(t, repo.Delete(ctx, created.ID))
	_, err = repo.GetByID(ctx, created.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_NilSocialStaysNil(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	created, err := repo.Create(ctx, User{Email: "a@b.com", FirstName: "A", LastName: "B"})
	require.NoError(t, err)

	fetched, err := repo.GetByID(ctx, created.ID)
	require.NoError(t, err)
	assert.Nil(t, fetched.Social)
}

func TestGormRepository_ListOrdersByID(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	for _, email := range []string{"a@b.com", "c@d.com", "e@f.com"} {
		_, err := repo.Create(ctx, User{Email: email, FirstName: "F", LastName: "L"})
		require.NoError(t, err)
	}

	users, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, users, 3)
	for i := 1; i < len(users); i++ {
		assert.Less(t, users[i-1].ID, users[i].ID)
	}
}

func TestGormRepository_CreateIgnoresCallerID(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	first, err := repo.Create(ctx, User{ID: 42, Email: "a@b.com", FirstName: "A", LastName: "B"})
	require.NoError(t, err)
	assert.NotEqual(t, 42, first.ID)
}

func TestGormRepository_MissingRowsAreNotFound(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepository(t)

	_, err := repo.GetByID(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = repo.Update(ctx, 999999, Payload{FirstName: strPtr("x")})
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Delete(ctx, 999999)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGormRepository_ListWrapsDriverErrors(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).WillReturnError(errors.New("connection refused"))

	_, err := repo.List(context.Background())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "connection refused")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_GetScansJSONSocial(t *testing.T) {
	repo, mock := newMockRepository(t)

	rows := sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "social"}).
		AddRow(4, "a@b.com", "A", "B", `{"github":"https://github.com/a"}`)
	mock.ExpectQuery(`SELECT \* FROM "users" WHERE "users"."id" = \$1`).WillReturnRows(rows)

	user, err := repo.GetByID(context.Background(), 4)
	require.NoError(t, err)
	assert.Equal(t, 4, user.ID)
	require.NotNil(t, user.Social)
	require.NotNil(t, user.Social.Github)
	assert.Equal(t, "https://github.com/a", *user.Social.Github)
	assert.Nil(t, user.Social.Website)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_GetNoRowsIsNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`SELECT \* FROM "users"`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "email", "first_name", "last_name", "social"}))

	_, err := repo.GetByID(context.Background(), 999999)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_DeleteZeroRowsIsNotFound(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectExec(`DELETE FROM "users" WHERE "users"."id" = \$1`).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), 12)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGormRepository_CreateWrapsDriverErrors(t *testing.T) {
	repo, mock := newMockRepository(t)

	mock.ExpectQuery(`INSERT INTO "users"`).WillReturnError(errors.New("duplicate key value violates unique constraint"))

	_, err := repo.Create(context.Background(), User{Email: "a@b.com", FirstName: "A", LastName: "B"})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "create user")
	assert.NoError(t, mock.ExpectationsWereMet())
}
