package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/wichananm65/users-api/internal/config"
	"github.com/wichananm65/users-api/internal/user"
)

func strPtr(s string) *string { return &s }

func TestOpenRepository(t *testing.T) {
	cases := []struct {
		name     string
		database config.DatabaseConfig
		want     any
	}{
		{"memory", config.DatabaseConfig{Driver: config.DriverMemory}, &user.InMemoryRepository{}},
		{"sqlite migrates on start", config.DatabaseConfig{Driver: config.DriverSQLite, URL: ":memory:"}, &user.GormRepository{}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			repo, closeRepo, err := openRepository(config.Config{Database: tc.database}, zap.NewNop())
			require.NoError(t, err)
			t.Cleanup(closeRepo)
			assert.IsType(t, tc.want, repo)

			// the users table must exist without a separate migrate run
			created, err := repo.Create(context.Background(), user.Payload{
				Email:     strPtr("a@b.com"),
				FirstName: strPtr("A"),
				LastName:  strPtr("B"),
			}.User())
			require.NoError(t, err)
			assert.Equal(t, 1, created.ID)

			users, err := repo.List(context.Background())
			require.NoError(t, err)
			assert.Len(t, users, 1)
		})
	}
}

func TestOpenRepository_UnknownDriver(t *testing.T) {
	_, _, err := openRepository(config.Config{Database: config.DatabaseConfig{Driver: "mongo"}}, zap.NewNop())
	assert.Error(t, err)
}
