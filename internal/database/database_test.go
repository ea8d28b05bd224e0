package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sakif/base-backend/internal/apperror"
	"github.com/sakif/base-backend/internal/model"
	"github.com/sakif/base-backend/internal/repository/postgres"
)

func TestParse(t *testing.T) {
	tests := []struct {
		url  string
		want Target
	}{
		{"postgres://u:p@db:5432/app", Target{Postgres, "postgres://u:p@db:5432/app"}},
		{"postgresql://u:p@db/app?sslmode=disable", Target{Postgres, "postgresql://u:p@db/app?sslmode=disable"}},
		{"sqlite://:memory:", Target{SQLite, ":memory:"}},
		{"sqlite:///var/lib/app/db.sqlite3", Target{SQLite, "/var/lib/app/db.sqlite3"}},
		{"sqlite://data/db.sqlite3", Target{SQLite, "data/db.sqlite3"}},
		{"  sqlite://:memory:  ", Target{SQLite, ":memory:"}},
	}
	for _, tt := range tests {
		t.Run(tt.url, func(t *testing.T) {
			got, err := Parse(tt.url)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Invalid(t *testing.T) {
	for _, url := range []string{"", "db.sqlite3", "mysql://u@h/db", "sqlite://"} {
		t.Run(url, func(t *testing.T) {
			_, err := Parse(url)
			require.Error(t, err)
			assert.ErrorIs(t, err, apperror.ErrConfiguration)
			assert.Equal(t, "DATABASE_URL", apperror.FieldOf(err))
		})
	}
}

func TestRedact(t *testing.T) {
	assert.Equal(t, "postgres://app:xxxxx@db:5432/app", Redact("postgres://app:hunter2@db:5432/app"))
	assert.Equal(t, "postgres://db/app", Redact("postgres://db/app"))
	assert.Equal(t, "sqlite://:memory:", Redact("sqlite://:memory:"))
	assert.Equal(t, "<invalid DATABASE_URL>", Redact("hunter2"))
}

func TestOpen_SQLiteMemory(t *testing.T) {
	store, err := Open(context.Background(), "sqlite://:memory:", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	require.NoError(t, store.Ping(context.Background()))

	u := &model.User{Email: "a@example.com", Username: "a", PasswordHash: "!x", IsActive: true}
	require.NoError(t, store.CreateUser(context.Background(), u))
	assert.NotEmpty(t, u.ID)
}

func TestOpen_SQLiteFileCreatesDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "app.sqlite3")

	store, err := Open(context.Background(), "sqlite://"+path, Options{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	assert.FileExists(t, path)
}

func TestOpen_PostgresWithoutMigrationDoesNotConnect(t *testing.T) {
	store, err := Open(context.Background(), "postgres://u:p@127.0.0.1:1/app?sslmode=disable", Options{})
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	_, ok := store.(*postgres.DB)
	assert.True(t, ok, "postgres URL should select the postgres store, got %T", store)
	_, ok = store.(Migrator)
	assert.True(t, ok, "postgres store should expose Migrate")
}
