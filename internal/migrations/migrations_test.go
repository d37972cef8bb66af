package migrations

import (
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestDriverURL tests the scheme rewrite for the pgx driver
func TestDriverURL(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"postgres scheme", "postgres://u:p@host:5432/db", "pgx5://u:p@host:5432/db"},
		{"postgresql scheme", "postgresql://u:p@host/db?sslmode=disable", "pgx5://u:p@host/db?sslmode=disable"},
		{"already pgx5", "pgx5://u:p@host/db", "pgx5://u:p@host/db"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, driverURL(tt.in))
		})
	}
}

// TestEmbeddedFiles tests that every up migration has a down pair
func TestEmbeddedFiles(t *testing.T) {
	entries, err := fs.Glob(files, "sql/*.up.sql")
	require.NoError(t, err)
	require.NotEmpty(t, entries)

	for _, up := range entries {
		down := up[:len(up)-len(".up.sql")] + ".down.sql"
		_, err := fs.Stat(files, down)
		assert.NoError(t, err, "missing %s", down)
	}
}
