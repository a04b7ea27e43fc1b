package db

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMigrationVersions(t *testing.T) {
	versions, err := migrationVersions()
	require.NoError(t, err)
	require.NotEmpty(t, versions)

	assert.IsIncreasing(t, versions)
	for _, version := range versions {
		assert.True(t, strings.HasSuffix(version, ".sql"), version)
	}
}

func TestInitialMigrationDeclaresNamedUniqueConstraints(t *testing.T) {
	script, err := migrationFiles.ReadFile("migrations/001_users_posts.sql")
	require.NoError(t, err)

	// The credential store maps these constraint names to duplicate errors.
	assert.Contains(t, string(script), "users_username_key")
	assert.Contains(t, string(script), "users_email_key")
}
