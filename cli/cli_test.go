package cli

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/krishkalaria12/snap-thumbs/auth"
	"github.com/krishkalaria12/snap-thumbs/config"
	"github.com/krishkalaria12/snap-thumbs/database"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testEnv(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("DATABASE_DRIVER", "sqlite")
	t.Setenv("DATABASE_URL", dbPath)
	t.Setenv("DATABASE_LOG_LEVEL", "silent")
	t.Setenv("STORAGE_DRIVER", "local")
	t.Setenv("LOG_PRETTY", "false")
	t.Setenv("LOG_LEVEL", "error")
	return dbPath
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestTierCommands(t *testing.T) {
	testEnv(t)

	_, err := run(t, "migrate")
	require.NoError(t, err)

	out, err := run(t, "tiers", "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 3 tiers")

	// seeding twice updates in place
	_, err = run(t, "tiers", "seed")
	require.NoError(t, err)

	_, err = run(t, "tiers", "create", "--name", "Thumbnail only", "--sizes", "[64, 128]")
	require.NoError(t, err)

	out, err = run(t, "tiers", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Basic")
	assert.Contains(t, out, "[200,400]")
	assert.Contains(t, out, "Thumbnail only")
	assert.Contains(t, out, "[64,128]")
}

func TestTierCreateRejectsBadSizes(t *testing.T) {
	testEnv(t)
	_, err := run(t, "migrate")
	require.NoError(t, err)

	for _, sizes := range []string{`["a"]`, `200`, `[1.5]`, `[0]`, `not json`} {
		_, err := run(t, "tiers", "create", "--name", "Broken", "--sizes", sizes)
		assert.Error(t, err, sizes)
	}

	out, err := run(t, "tiers", "list")
	require.NoError(t, err)
	assert.NotContains(t, out, "Broken")
}

func TestTierSeedFromFile(t *testing.T) {
	testEnv(t)
	_, err := run(t, "migrate")
	require.NoError(t, err)

	file := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(file, []byte("- name: Gold\n  sizes: [100]\n  store_original: true\n"), 0o644))

	out, err := run(t, "tiers", "seed", "--file", file)
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 1 tiers")

	require.NoError(t, os.WriteFile(file, []byte("- name: Bad\n  sizes: [\"x\"]\n"), 0o644))
	_, err = run(t, "tiers", "seed", "--file", file)
	assert.Error(t, err)
}

func TestUsersCreate(t *testing.T) {
	dbPath := testEnv(t)
	_, err := run(t, "migrate")
	require.NoError(t, err)
	_, err = run(t, "tiers", "seed")
	require.NoError(t, err)

	out, err := run(t, "users", "create", "--username", "ada", "--email", "ada@example.com", "--password", "pw", "--tier", "Premium")
	require.NoError(t, err)
	assert.Contains(t, out, `Created user "ada"`)

	_, err = run(t, "users", "create", "--username", "bob", "--email", "bob@example.com", "--password", "pw", "--tier", "Gold")
	assert.Error(t, err)

	db, err := database.Connect(config.DatabaseConfig{Driver: "sqlite", URL: dbPath, LogLevel: "silent"})
	require.NoError(t, err)
	defer database.Close(db)

	user, err := database.NewUserRepository(db).FindByUsername(context.Background(), "ada")
	require.NoError(t, err)
	assert.Equal(t, "Premium", user.Tier.Name)
	assert.True(t, auth.CheckPasswordHash("pw", user.Password))
}
