package migration

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"add otp table", "add_otp_table"},
		{"Add-OTP-Table", "add_otp_table"},
		{"ADD__OTP__TABLE", "add_otp_table"},
		{"   spaced   out ", "spaced_out"},
		{"gst%rates!", "gstrates"},
		{"_leading and trailing_", "leading_and_trailing"},
		{"", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.expected, slugify(tt.input))
		})
	}
}

func TestCreate(t *testing.T) {
	dir := t.TempDir()

	first, err := Create(dir, "init storefront", "Base schema")
	require.NoError(t, err)
	assert.Equal(t, uint(1), first.Version)
	assert.Equal(t, filepath.Join(dir, "000001_init_storefront.up.sql"), first.UpPath)

	up, err := os.ReadFile(first.UpPath)
	require.NoError(t, err)
	assert.Contains(t, string(up), "-- Up: init_storefront")
	assert.Contains(t, string(up), "-- Base schema")
	down, err := os.ReadFile(first.DownPath)
	require.NoError(t, err)
	assert.Contains(t, string(down), "-- Down: init_storefront")

	second, err := Create(dir, "add otps", "")
	require.NoError(t, err)
	assert.Equal(t, uint(2), second.Version)

	_, err = Create(dir, "!!!", "")
	assert.Error(t, err)
}

func TestListMigrations(t *testing.T) {
	t.Run("missing directory is empty", func(t *testing.T) {
		files, err := ListMigrations(filepath.Join(t.TempDir(), "absent"))
		require.NoError(t, err)
		assert.Empty(t, files)
	})

	t.Run("orders by numeric version and skips strays", func(t *testing.T) {
		dir := t.TempDir()
		for _, name := range []string{
			"000010_later.up.sql", "000010_later.down.sql",
			"000002_seed.up.sql", "000002_seed.down.sql",
			"README.md", "notes.up.sql",
		} {
			require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
		}
		require.NoError(t, os.Mkdir(filepath.Join(dir, "000003_dir.up.sql"), 0o755))

		files, err := ListMigrations(dir)
		require.NoError(t, err)
		require.Len(t, files, 2)
		assert.Equal(t, uint(2), files[0].Version)
		assert.Equal(t, "seed", files[0].Name)
		assert.Equal(t, uint(10), files[1].Version)
	})
}

func TestListMigrations_Repository(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	dir, err := FindDir("", wd)
	require.NoError(t, err)

	files, err := ListMigrations(dir)
	require.NoError(t, err)
	require.NotEmpty(t, files)
	assert.Equal(t, uint(1), files[0].Version)
	for _, f := range files {
		_, err := os.Stat(f.DownPath)
		assert.NoError(t, err, "every up migration has a down migration: %s", f.UpPath)
	}
}

func TestFindDir(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(root, DefaultDir), 0o755))
	nested := filepath.Join(root, "a", "b")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	dir, err := FindDir("", nested)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, DefaultDir), dir)

	dir, err = FindDir("/explicit", nested)
	require.NoError(t, err)
	assert.Equal(t, "/explicit", dir)
}
