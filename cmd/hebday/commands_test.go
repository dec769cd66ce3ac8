package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

// run executes the command line in an isolated home directory.
func run(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	c := &cli{}
	defer c.close()

	root := c.rootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)

	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func isolate(t *testing.T) string {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CACHE_HOME", filepath.Join(home, ".cache"))
	t.Setenv("HEBDAY_TIMEZONE", "UTC")
	return home
}

func TestConvertCommand(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "convert", "1990-03-15")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "1990-03-15 -> "))
	assert.Contains(t, out, "(Adar)")

	_, err = run(t, "", "convert", "15/03/1990")
	assert.Error(t, err)

	_, err = run(t, "", "convert")
	assert.Error(t, err)
}

func TestNextCommand(t *testing.T) {
	isolate(t)

	out, err := run(t, "", "next", "1990-03-15", "--now", "2024-01-01", "--count", "2")
	require.NoError(t, err)
	assert.Contains(t, out, "1. 2025-03-18 (5785)\n")
	assert.Contains(t, out, "2. 2026-03-07 (5786)\n")

	out, err = run(t, "", "next", "1990-03-15", "--now", "2024-01-01", "--count", "1", "--after-sunset")
	require.NoError(t, err)
	assert.Contains(t, out, "1. 2025-03-19 (5785)\n")

	_, err = run(t, "", "next", "1990-03-15", "--count", "0")
	assert.Error(t, err)
	_, err = run(t, "", "next", "1990-03-15", "--now", "tomorrow")
	assert.Error(t, err)
}

func TestUserImportExport(t *testing.T) {
	home := isolate(t)
	keyring.MockInit()

	out, err := run(t, "password1\n", "user", "add", "admin@example.com", "--first-name", "Ada")
	require.NoError(t, err)
	assert.Equal(t, "created admin user admin@example.com\n", out)

	out, err = run(t, "", "user", "add", "user@example.com", "--password", "password2")
	require.NoError(t, err)
	assert.Equal(t, "created user user user@example.com\n", out)

	_, err = run(t, "", "user", "add", "admin@example.com", "--password", "password3")
	assert.Error(t, err)

	csvPath := filepath.Join(home, "in.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("First Name,Last Name,Birthday\nDavid,Levi,15/03/1990\n"), 0o600))

	out, err = run(t, "", "import", csvPath)
	require.NoError(t, err)
	assert.Equal(t, "imported 1 records, skipped 0\n", out)

	_, err = run(t, "", "import", filepath.Join(home, "in.txt"))
	assert.Error(t, err)

	out, err = run(t, "", "export")
	require.NoError(t, err)
	assert.Contains(t, out, "David")

	exportPath := filepath.Join(home, "out.csv")
	_, err = run(t, "", "export", exportPath)
	require.NoError(t, err)
	data, err := os.ReadFile(exportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "Levi")
}
