package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/frudas24/displayctl/internal/store"
)

// execute runs the root command against a temporary configuration directory.
func execute(t *testing.T, dir string, args ...string) (string, error) {
	t.Helper()
	t.Setenv("NO_COLOR", "1")
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(append([]string{"--config-dir", dir}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

// TestRoot_Subcommands verifies the command surface.
func TestRoot_Subcommands(t *testing.T) {
	root := newRootCmd()
	var names []string
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"save", "load", "list", "current", "delete"} {
		assert.Contains(t, names, want)
	}
	load, _, err := root.Find([]string{"load"})
	require.NoError(t, err)
	assert.NotNil(t, load.Flags().Lookup("dry-run"))
}

// TestRoot_NoCommand verifies running without a subcommand fails.
func TestRoot_NoCommand(t *testing.T) {
	_, err := execute(t, t.TempDir())
	assert.ErrorIs(t, err, errNoCommand)
}

// TestArgs_Validation verifies positional argument counts are enforced.
func TestArgs_Validation(t *testing.T) {
	dir := t.TempDir()
	for _, args := range [][]string{{"save"}, {"load"}, {"delete"}, {"delete", "a", "b"}, {"list", "extra"}} {
		_, err := execute(t, dir, args...)
		assert.Error(t, err, "args %v", args)
	}
}

// TestList_EmptyDir verifies list works without the display service.
func TestList_EmptyDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "layouts")
	out, err := execute(t, dir, "list")
	require.NoError(t, err)
	assert.Contains(t, out, "No configurations found in "+dir)
}

// TestDelete_Missing verifies deleting an unknown name fails with ErrNotFound.
func TestDelete_Missing(t *testing.T) {
	_, err := execute(t, t.TempDir(), "delete", "work")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// TestLoad_Missing verifies loading an unknown name fails before touching the bus.
func TestLoad_Missing(t *testing.T) {
	_, err := execute(t, t.TempDir(), "load", "work", "--dry-run")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

// TestDelete_StoredFile verifies delete removes a stored layout file.
func TestDelete_StoredFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "work.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"serial":1,"monitors":[],"logical_monitors":[],"properties":{}}`), 0o600))

	out, err := execute(t, dir, "delete", "work")
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration 'work' deleted")
	_, err = os.Stat(path)
	assert.True(t, os.IsNotExist(err))
}
