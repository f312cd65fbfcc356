package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")

	cmd := "echo"
	icon := "aGVsbG8="
	cfg := &Config{
		Buttons: map[string]ButtonConfig{
			"/p/0": {Command: &cmd, Args: []string{"hi"}, Icon: &icon},
			"/p/1": {Icon: &icon},
		},
		Status: &ButtonConfig{Command: &cmd},
	}

	require.NoError(t, Save(path, cfg))

	got, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg.Buttons["/p/0"].Args, got.Buttons["/p/0"].Args)
	assert.Equal(t, *cfg.Buttons["/p/1"].Icon, *got.Buttons["/p/1"].Icon)
	assert.Equal(t, *cfg.Status.Command, *got.Status.Command)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.json")
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoadMalformedJSON(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestLoadRejectsNonIntegerLeaf(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"buttons":{"/p/foo":{}}}`), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, ErrConfig)
}

func TestValidatePath(t *testing.T) {
	assert.NoError(t, ValidatePath("/a/b/3"))
	assert.Error(t, ValidatePath("a/b/3"))
	assert.Error(t, ValidatePath("/a/b/"))
	assert.Error(t, ValidatePath("/a/b/x"))
}

func TestDirAndIndex(t *testing.T) {
	assert.Equal(t, "/a/b", Dir("/a/b/3"))
	assert.Equal(t, "/", Dir("/3"))

	idx, err := Index("/a/b/3")
	require.NoError(t, err)
	assert.Equal(t, 3, idx)
}
