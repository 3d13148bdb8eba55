package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestLoad_OverridesDefaults(t *testing.T) {
	p := writeFile(t, t.TempDir(), "c.yaml", `
pipeline:
  log_level: debug
input:
  path: export.json
  target_user: Alice
clumping:
  window: 30m
nlu:
  url: https://nlu.example
  retries: 2
abbreviations:
  fr: for real
`)
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.Pipeline.LogLvl)
	assert.Equal(t, "Alice", cfg.Input.TargetUser)
	assert.Equal(t, 30*time.Minute, cfg.Clumping.Window)
	assert.Equal(t, "!,.;?", cfg.Clumping.Terminators)
	assert.Equal(t, "2017-02-27", cfg.NLU.Version)
	assert.Equal(t, 2, cfg.NLU.Retries)
	assert.Equal(t, "for real", cfg.Abbreviations["fr"])
	assert.NoError(t, cfg.Validate())
}

func TestLoad_MissingExplicitPath(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_EmptyFileKeepsDefaults(t *testing.T) {
	p := writeFile(t, t.TempDir(), "c.yaml", "")
	cfg, err := Load(p)
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
}

func TestLoad_BadYAML(t *testing.T) {
	p := writeFile(t, t.TempDir(), "c.yaml", "clumping: [oops")
	_, err := Load(p)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	cfg := Default()
	assert.Error(t, cfg.Validate(), "input path required")

	cfg.Input.Path = "in.json"
	assert.Error(t, cfg.Validate(), "watson needs url")
	assert.NoError(t, cfg.ValidateInput())

	cfg.NLU.URL = "https://nlu.example"
	assert.NoError(t, cfg.Validate())

	cfg.NLU.Backend = "openai"
	cfg.NLU.URL = ""
	assert.NoError(t, cfg.Validate())

	cfg.NLU.Backend = "other"
	assert.Error(t, cfg.Validate())

	cfg = Default()
	cfg.Input.Path = "in.db"
	cfg.Input.Format = "sqlite"
	cfg.NLU.URL = "x"
	assert.Error(t, cfg.Validate(), "sqlite needs target user")
}

func TestLoadCredentials(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadCredentials(filepath.Join(dir, "missing.json"))
	assert.ErrorIs(t, err, ErrMissingCredentials)

	_, err = LoadCredentials("")
	assert.ErrorIs(t, err, ErrMissingCredentials)

	p := writeFile(t, dir, "userpass.json", `{"username":"u","password":"p"}`)
	c, err := LoadCredentials(p)
	require.NoError(t, err)
	assert.Equal(t, Credentials{Username: "u", Password: "p"}, c)

	p = writeFile(t, dir, "key.json", `{"apikey":"k"}`)
	c, err = LoadCredentials(p)
	require.NoError(t, err)
	assert.Equal(t, "k", c.APIKey)

	p = writeFile(t, dir, "half.json", `{"username":"u"}`)
	_, err = LoadCredentials(p)
	assert.ErrorIs(t, err, ErrMissingCredentials)

	p = writeFile(t, dir, "bad.json", `{`)
	_, err = LoadCredentials(p)
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrMissingCredentials)
}
