package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/maastricht-university/chatrisk/clients"
	"github.com/maastricht-university/chatrisk/config"
	"github.com/maastricht-university/chatrisk/model"
)

const cliExport = `{
  "user": "Alice",
  "conversations": [
    {"participant": "Bob", "messages": [
      {"date": "2017-03-01T18:00:00Z", "body": "the beach?", "user_speaking": false},
      {"date": "2017-03-01T18:05:00Z", "body": "lol sure", "user_speaking": true},
      {"date": "2017-03-01T19:00:00Z", "body": "ok bye", "user_speaking": false}
    ]}
  ]
}`

func writeTemp(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func fakeNLU(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req clients.AnalyzeReq
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if req.Features.Keywords != nil {
			fmt.Fprint(w, `{"keywords":[{"text":"The","relevance":0.8},{"text":"Beach","relevance":0.6}]}`)
			return
		}
		fmt.Fprint(w, `{"sentiment":{"document":{"label":"negative","score":-0.5}},"emotion":{"document":{"emotion":{"sadness":0.2,"anger":0.3}}}}`)
	}))
}

func TestRunCommand(t *testing.T) {
	srv := fakeNLU(t)
	defer srv.Close()

	dir := t.TempDir()
	in := writeTemp(t, dir, "export.json", cliExport)
	stop := writeTemp(t, dir, "stop.txt", "the\n")
	creds := writeTemp(t, dir, "creds.json", `{"username":"u","password":"p"}`)
	out := filepath.Join(dir, "out", "risk.csv")

	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"run",
		"--input", in,
		"--stop-words", stop,
		"--credentials", creds,
		"--nlu-url", srv.URL,
		"--output", out,
		"--log-level", "warn",
	})
	require.NoError(t, cmd.ExecuteContext(context.Background()))
	assert.Contains(t, buf.String(), "records_written=1")

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"0", "2017-03-01T18:00:00Z", "3", "Bob", `[{"term":"beach","relevance":0.6}]`}, rows[0])
}

func TestRunCommand_MissingCredentials(t *testing.T) {
	dir := t.TempDir()
	in := writeTemp(t, dir, "export.json", cliExport)
	stop := writeTemp(t, dir, "stop.txt", "the\n")

	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetArgs([]string{"run",
		"--input", in,
		"--stop-words", stop,
		"--credentials", filepath.Join(dir, "none.json"),
		"--nlu-url", "http://127.0.0.1:1",
		"--log-level", "error",
	})
	err := cmd.ExecuteContext(context.Background())
	assert.ErrorIs(t, err, config.ErrMissingCredentials)
}

func TestClumpsCommand(t *testing.T) {
	dir := t.TempDir()
	in := writeTemp(t, dir, "export.json", cliExport)

	cmd := newRootCmd()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetArgs([]string{"clumps", "--input", in, "--log-level", "error", "--window", "2h"})
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)
	var c model.Clump
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &c))
	assert.Equal(t, "Alice", c.Speaker)
	assert.Equal(t, "haha sure. ", c.Text)
	assert.Equal(t, time.Date(2017, 3, 1, 18, 5, 0, 0, time.UTC), c.Time.UTC())
}

func TestApplyOverrides(t *testing.T) {
	t.Setenv("CHATRISK_TARGET", "Zed")
	t.Setenv("CHATRISK_STOP_WORDS", "/tmp/stop.txt")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	fs.Duration("window", 0, "")
	fs.Int("retries", 0, "")
	fs.String("input", "", "")
	require.NoError(t, fs.Parse([]string{"--window", "5m", "--retries", "3", "--input", "chat.db"}))

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	require.NoError(t, v.BindPFlags(fs))

	cfg := config.Default()
	applyOverrides(v, cfg)
	assert.Equal(t, "Zed", cfg.Input.TargetUser)
	assert.Equal(t, "/tmp/stop.txt", cfg.Paths.StopWords)
	assert.Equal(t, 5*time.Minute, cfg.Clumping.Window)
	assert.Equal(t, 3, cfg.NLU.Retries)
	assert.Equal(t, "chat.db", cfg.Input.Path)
	assert.Equal(t, "sqlite", cfg.Input.Format)
	assert.Equal(t, "info", cfg.Pipeline.LogLvl, "unset keys keep config values")
}

func TestNewAnalyzer(t *testing.T) {
	cfg := config.Default()
	a, err := newAnalyzer(cfg, config.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.IsType(t, &clients.NLU{}, a)

	cfg.NLU.Retries = 2
	a, err = newAnalyzer(cfg, config.Credentials{Username: "u", Password: "p"})
	require.NoError(t, err)
	assert.IsType(t, &clients.Retrying{}, a)

	cfg.NLU.Backend = "openai"
	_, err = newAnalyzer(cfg, config.Credentials{Username: "u", Password: "p"})
	assert.ErrorIs(t, err, config.ErrMissingCredentials)

	cfg.NLU.Retries = 0
	a, err = newAnalyzer(cfg, config.Credentials{APIKey: "sk"})
	require.NoError(t, err)
	assert.IsType(t, &clients.OpenAI{}, a)
}
