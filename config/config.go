package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

type NLU struct {
	Backend         string        `yaml:"backend"` // watson | openai
	URL             string        `yaml:"url"`
	Version         string        `yaml:"version"`
	Language        string        `yaml:"language"`
	Model           string        `yaml:"model"`
	KeywordLimit    int           `yaml:"keyword_limit"`
	Timeout         time.Duration `yaml:"timeout"`
	Retries         int           `yaml:"retries"`
	RetryBackoff    time.Duration `yaml:"retry_backoff"`
	CredentialsPath string        `yaml:"credentials"`
}

type Clumping struct {
	Window      time.Duration `yaml:"window"`
	Terminators string        `yaml:"terminators"`
}

type Input struct {
	Path       string `yaml:"path"`
	Format     string `yaml:"format"` // json | sqlite; empty guesses from extension
	TargetUser string `yaml:"target_user"`
}

type Root struct {
	Pipeline struct {
		Name      string `yaml:"name"`
		LogLvl    string `yaml:"log_level"`
		LogFormat string `yaml:"log_format"`
	} `yaml:"pipeline"`
	Input         Input             `yaml:"input"`
	Clumping      Clumping          `yaml:"clumping"`
	NLU           NLU               `yaml:"nlu"`
	Abbreviations map[string]string `yaml:"abbreviations"`
	Paths         struct {
		StopWords string `yaml:"stop_words"`
		Output    string `yaml:"output"`
	} `yaml:"paths"`
}

func Default() *Root {
	var c Root
	c.Pipeline.Name = "chatrisk"
	c.Pipeline.LogLvl = "info"
	c.Pipeline.LogFormat = "text"
	c.Clumping.Window = 20 * time.Minute
	c.Clumping.Terminators = "!,.;?"
	c.NLU.Backend = "watson"
	c.NLU.Version = "2017-02-27"
	c.NLU.Language = "en"
	c.NLU.KeywordLimit = 10
	c.NLU.Timeout = 60 * time.Second
	c.NLU.RetryBackoff = 500 * time.Millisecond
	c.NLU.CredentialsPath = "nlu-credentials.json"
	c.Paths.StopWords = "stopwords.txt"
	c.Paths.Output = "risk.csv"
	return &c
}

// Load reads the YAML config at path over the defaults. With an empty path it
// tries config/<CONFIG_ENV>/config.yaml and then config.yaml; when neither
// exists the defaults are returned unchanged.
func Load(path string) (*Root, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	guess := []string{
		filepath.Join("config", env, "config.yaml"),
		"config.yaml",
	}
	for _, p := range guess {
		err := decodeFile(p, cfg)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
	}
	return cfg, nil
}

func decodeFile(path string, cfg *Root) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	// an empty file carries no overrides
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode config %s: %w", path, err)
	}
	return nil
}

// Validate checks everything a full run needs.
func (c *Root) Validate() error {
	if err := c.ValidateInput(); err != nil {
		return err
	}
	switch c.NLU.Backend {
	case "watson":
		if c.NLU.URL == "" {
			return errors.New("config: nlu url is empty")
		}
	case "openai":
	default:
		return fmt.Errorf("config: unknown nlu backend %q", c.NLU.Backend)
	}
	if c.NLU.Retries < 0 {
		return fmt.Errorf("config: retries must be >= 0, got %d", c.NLU.Retries)
	}
	return nil
}

// ValidateInput checks only what clumping needs.
func (c *Root) ValidateInput() error {
	if c.Input.Path == "" {
		return errors.New("config: input path is empty")
	}
	if c.Input.TargetUser == "" && c.Input.Format == "sqlite" {
		return errors.New("config: target user is required for sqlite input")
	}
	if c.Clumping.Window <= 0 {
		return fmt.Errorf("config: window must be positive, got %s", c.Clumping.Window)
	}
	return nil
}
