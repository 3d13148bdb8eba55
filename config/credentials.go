package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
)

var ErrMissingCredentials = errors.New("nlu credentials missing")

// Credentials for the enrichment service, read once at startup.
type Credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
	APIKey   string `json:"apikey"`
}

func LoadCredentials(path string) (Credentials, error) {
	if path == "" {
		return Credentials{}, fmt.Errorf("no credentials path: %w", ErrMissingCredentials)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Credentials{}, fmt.Errorf("credentials %s: %w", path, ErrMissingCredentials)
		}
		return Credentials{}, fmt.Errorf("read credentials: %w", err)
	}
	var c Credentials
	if err := json.Unmarshal(b, &c); err != nil {
		return Credentials{}, fmt.Errorf("decode credentials %s: %w", path, err)
	}
	if c.APIKey == "" && (c.Username == "" || c.Password == "") {
		return Credentials{}, fmt.Errorf("credentials %s: need apikey or username and password: %w", path, ErrMissingCredentials)
	}
	return c, nil
}
