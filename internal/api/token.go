package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// EnvAuthToken names the environment variable holding a bearer token.
const EnvAuthToken = "CIVIC_AUTH_TOKEN"

// ErrNoToken is returned by GetToken when no source has a token.
var ErrNoToken = errors.New("no auth token found: run 'civicbridge otp verify --save' or set " + EnvAuthToken)

// TokenSource names where a token came from.
type TokenSource string

const (
	SourceFlag TokenSource = "flag"
	SourceEnv  TokenSource = "env"
	SourceFile TokenSource = "file"
)

// authFile is the layout of ~/.config/civicbridge/auth.yml.
type authFile struct {
	Token        string `yaml:"token"`
	MobileNumber string `yaml:"mobile_number,omitempty"`
}

// GetToken resolves the bearer token. An explicit value wins, then
// CIVIC_AUTH_TOKEN, then the saved auth file.
func GetToken(explicit string) (string, TokenSource, error) {
	if token := strings.TrimSpace(explicit); token != "" {
		return token, SourceFlag, nil
	}

	if token := strings.TrimSpace(os.Getenv(EnvAuthToken)); token != "" {
		return token, SourceEnv, nil
	}

	if token, err := getTokenFromFile(); err == nil && token != "" {
		return token, SourceFile, nil
	}

	return "", "", ErrNoToken
}

// TokenFilePath returns the path of the saved auth file.
func TokenFilePath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".config", "civicbridge", "auth.yml"), nil
}

// getTokenFromFile reads the token from ~/.config/civicbridge/auth.yml.
func getTokenFromFile() (string, error) {
	path, err := TokenFilePath()
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read auth file: %w", err)
	}

	var auth authFile
	if err := yaml.Unmarshal(data, &auth); err != nil {
		return "", fmt.Errorf("failed to parse auth file: %w", err)
	}
	return strings.TrimSpace(auth.Token), nil
}

// SaveToken writes the token to the auth file, readable only by the owner.
func SaveToken(token, mobileNumber string) (string, error) {
	path, err := TokenFilePath()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(authFile{Token: token, MobileNumber: mobileNumber})
	if err != nil {
		return "", fmt.Errorf("failed to encode auth file: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return "", fmt.Errorf("failed to write auth file: %w", err)
	}
	return path, nil
}

// TokenFromVerifyResponse extracts the bearer token from a VerifyOTP body.
func TokenFromVerifyResponse(body []byte) (string, bool) {
	var payload struct {
		Token string `json:"token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || payload.Token == "" {
		return "", false
	}
	return payload.Token, true
}
