package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Quanta-Naut/CivicBridge-App/internal/api"
	"github.com/Quanta-Naut/CivicBridge-App/internal/config"
	"github.com/Quanta-Naut/CivicBridge-App/internal/issue"
	"github.com/Quanta-Naut/CivicBridge-App/internal/logger"
	"github.com/Quanta-Naut/CivicBridge-App/internal/sync"
)

// setupCLI points the CLI at a mock remote through an endpoints file and
// isolates HOME so no real auth file is read.
func setupCLI(t *testing.T) *api.MockServer {
	t.Helper()

	mock := api.NewMockServer()
	t.Cleanup(mock.Close)

	dir := t.TempDir()
	data, err := json.Marshal(mock.Endpoints())
	if err != nil {
		t.Fatalf("failed to encode endpoints: %v", err)
	}
	path := filepath.Join(dir, "endpoints.json")
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("failed to write endpoints: %v", err)
	}

	t.Setenv(config.EnvEndpointsFile, path)
	t.Setenv(config.EnvVar, "development")
	t.Setenv(config.EnvAPIClient, "enabled")
	t.Setenv(api.EnvAuthToken, "")
	t.Setenv(logger.EnvLevel, "error")
	t.Setenv("HOME", dir)

	return mock
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", filepath.Join(t.TempDir(), "missing.env")}, args...))

	err := cmd.Execute()
	return out.String(), err
}

func TestEndpointsCommand(t *testing.T) {
	mock := setupCLI(t)

	out, err := runCLI(t, "endpoints", "--json")
	if err != nil {
		t.Fatalf("endpoints failed: %v\n%s", err, out)
	}

	var info sync.EndpointInfo
	if err := json.Unmarshal([]byte(out), &info); err != nil {
		t.Fatalf("invalid JSON output: %v\n%s", err, out)
	}
	if info.Environment != config.Development || info.Tier != config.TierRuntime {
		t.Errorf("selection = %s/%s, want development/runtime", info.Environment, info.Tier)
	}
	if !info.Networked {
		t.Error("expected networked client")
	}
	if info.Endpoints.IssuesAPI != mock.URL+"/api/issues" {
		t.Errorf("issues_api = %q", info.Endpoints.IssuesAPI)
	}

	out, err = runCLI(t, "--simulate", "endpoints")
	if err != nil {
		t.Fatalf("endpoints failed: %v", err)
	}
	if !strings.Contains(out, "networked") || !strings.Contains(out, "false") {
		t.Errorf("expected networked false in table output:\n%s", out)
	}
}

func TestIssuesFetch(t *testing.T) {
	mock := setupCLI(t)
	mock.AddIssue(issue.Remote{ID: 4, Title: "Open manhole", Description: "Dangerous", Status: "open", CreatedAt: "2025-07-10T08:00:00Z"})

	out, err := runCLI(t, "issues", "fetch")
	if err != nil {
		t.Fatalf("issues fetch failed: %v", err)
	}
	if !strings.Contains(out, "Open manhole") || !strings.Contains(out, "Jul 10") {
		t.Errorf("unexpected table output:\n%s", out)
	}

	out, err = runCLI(t, "issues", "fetch", "--json")
	if err != nil {
		t.Fatalf("issues fetch --json failed: %v", err)
	}
	var issues []issue.Issue
	if err := json.Unmarshal([]byte(out), &issues); err != nil || len(issues) != 1 {
		t.Errorf("unexpected JSON output (%v):\n%s", err, out)
	}
}

func TestIssuesSubmit(t *testing.T) {
	mock := setupCLI(t)

	image := filepath.Join(t.TempDir(), "photo.jpg")
	if err := os.WriteFile(image, []byte{0xff, 0xd8, 0xff}, 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := runCLI(t, "issues", "submit",
		"--title", "Fallen tree",
		"--description", "Blocking the road",
		"--lat", "28.6139", "--lon", "77.209",
		"--image", image)
	if err != nil {
		t.Fatalf("issues submit failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "Issue created successfully") {
		t.Errorf("unexpected output:\n%s", out)
	}

	received := mock.Received()
	if len(received) != 1 {
		t.Fatalf("expected 1 submission, got %d", len(received))
	}
	got := received[0]
	if got.Image == nil || !bytes.Equal(got.Image.Data, []byte{0xff, 0xd8, 0xff}) {
		t.Errorf("image not forwarded: %+v", got.Image)
	}
	if got.Fields["description_mode"] != "text" {
		t.Errorf("description_mode = %q, want text", got.Fields["description_mode"])
	}
	if got.Authorization != "" {
		t.Errorf("expected anonymous submission, got %q", got.Authorization)
	}
}

func TestIssuesSubmit_BlankTitle(t *testing.T) {
	mock := setupCLI(t)

	_, err := runCLI(t, "issues", "submit", "--description", "no title")
	if err == nil || err.Error() != "Title cannot be empty" {
		t.Fatalf("expected validation error, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("expected no remote requests, got %d", mock.RequestCount())
	}
}

func TestVouch_RequiresToken(t *testing.T) {
	mock := setupCLI(t)

	_, err := runCLI(t, "vouch", "1")
	if !errors.Is(err, api.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}

	_, err = runCLI(t, "vouch", "abc")
	if err == nil || !strings.Contains(err.Error(), "invalid issue id") {
		t.Errorf("expected invalid id error, got %v", err)
	}
	if mock.RequestCount() != 0 {
		t.Errorf("expected no remote requests, got %d", mock.RequestCount())
	}
}

func TestSignInThenVouchAndProfile(t *testing.T) {
	mock := setupCLI(t)
	mock.AddIssue(issue.Remote{ID: 1, Title: "Garbage", Description: "Pile", Status: "open"})
	mobile := "9876543210"

	if out, err := runCLI(t, "otp", "send", "--mobile", mobile); err != nil {
		t.Fatalf("otp send failed: %v\n%s", err, out)
	}

	out, err := runCLI(t, "otp", "verify", "--mobile", mobile, "--otp", api.MockOTP, "--save")
	if err != nil {
		t.Fatalf("otp verify failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "token saved to") {
		t.Errorf("expected save confirmation:\n%s", out)
	}

	out, err = runCLI(t, "vouch", "1")
	if err != nil {
		t.Fatalf("vouch failed: %v", err)
	}
	if strings.TrimSpace(out) != "Vouch added successfully - Total vouches: 1" {
		t.Errorf("unexpected vouch output %q", out)
	}

	out, err = runCLI(t, "profile")
	if err != nil {
		t.Fatalf("profile failed: %v", err)
	}
	if !strings.Contains(out, mobile) {
		t.Errorf("unexpected profile output:\n%s", out)
	}
}

func TestOTPVerify_SaveWithoutToken(t *testing.T) {
	setupCLI(t)

	out, err := runCLI(t, "otp", "verify", "--mobile", "9876543210", "--otp", "000000", "--save")
	if err == nil || !strings.Contains(err.Error(), "did not return a token") {
		t.Fatalf("expected missing token error, got %v", err)
	}
	if !strings.Contains(out, "Invalid OTP") {
		t.Errorf("server response should still be printed:\n%s", out)
	}
}

func TestSelfTestCommand(t *testing.T) {
	mock := setupCLI(t)

	out, err := runCLI(t, "selftest")
	if err != nil {
		t.Fatalf("selftest failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "connection") || !strings.Contains(out, "submission") {
		t.Errorf("unexpected output:\n%s", out)
	}

	mock.Close()
	out, err = runCLI(t, "selftest")
	if err == nil || !strings.Contains(err.Error(), "2 self-test(s) failed") {
		t.Errorf("expected both self-tests to fail, got %v\n%s", err, out)
	}
}

func TestInvalidConfiguration(t *testing.T) {
	setupCLI(t)

	if _, err := runCLI(t, "--log-level", "loud", "endpoints"); err == nil {
		t.Error("expected error for invalid --log-level")
	}

	t.Setenv(config.EnvAPIClient, "maybe")
	_, err := runCLI(t, "endpoints")
	if err == nil || !strings.Contains(err.Error(), config.EnvAPIClient) {
		t.Errorf("expected %s error, got %v", config.EnvAPIClient, err)
	}
}

func TestLogLevelFromSettings(t *testing.T) {
	setupCLI(t)
	logger.SetOutput(io.Discard)
	t.Cleanup(func() {
		logger.SetOutput(os.Stderr)
		logger.SetLevel(logger.LevelInfo)
	})

	t.Setenv(logger.EnvLevel, "debug")
	if _, err := runCLI(t, "endpoints"); err != nil {
		t.Fatalf("endpoints failed: %v", err)
	}
	if got := logger.GetLevel(); got != logger.LevelDebug {
		t.Errorf("level = %s, want debug from %s", got, logger.EnvLevel)
	}

	if _, err := runCLI(t, "--log-level", "warn", "endpoints"); err != nil {
		t.Fatalf("endpoints failed: %v", err)
	}
	if got := logger.GetLevel(); got != logger.LevelWarn {
		t.Errorf("level = %s, want warn from --log-level", got)
	}

	t.Setenv(logger.EnvLevel, "loud")
	if _, err := runCLI(t, "endpoints"); err == nil || !strings.Contains(err.Error(), "failed to load settings") {
		t.Errorf("expected settings error for invalid %s, got %v", logger.EnvLevel, err)
	}
}

func TestReadAttachment(t *testing.T) {
	got, err := readAttachment("")
	if err != nil || got != nil {
		t.Errorf("readAttachment(\"\") = %v, %v", got, err)
	}

	if _, err := readAttachment(filepath.Join(t.TempDir(), "missing.webm")); err == nil {
		t.Error("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "a.webm")
	os.WriteFile(path, []byte("hi"), 0o644)
	got, err = readAttachment(path)
	if err != nil || got == nil || *got != "aGk=" {
		t.Errorf("readAttachment() = %v, %v", got, err)
	}
}
