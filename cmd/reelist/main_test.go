package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeTestConfig points the CLI at temp directories and a server that
// refuses connections, so mutations take the offline path.
func writeTestConfig(t *testing.T) string {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(`[paths]
data_dir = %q
log_dir = %q

[server]
base_url = "http://127.0.0.1:1"
api_token = "test-token"
request_timeout = 1
`, filepath.Join(base, "data"), filepath.Join(base, "logs"))
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return configPath
}

func runCLI(t *testing.T, configPath string, args ...string) (string, error) {
	t.Helper()

	cmd := newRootCommand()
	var buf bytes.Buffer
	cmd.SetOut(&buf)
	cmd.SetErr(&buf)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return buf.String(), err
}

func requireContains(t *testing.T, output, want string) {
	t.Helper()
	if !strings.Contains(output, want) {
		t.Fatalf("output %q does not contain %q", output, want)
	}
}

func TestAddQueuesWhenServerUnreachable(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "add", "tt2543164", "Arrival", "--from", "Alice")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}
	requireContains(t, out, "queued for sync")

	out, err = runCLI(t, configPath, "movies")
	if err != nil {
		t.Fatalf("movies: %v\n%s", err, out)
	}
	requireContains(t, out, "Arrival")
	requireContains(t, out, "Alice")

	out, err = runCLI(t, configPath, "pending")
	if err != nil {
		t.Fatalf("pending: %v\n%s", err, out)
	}
	requireContains(t, out, "addMovie")
}

func TestWatchedRequiresKnownMovie(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "watched", "tt0000000", "--rating", "7")
	if err == nil {
		t.Fatalf("expected error for unknown movie, got:\n%s", out)
	}
}

func TestUnresolvedLifecycle(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "add", "that", "heist", "movie", "--title-only", "--from", "Bob")
	if err != nil {
		t.Fatalf("add --title-only: %v\n%s", err, out)
	}
	requireContains(t, out, "unresolved")

	out, err = runCLI(t, configPath, "unresolved")
	if err != nil {
		t.Fatalf("unresolved: %v\n%s", err, out)
	}
	requireContains(t, out, "that heist movie")
	requireContains(t, out, "Bob")
}

func TestResetClearsQueuedChanges(t *testing.T) {
	configPath := writeTestConfig(t)

	out, err := runCLI(t, configPath, "add", "tt2543164", "Arrival", "--from", "Alice")
	if err != nil {
		t.Fatalf("add: %v\n%s", err, out)
	}

	if _, err := runCLI(t, configPath, "reset"); err == nil {
		t.Fatal("expected reset to refuse without --yes")
	}

	out, err = runCLI(t, configPath, "reset", "--yes")
	if err != nil {
		t.Fatalf("reset --yes: %v\n%s", err, out)
	}
	requireContains(t, out, "Cleared")

	out, err = runCLI(t, configPath, "pending")
	if err != nil {
		t.Fatalf("pending: %v\n%s", err, out)
	}
	if strings.Contains(out, "addMovie") {
		t.Fatalf("expected empty queue after reset, got:\n%s", out)
	}
}

func TestConfigInit(t *testing.T) {
	target := filepath.Join(t.TempDir(), "config.toml")

	out, err := runCLI(t, "", "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v\n%s", err, out)
	}
	requireContains(t, out, "Wrote sample configuration")
	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}

	if _, err := runCLI(t, "", "config", "init", "--path", target); err == nil {
		t.Fatal("expected error when config already exists")
	}
}
