package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

type cliTestEnv struct {
	configPath string
	baseDir    string
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	configPath := filepath.Join(base, "config.toml")
	content := fmt.Sprintf(
		"[paths]\nmusic_dir = %q\ndata_dir = %q\nlog_dir = %q\n\n[logging]\nformat = \"json\"\nlevel = \"error\"\n",
		filepath.Join(base, "music"),
		filepath.Join(base, "data"),
		filepath.Join(base, "logs"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	return &cliTestEnv{configPath: configPath, baseDir: base}
}

// runCLI executes one command against a fresh root so every invocation
// resolves config and opens the store the way a real process would.
func runCLI(t *testing.T, env *cliTestEnv, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", env.configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, haystack, needle string) {
	t.Helper()
	if !strings.Contains(haystack, needle) {
		t.Fatalf("expected output to contain %q, got %q", needle, haystack)
	}
}

func TestConfigInitAndValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "config", "validate")
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	requireContains(t, out, "Configuration valid")

	target := filepath.Join(t.TempDir(), "config.toml")
	out, _, err = runCLI(t, env, "config", "init", "--path", target)
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	requireContains(t, out, "Wrote sample configuration")

	if _, err := os.Stat(target); err != nil {
		t.Fatalf("expected config file at %s: %v", target, err)
	}
}

func TestCLISongSyncLifecycle(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, env, "contributor", "add", "Nine Inch Nails", "--kind", "group")
	if err != nil {
		t.Fatalf("contributor add: %v", err)
	}
	requireContains(t, out, "id 1")

	if _, _, err := runCLI(t, env, "contributor", "alias", "add", "1", "NIN"); err != nil {
		t.Fatalf("alias add: %v", err)
	}

	out, _, err = runCLI(t, env, "song", "add", "Hurt", "--track", "13")
	if err != nil {
		t.Fatalf("song add: %v", err)
	}
	requireContains(t, out, "id 1")

	// The alias must resolve to the canonical contributor during sync.
	out, _, err = runCLI(t, env, "song", "sync", "1",
		"--performer", "NIN",
		"--tag", "mood:melancholy",
		"--album-title", "The Downward Spiral", "--album-year", "1994", "--primary",
	)
	if err != nil {
		t.Fatalf("song sync: %v", err)
	}
	requireContains(t, out, "Synchronized song 1")

	out, _, err = runCLI(t, env, "song", "show", "1")
	if err != nil {
		t.Fatalf("song show: %v", err)
	}
	requireContains(t, out, "Nine Inch Nails")
	requireContains(t, out, "The Downward Spiral (primary)")
	requireContains(t, out, "mood:melancholy")

	// Clearing the performer list in a later snapshot removes the credit.
	if _, _, err := runCLI(t, env, "song", "sync", "1", "--tag", "mood:melancholy"); err != nil {
		t.Fatalf("second sync: %v", err)
	}
	out, _, err = runCLI(t, env, "song", "show", "1")
	if err != nil {
		t.Fatalf("song show after clear: %v", err)
	}
	if strings.Contains(out, "Nine Inch Nails") {
		t.Fatalf("expected performer credit removed, got %q", out)
	}
}

func TestCLIAuditTrailRecordsCommands(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "publisher", "add", "Universal Music Group"); err != nil {
		t.Fatalf("publisher add: %v", err)
	}
	if _, _, err := runCLI(t, env, "tag", "add", "genre:industrial"); err != nil {
		t.Fatalf("tag add: %v", err)
	}

	out, _, err := runCLI(t, env, "audit", "batches")
	if err != nil {
		t.Fatalf("audit batches: %v", err)
	}
	requireContains(t, out, "publisher-add")
	requireContains(t, out, "tag-add")
	requireContains(t, out, "committed")
}

func TestCLISearchFindsAliases(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "contributor", "add", "David Grohl"); err != nil {
		t.Fatalf("contributor add: %v", err)
	}
	if _, _, err := runCLI(t, env, "contributor", "alias", "add", "1", "Dave Grohl"); err != nil {
		t.Fatalf("alias add: %v", err)
	}

	out, _, err := runCLI(t, env, "search", "grohl")
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	requireContains(t, out, "David Grohl")
	requireContains(t, out, "Dave Grohl")
	requireContains(t, out, "alias")
}

func TestCLIRejectsMalformedTagRef(t *testing.T) {
	env := setupCLITestEnv(t)

	if _, _, err := runCLI(t, env, "tag", "add", "no-category"); err == nil {
		t.Fatal("expected malformed tag ref to be rejected")
	}
}
