package scaffold

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jorge-barreto/ralph/internal/compose"
	"github.com/jorge-barreto/ralph/internal/config"
	"github.com/jorge-barreto/ralph/internal/dispatch"
)

func TestInit_CreatesDirectoryStructure(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	if err := Init(dir, "claude", &out); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	for _, path := range []string{
		".ralph",
		filepath.Join(".ralph", "config.yaml"),
		filepath.Join(".ralph", "context.md"),
		filepath.Join(".ralph", ".gitignore"),
		filepath.Join(".ralph", "runs"),
		"PROMPT.md",
		filepath.Join("skills", "shared"),
	} {
		full := filepath.Join(dir, path)
		info, err := os.Stat(full)
		if err != nil {
			t.Fatalf("%s not created: %v", path, err)
		}
		if !info.IsDir() && info.Size() == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
	if !strings.Contains(out.String(), "Initialized ralph project") {
		t.Errorf("unexpected output: %q", out.String())
	}
}

func TestInit_GeneratedConfigResolves(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "codex", &bytes.Buffer{}); err != nil {
		t.Fatalf("Init failed: %v", err)
	}

	noEnv := func(string) (string, bool) { return "", false }
	cfg, err := config.Resolve(dir, config.Overrides{}, noEnv)
	if err != nil {
		t.Fatalf("generated project does not resolve: %v", err)
	}
	if cfg.Agent != "codex" {
		t.Errorf("agent = %q, want codex", cfg.Agent)
	}
	if cfg.MaxIterations != 20 {
		t.Errorf("max-iterations = %d, want 20", cfg.MaxIterations)
	}
	if cfg.PromptPath != filepath.Join(dir, "PROMPT.md") {
		t.Errorf("prompt = %q", cfg.PromptPath)
	}
}

func TestInit_StarterPromptIsDefault(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "claude", &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(dir, "PROMPT.md"))
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != compose.DefaultPrompt {
		t.Error("PROMPT.md should start from the bundled prompt")
	}
}

func TestInit_KeepsExistingPrompt(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "RALPH.md"), []byte("mine"), 0644); err != nil {
		t.Fatal(err)
	}
	if err := Init(dir, "claude", &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(filepath.Join(dir, "PROMPT.md")); !os.IsNotExist(err) {
		t.Error("PROMPT.md should not be created when RALPH.md exists")
	}
	data, _ := os.ReadFile(filepath.Join(dir, "RALPH.md"))
	if string(data) != "mine" {
		t.Error("existing prompt was modified")
	}
}

func TestInit_FailsIfConfigExists(t *testing.T) {
	dir := t.TempDir()
	if err := Init(dir, "claude", &bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}

	err := Init(dir, "claude", &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error when config.yaml already exists")
	}
	if !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected error containing 'already exists', got: %s", err)
	}
}

func TestInit_UnknownAgent(t *testing.T) {
	err := Init(t.TempDir(), "cursor", &bytes.Buffer{})
	if !errors.Is(err, dispatch.ErrUnknownAgent) {
		t.Fatalf("expected ErrUnknownAgent, got %v", err)
	}
}
