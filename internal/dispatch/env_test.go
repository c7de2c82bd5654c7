package dispatch

import (
	"strings"
	"testing"
)

func TestBuildEnv_RalphVars(t *testing.T) {
	env := &Environment{Root: "/proj", StateDir: "/proj/.ralph", Agent: Codex, Iteration: 4}
	result := BuildEnv(env)

	find := func(key string) string {
		for _, e := range result {
			if strings.HasPrefix(e, key+"=") {
				return strings.TrimPrefix(e, key+"=")
			}
		}
		return ""
	}

	if v := find("RALPH_ROOT"); v != "/proj" {
		t.Fatalf("RALPH_ROOT = %q", v)
	}
	if v := find("RALPH_STATE_DIR"); v != "/proj/.ralph" {
		t.Fatalf("RALPH_STATE_DIR = %q", v)
	}
	if v := find("RALPH_AGENT"); v != "codex" {
		t.Fatalf("RALPH_AGENT = %q", v)
	}
	if v := find("RALPH_ITERATION"); v != "4" {
		t.Fatalf("RALPH_ITERATION = %q", v)
	}
}

func TestBuildEnv_StripsCLAUDECODE(t *testing.T) {
	t.Setenv("CLAUDECODE", "1")
	t.Setenv("CLAUDECODE_ENTRYPOINT", "cli")

	for _, e := range BuildEnv(&Environment{}) {
		if strings.HasPrefix(e, "CLAUDECODE") {
			t.Fatalf("CLAUDECODE var not stripped: %s", e)
		}
	}
}

func TestBuildEnv_SnapshotReused(t *testing.T) {
	env := &Environment{Iteration: 1}
	first := BuildEnv(env)
	env.Iteration = 2
	second := BuildEnv(env)
	if len(first) != len(second) {
		t.Fatalf("len %d != %d", len(first), len(second))
	}
	if second[len(second)-1] != "RALPH_ITERATION=2" {
		t.Fatalf("last = %q", second[len(second)-1])
	}
}
