package doctor

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/jorge-barreto/ralph/internal/config"
	"github.com/jorge-barreto/ralph/internal/dispatch"
	"github.com/jorge-barreto/ralph/internal/state"
)

type fakeAgent struct {
	prompt string
	result *dispatch.Result
	calls  int
}

func (f *fakeAgent) Identity() dispatch.Identity { return dispatch.Gemini }
func (f *fakeAgent) Binary() string              { return "gemini" }

func (f *fakeAgent) Invoke(_ context.Context, inv dispatch.Invocation) (*dispatch.Result, error) {
	f.calls++
	data, err := os.ReadFile(inv.PromptFile)
	if err != nil {
		return nil, err
	}
	f.prompt = string(data)
	fmt.Fprintln(inv.Output, "diagnosis: the token is never printed")
	if f.result != nil {
		return f.result, nil
	}
	return &dispatch.Result{}, nil
}

func newStore(t *testing.T, iterations int) *state.Store {
	t.Helper()
	st := state.New(t.TempDir())
	if err := st.Init(); err != nil {
		t.Fatal(err)
	}
	for n := 1; n <= iterations; n++ {
		if _, err := st.BeginIteration(n); err != nil {
			t.Fatal(err)
		}
		os.WriteFile(st.LogPath(n), []byte(fmt.Sprintf("log of iteration %d", n)), 0644)
		if _, err := st.EndIteration(n, state.Outcome{ExitCode: 1}); err != nil {
			t.Fatal(err)
		}
	}
	return st
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{Agent: "gemini", Root: t.TempDir(), Token: "<DONE/>", MaxIterations: 3}
}

func TestGatherLog_Short(t *testing.T) {
	st := newStore(t, 1)
	result := gatherLog(st, 1)
	if result != "log of iteration 1" {
		t.Errorf("expected full content, got %q", result)
	}
}

func TestGatherLog_Long(t *testing.T) {
	st := newStore(t, 1)
	var lines []string
	for i := 0; i < 300; i++ {
		lines = append(lines, "log line")
	}
	os.WriteFile(st.LogPath(1), []byte(strings.Join(lines, "\n")), 0644)

	result := gatherLog(st, 1)
	if !strings.HasPrefix(result, "... (truncated to last 200 lines)") {
		t.Errorf("expected truncation prefix, got %q", result[:60])
	}
	if got := len(strings.Split(result, "\n")); got != 201 {
		t.Errorf("expected 201 lines, got %d", got)
	}
}

func TestGatherLog_Missing(t *testing.T) {
	st := state.New(t.TempDir())
	if result := gatherLog(st, 4); result != "(no log file found)" {
		t.Errorf("expected missing placeholder, got %q", result)
	}
}

func TestGatherStatuses_RecentOnly(t *testing.T) {
	st := newStore(t, 12)
	result := gatherStatuses(st, 12)
	lines := strings.Split(result, "\n")
	if len(lines) != recentStatuses {
		t.Fatalf("expected %d lines, got %d: %q", recentStatuses, len(lines), result)
	}
	if !strings.HasPrefix(lines[0], "3: failed exit=1") {
		t.Errorf("first line = %q", lines[0])
	}
}

func TestRun_NothingToDiagnose(t *testing.T) {
	st := state.New(t.TempDir())
	agent := &fakeAgent{}
	var out bytes.Buffer
	if err := Run(context.Background(), testConfig(t), st, agent, &out); err != nil {
		t.Fatal(err)
	}
	if agent.calls != 0 {
		t.Fatalf("agent invoked %d times", agent.calls)
	}
	if !strings.Contains(out.String(), "No run to diagnose") {
		t.Errorf("unexpected output %q", out.String())
	}
}

func TestRun_InvokesAgentWithContext(t *testing.T) {
	st := newStore(t, 2)
	os.WriteFile(st.ContextPath(), []byte("build with make"), 0644)
	agent := &fakeAgent{}
	var out bytes.Buffer

	if err := Run(context.Background(), testConfig(t), st, agent, &out); err != nil {
		t.Fatal(err)
	}
	if agent.calls != 1 {
		t.Fatalf("agent invoked %d times", agent.calls)
	}
	for _, want := range []string{`"<DONE/>"`, "Agent: gemini", "Max iterations: 3", "2: failed exit=1", "iteration 2", "log of iteration 2", "build with make"} {
		if !strings.Contains(agent.prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}
	if !strings.Contains(out.String(), "diagnosis: the token is never printed") {
		t.Errorf("agent output not relayed: %q", out.String())
	}
}

func TestRun_AgentFailure(t *testing.T) {
	st := newStore(t, 1)
	agent := &fakeAgent{result: &dispatch.Result{ExitCode: 127, NotFound: true}}
	err := Run(context.Background(), testConfig(t), st, agent, &bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "not found") {
		t.Fatalf("expected not-found error, got %v", err)
	}
}
