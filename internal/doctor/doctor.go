// Package doctor asks the configured agent to explain why a loop is not
// converging, using what the state directory recorded.
package doctor

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/ralph/internal/config"
	"github.com/jorge-barreto/ralph/internal/dispatch"
	"github.com/jorge-barreto/ralph/internal/state"
	"github.com/jorge-barreto/ralph/internal/ux"
)

const (
	maxLogLines    = 200
	recentStatuses = 10
)

// PromptFile is where the diagnosis prompt is written before invoking the
// agent.
const PromptFile = "doctor_prompt.md"

const diagPrompt = `You are diagnosing an autonomous agent loop. The loop invokes a coding agent
repeatedly with the same composed prompt and stops when the agent prints the
completion token %q on its own line. Analyze the context below and provide a
concise diagnosis.

## Run
%s

## Recent Iterations
%s

## Last Iteration Log (iteration %d)
%s
%s
Instructions:
1. Identify why the loop has not finished, or what went wrong in the last iteration.
2. Classify this as a LOOP problem (prompt, context, skills, token never printed, agent
   CLI missing or misconfigured) or a WORK problem (the task the agent is doing).
3. Suggest specific fixes, naming the files to edit (prompt, context.md, skills).
4. Recommend the next command to run.

Be direct and concise. Focus on actionable advice.`

// Run gathers the last run's context and hands it to agent for diagnosis.
// Agent output goes to out.
func Run(ctx context.Context, cfg *config.Config, st *state.Store, agent dispatch.Agent, out io.Writer) error {
	last, err := st.LastIteration()
	if err != nil {
		return err
	}
	if last == 0 {
		fmt.Fprintln(out, "No run to diagnose.")
		return nil
	}

	info, _ := st.LoadRunInfo()
	text := buildPrompt(cfg.Token,
		gatherRun(cfg, info),
		gatherStatuses(st, last),
		last,
		gatherLog(st, last),
		gatherContext(st),
	)

	promptPath := filepath.Join(st.Dir, PromptFile)
	if err := os.WriteFile(promptPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing diagnosis prompt: %w", err)
	}

	fmt.Fprintf(out, "\n%s%s══ Doctor: diagnosing iteration %d with %s ══%s\n\n",
		ux.Bold, ux.Cyan, last, agent.Identity(), ux.Reset)

	res, err := agent.Invoke(ctx, dispatch.Invocation{
		PromptFile: promptPath,
		WorkDir:    cfg.Root,
		Output:     out,
		Env:        dispatch.BuildEnv(&dispatch.Environment{Root: cfg.Root, StateDir: st.Dir, Agent: agent.Identity()}),
		ExtraArgs:  cfg.AgentArgs,
	})
	if err != nil {
		return fmt.Errorf("running %s: %w", agent.Identity(), err)
	}
	if res.NotFound {
		return fmt.Errorf("%s not found in PATH", agent.Binary())
	}
	if res.ExitCode != 0 {
		return fmt.Errorf("%s exited with code %d", agent.Identity(), res.ExitCode)
	}
	fmt.Fprintln(out)
	return nil
}

func buildPrompt(token, run, statuses string, last int, log, context string) string {
	var contextSection string
	if context != "" {
		contextSection = fmt.Sprintf("\n## Persistent Context\n%s\n", context)
	}
	return fmt.Sprintf(diagPrompt, token, run, statuses, last, log, contextSection)
}

func gatherRun(cfg *config.Config, info *state.RunInfo) string {
	parts := []string{
		fmt.Sprintf("Agent: %s", cfg.Agent),
		fmt.Sprintf("Root: %s", cfg.Root),
	}
	if cfg.PromptPath != "" {
		parts = append(parts, fmt.Sprintf("Base prompt: %s", cfg.PromptPath))
	} else {
		parts = append(parts, "Base prompt: bundled default")
	}
	if cfg.MaxIterations > 0 {
		parts = append(parts, fmt.Sprintf("Max iterations: %d", cfg.MaxIterations))
	}
	if info != nil {
		parts = append(parts,
			fmt.Sprintf("Run ID: %s", info.RunID),
			fmt.Sprintf("Status: %s", info.Status),
			fmt.Sprintf("Started: %s", info.StartedAt.Format("2006-01-02 15:04:05Z")),
		)
	}
	return strings.Join(parts, "\n")
}

// gatherStatuses lists the status markers of the most recent iterations.
func gatherStatuses(st *state.Store, last int) string {
	timing, _ := st.LoadTiming()
	first := last - recentStatuses + 1
	if first < 1 {
		first = 1
	}
	var parts []string
	for n := first; n <= last; n++ {
		s := st.ReadStatus(n)
		if s == "" {
			s = "did not finish"
		}
		line := fmt.Sprintf("%d: %s", n, s)
		if timing != nil {
			if e, ok := timing.Find(n); ok && e.Duration != "" {
				line += fmt.Sprintf(" (%s)", e.Duration)
			}
		}
		parts = append(parts, line)
	}
	return strings.Join(parts, "\n")
}

func gatherLog(st *state.Store, n int) string {
	data, err := os.ReadFile(st.LogPath(n))
	if err != nil {
		return "(no log file found)"
	}
	lines := strings.Split(string(data), "\n")
	if len(lines) > maxLogLines {
		lines = lines[len(lines)-maxLogLines:]
		return fmt.Sprintf("... (truncated to last %d lines)\n%s", maxLogLines, strings.Join(lines, "\n"))
	}
	return string(data)
}

func gatherContext(st *state.Store) string {
	data, err := os.ReadFile(st.ContextPath())
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
