// Package runner drives the iteration loop: compose the prompt, invoke the
// agent, record markers, and stop when the completion token shows up in
// the iteration's log or the budget runs out.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/jorge-barreto/ralph/internal/completion"
	"github.com/jorge-barreto/ralph/internal/compose"
	"github.com/jorge-barreto/ralph/internal/config"
	"github.com/jorge-barreto/ralph/internal/dispatch"
	"github.com/jorge-barreto/ralph/internal/logging"
	"github.com/jorge-barreto/ralph/internal/state"
	"github.com/jorge-barreto/ralph/internal/ux"
)

// Process exit codes.
const (
	ExitCompleted   = 0
	ExitExhausted   = 1
	ExitConfig      = 2
	ExitState       = 3
	ExitInterrupted = 130
)

// ExitError carries the process exit code for a run that did not complete.
type ExitError struct {
	Code int
	Err  error
}

func (e *ExitError) Error() string { return e.Err.Error() }
func (e *ExitError) Unwrap() error { return e.Err }

// Runner drives the iteration loop.
type Runner struct {
	Config   *config.Config
	Store    *state.Store
	Composer *compose.Composer
	Agent    dispatch.Agent
	Log      *logging.Logger
	Stdout   io.Writer // live relay of agent output; defaults to os.Stdout

	Info   *state.RunInfo
	Timing *state.Timing
}

// New wires a Runner from a resolved config.
func New(cfg *config.Config, agent dispatch.Agent, log *logging.Logger) *Runner {
	return &Runner{
		Config: cfg,
		Store:  state.New(cfg.StateDir),
		Composer: &compose.Composer{
			Agent:     cfg.Agent,
			BasePath:  cfg.PromptPath,
			StateDir:  cfg.StateDir,
			SkillsDir: cfg.SkillsDir,
			Token:     cfg.Token,
		},
		Agent: agent,
		Log:   log,
	}
}

// Run loops until the completion token is observed (nil), the budget is
// exhausted, the context is cancelled or a state write fails. Every
// non-nil return is an *ExitError.
func (r *Runner) Run(ctx context.Context) error {
	if r.Log == nil {
		r.Log = logging.Nop()
	}
	if r.Stdout == nil {
		r.Stdout = os.Stdout
	}

	if err := r.Store.Init(); err != nil {
		return &ExitError{Code: ExitState, Err: err}
	}
	r.Info = state.NewRunInfo(r.Config.Agent, r.Config.Root)
	r.Timing = &state.Timing{}
	if err := r.Store.SaveRunInfo(r.Info); err != nil {
		return &ExitError{Code: ExitState, Err: fmt.Errorf("saving run info: %w", err)}
	}

	limit := r.Config.MaxIterations
	r.Log.Info().
		Str("run_id", r.Info.RunID).
		Str("agent", r.Config.Agent).
		Str("root", r.Config.Root).
		Int("max_iterations", limit).
		Msg("run started")
	ux.RunHeader(r.Config.Agent, r.Config.Root, limit)

	env := &dispatch.Environment{
		Root:     r.Config.Root,
		StateDir: r.Store.Dir,
		Agent:    r.Agent.Identity(),
	}

	for i := 1; ; i++ {
		if ctx.Err() != nil {
			return r.interrupted(ctx, i-1)
		}
		if limit > 0 && i > limit {
			return r.exhausted(limit)
		}

		start, err := r.Store.BeginIteration(i)
		if err != nil {
			return r.stateFailure(i, err)
		}
		r.Info.Iteration = i
		if err := r.Store.SaveRunInfo(r.Info); err != nil {
			return r.stateFailure(i, fmt.Errorf("saving run info: %w", err))
		}
		r.Timing.AddStart(i, start)
		r.Log.Info().Int("iteration", i).Msg("iteration started")
		ux.IterationHeader(i, limit)

		if err := r.Composer.Build(r.Store.PromptPath()); err != nil {
			return r.stateFailure(i, err)
		}
		r.Log.Debug().Int("iteration", i).Str("path", r.Store.PromptPath()).Msg("prompt composed")

		env.Iteration = i
		outcome, err := r.invoke(ctx, i, env)
		if err != nil {
			return r.stateFailure(i, err)
		}

		end, err := r.Store.EndIteration(i, outcome)
		if err != nil {
			return r.stateFailure(i, err)
		}
		r.Timing.AddEnd(i, end, outcome.ExitCode)
		if err := r.Store.FlushTiming(r.Timing); err != nil {
			return r.stateFailure(i, fmt.Errorf("flushing timing: %w", err))
		}
		r.Log.Info().
			Int("iteration", i).
			Int("exit_code", outcome.ExitCode).
			Dur("duration", end.Sub(start)).
			Msg("iteration finished")

		if outcome.ExitCode != 0 && ctx.Err() == nil {
			r.Log.Warn().
				Int("iteration", i).
				Int("exit_code", outcome.ExitCode).
				Bool("not_found", outcome.NotFound).
				Msg("agent exited non-zero")
			ux.RunnerWarning(i, outcome.ExitCode, outcome.NotFound)
		}
		ux.IterationComplete(i, end.Sub(start))

		found, err := completion.FileContains(r.Store.LogPath(i), r.Config.Token)
		if err != nil {
			return r.stateFailure(i, fmt.Errorf("reading iteration log: %w", err))
		}
		if found {
			return r.completed(i)
		}
		if ctx.Err() != nil {
			return r.interrupted(ctx, i)
		}
	}
}

// invoke runs the agent once, teeing its output into runs/<n>.log and the
// live terminal. A prompt echoed on stderr goes to runs/<n>.stderr.log
// instead, so it never counts towards completion. Only failures to write
// the logs are returned as errors; anything the agent itself does wrong
// becomes a non-zero outcome.
func (r *Runner) invoke(ctx context.Context, n int, env *dispatch.Environment) (state.Outcome, error) {
	f, err := os.OpenFile(r.Store.LogPath(n), os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return state.Outcome{}, fmt.Errorf("opening iteration log: %w", err)
	}
	out := &teeWriter{log: f, live: r.Stdout}
	if err := os.Remove(r.Store.StderrPath(n)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		f.Close()
		return state.Outcome{}, fmt.Errorf("clearing stderr log: %w", err)
	}
	errLog := &lazyFile{path: r.Store.StderrPath(n)}
	errOut := &teeWriter{log: errLog, live: r.Stdout}

	res, invokeErr := r.Agent.Invoke(ctx, dispatch.Invocation{
		PromptFile: r.Store.PromptPath(),
		WorkDir:    r.Config.Root,
		Output:     out,
		Stderr:     errOut,
		Env:        dispatch.BuildEnv(env),
		ExtraArgs:  r.Config.AgentArgs,
	})

	var outcome state.Outcome
	if invokeErr != nil {
		r.Log.Warn().Err(invokeErr).Int("iteration", n).Msg("agent invocation failed")
		fmt.Fprintf(out, "ralph: %v\n", invokeErr)
		outcome = state.Outcome{ExitCode: -1}
	} else {
		outcome = state.Outcome{ExitCode: res.ExitCode, NotFound: res.NotFound}
	}

	closeErr := f.Close()
	errCloseErr := errLog.Close()
	for _, e := range []struct {
		what string
		err  error
	}{
		{"writing iteration log", out.err},
		{"closing iteration log", closeErr},
		{"writing stderr log", errOut.err},
		{"closing stderr log", errCloseErr},
	} {
		if e.err != nil {
			return outcome, fmt.Errorf("%s: %w", e.what, e.err)
		}
	}
	return outcome, nil
}

func (r *Runner) completed(n int) error {
	r.Info.Status = state.StatusCompleted
	if err := r.Store.SaveRunInfo(r.Info); err != nil {
		return r.stateFailure(n, fmt.Errorf("saving run info: %w", err))
	}
	r.Log.Info().Int("iterations", n).Msg("completion token observed")
	ux.Complete(n)
	return nil
}

func (r *Runner) exhausted(limit int) error {
	r.Info.Status = state.StatusExhausted
	if err := r.Store.SaveRunInfo(r.Info); err != nil {
		return r.stateFailure(limit, fmt.Errorf("saving run info: %w", err))
	}
	r.Log.Warn().Int("max_iterations", limit).Msg("budget exhausted")
	ux.Exhausted(limit)
	return &ExitError{
		Code: ExitExhausted,
		Err:  fmt.Errorf("reached max iterations (%d) without completion token", limit),
	}
}

func (r *Runner) interrupted(ctx context.Context, n int) error {
	r.Info.Status = state.StatusInterrupted
	if err := r.Store.SaveRunInfo(r.Info); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save run info: %v\n", err)
	}
	r.Log.Warn().Int("iteration", n).Msg("interrupted")
	ux.Interrupted(n)
	return &ExitError{Code: ExitInterrupted, Err: ctx.Err()}
}

// stateFailure ends the run when the state directory cannot be written.
func (r *Runner) stateFailure(n int, err error) error {
	r.Info.Status = state.StatusFailed
	if saveErr := r.Store.SaveRunInfo(r.Info); saveErr != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save run info: %v\n", saveErr)
	}
	r.Log.Error().Err(err).Int("iteration", n).Msg("state write failed")
	return &ExitError{Code: ExitState, Err: err}
}

// DryRunPrint prints the resolved plan and the composed prompt's shape
// without touching the state directory or invoking the agent.
func (r *Runner) DryRunPrint(w io.Writer) error {
	prompt, err := r.Composer.Render()
	if err != nil {
		return err
	}
	cfg := r.Config

	budget := "unbounded"
	if cfg.MaxIterations > 0 {
		budget = fmt.Sprintf("%d", cfg.MaxIterations)
	}
	base := cfg.PromptPath
	if base == "" {
		base = "(bundled default)"
	}

	fmt.Fprintf(w, "\n%sDry run:%s\n\n", ux.Bold, ux.Reset)
	fmt.Fprintf(w, "  agent:      %s (%s)\n", cfg.Agent, r.Agent.Binary())
	if len(cfg.AgentArgs) > 0 {
		fmt.Fprintf(w, "  agent-args: %v\n", cfg.AgentArgs)
	}
	fmt.Fprintf(w, "  root:       %s\n", cfg.Root)
	fmt.Fprintf(w, "  prompt:     %s [%s]\n", base, cfg.PromptSource)
	fmt.Fprintf(w, "  state-dir:  %s\n", cfg.StateDir)
	fmt.Fprintf(w, "  skills-dir: %s\n", cfg.SkillsDir)
	fmt.Fprintf(w, "  max:        %s\n", budget)
	fmt.Fprintf(w, "  token:      %s\n", cfg.Token)
	if cfg.ProjectFile != "" {
		fmt.Fprintf(w, "  config:     %s\n", cfg.ProjectFile)
	}
	fmt.Fprintf(w, "\n  effective prompt: %d bytes -> %s\n\n",
		len(prompt), state.New(cfg.StateDir).PromptPath())
	return nil
}

// teeWriter copies agent output into the iteration log and the terminal.
// The first log write error is kept for the caller; terminal writes are
// best effort.
type teeWriter struct {
	log  io.Writer
	live io.Writer
	err  error
}

func (t *teeWriter) Write(p []byte) (int, error) {
	if t.err == nil {
		if _, err := t.log.Write(p); err != nil {
			t.err = err
		}
	}
	t.live.Write(p)
	return len(p), nil
}

// lazyFile creates its file on the first write, so iterations that never
// write to it leave nothing behind.
type lazyFile struct {
	path string
	f    *os.File
}

func (l *lazyFile) Write(p []byte) (int, error) {
	if l.f == nil {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
		if err != nil {
			return 0, err
		}
		l.f = f
	}
	return l.f.Write(p)
}

func (l *lazyFile) Close() error {
	if l.f == nil {
		return nil
	}
	return l.f.Close()
}
