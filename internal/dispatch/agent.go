package dispatch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"sort"
	"strings"
	"syscall"
	"time"
)

// Identity names a supported agent CLI. The set is closed: supporting a
// new agent means adding an entry to adapters.
type Identity string

const (
	Claude   Identity = "claude"
	Codex    Identity = "codex"
	Gemini   Identity = "gemini"
	OpenCode Identity = "opencode"
)

// NotFoundExitCode is reported when the agent binary cannot be resolved.
const NotFoundExitCode = 127

// ErrUnknownAgent is returned by Lookup for an identity with no adapter.
var ErrUnknownAgent = errors.New("unknown agent")

// Invocation describes one agent run.
type Invocation struct {
	PromptFile string    // composed prompt to hand to the agent
	WorkDir    string    // working root the agent operates in
	Output     io.Writer // receives stdout and stderr verbatim
	Stderr     io.Writer // if set, receives stderr of agents that echo the prompt there
	Env        []string  // child environment; nil inherits the parent's
	ExtraArgs  []string  // appended after the adapter's own flags
}

// Result holds the outcome of one agent invocation.
type Result struct {
	ExitCode int
	NotFound bool
}

// Agent invokes one external agent CLI against a prompt file. Tests can
// substitute a fake.
type Agent interface {
	Identity() Identity
	Binary() string
	Invoke(ctx context.Context, inv Invocation) (*Result, error)
}

// Adapter is the shared implementation behind every supported agent. The
// variants differ only in binary, unattended-mode flags and how the prompt
// is delivered.
type Adapter struct {
	id        Identity
	binary    string
	flags     []string
	promptArg bool // pass prompt content as the final argument instead of stdin
	echoes    bool // echoes the prompt on stderr; see Invocation.Stderr
}

var adapters = map[Identity]*Adapter{
	Claude: {
		id:     Claude,
		binary: "claude",
		flags:  []string{"-p", "--dangerously-skip-permissions"},
	},
	Codex: {
		id:     Codex,
		binary: "codex",
		flags:  []string{"exec", "--dangerously-bypass-approvals-and-sandbox", "-"},
		echoes: true,
	},
	Gemini: {
		id:     Gemini,
		binary: "gemini",
		flags:  []string{"--yolo"},
	},
	OpenCode: {
		id:        OpenCode,
		binary:    "opencode",
		flags:     []string{"run"},
		promptArg: true,
	},
}

// Lookup returns the adapter for name.
func Lookup(name string) (Agent, error) {
	a, ok := adapters[Identity(name)]
	if !ok {
		return nil, fmt.Errorf("%w %q (supported: %s)", ErrUnknownAgent, name, joinIdentities())
	}
	return a, nil
}

// Identities returns the supported identities in sorted order.
func Identities() []Identity {
	ids := make([]Identity, 0, len(adapters))
	for id := range adapters {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func joinIdentities() string {
	names := make([]string, 0, len(adapters))
	for _, id := range Identities() {
		names = append(names, string(id))
	}
	return strings.Join(names, ", ")
}

func (a *Adapter) Identity() Identity { return a.id }
func (a *Adapter) Binary() string     { return a.binary }

// Args returns the command-line arguments for an invocation. prompt is
// only used by adapters that take the prompt as an argument.
func (a *Adapter) Args(extra []string, prompt string) []string {
	args := make([]string, 0, len(a.flags)+len(extra)+1)
	args = append(args, a.flags...)
	args = append(args, extra...)
	if a.promptArg {
		args = append(args, prompt)
	}
	return args
}

// Invoke runs the agent once and blocks until it exits. A missing binary
// is reported as a NotFound result, not an error; errors are reserved for
// failures to start or to deliver output.
func (a *Adapter) Invoke(ctx context.Context, inv Invocation) (*Result, error) {
	path, err := exec.LookPath(a.binary)
	if err != nil {
		fmt.Fprintf(inv.Output, "ralph: %s: command not found in PATH\n", a.binary)
		return &Result{ExitCode: NotFoundExitCode, NotFound: true}, nil
	}

	prompt, err := os.Open(inv.PromptFile)
	if err != nil {
		return nil, fmt.Errorf("opening prompt: %w", err)
	}
	defer prompt.Close()

	var content string
	if a.promptArg {
		data, err := io.ReadAll(prompt)
		if err != nil {
			return nil, fmt.Errorf("reading prompt: %w", err)
		}
		content = string(data)
	}

	cmd := exec.CommandContext(ctx, path, a.Args(inv.ExtraArgs, content)...)
	cmd.Dir = inv.WorkDir
	cmd.Env = inv.Env
	if !a.promptArg {
		cmd.Stdin = prompt
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGTERM)
	}
	cmd.WaitDelay = 5 * time.Second

	// Same writer for both streams: exec then uses a single pipe and the
	// interleaving matches what a terminal would show.
	cmd.Stdout = inv.Output
	cmd.Stderr = inv.Output
	if a.echoes && inv.Stderr != nil {
		cmd.Stderr = inv.Stderr
	}

	code, err := exitCode(cmd.Run())
	if err != nil {
		return nil, err
	}
	return &Result{ExitCode: code}, nil
}

// exitCode extracts an exit code from a command error.
// Returns (code, nil) for ExitError, (0, err) for other errors, (0, nil) for nil.
func exitCode(err error) (int, error) {
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return 0, err
}
