package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jorge-barreto/ralph/internal/config"
	"github.com/jorge-barreto/ralph/internal/dispatch"
	"github.com/jorge-barreto/ralph/internal/docs"
	"github.com/jorge-barreto/ralph/internal/doctor"
	"github.com/jorge-barreto/ralph/internal/follow"
	"github.com/jorge-barreto/ralph/internal/logging"
	"github.com/jorge-barreto/ralph/internal/runner"
	"github.com/jorge-barreto/ralph/internal/scaffold"
	"github.com/jorge-barreto/ralph/internal/state"
	"github.com/jorge-barreto/ralph/internal/ux"
	cli "github.com/urfave/cli/v3"
)

func main() {
	if err := newApp().Run(context.Background(), os.Args); err != nil {
		code := exitCode(err)
		if code != runner.ExitInterrupted {
			fmt.Fprintf(os.Stderr, "%serror:%s %v\n", ux.Red, ux.Reset, err)
		}
		os.Exit(code)
	}
}

func newApp() *cli.Command {
	return &cli.Command{
		Name:        "ralph",
		Usage:       "Run a coding agent in a loop until the work is done",
		Description: "Run 'ralph docs' for documentation on configuration, prompts, skills, and more.",
		Commands: []*cli.Command{
			initCmd(),
			runCmd(),
			promptCmd(),
			statusCmd(),
			tailCmd(),
			doctorCmd(),
			docsCmd(),
		},
	}
}

// exitCode maps an error to the process exit status. The runner returns an
// *runner.ExitError for every outcome it decides; anything else failed
// before the loop started (bad flags, bad input) and counts as a
// configuration error.
func exitCode(err error) int {
	var exitErr *runner.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.Code
	}
	return runner.ExitConfig
}

func configFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Usage: "Agent CLI to invoke (" + agentList() + ")"},
		&cli.StringFlag{Name: "prompt", Aliases: []string{"p"}, Usage: "Base prompt file"},
		&cli.StringFlag{Name: "root", Usage: "Working root the agent operates in"},
		&cli.StringFlag{Name: "state-dir", Usage: "State directory (default <root>/.ralph)"},
		&cli.StringFlag{Name: "skills-dir", Usage: "Skills directory (default <root>/skills)"},
		&cli.IntFlag{Name: "max-iterations", Aliases: []string{"n"}, Usage: "Stop after N iterations (0 = unbounded)"},
		&cli.StringFlag{Name: "token", Usage: "Completion token the agent prints when done"},
		&cli.BoolFlag{Name: "strict", Usage: "Fail at startup if the agent binary is not in PATH"},
		&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "Mirror debug events to stderr", Sources: cli.EnvVars("RALPH_VERBOSE")},
	}
}

// resolveConfig applies flags that were explicitly set on top of the
// environment, project file and defaults.
func resolveConfig(cmd *cli.Command) (*config.Config, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}

	var o config.Overrides
	str := func(name string) *string {
		if !cmd.IsSet(name) {
			return nil
		}
		v := cmd.String(name)
		return &v
	}
	o.Agent = str("agent")
	o.Prompt = str("prompt")
	o.Root = str("root")
	o.StateDir = str("state-dir")
	o.SkillsDir = str("skills-dir")
	o.Token = str("token")
	if cmd.IsSet("max-iterations") {
		n := int(cmd.Int("max-iterations"))
		o.MaxIterations = &n
	}
	if cmd.IsSet("strict") {
		b := cmd.Bool("strict")
		o.Strict = &b
	}

	cfg, err := config.Resolve(cwd, o, os.LookupEnv)
	if err != nil {
		return nil, &runner.ExitError{Code: runner.ExitConfig, Err: err}
	}
	return cfg, nil
}

func lookupAgent(cfg *config.Config) (dispatch.Agent, error) {
	agent, err := dispatch.Lookup(cfg.Agent)
	if err != nil {
		return nil, &runner.ExitError{Code: runner.ExitConfig, Err: err}
	}
	if cfg.Strict {
		if err := dispatch.Preflight(agent); err != nil {
			return nil, &runner.ExitError{Code: runner.ExitConfig, Err: err}
		}
	}
	return agent, nil
}

func runCmd() *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Invoke the agent repeatedly until it prints the completion token",
		Flags: append(configFlags(),
			&cli.BoolFlag{Name: "dry-run", Usage: "Print the resolved plan without invoking the agent"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			agent, err := lookupAgent(cfg)
			if err != nil {
				return err
			}

			if cmd.Bool("dry-run") {
				r := runner.New(cfg, agent, logging.Nop())
				if err := r.DryRunPrint(os.Stdout); err != nil {
					return &runner.ExitError{Code: runner.ExitConfig, Err: err}
				}
				return nil
			}

			log, err := logging.New(logging.Options{Dir: cfg.StateDir, Verbose: cmd.Bool("verbose")})
			if err != nil {
				return &runner.ExitError{Code: runner.ExitState, Err: err}
			}
			defer log.Close()
			log.Debug().
				Str("prompt", cfg.PromptPath).
				Str("prompt_source", cfg.PromptSource).
				Str("project_file", cfg.ProjectFile).
				Msg("configuration resolved")

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
			defer stop()

			return runner.New(cfg, agent, log).Run(ctx)
		},
	}
}

func promptCmd() *cli.Command {
	return &cli.Command{
		Name:  "prompt",
		Usage: "Print the effective prompt the next iteration would receive",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			r := runner.New(cfg, nil, logging.Nop())
			text, err := r.Composer.Render()
			if err != nil {
				return err
			}
			fmt.Print(text)
			return nil
		},
	}
}

func statusCmd() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show the state of the last run",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			return ux.RenderStatus(state.New(cfg.StateDir))
		},
	}
}

func tailCmd() *cli.Command {
	return &cli.Command{
		Name:  "tail",
		Usage: "Print the latest iteration log",
		Flags: append(configFlags(),
			&cli.BoolFlag{Name: "follow", Aliases: []string{"f"}, Usage: "Keep following new output and iterations"},
		),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			log, err := logging.New(logging.Options{Verbose: cmd.Bool("verbose")})
			if err != nil {
				return err
			}
			f := follow.New(state.New(cfg.StateDir), os.Stdout, log.Logger)
			if !cmd.Bool("follow") {
				return f.CopyLast()
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return f.Run(ctx)
		},
	}
}

func doctorCmd() *cli.Command {
	return &cli.Command{
		Name:  "doctor",
		Usage: "Ask the agent to diagnose a loop that is not converging",
		Flags: configFlags(),
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := resolveConfig(cmd)
			if err != nil {
				return err
			}
			agent, err := lookupAgent(cfg)
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer stop()
			return doctor.Run(ctx, cfg, state.New(cfg.StateDir), agent, os.Stdout)
		},
	}
}

func initCmd() *cli.Command {
	return &cli.Command{
		Name:  "init",
		Usage: "Create .ralph/config.yaml, a starter PROMPT.md and skills/",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "agent", Aliases: []string{"a"}, Value: config.DefaultAgent, Usage: "Agent to configure (" + agentList() + ")"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			dir, err := os.Getwd()
			if err != nil {
				return err
			}
			return scaffold.Init(dir, cmd.String("agent"), os.Stdout)
		},
	}
}

func docsCmd() *cli.Command {
	return &cli.Command{
		Name:      "docs",
		Usage:     "Show documentation",
		ArgsUsage: "[topic]",
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "plain", Usage: "Print raw markdown"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			name := cmd.Args().First()
			if name == "" {
				fmt.Print("\nAvailable topics:\n\n")
				for _, t := range docs.All() {
					fmt.Printf("  %-14s %s\n", t.Name, t.Summary)
				}
				fmt.Println("\nRun 'ralph docs <topic>' to read a topic.")
				return nil
			}
			t, err := docs.Get(name)
			if err != nil {
				return err
			}
			fmt.Print(docs.Render(t.Content, cmd.Bool("plain")))
			return nil
		},
	}
}

func agentList() string {
	var names []string
	for _, id := range dispatch.Identities() {
		names = append(names, string(id))
	}
	return strings.Join(names, ", ")
}
