package docs

var topics = []Topic{
	{
		Name:    "quickstart",
		Title:   "Quick Start",
		Summary: "Getting started with ralph",
		Content: topicQuickstart,
	},
	{
		Name:    "config",
		Title:   "Configuration Reference",
		Summary: "Flags, environment variables, config.yaml and precedence",
		Content: topicConfig,
	},
	{
		Name:    "prompt",
		Title:   "The Effective Prompt",
		Summary: "How the prompt handed to the agent is composed",
		Content: topicPrompt,
	},
	{
		Name:    "skills",
		Title:   "Skills",
		Summary: "Shared and agent-specific skill fragments",
		Content: topicSkills,
	},
	{
		Name:    "agents",
		Title:   "Supported Agents",
		Summary: "Agent CLIs, their flags, and how the prompt is delivered",
		Content: topicAgents,
	},
	{
		Name:    "state",
		Title:   "State Directory",
		Summary: "Structure of .ralph/ and what gets saved",
		Content: topicState,
	},
	{
		Name:    "exit-codes",
		Title:   "Exit Codes",
		Summary: "What each ralph exit status means",
		Content: topicExitCodes,
	},
}

const topicQuickstart = "# Quick Start\n\n" +
	"1. Initialize a project:\n\n" +
	"```\ncd your-project\nralph init\n```\n\n" +
	"   This creates `.ralph/config.yaml`, a starter `PROMPT.md` and `skills/shared/`.\n\n" +
	"2. Describe the work in `PROMPT.md`. Keep a task list the agent can tick off,\n" +
	"   for example `TODO.md`, and tell the agent to work on one item per run.\n\n" +
	"3. Run the loop:\n\n" +
	"```\nralph run --max-iterations 20\n```\n\n" +
	"   ralph invokes the agent with the composed prompt, waits for it to exit,\n" +
	"   and starts again. It stops when the agent prints the completion token\n" +
	"   (`<DONE/>` by default) or when the iteration budget runs out.\n\n" +
	"4. Watch progress from another terminal with `ralph tail -f`, check\n" +
	"   `ralph status`, and ask `ralph doctor` when the loop is not converging.\n"

const topicConfig = "# Configuration Reference\n\n" +
	"Every setting resolves with the same precedence, highest first:\n" +
	"command-line flag, environment variable, `.ralph/config.yaml`, built-in default.\n\n" +
	"| Flag | Environment | config.yaml | Default |\n" +
	"|---|---|---|---|\n" +
	"| `--agent` | `RALPH_AGENT` | `agent` | `claude` |\n" +
	"| `--prompt` | `RALPH_PROMPT` | `prompt` | `PROMPT.md`, then `RALPH.md`, then bundled |\n" +
	"| `--root` | `RALPH_ROOT` | | nearest directory with `.ralph/config.yaml` or `PROMPT.md` |\n" +
	"| `--state-dir` | `RALPH_STATE_DIR` | `state-dir` | `<root>/.ralph` |\n" +
	"| `--skills-dir` | `RALPH_SKILLS_DIR` | `skills-dir` | `<root>/skills` |\n" +
	"| `--max-iterations` | `RALPH_MAX_ITERATIONS` | `max-iterations` | `0` (unbounded) |\n" +
	"| `--token` | `RALPH_COMPLETION_TOKEN` | `completion-token` | `<DONE/>` |\n" +
	"| `--strict` | | `strict` | `false` |\n" +
	"| `--verbose` | `RALPH_VERBOSE` | | `false` |\n" +
	"| | | `agent-args` | none |\n\n" +
	"Relative paths given as flags are resolved against the current directory;\n" +
	"relative paths from the environment or `config.yaml` against the working\n" +
	"root. Unknown keys in `config.yaml` are rejected.\n\n" +
	"```yaml\nagent: codex\nmax-iterations: 25\ncompletion-token: <DONE/>\nagent-args:\n  - --model\n  - o3\n```\n\n" +
	"`--strict` makes a missing agent binary a startup error instead of a\n" +
	"per-iteration warning.\n"

const topicPrompt = "# The Effective Prompt\n\n" +
	"Before every iteration ralph writes `<state-dir>/effective_prompt.md` by\n" +
	"concatenating, in this order:\n\n" +
	"1. the base prompt, verbatim;\n" +
	"2. a `---` separator;\n" +
	"3. `## Persistent Context` with the contents of `<state-dir>/context.md`;\n" +
	"4. `## Shared Skills`, one `### <name>` per file in `<skills>/shared/`;\n" +
	"5. `## <Agent> Skills` for `<skills>/<agent>/`;\n" +
	"6. `## Completion`, telling the agent to print the completion token on its\n" +
	"   own line once every tracked task is finished.\n\n" +
	"Everything is read from disk each time, so edits the agent makes to\n" +
	"`context.md` or the skills are picked up by the next iteration. The agent\n" +
	"keeps no memory between iterations; the filesystem is the memory.\n\n" +
	"Run `ralph prompt` to print the composed prompt without running anything.\n"

const topicSkills = "# Skills\n\n" +
	"Skills are markdown fragments appended to every prompt.\n\n" +
	"```\nskills/\n  shared/        applied to every agent\n    testing.md\n  claude/        only when --agent claude\n    tools.md\n```\n\n" +
	"Each fragment appears under a heading named after the file, without its\n" +
	"extension. Fragments are included in directory-listing order. Hidden files\n" +
	"and subdirectories are ignored. A missing directory is not an error.\n"

const topicAgents = "# Supported Agents\n\n" +
	"| Agent | Command | Prompt via |\n" +
	"|---|---|---|\n" +
	"| `claude` | `claude -p --dangerously-skip-permissions` | stdin |\n" +
	"| `codex` | `codex exec --dangerously-bypass-approvals-and-sandbox -` | stdin |\n" +
	"| `gemini` | `gemini --yolo` | stdin |\n" +
	"| `opencode` | `opencode run <prompt>` | argument |\n\n" +
	"All agents run unattended in the working root with the parent environment\n" +
	"minus `CLAUDECODE*`, plus `RALPH_ITERATION`, `RALPH_STATE_DIR`, `RALPH_ROOT`\n" +
	"and `RALPH_AGENT`. `agent-args` from config.yaml are appended after the\n" +
	"agent's own flags.\n\n" +
	"A missing binary is reported in the iteration log with exit code 127 and\n" +
	"the loop carries on, unless `--strict` is set.\n"

const topicState = "# State Directory\n\n" +
	"```\n.ralph/\n  config.yaml            project settings\n  context.md             persistent context, yours and the agent's to edit\n" +
	"  effective_prompt.md    last composed prompt\n  iteration.txt          current iteration number\n" +
	"  last_start_utc.txt     start of the current iteration\n  last_end_utc.txt       end of the last finished iteration\n" +
	"  run.json               run ID, agent, status\n  timing.json            per-iteration durations\n" +
	"  ralph.log              structured event log (JSON lines)\n  runs/\n    1.log                full agent output\n    1.stderr.log         prompt echo from agents that print it (codex)\n    1.status             ok exit=0 | failed exit=N | not-found exit=127\n```\n\n" +
	"Markers are overwritten whole on every write. They exist for humans and\n" +
	"tools like `ralph status`; ralph never resumes from them. `context.md` is\n" +
	"created with placeholder text only if it does not exist.\n"

const topicExitCodes = "# Exit Codes\n\n" +
	"| Code | Meaning |\n" +
	"|---|---|\n" +
	"| 0 | the completion token was observed |\n" +
	"| 1 | max iterations reached without the token |\n" +
	"| 2 | configuration error (unknown agent, missing prompt, bad value) |\n" +
	"| 3 | the state directory could not be written |\n" +
	"| 130 | interrupted by SIGINT, SIGTERM or SIGHUP |\n\n" +
	"A non-zero exit from the agent is only a warning; the loop continues.\n"
