package scaffold

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jorge-barreto/ralph/internal/compose"
	"github.com/jorge-barreto/ralph/internal/config"
	"github.com/jorge-barreto/ralph/internal/dispatch"
	"github.com/jorge-barreto/ralph/internal/state"
	"github.com/jorge-barreto/ralph/internal/ux"
)

const configTemplate = `# ralph project settings. Flags and RALPH_* environment variables
# override anything set here. Run 'ralph docs config' for every key.

agent: %s

# Stop after this many iterations; 0 runs until the completion token.
max-iterations: 20

completion-token: <DONE/>

# Extra arguments appended after the agent's own flags.
# agent-args:
#   - --model
#   - sonnet
`

const gitignoreTemplate = `runs/
ralph.log
effective_prompt.md
doctor_prompt.md
iteration.txt
last_start_utc.txt
last_end_utc.txt
run.json
timing.json
`

// Init lays out a ralph project in targetDir: .ralph/config.yaml, a seeded
// context.md, a starter PROMPT.md (unless one exists) and skills/shared/.
func Init(targetDir, agent string, out io.Writer) error {
	if _, err := dispatch.Lookup(agent); err != nil {
		return err
	}

	ralphDir := filepath.Join(targetDir, config.Dir)
	configPath := filepath.Join(ralphDir, config.ConfigFile)
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("%s already exists", configPath)
	}

	cfg := fmt.Sprintf(configTemplate, agent)
	if _, err := config.Parse([]byte(cfg)); err != nil {
		return fmt.Errorf("generated config is invalid: %w", err)
	}

	st := state.New(ralphDir)
	if err := st.Init(); err != nil {
		return err
	}
	if err := os.WriteFile(configPath, []byte(cfg), 0644); err != nil {
		return fmt.Errorf("writing config.yaml: %w", err)
	}
	if err := writeIfAbsent(filepath.Join(ralphDir, ".gitignore"), gitignoreTemplate); err != nil {
		return err
	}

	created := []string{
		filepath.Join(config.Dir, config.ConfigFile),
		filepath.Join(config.Dir, state.ContextFile),
	}

	promptName := config.PromptCandidates[0]
	if !anyExists(targetDir, config.PromptCandidates) {
		if err := writeIfAbsent(filepath.Join(targetDir, promptName), compose.DefaultPrompt); err != nil {
			return err
		}
		created = append(created, promptName)
	}

	sharedDir := filepath.Join(targetDir, config.DefaultSkills, compose.SharedSkills)
	if err := os.MkdirAll(sharedDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", sharedDir, err)
	}
	if err := writeIfAbsent(filepath.Join(sharedDir, ".gitkeep"), ""); err != nil {
		return err
	}
	skillsRel := filepath.Join(config.DefaultSkills, compose.SharedSkills)
	created = append(created, skillsRel+"/")

	fmt.Fprintf(out, "\n%s%s✓ Initialized ralph project%s\n\n", ux.Bold, ux.Green, ux.Reset)
	fmt.Fprintf(out, "  Created:\n")
	for _, c := range created {
		fmt.Fprintf(out, "    %s%s%s\n", ux.Cyan, c, ux.Reset)
	}
	fmt.Fprintf(out, "\n  Next steps:\n")
	fmt.Fprintf(out, "    1. Describe the work in %s%s%s\n", ux.Cyan, promptName, ux.Reset)
	fmt.Fprintf(out, "    2. Add skill fragments to %s%s%s\n", ux.Cyan, skillsRel, ux.Reset)
	fmt.Fprintf(out, "    3. Run %sralph run --dry-run%s to preview\n\n", ux.Cyan, ux.Reset)
	return nil
}

func writeIfAbsent(path, content string) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return nil
		}
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return f.Close()
}

func anyExists(dir string, names []string) bool {
	for _, n := range names {
		if _, err := os.Stat(filepath.Join(dir, n)); err == nil {
			return true
		}
	}
	return false
}
