// Package compose builds the effective prompt handed to the agent on every
// iteration.
//
// The effective prompt is the concatenation, in fixed order, of the base
// prompt, the persistent context, the shared skill fragments, the
// agent-specific skill fragments, and a closing instruction naming the
// completion token. Composition reads only from disk, so anything the
// agent changed during the previous iteration is picked up.
package compose

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/jorge-barreto/ralph/internal/state"
)

// DefaultPrompt is used when no prompt file is found in the project.
//
//go:embed default_prompt.md
var DefaultPrompt string

// SharedSkills is the skills subdirectory applied to every agent.
const SharedSkills = "shared"

const separator = "\n---\n\n"

// Composer holds the inputs of one prompt composition.
type Composer struct {
	Agent     string // agent identity; selects <SkillsDir>/<Agent>
	BasePath  string // base prompt file; empty uses DefaultPrompt
	StateDir  string // holds context.md
	SkillsDir string
	Token     string
}

// Fragment is one skill file.
type Fragment struct {
	Name    string // file name without extension
	Content string
}

// Render returns the effective prompt.
func (c *Composer) Render() (string, error) {
	base, err := c.base()
	if err != nil {
		return "", err
	}

	var b strings.Builder
	writeBlock(&b, base)
	b.WriteString(separator)

	ctx, err := os.ReadFile(filepath.Join(c.StateDir, state.ContextFile))
	switch {
	case err == nil:
		b.WriteString("## Persistent Context\n\n")
		writeBlock(&b, string(ctx))
		b.WriteString("\n")
	case !errors.Is(err, fs.ErrNotExist):
		return "", fmt.Errorf("reading context: %w", err)
	}

	shared, err := LoadFragments(filepath.Join(c.SkillsDir, SharedSkills))
	if err != nil {
		return "", err
	}
	writeSkills(&b, "Shared Skills", shared)

	own, err := LoadFragments(filepath.Join(c.SkillsDir, c.Agent))
	if err != nil {
		return "", err
	}
	writeSkills(&b, titleCase(c.Agent)+" Skills", own)

	b.WriteString("## Completion\n\n")
	b.WriteString("When every task in the task list is finished and nothing tracked remains,\n")
	b.WriteString("print the following token on its own line, exactly as written:\n\n")
	b.WriteString(c.Token)
	b.WriteString("\n\nDo not print it at any other time, and do not quote it while working.\n")
	return b.String(), nil
}

// Build renders the prompt and overwrites outPath with it.
func (c *Composer) Build(outPath string) error {
	text, err := c.Render()
	if err != nil {
		return err
	}
	if err := os.WriteFile(outPath, []byte(text), 0644); err != nil {
		return fmt.Errorf("writing effective prompt: %w", err)
	}
	return nil
}

func (c *Composer) base() (string, error) {
	if c.BasePath == "" {
		return DefaultPrompt, nil
	}
	data, err := os.ReadFile(c.BasePath)
	if err != nil {
		return "", fmt.Errorf("reading base prompt: %w", err)
	}
	return string(data), nil
}

// LoadFragments returns the skill fragments in dir in directory-listing
// order. Hidden files and subdirectories are skipped. A missing directory
// yields no fragments and no error.
func LoadFragments(dir string) ([]Fragment, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading skills %s: %w", dir, err)
	}
	var out []Fragment
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, ".") || !e.Type().IsRegular() {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("reading skill %s: %w", name, err)
		}
		out = append(out, Fragment{
			Name:    strings.TrimSuffix(name, filepath.Ext(name)),
			Content: string(data),
		})
	}
	return out, nil
}

func writeSkills(b *strings.Builder, title string, frags []Fragment) {
	if len(frags) == 0 {
		return
	}
	b.WriteString("## " + title + "\n\n")
	for _, f := range frags {
		b.WriteString("### " + f.Name + "\n\n")
		writeBlock(b, f.Content)
		b.WriteString("\n")
	}
}

// writeBlock writes s verbatim, adding a trailing newline if s lacks one.
func writeBlock(b *strings.Builder, s string) {
	b.WriteString(s)
	if !strings.HasSuffix(s, "\n") {
		b.WriteString("\n")
	}
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
