// Package config resolves the orchestrator's settings.
//
// Precedence, highest first: explicit flag, environment variable, project
// file (<root>/.ralph/config.yaml), built-in default.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

const (
	// Dir is the project directory holding config.yaml and, by default,
	// the state directory.
	Dir = ".ralph"

	ConfigFile = "config.yaml"

	DefaultAgent  = "claude"
	DefaultToken  = "<DONE/>"
	DefaultSkills = "skills"
)

// PromptCandidates are probed at the working root, in order, when no
// prompt is configured.
var PromptCandidates = []string{"PROMPT.md", "RALPH.md"}

// Environment variable names.
const (
	EnvAgent         = "RALPH_AGENT"
	EnvPrompt        = "RALPH_PROMPT"
	EnvRoot          = "RALPH_ROOT"
	EnvStateDir      = "RALPH_STATE_DIR"
	EnvSkillsDir     = "RALPH_SKILLS_DIR"
	EnvMaxIterations = "RALPH_MAX_ITERATIONS"
	EnvToken         = "RALPH_COMPLETION_TOKEN"
)

// File models <root>/.ralph/config.yaml. Every field is optional.
type File struct {
	Agent           string   `yaml:"agent"`
	Prompt          string   `yaml:"prompt"`
	StateDir        string   `yaml:"state-dir"`
	SkillsDir       string   `yaml:"skills-dir"`
	MaxIterations   *int     `yaml:"max-iterations"`
	CompletionToken string   `yaml:"completion-token"`
	Strict          bool     `yaml:"strict"`
	AgentArgs       []string `yaml:"agent-args"`
}

// Parse decodes a project file, rejecting unknown keys.
func Parse(data []byte) (*File, error) {
	var f File
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil && !errors.Is(err, io.EOF) {
		return nil, err
	}
	return &f, nil
}

// LoadFile reads the project file under root. A missing file is not an
// error; it returns nil.
func LoadFile(root string) (*File, error) {
	path := filepath.Join(root, Dir, ConfigFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	f, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Config is the fully resolved configuration.
type Config struct {
	Agent         string
	Root          string
	PromptPath    string // empty means the bundled default prompt
	PromptSource  string // flag, env, file, discovered, bundled
	StateDir      string
	SkillsDir     string
	MaxIterations int // 0 = unbounded
	Token         string
	Strict        bool
	AgentArgs     []string
	ProjectFile   string // path of the loaded project file, if any
}

// Overrides carries explicitly set flags. Nil fields were not given.
type Overrides struct {
	Agent         *string
	Prompt        *string
	Root          *string
	StateDir      *string
	SkillsDir     *string
	MaxIterations *int
	Token         *string
	Strict        *bool
}

// FindRoot walks up from dir looking for .ralph/config.yaml or a prompt
// candidate. Falls back to dir itself.
func FindRoot(dir string) string {
	for d := dir; ; {
		if exists(filepath.Join(d, Dir, ConfigFile)) {
			return d
		}
		for _, name := range PromptCandidates {
			if exists(filepath.Join(d, name)) {
				return d
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			return dir
		}
		d = parent
	}
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
