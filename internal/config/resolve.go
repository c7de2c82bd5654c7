package config

import (
	"fmt"
	"path/filepath"
	"strconv"
)

// LookupEnv matches os.LookupEnv.
type LookupEnv func(key string) (string, bool)

// Resolve layers defaults, the project file, the environment and flags
// into a validated Config. cwd anchors root discovery and relative paths.
func Resolve(cwd string, flags Overrides, env LookupEnv) (*Config, error) {
	root := ""
	switch {
	case flags.Root != nil:
		root = *flags.Root
	case envSet(env, EnvRoot):
		root, _ = env(EnvRoot)
	default:
		root = FindRoot(cwd)
	}
	root = absFrom(cwd, root)

	file, err := LoadFile(root)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Agent: DefaultAgent,
		Root:  root,
		Token: DefaultToken,
	}
	stateDir := Dir
	skillsDir := DefaultSkills
	prompt, promptSource := "", ""

	if file != nil {
		cfg.ProjectFile = filepath.Join(root, Dir, ConfigFile)
		if file.Agent != "" {
			cfg.Agent = file.Agent
		}
		if file.Prompt != "" {
			prompt, promptSource = file.Prompt, "file"
		}
		if file.StateDir != "" {
			stateDir = file.StateDir
		}
		if file.SkillsDir != "" {
			skillsDir = file.SkillsDir
		}
		if file.MaxIterations != nil {
			cfg.MaxIterations = *file.MaxIterations
		}
		if file.CompletionToken != "" {
			cfg.Token = file.CompletionToken
		}
		cfg.Strict = file.Strict
		cfg.AgentArgs = file.AgentArgs
	}

	if v, ok := env(EnvAgent); ok && v != "" {
		cfg.Agent = v
	}
	if v, ok := env(EnvPrompt); ok && v != "" {
		prompt, promptSource = v, "env"
	}
	if v, ok := env(EnvStateDir); ok && v != "" {
		stateDir = v
	}
	if v, ok := env(EnvSkillsDir); ok && v != "" {
		skillsDir = v
	}
	if v, ok := env(EnvMaxIterations); ok && v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not an integer", EnvMaxIterations, v)
		}
		cfg.MaxIterations = n
	}
	if v, ok := env(EnvToken); ok && v != "" {
		cfg.Token = v
	}

	if flags.Agent != nil {
		cfg.Agent = *flags.Agent
	}
	// Paths typed on the command line are relative to where the user is;
	// everything else is relative to the root.
	if flags.Prompt != nil {
		prompt, promptSource = absFrom(cwd, *flags.Prompt), "flag"
	}
	if flags.StateDir != nil {
		stateDir = absFrom(cwd, *flags.StateDir)
	}
	if flags.SkillsDir != nil {
		skillsDir = absFrom(cwd, *flags.SkillsDir)
	}
	if flags.MaxIterations != nil {
		cfg.MaxIterations = *flags.MaxIterations
	}
	if flags.Token != nil {
		cfg.Token = *flags.Token
	}
	if flags.Strict != nil {
		cfg.Strict = *flags.Strict
	}

	cfg.StateDir = absFrom(root, stateDir)
	cfg.SkillsDir = absFrom(root, skillsDir)

	if prompt != "" {
		cfg.PromptPath = absFrom(root, prompt)
		cfg.PromptSource = promptSource
	} else {
		cfg.PromptPath, cfg.PromptSource = discoverPrompt(root)
	}

	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// discoverPrompt returns the first prompt candidate under root, or "" for
// the bundled default.
func discoverPrompt(root string) (path, source string) {
	for _, name := range PromptCandidates {
		p := filepath.Join(root, name)
		if exists(p) {
			return p, "discovered"
		}
	}
	return "", "bundled"
}

func envSet(env LookupEnv, key string) bool {
	v, ok := env(key)
	return ok && v != ""
}

func absFrom(base, p string) string {
	if filepath.IsAbs(p) {
		return filepath.Clean(p)
	}
	return filepath.Join(base, p)
}
