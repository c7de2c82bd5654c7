package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/jorge-barreto/ralph/internal/dispatch"
)

// ErrPromptNotFound is returned when a configured base prompt is missing.
var ErrPromptNotFound = errors.New("base prompt not found")

// Validate checks the resolved config. Every failure is a configuration
// error: the caller exits without starting the loop.
func Validate(cfg *Config) error {
	if _, err := dispatch.Lookup(cfg.Agent); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if cfg.MaxIterations < 0 {
		return fmt.Errorf("config: max-iterations must be >= 0, got %d", cfg.MaxIterations)
	}
	if cfg.Token == "" {
		return fmt.Errorf("config: completion token must not be empty")
	}
	if strings.ContainsAny(cfg.Token, "\r\n") {
		return fmt.Errorf("config: completion token must fit on one line")
	}
	if cfg.PromptPath != "" {
		info, err := os.Stat(cfg.PromptPath)
		if err != nil {
			return fmt.Errorf("config: %w: %s", ErrPromptNotFound, cfg.PromptPath)
		}
		if info.IsDir() {
			return fmt.Errorf("config: %w: %s is a directory", ErrPromptNotFound, cfg.PromptPath)
		}
	}
	for _, a := range cfg.AgentArgs {
		if strings.TrimSpace(a) == "" {
			return fmt.Errorf("config: 'agent-args' entries must be non-empty")
		}
	}
	return nil
}
