package dispatch

import (
	"os"
	"strconv"
	"strings"
)

// Environment holds what the agent process is told about the loop.
type Environment struct {
	Root        string
	StateDir    string
	Agent       Identity
	Iteration   int
	filteredEnv []string // lazily populated base env (os.Environ minus CLAUDECODE)
}

// BuildEnv returns the environment for the agent process.
// It inherits the current environment, adds RALPH_ variables, and strips
// CLAUDECODE so a nested claude does not refuse to start.
// The base environment is snapshotted once per Environment and reused.
func BuildEnv(env *Environment) []string {
	if env.filteredEnv == nil {
		for _, e := range os.Environ() {
			key := strings.SplitN(e, "=", 2)[0]
			if strings.HasPrefix(key, "CLAUDECODE") {
				continue
			}
			env.filteredEnv = append(env.filteredEnv, e)
		}
	}
	result := make([]string, len(env.filteredEnv), len(env.filteredEnv)+4)
	copy(result, env.filteredEnv)
	return append(result,
		"RALPH_ROOT="+env.Root,
		"RALPH_STATE_DIR="+env.StateDir,
		"RALPH_AGENT="+string(env.Agent),
		"RALPH_ITERATION="+strconv.Itoa(env.Iteration),
	)
}
