package dispatch

import (
	"fmt"
	"os/exec"
	"strings"
)

// Preflight checks that every agent's binary is available on PATH.
func Preflight(agents ...Agent) error {
	var missing []string
	for _, a := range agents {
		if _, err := exec.LookPath(a.Binary()); err != nil {
			missing = append(missing, a.Binary())
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("required binaries not found in PATH: %s", strings.Join(missing, ", "))
	}
	return nil
}
