package ux

import (
	"fmt"
	"io"
	"os"
	"time"
)

// ANSI color helpers
const (
	Reset  = "\033[0m"
	Bold   = "\033[1m"
	Dim    = "\033[2m"
	Red    = "\033[31m"
	Green  = "\033[32m"
	Yellow = "\033[33m"
	Cyan   = "\033[36m"
)

// Out receives all status lines. Tests swap it for a buffer.
var Out io.Writer = os.Stdout

func timestamp() string {
	return time.Now().Format("15:04:05")
}

// RunHeader prints the banner shown once when a run starts.
func RunHeader(agent, root string, max int) {
	budget := "unbounded"
	if max > 0 {
		budget = fmt.Sprintf("max %d", max)
	}
	fmt.Fprintf(Out, "%s[%s]%s %sralph%s agent=%s root=%s (%s)\n",
		Dim, timestamp(), Reset, Bold, Reset, agent, root, budget)
}

// IterationHeader prints a timestamped iteration header.
func IterationHeader(n, max int) {
	fmt.Fprintf(Out, "\n%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
	if max > 0 {
		fmt.Fprintf(Out, "%s[%s]%s  %sIteration %d/%d%s\n", Dim, timestamp(), Reset, Bold, n, max, Reset)
	} else {
		fmt.Fprintf(Out, "%s[%s]%s  %sIteration %d%s\n", Dim, timestamp(), Reset, Bold, n, Reset)
	}
	fmt.Fprintf(Out, "%s[%s]%s %s══════════════════════════════════════%s\n",
		Dim, timestamp(), Reset, Cyan, Reset)
}

// IterationComplete prints the end-of-iteration line.
func IterationComplete(n int, duration time.Duration) {
	m := int(duration.Minutes())
	s := int(duration.Seconds()) % 60
	fmt.Fprintf(Out, "%s[%s]%s  %s✓ Iteration %d finished (%dm %02ds)%s\n",
		Dim, timestamp(), Reset, Green, n, m, s, Reset)
}

// RunnerWarning reports a non-zero agent exit. The loop keeps going.
func RunnerWarning(n, exitCode int, notFound bool) {
	reason := fmt.Sprintf("exited with code %d", exitCode)
	if notFound {
		reason = "binary not found in PATH"
	}
	fmt.Fprintf(Out, "%s[%s]%s  %s⚠ Iteration %d: agent %s; continuing%s\n",
		Dim, timestamp(), Reset, Yellow, n, reason, Reset)
}

// Complete prints the success line.
func Complete(n int) {
	fmt.Fprintf(Out, "\n%s[%s]%s  %s%s══ Completed after %d iteration(s) ══%s\n\n",
		Dim, timestamp(), Reset, Bold, Green, n, Reset)
}

// Exhausted prints the budget-exhausted line.
func Exhausted(max int) {
	fmt.Fprintf(Out, "\n%s[%s]%s  %s✗ Reached max iterations (%d) without completion token%s\n",
		Dim, timestamp(), Reset, Red, max, Reset)
}

// Interrupted prints the operator-interrupt line.
func Interrupted(n int) {
	fmt.Fprintf(Out, "\n%s[%s]%s  %s✗ Interrupted during iteration %d%s\n",
		Dim, timestamp(), Reset, Yellow, n, Reset)
}
