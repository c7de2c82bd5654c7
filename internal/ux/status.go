package ux

import (
	"fmt"

	"github.com/jorge-barreto/ralph/internal/state"
)

// RenderStatus prints what the state directory says about the last run.
func RenderStatus(st *state.Store) error {
	info, err := st.LoadRunInfo()
	if err != nil {
		return fmt.Errorf("loading run info: %w", err)
	}
	last, err := st.LastIteration()
	if err != nil {
		return fmt.Errorf("reading iteration marker: %w", err)
	}
	timing, err := st.LoadTiming()
	if err != nil {
		return fmt.Errorf("loading timing: %w", err)
	}

	fmt.Fprintf(Out, "%sState:%s   %s\n", Bold, Reset, st.Dir)
	if info == nil && last == 0 {
		fmt.Fprintf(Out, "  %s(no runs recorded)%s\n", Dim, Reset)
		return nil
	}

	if info != nil {
		fmt.Fprintf(Out, "%sRun:%s     %s\n", Bold, Reset, info.RunID)
		fmt.Fprintf(Out, "%sAgent:%s   %s\n", Bold, Reset, info.Agent)
		fmt.Fprintf(Out, "%sStarted:%s %s\n", Bold, Reset, info.StartedAt.Format("2006-01-02 15:04:05Z"))
		fmt.Fprintf(Out, "%sStatus:%s  %s\n", Bold, Reset, colorStatus(info.Status))
	}

	if last > 0 {
		fmt.Fprintf(Out, "\n%sIterations:%s\n", Bold, Reset)
		for n := 1; n <= last; n++ {
			marker := st.ReadStatus(n)
			if marker == "" {
				marker = "in progress"
			}
			dur := ""
			if e, ok := timing.Find(n); ok && e.Duration != "" {
				dur = fmt.Sprintf("(%s)", e.Duration)
			}
			fmt.Fprintf(Out, "  %s%3d%s  %-22s %s  %s%s%s\n",
				Dim, n, Reset, marker, dur, Dim, st.LogPath(n), Reset)
		}
	}
	fmt.Fprintln(Out)
	return nil
}

func colorStatus(s string) string {
	switch s {
	case state.StatusCompleted:
		return Green + s + Reset
	case state.StatusRunning:
		return Cyan + s + Reset
	case state.StatusInterrupted, state.StatusExhausted:
		return Yellow + s + Reset
	default:
		return Red + s + Reset
	}
}
