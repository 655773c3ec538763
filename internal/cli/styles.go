package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bpradana/deeply"
)

var (
	primaryColor   = lipgloss.Color("#5FAFAF")
	secondaryColor = lipgloss.Color("#666666")
	successColor   = lipgloss.Color("#87AF87")
	errorColor     = lipgloss.Color("#AF5F5F")
	warnColor      = lipgloss.Color("#D7AF5F")

	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(primaryColor)
	subtleStyle  = lipgloss.NewStyle().Foreground(secondaryColor)
	successStyle = lipgloss.NewStyle().Foreground(successColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)
	warnStyle    = lipgloss.NewStyle().Foreground(warnColor)
)

func statusMark(status deeply.Status) string {
	switch status {
	case deeply.StatusSucceeded:
		return successStyle.Render("✓")
	case deeply.StatusFailed:
		return errorStyle.Render("✗")
	case deeply.StatusCancelled:
		return warnStyle.Render("⊘")
	default:
		return subtleStyle.Render("·")
	}
}

// printPhase writes one line per task of the phase followed by the totals.
func printPhase(w io.Writer, report *deeply.Report, phase deeply.Phase) {
	fmt.Fprintln(w, titleStyle.Render(strings.ToUpper(string(phase))))
	for _, task := range report.Tasks() {
		m, _ := report.Metrics(phase, task)
		line := fmt.Sprintf("%s %s%s %s", statusMark(m.Status), strings.Repeat("  ", deeply.Depth(task)), task.Name(), subtleStyle.Render(string(m.Status)))
		if m.Status.Terminal() {
			line += " " + subtleStyle.Render(m.Duration.Round(time.Millisecond).String())
		}
		fmt.Fprintln(w, line)
	}

	s := report.Summary(phase)
	totals := fmt.Sprintf("%d tasks: %d succeeded, %d failed, %d cancelled, %d not started (%s)",
		s.TasksTotal, s.TasksSucceeded, s.TasksFailed, s.TasksCancelled, s.TasksNotStarted,
		s.Duration.Round(time.Millisecond))
	switch {
	case s.TasksFailed > 0:
		fmt.Fprintln(w, errorStyle.Render(totals))
	case s.TasksCancelled > 0:
		fmt.Fprintln(w, warnStyle.Render(totals))
	default:
		fmt.Fprintln(w, successStyle.Render(totals))
	}
}

// printTree writes the task tree with composites marked by their execute mode.
func printTree(w io.Writer, root deeply.Task) error {
	return deeply.Walk(root, func(task deeply.Task, depth int) error {
		label := task.Name()
		if c, ok := task.(*deeply.Composite); ok {
			mode := "sequential"
			if c.Concurrent() {
				mode = "parallel"
			}
			label = titleStyle.Render(label) + " " + subtleStyle.Render("("+mode+")")
		}
		_, err := fmt.Fprintf(w, "%s%s\n", strings.Repeat("  ", depth), label)
		return err
	})
}
