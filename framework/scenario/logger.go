package scenario

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"

	"github.com/near/workspaces-harness/framework"
	"github.com/near/workspaces-harness/framework/helpers"
)

var (
	consoleErrorColor       = color.New(color.FgYellow)
	consoleFailedColor      = color.New(color.FgRed)
	consoleNonCriticalColor = color.New(color.FgMagenta)
	consoleSkippedColor     = color.New(color.Faint, color.FgBlue)
	consoleDebugColor       = color.New(color.Faint)
	consolePassedColor      = color.New(color.FgGreen)
)

// Logger receives the progress of a run.
type Logger interface {
	TestStarted(id ID)
	TestError(id ID, err error)
	TestFinished(id ID, result Result, debugOutput framework.CapturedOutput)
	TestSkipped(id ID, reason string)
}

type nullLogger struct{}

func (nullLogger) TestStarted(ID)                                    {}
func (nullLogger) TestError(ID, error)                               {}
func (nullLogger) TestFinished(ID, Result, framework.CapturedOutput) {}
func (nullLogger) TestSkipped(ID, string)                            {}

// ConsoleLogger writes progress to standard output with colors.
type ConsoleLogger struct {
	DebugOutputOnFailure bool
	DebugOutputOnSuccess bool
}

func (c ConsoleLogger) TestStarted(id ID) {
	fmt.Printf("[%s]\n", id)
}

func (c ConsoleLogger) TestError(id ID, err error) {
	for _, line := range strings.Split(err.Error(), "\n") {
		_, _ = consoleErrorColor.Printf("  %s\n", line)
	}
}

func (c ConsoleLogger) TestFinished(id ID, result Result, debugOutput framework.CapturedOutput) {
	failed := result.Failed()
	if failed {
		c := helpers.IfElse(result.NonCritical, consoleNonCriticalColor, consoleFailedColor)
		_, _ = c.Printf("  FAILED%s: %s\n", helpers.IfElse(result.NonCritical, " (non-critical)", ""), id)
	}
	if len(debugOutput) > 0 &&
		((failed && c.DebugOutputOnFailure) || (!failed && c.DebugOutputOnSuccess)) {
		_, _ = consoleDebugColor.Println(debugOutput.ToString("    DEBUG "))
	}
}

func (c ConsoleLogger) TestSkipped(id ID, reason string) {
	if reason == "" {
		_, _ = consoleSkippedColor.Printf("  SKIPPED: %s\n", id)
	} else {
		_, _ = consoleSkippedColor.Printf("  SKIPPED: %s (%s)\n", id, reason)
	}
}

// PrintResults writes a summary of results, listing failures on standard error.
func PrintResults(results Results) {
	printResults(os.Stdout, os.Stderr, results)
}

func printResults(out, errOut io.Writer, results Results) {
	if len(results.NonCriticalFailures) != 0 {
		_, _ = consoleNonCriticalColor.Fprintf(out, "NON-CRITICAL FAILURES (%d):\n", len(results.NonCriticalFailures))
		for _, r := range results.NonCriticalFailures {
			_, _ = consoleNonCriticalColor.Fprintf(out, "  * %s (%s)\n", r.ID, r.Explanation)
		}
	}
	if results.OK() {
		_, _ = consolePassedColor.Fprintf(out, "All scenarios passed (%d run)\n", len(results.Tests))
		return
	}
	_, _ = consoleFailedColor.Fprintf(errOut, "FAILED SCENARIOS (%d):\n", len(results.Failures))
	for _, r := range results.Failures {
		_, _ = consoleFailedColor.Fprintf(errOut, "  * %s\n", r.ID)
	}
}
