package scenario

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"runtime/debug"
	"strings"

	"github.com/near/workspaces-harness/framework"
)

type environment struct {
	config  Config
	results Results
}

// Config contains options for a whole run.
type Config struct {
	// Filter optionally selects which scenarios run.
	Filter Filter

	// Logger receives the progress of each scenario.
	Logger Logger

	// Context is the context of the root scenario. It defaults to context.Background().
	Context context.Context
}

// T is one scenario. Like testing.T, it satisfies the interfaces that testify's assert and
// require packages need.
type T struct {
	env         *environment
	id          ID
	ctx         context.Context
	debugLogger framework.CapturingLogger
	nonCritical string
	failed      bool
	skipped     bool
	skipReason  string
	cleanups    []func()
	errors      []error
}

// Run runs the root scenario and returns the results of it and all of its subtests.
func Run(config Config, action func(*T)) Results {
	if config.Logger == nil {
		config.Logger = nullLogger{}
	}
	if config.Context == nil {
		config.Context = context.Background()
	}
	env := &environment{config: config}
	t := &T{env: env, ctx: config.Context}
	t.run(action)
	return env.results
}

func (t *T) run(action func(*T)) (result Result) {
	result.ID = t.id
	defer func() {
		if r := recover(); r != nil && !t.skipped {
			t.failed = true
			var addError error
			if _, ok := r.(*T); ok {
				if len(t.errors) == 0 {
					addError = errors.New("scenario failed with no failure message")
				}
			} else {
				addError = fmt.Errorf("unexpected panic: %+v\n%s", r, string(debug.Stack()))
			}
			if addError != nil {
				t.errors = append(t.errors, addError)
				t.env.config.Logger.TestError(t.id, addError)
			}
		}
		for i := len(t.cleanups) - 1; i >= 0; i-- {
			t.cleanups[i]()
		}
		if t.skipped {
			return
		}
		result.Errors = t.errors
		if t.failed {
			if t.nonCritical == "" {
				t.env.results.Failures = append(t.env.results.Failures, result)
			} else {
				result.NonCritical = true
				result.Explanation = t.nonCritical
				t.env.results.NonCriticalFailures = append(t.env.results.NonCriticalFailures, result)
			}
		}
		t.env.results.Tests = append(t.env.results.Tests, result)
	}()

	action(t)
	return result
}

// ID returns the full name of the scenario.
func (t *T) ID() ID {
	return t.id
}

// Run runs a subtest, which inherits this scenario's context and non-critical status.
func (t *T) Run(name string, action func(*T)) {
	t.RunWithContext(t.ctx, name, action)
}

// RunWithContext is like Run, but the subtest's Context is ctx.
func (t *T) RunWithContext(ctx context.Context, name string, action func(*T)) {
	id := t.id.Plus(name)
	if t.env.config.Filter != nil && !t.env.config.Filter(id) {
		t.env.config.Logger.TestSkipped(id, "excluded by filter parameters")
		return
	}
	t.env.config.Logger.TestStarted(id)
	child := &T{id: id, env: t.env, ctx: ctx, nonCritical: t.nonCritical}
	t.debugLogger.AddChildLogger(&child.debugLogger)
	result := child.run(action)
	t.debugLogger.RemoveChildLogger(&child.debugLogger)
	if child.skipped {
		t.env.config.Logger.TestSkipped(id, child.skipReason)
	} else {
		t.env.config.Logger.TestFinished(id, result, child.debugLogger.Output())
	}
}

// NonCritical marks failures of this scenario and its subtests as non-critical: they are
// reported, but do not make the run fail.
func (t *T) NonCritical(explanation string) {
	t.nonCritical = explanation
}

// Errorf marks the scenario as failed and records the message. It does not stop the
// scenario.
func (t *T) Errorf(format string, args ...interface{}) {
	t.failed = true
	err := cleanAssertionMessage(fmt.Errorf(format, args...))
	t.errors = append(t.errors, err)
	t.env.config.Logger.TestError(t.id, err)
}

// FailNow stops the scenario and marks it as failed.
func (t *T) FailNow() {
	panic(t)
}

// Skip stops the scenario and marks it as skipped.
func (t *T) Skip() {
	t.skipped = true
	panic(t)
}

// SkipWithReason is like Skip, with a message.
func (t *T) SkipWithReason(reason string) {
	t.skipReason = reason
	t.Skip()
}

// Helper exists for compatibility with assertion libraries.
func (t *T) Helper() {}

// Debug writes a message to the captured output of this scenario.
func (t *T) Debug(message string, args ...interface{}) {
	t.debugLogger.Printf(message, args...)
}

// DebugLogger returns a Logger for the captured output of this scenario. While a subtest
// runs, output sent here goes to the subtest, which also starts with a copy of what the
// parent had logged so far.
func (t *T) DebugLogger() framework.Logger {
	return &t.debugLogger
}

// Defer schedules a function to run when the scenario exits for any reason.
func (t *T) Defer(cleanupFn func()) {
	t.cleanups = append(t.cleanups, cleanupFn)
}

// Context returns the context of this scenario.
func (t *T) Context() context.Context {
	return t.ctx
}

var assertionTraceRegex = regexp.MustCompile(`^(?s:\s*Error Trace:.*\sError:\s*)`)

// cleanAssertionMessage drops the stacktrace that testify puts in front of its messages;
// scenario output is read by people running the harness, not by the test's authors.
func cleanAssertionMessage(err error) error {
	message := err.Error()
	if !strings.Contains(message, "Error Trace:") {
		return err
	}
	return errors.New(strings.TrimSpace(assertionTraceRegex.ReplaceAllLiteralString(message, "")))
}
