package scenario

import (
	"strings"
)

// ID is the path of names from the root scenario to a subtest.
type ID []string

func (id ID) String() string {
	return strings.Join(id, "/")
}

// Plus returns a new ID for a child of id.
func (id ID) Plus(name string) ID {
	return append(append(ID(nil), id...), name)
}

// Result is the outcome of one scenario that was not skipped.
type Result struct {
	ID          ID
	Errors      []error
	NonCritical bool
	Explanation string
}

// Failed reports whether the scenario recorded any errors.
func (r Result) Failed() bool { return len(r.Errors) != 0 }

// Results accumulates the outcome of a run.
type Results struct {
	Tests               []Result
	Failures            []Result
	NonCriticalFailures []Result
}

// OK is true if nothing failed other than scenarios marked non-critical.
func (r Results) OK() bool {
	return len(r.Failures) == 0
}
