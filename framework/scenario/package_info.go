// Package scenario runs named, nested test scenarios as ordinary application code, the way
// the testing package runs Go tests. The harness binary uses it to run its suites against
// live backends and report the results on the console.
package scenario
