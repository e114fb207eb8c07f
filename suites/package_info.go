// Package suites contains the scenarios that the harness command runs against live backends.
// Each configured backend gets its own scope; scenarios inside it use the workspaces API
// exactly as a user's test program would.
package suites
