// Package workspaces is the API that tests use to create accounts, deploy contracts, call
// them and inspect their state. Every operation acts on the backend that is current in the
// context it is given, so the same test code can run against a local sandbox inside
// WithSandbox or against the test network inside WithTestnet.
package workspaces
