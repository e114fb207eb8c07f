// Package backend describes the execution targets a workspace can run against, and carries
// the one that is current for a piece of work inside a context.Context.
//
// A Flavor is an immutable value. Capabilities that a flavor does not implement return an
// *UnsupportedError rather than a zero value, so an incomplete integration is reported at the
// first call that needs it.
package backend
