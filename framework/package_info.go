// Package framework contains the low-level pieces shared by every part of the workspaces
// harness: the Logger abstraction and its implementations. Other reusable components live
// in the subpackages helpers, opt and scenario.
//
// The general model is:
//
// 1. Test logic asks the runner package for a scope bound to one backend (a local sandbox
// node or the shared testnet).
//
// 2. Everything called from inside that scope, however deeply nested, finds the backend
// through the context.Context it was given, so helpers never take the backend as a parameter.
//
// 3. The rpc package turns the current backend into a JSON-RPC client and performs queries
// and transaction submission against it.
package framework
