// Package rpc is the submission layer: stateless helpers that resolve the current backend
// from a context.Context, build a JSON-RPC client for it, and query or transact against it.
//
// Transaction submission tolerates exactly one class of failure, the node reporting that it
// accepted a transaction but could not confirm it within its own waiting window. Such
// submissions are retried with the same signed payload until any other response arrives.
package rpc
