// Package mocknear provides in-process stand-ins for the services the harness talks to: a
// ledger node speaking enough JSON-RPC for the rpc package, and an account-creation helper.
// They are meant to be served with httptest or the go-test-helpers httphelpers package.
package mocknear
