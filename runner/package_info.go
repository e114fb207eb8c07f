// Package runner runs a task against a backend that it starts for the task and stops
// afterward. The backend is made current for the task through the context it receives,
// so tasks for different backends can run concurrently without seeing each other's.
package runner
