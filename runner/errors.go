package runner

import (
	"errors"
	"fmt"
)

var (
	// ErrScopeAborted is matched by every *AbortError.
	ErrScopeAborted = errors.New("scope aborted")

	// ErrNoRootAccount is returned by RootSigner when the backend has no account that can
	// create top-level accounts.
	ErrNoRootAccount = errors.New("backend has no root account")

	errTaskExited = errors.New("task exited without returning")
)

// AbortError means the task or the backend panicked. The backend has already been stopped
// when this is returned.
type AbortError struct {
	Backend string
	Value   interface{}
	Stack   []byte
}

func (e *AbortError) Error() string {
	return fmt.Sprintf("%s scope aborted: %v", e.Backend, e.Value)
}

func (e *AbortError) Is(target error) bool { return target == ErrScopeAborted }

// Unwrap returns the panic value if it was an error.
func (e *AbortError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}
