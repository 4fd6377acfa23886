package remote

import "fmt"

// RemoteError wraps any network, permission or quota failure from the remote
// store. Callers degrade to local-only operation on it; nothing retries
// automatically.
type RemoteError struct {
	Op  string
	Err error
}

func (e *RemoteError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("remote %s failed", e.Op)
	}
	return fmt.Sprintf("remote %s: %v", e.Op, e.Err)
}

func (e *RemoteError) Unwrap() error {
	return e.Err
}

func remoteErr(op string, err error) *RemoteError {
	return &RemoteError{Op: op, Err: err}
}
