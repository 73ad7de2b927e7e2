package hookstate

import (
	"errors"
	"fmt"
)

var (
	// ErrDestroyed is returned by every operation on a destroyed State.
	ErrDestroyed = errors.New("hookstate: state is destroyed")
	// ErrPluginNotAttached is returned when looking up a plugin id that was
	// never attached.
	ErrPluginNotAttached = errors.New("hookstate: plugin not attached")
	// ErrInvalidPlugin indicates a plugin factory returned no id.
	ErrInvalidPlugin = errors.New("hookstate: plugin id must be provided")
	// ErrPathUnreachable indicates a write more than one level past the end
	// of the existing tree.
	ErrPathUnreachable = errors.New("hookstate: path is unreachable")
	// ErrNotContainer indicates a write into a scalar parent.
	ErrNotContainer = errors.New("hookstate: parent is not a mapping or list")
	// ErrInvalidKey indicates a key that cannot address its container.
	ErrInvalidKey = errors.New("hookstate: invalid key")
	// ErrPromiseNotAtRoot indicates a promise written below the root.
	ErrPromiseNotAtRoot = errors.New("hookstate: promises are only allowed at the root")
	// ErrRejected is the rejection reason used when a promise is rejected
	// with a nil error.
	ErrRejected = errors.New("hookstate: promise rejected")
)

// StateError records the operation and path that failed.
type StateError struct {
	Op   string
	Path Path
	Err  error
}

func (e *StateError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("hookstate: %s %s: %v", e.Op, describePath(e.Path), e.Err)
}

func (e *StateError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func describePath(path Path) string {
	if path.IsRoot() {
		return "path=<root>"
	}
	return fmt.Sprintf("path=%q", path.String())
}

func wrapStateError(op string, path Path, err error) error {
	if err == nil {
		return nil
	}
	var stateErr *StateError
	if errors.As(err, &stateErr) {
		if stateErr.Op == "" {
			stateErr.Op = op
		}
		if stateErr.Path == nil {
			stateErr.Path = path
		}
		return stateErr
	}
	return &StateError{Op: op, Path: path, Err: err}
}
