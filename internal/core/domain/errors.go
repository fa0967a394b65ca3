package domain

import "github.com/pkg/errors"

var (
	// ErrProcessLaunchFailed means an external executable could not be started.
	ErrProcessLaunchFailed = errors.New("process launch failed")
	// ErrContainerNotFound means a referenced container no longer exists.
	ErrContainerNotFound = errors.New("container not found")
	// ErrAmbiguousContainer means an id prefix matches several containers.
	ErrAmbiguousContainer = errors.New("ambiguous container reference")
	// ErrParse marks a malformed line of engine output.
	ErrParse = errors.New("malformed engine output")
	// ErrActionFailed means the engine ran the action and reported failure.
	ErrActionFailed = errors.New("action failed")
	// ErrUnknownAction means an action name could not be parsed.
	ErrUnknownAction = errors.New("unknown action")
	// ErrActionNotAllowed means the action is not offered for the container's status.
	ErrActionNotAllowed = errors.New("action not allowed")
)
