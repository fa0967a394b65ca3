package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// Action is a user triggered container operation.
type Action int

const (
	ActionStart Action = iota
	ActionStop
	ActionRestart
	ActionPause
	ActionUnpause
	ActionRemove
	ActionShowLogs
	ActionOpenShell
)

var actionNames = map[Action]string{
	ActionStart:     "start",
	ActionStop:      "stop",
	ActionRestart:   "restart",
	ActionPause:     "pause",
	ActionUnpause:   "unpause",
	ActionRemove:    "remove",
	ActionShowLogs:  "logs",
	ActionOpenShell: "shell",
}

var actionLabels = map[Action]string{
	ActionStart:     "Start",
	ActionStop:      "Stop",
	ActionRestart:   "Restart",
	ActionPause:     "Pause",
	ActionUnpause:   "Unpause",
	ActionRemove:    "Remove",
	ActionShowLogs:  "Logs",
	ActionOpenShell: "Open Shell",
}

// Actions lists every action in menu order.
var Actions = []Action{
	ActionStart, ActionStop, ActionRestart, ActionPause,
	ActionUnpause, ActionRemove, ActionShowLogs, ActionOpenShell,
}

func (a Action) String() string {
	if name, ok := actionNames[a]; ok {
		return name
	}
	return "unknown"
}

// Label is the menu title of the action.
func (a Action) Label() string {
	return actionLabels[a]
}

// MarshalText encodes the action by name.
func (a Action) MarshalText() ([]byte, error) {
	if _, ok := actionNames[a]; !ok {
		return nil, errors.Wrapf(ErrUnknownAction, "action %d", int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action name.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAction maps an action name to an Action. "showlogs", "rm" and
// "openshell" are accepted as aliases.
func ParseAction(name string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "start":
		return ActionStart, nil
	case "stop":
		return ActionStop, nil
	case "restart":
		return ActionRestart, nil
	case "pause":
		return ActionPause, nil
	case "unpause":
		return ActionUnpause, nil
	case "remove", "rm":
		return ActionRemove, nil
	case "logs", "showlogs":
		return ActionShowLogs, nil
	case "shell", "openshell":
		return ActionOpenShell, nil
	}
	return 0, errors.Wrapf(ErrUnknownAction, "%q", name)
}

// ActionsFor returns the actions offered for a container in the given status.
func ActionsFor(s Status) []Action {
	switch s {
	case StatusRunning:
		return []Action{ActionOpenShell, ActionRestart, ActionPause, ActionStop, ActionShowLogs}
	case StatusPaused:
		return []Action{ActionUnpause}
	case StatusStopped:
		return []Action{ActionStart, ActionRemove}
	default:
		return []Action{ActionRemove}
	}
}

// Allowed reports whether a is offered for status s.
func Allowed(a Action, s Status) bool {
	for _, candidate := range ActionsFor(s) {
		if candidate == a {
			return true
		}
	}
	return false
}

// ActionResult is the outcome of a dispatched action.
type ActionResult struct {
	RequestID string    `json:"request_id"`
	Action    Action    `json:"action"`
	Container Container `json:"container"`
	Err       error     `json:"-"`
}

// Failed reports whether the action did not complete.
func (r ActionResult) Failed() bool {
	return r.Err != nil
}
