package domain

import "strings"

// EngineEvent is one line of the engine event stream.
type EngineEvent struct {
	Type        string
	Action      string
	ContainerID string
}

// refreshActions are the container actions that change what the menu shows.
var refreshActions = map[string]struct{}{
	"create":  {},
	"start":   {},
	"pause":   {},
	"stop":    {},
	"kill":    {},
	"die":     {},
	"destroy": {},
	"restart": {},
	"unpause": {},
}

// Relevant reports whether the event should trigger reconciliation.
func (e EngineEvent) Relevant() bool {
	if e.Type != "container" {
		return false
	}
	_, ok := refreshActions[e.BaseAction()]
	return ok
}

// BaseAction strips the detail suffix some actions carry, e.g.
// "exec_start: sh" or "health_status: healthy".
func (e EngineEvent) BaseAction() string {
	action := e.Action
	if i := strings.IndexByte(action, ':'); i >= 0 {
		action = action[:i]
	}
	return strings.TrimSpace(action)
}
