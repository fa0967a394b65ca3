package domain

import (
	"strings"

	"github.com/pkg/errors"
)

// Status is the semantic lifecycle status shown for a container.
type Status string

const (
	StatusRunning Status = "running"
	StatusPaused  Status = "paused"
	StatusStopped Status = "stopped"
	StatusUnknown Status = "unknown"
)

// Container represents a container reported by the engine.
type Container struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	State  string `json:"state"` // raw engine state: running, exited, etc.
	Status Status `json:"status"`
}

// NewContainer classifies the raw state and builds a Container.
// ok is false when the state is not one the menu can show.
func NewContainer(id, name, state string) (Container, bool) {
	status, ok := Classify(state)
	if !ok {
		return Container{}, false
	}
	return Container{ID: id, Name: name, State: state, Status: status}, true
}

// Key identifies a container across refreshes: the id when known, else the name.
func (c Container) Key() string {
	if c.ID != "" {
		return c.ID
	}
	return c.Name
}

// matchesID reports whether ref is an id prefix of c. Engine events carry full
// 64 character ids while listings usually carry the 12 character short form,
// so ids match on prefix in either direction.
func (c Container) matchesID(ref string) bool {
	return c.ID != "" && (strings.HasPrefix(c.ID, ref) || strings.HasPrefix(ref, c.ID))
}

// Resolve returns the index of the container ref names. An exact key or name
// wins. Otherwise ref must be an id prefix of exactly one container; several
// candidates yield ErrAmbiguousContainer.
func Resolve(containers []Container, ref string) (int, error) {
	if ref == "" {
		return -1, errors.Wrap(ErrContainerNotFound, "empty reference")
	}
	for i, c := range containers {
		if c.Key() == ref {
			return i, nil
		}
	}
	for i, c := range containers {
		if c.Name == ref {
			return i, nil
		}
	}

	found := -1
	for i, c := range containers {
		if !c.matchesID(ref) {
			continue
		}
		if found >= 0 {
			return -1, errors.Wrapf(ErrAmbiguousContainer, "%q matches %s and %s", ref, containers[found].Name, c.Name)
		}
		found = i
	}
	if found < 0 {
		return -1, errors.Wrapf(ErrContainerNotFound, "%q", ref)
	}
	return found, nil
}

// Classify maps a raw engine state to a Status.
func Classify(state string) (Status, bool) {
	switch strings.ToLower(strings.TrimSpace(state)) {
	case "running", "restarting":
		return StatusRunning, true
	case "paused":
		return StatusPaused, true
	case "created", "exited":
		return StatusStopped, true
	case "dead", "removing", "destroy", "kill":
		return StatusUnknown, true
	default:
		return "", false
	}
}

// StateFromStatusText derives a raw state from the human readable status
// column ("Up 2 hours (Paused)", "Exited (0) 3 days ago"). It returns "" when
// nothing matches.
func StateFromStatusText(text string) string {
	text = strings.TrimSpace(text)
	switch {
	case strings.Contains(text, "(Paused)"):
		return "paused"
	case strings.HasPrefix(text, "Up"):
		return "running"
	case strings.HasPrefix(text, "Restarting"):
		return "restarting"
	case strings.HasPrefix(text, "Exited"):
		return "exited"
	case strings.HasPrefix(text, "Created"):
		return "created"
	case strings.HasPrefix(text, "Removal In Progress"):
		return "removing"
	case strings.HasPrefix(text, "Dead"):
		return "dead"
	}
	return ""
}

// Indicator returns the icon name a presenter shows next to a container.
func Indicator(s Status) string {
	switch s {
	case StatusRunning:
		return "available"
	case StatusPaused:
		return "partially-available"
	case StatusStopped:
		return "none"
	default:
		return "unavailable"
	}
}
