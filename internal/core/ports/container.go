package ports

import (
	"context"

	"github.com/melih/dockerbar/internal/core/domain"
)

// ContainerService defines the engine operations the menu needs.
// This interface allows us to switch between the engine CLI and the Docker
// SDK without changing the synchronization logic.
type ContainerService interface {
	ListContainers(ctx context.Context) ([]domain.Container, error)
	// GetContainer returns domain.ErrContainerNotFound when id is gone.
	GetContainer(ctx context.Context, id string) (domain.Container, error)
	RunAction(ctx context.Context, action domain.Action, c domain.Container) error
}

// EventSource streams engine events until ctx is cancelled or the engine
// closes the stream. Malformed events are dropped by the source.
type EventSource interface {
	StreamEvents(ctx context.Context) (<-chan domain.EngineEvent, error)
}

// Engine is a full container engine backend.
type Engine interface {
	ContainerService
	EventSource
}
