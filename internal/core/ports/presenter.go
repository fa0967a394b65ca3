package ports

import (
	"context"

	"github.com/melih/dockerbar/internal/core/domain"
)

// Presenter receives view changes. Implementations must not block.
type Presenter interface {
	Render(update domain.ViewUpdate)
	ActionCompleted(result domain.ActionResult)
}

// MenuService is what a presentation layer calls back into.
type MenuService interface {
	Containers(ctx context.Context) ([]domain.Container, error)
	// Trigger dispatches action on the container identified by key and
	// returns the request id.
	Trigger(ctx context.Context, action domain.Action, key string) (string, error)
	// StopAll stops every running or paused container in the background and
	// returns the request id of the batch.
	StopAll(ctx context.Context) (string, error)
	Refresh()
}
