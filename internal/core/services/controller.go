package services

import (
	"context"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
)

// Controller implements ports.MenuService on top of a Syncer and a
// Dispatcher.
type Controller struct {
	syncer     *Syncer
	dispatcher *Dispatcher
	log        logrus.FieldLogger
}

func NewController(syncer *Syncer, dispatcher *Dispatcher, log logrus.FieldLogger) *Controller {
	return &Controller{
		syncer:     syncer,
		dispatcher: dispatcher,
		log:        log.WithField("component", "controller"),
	}
}

// Containers returns the list currently shown.
func (c *Controller) Containers(ctx context.Context) ([]domain.Container, error) {
	return c.syncer.Snapshot(ctx)
}

// Trigger validates the action against the shown list and dispatches it.
func (c *Controller) Trigger(ctx context.Context, action domain.Action, key string) (string, error) {
	containers, err := c.syncer.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	idx, err := domain.Resolve(containers, key)
	if err != nil {
		return "", err
	}
	target := containers[idx]
	if !domain.Allowed(action, target.Status) {
		return "", errors.Wrapf(domain.ErrActionNotAllowed, "%s on %s container %s", action, target.Status, target.Name)
	}

	id := c.dispatcher.Submit(action, target)
	c.log.WithFields(logrus.Fields{
		"request":   id,
		"action":    action.String(),
		"container": target.Name,
	}).Debug("Action submitted")
	return id, nil
}

// StopAll stops every running or paused container.
func (c *Controller) StopAll(ctx context.Context) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return c.dispatcher.StopAll(), nil
}

// Refresh schedules a full re-query.
func (c *Controller) Refresh() {
	c.syncer.RequestRefresh()
}
