package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/core/domain"
	"github.com/melih/dockerbar/internal/core/ports"
)

// ContainerResponse is a container together with the actions its menu offers.
type ContainerResponse struct {
	domain.Container
	Actions []domain.Action `json:"actions"`
}

type ContainerHandler struct {
	service ports.MenuService
	quit    func()
	log     logrus.FieldLogger
}

// NewContainerHandler creates the REST handler. quit is called by the quit
// endpoint and may be nil.
func NewContainerHandler(service ports.MenuService, quit func(), log logrus.FieldLogger) *ContainerHandler {
	return &ContainerHandler{service: service, quit: quit, log: log.WithField("component", "http")}
}

func (h *ContainerHandler) ListContainers(c *fiber.Ctx) error {
	containers, err := h.service.Containers(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	out := make([]ContainerResponse, 0, len(containers))
	for _, ctr := range containers {
		out = append(out, ContainerResponse{Container: ctr, Actions: domain.ActionsFor(ctr.Status)})
	}
	return c.JSON(fiber.Map{"containers": out})
}

func (h *ContainerHandler) TriggerAction(c *fiber.Ctx) error {
	key := c.Params("key")
	if key == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Container key is required",
		})
	}
	action, err := domain.ParseAction(c.Params("action"))
	if err != nil {
		return h.fail(c, err)
	}

	id, err := h.service.Trigger(c.UserContext(), action, key)
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"request_id": id,
		"action":     action,
		"container":  key,
	})
}

func (h *ContainerHandler) StopAll(c *fiber.Ctx) error {
	id, err := h.service.StopAll(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"request_id": id})
}

func (h *ContainerHandler) Refresh(c *fiber.Ctx) error {
	h.service.Refresh()
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *ContainerHandler) Quit(c *fiber.Ctx) error {
	if h.quit == nil {
		return c.SendStatus(fiber.StatusNotImplemented)
	}
	h.log.Info("Quit requested")
	// Respond before shutting down.
	go h.quit()
	return c.SendStatus(fiber.StatusAccepted)
}

func (h *ContainerHandler) fail(c *fiber.Ctx, err error) error {
	status := StatusFor(err)
	if status >= fiber.StatusInternalServerError {
		h.log.WithError(err).WithField("path", c.Path()).Error("Request failed")
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}

// StatusFor maps an error to the HTTP status returned for it.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrUnknownAction):
		return fiber.StatusBadRequest
	case errors.Is(err, domain.ErrContainerNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, domain.ErrActionNotAllowed), errors.Is(err, domain.ErrAmbiguousContainer):
		return fiber.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusServiceUnavailable
	default:
		return fiber.StatusInternalServerError
	}
}
