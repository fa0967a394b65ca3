package http

import (
	"bufio"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/melih/dockerbar/internal/adapters/hub"
	"github.com/melih/dockerbar/internal/core/domain"
)

// Subscriber is the part of the hub the event stream needs.
type Subscriber interface {
	Subscribe() (string, <-chan hub.Notification, error)
	Unsubscribe(id string)
	Latest() (domain.ViewUpdate, bool)
}

// EventHandler streams view updates and action results as server-sent events.
type EventHandler struct {
	hub       Subscriber
	keepAlive time.Duration
	log       logrus.FieldLogger
}

func NewEventHandler(h Subscriber, keepAlive time.Duration, log logrus.FieldLogger) *EventHandler {
	if keepAlive <= 0 {
		keepAlive = 15 * time.Second
	}
	return &EventHandler{hub: h, keepAlive: keepAlive, log: log.WithField("component", "sse")}
}

func (h *EventHandler) Stream(c *fiber.Ctx) error {
	id, notifications, err := h.hub.Subscribe()
	if err != nil {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")

	log := h.log.WithField("subscriber", id)
	latest, haveLatest := h.hub.Latest()

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer h.hub.Unsubscribe(id)
		log.Debug("Event stream opened")

		if haveLatest {
			if err := writeEvent(w, "snapshot", latest); err != nil {
				return
			}
		}

		ticker := time.NewTicker(h.keepAlive)
		defer ticker.Stop()
		for {
			select {
			case n, ok := <-notifications:
				if !ok {
					log.Debug("Event stream closed by hub")
					return
				}
				var err error
				switch {
				case n.Update != nil:
					err = writeEvent(w, "update", n.Update)
				case n.Action != nil:
					err = writeEvent(w, "action", n.Action)
				}
				if err != nil {
					log.WithError(err).Debug("Event stream client gone")
					return
				}
			case <-ticker.C:
				if _, err := w.WriteString(": keep-alive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					log.Debug("Event stream client gone")
					return
				}
			}
		}
	})
	return nil
}

func writeEvent(w *bufio.Writer, name string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", name, data); err != nil {
		return err
	}
	return w.Flush()
}
