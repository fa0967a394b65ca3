package http

import "github.com/gofiber/fiber/v2"

// Mount registers the API routes under /api/v1.
func Mount(app *fiber.App, containers *ContainerHandler, events *EventHandler) {
	api := app.Group("/api")
	v1 := api.Group("/v1")

	v1.Get("/containers", containers.ListContainers)
	v1.Post("/containers/stop", containers.StopAll)
	v1.Post("/containers/:key/actions/:action", containers.TriggerAction)
	v1.Post("/refresh", containers.Refresh)
	v1.Post("/quit", containers.Quit)
	v1.Get("/events", events.Stream)
}
