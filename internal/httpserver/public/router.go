package public

import (
	"github.com/gofiber/fiber/v2"

	"github.com/ncecere/model_router/internal/app"
)

// Register wires up the provider routing API.
func Register(app *fiber.App, container *app.Container) {
	group := app.Group("/v1")
	handler := &providerHandler{container: container}
	group.Get("/providers", handler.listProviders)
	group.Get("/providers/:provider/model", handler.getModel)
	group.Get("/providers/:provider/models", handler.listModels)
	group.Post("/providers/:provider/messages", handler.createMessage)
	group.Post("/providers/:provider/complete", handler.completePrompt)
}
