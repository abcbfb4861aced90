package engine

import "github.com/gofiber/fiber/v2"

func RegisterQuestionnaireRoutes(app *fiber.App, h *Handler, authMW fiber.Handler) {
	api := app.Group("/api/questionnaires", authMW)

	api.Get("/:type", h.Get)
	api.Post("/:type/evaluate", h.Evaluate)
	api.Put("/:type/responses", h.SaveResponses)
	api.Post("/:type/submit", h.Submit)
}
