package controller

import (
	"ai-consultation-be/internal/pkg/serverutils"

	"github.com/gofiber/fiber/v2"
)

type ISystemController interface {
	RegisterRoutes(r fiber.Router)
	Info(ctx *fiber.Ctx) error
	Health(ctx *fiber.Ctx) error
}

type systemController struct {
	name        string
	environment string
}

func NewSystemController(name, environment string) ISystemController {
	return &systemController{name: name, environment: environment}
}

func (c *systemController) RegisterRoutes(r fiber.Router) {
	r.Get("/", c.Info)
}

func (c *systemController) Info(ctx *fiber.Ctx) error {
	return ctx.JSON(serverutils.SuccessResponse("Service info", fiber.Map{
		"name":        c.name,
		"environment": c.environment,
		"endpoints": []string{
			"POST /api/assessment/v1/questions",
			"POST /api/assessment/v1/assess",
			"GET /api/assessment/v1/archive",
			"GET /api/assessment/v1/archive/:id",
			"POST /api/report/v1/analyze",
			"POST /api/report/v1/pdf",
			"POST /api/conversation/v1/continue",
			"GET /api/conversation/v1/:id",
			"GET /metrics",
			"GET /healthz",
		},
	}))
}

func (c *systemController) Health(ctx *fiber.Ctx) error {
	return ctx.JSON(fiber.Map{"status": "ok"})
}
